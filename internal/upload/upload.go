// Package upload streams media chosen by the signed-in user to blob storage
// and mirrors transfer progress into the session state.
package upload

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/storefront/internal/blob"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/state"
)

const tracerName = "github.com/roach88/storefront/internal/upload"

// Asset is a file to upload.
type Asset struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AccountSource reports the signed-in account. identity.Service satisfies it.
type AccountSource interface {
	Current() (identity.Account, bool)
}

// AvatarKey is the blob key of an account's avatar.
func AvatarKey(uid string) string {
	return "avatar/" + uid
}

// Percent converts byte counts to a 0-100 progress value. An unknown total
// counts as complete.
func Percent(transferred, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(transferred) / float64(total) * 100
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithMetrics records upload bytes, progress and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Uploader) {
		u.metrics = m
	}
}

// WithTracer sets the tracer (default: the global provider's).
func WithTracer(t trace.Tracer) Option {
	return func(u *Uploader) {
		if t != nil {
			u.tracer = t
		}
	}
}

// Uploader runs avatar uploads.
type Uploader struct {
	store    *state.Store
	blobs    blob.Store
	accounts AccountSource
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewUploader creates an uploader.
func NewUploader(store *state.Store, blobs blob.Store, accounts AccountSource, opts ...Option) *Uploader {
	u := &Uploader{
		store:    store,
		blobs:    blobs,
		accounts: accounts,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload streams a to avatar/<uid> of the signed-in account and returns the
// object's public URL. Every progress event commits transferred/total*100
// to the store. Failures are returned as *remote.Error; there is no retry.
func (u *Uploader) Upload(ctx context.Context, a Asset) (url string, err error) {
	acct, ok := u.accounts.Current()
	if !ok {
		u.metrics.Workflow("upload", metrics.OutcomeFailed)
		return "", remote.New(remote.ServiceIdentity, identity.CodeNoCurrentUser, "no signed-in user")
	}
	key := AvatarKey(acct.UID)

	ctx, span := u.tracer.Start(ctx, "upload.avatar", trace.WithAttributes(
		attribute.String("storefront.blob_key", key),
		attribute.String("storefront.asset_name", a.Name),
		attribute.Int64("storefront.asset_size", a.Size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, remote.Describe(err))
			u.metrics.Workflow("upload", metrics.OutcomeFailed)
		} else {
			u.metrics.Workflow("upload", metrics.OutcomeOK)
		}
		span.End()
	}()

	var opts []blob.PutOption
	if a.ContentType != "" {
		opts = append(opts, blob.WithContentType(a.ContentType))
	}

	ref, err := u.blobs.Put(ctx, key, a.Body, a.Size, u.progress, opts...)
	if err != nil {
		slog.Error("avatar upload failed", "key", key, "error", err)
		return "", err
	}
	u.metrics.UploadBytes(ref.Size)

	url, err = u.blobs.PublicURL(ctx, key)
	if err != nil {
		return "", err
	}
	slog.Info("avatar uploaded", "key", key, "bytes", ref.Size)
	return url, nil
}

func (u *Uploader) progress(transferred, total int64) {
	p := Percent(transferred, total)
	u.store.SetProgress(p)
	u.metrics.UploadProgress(p)
}
