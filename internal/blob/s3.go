package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/roach88/storefront/internal/remote"
)

// S3API is the part of *s3.Client that S3Store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the part of *s3.PresignClient that S3Store uses.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config configures an S3Store.
type S3Config struct {
	Bucket string

	// Prefix is prepended to every key (e.g. "storefront/").
	Prefix string

	// PublicBaseURL, when set, makes PublicURL return PublicBaseURL/<key>
	// instead of a presigned GET URL.
	PublicBaseURL string

	// URLExpiry is the lifetime of presigned URLs. Default 24h.
	URLExpiry time.Duration

	// MaxSize is the maximum object size in bytes (0 = no limit).
	MaxSize int64
}

// S3Store stores objects in an S3 bucket.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "us-east-1", Credentials: creds})
//	store := blob.NewS3Store(client, s3.NewPresignClient(client), blob.S3Config{Bucket: "media"})
type S3Store struct {
	client    S3API
	presigner Presigner
	cfg       S3Config
}

// NewS3Store creates an S3Store. presigner may be nil when
// cfg.PublicBaseURL is set.
func NewS3Store(client S3API, presigner Presigner, cfg S3Config) *S3Store {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 24 * time.Hour
	}
	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	return &S3Store{client: client, presigner: presigner, cfg: cfg}
}

// Put implements Store.
//
// The body is buffered before the PutObject call so the request payload
// can be signed and retried. Progress reports bytes consumed from r.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc, opts ...PutOption) (Ref, error) {
	if err := checkKey(key); err != nil {
		return Ref{}, err
	}
	if s.cfg.MaxSize > 0 && size > s.cfg.MaxSize {
		return Ref{}, errTooLarge(s.cfg.MaxSize)
	}
	o := putOptions(opts)

	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	n, err := copyLimited(ctx, &buf, newProgressReader(r, size, progress), DefaultChunkSize, s.cfg.MaxSize)
	if err != nil {
		return Ref{}, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.cfg.Prefix + key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		ContentType:   aws.String(o.ContentType),
		Metadata: map[string]string{
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return Ref{}, mapS3Error(err)
	}
	return Ref{Key: key, Size: n, ContentType: o.ContentType}, nil
}

// PublicURL implements Store.
func (s *S3Store) PublicURL(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + s.cfg.Prefix + key, nil
	}
	if s.presigner == nil {
		return "", remote.New(remote.ServiceBlob, CodeInternal, "no presigner configured")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Prefix + key),
	}, s3.WithPresignExpires(s.cfg.URLExpiry))
	if err != nil {
		return "", mapS3Error(err)
	}
	return req.URL, nil
}

// mapS3Error turns an SDK failure into a remote.Error, keeping the S3
// error code when the service returned one.
func mapS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &remote.Error{
			Service: remote.ServiceBlob,
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return remote.Wrap(remote.ServiceBlob, CodeInternal, err)
}
