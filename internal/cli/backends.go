package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/roach88/storefront/internal/blob"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/profile"
	"github.com/roach88/storefront/internal/store"
)

// backends are the collaborators a served session runs against.
type backends struct {
	identity identity.Service
	profiles profile.Store
	blobs    blob.Store
	db       *store.DB
}

// openBackends builds the identity, profile and blob collaborators named
// by cfg. Close releases the database, if one was opened.
func openBackends(cfg config.Config) (*backends, error) {
	b := &backends{}

	switch cfg.Database.Driver {
	case config.BackendSQLite, config.BackendPostgres:
		slog.Info("opening database", "driver", cfg.Database.Driver)
		db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		b.db = db
		b.identity = identity.NewSQLService(db)
		b.profiles = profile.NewSQLStore(db)
	default:
		b.identity = identity.NewMemoryService(nil)
		b.profiles = profile.NewMemoryStore()
	}

	blobs, err := openBlobStore(cfg.Blob)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.blobs = blobs
	return b, nil
}

// Close releases the database connection.
func (b *backends) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func openBlobStore(cfg config.Blob) (blob.Store, error) {
	switch cfg.Backend {
	case config.BackendDisk:
		s, err := blob.NewDiskStore(cfg.Disk.Dir, cfg.Disk.BaseURL, cfg.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open disk blob store: %w", err)
		}
		return s, nil
	case config.BackendS3:
		client := newS3Client(cfg.S3)
		return blob.NewS3Store(client, s3.NewPresignClient(client), blob.S3Config{
			Bucket:        cfg.S3.Bucket,
			Prefix:        cfg.S3.Prefix,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			URLExpiry:     cfg.S3.URLExpiry,
			MaxSize:       cfg.MaxSize,
		}), nil
	default:
		return blob.NewMemoryStore(0), nil
	}
}

// newS3Client builds a client from static credentials taken from the
// environment. A custom endpoint serves S3-compatible stores such as MinIO.
func newS3Client(cfg config.S3) *s3.Client {
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return aws.Credentials{}, errors.New("S3 credentials are not set")
		}
		return aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "storefront-env",
		}, nil
	})

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(creds),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}
