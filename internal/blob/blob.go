// Package blob stores uploaded media (avatars) and hands out URLs for them.
//
// Three stores are provided: S3Store for production, DiskStore for a single
// host and MemoryStore for tests. All of them stream the body through a
// counting reader and report cumulative progress while they consume it.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/roach88/storefront/internal/remote"
)

// Error codes.
const (
	CodeInvalidKey = "blob/invalid-key"
	CodeTooLarge   = "blob/too-large"
	CodeNotFound   = "blob/not-found"
	CodeInternal   = "blob/internal"
)

// DefaultChunkSize is the read size between progress reports.
const DefaultChunkSize = 32 << 10

// ProgressFunc receives the cumulative bytes transferred and the declared
// total. total is the size passed to Put and may be 0 when unknown.
type ProgressFunc func(transferred, total int64)

// Ref identifies a stored object.
type Ref struct {
	Key         string
	Size        int64
	ContentType string
}

// PutOptions holds optional Put parameters.
type PutOptions struct {
	ContentType string
}

// PutOption configures a Put call.
type PutOption func(*PutOptions)

// WithContentType sets the stored object's content type.
func WithContentType(ct string) PutOption {
	return func(o *PutOptions) {
		o.ContentType = ct
	}
}

func putOptions(opts []PutOption) PutOptions {
	o := PutOptions{ContentType: "application/octet-stream"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Store is the blob collaborator.
type Store interface {
	// Put streams r to key. progress may be nil.
	Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc, opts ...PutOption) (Ref, error)

	// PublicURL returns a URL the object can be fetched from.
	PublicURL(ctx context.Context, key string) (string, error)
}

// checkKey rejects keys that could escape a store's namespace.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return remote.New(remote.ServiceBlob, CodeInvalidKey, "invalid key "+key)
	}
	return nil
}

func errTooLarge(limit int64) error {
	return remote.New(remote.ServiceBlob, CodeTooLarge, fmt.Sprintf("object exceeds %d bytes", limit))
}

// progressReader counts bytes read from r and reports them.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(p.read, p.total)
		}
	}
	return n, err
}

// copyLimited copies src to dst in chunk-sized reads. With maxSize > 0 it
// fails once more than maxSize bytes have been read.
func copyLimited(ctx context.Context, dst io.Writer, src io.Reader, chunk int, maxSize int64) (int64, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	buf := make([]byte, chunk)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, remote.Wrap(remote.ServiceBlob, CodeInternal, err)
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if maxSize > 0 && written > maxSize {
				return written, errTooLarge(maxSize)
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, remote.Wrap(remote.ServiceBlob, CodeInternal, werr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, remote.Wrap(remote.ServiceBlob, CodeInternal, rerr)
		}
	}
}
