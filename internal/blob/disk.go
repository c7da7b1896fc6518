package blob

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/storefront/internal/remote"
)

// DiskStore stores objects as files under a directory.
type DiskStore struct {
	dir       string
	baseURL   string
	maxSize   int64
	chunkSize int
}

// NewDiskStore creates a DiskStore rooted at dir.
//
// Parameters:
//   - dir: Directory objects are written under (created if missing)
//   - baseURL: Prefix of public URLs (e.g. "http://localhost:8080/media");
//     empty means file:// URLs
//   - maxSize: Maximum object size in bytes (0 = no limit)
func NewDiskStore(dir, baseURL string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:       dir,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		maxSize:   maxSize,
		chunkSize: DefaultChunkSize,
	}, nil
}

// Dir returns the root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Put implements Store. The object is written to a temp file and renamed
// into place, so readers never see a partial object.
func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc, opts ...PutOption) (Ref, error) {
	if err := checkKey(key); err != nil {
		return Ref{}, err
	}
	if s.maxSize > 0 && size > s.maxSize {
		return Ref{}, errTooLarge(s.maxSize)
	}
	o := putOptions(opts)

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Ref{}, remote.Wrap(remote.ServiceBlob, CodeInternal, err)
	}
	f, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Ref{}, remote.Wrap(remote.ServiceBlob, CodeInternal, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op after a successful rename

	written, err := copyLimited(ctx, f, newProgressReader(r, size, progress), s.chunkSize, s.maxSize)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = remote.Wrap(remote.ServiceBlob, CodeInternal, cerr)
	}
	if err != nil {
		return Ref{}, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return Ref{}, remote.Wrap(remote.ServiceBlob, CodeInternal, err)
	}
	return Ref{Key: key, Size: written, ContentType: o.ContentType}, nil
}

// PublicURL implements Store.
func (s *DiskStore) PublicURL(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", remote.New(remote.ServiceBlob, CodeNotFound, "no object at "+key)
		}
		return "", remote.Wrap(remote.ServiceBlob, CodeInternal, err)
	}
	if s.baseURL == "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", remote.Wrap(remote.ServiceBlob, CodeInternal, err)
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}
	return s.baseURL + "/" + key, nil
}
