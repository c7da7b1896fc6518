package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/roach88/storefront/internal/remote"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory. URLs have the form mem://<key>.
type MemoryStore struct {
	mu        sync.Mutex
	objects   map[string]memoryObject
	chunkSize int
	failures  []error
}

// NewMemoryStore creates a store that reads in chunks of chunkSize bytes
// (DefaultChunkSize when <= 0), so tests can control how many progress
// events an upload produces.
func NewMemoryStore(chunkSize int) *MemoryStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MemoryStore{objects: make(map[string]memoryObject), chunkSize: chunkSize}
}

// FailNext makes the next Put return err. Calls queue up.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc, opts ...PutOption) (Ref, error) {
	if err := checkKey(key); err != nil {
		return Ref{}, err
	}
	m.mu.Lock()
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		m.mu.Unlock()
		return Ref{}, err
	}
	m.mu.Unlock()

	o := putOptions(opts)
	var buf bytes.Buffer
	n, err := copyLimited(ctx, &buf, newProgressReader(r, size, progress), m.chunkSize, 0)
	if err != nil {
		return Ref{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: buf.Bytes(), contentType: o.ContentType}
	return Ref{Key: key, Size: n, ContentType: o.ContentType}, nil
}

// PublicURL implements Store.
func (m *MemoryStore) PublicURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", remote.New(remote.ServiceBlob, CodeNotFound, "no object at "+key)
	}
	return "mem://" + key, nil
}

// Object returns a stored object's bytes.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}
