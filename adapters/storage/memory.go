package storage

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

type memoryObject struct {
	content     []byte
	contentType string
	created     time.Time
	updated     time.Time
}

// MemoryStore is an in-memory ObjectStore for local development and tests
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[entities.ObjectURI]*memoryObject
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[entities.ObjectURI]*memoryObject),
	}
}

// LoadDir seeds the store from a directory laid out as <bucket>/<object path>.
// Files directly under dir have no bucket and are skipped.
func (m *MemoryStore) LoadDir(dir string) (int, error) {
	loaded := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		bucket, objectPath, ok := strings.Cut(filepath.ToSlash(rel), "/")
		if !ok {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		m.Put(entities.ObjectURI{Bucket: bucket, Path: objectPath}, content, "")
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to load objects from %s: %w", dir, err)
	}
	return loaded, nil
}

// Put stores or replaces an object
func (m *MemoryStore) Put(uri entities.ObjectURI, content []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	obj, exists := m.objects[uri]
	if !exists {
		obj = &memoryObject{created: now}
		m.objects[uri] = obj
	}
	obj.content = append([]byte(nil), content...)
	obj.contentType = contentType
	obj.updated = now
}

// Get implements repositories.ObjectStore
func (m *MemoryStore) Get(ctx context.Context, uri entities.ObjectURI) (*entities.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, exists := m.objects[uri]
	if !exists {
		return nil, repositories.ErrObjectNotFound
	}

	return &entities.Object{
		URI:         uri,
		Content:     append([]byte(nil), obj.content...),
		ContentType: ContentType(uri.Path, obj.contentType),
	}, nil
}

// Stat implements repositories.ObjectStore
func (m *MemoryStore) Stat(ctx context.Context, uri entities.ObjectURI) (*entities.ObjectAttrs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, exists := m.objects[uri]
	if !exists {
		return nil, repositories.ErrObjectNotFound
	}

	sum := md5.Sum(obj.content)
	return &entities.ObjectAttrs{
		Name:        uri.Path,
		Size:        int64(len(obj.content)),
		ContentType: obj.contentType,
		Created:     obj.created,
		Updated:     obj.updated,
		MD5Hash:     base64.StdEncoding.EncodeToString(sum[:]),
		PublicURL:   PublicURL(uri),
	}, nil
}
