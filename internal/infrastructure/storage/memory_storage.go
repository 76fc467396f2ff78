package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	appledger "github.com/invest/ledger/internal/application/ledger"
)

// Ensure MemoryStorage implements StatementStorage
var _ appledger.StatementStorage = (*MemoryStorage)(nil)

// MemoryStorage keeps statements in process. It backs statement export when
// object storage is disabled; download URLs point at BaseURL.
type MemoryStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// StoredObject is one object held by MemoryStorage
type StoredObject struct {
	Data        []byte
	ContentType string
	UploadedAt  time.Time
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/statements"
	}
	return &MemoryStorage{BaseURL: baseURL, objects: make(map[string]StoredObject)}
}

// Upload stores a copy of data
func (m *MemoryStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storageKey] = StoredObject{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}
	return nil
}

// GenerateDownloadURL returns BaseURL/key with an expiry parameter. The key
// must have been uploaded.
func (m *MemoryStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	m.mu.RLock()
	_, ok := m.objects[storageKey]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, errors.New("object not found: " + storageKey)
	}

	expiresAt := time.Now().Add(expiresIn)
	u := m.BaseURL + "/" + storageKey + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return u, expiresAt, nil
}

// Get returns the object stored under storageKey
func (m *MemoryStorage) Get(storageKey string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[storageKey]
	return obj, ok
}
