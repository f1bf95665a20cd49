// Package storage persists license records under two lookup keys,
// customer:{customer_id} and license:{license_key}. Both copies are
// written before the triggering event is acknowledged; there is no
// cross-key transaction, and last write wins.
package storage

import (
	"context"
	"sync"

	"codegate.app/cloud/models"
)

func customerKey(customerID string) string {
	return "customer:" + customerID
}

func licenseKey(key string) string {
	return "license:" + key
}

type Store interface {
	// Put writes the record under both keys, overwriting any prior
	// value. Errors from either write are aggregated.
	Put(ctx context.Context, record *models.LicenseRecord) error

	GetByCustomerID(ctx context.Context, customerID string) (*models.LicenseRecord, error)
	GetByLicenseKey(ctx context.Context, key string) (*models.LicenseRecord, error)

	Close() error
}

// MemoryStore backs tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.LicenseRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.LicenseRecord)}
}

func (m *MemoryStore) Put(ctx context.Context, record *models.LicenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[customerKey(record.CustomerID)] = *record
	m.records[licenseKey(record.LicenseKey)] = *record
	return nil
}

func (m *MemoryStore) GetByCustomerID(ctx context.Context, customerID string) (*models.LicenseRecord, error) {
	return m.get(customerKey(customerID))
}

func (m *MemoryStore) GetByLicenseKey(ctx context.Context, key string) (*models.LicenseRecord, error) {
	return m.get(licenseKey(key))
}

func (m *MemoryStore) get(key string) (*models.LicenseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[key]
	if !exists {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
