package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"

	"codegate.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists records in a single key/value table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, record *models.LicenseRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal license record: %w", err)
	}

	query := `INSERT INTO license_records (k, v, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = CURRENT_TIMESTAMP`

	// Both copies are written even if the first write fails; callers
	// get the aggregate and the next event for this customer
	// reconciles any partial state.
	var result *multierror.Error
	for _, k := range []string{customerKey(record.CustomerID), licenseKey(record.LicenseKey)} {
		if _, err := s.db.ExecContext(ctx, query, k, string(value)); err != nil {
			result = multierror.Append(result, fmt.Errorf("write %s: %w", k, err))
		}
	}

	return result.ErrorOrNil()
}

func (s *SQLiteStore) GetByCustomerID(ctx context.Context, customerID string) (*models.LicenseRecord, error) {
	return s.get(ctx, customerKey(customerID))
}

func (s *SQLiteStore) GetByLicenseKey(ctx context.Context, key string) (*models.LicenseRecord, error) {
	return s.get(ctx, licenseKey(key))
}

func (s *SQLiteStore) get(ctx context.Context, key string) (*models.LicenseRecord, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM license_records WHERE k = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record models.LicenseRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, fmt.Errorf("unmarshal license record %s: %w", key, err)
	}

	return &record, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
