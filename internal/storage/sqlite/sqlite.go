package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tuyabridge/internal/devices"
	"tuyabridge/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements storage.CredentialStore and storage.MappingStore on SQLite
type Store struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

var (
	_ storage.CredentialStore = (*Store)(nil)
	_ storage.MappingStore    = (*Store)(nil)
)

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS device_mappings (
			device_id TEXT PRIMARY KEY,
			mapping TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the credential document. A missing or undecodable row means "no
// stored credentials", not an error.
func (s *Store) Load(ctx context.Context) (*storage.StoredCredentials, error) {
	var document string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM credentials WHERE id = 1").Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds storage.StoredCredentials
	if err := json.Unmarshal([]byte(document), &creds); err != nil {
		return nil, nil
	}
	if creds.TokenInfo == nil {
		return nil, nil
	}
	return &creds, nil
}

// Save upserts the credential document
func (s *Store) Save(ctx context.Context, creds *storage.StoredCredentials) error {
	document, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, document, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, string(document), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear removes the credential document
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// LoadMappings returns all persisted device code mappings
func (s *Store) LoadMappings(ctx context.Context) (map[string]*devices.CodeMapping, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT device_id, mapping FROM device_mappings")
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]*devices.CodeMapping)
	for rows.Next() {
		var deviceID, encoded string
		if err := rows.Scan(&deviceID, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		var mapping devices.CodeMapping
		if err := json.Unmarshal([]byte(encoded), &mapping); err != nil {
			// One undecodable row should not block startup; it will be
			// rebuilt on the next discovery
			continue
		}
		mappings[deviceID] = &mapping
	}
	return mappings, rows.Err()
}

// SaveMapping upserts one device's code mapping
func (s *Store) SaveMapping(ctx context.Context, deviceID string, mapping *devices.CodeMapping) error {
	encoded, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_mappings (device_id, mapping, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET mapping = excluded.mapping, updated_at = excluded.updated_at
	`, deviceID, string(encoded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
