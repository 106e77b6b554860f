package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Well-known namespaces and keys.
const (
	// Namespace is the namespace holding device provisioning settings.
	Namespace = "SETTINGS"

	// KeyWiFiSSID is the uplink network name.
	KeyWiFiSSID = "WIFI_SSID"

	// KeyWiFiPass is the uplink password.
	KeyWiFiPass = "WIFI_PASS"

	// KeyMQTTURL is the broker URL, scheme included.
	KeyMQTTURL = "MQTT_URL"
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the store directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the store file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying store connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute
)

// Store wraps a sql.DB connection holding the settings table.
// It provides migration support, health checks, and proper lifecycle management.
type Store struct {
	db   *sql.DB
	path string
}

// Config contains settings-store configuration options.
// These map to the settings section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Open creates a new settings store with the specified configuration.
//
// It performs the following setup:
//  1. Creates the store directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Sets file permissions (0600) since the store holds credentials
//  5. Verifies the connection with a ping
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: Store configuration
//
// Returns:
//   - *Store: Opened store
//   - error: If connection or configuration fails
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}

	// Build connection string with pragmas
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening settings store: %w", err)
	}

	// SQLite works best with a single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	s := &Store{
		db:   sqlDB,
		path: cfg.Path,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying settings store: %w", err)
	}

	// Credentials live here, so keep the file owner-only.
	// Ignore error - file might not exist yet on first run.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // First run creates file later

	return s, nil
}

// Close closes the store connection gracefully.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing settings store: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the store file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under namespace/key.
//
// Returns:
//   - string: The stored value
//   - error: ErrKeyNotFound if the pair does not exist, or a query error
func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrKeyNotFound, namespace, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// Set stores a value under namespace/key, replacing any existing value.
func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, namespace, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing setting %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes the value stored under namespace/key.
// Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM settings WHERE namespace = ? AND key = ?",
		namespace, key,
	)
	if err != nil {
		return fmt.Errorf("deleting setting %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns all keys in a namespace. Values are omitted so that the
// result can be logged without leaking credentials.
func (s *Store) List(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM settings WHERE namespace = ? ORDER BY key",
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("listing settings in %s: %w", namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning settings row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return keys, nil
}

// HealthCheck verifies the store is accessible and functioning.
func (s *Store) HealthCheck(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("settings store health check failed: %w", err)
	}
	return nil
}
