package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Store is a SQLite-backed driven.ResultCache.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ driven.ResultCache = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ksef-desk/data/results.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ksef-desk", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "results.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_result_cache.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		logger.Debug("Applied migration %s", name)
	}

	return nil
}

// Load returns the cached row for identityKey, or nil on a miss.
// Rows that fail to decode are logged and reported as a miss.
func (s *Store) Load(ctx context.Context, identityKey string) (*domain.CachedResults, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT query, items, fetched_at FROM result_cache WHERE identity_key = ?
	`, identityKey)

	var queryJSON sql.NullString
	var itemsJSON string
	var fetchedAt sql.NullTime
	if err := row.Scan(&queryJSON, &itemsJSON, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning cached results: %w", err)
	}

	res := &domain.CachedResults{IdentityKey: identityKey}
	if err := json.Unmarshal([]byte(itemsJSON), &res.Items); err != nil {
		logger.Warn("Ignoring corrupt cached results for %s: %v", identityKey, err)
		return nil, nil
	}
	if queryJSON.Valid && queryJSON.String != "" {
		var q domain.SearchQuery
		if err := json.Unmarshal([]byte(queryJSON.String), &q); err != nil {
			logger.Warn("Ignoring corrupt cached query for %s: %v", identityKey, err)
			return nil, nil
		}
		res.Query = &q
	}
	if fetchedAt.Valid {
		res.FetchedAt = fetchedAt.Time
	}
	return res, nil
}

// Save upserts the full row, query included.
func (s *Store) Save(ctx context.Context, identityKey string, query domain.SearchQuery, items []domain.InvoiceSummary) error {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("marshalling query: %w", err)
	}
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO result_cache (identity_key, query, items, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			query = excluded.query,
			items = excluded.items,
			fetched_at = excluded.fetched_at
	`, identityKey, string(queryJSON), itemsJSON, s.now().UTC())
	if err != nil {
		return fmt.Errorf("saving cached results: %w", err)
	}
	return nil
}

// SaveItemsOnly replaces items and timestamp of an existing row and leaves
// the stored query untouched. Without a row it updates nothing.
func (s *Store) SaveItemsOnly(ctx context.Context, identityKey string, items []domain.InvoiceSummary) error {
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE result_cache SET items = ?, fetched_at = ? WHERE identity_key = ?
	`, itemsJSON, s.now().UTC(), identityKey)
	if err != nil {
		return fmt.Errorf("updating cached results: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logger.Debug("No cached results for %s, refresh not stored", identityKey)
	}
	return nil
}

func marshalItems(items []domain.InvoiceSummary) (string, error) {
	if items == nil {
		items = []domain.InvoiceSummary{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshalling items: %w", err)
	}
	return string(data), nil
}
