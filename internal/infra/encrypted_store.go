package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	storeDBName   = "appblock.db"
	schemaVersion = "1"
)

// EncryptedStore implements domain.RuleRepository and domain.DaemonRegistry
// on a SQLCipher encrypted SQLite database.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted database in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	// Verify the connection; a wrong key fails on the first schema read.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// OpenEncryptedStore loads (or generates) the key in dataDir and opens the store.
func OpenEncryptedStore(dataDir string) (*EncryptedStore, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load store key: %w", err)
	}
	return NewEncryptedStore(dataDir, key)
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rules (
		app_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		block_all_day INTEGER NOT NULL DEFAULT 0,
		start_time TEXT,
		end_time TEXT,
		enabled_days INTEGER NOT NULL DEFAULT 0,
		secret TEXT,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_active ON rules (is_active);

	CREATE TABLE IF NOT EXISTS daemon_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL,
		app_version TEXT DEFAULT '',
		listen_addr TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// --- domain.RuleRepository implementation ---

const ruleColumns = `app_id, display_name, is_active, block_all_day, start_time, end_time, enabled_days, secret, updated_at`

// Get returns the rule for appID, or domain.ErrRuleNotFound.
func (s *EncryptedStore) Get(ctx context.Context, appID string) (*domain.BlockRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE app_id = ?`, appID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule %s: %w", appID, err)
	}
	return rule, nil
}

// GetAll returns every rule ordered by app id.
func (s *EncryptedStore) GetAll(ctx context.Context) ([]domain.BlockRule, error) {
	return s.query(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY app_id`)
}

// GetActive returns rules with is_active set, ordered by app id.
func (s *EncryptedStore) GetActive(ctx context.Context) ([]domain.BlockRule, error) {
	return s.query(ctx, `SELECT `+ruleColumns+` FROM rules WHERE is_active = 1 ORDER BY app_id`)
}

// Upsert inserts or replaces a rule.
func (s *EncryptedStore) Upsert(ctx context.Context, rule domain.BlockRule) error {
	updated := rule.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.AppID, rule.DisplayName, rule.IsActive, rule.BlockAllDay,
		nullable(rule.StartTime), nullable(rule.EndTime),
		int(rule.EnabledDays), nullable(rule.Secret), updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write rule %s: %w", rule.AppID, err)
	}
	return nil
}

// Update applies the non-nil fields of update. Returns domain.ErrRuleNotFound
// when no row exists.
func (s *EncryptedStore) Update(ctx context.Context, appID string, update domain.RuleUpdate) error {
	var sets []string
	var args []any

	if update.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	if sch := update.Schedule; sch != nil {
		sets = append(sets, "start_time = ?", "end_time = ?", "block_all_day = ?", "enabled_days = ?", "secret = ?")
		args = append(args, nullable(sch.StartTime), nullable(sch.EndTime), sch.BlockAllDay, int(sch.EnabledDays), nullable(sch.Secret))
	}
	if update.Secret != nil {
		sets = append(sets, "secret = ?")
		args = append(args, nullable(*update.Secret))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UnixMilli(), appID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE rules SET `+strings.Join(sets, ", ")+` WHERE app_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", appID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", appID, err)
	}
	if rows == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule. Deleting a missing rule is not an error.
func (s *EncryptedStore) Delete(ctx context.Context, appID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE app_id = ?`, appID); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", appID, err)
	}
	return nil
}

func (s *EncryptedStore) query(ctx context.Context, q string) ([]domain.BlockRule, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.BlockRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*domain.BlockRule, error) {
	var (
		rule            domain.BlockRule
		start, end, sec sql.NullString
		days            int
		updatedAtMillis int64
	)
	err := row.Scan(&rule.AppID, &rule.DisplayName, &rule.IsActive, &rule.BlockAllDay,
		&start, &end, &days, &sec, &updatedAtMillis)
	if err != nil {
		return nil, err
	}
	rule.StartTime = start.String
	rule.EndTime = end.String
	rule.Secret = sec.String
	rule.EnabledDays = domain.DayMask(days)
	rule.UpdatedAt = time.UnixMilli(updatedAtMillis)
	return &rule, nil
}

// nullable stores "" as NULL so absent times and secrets stay absent.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- domain.DaemonRegistry implementation ---

// Register records the running daemon, replacing any previous registration.
func (s *EncryptedStore) Register(state domain.DaemonState) error {
	now := time.Now()
	if state.StartedAt.IsZero() {
		state.StartedAt = now
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO daemon_state (id, pid, started_at, last_heartbeat, app_version, listen_addr)
		VALUES (1, ?, ?, ?, ?, ?)`,
		state.PID, state.StartedAt.Unix(), now.Unix(), state.AppVersion, state.ListenAddr,
	)
	if err != nil {
		return fmt.Errorf("failed to register daemon: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates timestamp for liveness check.
func (s *EncryptedStore) UpdateHeartbeat() error {
	result, err := s.db.Exec(`UPDATE daemon_state SET last_heartbeat = ? WHERE id = 1`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("daemon not registered")
	}
	return nil
}

// GetDaemon returns the registered daemon, or nil if none.
func (s *EncryptedStore) GetDaemon() (*domain.DaemonState, error) {
	var (
		state              domain.DaemonState
		started, heartbeat int64
	)
	err := s.db.QueryRow(`
		SELECT pid, started_at, last_heartbeat, app_version, listen_addr
		FROM daemon_state WHERE id = 1`).
		Scan(&state.PID, &started, &heartbeat, &state.AppVersion, &state.ListenAddr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read daemon state: %w", err)
	}
	state.StartedAt = time.Unix(started, 0)
	state.LastHeartbeat = time.Unix(heartbeat, 0)
	return &state, nil
}

// Clear removes the daemon registration.
func (s *EncryptedStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM daemon_state`); err != nil {
		return fmt.Errorf("failed to clear daemon state: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStore implements both interfaces.
var _ domain.RuleRepository = (*EncryptedStore)(nil)
var _ domain.DaemonRegistry = (*EncryptedStore)(nil)
