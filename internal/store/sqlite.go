// Package store: SQLite-backed persistence for the training data core.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/util"
	"github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the file-backed store used when no PostgreSQL DSN is
// configured.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore: migrations applied", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveDocument(doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = util.GenerateDocumentID()
	}
	doc.Name = models.CanonicalName(doc.Name)
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO documents (id, tenant, kind, name, raw_name, user, status, timestamp, doc_json)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		doc.ID, doc.Tenant, doc.Kind, doc.Name, nilIfEmpty(doc.RawName), nilIfEmpty(doc.User), doc.Timestamp, doc.DocJSON,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", &models.AlreadyExistsError{Name: doc.Name, Kind: doc.Kind}
		}
		return "", fmt.Errorf("save document failed: %w", err)
	}
	slog.Debug("SQLiteStore.SaveDocument", "tenant", doc.Tenant, "kind", doc.Kind, "name", doc.Name)
	return doc.ID, nil
}

func (s *SQLiteStore) UpdateDocument(doc Document) error {
	doc.Name = models.CanonicalName(doc.Name)
	result, err := s.db.Exec(
		`UPDATE documents SET doc_json = ?, raw_name = ?, user = ?, timestamp = ?
		 WHERE tenant = ? AND kind = ? AND name = ? AND status = 1`,
		doc.DocJSON, nilIfEmpty(doc.RawName), nilIfEmpty(doc.User), time.Now(),
		doc.Tenant, doc.Kind, doc.Name,
	)
	if err != nil {
		return fmt.Errorf("update document failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("update %s %q: %w", doc.Kind, doc.Name, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(tenant string, kind models.ArtifactKind, name string) (*Document, error) {
	row := s.db.QueryRow(
		`SELECT id, tenant, kind, name, raw_name, user, status, timestamp, doc_json
		 FROM documents WHERE tenant = ? AND kind = ? AND name = ? AND status = 1`,
		tenant, kind, models.CanonicalName(name),
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %q: %w", kind, name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (s *SQLiteStore) ListDocuments(tenant string, kind models.ArtifactKind) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, tenant, kind, name, raw_name, user, status, timestamp, doc_json
		 FROM documents WHERE tenant = ? AND kind = ? AND status = 1 ORDER BY name ASC`,
		tenant, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents query failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document failed: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents iteration failed: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) SoftDeleteDocument(tenant string, kind models.ArtifactKind, name, user string) error {
	result, err := s.db.Exec(
		`UPDATE documents SET status = 0, user = ?, timestamp = ?
		 WHERE tenant = ? AND kind = ? AND name = ? AND status = 1`,
		nilIfEmpty(user), time.Now(), tenant, kind, models.CanonicalName(name),
	)
	if err != nil {
		return fmt.Errorf("soft delete document failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("delete %s %q: %w", kind, name, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SoftDeleteKind(tenant string, kind models.ArtifactKind, user string) (int, error) {
	result, err := s.db.Exec(
		`UPDATE documents SET status = 0, user = ?, timestamp = ?
		 WHERE tenant = ? AND kind = ? AND status = 1`,
		nilIfEmpty(user), time.Now(), tenant, kind,
	)
	if err != nil {
		return 0, fmt.Errorf("soft delete kind failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (s *SQLiteStore) DeleteTenant(tenant string) error {
	for _, stmt := range []string{
		`DELETE FROM documents WHERE tenant = ?`,
		`DELETE FROM audit_logs WHERE tenant = ?`,
		`DELETE FROM importer_logs WHERE tenant = ?`,
		`DELETE FROM bot_settings WHERE tenant = ?`,
		`DELETE FROM event_locks WHERE tenant = ?`,
	} {
		if _, err := s.db.Exec(stmt, tenant); err != nil {
			return fmt.Errorf("delete tenant failed: %w", err)
		}
	}
	slog.Info("SQLiteStore.DeleteTenant: tenant data removed", "tenant", tenant)
	return nil
}

func (s *SQLiteStore) AddAuditLog(entry models.AuditLogData) error {
	if entry.ID == "" {
		entry.ID = util.GenerateAuditID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	attributesJSON, dataJSON, err := encodeAuditLog(&entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_logs (id, tenant, actor, entity_kind, action, attributes_json, data_json, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Tenant, entry.Actor, entry.EntityKind, entry.Action, attributesJSON, dataJSON, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("add audit log failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuditLogs(tenant string, from, to time.Time) ([]models.AuditLogData, error) {
	return s.queryAuditLogs(
		`SELECT id, tenant, actor, entity_kind, action, attributes_json, data_json, timestamp
		 FROM audit_logs WHERE tenant = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC`,
		tenant, from, normalizeEnd(to),
	)
}

func (s *SQLiteStore) ListAuditLogsByActor(actor string, from, to time.Time) ([]models.AuditLogData, error) {
	return s.queryAuditLogs(
		`SELECT id, tenant, actor, entity_kind, action, attributes_json, data_json, timestamp
		 FROM audit_logs WHERE actor = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC`,
		actor, from, normalizeEnd(to),
	)
}

func (s *SQLiteStore) queryAuditLogs(query string, args ...interface{}) ([]models.AuditLogData, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit log query failed: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLogData
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit log iteration failed: %w", err)
	}
	return logs, nil
}

func (s *SQLiteStore) SaveImporterLog(log *models.ImporterLog) (string, error) {
	if log.ID == "" {
		log.ID = util.GenerateImportID()
	}
	filesJSON, reportJSON, err := encodeImporterLog(log)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO importer_logs (id, tenant, user, reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Tenant, nilIfEmpty(log.User), log.ReferenceID, string(log.Mode), filesJSON, reportJSON,
		log.IsDataUploaded, log.EventStatus, nilIfEmpty(string(log.Status)), log.StartTimestamp, log.EndTimestamp, nilIfEmpty(log.Exception),
	)
	if err != nil {
		return "", fmt.Errorf("save importer log failed: %w", err)
	}
	return log.ID, nil
}

func (s *SQLiteStore) UpdateImporterLog(log *models.ImporterLog) error {
	filesJSON, reportJSON, err := encodeImporterLog(log)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(
		`UPDATE importer_logs SET mode = ?, files_json = ?, report_json = ?, is_data_uploaded = ?, event_status = ?, status = ?, end_timestamp = ?, exception = ?
		 WHERE tenant = ? AND reference_id = ?`,
		string(log.Mode), filesJSON, reportJSON, log.IsDataUploaded, log.EventStatus,
		nilIfEmpty(string(log.Status)), log.EndTimestamp, nilIfEmpty(log.Exception),
		log.Tenant, log.ReferenceID,
	)
	if err != nil {
		return fmt.Errorf("update importer log failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("importer log %q: %w", log.ReferenceID, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetImporterLog(tenant, referenceID string) (*models.ImporterLog, error) {
	row := s.db.QueryRow(
		`SELECT id, tenant, user, reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception
		 FROM importer_logs WHERE tenant = ? AND reference_id = ?`,
		tenant, referenceID,
	)
	log, err := scanImporterLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("importer log %q: %w", referenceID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *SQLiteStore) ListImporterLogs(tenant string, limit int) ([]models.ImporterLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, tenant, user, reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception
		 FROM importer_logs WHERE tenant = ? ORDER BY start_timestamp DESC LIMIT ?`,
		tenant, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list importer logs query failed: %w", err)
	}
	defer rows.Close()

	var logs []models.ImporterLog
	for rows.Next() {
		log, err := scanImporterLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list importer logs iteration failed: %w", err)
	}
	return logs, nil
}

func (s *SQLiteStore) CountImporterRunsSince(tenant string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM importer_logs WHERE tenant = ? AND start_timestamp >= ?`,
		tenant, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count importer runs failed: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) GetBotSettings(tenant string) (*models.BotSettings, error) {
	var settingsJSON string
	err := s.db.QueryRow(`SELECT settings_json FROM bot_settings WHERE tenant = ?`, tenant).Scan(&settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bot settings for %q: %w", tenant, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get bot settings failed: %w", err)
	}
	var settings models.BotSettings
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return nil, fmt.Errorf("decode bot settings failed: %w", err)
	}
	return &settings, nil
}

func (s *SQLiteStore) SaveBotSettings(settings models.BotSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode bot settings failed: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO bot_settings (tenant, settings_json) VALUES (?, ?)
		 ON CONFLICT(tenant) DO UPDATE SET settings_json = excluded.settings_json`,
		settings.Tenant, string(settingsJSON),
	)
	if err != nil {
		return fmt.Errorf("save bot settings failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AcquireEventLock(tenant, class string) error {
	_, err := s.db.Exec(
		`INSERT INTO event_locks (tenant, class, acquired_at) VALUES (?, ?, ?)`,
		tenant, class, time.Now(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return &models.EventAlreadyInProgressError{Tenant: tenant, Class: class}
		}
		return fmt.Errorf("acquire event lock failed: %w", err)
	}
	slog.Debug("SQLiteStore.AcquireEventLock", "tenant", tenant, "class", class)
	return nil
}

func (s *SQLiteStore) ReleaseEventLock(tenant, class string) error {
	if _, err := s.db.Exec(`DELETE FROM event_locks WHERE tenant = ? AND class = ?`, tenant, class); err != nil {
		return fmt.Errorf("release event lock failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
