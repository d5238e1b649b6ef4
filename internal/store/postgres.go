package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/util"
	"github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the production store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique or primary
// key constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PostgresStore) SaveDocument(doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = util.GenerateDocumentID()
	}
	doc.Name = models.CanonicalName(doc.Name)
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO documents (id, tenant, kind, name, raw_name, "user", status, timestamp, doc_json)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`,
		doc.ID, doc.Tenant, doc.Kind, doc.Name, nilIfEmpty(doc.RawName), nilIfEmpty(doc.User), doc.Timestamp, doc.DocJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", &models.AlreadyExistsError{Name: doc.Name, Kind: doc.Kind}
		}
		return "", fmt.Errorf("save document failed: %w", err)
	}
	slog.Debug("PostgresStore.SaveDocument", "tenant", doc.Tenant, "kind", doc.Kind, "name", doc.Name)
	return doc.ID, nil
}

func (s *PostgresStore) UpdateDocument(doc Document) error {
	doc.Name = models.CanonicalName(doc.Name)
	result, err := s.db.Exec(
		`UPDATE documents SET doc_json = $1, raw_name = $2, "user" = $3, timestamp = $4
		 WHERE tenant = $5 AND kind = $6 AND name = $7 AND status = TRUE`,
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

func (s *PostgresStore) GetDocument(tenant string, kind models.ArtifactKind, name string) (*Document, error) {
	row := s.db.QueryRow(
		`SELECT id, tenant, kind, name, raw_name, "user", status, timestamp, doc_json
		 FROM documents WHERE tenant = $1 AND kind = $2 AND name = $3 AND status = TRUE`,
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

func (s *PostgresStore) ListDocuments(tenant string, kind models.ArtifactKind) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, tenant, kind, name, raw_name, "user", status, timestamp, doc_json
		 FROM documents WHERE tenant = $1 AND kind = $2 AND status = TRUE ORDER BY name ASC`,
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

func (s *PostgresStore) SoftDeleteDocument(tenant string, kind models.ArtifactKind, name, user string) error {
	result, err := s.db.Exec(
		`UPDATE documents SET status = FALSE, "user" = $1, timestamp = $2
		 WHERE tenant = $3 AND kind = $4 AND name = $5 AND status = TRUE`,
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

func (s *PostgresStore) SoftDeleteKind(tenant string, kind models.ArtifactKind, user string) (int, error) {
	result, err := s.db.Exec(
		`UPDATE documents SET status = FALSE, "user" = $1, timestamp = $2
		 WHERE tenant = $3 AND kind = $4 AND status = TRUE`,
		nilIfEmpty(user), time.Now(), tenant, kind,
	)
	if err != nil {
		return 0, fmt.Errorf("soft delete kind failed: %w", err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (s *PostgresStore) DeleteTenant(tenant string) error {
	for _, stmt := range []string{
		`DELETE FROM documents WHERE tenant = $1`,
		`DELETE FROM audit_logs WHERE tenant = $1`,
		`DELETE FROM importer_logs WHERE tenant = $1`,
		`DELETE FROM bot_settings WHERE tenant = $1`,
		`DELETE FROM event_locks WHERE tenant = $1`,
	} {
		if _, err := s.db.Exec(stmt, tenant); err != nil {
			return fmt.Errorf("delete tenant failed: %w", err)
		}
	}
	slog.Info("PostgresStore.DeleteTenant: tenant data removed", "tenant", tenant)
	return nil
}

func (s *PostgresStore) AddAuditLog(entry models.AuditLogData) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Tenant, entry.Actor, entry.EntityKind, entry.Action, attributesJSON, dataJSON, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("add audit log failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditLogs(tenant string, from, to time.Time) ([]models.AuditLogData, error) {
	return s.queryAuditLogs(
		`SELECT id, tenant, actor, entity_kind, action, attributes_json, data_json, timestamp
		 FROM audit_logs WHERE tenant = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp DESC`,
		tenant, from, normalizeEnd(to),
	)
}

func (s *PostgresStore) ListAuditLogsByActor(actor string, from, to time.Time) ([]models.AuditLogData, error) {
	return s.queryAuditLogs(
		`SELECT id, tenant, actor, entity_kind, action, attributes_json, data_json, timestamp
		 FROM audit_logs WHERE actor = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp DESC`,
		actor, from, normalizeEnd(to),
	)
}

func (s *PostgresStore) queryAuditLogs(query string, args ...interface{}) ([]models.AuditLogData, error) {
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

func (s *PostgresStore) SaveImporterLog(log *models.ImporterLog) (string, error) {
	if log.ID == "" {
		log.ID = util.GenerateImportID()
	}
	filesJSON, reportJSON, err := encodeImporterLog(log)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO importer_logs (id, tenant, "user", reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		log.ID, log.Tenant, nilIfEmpty(log.User), log.ReferenceID, string(log.Mode), filesJSON, reportJSON,
		log.IsDataUploaded, log.EventStatus, nilIfEmpty(string(log.Status)), log.StartTimestamp, log.EndTimestamp, nilIfEmpty(log.Exception),
	)
	if err != nil {
		return "", fmt.Errorf("save importer log failed: %w", err)
	}
	return log.ID, nil
}

func (s *PostgresStore) UpdateImporterLog(log *models.ImporterLog) error {
	filesJSON, reportJSON, err := encodeImporterLog(log)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(
		`UPDATE importer_logs SET mode = $1, files_json = $2, report_json = $3, is_data_uploaded = $4, event_status = $5, status = $6, end_timestamp = $7, exception = $8
		 WHERE tenant = $9 AND reference_id = $10`,
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

func (s *PostgresStore) GetImporterLog(tenant, referenceID string) (*models.ImporterLog, error) {
	row := s.db.QueryRow(
		`SELECT id, tenant, "user", reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception
		 FROM importer_logs WHERE tenant = $1 AND reference_id = $2`,
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

func (s *PostgresStore) ListImporterLogs(tenant string, limit int) ([]models.ImporterLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, tenant, "user", reference_id, mode, files_json, report_json, is_data_uploaded, event_status, status, start_timestamp, end_timestamp, exception
		 FROM importer_logs WHERE tenant = $1 ORDER BY start_timestamp DESC LIMIT $2`,
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

func (s *PostgresStore) CountImporterRunsSince(tenant string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM importer_logs WHERE tenant = $1 AND start_timestamp >= $2`,
		tenant, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count importer runs failed: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetBotSettings(tenant string) (*models.BotSettings, error) {
	var settingsJSON string
	err := s.db.QueryRow(`SELECT settings_json FROM bot_settings WHERE tenant = $1`, tenant).Scan(&settingsJSON)
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

func (s *PostgresStore) SaveBotSettings(settings models.BotSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode bot settings failed: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO bot_settings (tenant, settings_json) VALUES ($1, $2)
		 ON CONFLICT (tenant) DO UPDATE SET settings_json = EXCLUDED.settings_json`,
		settings.Tenant, string(settingsJSON),
	)
	if err != nil {
		return fmt.Errorf("save bot settings failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) AcquireEventLock(tenant, class string) error {
	_, err := s.db.Exec(
		`INSERT INTO event_locks (tenant, class, acquired_at) VALUES ($1, $2, $3)`,
		tenant, class, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.EventAlreadyInProgressError{Tenant: tenant, Class: class}
		}
		return fmt.Errorf("acquire event lock failed: %w", err)
	}
	slog.Debug("PostgresStore.AcquireEventLock", "tenant", tenant, "class", class)
	return nil
}

func (s *PostgresStore) ReleaseEventLock(tenant, class string) error {
	if _, err := s.db.Exec(`DELETE FROM event_locks WHERE tenant = $1 AND class = $2`, tenant, class); err != nil {
		return fmt.Errorf("release event lock failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
