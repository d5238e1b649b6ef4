// Package store provides storage backends for the kairon training data core.
//
// Every artifact persists as a Document keyed by (tenant, kind, canonical
// name); audit rows, importer logs, bot settings and event locks live in
// dedicated tables. Backends: in-memory (tests), SQLite and PostgreSQL.
package store

import (
	"strings"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
)

// Document is the persisted form of one artifact. DocJSON carries the typed
// entity serialized as JSON; Name is the canonical (lowercase) name and
// RawName preserves the casing supplied by the user for display.
type Document struct {
	ID        string              `json:"id"`
	Tenant    string              `json:"bot"`
	Kind      models.ArtifactKind `json:"kind"`
	Name      string              `json:"name"`
	RawName   string              `json:"raw_name"`
	User      string              `json:"user"`
	Status    bool                `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	DocJSON   string              `json:"doc"`
}

// Store defines the persistence interface shared by all backends.
type Store interface {
	// SaveDocument inserts a new active document. It fails with
	// AlreadyExistsError when an active document with the same
	// (tenant, kind, name) key exists.
	SaveDocument(doc Document) (string, error)

	// UpdateDocument replaces the payload of an active document looked up
	// by (tenant, kind, name).
	UpdateDocument(doc Document) error

	// GetDocument returns the active document for the key, or ErrNotFound.
	GetDocument(tenant string, kind models.ArtifactKind, name string) (*Document, error)

	// ListDocuments returns all active documents of a kind for a tenant.
	ListDocuments(tenant string, kind models.ArtifactKind) ([]Document, error)

	// SoftDeleteDocument flips the status of an active document.
	SoftDeleteDocument(tenant string, kind models.ArtifactKind, name, user string) error

	// SoftDeleteKind flips the status of every active document of a kind.
	// Used by OVERWRITE imports. Returns the number of documents affected.
	SoftDeleteKind(tenant string, kind models.ArtifactKind, user string) (int, error)

	// DeleteTenant hard-deletes every record of a tenant. Reserved for
	// tenant teardown.
	DeleteTenant(tenant string) error

	// AddAuditLog appends one audit row. The audit trail is append-only.
	AddAuditLog(entry models.AuditLogData) error

	// ListAuditLogs returns audit rows for a tenant within a time range.
	ListAuditLogs(tenant string, from, to time.Time) ([]models.AuditLogData, error)

	// ListAuditLogsByActor returns audit rows recorded for one actor.
	ListAuditLogsByActor(actor string, from, to time.Time) ([]models.AuditLogData, error)

	// SaveImporterLog inserts a new importer log and returns its ID.
	SaveImporterLog(log *models.ImporterLog) (string, error)

	// UpdateImporterLog replaces an importer log looked up by reference ID.
	UpdateImporterLog(log *models.ImporterLog) error

	// GetImporterLog returns the importer log with the given reference ID.
	GetImporterLog(tenant, referenceID string) (*models.ImporterLog, error)

	// ListImporterLogs returns the most recent importer logs for a tenant,
	// newest first.
	ListImporterLogs(tenant string, limit int) ([]models.ImporterLog, error)

	// CountImporterRunsSince counts importer runs started at or after the
	// given instant. Used by the quota gate's rolling 24-hour window.
	CountImporterRunsSince(tenant string, since time.Time) (int, error)

	// GetBotSettings returns the settings document for a tenant, or
	// ErrNotFound when none has been seeded.
	GetBotSettings(tenant string) (*models.BotSettings, error)

	// SaveBotSettings inserts or replaces the settings document.
	SaveBotSettings(settings models.BotSettings) error

	// AcquireEventLock takes the named per-tenant lock for an operation
	// class. It fails with EventAlreadyInProgressError while held.
	AcquireEventLock(tenant, class string) error

	// ReleaseEventLock releases a lock taken with AcquireEventLock.
	ReleaseEventLock(tenant, class string) error

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
