// Package audit records who changed what on a bot's training data.
//
// Every mutation that goes through the dataset layer emits one audit entry:
// the acting user, the entity kind, the action taken and a JSON snapshot of
// the document involved. Lifecycle events that are not tied to a single
// document (imports, exports, tenant deletion) are recorded as ACTIVITY
// entries.
package audit

import (
	"log/slog"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

// Recorder writes audit entries through a Store. A failed audit write is
// logged but never fails the mutation that triggered it.
type Recorder struct {
	store store.Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(s store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes one audit entry for a document mutation.
func (r *Recorder) Record(tenant, actor string, kind models.ArtifactKind, action models.AuditAction, data map[string]any) {
	entry := models.AuditLogData{
		Tenant:     tenant,
		Actor:      actor,
		EntityKind: string(kind),
		Action:     action,
		Attributes: []models.AuditAttribute{{Key: "bot", Value: tenant}},
		Data:       data,
		Timestamp:  time.Now(),
	}
	if err := r.store.AddAuditLog(entry); err != nil {
		slog.Error("Recorder.Record: failed to persist audit entry", "error", err, "tenant", tenant, "kind", kind, "action", action)
	}
}

// RecordActivity writes an ACTIVITY entry for a lifecycle event such as an
// import run or a data export. The message lands under the "message" key of
// the entry data.
func (r *Recorder) RecordActivity(tenant, actor, message string, detail map[string]any) {
	data := map[string]any{"message": message}
	for k, v := range detail {
		data[k] = v
	}
	entry := models.AuditLogData{
		Tenant:     tenant,
		Actor:      actor,
		EntityKind: "activity",
		Action:     models.AuditActivity,
		Attributes: []models.AuditAttribute{{Key: "bot", Value: tenant}},
		Data:       data,
		Timestamp:  time.Now(),
	}
	if err := r.store.AddAuditLog(entry); err != nil {
		slog.Error("Recorder.RecordActivity: failed to persist audit entry", "error", err, "tenant", tenant, "message", message)
	}
}

// List returns audit entries for a tenant inside [from, to]. A zero "to"
// means now.
func (r *Recorder) List(tenant string, from, to time.Time) ([]models.AuditLogData, error) {
	return r.store.ListAuditLogs(tenant, from, to)
}

// ListByActor returns audit entries produced by one user across all tenants
// inside [from, to].
func (r *Recorder) ListByActor(actor string, from, to time.Time) ([]models.AuditLogData, error) {
	return r.store.ListAuditLogsByActor(actor, from, to)
}
