package models

import "time"

// AuditAction classifies a mutation recorded in the audit trail.
type AuditAction string

const (
	AuditSave       AuditAction = "SAVE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditSoftDelete AuditAction = "SOFT_DELETE"
	AuditActivity   AuditAction = "ACTIVITY"
)

// IsValidAuditAction checks if the given audit action is supported.
func IsValidAuditAction(a AuditAction) bool {
	switch a {
	case AuditSave, AuditUpdate, AuditSoftDelete, AuditActivity:
		return true
	default:
		return false
	}
}

// AuditAttribute is a key/value pair attached to an audit row.
type AuditAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AuditLogData is one append-only audit row emitted for every mutation of a
// core entity, and for ACTIVITY events such as model reload or invalid login.
type AuditLogData struct {
	ID         string           `json:"id"`
	Tenant     string           `json:"bot"`
	Actor      string           `json:"user"`
	EntityKind string           `json:"entity"`
	Action     AuditAction      `json:"action"`
	Attributes []AuditAttribute `json:"attributes"`
	Data       map[string]any   `json:"data,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
