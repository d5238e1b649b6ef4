package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner abstracts sql.Row and sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDocument scans a Document from a row.
func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var rawName, user sql.NullString
	err := row.Scan(&d.ID, &d.Tenant, &d.Kind, &d.Name, &rawName, &user, &d.Status, &d.Timestamp, &d.DocJSON)
	if err != nil {
		return d, err
	}
	d.RawName = rawName.String
	d.User = user.String
	return d, nil
}

// scanAuditLog scans an AuditLogData from a row.
func scanAuditLog(row rowScanner) (models.AuditLogData, error) {
	var entry models.AuditLogData
	var attributesJSON, dataJSON sql.NullString
	err := row.Scan(&entry.ID, &entry.Tenant, &entry.Actor, &entry.EntityKind, &entry.Action, &attributesJSON, &dataJSON, &entry.Timestamp)
	if err != nil {
		return entry, fmt.Errorf("scan audit log failed: %w", err)
	}
	if attributesJSON.Valid {
		if err := json.Unmarshal([]byte(attributesJSON.String), &entry.Attributes); err != nil {
			return entry, fmt.Errorf("decode audit attributes failed: %w", err)
		}
	}
	if dataJSON.Valid {
		if err := json.Unmarshal([]byte(dataJSON.String), &entry.Data); err != nil {
			return entry, fmt.Errorf("decode audit data failed: %w", err)
		}
	}
	return entry, nil
}

// scanImporterLog scans an ImporterLog from a row.
func scanImporterLog(row rowScanner) (models.ImporterLog, error) {
	var log models.ImporterLog
	var user, mode, filesJSON, reportJSON, status, exception sql.NullString
	var endTimestamp sql.NullTime
	err := row.Scan(
		&log.ID, &log.Tenant, &user, &log.ReferenceID, &mode, &filesJSON, &reportJSON,
		&log.IsDataUploaded, &log.EventStatus, &status, &log.StartTimestamp, &endTimestamp, &exception,
	)
	if err != nil {
		return log, fmt.Errorf("scan importer log failed: %w", err)
	}
	log.User = user.String
	log.Mode = models.ImportMode(mode.String)
	log.Status = models.ImportStatus(status.String)
	log.Exception = exception.String
	if filesJSON.Valid {
		if err := json.Unmarshal([]byte(filesJSON.String), &log.FilesReceived); err != nil {
			return log, fmt.Errorf("decode importer files failed: %w", err)
		}
	}
	if reportJSON.Valid {
		if err := json.Unmarshal([]byte(reportJSON.String), &log.Report); err != nil {
			return log, fmt.Errorf("decode importer report failed: %w", err)
		}
	}
	if endTimestamp.Valid {
		t := endTimestamp.Time
		log.EndTimestamp = &t
	}
	return log, nil
}

// encodeImporterLog marshals the JSON columns of an importer log.
func encodeImporterLog(log *models.ImporterLog) (filesJSON, reportJSON string, err error) {
	files, err := json.Marshal(log.FilesReceived)
	if err != nil {
		return "", "", fmt.Errorf("encode importer files failed: %w", err)
	}
	report, err := json.Marshal(log.Report)
	if err != nil {
		return "", "", fmt.Errorf("encode importer report failed: %w", err)
	}
	return string(files), string(report), nil
}

// encodeAuditLog marshals the JSON columns of an audit row.
func encodeAuditLog(entry *models.AuditLogData) (attributesJSON, dataJSON string, err error) {
	attributes, err := json.Marshal(entry.Attributes)
	if err != nil {
		return "", "", fmt.Errorf("encode audit attributes failed: %w", err)
	}
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return "", "", fmt.Errorf("encode audit data failed: %w", err)
	}
	return string(attributes), string(data), nil
}

// normalizeEnd clamps a zero end-of-range to now so callers may pass the zero
// value for an open range.
func normalizeEnd(to time.Time) time.Time {
	if to.IsZero() {
		return time.Now()
	}
	return to
}
