package audit

import (
	"testing"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

func TestRecord(t *testing.T) {
	s := store.NewInMemoryStore()
	r := NewRecorder(s)

	r.Record("bot1", "alice", models.KindIntent, models.AuditSave, map[string]any{"name": "greet"})

	logs, err := r.List("bot1", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(logs))
	}
	entry := logs[0]
	if entry.Action != models.AuditSave {
		t.Errorf("entry action = %q, want SAVE", entry.Action)
	}
	if entry.EntityKind != string(models.KindIntent) {
		t.Errorf("entry kind = %q", entry.EntityKind)
	}
	if len(entry.Attributes) != 1 || entry.Attributes[0].Key != "bot" || entry.Attributes[0].Value != "bot1" {
		t.Errorf("entry attributes = %+v", entry.Attributes)
	}
	if entry.Data["name"] != "greet" {
		t.Errorf("entry data = %+v", entry.Data)
	}
}

func TestRecordActivity(t *testing.T) {
	s := store.NewInMemoryStore()
	r := NewRecorder(s)

	r.RecordActivity("bot1", "alice", "data export", map[string]any{"reference_id": "ref-1"})

	logs, err := r.ListByActor("alice", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListByActor() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("ListByActor() returned %d entries, want 1", len(logs))
	}
	entry := logs[0]
	if entry.Action != models.AuditActivity {
		t.Errorf("entry action = %q, want ACTIVITY", entry.Action)
	}
	if entry.Data["message"] != "data export" {
		t.Errorf("entry message = %v", entry.Data["message"])
	}
	if entry.Data["reference_id"] != "ref-1" {
		t.Errorf("entry detail = %+v", entry.Data)
	}
}
