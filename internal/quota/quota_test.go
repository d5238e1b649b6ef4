package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

func TestSettingsFallback(t *testing.T) {
	g := NewGate(store.NewInMemoryStore())

	settings, err := g.Settings("bot1")
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if settings.DataImporterLimitPerDay != 5 {
		t.Errorf("Settings() importer limit = %d, want default 5", settings.DataImporterLimitPerDay)
	}
}

func TestCheckImporterLimit(t *testing.T) {
	s := store.NewInMemoryStore()
	settings := models.DefaultBotSettings("bot1")
	settings.DataImporterLimitPerDay = 2
	if err := s.SaveBotSettings(settings); err != nil {
		t.Fatalf("SaveBotSettings() error = %v", err)
	}
	g := NewGate(s)

	if err := g.CheckImporterLimit("bot1"); err != nil {
		t.Fatalf("CheckImporterLimit() with no runs error = %v", err)
	}

	// Two runs inside the rolling window exhaust the limit.
	for _, ref := range []string{"ref-1", "ref-2"} {
		log := &models.ImporterLog{
			Tenant:         "bot1",
			ReferenceID:    ref,
			Mode:           models.ImportOverwrite,
			EventStatus:    models.EventCompleted,
			StartTimestamp: time.Now().Add(-time.Hour),
		}
		if _, err := s.SaveImporterLog(log); err != nil {
			t.Fatalf("SaveImporterLog() error = %v", err)
		}
	}

	err := g.CheckImporterLimit("bot1")
	var limitErr *models.DailyLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("CheckImporterLimit() error = %v, want DailyLimitExceededError", err)
	}
	if limitErr.Limit != 2 {
		t.Errorf("CheckImporterLimit() limit = %d, want 2", limitErr.Limit)
	}
}

func TestImporterLimitRollingWindow(t *testing.T) {
	s := store.NewInMemoryStore()
	settings := models.DefaultBotSettings("bot1")
	settings.DataImporterLimitPerDay = 1
	if err := s.SaveBotSettings(settings); err != nil {
		t.Fatalf("SaveBotSettings() error = %v", err)
	}
	g := NewGate(s)

	// A run older than 24 hours does not count.
	log := &models.ImporterLog{
		Tenant:         "bot1",
		ReferenceID:    "old",
		Mode:           models.ImportOverwrite,
		EventStatus:    models.EventCompleted,
		StartTimestamp: time.Now().Add(-25 * time.Hour),
	}
	if _, err := s.SaveImporterLog(log); err != nil {
		t.Fatalf("SaveImporterLog() error = %v", err)
	}

	if err := g.CheckImporterLimit("bot1"); err != nil {
		t.Errorf("CheckImporterLimit() error = %v, old run should not count", err)
	}
}

func TestStructuralLimits(t *testing.T) {
	s := store.NewInMemoryStore()
	settings := models.DefaultBotSettings("bot1")
	settings.CognitionCollectionsLimit = 2
	settings.CognitionColumnsPerCollectionLimit = 3
	if err := s.SaveBotSettings(settings); err != nil {
		t.Fatalf("SaveBotSettings() error = %v", err)
	}
	g := NewGate(s)

	if err := g.CheckCollectionLimit("bot1", 1); err != nil {
		t.Errorf("CheckCollectionLimit(1) error = %v", err)
	}
	var limitErr *models.DailyLimitExceededError
	if err := g.CheckCollectionLimit("bot1", 2); !errors.As(err, &limitErr) {
		t.Errorf("CheckCollectionLimit(2) error = %v, want DailyLimitExceededError", err)
	}

	if err := g.CheckColumnLimit("bot1", 3); err != nil {
		t.Errorf("CheckColumnLimit(3) error = %v", err)
	}
	if err := g.CheckColumnLimit("bot1", 4); !errors.As(err, &limitErr) {
		t.Errorf("CheckColumnLimit(4) error = %v, want DailyLimitExceededError", err)
	}
}
