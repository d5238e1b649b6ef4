// Package quota enforces per-tenant daily and structural limits.
package quota

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

// Gate answers whether a tenant may start a quota-bound operation. Limits
// come from the tenant's BotSettings document; tenants without one fall back
// to the defaults.
type Gate struct {
	store store.Store
}

// NewGate creates a Gate backed by the given store.
func NewGate(s store.Store) *Gate {
	return &Gate{store: s}
}

// Settings returns the tenant's settings, falling back to the defaults when
// none were saved yet.
func (g *Gate) Settings(tenant string) (models.BotSettings, error) {
	settings, err := g.store.GetBotSettings(tenant)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultBotSettings(tenant), nil
	}
	if err != nil {
		return models.BotSettings{}, fmt.Errorf("load settings for %q: %w", tenant, err)
	}
	return *settings, nil
}

// CheckImporterLimit verifies that the tenant has not exhausted its daily
// import allowance. The window is rolling: runs started in the last 24 hours
// count, regardless of calendar day.
func (g *Gate) CheckImporterLimit(tenant string) error {
	settings, err := g.Settings(tenant)
	if err != nil {
		return err
	}
	runs, err := g.store.CountImporterRunsSince(tenant, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("count importer runs for %q: %w", tenant, err)
	}
	if runs >= settings.DataImporterLimitPerDay {
		slog.Info("Gate.CheckImporterLimit: daily limit reached", "tenant", tenant, "runs", runs, "limit", settings.DataImporterLimitPerDay)
		return &models.DailyLimitExceededError{Quota: "data_importer", Limit: settings.DataImporterLimitPerDay}
	}
	return nil
}

// CheckCollectionLimit verifies that creating one more cognition collection
// stays within the tenant's cap. current is the number of collections that
// already exist.
func (g *Gate) CheckCollectionLimit(tenant string, current int) error {
	settings, err := g.Settings(tenant)
	if err != nil {
		return err
	}
	if current >= settings.CognitionCollectionsLimit {
		return &models.DailyLimitExceededError{Quota: "cognition_collections", Limit: settings.CognitionCollectionsLimit}
	}
	return nil
}

// CheckColumnLimit verifies a schema's column count against the per-
// collection cap.
func (g *Gate) CheckColumnLimit(tenant string, columns int) error {
	settings, err := g.Settings(tenant)
	if err != nil {
		return err
	}
	if columns > settings.CognitionColumnsPerCollectionLimit {
		return &models.DailyLimitExceededError{Quota: "cognition_columns", Limit: settings.CognitionColumnsPerCollectionLimit}
	}
	return nil
}
