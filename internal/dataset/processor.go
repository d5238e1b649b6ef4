// Package dataset is the typed service layer over the document store. It
// owns canonicalization, uniqueness, shape validation, cross-reference
// resolution and audit emission for every artifact kind a bot's training
// data is made of.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digiteinfotech/kairon/internal/audit"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/quota"
	"github.com/digiteinfotech/kairon/internal/store"
)

// Processor performs all typed reads and writes of a bot's training data.
type Processor struct {
	store store.Store
	audit *audit.Recorder
	quota *quota.Gate
}

// NewProcessor creates a Processor over the given store.
func NewProcessor(s store.Store) *Processor {
	return &Processor{
		store: s,
		audit: audit.NewRecorder(s),
		quota: quota.NewGate(s),
	}
}

// Store exposes the underlying store to collaborating modules.
func (p *Processor) Store() store.Store { return p.store }

// Audit exposes the audit recorder to collaborating modules.
func (p *Processor) Audit() *audit.Recorder { return p.audit }

// Quota exposes the quota gate to collaborating modules.
func (p *Processor) Quota() *quota.Gate { return p.quota }

// saveDoc marshals v and persists it under (tenant, kind, name).
func (p *Processor) saveDoc(tenant, user string, kind models.ArtifactKind, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", kind, name, err)
	}
	_, err = p.store.SaveDocument(store.Document{
		Tenant:  tenant,
		Kind:    kind,
		Name:    name,
		RawName: name,
		User:    user,
		DocJSON: string(data),
	})
	return err
}

// updateDoc marshals v and replaces the payload of an existing document.
func (p *Processor) updateDoc(tenant, user string, kind models.ArtifactKind, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", kind, name, err)
	}
	return p.store.UpdateDocument(store.Document{
		Tenant:  tenant,
		Kind:    kind,
		Name:    name,
		RawName: name,
		User:    user,
		DocJSON: string(data),
	})
}

// getDoc unmarshals the document payload into out.
func (p *Processor) getDoc(tenant string, kind models.ArtifactKind, name string, out any) error {
	doc, err := p.store.GetDocument(tenant, kind, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(doc.DocJSON), out); err != nil {
		return fmt.Errorf("decode %s %q: %w", kind, name, err)
	}
	return nil
}

// exists reports whether an active document of the given kind and name exists.
func (p *Processor) exists(tenant string, kind models.ArtifactKind, name string) (bool, error) {
	_, err := p.store.GetDocument(tenant, kind, name)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// listDecoded unmarshals every active document of a kind into values of T.
func listDecoded[T any](p *Processor, tenant string, kind models.ArtifactKind) ([]T, error) {
	docs, err := p.store.ListDocuments(tenant, kind)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal([]byte(doc.DocJSON), &item); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", kind, doc.Name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// snapshot returns a value as a generic map for the audit trail.
func snapshot(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// DefaultUtterances are seeded for every new tenant alongside the reserved
// intents.
var DefaultUtterances = map[string]string{
	"utter_please_rephrase": "I'm sorry, I didn't quite understand that. Could you rephrase?",
	"utter_default":         "Sorry I am unable to process your request at the moment.",
}

// SeedTenant provisions a fresh tenant: reserved intents, the default
// utterances and the default settings document. Safe to call once per tenant
// at creation time.
func (p *Processor) SeedTenant(tenant, user string) error {
	for _, name := range models.ReservedIntentNames {
		intent := models.Intent{Name: name, IsSystemDefault: true}
		if err := p.saveDoc(tenant, user, models.KindIntent, name, intent); err != nil {
			return err
		}
	}
	for name, text := range DefaultUtterances {
		response := models.Response{Name: name, Variants: []models.ResponseVariant{{Text: text}}}
		if err := p.saveDoc(tenant, user, models.KindResponse, name, response); err != nil {
			return err
		}
	}
	if err := p.store.SaveBotSettings(models.DefaultBotSettings(tenant)); err != nil {
		return err
	}
	slog.Info("Processor.SeedTenant: tenant provisioned", "tenant", tenant, "user", user)
	p.audit.RecordActivity(tenant, user, "tenant provisioned", nil)
	return nil
}

// DeleteTenant removes every document, log and setting of a tenant. The
// deletion itself is recorded afterwards so the trail survives the purge.
func (p *Processor) DeleteTenant(tenant, user string) error {
	if err := p.store.DeleteTenant(tenant); err != nil {
		return err
	}
	p.audit.RecordActivity(tenant, user, "tenant deleted", nil)
	return nil
}
