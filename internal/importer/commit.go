package importer

import (
	"errors"
	"fmt"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
	"github.com/digiteinfotech/kairon/internal/util"
	"github.com/digiteinfotech/kairon/internal/validator"
)

// commit writes a validated bundle into the store. The bundle has already
// passed (or been forced past) cross-reference validation, so writes go
// straight to the document layer; re-running the per-entity business rules
// here would reject artifacts the report deliberately let through.
func (imp *Importer) commit(req Request, bundle *validator.Bundle) error {
	if req.Mode == models.ImportOverwrite {
		if err := imp.wipeForOverwrite(req, bundle); err != nil {
			return err
		}
	}

	tenant, user := req.Tenant, req.User

	for _, slot := range bundle.Slots {
		slot.Name = models.CanonicalName(slot.Name)
		if err := imp.writeDoc(tenant, user, models.KindSlot, slot.Name, slot); err != nil {
			return err
		}
	}
	for _, entity := range bundle.Entities {
		entity.Name = models.CanonicalName(entity.Name)
		if err := imp.writeDoc(tenant, user, models.KindEntity, entity.Name, entity); err != nil {
			return err
		}
	}
	for _, intent := range bundle.Intents {
		intent.Name = models.CanonicalName(intent.Name)
		if models.IsReservedIntent(intent.Name) {
			intent.IsSystemDefault = true
		}
		if err := imp.writeDoc(tenant, user, models.KindIntent, intent.Name, intent); err != nil {
			return err
		}
	}
	for _, example := range bundle.TrainingExamples {
		example.Intent = models.CanonicalName(example.Intent)
		if err := imp.writeDoc(tenant, user, models.KindTrainingExample, example.Text, example); err != nil {
			return err
		}
	}
	for _, mapping := range bundle.SlotMappings {
		mapping.Slot = models.CanonicalName(mapping.Slot)
		if err := imp.writeDoc(tenant, user, models.KindSlotMapping, mapping.Slot, mapping); err != nil {
			return err
		}
	}
	for _, response := range bundle.Responses {
		response.Name = models.CanonicalName(response.Name)
		if err := imp.writeDoc(tenant, user, models.KindResponse, response.Name, response); err != nil {
			return err
		}
	}
	for _, table := range bundle.LookupTables {
		table.Name = models.CanonicalName(table.Name)
		if err := imp.writeDoc(tenant, user, models.KindLookupTable, table.Name, table); err != nil {
			return err
		}
	}
	for _, synonym := range bundle.Synonyms {
		synonym.Name = models.CanonicalName(synonym.Name)
		if err := imp.writeDoc(tenant, user, models.KindSynonym, synonym.Name, synonym); err != nil {
			return err
		}
	}
	for _, feature := range bundle.RegexFeatures {
		feature.Name = models.CanonicalName(feature.Name)
		if err := imp.writeDoc(tenant, user, models.KindRegexFeature, feature.Name, feature); err != nil {
			return err
		}
	}

	// Collections before the actions that ground on them.
	if err := imp.commitBotContent(req, bundle); err != nil {
		return err
	}
	for _, action := range bundle.Actions {
		action.Name = models.CanonicalName(action.Name)
		if err := imp.writeDoc(tenant, user, models.KindAction, action.Name, action); err != nil {
			return err
		}
	}

	for _, story := range bundle.Stories {
		story.Name = models.CanonicalName(story.Name)
		if err := imp.writeDoc(tenant, user, models.KindStory, story.Name, story); err != nil {
			return err
		}
	}
	for _, rule := range bundle.Rules {
		rule.Name = models.CanonicalName(rule.Name)
		if err := imp.writeDoc(tenant, user, models.KindRule, rule.Name, rule); err != nil {
			return err
		}
	}
	for _, flow := range bundle.MultiflowStories {
		flow.Name = models.CanonicalName(flow.Name)
		if err := imp.writeDoc(tenant, user, models.KindMultiflowStory, flow.Name, flow); err != nil {
			return err
		}
	}

	for _, form := range bundle.Forms {
		form.Name = models.CanonicalName(form.Name)
		if err := imp.writeDoc(tenant, user, models.KindForm, form.Name, form); err != nil {
			return err
		}
		if err := imp.writeAskUtterances(tenant, user, form); err != nil {
			return err
		}
	}

	if bundle.Config != nil {
		if err := imp.writeConfigDoc(tenant, user, models.KindConfig, "config", bundle.Config); err != nil {
			return err
		}
	}
	if bundle.ChatClientConfig != nil {
		if err := imp.writeConfigDoc(tenant, user, models.KindChatClientConfig, "chat_client_config", bundle.ChatClientConfig); err != nil {
			return err
		}
	}
	return nil
}

// wipeForOverwrite soft-deletes every kind the bundle carries, then restores
// the reserved intents a tenant must always have.
func (imp *Importer) wipeForOverwrite(req Request, bundle *validator.Bundle) error {
	kinds := presentKinds(bundle)
	for kind := range kinds {
		if _, err := imp.store.SoftDeleteKind(req.Tenant, kind, req.User); err != nil {
			return err
		}
	}
	if kinds[models.KindIntent] {
		for _, name := range models.ReservedIntentNames {
			intent := models.Intent{Name: name, IsSystemDefault: true}
			if err := imp.writeDoc(req.Tenant, req.User, models.KindIntent, name, intent); err != nil {
				return err
			}
		}
	}
	return nil
}

// presentKinds reports which artifact kinds the bundle carries. Kinds absent
// from the upload are left untouched by an overwrite.
func presentKinds(bundle *validator.Bundle) kindSet {
	kinds := kindSet{}
	kinds.put(models.KindIntent, len(bundle.Intents) > 0 || len(bundle.TrainingExamples) > 0)
	kinds.put(models.KindTrainingExample, len(bundle.TrainingExamples) > 0)
	kinds.put(models.KindEntity, len(bundle.Entities) > 0)
	kinds.put(models.KindSlot, len(bundle.Slots) > 0)
	kinds.put(models.KindSlotMapping, len(bundle.SlotMappings) > 0)
	kinds.put(models.KindResponse, len(bundle.Responses) > 0)
	kinds.put(models.KindStory, len(bundle.Stories) > 0)
	kinds.put(models.KindRule, len(bundle.Rules) > 0)
	kinds.put(models.KindMultiflowStory, len(bundle.MultiflowStories) > 0)
	kinds.put(models.KindForm, len(bundle.Forms) > 0)
	kinds.put(models.KindLookupTable, len(bundle.LookupTables) > 0)
	kinds.put(models.KindSynonym, len(bundle.Synonyms) > 0)
	kinds.put(models.KindRegexFeature, len(bundle.RegexFeatures) > 0)
	kinds.put(models.KindAction, len(bundle.Actions) > 0)
	kinds.put(models.KindCognitionSchema, len(bundle.CognitionSchemas) > 0 || len(bundle.CognitionData) > 0)
	kinds.put(models.KindCognitionData, len(bundle.CognitionData) > 0)
	kinds.put(models.KindConfig, bundle.Config != nil)
	kinds.put(models.KindChatClientConfig, bundle.ChatClientConfig != nil)
	return kinds
}

type kindSet map[models.ArtifactKind]bool

func (s kindSet) put(kind models.ArtifactKind, present bool) {
	if present {
		s[kind] = true
	}
}

// commitBotContent writes collection schemas and rows. A JSON row whose
// collection arrived without a declared schema gets one inferred from the
// row, matching the behavior users see when uploading content-first.
func (imp *Importer) commitBotContent(req Request, bundle *validator.Bundle) error {
	tenant, user := req.Tenant, req.User
	declared := map[string]bool{}
	for _, schema := range bundle.CognitionSchemas {
		schema.CollectionName = models.CanonicalName(schema.CollectionName)
		if err := imp.writeDoc(tenant, user, models.KindCognitionSchema, schema.CollectionName, schema); err != nil {
			return err
		}
		declared[schema.CollectionName] = true
	}
	for _, row := range bundle.CognitionData {
		row.Collection = models.CanonicalName(row.Collection)
		if row.ContentType == models.ContentTypeJSON && !declared[row.Collection] {
			if obj, ok := row.Data.(map[string]any); ok {
				if known, err := imp.hasActiveDoc(tenant, models.KindCognitionSchema, row.Collection); err != nil {
					return err
				} else if !known {
					schema := models.InferSchema(row.Collection, obj)
					if err := imp.writeDoc(tenant, user, models.KindCognitionSchema, schema.CollectionName, schema); err != nil {
						return err
					}
				}
				declared[row.Collection] = true
			}
		}
		stored := dataset.CognitionRow{RowID: util.GenerateRandomID("c_", 32), Data: row}
		if err := imp.writeDoc(tenant, user, models.KindCognitionData, stored.RowID, stored); err != nil {
			return err
		}
	}
	return nil
}

// writeAskUtterances creates the utter_ask_<form>_<slot> utterances of a
// committed form, skipping names the bundle or the tenant already has.
func (imp *Importer) writeAskUtterances(tenant, user string, form models.Form) error {
	for _, setting := range form.Settings {
		askName := models.AskUtteranceName(form.Name, setting.Slot)
		if known, err := imp.hasActiveDoc(tenant, models.KindResponse, askName); err != nil {
			return err
		} else if known {
			continue
		}
		variants := make([]models.ResponseVariant, 0, len(setting.AskQuestions))
		for _, question := range setting.AskQuestions {
			variants = append(variants, models.ResponseVariant{Text: question})
		}
		response := models.Response{Name: askName, Variants: variants}
		if err := imp.writeDoc(tenant, user, models.KindResponse, askName, response); err != nil {
			return err
		}
	}
	return nil
}

// writeDoc persists one artifact. A name collision with an active document
// replaces its payload: forced appends overwrite conflicts, and re-seeded
// reserved intents are refreshed rather than duplicated.
func (imp *Importer) writeDoc(tenant, user string, kind models.ArtifactKind, name string, v any) error {
	payload, err := marshalDoc(v)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", kind, name, err)
	}
	doc := store.Document{
		Tenant:  tenant,
		Kind:    kind,
		Name:    models.CanonicalName(name),
		RawName: name,
		User:    user,
		DocJSON: payload,
	}
	_, err = imp.store.SaveDocument(doc)
	var exists *models.AlreadyExistsError
	if errors.As(err, &exists) {
		return imp.store.UpdateDocument(doc)
	}
	return err
}

// writeConfigDoc upserts a singleton config document.
func (imp *Importer) writeConfigDoc(tenant, user string, kind models.ArtifactKind, name string, v any) error {
	payload, err := marshalDoc(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	doc := store.Document{
		Tenant:  tenant,
		Kind:    kind,
		Name:    name,
		RawName: name,
		User:    user,
		DocJSON: payload,
	}
	if err := imp.store.UpdateDocument(doc); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if _, err := imp.store.SaveDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Importer) hasActiveDoc(tenant string, kind models.ArtifactKind, name string) (bool, error) {
	_, err := imp.store.GetDocument(tenant, kind, name)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
