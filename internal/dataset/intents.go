package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddIntent creates a new intent.
func (p *Processor) AddIntent(tenant, user string, intent models.Intent) error {
	if err := models.ValidateName(intent.Name); err != nil {
		return models.NewValidationError("intent name cannot be empty or blank spaces", "body", "name")
	}
	intent.Name = models.CanonicalName(intent.Name)
	if err := p.saveDoc(tenant, user, models.KindIntent, intent.Name, intent); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindIntent, models.AuditSave, snapshot(intent))
	return nil
}

// GetIntent returns one intent by name.
func (p *Processor) GetIntent(tenant, name string) (*models.Intent, error) {
	var intent models.Intent
	if err := p.getDoc(tenant, models.KindIntent, name, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ListIntents returns every active intent.
func (p *Processor) ListIntents(tenant string) ([]models.Intent, error) {
	return listDecoded[models.Intent](p, tenant, models.KindIntent)
}

// DeleteIntent removes an intent and its training examples. Reserved intents
// cannot be deleted, and intents referenced by a flow are protected.
func (p *Processor) DeleteIntent(tenant, user, name string) error {
	canonical := models.CanonicalName(name)
	if models.IsReservedIntent(canonical) {
		return &models.ReferentialIntegrityError{
			Name: canonical, Kind: models.KindIntent,
			Msg: fmt.Sprintf("intent %q is a system intent and cannot be deleted", canonical),
		}
	}
	if flow, referenced, err := p.flowReferencing(tenant, models.StepIntent, canonical); err != nil {
		return err
	} else if referenced {
		return &models.ReferentialIntegrityError{
			Name: canonical, Kind: models.KindIntent,
			Msg: fmt.Sprintf("Cannot remove intent %q linked to flow %q", canonical, flow),
		}
	}
	if err := p.store.SoftDeleteDocument(tenant, models.KindIntent, canonical, user); err != nil {
		return err
	}

	// Training examples belong to their intent; they go with it.
	examples, err := p.ListTrainingExamples(tenant, canonical)
	if err != nil {
		return err
	}
	for _, example := range examples {
		if err := p.store.SoftDeleteDocument(tenant, models.KindTrainingExample, example.Text, user); err != nil {
			return err
		}
	}
	p.audit.Record(tenant, user, models.KindIntent, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}

// AddTrainingExample attaches an example utterance to an intent, creating the
// intent when it does not exist yet.
func (p *Processor) AddTrainingExample(tenant, user string, example models.TrainingExample) error {
	if err := example.Validate(); err != nil {
		return err
	}
	example.Intent = models.CanonicalName(example.Intent)

	intentExists, err := p.exists(tenant, models.KindIntent, example.Intent)
	if err != nil {
		return err
	}
	if !intentExists {
		if err := p.AddIntent(tenant, user, models.Intent{Name: example.Intent}); err != nil {
			return err
		}
	}
	if err := p.saveDoc(tenant, user, models.KindTrainingExample, example.Text, example); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindTrainingExample, models.AuditSave, snapshot(example))
	return nil
}

// ListTrainingExamples returns the examples of one intent. An empty intent
// returns every example of the tenant.
func (p *Processor) ListTrainingExamples(tenant, intent string) ([]models.TrainingExample, error) {
	all, err := listDecoded[models.TrainingExample](p, tenant, models.KindTrainingExample)
	if err != nil {
		return nil, err
	}
	if intent == "" {
		return all, nil
	}
	canonical := models.CanonicalName(intent)
	var examples []models.TrainingExample
	for _, example := range all {
		if models.CanonicalName(example.Intent) == canonical {
			examples = append(examples, example)
		}
	}
	return examples, nil
}

// DeleteTrainingExample removes one example by its text.
func (p *Processor) DeleteTrainingExample(tenant, user, text string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindTrainingExample, text, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindTrainingExample, models.AuditSoftDelete, map[string]any{"text": text})
	return nil
}

// AddEntity registers a named entity.
func (p *Processor) AddEntity(tenant, user string, entity models.Entity) error {
	if err := models.ValidateName(entity.Name); err != nil {
		return models.NewValidationError("entity name cannot be empty or blank spaces", "body", "name")
	}
	entity.Name = models.CanonicalName(entity.Name)
	if err := p.saveDoc(tenant, user, models.KindEntity, entity.Name, entity); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindEntity, models.AuditSave, snapshot(entity))
	return nil
}

// ListEntities returns every active entity.
func (p *Processor) ListEntities(tenant string) ([]models.Entity, error) {
	return listDecoded[models.Entity](p, tenant, models.KindEntity)
}

// DeleteEntity removes an entity unless a slot mapping still reads from it.
func (p *Processor) DeleteEntity(tenant, user, name string) error {
	canonical := models.CanonicalName(name)
	mappings, err := p.ListSlotMappings(tenant)
	if err != nil {
		return err
	}
	for _, mapping := range mappings {
		for _, rule := range mapping.Rules {
			if rule.Type == models.MappingFromEntity && models.CanonicalName(rule.Entity) == canonical {
				return &models.ReferentialIntegrityError{
					Name: canonical, Kind: models.KindEntity,
					Msg: fmt.Sprintf("Cannot remove entity %q used by mapping for slot %q", canonical, mapping.Slot),
				}
			}
		}
	}
	if err := p.store.SoftDeleteDocument(tenant, models.KindEntity, canonical, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindEntity, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}
