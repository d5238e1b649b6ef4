package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddForm creates a form. Every slot must exist and must not be of type any;
// each slot's ask_questions become the variants of an auto-created
// utter_ask_<form>_<slot> utterance.
func (p *Processor) AddForm(tenant, user string, form models.Form) error {
	if err := form.Validate(); err != nil {
		return err
	}
	form.Name = models.CanonicalName(form.Name)
	if err := p.resolveFormSlots(tenant, form); err != nil {
		return err
	}
	if err := p.saveDoc(tenant, user, models.KindForm, form.Name, form); err != nil {
		return err
	}
	if err := p.createAskUtterances(tenant, user, form); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindForm, models.AuditSave, snapshot(form))
	return nil
}

// UpdateForm replaces an existing form and creates ask-utterances for any
// newly added slots. Utterances of removed slots stay; they may be referenced
// elsewhere and can be deleted explicitly.
func (p *Processor) UpdateForm(tenant, user string, form models.Form) error {
	if err := form.Validate(); err != nil {
		return err
	}
	form.Name = models.CanonicalName(form.Name)
	if err := p.resolveFormSlots(tenant, form); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindForm, form.Name, form); err != nil {
		return err
	}
	if err := p.createAskUtterances(tenant, user, form); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindForm, models.AuditUpdate, snapshot(form))
	return nil
}

// GetForm returns one form by name.
func (p *Processor) GetForm(tenant, name string) (*models.Form, error) {
	var form models.Form
	if err := p.getDoc(tenant, models.KindForm, name, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// ListForms returns every active form.
func (p *Processor) ListForms(tenant string) ([]models.Form, error) {
	return listDecoded[models.Form](p, tenant, models.KindForm)
}

// DeleteForm removes a form and its auto-created ask-utterances. Forms still
// attached to a flow step are protected.
func (p *Processor) DeleteForm(tenant, user, name string) error {
	canonical := models.CanonicalName(name)
	for _, stepType := range []models.StepType{models.StepFormAction, models.StepFormStart} {
		if flow, referenced, err := p.flowReferencing(tenant, stepType, canonical); err != nil {
			return err
		} else if referenced {
			return &models.ReferentialIntegrityError{
				Name: canonical, Kind: models.KindForm,
				Msg: fmt.Sprintf("Cannot remove form %q linked to flow %q", canonical, flow),
			}
		}
	}

	form, err := p.GetForm(tenant, canonical)
	if err != nil {
		return err
	}
	if err := p.store.SoftDeleteDocument(tenant, models.KindForm, canonical, user); err != nil {
		return err
	}
	for _, setting := range form.Settings {
		askName := models.AskUtteranceName(form.Name, setting.Slot)
		if ok, err := p.exists(tenant, models.KindResponse, askName); err != nil {
			return err
		} else if ok {
			if err := p.store.SoftDeleteDocument(tenant, models.KindResponse, askName, user); err != nil {
				return err
			}
		}
	}
	p.audit.Record(tenant, user, models.KindForm, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}

// resolveFormSlots checks that every slot exists and rejects slots of type
// any, which a form cannot request.
func (p *Processor) resolveFormSlots(tenant string, form models.Form) error {
	for _, setting := range form.Settings {
		slot, err := p.GetSlot(tenant, setting.Slot)
		if err != nil {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(setting.Slot), Kind: models.KindSlot}
		}
		if slot.Type == models.SlotTypeAny {
			return models.NewValidationError(
				fmt.Sprintf("form cannot have any type slot %q", slot.Name),
				"body", "settings", "slot",
			)
		}
	}
	return nil
}

// createAskUtterances writes the utter_ask_<form>_<slot> utterances for every
// slot of the form, skipping names that already exist.
func (p *Processor) createAskUtterances(tenant, user string, form models.Form) error {
	for _, setting := range form.Settings {
		askName := models.AskUtteranceName(form.Name, setting.Slot)
		if ok, err := p.exists(tenant, models.KindResponse, askName); err != nil {
			return err
		} else if ok {
			continue
		}
		variants := make([]models.ResponseVariant, 0, len(setting.AskQuestions))
		for _, question := range setting.AskQuestions {
			variants = append(variants, models.ResponseVariant{Text: question})
		}
		if err := p.AddResponse(tenant, user, models.Response{Name: askName, Variants: variants}); err != nil {
			return err
		}
	}
	return nil
}
