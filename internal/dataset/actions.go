package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddAction registers an integrated action. Live-agent actions require the
// feature to be enabled in the tenant's settings, and database or prompt
// actions must ground on an existing cognition collection.
func (p *Processor) AddAction(tenant, user string, action models.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	action.Name = models.CanonicalName(action.Name)
	if err := p.checkActionPrerequisites(tenant, action); err != nil {
		return err
	}
	if err := p.saveDoc(tenant, user, models.KindAction, action.Name, action); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindAction, models.AuditSave, snapshot(action))
	return nil
}

// UpdateAction replaces the configuration of an existing action. The action
// kind is fixed at creation.
func (p *Processor) UpdateAction(tenant, user string, action models.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	action.Name = models.CanonicalName(action.Name)

	existing, err := p.GetAction(tenant, action.Name)
	if err != nil {
		return err
	}
	if existing.Type != action.Type {
		return models.NewValidationError(
			fmt.Sprintf("action type cannot change from %s to %s", existing.Type, action.Type),
			"body", "type",
		)
	}
	if err := p.checkActionPrerequisites(tenant, action); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindAction, action.Name, action); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindAction, models.AuditUpdate, snapshot(action))
	return nil
}

// GetAction returns one action by name.
func (p *Processor) GetAction(tenant, name string) (*models.Action, error) {
	var action models.Action
	if err := p.getDoc(tenant, models.KindAction, name, &action); err != nil {
		return nil, err
	}
	return &action, nil
}

// ListActions returns every active action, optionally filtered by kind.
func (p *Processor) ListActions(tenant string, actionType models.ActionType) ([]models.Action, error) {
	all, err := listDecoded[models.Action](p, tenant, models.KindAction)
	if err != nil {
		return nil, err
	}
	if actionType == "" {
		return all, nil
	}
	var actions []models.Action
	for _, action := range all {
		if action.Type == actionType {
			actions = append(actions, action)
		}
	}
	return actions, nil
}

// DeleteAction removes an action unless a flow step still names it.
func (p *Processor) DeleteAction(tenant, user, name string) error {
	canonical := models.CanonicalName(name)
	action, err := p.GetAction(tenant, canonical)
	if err != nil {
		return err
	}
	if flow, referenced, err := p.flowReferencingAction(tenant, action.Type, canonical); err != nil {
		return err
	} else if referenced {
		return &models.ReferentialIntegrityError{
			Name: canonical, Kind: models.KindAction,
			Msg: fmt.Sprintf("Cannot remove action %q linked to flow %q", canonical, flow),
		}
	}
	if err := p.store.SoftDeleteDocument(tenant, models.KindAction, canonical, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindAction, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}

// checkActionPrerequisites enforces the tenant-level conditions a valid
// action shape cannot express on its own.
func (p *Processor) checkActionPrerequisites(tenant string, action models.Action) error {
	switch action.Type {
	case models.ActionTypeLiveAgent:
		settings, err := p.quota.Settings(tenant)
		if err != nil {
			return err
		}
		if !settings.LiveAgentEnabled {
			return models.NewValidationError("Live agent system is disabled for the bot", "body", "type")
		}
	case models.ActionTypeDatabase:
		if action.Database != nil {
			return p.requireCollection(tenant, action.Database.Collection)
		}
	case models.ActionTypePrompt:
		if action.Prompt != nil && action.Prompt.CollectionName != "" {
			return p.requireCollection(tenant, action.Prompt.CollectionName)
		}
	case models.ActionTypeSlotSet:
		if action.SlotSet != nil {
			for _, op := range action.SlotSet.SetSlots {
				ok, err := p.exists(tenant, models.KindSlot, models.CanonicalName(op.Name))
				if err != nil {
					return err
				}
				if !ok {
					return &models.ReferentialIntegrityError{Name: models.CanonicalName(op.Name), Kind: models.KindSlot}
				}
			}
		}
	}
	return nil
}

func (p *Processor) requireCollection(tenant, collection string) error {
	ok, err := p.exists(tenant, models.KindCognitionSchema, collection)
	if err != nil {
		return err
	}
	if !ok {
		return &models.ReferentialIntegrityError{Name: models.CanonicalName(collection), Kind: models.KindCognitionSchema}
	}
	return nil
}
