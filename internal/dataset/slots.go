package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddSlot creates a conversation slot.
func (p *Processor) AddSlot(tenant, user string, slot models.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	slot.Name = models.CanonicalName(slot.Name)
	if err := p.saveDoc(tenant, user, models.KindSlot, slot.Name, slot); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlot, models.AuditSave, snapshot(slot))
	return nil
}

// UpdateSlot replaces an existing slot definition.
func (p *Processor) UpdateSlot(tenant, user string, slot models.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	slot.Name = models.CanonicalName(slot.Name)
	if err := p.updateDoc(tenant, user, models.KindSlot, slot.Name, slot); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlot, models.AuditUpdate, snapshot(slot))
	return nil
}

// GetSlot returns one slot by name.
func (p *Processor) GetSlot(tenant, name string) (*models.Slot, error) {
	var slot models.Slot
	if err := p.getDoc(tenant, models.KindSlot, name, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlots returns every active slot.
func (p *Processor) ListSlots(tenant string) ([]models.Slot, error) {
	return listDecoded[models.Slot](p, tenant, models.KindSlot)
}

// DeleteSlot removes a slot unless a form or a mapping still uses it.
func (p *Processor) DeleteSlot(tenant, user, name string) error {
	canonical := models.CanonicalName(name)

	forms, err := p.ListForms(tenant)
	if err != nil {
		return err
	}
	for _, form := range forms {
		for _, setting := range form.Settings {
			if models.CanonicalName(setting.Slot) == canonical {
				return &models.ReferentialIntegrityError{
					Name: canonical, Kind: models.KindSlot,
					Msg: fmt.Sprintf("Cannot remove slot %q attached to form %q", canonical, form.Name),
				}
			}
		}
	}

	if mapped, err := p.exists(tenant, models.KindSlotMapping, canonical); err != nil {
		return err
	} else if mapped {
		return &models.ReferentialIntegrityError{
			Name: canonical, Kind: models.KindSlot,
			Msg: fmt.Sprintf("Cannot remove slot %q with an active mapping", canonical),
		}
	}

	if err := p.store.SoftDeleteDocument(tenant, models.KindSlot, canonical, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlot, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}

// AddSlotMapping attaches an ordered rule list to an existing slot. The rules
// for one slot live in a single document; deletion is all-or-nothing.
func (p *Processor) AddSlotMapping(tenant, user string, mapping models.SlotMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	mapping.Slot = models.CanonicalName(mapping.Slot)

	slotExists, err := p.exists(tenant, models.KindSlot, mapping.Slot)
	if err != nil {
		return err
	}
	if !slotExists {
		return &models.ReferentialIntegrityError{Name: mapping.Slot, Kind: models.KindSlot}
	}
	if err := p.resolveMappingReferences(tenant, mapping); err != nil {
		return err
	}

	if err := p.saveDoc(tenant, user, models.KindSlotMapping, mapping.Slot, mapping); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlotMapping, models.AuditSave, snapshot(mapping))
	return nil
}

// UpdateSlotMapping replaces the whole rule list of a slot.
func (p *Processor) UpdateSlotMapping(tenant, user string, mapping models.SlotMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	mapping.Slot = models.CanonicalName(mapping.Slot)
	if err := p.resolveMappingReferences(tenant, mapping); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindSlotMapping, mapping.Slot, mapping); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlotMapping, models.AuditUpdate, snapshot(mapping))
	return nil
}

// ListSlotMappings returns the mapping documents of every mapped slot.
func (p *Processor) ListSlotMappings(tenant string) ([]models.SlotMapping, error) {
	return listDecoded[models.SlotMapping](p, tenant, models.KindSlotMapping)
}

// DeleteSlotMapping removes every mapping rule of one slot.
func (p *Processor) DeleteSlotMapping(tenant, user, slot string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindSlotMapping, slot, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSlotMapping, models.AuditSoftDelete, map[string]any{"slot": models.CanonicalName(slot)})
	return nil
}

// resolveMappingReferences checks that entities named by from_entity rules
// exist.
func (p *Processor) resolveMappingReferences(tenant string, mapping models.SlotMapping) error {
	for _, rule := range mapping.Rules {
		if rule.Type != models.MappingFromEntity {
			continue
		}
		entityExists, err := p.exists(tenant, models.KindEntity, rule.Entity)
		if err != nil {
			return err
		}
		if !entityExists {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(rule.Entity), Kind: models.KindEntity}
		}
	}
	return nil
}
