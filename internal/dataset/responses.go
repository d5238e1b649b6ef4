package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddResponse creates a named utterance with its variants.
func (p *Processor) AddResponse(tenant, user string, response models.Response) error {
	if err := response.Validate(); err != nil {
		return err
	}
	response.Name = models.CanonicalName(response.Name)
	if err := p.saveDoc(tenant, user, models.KindResponse, response.Name, response); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindResponse, models.AuditSave, snapshot(response))
	return nil
}

// UpdateResponse replaces the variants of an existing utterance.
func (p *Processor) UpdateResponse(tenant, user string, response models.Response) error {
	if err := response.Validate(); err != nil {
		return err
	}
	response.Name = models.CanonicalName(response.Name)
	if err := p.updateDoc(tenant, user, models.KindResponse, response.Name, response); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindResponse, models.AuditUpdate, snapshot(response))
	return nil
}

// AddResponseVariant appends one variant to an utterance, creating the
// utterance when it does not exist yet.
func (p *Processor) AddResponseVariant(tenant, user, name string, variant models.ResponseVariant) error {
	canonical := models.CanonicalName(name)
	var response models.Response
	err := p.getDoc(tenant, models.KindResponse, canonical, &response)
	if err != nil {
		return p.AddResponse(tenant, user, models.Response{Name: canonical, Variants: []models.ResponseVariant{variant}})
	}
	response.Variants = append(response.Variants, variant)
	return p.UpdateResponse(tenant, user, response)
}

// GetResponse returns one utterance by name.
func (p *Processor) GetResponse(tenant, name string) (*models.Response, error) {
	var response models.Response
	if err := p.getDoc(tenant, models.KindResponse, name, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListResponses returns every active utterance.
func (p *Processor) ListResponses(tenant string) ([]models.Response, error) {
	return listDecoded[models.Response](p, tenant, models.KindResponse)
}

// DeleteResponse removes an utterance. Utterances referenced by a flow step
// or auto-created for a form slot are protected; the error names the first
// flow or form found holding the reference.
func (p *Processor) DeleteResponse(tenant, user, name string) error {
	canonical := models.CanonicalName(name)
	if flow, referenced, err := p.flowReferencing(tenant, models.StepBot, canonical); err != nil {
		return err
	} else if referenced {
		return &models.ReferentialIntegrityError{
			Name: canonical, Kind: models.KindResponse,
			Msg: fmt.Sprintf("Cannot remove action %q linked to flow %q", canonical, flow),
		}
	}
	forms, err := p.ListForms(tenant)
	if err != nil {
		return err
	}
	for _, form := range forms {
		for _, setting := range form.Settings {
			if models.AskUtteranceName(form.Name, setting.Slot) == canonical {
				return &models.ReferentialIntegrityError{
					Name: canonical, Kind: models.KindResponse,
					Msg: fmt.Sprintf("Cannot remove utterance %q attached to form %q", canonical, form.Name),
				}
			}
		}
	}
	if err := p.store.SoftDeleteDocument(tenant, models.KindResponse, canonical, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindResponse, models.AuditSoftDelete, map[string]any{"name": canonical})
	return nil
}

// AddLookupTable creates a named lookup value set.
func (p *Processor) AddLookupTable(tenant, user string, table models.LookupTable) error {
	if err := models.ValidateName(table.Name); err != nil {
		return models.NewValidationError("lookup table name cannot be empty or blank spaces", "body", "name")
	}
	if len(table.Values) == 0 {
		return models.NewValidationError("lookup values are required", "body", "elements")
	}
	table.Name = models.CanonicalName(table.Name)
	if err := p.saveDoc(tenant, user, models.KindLookupTable, table.Name, table); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindLookupTable, models.AuditSave, snapshot(table))
	return nil
}

// ListLookupTables returns every active lookup table.
func (p *Processor) ListLookupTables(tenant string) ([]models.LookupTable, error) {
	return listDecoded[models.LookupTable](p, tenant, models.KindLookupTable)
}

// DeleteLookupTable removes a lookup table.
func (p *Processor) DeleteLookupTable(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindLookupTable, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindLookupTable, models.AuditSoftDelete, map[string]any{"name": models.CanonicalName(name)})
	return nil
}

// AddSynonym creates a synonym set for a canonical value.
func (p *Processor) AddSynonym(tenant, user string, synonym models.Synonym) error {
	if err := models.ValidateName(synonym.Name); err != nil {
		return models.NewValidationError("synonym name cannot be empty or blank spaces", "body", "name")
	}
	if len(synonym.Values) == 0 {
		return models.NewValidationError("synonym values are required", "body", "values")
	}
	synonym.Name = models.CanonicalName(synonym.Name)
	if err := p.saveDoc(tenant, user, models.KindSynonym, synonym.Name, synonym); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSynonym, models.AuditSave, snapshot(synonym))
	return nil
}

// ListSynonyms returns every active synonym set.
func (p *Processor) ListSynonyms(tenant string) ([]models.Synonym, error) {
	return listDecoded[models.Synonym](p, tenant, models.KindSynonym)
}

// DeleteSynonym removes a synonym set.
func (p *Processor) DeleteSynonym(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindSynonym, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindSynonym, models.AuditSoftDelete, map[string]any{"name": models.CanonicalName(name)})
	return nil
}

// AddRegexFeature creates a named regex NLU feature.
func (p *Processor) AddRegexFeature(tenant, user string, feature models.RegexFeature) error {
	if err := feature.Validate(); err != nil {
		return err
	}
	feature.Name = models.CanonicalName(feature.Name)
	if err := p.saveDoc(tenant, user, models.KindRegexFeature, feature.Name, feature); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindRegexFeature, models.AuditSave, snapshot(feature))
	return nil
}

// ListRegexFeatures returns every active regex feature.
func (p *Processor) ListRegexFeatures(tenant string) ([]models.RegexFeature, error) {
	return listDecoded[models.RegexFeature](p, tenant, models.KindRegexFeature)
}

// DeleteRegexFeature removes a regex feature.
func (p *Processor) DeleteRegexFeature(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindRegexFeature, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindRegexFeature, models.AuditSoftDelete, map[string]any{"name": models.CanonicalName(name)})
	return nil
}
