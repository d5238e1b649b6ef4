package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/util"
)

// CognitionRow is a stored cognition data row together with its row ID.
type CognitionRow struct {
	RowID string               `json:"row_id"`
	Data  models.CognitionData `json:"data"`
}

// AddCognitionSchema creates a cognition collection schema, bounded by the
// tenant's collection and column quotas.
func (p *Processor) AddCognitionSchema(tenant, user string, schema models.CognitionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	schema.CollectionName = models.CanonicalName(schema.CollectionName)

	existing, err := p.ListCognitionSchemas(tenant)
	if err != nil {
		return err
	}
	if err := p.quota.CheckCollectionLimit(tenant, len(existing)); err != nil {
		return err
	}
	if err := p.quota.CheckColumnLimit(tenant, len(schema.Metadata)); err != nil {
		return err
	}

	if err := p.saveDoc(tenant, user, models.KindCognitionSchema, schema.CollectionName, schema); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindCognitionSchema, models.AuditSave, snapshot(schema))
	return nil
}

// GetCognitionSchema returns the schema of one collection.
func (p *Processor) GetCognitionSchema(tenant, collection string) (*models.CognitionSchema, error) {
	var schema models.CognitionSchema
	if err := p.getDoc(tenant, models.KindCognitionSchema, collection, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// ListCognitionSchemas returns every active collection schema.
func (p *Processor) ListCognitionSchemas(tenant string) ([]models.CognitionSchema, error) {
	return listDecoded[models.CognitionSchema](p, tenant, models.KindCognitionSchema)
}

// DeleteCognitionSchema removes a collection schema and its rows. Collections
// grounding a prompt or database action are protected.
func (p *Processor) DeleteCognitionSchema(tenant, user, collection string) error {
	canonical := models.CanonicalName(collection)

	actions, err := p.ListActions(tenant, "")
	if err != nil {
		return err
	}
	for _, action := range actions {
		linked := false
		switch {
		case action.Type == models.ActionTypeDatabase && action.Database != nil:
			linked = models.CanonicalName(action.Database.Collection) == canonical
		case action.Type == models.ActionTypePrompt && action.Prompt != nil:
			linked = models.CanonicalName(action.Prompt.CollectionName) == canonical
		}
		if linked {
			return &models.ReferentialIntegrityError{
				Name: canonical, Kind: models.KindCognitionSchema,
				Msg: fmt.Sprintf("Cannot remove collection %q linked to action %q", canonical, action.Name),
			}
		}
	}

	if err := p.store.SoftDeleteDocument(tenant, models.KindCognitionSchema, canonical, user); err != nil {
		return err
	}
	rows, err := p.ListCognitionData(tenant, canonical)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := p.store.SoftDeleteDocument(tenant, models.KindCognitionData, row.RowID, user); err != nil {
			return err
		}
	}
	p.audit.Record(tenant, user, models.KindCognitionSchema, models.AuditSoftDelete, map[string]any{"collection_name": canonical})
	return nil
}

// AddCognitionData stores one row in a collection after validating it against
// the collection schema. It returns the generated row ID.
func (p *Processor) AddCognitionData(tenant, user string, data models.CognitionData) (string, error) {
	data.Collection = models.CanonicalName(data.Collection)
	if data.Collection == "" {
		return "", models.NewValidationError("collection is required", "body", "collection")
	}

	schema, err := p.GetCognitionSchema(tenant, data.Collection)
	if err != nil {
		if data.ContentType == models.ContentTypeJSON {
			return "", models.NewValidationError("collection schema does not exist", "body", "collection")
		}
		schema = nil
	}
	if err := data.ValidateAgainstSchema(schema); err != nil {
		return "", err
	}

	row := CognitionRow{RowID: util.GenerateRandomID("c_", 32), Data: data}
	if err := p.saveDoc(tenant, user, models.KindCognitionData, row.RowID, row); err != nil {
		return "", err
	}
	p.audit.Record(tenant, user, models.KindCognitionData, models.AuditSave, snapshot(row))
	return row.RowID, nil
}

// UpdateCognitionData replaces one row by its row ID.
func (p *Processor) UpdateCognitionData(tenant, user, rowID string, data models.CognitionData) error {
	data.Collection = models.CanonicalName(data.Collection)
	schema, err := p.GetCognitionSchema(tenant, data.Collection)
	if err != nil {
		if data.ContentType == models.ContentTypeJSON {
			return models.NewValidationError("collection schema does not exist", "body", "collection")
		}
		schema = nil
	}
	if err := data.ValidateAgainstSchema(schema); err != nil {
		return err
	}
	row := CognitionRow{RowID: rowID, Data: data}
	if err := p.updateDoc(tenant, user, models.KindCognitionData, rowID, row); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindCognitionData, models.AuditUpdate, snapshot(row))
	return nil
}

// ListCognitionData returns the rows of one collection. An empty collection
// returns every row of the tenant.
func (p *Processor) ListCognitionData(tenant, collection string) ([]CognitionRow, error) {
	all, err := listDecoded[CognitionRow](p, tenant, models.KindCognitionData)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return all, nil
	}
	canonical := models.CanonicalName(collection)
	var rows []CognitionRow
	for _, row := range all {
		if models.CanonicalName(row.Data.Collection) == canonical {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// DeleteCognitionData removes one row by its row ID.
func (p *Processor) DeleteCognitionData(tenant, user, rowID string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindCognitionData, rowID, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindCognitionData, models.AuditSoftDelete, map[string]any{"row_id": rowID})
	return nil
}
