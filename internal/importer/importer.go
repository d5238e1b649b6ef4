package importer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
	"github.com/digiteinfotech/kairon/internal/util"
	"github.com/digiteinfotech/kairon/internal/validator"
)

// EventClassDataImporter is the per-tenant lock class held for the duration
// of an import run.
const EventClassDataImporter = "data_importer"

// Request carries one import run.
type Request struct {
	Tenant string
	User   string
	Files  map[string][]byte
	Mode   models.ImportMode
	// Force commits the bundle even when the validation report carries
	// violations, and skips name conflicts in append mode.
	Force bool
	// ValidateOnly runs the pipeline through validation without committing
	// anything. The run completes with the report, the store is untouched.
	ValidateOnly bool
}

// Importer executes the training data import pipeline.
type Importer struct {
	processor *dataset.Processor
	store     store.Store
}

// New creates an Importer over the given processor.
func New(p *dataset.Processor) *Importer {
	return &Importer{processor: p, store: p.Store()}
}

// Run executes one import end to end and returns the reference ID of the
// importer log tracking it. The returned log reflects the final state; a
// validation failure is not an error, it is a FAILED run with a report.
func (imp *Importer) Run(req Request) (*models.ImporterLog, error) {
	if req.Mode == "" {
		req.Mode = models.ImportOverwrite
	}
	if req.Mode != models.ImportOverwrite && req.Mode != models.ImportAppend {
		return nil, models.NewValidationError("invalid import mode "+string(req.Mode), "body", "import_mode")
	}

	if err := imp.processor.Quota().CheckImporterLimit(req.Tenant); err != nil {
		return nil, err
	}
	if err := imp.store.AcquireEventLock(req.Tenant, EventClassDataImporter); err != nil {
		return nil, err
	}
	defer func() {
		if err := imp.store.ReleaseEventLock(req.Tenant, EventClassDataImporter); err != nil {
			slog.Error("Importer.Run: failed to release event lock", "error", err, "tenant", req.Tenant)
		}
	}()

	upload, err := ClassifyFiles(req.Files)
	if err != nil {
		return nil, err
	}

	log := &models.ImporterLog{
		Tenant:         req.Tenant,
		User:           req.User,
		ReferenceID:    util.GenerateReferenceID(),
		FilesReceived:  upload.Names,
		Mode:           req.Mode,
		IsDataUploaded: len(upload.Files) > 0,
		EventStatus:    models.EventEnqueued,
		StartTimestamp: time.Now(),
	}
	if _, err := imp.store.SaveImporterLog(log); err != nil {
		return nil, err
	}
	slog.Info("Importer.Run: import enqueued", "tenant", req.Tenant, "reference_id", log.ReferenceID, "mode", req.Mode)

	imp.execute(log, upload, req)
	return log, nil
}

// execute drives the log through the event state machine. Failures after the
// log exists land on the log, not in an error return.
func (imp *Importer) execute(log *models.ImporterLog, upload *Upload, req Request) {
	imp.transition(log, models.EventInProgress)

	bundle, err := ParseUpload(upload)
	if err != nil {
		imp.fail(log, err)
		return
	}

	settings, err := imp.processor.Quota().Settings(req.Tenant)
	if err != nil {
		imp.fail(log, err)
		return
	}

	snapshot := bundle
	var conflicts []string
	if req.Mode == models.ImportAppend {
		snapshot, conflicts, err = imp.mergeWithCurrent(req.Tenant, bundle)
		if err != nil {
			imp.fail(log, err)
			return
		}
	}

	report := validator.Validate(snapshot, validator.Options{IgnoreUtterances: settings.IgnoreUtterances})
	for _, conflict := range conflicts {
		if !req.Force {
			report.Domain.Add(conflict)
		}
	}
	log.Report = report

	// A validation report with violations is still a completed run; FAILED
	// is reserved for pipeline errors (parse, commit).
	if report.HasViolations() && !req.Force {
		log.Status = models.ImportFailure
		imp.transition(log, models.EventCompleted)
		return
	}

	if req.ValidateOnly {
		log.Status = models.ImportSuccess
		imp.transition(log, models.EventCompleted)
		return
	}

	if err := imp.commit(req, bundle); err != nil {
		imp.fail(log, err)
		return
	}

	log.Status = models.ImportSuccess
	imp.transition(log, models.EventCompleted)
	imp.processor.Audit().RecordActivity(req.Tenant, req.User, "training data imported", map[string]any{
		"reference_id": log.ReferenceID,
		"mode":         string(req.Mode),
	})
}

func (imp *Importer) transition(log *models.ImporterLog, next models.EventStatus) {
	if !log.CanTransition(next) {
		slog.Error("Importer: illegal event transition", "from", log.EventStatus, "to", next, "reference_id", log.ReferenceID)
		return
	}
	log.EventStatus = next
	if next == models.EventCompleted || next == models.EventFailed {
		now := time.Now()
		log.EndTimestamp = &now
	}
	if err := imp.store.UpdateImporterLog(log); err != nil {
		slog.Error("Importer: failed to persist log transition", "error", err, "reference_id", log.ReferenceID)
	}
}

func (imp *Importer) fail(log *models.ImporterLog, err error) {
	slog.Error("Importer: run failed", "error", err, "tenant", log.Tenant, "reference_id", log.ReferenceID)
	log.Status = models.ImportFailure
	log.Exception = err.Error()
	imp.transition(log, models.EventFailed)
}

// GetLog returns the importer log for a reference ID.
func (imp *Importer) GetLog(tenant, referenceID string) (*models.ImporterLog, error) {
	return imp.store.GetImporterLog(tenant, referenceID)
}

// ListLogs returns the most recent importer runs of a tenant.
func (imp *Importer) ListLogs(tenant string, limit int) ([]models.ImporterLog, error) {
	return imp.store.ListImporterLogs(tenant, limit)
}

// mergeWithCurrent builds the union snapshot validated in append mode:
// everything currently active plus the new bundle. Name conflicts fail the
// run unless it is forced, in which case the commit overwrites them.
func (imp *Importer) mergeWithCurrent(tenant string, bundle *validator.Bundle) (*validator.Bundle, []string, error) {
	current, err := imp.loadCurrent(tenant)
	if err != nil {
		return nil, nil, err
	}
	var conflicts []string
	union := &validator.Bundle{}

	union.Intents = append(union.Intents, current.Intents...)
	names := nameSet(len(current.Intents), func(i int) string { return current.Intents[i].Name })
	for _, intent := range bundle.Intents {
		if names[models.CanonicalName(intent.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Intent already exists: %s", models.CanonicalName(intent.Name)))
			continue
		}
		union.Intents = append(union.Intents, intent)
	}

	union.Entities = append(union.Entities, current.Entities...)
	names = nameSet(len(current.Entities), func(i int) string { return current.Entities[i].Name })
	for _, entity := range bundle.Entities {
		if names[models.CanonicalName(entity.Name)] {
			continue
		}
		union.Entities = append(union.Entities, entity)
	}

	union.Slots = append(union.Slots, current.Slots...)
	names = nameSet(len(current.Slots), func(i int) string { return current.Slots[i].Name })
	for _, slot := range bundle.Slots {
		if names[models.CanonicalName(slot.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Slot already exists: %s", models.CanonicalName(slot.Name)))
			continue
		}
		union.Slots = append(union.Slots, slot)
	}

	union.SlotMappings = append(union.SlotMappings, current.SlotMappings...)
	names = nameSet(len(current.SlotMappings), func(i int) string { return current.SlotMappings[i].Slot })
	for _, mapping := range bundle.SlotMappings {
		if names[models.CanonicalName(mapping.Slot)] {
			continue
		}
		union.SlotMappings = append(union.SlotMappings, mapping)
	}

	union.TrainingExamples = append(union.TrainingExamples, current.TrainingExamples...)
	names = nameSet(len(current.TrainingExamples), func(i int) string { return current.TrainingExamples[i].Text })
	for _, example := range bundle.TrainingExamples {
		if names[models.CanonicalName(example.Text)] {
			continue
		}
		union.TrainingExamples = append(union.TrainingExamples, example)
	}

	union.Responses = append(union.Responses, current.Responses...)
	names = nameSet(len(current.Responses), func(i int) string { return current.Responses[i].Name })
	for _, response := range bundle.Responses {
		if names[models.CanonicalName(response.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Utterance already exists: %s", models.CanonicalName(response.Name)))
			continue
		}
		union.Responses = append(union.Responses, response)
	}

	union.Actions = append(union.Actions, current.Actions...)
	names = nameSet(len(current.Actions), func(i int) string { return current.Actions[i].Name })
	for _, action := range bundle.Actions {
		if names[models.CanonicalName(action.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Action already exists: %s", models.CanonicalName(action.Name)))
			continue
		}
		union.Actions = append(union.Actions, action)
	}

	union.Stories = append(union.Stories, current.Stories...)
	names = nameSet(len(current.Stories), func(i int) string { return current.Stories[i].Name })
	for _, story := range bundle.Stories {
		if names[models.CanonicalName(story.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Story already exists: %s", models.CanonicalName(story.Name)))
			continue
		}
		union.Stories = append(union.Stories, story)
	}

	union.Rules = append(union.Rules, current.Rules...)
	names = nameSet(len(current.Rules), func(i int) string { return current.Rules[i].Name })
	for _, rule := range bundle.Rules {
		if names[models.CanonicalName(rule.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Rule already exists: %s", models.CanonicalName(rule.Name)))
			continue
		}
		union.Rules = append(union.Rules, rule)
	}

	union.MultiflowStories = append(union.MultiflowStories, current.MultiflowStories...)
	names = nameSet(len(current.MultiflowStories), func(i int) string { return current.MultiflowStories[i].Name })
	for _, flow := range bundle.MultiflowStories {
		if names[models.CanonicalName(flow.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Multiflow story already exists: %s", models.CanonicalName(flow.Name)))
			continue
		}
		union.MultiflowStories = append(union.MultiflowStories, flow)
	}

	union.Forms = append(union.Forms, current.Forms...)
	names = nameSet(len(current.Forms), func(i int) string { return current.Forms[i].Name })
	for _, form := range bundle.Forms {
		if names[models.CanonicalName(form.Name)] {
			conflicts = append(conflicts, fmt.Sprintf("Form already exists: %s", models.CanonicalName(form.Name)))
			continue
		}
		union.Forms = append(union.Forms, form)
	}

	union.LookupTables = append(current.LookupTables, bundle.LookupTables...)
	union.Synonyms = append(current.Synonyms, bundle.Synonyms...)
	union.RegexFeatures = append(current.RegexFeatures, bundle.RegexFeatures...)

	union.CognitionSchemas = append(union.CognitionSchemas, current.CognitionSchemas...)
	names = nameSet(len(current.CognitionSchemas), func(i int) string { return current.CognitionSchemas[i].CollectionName })
	for _, schema := range bundle.CognitionSchemas {
		if names[models.CanonicalName(schema.CollectionName)] {
			continue
		}
		union.CognitionSchemas = append(union.CognitionSchemas, schema)
	}
	// Rows without a declared schema get one inferred from their first
	// occurrence; append mode auto-creates collections.
	for _, row := range bundle.CognitionData {
		if obj, ok := row.Data.(map[string]any); ok && row.ContentType == models.ContentTypeJSON {
			if !hasSchema(union.CognitionSchemas, row.Collection) {
				union.CognitionSchemas = append(union.CognitionSchemas, models.InferSchema(row.Collection, obj))
			}
		}
	}
	union.CognitionData = append(current.CognitionData, bundle.CognitionData...)

	union.Config = bundle.Config
	if union.Config == nil {
		union.Config = current.Config
	}
	union.ChatClientConfig = bundle.ChatClientConfig
	if union.ChatClientConfig == nil {
		union.ChatClientConfig = current.ChatClientConfig
	}
	return union, conflicts, nil
}

func nameSet(n int, name func(int) string) map[string]bool {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		set[models.CanonicalName(name(i))] = true
	}
	return set
}

func hasSchema(schemas []models.CognitionSchema, collection string) bool {
	canonical := models.CanonicalName(collection)
	for _, schema := range schemas {
		if models.CanonicalName(schema.CollectionName) == canonical {
			return true
		}
	}
	return false
}

// loadCurrent reads the tenant's full active snapshot.
func (imp *Importer) loadCurrent(tenant string) (*validator.Bundle, error) {
	p := imp.processor
	bundle := &validator.Bundle{}
	var err error

	if bundle.Intents, err = p.ListIntents(tenant); err != nil {
		return nil, err
	}
	if bundle.TrainingExamples, err = p.ListTrainingExamples(tenant, ""); err != nil {
		return nil, err
	}
	if bundle.Entities, err = p.ListEntities(tenant); err != nil {
		return nil, err
	}
	if bundle.Slots, err = p.ListSlots(tenant); err != nil {
		return nil, err
	}
	if bundle.SlotMappings, err = p.ListSlotMappings(tenant); err != nil {
		return nil, err
	}
	if bundle.Responses, err = p.ListResponses(tenant); err != nil {
		return nil, err
	}
	if bundle.Stories, err = p.ListStories(tenant); err != nil {
		return nil, err
	}
	if bundle.Rules, err = p.ListRules(tenant); err != nil {
		return nil, err
	}
	if bundle.MultiflowStories, err = p.ListMultiflowStories(tenant); err != nil {
		return nil, err
	}
	if bundle.Forms, err = p.ListForms(tenant); err != nil {
		return nil, err
	}
	if bundle.LookupTables, err = p.ListLookupTables(tenant); err != nil {
		return nil, err
	}
	if bundle.Synonyms, err = p.ListSynonyms(tenant); err != nil {
		return nil, err
	}
	if bundle.RegexFeatures, err = p.ListRegexFeatures(tenant); err != nil {
		return nil, err
	}
	if bundle.Actions, err = p.ListActions(tenant, ""); err != nil {
		return nil, err
	}
	if bundle.CognitionSchemas, err = p.ListCognitionSchemas(tenant); err != nil {
		return nil, err
	}
	rows, err := p.ListCognitionData(tenant, "")
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		bundle.CognitionData = append(bundle.CognitionData, row.Data)
	}
	return bundle, nil
}

// marshalDoc is the JSON encoding used by the commit path.
func marshalDoc(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
