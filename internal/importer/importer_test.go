package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

const (
	testTenant = "bot1"
	testUser   = "alice"
)

func newTestImporter(t *testing.T) (*Importer, *dataset.Processor) {
	t.Helper()
	p := dataset.NewProcessor(store.NewInMemoryStore())
	if err := p.SeedTenant(testTenant, testUser); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return New(p), p
}

const testNLU = `nlu:
- intent: greet
  examples: |
    - hi
    - hello there
- synonym: ny
  examples: |
    - new york
    - the big apple
- regex: zipcode
  examples: |
    - [0-9]{5}
- lookup: city
  examples: |
    - mumbai
    - delhi
`

const testDomain = `intents:
- greet
- name: affirm
  use_entities: true
entities:
- city
slots:
  location:
    type: text
    influence_conversation: true
responses:
  utter_greet:
  - text: Hey there!
  utter_affirm:
  - text: Great!
`

const testStories = `stories:
- block_name: greet user
  events:
  - name: greet
    type: INTENT
  - name: utter_greet
    type: BOT
- block_name: affirm user
  events:
  - name: affirm
    type: INTENT
  - name: utter_affirm
    type: BOT
`

const testNLUAffirm = `nlu:
- intent: affirm
  examples: |
    - yes
    - sure
`

// validFiles returns an upload that passes cross-reference validation.
func validFiles() map[string][]byte {
	return map[string][]byte{
		"nlu.yml":     []byte(testNLU + strings.TrimPrefix(testNLUAffirm, "nlu:\n")),
		"domain.yml":  []byte(testDomain),
		"stories.yml": []byte(testStories),
	}
}

func TestClassifyFiles(t *testing.T) {
	upload, err := ClassifyFiles(map[string][]byte{
		"nlu.yml":     []byte("nlu: []"),
		"domain.yaml": []byte("intents: []"),
		"readme.md":   []byte("not training data"),
		"nlu.json":    []byte("{}"),
	})
	if err != nil {
		t.Fatalf("ClassifyFiles: %v", err)
	}
	if _, ok := upload.Files[FileNLU]; !ok {
		t.Error("nlu.yml not classified")
	}
	if _, ok := upload.Files[FileDomain]; !ok {
		t.Error("domain.yaml not classified")
	}
	if len(upload.Unknown) != 2 {
		t.Errorf("unknown files = %v, want readme.md and nlu.json", upload.Unknown)
	}
	if len(upload.Names) != 4 {
		t.Errorf("names = %v, want all four files recorded", upload.Names)
	}
}

func TestClassifyZipArchive(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"data/nlu.yml":    "nlu: []",
		"data/domain.yml": "intents: []",
	} {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	upload, err := ClassifyFiles(map[string][]byte{"training.zip": buf.Bytes()})
	if err != nil {
		t.Fatalf("ClassifyFiles: %v", err)
	}
	if _, ok := upload.Files[FileNLU]; !ok {
		t.Error("nlu.yml not extracted from archive")
	}
	if _, ok := upload.Files[FileDomain]; !ok {
		t.Error("domain.yml not extracted from archive")
	}
}

func TestClassifyRejectsCorruptArchive(t *testing.T) {
	_, err := ClassifyFiles(map[string][]byte{"training.zip": []byte("not a zip")})
	if err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestParseUpload(t *testing.T) {
	upload, err := ClassifyFiles(validFiles())
	if err != nil {
		t.Fatalf("ClassifyFiles: %v", err)
	}
	bundle, err := ParseUpload(upload)
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}

	if len(bundle.Intents) != 2 {
		t.Fatalf("intents = %d, want 2", len(bundle.Intents))
	}
	if bundle.Intents[0].Name != "greet" {
		t.Errorf("first intent = %q, want greet", bundle.Intents[0].Name)
	}
	if !bundle.Intents[1].UseEntities {
		t.Error("mapping-style intent lost use_entities")
	}
	if len(bundle.TrainingExamples) != 4 {
		t.Errorf("training examples = %d, want 4", len(bundle.TrainingExamples))
	}
	if len(bundle.Synonyms) != 1 || len(bundle.Synonyms[0].Values) != 2 {
		t.Errorf("synonyms = %+v, want one with two values", bundle.Synonyms)
	}
	if len(bundle.RegexFeatures) != 1 || bundle.RegexFeatures[0].Pattern != "[0-9]{5}" {
		t.Errorf("regex features = %+v", bundle.RegexFeatures)
	}
	if len(bundle.LookupTables) != 1 || len(bundle.LookupTables[0].Values) != 2 {
		t.Errorf("lookup tables = %+v", bundle.LookupTables)
	}
	if len(bundle.Slots) != 1 || bundle.Slots[0].Name != "location" {
		t.Errorf("slots = %+v", bundle.Slots)
	}
	if len(bundle.Responses) != 2 {
		t.Errorf("responses = %d, want 2", len(bundle.Responses))
	}
	if len(bundle.Stories) != 2 {
		t.Errorf("stories = %d, want 2", len(bundle.Stories))
	}
}

func TestParseMultiflowAndBotContent(t *testing.T) {
	multiflow := `multiflow_story:
- block_name: greet path
  events:
  - step:
      node_id: "1"
      component_id: c1
      name: greet
      type: INTENT
    connections:
    - node_id: "2"
      component_id: c2
      name: utter_greet
      type: BOT
  - step:
      node_id: "2"
      component_id: c2
      name: utter_greet
      type: BOT
`
	botContent := `- collection: cities
  content_type: json
  metadata:
  - column_name: name
    data_type: str
    enable_search: true
    create_embeddings: true
  data:
  - name: Boston
  - name: Paris
`
	upload, err := ClassifyFiles(map[string][]byte{
		"multiflow_stories.yml": []byte(multiflow),
		"bot_content.yml":       []byte(botContent),
	})
	if err != nil {
		t.Fatalf("ClassifyFiles: %v", err)
	}
	bundle, err := ParseUpload(upload)
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}

	if len(bundle.MultiflowStories) != 1 {
		t.Fatalf("multiflow stories = %d, want 1", len(bundle.MultiflowStories))
	}
	story := bundle.MultiflowStories[0]
	if story.Name != "greet path" || len(story.Steps) != 2 {
		t.Fatalf("story = %+v", story)
	}
	if got := story.Steps[0].Connections; len(got) != 1 || got[0] != "2" {
		t.Errorf("connections = %v, want node 2", got)
	}
	if story.Steps[0].ComponentID != "c1" || story.Steps[0].Type != models.StepIntent {
		t.Errorf("step = %+v", story.Steps[0])
	}

	if len(bundle.CognitionSchemas) != 1 {
		t.Fatalf("schemas = %d, want 1", len(bundle.CognitionSchemas))
	}
	schema := bundle.CognitionSchemas[0]
	if schema.CollectionName != "cities" || len(schema.Metadata) != 1 || !schema.Metadata[0].EnableSearch {
		t.Errorf("schema = %+v", schema)
	}
	if len(bundle.CognitionData) != 2 {
		t.Fatalf("cognition rows = %d, want 2", len(bundle.CognitionData))
	}
	row := bundle.CognitionData[0]
	if row.Collection != "cities" || row.ContentType != models.ContentTypeJSON {
		t.Errorf("row = %+v", row)
	}
	if payload, ok := row.Data.(map[string]any); !ok || payload["name"] != "Boston" {
		t.Errorf("row data = %#v", row.Data)
	}
}

func TestRunOverwriteSuccess(t *testing.T) {
	imp, p := newTestImporter(t)

	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, violations: %v", log.EventStatus, log.Report.Violations())
	}
	if log.Status != models.ImportSuccess {
		t.Errorf("status = %s, want %s", log.Status, models.ImportSuccess)
	}
	if log.EndTimestamp == nil {
		t.Error("end timestamp not set")
	}
	if log.ReferenceID == "" {
		t.Error("reference ID not set")
	}

	intents, err := p.ListIntents(testTenant)
	if err != nil {
		t.Fatalf("ListIntents: %v", err)
	}
	byName := map[string]bool{}
	for _, intent := range intents {
		byName[intent.Name] = true
	}
	if !byName["greet"] || !byName["affirm"] {
		t.Errorf("imported intents missing: %v", byName)
	}
	for _, reserved := range models.ReservedIntentNames {
		if !byName[reserved] {
			t.Errorf("reserved intent %s not restored after overwrite", reserved)
		}
	}

	examples, err := p.ListTrainingExamples(testTenant, "greet")
	if err != nil {
		t.Fatalf("ListTrainingExamples: %v", err)
	}
	if len(examples) != 2 {
		t.Errorf("greet examples = %d, want 2", len(examples))
	}
	if _, err := p.GetResponse(testTenant, "utter_greet"); err != nil {
		t.Errorf("utter_greet not committed: %v", err)
	}
	stories, err := p.ListStories(testTenant)
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if len(stories) != 2 {
		t.Errorf("stories = %d, want 2", len(stories))
	}

	stored, err := imp.GetLog(testTenant, log.ReferenceID)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if stored.EventStatus != models.EventCompleted {
		t.Errorf("persisted log status = %s", stored.EventStatus)
	}
}

func TestRunValidationFailure(t *testing.T) {
	imp, p := newTestImporter(t)

	files := validFiles()
	files["stories.yml"] = []byte(`stories:
- block_name: broken flow
  events:
  - name: nonexistent
    type: INTENT
  - name: utter_greet
    type: BOT
`)
	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: files})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The run itself completes; the validation outcome is the failure.
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, want %s", log.EventStatus, models.EventCompleted)
	}
	if log.Status != models.ImportFailure {
		t.Errorf("status = %s, want %s", log.Status, models.ImportFailure)
	}
	if !log.Report.HasViolations() {
		t.Error("report carries no violations")
	}

	// Nothing may be committed on a failed run.
	intents, err := p.ListIntents(testTenant)
	if err != nil {
		t.Fatalf("ListIntents: %v", err)
	}
	for _, intent := range intents {
		if intent.Name == "greet" {
			t.Error("greet committed despite failed validation")
		}
	}
}

func TestRunValidateOnly(t *testing.T) {
	imp, p := newTestImporter(t)

	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles(), ValidateOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, violations: %v", log.EventStatus, log.Report.Violations())
	}
	if log.Status != models.ImportSuccess {
		t.Errorf("status = %s, want %s", log.Status, models.ImportSuccess)
	}

	// Validation-only runs must leave the store untouched.
	intents, err := p.ListIntents(testTenant)
	if err != nil {
		t.Fatalf("ListIntents: %v", err)
	}
	for _, intent := range intents {
		if intent.Name == "greet" {
			t.Error("greet committed on a validate-only run")
		}
	}
}

func TestRunForceImport(t *testing.T) {
	imp, p := newTestImporter(t)

	files := validFiles()
	files["stories.yml"] = []byte(`stories:
- block_name: broken flow
  events:
  - name: nonexistent
    type: INTENT
  - name: utter_greet
    type: BOT
`)
	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: files, Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, want forced run committed", log.EventStatus)
	}
	if !log.Report.HasViolations() {
		t.Error("forced run should still carry the report")
	}
	if _, err := p.GetIntent(testTenant, "greet"); err != nil {
		t.Errorf("greet not committed by forced run: %v", err)
	}
}

func TestRunAppendConflict(t *testing.T) {
	imp, p := newTestImporter(t)
	if err := p.AddTrainingExample(testTenant, testUser, models.TrainingExample{Intent: "greet", Text: "good morning"}); err != nil {
		t.Fatalf("AddTrainingExample: %v", err)
	}

	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles(), Mode: models.ImportAppend})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, want %s", log.EventStatus, models.EventCompleted)
	}
	if log.Status != models.ImportFailure {
		t.Fatalf("status = %s, want conflict failure", log.Status)
	}
	found := false
	for _, violation := range log.Report.Domain.Data {
		if strings.Contains(violation, "Intent already exists: greet") {
			found = true
		}
	}
	if !found {
		t.Errorf("conflict not reported: %v", log.Report.Domain.Data)
	}
}

func TestRunAppendForceOverwritesConflicts(t *testing.T) {
	imp, p := newTestImporter(t)
	if err := p.AddTrainingExample(testTenant, testUser, models.TrainingExample{Intent: "greet", Text: "good morning"}); err != nil {
		t.Fatalf("AddTrainingExample: %v", err)
	}

	log, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles(), Mode: models.ImportAppend, Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted {
		t.Fatalf("event status = %s, violations: %v", log.EventStatus, log.Report.Violations())
	}

	examples, err := p.ListTrainingExamples(testTenant, "greet")
	if err != nil {
		t.Fatalf("ListTrainingExamples: %v", err)
	}
	if len(examples) != 3 {
		t.Errorf("greet examples = %d, want existing one plus two appended", len(examples))
	}
}

func TestRunQuotaExceeded(t *testing.T) {
	imp, p := newTestImporter(t)
	settings := models.DefaultBotSettings(testTenant)
	settings.DataImporterLimitPerDay = 0
	if err := p.Store().SaveBotSettings(settings); err != nil {
		t.Fatalf("SaveBotSettings: %v", err)
	}

	_, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()})
	var limitErr *models.DailyLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want DailyLimitExceededError", err)
	}
}

func TestRunRejectedWhileLockHeld(t *testing.T) {
	imp, p := newTestImporter(t)
	if err := p.Store().AcquireEventLock(testTenant, EventClassDataImporter); err != nil {
		t.Fatalf("AcquireEventLock: %v", err)
	}

	_, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()})
	var inProgress *models.EventAlreadyInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("err = %v, want EventAlreadyInProgressError", err)
	}
}

func TestRunReleasesLock(t *testing.T) {
	imp, _ := newTestImporter(t)
	if _, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()}); err != nil {
		t.Fatalf("second run should proceed after lock release: %v", err)
	}
}

func TestRunInvalidMode(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles(), Mode: "merge"})
	var validation *models.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestListLogsNewestFirst(t *testing.T) {
	imp, _ := newTestImporter(t)
	first, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := imp.Run(Request{Tenant: testTenant, User: testUser, Files: validFiles()})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	logs, err := imp.ListLogs(testTenant, 10)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if logs[0].ReferenceID != second.ReferenceID || logs[1].ReferenceID != first.ReferenceID {
		t.Error("logs not ordered newest first")
	}
}
