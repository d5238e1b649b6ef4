package exporter

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/importer"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

const (
	testTenant = "bot1"
	testUser   = "alice"
)

func newTestProcessor(t *testing.T) *dataset.Processor {
	t.Helper()
	p := dataset.NewProcessor(store.NewInMemoryStore())
	if err := p.SeedTenant(testTenant, testUser); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return p
}

func seedTrainingData(t *testing.T, p *dataset.Processor) {
	t.Helper()
	for _, text := range []string{"hi", "hello there"} {
		if err := p.AddTrainingExample(testTenant, testUser, models.TrainingExample{Intent: "greet", Text: text}); err != nil {
			t.Fatalf("AddTrainingExample: %v", err)
		}
	}
	if err := p.AddResponse(testTenant, testUser, models.Response{
		Name:     "utter_greet",
		Variants: []models.ResponseVariant{{Text: "Hey there!"}},
	}); err != nil {
		t.Fatalf("AddResponse: %v", err)
	}
	if err := p.AddEntity(testTenant, testUser, models.Entity{Name: "city"}); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "location", Type: models.SlotTypeText}); err != nil {
		t.Fatalf("AddSlot: %v", err)
	}
	if err := p.AddSynonym(testTenant, testUser, models.Synonym{Name: "ny", Values: []string{"new york", "the big apple"}}); err != nil {
		t.Fatalf("AddSynonym: %v", err)
	}
	if err := p.AddStory(testTenant, testUser, models.Story{
		Name: "greet user",
		Steps: []models.Step{
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		},
	}); err != nil {
		t.Fatalf("AddStory: %v", err)
	}
	if err := p.AddMultiflowStory(testTenant, testUser, models.MultiflowStory{
		Name: "greet branches",
		Steps: []models.MultiflowStep{
			{NodeID: "1", ComponentID: "c1", Name: "greet", Type: models.StepIntent, Connections: []string{"2"}},
			{NodeID: "2", ComponentID: "c2", Name: "utter_greet", Type: models.StepBot},
		},
	}); err != nil {
		t.Fatalf("AddMultiflowStory: %v", err)
	}
	if err := p.AddCognitionSchema(testTenant, testUser, models.CognitionSchema{
		CollectionName: "cities",
		Metadata:       []models.ColumnMetadata{{ColumnName: "name", DataType: models.CognitionTypeStr, EnableSearch: true}},
	}); err != nil {
		t.Fatalf("AddCognitionSchema: %v", err)
	}
	if _, err := p.AddCognitionData(testTenant, testUser, models.CognitionData{
		Collection:  "cities",
		ContentType: models.ContentTypeJSON,
		Data:        map[string]any{"name": "Boston"},
	}); err != nil {
		t.Fatalf("AddCognitionData: %v", err)
	}
}

func TestExportFiles(t *testing.T) {
	p := newTestProcessor(t)
	seedTrainingData(t, p)

	files, err := New(p).Files(testTenant)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	for _, name := range []string{"nlu.yml", "domain.yml", "data/stories.yml", "config.yml"} {
		if _, ok := files[name]; !ok {
			t.Errorf("%s missing from export", name)
		}
	}
	if _, ok := files["data/rules.yml"]; ok {
		t.Error("data/rules.yml exported for tenant with no rules")
	}
	if _, ok := files["bot_content.yml"]; ok {
		t.Error("bot_content.yml exported for tenant with no cognition data")
	}
}

// An exported archive must re-import without violations and reproduce the
// tenant's data.
func TestExportImportRoundTrip(t *testing.T) {
	source := newTestProcessor(t)
	seedTrainingData(t, source)

	archive, err := New(source).Export(testTenant)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	target := dataset.NewProcessor(store.NewInMemoryStore())
	if err := target.SeedTenant(testTenant, testUser); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	log, err := importer.New(target).Run(importer.Request{
		Tenant: testTenant,
		User:   testUser,
		Files:  map[string][]byte{"export.zip": archive},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if log.EventStatus != models.EventCompleted || log.Status != models.ImportSuccess {
		t.Fatalf("import of export failed: %v", log.Report.Violations())
	}

	examples, err := target.ListTrainingExamples(testTenant, "greet")
	if err != nil {
		t.Fatalf("ListTrainingExamples: %v", err)
	}
	if len(examples) != 2 {
		t.Errorf("greet examples = %d, want 2", len(examples))
	}
	if _, err := target.GetResponse(testTenant, "utter_greet"); err != nil {
		t.Errorf("utter_greet lost in round trip: %v", err)
	}
	if _, err := target.GetSlot(testTenant, "location"); err != nil {
		t.Errorf("slot lost in round trip: %v", err)
	}
	stories, err := target.ListStories(testTenant)
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if len(stories) != 1 || stories[0].Name != "greet user" {
		t.Errorf("stories = %+v, want the seeded story", stories)
	}
	synonyms, err := target.ListSynonyms(testTenant)
	if err != nil {
		t.Fatalf("ListSynonyms: %v", err)
	}
	if len(synonyms) != 1 || len(synonyms[0].Values) != 2 {
		t.Errorf("synonyms = %+v, want one with two values", synonyms)
	}
	multiflows, err := target.ListMultiflowStories(testTenant)
	if err != nil {
		t.Fatalf("ListMultiflowStories: %v", err)
	}
	if len(multiflows) != 1 || len(multiflows[0].Steps) != 2 {
		t.Fatalf("multiflow stories = %+v, want the seeded flow", multiflows)
	}
	if got := multiflows[0].Steps[0].Connections; len(got) != 1 || got[0] != "2" {
		t.Errorf("multiflow connections = %v, want [2]", got)
	}
	schemas, err := target.ListCognitionSchemas(testTenant)
	if err != nil {
		t.Fatalf("ListCognitionSchemas: %v", err)
	}
	if len(schemas) != 1 || len(schemas[0].Metadata) != 1 || !schemas[0].Metadata[0].EnableSearch {
		t.Errorf("cognition schemas = %+v, want the seeded schema", schemas)
	}
	rows, err := target.ListCognitionData(testTenant, "cities")
	if err != nil {
		t.Fatalf("ListCognitionData: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("cognition rows = %d, want 1", len(rows))
	}
}

// The emitted files must use the documented external shapes: a top-level
// multiflow_story key with step/connections events, and bot_content.yml as a
// list of collection items.
func TestExportedFileShapes(t *testing.T) {
	p := newTestProcessor(t)
	seedTrainingData(t, p)

	files, err := New(p).Files(testTenant)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	var multiflow struct {
		MultiflowStory []struct {
			Name   string `yaml:"block_name"`
			Events []struct {
				Step struct {
					NodeID string `yaml:"node_id"`
					Name   string `yaml:"name"`
				} `yaml:"step"`
				Connections []struct {
					NodeID string `yaml:"node_id"`
				} `yaml:"connections"`
			} `yaml:"events"`
		} `yaml:"multiflow_story"`
	}
	if err := yaml.Unmarshal(files["multiflow_stories.yml"], &multiflow); err != nil {
		t.Fatalf("unmarshal multiflow_stories.yml: %v", err)
	}
	if len(multiflow.MultiflowStory) != 1 {
		t.Fatalf("multiflow_story entries = %d, want 1", len(multiflow.MultiflowStory))
	}
	events := multiflow.MultiflowStory[0].Events
	if len(events) != 2 || events[0].Step.NodeID == "" {
		t.Fatalf("events = %+v, want two step nodes", events)
	}
	if len(events[0].Connections) != 1 || events[0].Connections[0].NodeID != "2" {
		t.Errorf("connections = %+v, want successor node 2", events[0].Connections)
	}

	var content []struct {
		Collection  string `yaml:"collection"`
		ContentType string `yaml:"content_type"`
		Metadata    []struct {
			ColumnName string `yaml:"column_name"`
		} `yaml:"metadata"`
		Data []any `yaml:"data"`
	}
	if err := yaml.Unmarshal(files["bot_content.yml"], &content); err != nil {
		t.Fatalf("unmarshal bot_content.yml: %v", err)
	}
	if len(content) != 1 {
		t.Fatalf("bot_content items = %d, want 1", len(content))
	}
	item := content[0]
	if item.Collection != "cities" || item.ContentType != "json" {
		t.Errorf("item = %+v, want cities/json", item)
	}
	if len(item.Metadata) != 1 || item.Metadata[0].ColumnName != "name" {
		t.Errorf("metadata = %+v, want the name column", item.Metadata)
	}
	if len(item.Data) != 1 {
		t.Errorf("data rows = %d, want 1", len(item.Data))
	}
}
