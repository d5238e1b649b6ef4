package validator

import (
	"strings"
	"testing"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
)

func validBundle() *Bundle {
	return &Bundle{
		Intents: []models.Intent{{Name: "greet"}},
		TrainingExamples: []models.TrainingExample{
			{Intent: "greet", Text: "hello there"},
		},
		Responses: []models.Response{
			{Name: "utter_greet", Variants: []models.ResponseVariant{{Text: "Hello!"}}},
		},
		Stories: []models.Story{
			{Name: "greet path", Steps: []models.Step{
				{Name: "greet", Type: models.StepIntent},
				{Name: "utter_greet", Type: models.StepBot},
			}},
		},
	}
}

func TestValidateCleanBundle(t *testing.T) {
	report := Validate(validBundle(), Options{})
	if report.HasViolations() {
		t.Errorf("Validate() clean bundle violations = %v", report.Violations())
	}
}

func TestIntentWithoutExamples(t *testing.T) {
	b := validBundle()
	b.Intents = append(b.Intents, models.Intent{Name: "deny"})

	report := Validate(b, Options{})
	if !containsViolation(report.Intents.Data, "There is no example for intent: deny") {
		t.Errorf("Validate() intents report = %v", report.Intents.Data)
	}
}

func TestUndefinedIntentInStory(t *testing.T) {
	b := validBundle()
	b.Stories = append(b.Stories, models.Story{
		Name: "broken path",
		Steps: []models.Step{
			{Name: "missing_intent", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		},
	})

	report := Validate(b, Options{})
	if !containsViolation(report.Stories.Data, `Undefined intent "missing_intent"`) {
		t.Errorf("Validate() stories report = %v", report.Stories.Data)
	}
}

func TestOrphanUtterance(t *testing.T) {
	b := validBundle()
	b.Responses = append(b.Responses, models.Response{
		Name:     "utter_unused",
		Variants: []models.ResponseVariant{{Text: "never shown"}},
	})

	report := Validate(b, Options{})
	if !containsViolation(report.Utterances.Data, "utter_unused is not used by any flow") {
		t.Errorf("Validate() utterances report = %v", report.Utterances.Data)
	}

	// ignore_utterances suppresses the orphan check.
	report = Validate(b, Options{IgnoreUtterances: true})
	if report.HasViolations() {
		t.Errorf("Validate() with IgnoreUtterances violations = %v", report.Violations())
	}
}

func TestFormAskUtteranceNotOrphan(t *testing.T) {
	b := validBundle()
	b.Slots = []models.Slot{{Name: "cuisine", Type: models.SlotTypeText}}
	b.Forms = []models.Form{{
		Name: "restaurant_form",
		Settings: []models.FormSetting{
			{Slot: "cuisine", AskQuestions: []string{"What cuisine?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
		},
	}}
	b.Responses = append(b.Responses, models.Response{
		Name:     models.AskUtteranceName("restaurant_form", "cuisine"),
		Variants: []models.ResponseVariant{{Text: "What cuisine?"}},
	})

	report := Validate(b, Options{})
	if report.HasViolations() {
		t.Errorf("Validate() violations = %v", report.Violations())
	}
}

func TestMultiIntentRules(t *testing.T) {
	b := validBundle()
	b.Rules = []models.Rule{
		{Name: "rule one", Steps: []models.Step{
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		}},
		{Name: "rule two", Steps: []models.Step{
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		}},
	}

	report := Validate(b, Options{})
	if len(report.Rules.Data) != 1 {
		t.Fatalf("Validate() rules report = %v, want one aggregated violation", report.Rules.Data)
	}
	msg := report.Rules.Data[0]
	if !strings.Contains(msg, "rule one, rule two") || !strings.Contains(msg, "that contain more than intent") {
		t.Errorf("Validate() multi-intent message = %q", msg)
	}
}

func TestFormWithAnySlot(t *testing.T) {
	b := validBundle()
	b.Slots = []models.Slot{{Name: "misc", Type: models.SlotTypeAny}}
	b.Forms = []models.Form{{
		Name: "bad_form",
		Settings: []models.FormSetting{
			{Slot: "misc", AskQuestions: []string{"Anything?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
		},
	}}
	b.Responses = append(b.Responses, models.Response{
		Name:     models.AskUtteranceName("bad_form", "misc"),
		Variants: []models.ResponseVariant{{Text: "Anything?"}},
	})

	report := Validate(b, Options{})
	if !containsViolation(report.Domain.Data, "cannot have any type slot") {
		t.Errorf("Validate() domain report = %v", report.Domain.Data)
	}
}

func TestActionValidationPartitionedByKind(t *testing.T) {
	b := validBundle()
	b.Actions = []models.Action{
		{
			Name: "broken_http",
			Type: models.ActionTypeHTTP,
			HTTP: &models.HTTPActionConfig{HTTPURL: "not a url", RequestMethod: models.MethodGET},
		},
		{
			Name:     "kb_query",
			Type:     models.ActionTypeDatabase,
			Database: &models.DatabaseActionConfig{Collection: "kb", QueryType: models.QueryEmbeddingSearch},
		},
	}

	report := Validate(b, Options{})
	httpReport := report.ActionReportFor(models.ActionTypeHTTP)
	if httpReport.Count != 1 || !containsViolation(httpReport.Data, "URL is malformed") {
		t.Errorf("Validate() http_actions report = %+v", httpReport)
	}
	dbReport := report.ActionReportFor(models.ActionTypeDatabase)
	if !containsViolation(dbReport.Data, "undefined collection: kb") {
		t.Errorf("Validate() database_actions report = %+v", dbReport)
	}
}

func TestBotContentValidation(t *testing.T) {
	b := validBundle()
	b.CognitionSchemas = []models.CognitionSchema{{
		CollectionName: "products",
		Metadata: []models.ColumnMetadata{
			{ColumnName: "title", DataType: models.CognitionTypeStr},
		},
	}}
	b.CognitionData = []models.CognitionData{
		{Collection: "products", ContentType: models.ContentTypeJSON, Data: map[string]any{"title": "chair"}},
		{Collection: "products", ContentType: models.ContentTypeJSON, Data: map[string]any{"missing": "x"}},
	}

	report := Validate(b, Options{})
	if len(report.BotContent.Data) != 1 {
		t.Errorf("Validate() bot content report = %v", report.BotContent.Data)
	}
}

func TestConfigValidation(t *testing.T) {
	b := validBundle()
	b.Config = &dataset.ModelConfig{
		Language: "en",
		Pipeline: []map[string]any{{"name": "WhitespaceTokenizer"}, {"epochs": 100}},
		Policies: []map[string]any{{"name": "RulePolicy"}},
	}

	report := Validate(b, Options{})
	if !containsViolation(report.Config.Data, "pipeline component without a name") {
		t.Errorf("Validate() config report = %v", report.Config.Data)
	}

	// Component names outside the declared enumerations are flagged.
	b = validBundle()
	b.Config = &dataset.ModelConfig{
		Language: "en",
		Pipeline: []map[string]any{{"name": "MadeUpFeaturizer"}},
		Policies: []map[string]any{{"name": "MadeUpPolicy"}},
	}
	report = Validate(b, Options{})
	if !containsViolation(report.Config.Data, "unknown pipeline component MadeUpFeaturizer") {
		t.Errorf("Validate() config report = %v", report.Config.Data)
	}
	if !containsViolation(report.Config.Data, "unknown policy MadeUpPolicy") {
		t.Errorf("Validate() config report = %v", report.Config.Data)
	}

	// The seeded default config is clean.
	b = validBundle()
	defaultConfig := dataset.DefaultModelConfig()
	b.Config = &defaultConfig
	report = Validate(b, Options{})
	if len(report.Config.Data) != 0 {
		t.Errorf("Validate() default config report = %v", report.Config.Data)
	}

	// Absent config is not a violation.
	b = validBundle()
	report = Validate(b, Options{})
	if len(report.Config.Data) != 0 {
		t.Errorf("Validate() nil config report = %v", report.Config.Data)
	}
}

func containsViolation(data []string, substr string) bool {
	for _, msg := range data {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
