package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/store"
)

const (
	testTenant = "bot1"
	testUser   = "alice"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	p := NewProcessor(store.NewInMemoryStore())
	if err := p.SeedTenant(testTenant, testUser); err != nil {
		t.Fatalf("SeedTenant() error = %v", err)
	}
	return p
}

func TestSeedTenant(t *testing.T) {
	p := newTestProcessor(t)

	intents, err := p.ListIntents(testTenant)
	if err != nil {
		t.Fatalf("ListIntents() error = %v", err)
	}
	if len(intents) != len(models.ReservedIntentNames) {
		t.Errorf("seeded %d intents, want %d", len(intents), len(models.ReservedIntentNames))
	}
	for _, intent := range intents {
		if !intent.IsSystemDefault {
			t.Errorf("seeded intent %q not marked system default", intent.Name)
		}
	}

	responses, err := p.ListResponses(testTenant)
	if err != nil {
		t.Fatalf("ListResponses() error = %v", err)
	}
	if len(responses) != len(DefaultUtterances) {
		t.Errorf("seeded %d utterances, want %d", len(responses), len(DefaultUtterances))
	}

	settings, err := p.GetBotSettings(testTenant)
	if err != nil {
		t.Fatalf("GetBotSettings() error = %v", err)
	}
	if settings.DataImporterLimitPerDay != 5 {
		t.Errorf("seeded importer limit = %d, want 5", settings.DataImporterLimitPerDay)
	}
}

func TestIntentLifecycle(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddIntent(testTenant, testUser, models.Intent{Name: "Greet"}); err != nil {
		t.Fatalf("AddIntent() error = %v", err)
	}
	intent, err := p.GetIntent(testTenant, "GREET")
	if err != nil {
		t.Fatalf("GetIntent() error = %v", err)
	}
	if intent.Name != "greet" {
		t.Errorf("GetIntent() name = %q, want canonical form", intent.Name)
	}

	var exists *models.AlreadyExistsError
	if err := p.AddIntent(testTenant, testUser, models.Intent{Name: "greet"}); !errors.As(err, &exists) {
		t.Errorf("AddIntent() duplicate error = %v, want AlreadyExistsError", err)
	}

	if err := p.DeleteIntent(testTenant, testUser, "greet"); err != nil {
		t.Fatalf("DeleteIntent() error = %v", err)
	}
	if _, err := p.GetIntent(testTenant, "greet"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetIntent() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteReservedIntent(t *testing.T) {
	p := newTestProcessor(t)

	var refErr *models.ReferentialIntegrityError
	err := p.DeleteIntent(testTenant, testUser, "nlu_fallback")
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteIntent(nlu_fallback) error = %v, want ReferentialIntegrityError", err)
	}
	if !strings.Contains(refErr.Error(), "system intent") {
		t.Errorf("DeleteIntent(nlu_fallback) message = %q", refErr.Error())
	}
}

func TestTrainingExampleAutoCreatesIntent(t *testing.T) {
	p := newTestProcessor(t)

	example := models.TrainingExample{Intent: "order_pizza", Text: "I want a pizza"}
	if err := p.AddTrainingExample(testTenant, testUser, example); err != nil {
		t.Fatalf("AddTrainingExample() error = %v", err)
	}
	if _, err := p.GetIntent(testTenant, "order_pizza"); err != nil {
		t.Errorf("GetIntent() for auto-created intent error = %v", err)
	}

	examples, err := p.ListTrainingExamples(testTenant, "order_pizza")
	if err != nil {
		t.Fatalf("ListTrainingExamples() error = %v", err)
	}
	if len(examples) != 1 || examples[0].Text != "I want a pizza" {
		t.Errorf("ListTrainingExamples() = %+v", examples)
	}
}

func TestDeleteIntentRemovesExamples(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddTrainingExample(testTenant, testUser, models.TrainingExample{Intent: "greet", Text: "hello there"}); err != nil {
		t.Fatalf("AddTrainingExample() error = %v", err)
	}
	if err := p.DeleteIntent(testTenant, testUser, "greet"); err != nil {
		t.Fatalf("DeleteIntent() error = %v", err)
	}
	examples, err := p.ListTrainingExamples(testTenant, "greet")
	if err != nil {
		t.Fatalf("ListTrainingExamples() error = %v", err)
	}
	if len(examples) != 0 {
		t.Errorf("ListTrainingExamples() after intent delete = %+v", examples)
	}
}

func TestDeleteIntentLinkedToFlow(t *testing.T) {
	p := newTestProcessor(t)

	mustAddGreetFlow(t, p)

	var refErr *models.ReferentialIntegrityError
	err := p.DeleteIntent(testTenant, testUser, "greet")
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteIntent() error = %v, want ReferentialIntegrityError", err)
	}
	if !strings.Contains(refErr.Error(), `linked to flow "greet again"`) {
		t.Errorf("DeleteIntent() message = %q", refErr.Error())
	}
}

func TestSlotMappingRequiresSlot(t *testing.T) {
	p := newTestProcessor(t)

	mapping := models.SlotMapping{
		Slot:  "city",
		Rules: []models.SlotMappingRule{{Type: models.MappingFromText}},
	}
	var refErr *models.ReferentialIntegrityError
	if err := p.AddSlotMapping(testTenant, testUser, mapping); !errors.As(err, &refErr) {
		t.Fatalf("AddSlotMapping() without slot error = %v, want ReferentialIntegrityError", err)
	}

	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "city", Type: models.SlotTypeText}); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	if err := p.AddSlotMapping(testTenant, testUser, mapping); err != nil {
		t.Fatalf("AddSlotMapping() error = %v", err)
	}

	// The slot is now protected by its mapping.
	if err := p.DeleteSlot(testTenant, testUser, "city"); !errors.As(err, &refErr) {
		t.Fatalf("DeleteSlot() with mapping error = %v, want ReferentialIntegrityError", err)
	}

	// Whole-slot mapping deletion releases it.
	if err := p.DeleteSlotMapping(testTenant, testUser, "city"); err != nil {
		t.Fatalf("DeleteSlotMapping() error = %v", err)
	}
	if err := p.DeleteSlot(testTenant, testUser, "city"); err != nil {
		t.Errorf("DeleteSlot() after mapping delete error = %v", err)
	}
}

func TestMappingFromEntityRequiresEntity(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "city", Type: models.SlotTypeText}); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	mapping := models.SlotMapping{
		Slot:  "city",
		Rules: []models.SlotMappingRule{{Type: models.MappingFromEntity, Entity: "location"}},
	}
	var refErr *models.ReferentialIntegrityError
	if err := p.AddSlotMapping(testTenant, testUser, mapping); !errors.As(err, &refErr) {
		t.Fatalf("AddSlotMapping() error = %v, want ReferentialIntegrityError", err)
	}

	if err := p.AddEntity(testTenant, testUser, models.Entity{Name: "location"}); err != nil {
		t.Fatalf("AddEntity() error = %v", err)
	}
	if err := p.AddSlotMapping(testTenant, testUser, mapping); err != nil {
		t.Fatalf("AddSlotMapping() with entity error = %v", err)
	}

	// The entity is now protected by the mapping rule.
	if err := p.DeleteEntity(testTenant, testUser, "location"); !errors.As(err, &refErr) {
		t.Errorf("DeleteEntity() error = %v, want ReferentialIntegrityError", err)
	}
}

// mustAddGreetFlow wires intent greet -> utter_greet into a story named
// "greet again".
func mustAddGreetFlow(t *testing.T, p *Processor) {
	t.Helper()
	if err := p.AddIntent(testTenant, testUser, models.Intent{Name: "greet"}); err != nil {
		t.Fatalf("AddIntent() error = %v", err)
	}
	response := models.Response{Name: "utter_greet", Variants: []models.ResponseVariant{{Text: "Hello!"}}}
	if err := p.AddResponse(testTenant, testUser, response); err != nil {
		t.Fatalf("AddResponse() error = %v", err)
	}
	story := models.Story{
		Name: "greet again",
		Steps: []models.Step{
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		},
	}
	if err := p.AddStory(testTenant, testUser, story); err != nil {
		t.Fatalf("AddStory() error = %v", err)
	}
}

func TestDeleteResponseLinkedToFlow(t *testing.T) {
	p := newTestProcessor(t)

	mustAddGreetFlow(t, p)

	err := p.DeleteResponse(testTenant, testUser, "utter_greet")
	var refErr *models.ReferentialIntegrityError
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteResponse() error = %v, want ReferentialIntegrityError", err)
	}
	want := `Cannot remove action "utter_greet" linked to flow "greet again"`
	if refErr.Error() != want {
		t.Errorf("DeleteResponse() message = %q, want %q", refErr.Error(), want)
	}

	// Dropping the story releases the utterance.
	if err := p.DeleteStory(testTenant, testUser, "greet again"); err != nil {
		t.Fatalf("DeleteStory() error = %v", err)
	}
	if err := p.DeleteResponse(testTenant, testUser, "utter_greet"); err != nil {
		t.Errorf("DeleteResponse() after story delete error = %v", err)
	}
}

func TestStoryStepResolution(t *testing.T) {
	p := newTestProcessor(t)

	story := models.Story{
		Name: "unknown refs",
		Steps: []models.Step{
			{Name: "greet", Type: models.StepIntent},
			{Name: "utter_greet", Type: models.StepBot},
		},
	}
	var refErr *models.ReferentialIntegrityError
	if err := p.AddStory(testTenant, testUser, story); !errors.As(err, &refErr) {
		t.Fatalf("AddStory() with unknown intent error = %v, want ReferentialIntegrityError", err)
	}
}

func TestFormAutoUtterances(t *testing.T) {
	p := newTestProcessor(t)

	for _, slot := range []string{"name", "cuisine"} {
		if err := p.AddSlot(testTenant, testUser, models.Slot{Name: slot, Type: models.SlotTypeText}); err != nil {
			t.Fatalf("AddSlot(%q) error = %v", slot, err)
		}
	}
	form := models.Form{
		Name: "restaurant_form",
		Settings: []models.FormSetting{
			{Slot: "name", AskQuestions: []string{"What is your name?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
			{Slot: "cuisine", AskQuestions: []string{"What cuisine?", "Which kitchen?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
		},
	}
	if err := p.AddForm(testTenant, testUser, form); err != nil {
		t.Fatalf("AddForm() error = %v", err)
	}

	response, err := p.GetResponse(testTenant, "utter_ask_restaurant_form_cuisine")
	if err != nil {
		t.Fatalf("GetResponse() for ask utterance error = %v", err)
	}
	if len(response.Variants) != 2 {
		t.Errorf("ask utterance variants = %d, want 2", len(response.Variants))
	}

	// Deleting the form removes its ask utterances.
	if err := p.DeleteForm(testTenant, testUser, "restaurant_form"); err != nil {
		t.Fatalf("DeleteForm() error = %v", err)
	}
	if _, err := p.GetResponse(testTenant, "utter_ask_restaurant_form_cuisine"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetResponse() after form delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAttachedAskUtteranceRejected(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "city", Type: models.SlotTypeText}); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	form := models.Form{
		Name: "booking",
		Settings: []models.FormSetting{
			{Slot: "city", AskQuestions: []string{"Which city?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
		},
	}
	if err := p.AddForm(testTenant, testUser, form); err != nil {
		t.Fatalf("AddForm() error = %v", err)
	}

	err := p.DeleteResponse(testTenant, testUser, "utter_ask_booking_city")
	var refErr *models.ReferentialIntegrityError
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteResponse() error = %v, want ReferentialIntegrityError", err)
	}
	if !strings.Contains(refErr.Msg, "booking") {
		t.Errorf("error does not name the form: %s", refErr.Msg)
	}

	// Once the form is gone the utterance deletes normally.
	if err := p.DeleteForm(testTenant, testUser, "booking"); err != nil {
		t.Fatalf("DeleteForm() error = %v", err)
	}
	if _, err := p.GetResponse(testTenant, "utter_ask_booking_city"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetResponse() after form delete error = %v, want ErrNotFound", err)
	}
}

func TestFormRejectsAnySlot(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "misc", Type: models.SlotTypeAny}); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	form := models.Form{
		Name: "bad_form",
		Settings: []models.FormSetting{
			{Slot: "misc", AskQuestions: []string{"Anything?"}, SlotSet: models.SlotSetDirective{Type: models.SlotSetCurrent}},
		},
	}
	var valErr *models.ValidationError
	if err := p.AddForm(testTenant, testUser, form); !errors.As(err, &valErr) {
		t.Fatalf("AddForm() with any slot error = %v, want ValidationError", err)
	}
}

func TestLiveAgentActionGated(t *testing.T) {
	p := newTestProcessor(t)

	action := models.Action{
		Name:      "handoff",
		Type:      models.ActionTypeLiveAgent,
		LiveAgent: &models.LiveAgentActionConfig{DispatchResponse: true},
	}
	var valErr *models.ValidationError
	if err := p.AddAction(testTenant, testUser, action); !errors.As(err, &valErr) {
		t.Fatalf("AddAction() with live agent disabled error = %v, want ValidationError", err)
	}

	settings, err := p.GetBotSettings(testTenant)
	if err != nil {
		t.Fatalf("GetBotSettings() error = %v", err)
	}
	settings.LiveAgentEnabled = true
	if err := p.UpdateBotSettings(testTenant, testUser, settings); err != nil {
		t.Fatalf("UpdateBotSettings() error = %v", err)
	}
	if err := p.AddAction(testTenant, testUser, action); err != nil {
		t.Errorf("AddAction() with live agent enabled error = %v", err)
	}
}

func TestSlotSetActionRequiresSlot(t *testing.T) {
	p := newTestProcessor(t)

	action := models.Action{
		Name: "reset_city",
		Type: models.ActionTypeSlotSet,
		SlotSet: &models.SlotSetActionConfig{
			SetSlots: []models.SlotSetOperation{{Name: "no_such_slot", Type: models.SetSlotReset}},
		},
	}
	var refErr *models.ReferentialIntegrityError
	if err := p.AddAction(testTenant, testUser, action); !errors.As(err, &refErr) {
		t.Fatalf("AddAction() over missing slot error = %v, want ReferentialIntegrityError", err)
	}

	if err := p.AddSlot(testTenant, testUser, models.Slot{Name: "no_such_slot", Type: models.SlotTypeText}); err != nil {
		t.Fatalf("AddSlot() error = %v", err)
	}
	if err := p.AddAction(testTenant, testUser, action); err != nil {
		t.Errorf("AddAction() with slot present error = %v", err)
	}
}

func TestActionKindFixedOnUpdate(t *testing.T) {
	p := newTestProcessor(t)

	action := models.Action{
		Name: "call_api",
		Type: models.ActionTypeHTTP,
		HTTP: &models.HTTPActionConfig{
			HTTPURL:       "https://api.example.com/v1",
			RequestMethod: models.MethodGET,
		},
	}
	if err := p.AddAction(testTenant, testUser, action); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}

	changed := models.Action{
		Name:     "call_api",
		Type:     models.ActionTypePyscript,
		Pyscript: &models.PyscriptActionConfig{SourceCode: "print('hi')"},
	}
	var valErr *models.ValidationError
	if err := p.UpdateAction(testTenant, testUser, changed); !errors.As(err, &valErr) {
		t.Errorf("UpdateAction() with changed type error = %v, want ValidationError", err)
	}
}

func TestDeleteActionLinkedToFlow(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.AddIntent(testTenant, testUser, models.Intent{Name: "ask_weather"}); err != nil {
		t.Fatalf("AddIntent() error = %v", err)
	}
	action := models.Action{
		Name: "fetch_weather",
		Type: models.ActionTypeHTTP,
		HTTP: &models.HTTPActionConfig{
			HTTPURL:       "https://weather.example.com",
			RequestMethod: models.MethodGET,
		},
	}
	if err := p.AddAction(testTenant, testUser, action); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}
	story := models.Story{
		Name: "weather path",
		Steps: []models.Step{
			{Name: "ask_weather", Type: models.StepIntent},
			{Name: "fetch_weather", Type: models.StepHTTPAction},
		},
	}
	if err := p.AddStory(testTenant, testUser, story); err != nil {
		t.Fatalf("AddStory() error = %v", err)
	}

	var refErr *models.ReferentialIntegrityError
	if err := p.DeleteAction(testTenant, testUser, "fetch_weather"); !errors.As(err, &refErr) {
		t.Fatalf("DeleteAction() error = %v, want ReferentialIntegrityError", err)
	}
}

func TestCognitionSchemaQuota(t *testing.T) {
	p := newTestProcessor(t)

	settings, _ := p.GetBotSettings(testTenant)
	settings.CognitionCollectionsLimit = 1
	if err := p.UpdateBotSettings(testTenant, testUser, settings); err != nil {
		t.Fatalf("UpdateBotSettings() error = %v", err)
	}

	schema := models.CognitionSchema{
		CollectionName: "products",
		Metadata: []models.ColumnMetadata{
			{ColumnName: "title", DataType: models.CognitionTypeStr, EnableSearch: true},
		},
	}
	if err := p.AddCognitionSchema(testTenant, testUser, schema); err != nil {
		t.Fatalf("AddCognitionSchema() error = %v", err)
	}

	second := models.CognitionSchema{CollectionName: "faq"}
	var limitErr *models.DailyLimitExceededError
	if err := p.AddCognitionSchema(testTenant, testUser, second); !errors.As(err, &limitErr) {
		t.Errorf("AddCognitionSchema() over limit error = %v, want DailyLimitExceededError", err)
	}
}

func TestCognitionDataValidation(t *testing.T) {
	p := newTestProcessor(t)

	schema := models.CognitionSchema{
		CollectionName: "products",
		Metadata: []models.ColumnMetadata{
			{ColumnName: "title", DataType: models.CognitionTypeStr},
			{ColumnName: "price", DataType: models.CognitionTypeInt},
		},
	}
	if err := p.AddCognitionSchema(testTenant, testUser, schema); err != nil {
		t.Fatalf("AddCognitionSchema() error = %v", err)
	}

	rowID, err := p.AddCognitionData(testTenant, testUser, models.CognitionData{
		Collection:  "products",
		ContentType: models.ContentTypeJSON,
		Data:        map[string]any{"title": "wooden chair", "price": float64(120)},
	})
	if err != nil {
		t.Fatalf("AddCognitionData() error = %v", err)
	}
	if rowID == "" {
		t.Fatal("AddCognitionData() returned empty row ID")
	}

	// Unknown column rejected.
	var valErr *models.ValidationError
	_, err = p.AddCognitionData(testTenant, testUser, models.CognitionData{
		Collection:  "products",
		ContentType: models.ContentTypeJSON,
		Data:        map[string]any{"color": "red"},
	})
	if !errors.As(err, &valErr) {
		t.Errorf("AddCognitionData() unknown column error = %v, want ValidationError", err)
	}

	// Short text rejected.
	_, err = p.AddCognitionData(testTenant, testUser, models.CognitionData{
		Collection:  "products",
		ContentType: models.ContentTypeText,
		Data:        "too short",
	})
	if !errors.As(err, &valErr) {
		t.Errorf("AddCognitionData() short text error = %v, want ValidationError", err)
	}

	rows, err := p.ListCognitionData(testTenant, "products")
	if err != nil {
		t.Fatalf("ListCognitionData() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("ListCognitionData() = %d rows, want 1", len(rows))
	}
}

func TestDeleteSchemaLinkedToPromptAction(t *testing.T) {
	p := newTestProcessor(t)

	schema := models.CognitionSchema{CollectionName: "kb"}
	if err := p.AddCognitionSchema(testTenant, testUser, schema); err != nil {
		t.Fatalf("AddCognitionSchema() error = %v", err)
	}
	action := models.Action{
		Name: "kb_prompt",
		Type: models.ActionTypePrompt,
		Prompt: &models.PromptActionConfig{
			UserQuestion:   models.UserQuestion{Type: models.QuestionFromUserMessage},
			CollectionName: "kb",
			FailureMessage: "I could not find an answer.",
			LlmPrompts: []models.LlmPrompt{
				{Name: "System Prompt", Type: models.LlmPromptSystem, Source: models.LlmSourceStatic, Data: "You are a helpful assistant.", IsEnabled: true},
			},
		},
	}
	if err := p.AddAction(testTenant, testUser, action); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}

	var refErr *models.ReferentialIntegrityError
	err := p.DeleteCognitionSchema(testTenant, testUser, "kb")
	if !errors.As(err, &refErr) {
		t.Fatalf("DeleteCognitionSchema() error = %v, want ReferentialIntegrityError", err)
	}
	if !strings.Contains(refErr.Error(), `linked to action "kb_prompt"`) {
		t.Errorf("DeleteCognitionSchema() message = %q", refErr.Error())
	}
}

func TestModelConfigDefaults(t *testing.T) {
	p := newTestProcessor(t)

	config, err := p.GetModelConfig(testTenant)
	if err != nil {
		t.Fatalf("GetModelConfig() error = %v", err)
	}
	if len(config.Pipeline) == 0 || len(config.Policies) == 0 {
		t.Fatalf("GetModelConfig() default = %+v", config)
	}

	config.Language = "de"
	if err := p.SaveModelConfig(testTenant, testUser, config); err != nil {
		t.Fatalf("SaveModelConfig() error = %v", err)
	}
	got, err := p.GetModelConfig(testTenant)
	if err != nil {
		t.Fatalf("GetModelConfig() after save error = %v", err)
	}
	if got.Language != "de" {
		t.Errorf("GetModelConfig() language = %q, want de", got.Language)
	}
}

func TestChatClientConfigRoundTrip(t *testing.T) {
	p := newTestProcessor(t)

	config := models.ChatClientConfig{Config: map[string]any{"welcomeMessage": "Hi!", "buttonType": "button"}}
	if err := p.SaveChatClientConfig(testTenant, testUser, config); err != nil {
		t.Fatalf("SaveChatClientConfig() error = %v", err)
	}
	got, err := p.GetChatClientConfig(testTenant)
	if err != nil {
		t.Fatalf("GetChatClientConfig() error = %v", err)
	}
	if got.Config["welcomeMessage"] != "Hi!" {
		t.Errorf("GetChatClientConfig() = %+v", got.Config)
	}
}
