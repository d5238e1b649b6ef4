package models

import (
	"errors"
	"testing"
)

func validHTTPAction() Action {
	return Action{
		Name: "api_call",
		Type: ActionTypeHTTP,
		HTTP: &HTTPActionConfig{
			HTTPURL:       "https://example.com/hook",
			RequestMethod: MethodPOST,
			Response:      ActionResponse{Value: "done", DispatchType: DispatchText},
		},
	}
}

func TestHTTPActionValidate(t *testing.T) {
	action := validHTTPAction()
	if err := action.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	action.HTTP.HTTPURL = "not a url"
	if err := action.Validate(); err == nil {
		t.Error("expected error for malformed URL")
	}

	action = validHTTPAction()
	action.HTTP.RequestMethod = "PATCH"
	if err := action.Validate(); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestActionNameRules(t *testing.T) {
	action := validHTTPAction()
	action.Name = "utter_api_call"
	if err := action.Validate(); err == nil {
		t.Error("action names cannot start with utter_")
	}
	action.Name = "  "
	if err := action.Validate(); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestActionMissingConfig(t *testing.T) {
	action := Action{Name: "api_call", Type: ActionTypeHTTP}
	if err := action.Validate(); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestEmailActionSlotPassword(t *testing.T) {
	cfg := &EmailActionConfig{
		SMTPURL:      "smtp.gmail.com",
		SMTPPort:     587,
		SMTPPassword: Parameter{ParameterType: ParameterTypeSlot, Value: ""},
		FromEmail:    Parameter{ParameterType: ParameterTypeValue, Value: "bot@example.com"},
		Subject:      "hello",
		Response:     "mail sent",
	}
	cfg.ToEmail.Value = []string{"user@example.com"}
	cfg.ToEmail.ParameterType = ParameterTypeValue

	err := cfg.Validate()
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validation.Items[0].Msg != "Provide name of the slot as value" {
		t.Errorf("unexpected message %q", validation.Items[0].Msg)
	}
	want := []string{"body", "smtp_password", "__root__"}
	got := validation.Items[0].Loc
	if len(got) != len(want) {
		t.Fatalf("unexpected loc %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("loc[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	cfg.SMTPPassword.Value = "password_slot"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmailActionInvalidAddress(t *testing.T) {
	cfg := &EmailActionConfig{
		SMTPURL:      "smtp.gmail.com",
		SMTPPort:     587,
		SMTPPassword: Parameter{ParameterType: ParameterTypeValue, Value: "secret"},
		FromEmail:    Parameter{ParameterType: ParameterTypeValue, Value: "not-an-email"},
	}
	cfg.ToEmail.Value = []string{"user@example.com"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid from_email")
	}
}

func TestPromptActionSystemPromptRules(t *testing.T) {
	cfg := &PromptActionConfig{
		UserQuestion:   UserQuestion{Type: QuestionFromUserMessage},
		FailureMessage: "I could not answer that",
		LlmPrompts: []LlmPrompt{
			{Name: "System", Type: LlmPromptSystem, Source: LlmSourceStatic, Data: "You are helpful", IsEnabled: true},
			{Name: "Query", Type: LlmPromptQuery, Source: LlmSourceStatic, Data: "answer briefly", IsEnabled: true},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.LlmPrompts = append(cfg.LlmPrompts, LlmPrompt{
		Name: "Second system", Type: LlmPromptSystem, Source: LlmSourceStatic, Data: "be terse",
	})
	err := cfg.Validate()
	if err == nil || err.Error() != "Only one system prompt can be present!" {
		t.Errorf("expected single-system-prompt error, got %v", err)
	}

	cfg.LlmPrompts = cfg.LlmPrompts[1:2]
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing system prompt")
	}
}

func TestPromptActionHyperparameterBounds(t *testing.T) {
	cfg := &PromptActionConfig{
		UserQuestion:   UserQuestion{Type: QuestionFromUserMessage},
		FailureMessage: "fallback",
		LlmPrompts: []LlmPrompt{
			{Name: "System", Type: LlmPromptSystem, Source: LlmSourceStatic, Data: "base"},
			{
				Name: "Similarity", Type: LlmPromptUser, Source: LlmSourceBotContent,
				Hyperparameters: &PromptHyperparameters{SimilarityThreshold: 0.2, TopResults: 10},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for similarity_threshold below 0.3")
	}
	cfg.LlmPrompts[1].Hyperparameters = &PromptHyperparameters{SimilarityThreshold: 0.7, TopResults: 40}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for top_results above 30")
	}
	cfg.LlmPrompts[1].Hyperparameters = &PromptHyperparameters{SimilarityThreshold: 0.7, TopResults: 10}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTwoStageFallbackValidate(t *testing.T) {
	cfg := &TwoStageFallbackConfig{FallbackMessage: "sorry"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when neither recommendations nor rules are set")
	}
	cfg.TriggerRules = []TriggerRule{{Text: "order pizza", Payload: "order_pizza"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.FallbackMessage = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing fallback_message")
	}
}

func TestSlotSetActionValidate(t *testing.T) {
	cfg := &SlotSetActionConfig{SetSlots: []SlotSetOperation{{Name: "location", Type: SetSlotFromValue, Value: "Delhi"}}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.SetSlots[0].Type = "from_slot"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown set_slots type")
	}
}

func TestStopFlowActionNeedsNoConfig(t *testing.T) {
	action := Action{Name: "stop_here", Type: ActionTypeStopFlow}
	if err := action.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestActionKindForStep(t *testing.T) {
	at, ok := ActionKindForStep(StepPromptAction)
	if !ok || at != ActionTypePrompt {
		t.Errorf("unexpected mapping: %v %v", at, ok)
	}
	if _, ok := ActionKindForStep(StepIntent); ok {
		t.Error("INTENT is not an action step")
	}
}

func TestCognitionSchemaValidate(t *testing.T) {
	schema := CognitionSchema{
		CollectionName: "faq",
		Metadata: []ColumnMetadata{
			{ColumnName: "question", DataType: CognitionTypeStr, EnableSearch: true},
			{ColumnName: "priority", DataType: CognitionTypeInt},
		},
	}
	if err := schema.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	schema.Metadata = append(schema.Metadata, ColumnMetadata{ColumnName: "Question", DataType: CognitionTypeStr})
	if err := schema.Validate(); err == nil {
		t.Error("expected error for duplicate column (case-insensitive)")
	}
}

func TestCognitionDataValidateAgainstSchema(t *testing.T) {
	schema := &CognitionSchema{
		CollectionName: "faq",
		Metadata: []ColumnMetadata{
			{ColumnName: "question", DataType: CognitionTypeStr},
			{ColumnName: "priority", DataType: CognitionTypeInt},
		},
	}

	row := CognitionData{
		Collection:  "faq",
		ContentType: ContentTypeJSON,
		Data:        map[string]any{"question": "how do I reset my password", "priority": float64(2)},
	}
	if err := row.ValidateAgainstSchema(schema); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	row.Data = map[string]any{"answer": "unknown column"}
	if err := row.ValidateAgainstSchema(schema); err == nil {
		t.Error("expected error for unknown column")
	}

	row.Data = map[string]any{"priority": "high"}
	if err := row.ValidateAgainstSchema(schema); err == nil {
		t.Error("expected error for type mismatch")
	}

	short := CognitionData{ContentType: ContentTypeText, Data: "too short"}
	if err := short.ValidateAgainstSchema(nil); err == nil {
		t.Error("expected error for text below ten words")
	}
	long := CognitionData{ContentType: ContentTypeText, Data: "this text row easily carries more than ten words of content for the store"}
	if err := long.ValidateAgainstSchema(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInferSchema(t *testing.T) {
	schema := InferSchema("Payments", map[string]any{"order_id": "A1", "amount": float64(100)})
	if schema.CollectionName != "payments" {
		t.Errorf("collection name should be canonical, got %q", schema.CollectionName)
	}
	types := make(map[string]CognitionDataType)
	for _, col := range schema.Metadata {
		types[col.ColumnName] = col.DataType
	}
	if types["order_id"] != CognitionTypeStr || types["amount"] != CognitionTypeInt {
		t.Errorf("unexpected inferred types: %v", types)
	}
}
