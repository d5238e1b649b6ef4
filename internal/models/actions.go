package models

import (
	"net/url"
	"regexp"
	"strings"
)

// ActionType enumerates the integrated action kinds.
type ActionType string

const (
	ActionTypeHTTP             ActionType = "http_action"
	ActionTypeEmail            ActionType = "email_action"
	ActionTypeJira             ActionType = "jira_action"
	ActionTypeZendesk          ActionType = "zendesk_action"
	ActionTypePipedriveLeads   ActionType = "pipedrive_leads_action"
	ActionTypeHubspotForms     ActionType = "hubspot_forms_action"
	ActionTypeGoogleSearch     ActionType = "google_search_action"
	ActionTypeWebSearch        ActionType = "web_search_action"
	ActionTypeRazorpay         ActionType = "razorpay_action"
	ActionTypeDatabase         ActionType = "database_action"
	ActionTypePyscript         ActionType = "pyscript_action"
	ActionTypePrompt           ActionType = "prompt_action"
	ActionTypeTwoStageFallback ActionType = "two_stage_fallback"
	ActionTypeLiveAgent        ActionType = "live_agent_action"
	ActionTypeSlotSet          ActionType = "slot_set_action"
	ActionTypeStopFlow         ActionType = "stop_flow_action"
)

// AllActionTypes lists every integrated action kind, in actions.yml key order.
var AllActionTypes = []ActionType{
	ActionTypeHTTP, ActionTypeEmail, ActionTypeJira, ActionTypeZendesk,
	ActionTypePipedriveLeads, ActionTypeHubspotForms, ActionTypeGoogleSearch,
	ActionTypeWebSearch, ActionTypeRazorpay, ActionTypeDatabase,
	ActionTypePyscript, ActionTypePrompt, ActionTypeTwoStageFallback,
	ActionTypeLiveAgent, ActionTypeSlotSet, ActionTypeStopFlow,
}

// IsValidActionType checks if the given action type is supported.
func IsValidActionType(at ActionType) bool {
	for _, known := range AllActionTypes {
		if at == known {
			return true
		}
	}
	return false
}

// ParameterType selects the environment a Parameter value resolves from at
// action-execution time.
type ParameterType string

const (
	ParameterTypeValue         ParameterType = "value"
	ParameterTypeSlot          ParameterType = "slot"
	ParameterTypeSenderID      ParameterType = "sender_id"
	ParameterTypeUserMessage   ParameterType = "user_message"
	ParameterTypeLatestMessage ParameterType = "latest_message"
	ParameterTypeIntent        ParameterType = "intent"
	ParameterTypeChatLog       ParameterType = "chat_log"
	ParameterTypeKeyVault      ParameterType = "key_vault"
)

// IsValidParameterType checks if the given parameter type is supported.
func IsValidParameterType(pt ParameterType) bool {
	switch pt {
	case ParameterTypeValue, ParameterTypeSlot, ParameterTypeSenderID,
		ParameterTypeUserMessage, ParameterTypeLatestMessage,
		ParameterTypeIntent, ParameterTypeChatLog, ParameterTypeKeyVault:
		return true
	default:
		return false
	}
}

// Parameter is a tagged value resolved at action-execution time.
type Parameter struct {
	Key           string        `json:"key,omitempty" yaml:"key,omitempty"`
	Value         string        `json:"value" yaml:"value"`
	ParameterType ParameterType `json:"parameter_type" yaml:"parameter_type"`
	Encrypt       bool          `json:"encrypt,omitempty" yaml:"encrypt,omitempty"`
}

// Validate checks the parameter tag and, for slot/key-vault parameters, that
// a value naming the source is present.
func (p *Parameter) Validate(loc ...string) error {
	if p.ParameterType == "" {
		p.ParameterType = ParameterTypeValue
	}
	if !IsValidParameterType(p.ParameterType) {
		return NewValidationError("invalid parameter type "+string(p.ParameterType), loc...)
	}
	switch p.ParameterType {
	case ParameterTypeSlot:
		if strings.TrimSpace(p.Value) == "" {
			return NewValidationError("Provide name of the slot as value", loc...)
		}
	case ParameterTypeKeyVault:
		if strings.TrimSpace(p.Value) == "" {
			return NewValidationError("Provide key from key vault as value", loc...)
		}
	}
	return nil
}

// DispatchType controls how an action response is rendered to the user.
type DispatchType string

const (
	DispatchText DispatchType = "text"
	DispatchJSON DispatchType = "json"
)

// IsValidDispatchType checks if the given dispatch type is supported.
func IsValidDispatchType(dt DispatchType) bool {
	return dt == DispatchText || dt == DispatchJSON
}

// EvaluationType selects how a set-slot value expression is evaluated.
type EvaluationType string

const (
	EvaluationExpression EvaluationType = "expression"
	EvaluationScript     EvaluationType = "script"
)

// SetSlotInstruction assigns an evaluated value to a slot after an action
// runs. Part of the common action envelope.
type SetSlotInstruction struct {
	Name           string         `json:"name" yaml:"name"`
	Value          string         `json:"value" yaml:"value"`
	EvaluationType EvaluationType `json:"evaluation_type" yaml:"evaluation_type"`
}

// ActionResponse is the response template of the common envelope.
type ActionResponse struct {
	Value        string       `json:"value,omitempty" yaml:"value,omitempty"`
	DispatchType DispatchType `json:"dispatch_type,omitempty" yaml:"dispatch_type,omitempty"`
	Dispatch     bool         `json:"dispatch" yaml:"dispatch"`
}

// RequestMethod enumerates the HTTP methods an HTTP action may use.
type RequestMethod string

const (
	MethodGET    RequestMethod = "GET"
	MethodPOST   RequestMethod = "POST"
	MethodPUT    RequestMethod = "PUT"
	MethodDELETE RequestMethod = "DELETE"
)

// IsValidRequestMethod checks if the given request method is supported.
func IsValidRequestMethod(m RequestMethod) bool {
	switch m {
	case MethodGET, MethodPOST, MethodPUT, MethodDELETE:
		return true
	default:
		return false
	}
}

// HTTPActionConfig calls an external HTTP endpoint.
type HTTPActionConfig struct {
	HTTPURL       string               `json:"http_url" yaml:"http_url"`
	RequestMethod RequestMethod        `json:"request_method" yaml:"request_method"`
	ContentType   string               `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ParamsList    []Parameter          `json:"params_list,omitempty" yaml:"params_list,omitempty"`
	Headers       []Parameter          `json:"headers,omitempty" yaml:"headers,omitempty"`
	DynamicParams string               `json:"dynamic_params,omitempty" yaml:"dynamic_params,omitempty"`
	Response      ActionResponse       `json:"response" yaml:"response"`
	SetSlots      []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

func (c *HTTPActionConfig) Validate() error {
	parsed, err := url.Parse(c.HTTPURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return NewValidationError("URL is malformed", "body", "http_url")
	}
	if !IsValidRequestMethod(c.RequestMethod) {
		return NewValidationError("Invalid HTTP method", "body", "request_method")
	}
	if c.Response.DispatchType != "" && !IsValidDispatchType(c.Response.DispatchType) {
		return NewValidationError("Invalid dispatch type", "body", "response", "dispatch_type")
	}
	for _, p := range c.ParamsList {
		p := p
		if err := p.Validate("body", "params_list", "__root__"); err != nil {
			return err
		}
	}
	for _, h := range c.Headers {
		h := h
		if err := h.Validate("body", "headers", "__root__"); err != nil {
			return err
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailActionConfig sends an email through a configured SMTP relay.
type EmailActionConfig struct {
	SMTPURL      string    `json:"smtp_url" yaml:"smtp_url"`
	SMTPPort     int       `json:"smtp_port" yaml:"smtp_port"`
	SMTPUserID   Parameter `json:"smtp_userid,omitempty" yaml:"smtp_userid,omitempty"`
	SMTPPassword Parameter `json:"smtp_password" yaml:"smtp_password"`
	FromEmail    Parameter `json:"from_email" yaml:"from_email"`
	ToEmail      struct {
		Value         []string      `json:"value" yaml:"value"`
		ParameterType ParameterType `json:"parameter_type" yaml:"parameter_type"`
	} `json:"to_email" yaml:"to_email"`
	Subject  string `json:"subject" yaml:"subject"`
	Response string `json:"response" yaml:"response"`
	TLS      bool   `json:"tls" yaml:"tls"`
}

func (c *EmailActionConfig) Validate() error {
	if strings.TrimSpace(c.SMTPURL) == "" {
		return NewValidationError("URL cannot be empty", "body", "smtp_url")
	}
	if c.SMTPPort <= 0 {
		return NewValidationError("Invalid SMTP port", "body", "smtp_port")
	}
	if err := c.SMTPPassword.Validate("body", "smtp_password", "__root__"); err != nil {
		return err
	}
	switch c.FromEmail.ParameterType {
	case ParameterTypeSlot:
		if strings.TrimSpace(c.FromEmail.Value) == "" {
			return NewValidationError("Provide name of the slot as value", "body", "from_email", "__root__")
		}
	case ParameterTypeValue, "":
		if !emailPattern.MatchString(c.FromEmail.Value) {
			return NewValidationError("Invalid from_email address", "body", "from_email", "__root__")
		}
	default:
		return NewValidationError("Invalid parameter type for from_email", "body", "from_email", "__root__")
	}
	switch c.ToEmail.ParameterType {
	case ParameterTypeSlot:
		if len(c.ToEmail.Value) != 1 || strings.TrimSpace(c.ToEmail.Value[0]) == "" {
			return NewValidationError("Provide name of the slot as value", "body", "to_email", "__root__")
		}
	case ParameterTypeValue, "":
		if len(c.ToEmail.Value) == 0 {
			return NewValidationError("Provide at least one recipient", "body", "to_email", "__root__")
		}
		for _, addr := range c.ToEmail.Value {
			if !emailPattern.MatchString(addr) {
				return NewValidationError("Invalid to_email address "+addr, "body", "to_email", "__root__")
			}
		}
	default:
		return NewValidationError("Invalid parameter type for to_email", "body", "to_email", "__root__")
	}
	return nil
}

// GoogleSearchActionConfig queries a Google programmable search engine.
type GoogleSearchActionConfig struct {
	APIKey           Parameter            `json:"api_key" yaml:"api_key"`
	SearchEngineID   string               `json:"search_engine_id" yaml:"search_engine_id"`
	Website          string               `json:"website,omitempty" yaml:"website,omitempty"`
	TopN             int                  `json:"topn" yaml:"topn"`
	FailureResponse  string               `json:"failure_response" yaml:"failure_response"`
	DispatchResponse bool                 `json:"dispatch_response" yaml:"dispatch_response"`
	SetSlot          string               `json:"set_slot,omitempty" yaml:"set_slot,omitempty"`
	SetSlots         []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

func (c *GoogleSearchActionConfig) Validate() error {
	if err := c.APIKey.Validate("body", "api_key", "__root__"); err != nil {
		return err
	}
	if strings.TrimSpace(c.SearchEngineID) == "" {
		return NewValidationError("search_engine_id is required", "body", "search_engine_id")
	}
	if c.TopN < 1 {
		return NewValidationError("topn must be greater or equal to 1", "body", "topn")
	}
	return nil
}

// WebSearchActionConfig performs a public web search.
type WebSearchActionConfig struct {
	Website          string               `json:"website,omitempty" yaml:"website,omitempty"`
	TopN             int                  `json:"topn" yaml:"topn"`
	FailureResponse  string               `json:"failure_response" yaml:"failure_response"`
	DispatchResponse bool                 `json:"dispatch_response" yaml:"dispatch_response"`
	SetSlots         []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

func (c *WebSearchActionConfig) Validate() error {
	if c.TopN < 1 {
		return NewValidationError("topn must be greater or equal to 1", "body", "topn")
	}
	return nil
}

// JiraActionConfig creates issues in a Jira project.
type JiraActionConfig struct {
	URL         string    `json:"url" yaml:"url"`
	UserName    string    `json:"user_name" yaml:"user_name"`
	APIToken    Parameter `json:"api_token" yaml:"api_token"`
	ProjectKey  string    `json:"project_key" yaml:"project_key"`
	IssueType   string    `json:"issue_type" yaml:"issue_type"`
	ParentKey   string    `json:"parent_key,omitempty" yaml:"parent_key,omitempty"`
	Summary     string    `json:"summary" yaml:"summary"`
	Response    string    `json:"response" yaml:"response"`
}

func (c *JiraActionConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return NewValidationError("URL cannot be empty", "body", "url")
	}
	if strings.TrimSpace(c.UserName) == "" {
		return NewValidationError("user_name is required", "body", "user_name")
	}
	if err := c.APIToken.Validate("body", "api_token", "__root__"); err != nil {
		return err
	}
	if strings.TrimSpace(c.ProjectKey) == "" {
		return NewValidationError("project_key is required", "body", "project_key")
	}
	if c.IssueType == "Subtask" && strings.TrimSpace(c.ParentKey) == "" {
		return NewValidationError("parent_key is required for Subtask", "body", "parent_key")
	}
	return nil
}

// ZendeskActionConfig files tickets in a Zendesk subdomain.
type ZendeskActionConfig struct {
	Subdomain   string    `json:"subdomain" yaml:"subdomain"`
	UserName    string    `json:"user_name" yaml:"user_name"`
	APIToken    Parameter `json:"api_token" yaml:"api_token"`
	Subject     string    `json:"subject" yaml:"subject"`
	Response    string    `json:"response" yaml:"response"`
}

func (c *ZendeskActionConfig) Validate() error {
	if strings.TrimSpace(c.Subdomain) == "" {
		return NewValidationError("subdomain is required", "body", "subdomain")
	}
	if strings.TrimSpace(c.UserName) == "" {
		return NewValidationError("user_name is required", "body", "user_name")
	}
	return c.APIToken.Validate("body", "api_token", "__root__")
}

// PipedriveActionConfig pushes leads into Pipedrive.
type PipedriveActionConfig struct {
	Domain   string            `json:"domain" yaml:"domain"`
	APIToken Parameter         `json:"api_token" yaml:"api_token"`
	Title    string            `json:"title" yaml:"title"`
	Metadata map[string]string `json:"metadata" yaml:"metadata"`
	Response string            `json:"response" yaml:"response"`
}

func (c *PipedriveActionConfig) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return NewValidationError("domain is required", "body", "domain")
	}
	if err := c.APIToken.Validate("body", "api_token", "__root__"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Metadata["name"]) == "" {
		return NewValidationError("metadata: name is required", "body", "metadata")
	}
	return nil
}

// HubspotFormsActionConfig submits a Hubspot form.
type HubspotFormsActionConfig struct {
	PortalID string      `json:"portal_id" yaml:"portal_id"`
	FormGUID string      `json:"form_guid" yaml:"form_guid"`
	Fields   []Parameter `json:"fields" yaml:"fields"`
	Response string      `json:"response" yaml:"response"`
}

func (c *HubspotFormsActionConfig) Validate() error {
	if strings.TrimSpace(c.PortalID) == "" {
		return NewValidationError("portal_id is required", "body", "portal_id")
	}
	if strings.TrimSpace(c.FormGUID) == "" {
		return NewValidationError("form_guid is required", "body", "form_guid")
	}
	for _, f := range c.Fields {
		f := f
		if err := f.Validate("body", "fields", "__root__"); err != nil {
			return err
		}
	}
	return nil
}

// RazorpayActionConfig creates a Razorpay payment link.
type RazorpayActionConfig struct {
	APIKey    Parameter `json:"api_key" yaml:"api_key"`
	APISecret Parameter `json:"api_secret" yaml:"api_secret"`
	Amount    Parameter `json:"amount" yaml:"amount"`
	Currency  Parameter `json:"currency" yaml:"currency"`
	Username  Parameter `json:"username,omitempty" yaml:"username,omitempty"`
	Email     Parameter `json:"email,omitempty" yaml:"email,omitempty"`
	Contact   Parameter `json:"contact,omitempty" yaml:"contact,omitempty"`
}

func (c *RazorpayActionConfig) Validate() error {
	for _, item := range []struct {
		p    Parameter
		name string
	}{
		{c.APIKey, "api_key"},
		{c.APISecret, "api_secret"},
		{c.Amount, "amount"},
		{c.Currency, "currency"},
	} {
		p := item.p
		if err := p.Validate("body", item.name, "__root__"); err != nil {
			return err
		}
	}
	return nil
}

// DBQueryType enumerates the query modes of a database (vector) action.
type DBQueryType string

const (
	QueryEmbeddingSearch DBQueryType = "embedding_search"
	QueryPayloadSearch   DBQueryType = "payload_search"
)

// DBPayloadType selects the source of the query payload.
type DBPayloadType string

const (
	PayloadFromValue       DBPayloadType = "from_value"
	PayloadFromSlot        DBPayloadType = "from_slot"
	PayloadFromUserMessage DBPayloadType = "from_user_message"
)

// DBPayload is the query payload of a database action.
type DBPayload struct {
	Type  DBPayloadType `json:"type" yaml:"type"`
	Value any           `json:"value" yaml:"value"`
}

// DatabaseActionConfig queries a cognition (vector) collection.
type DatabaseActionConfig struct {
	Collection string               `json:"collection" yaml:"collection"`
	QueryType  DBQueryType          `json:"query_type" yaml:"query_type"`
	Payload    []DBPayload          `json:"payload" yaml:"payload"`
	Response   ActionResponse       `json:"response" yaml:"response"`
	SetSlots   []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

func (c *DatabaseActionConfig) Validate() error {
	if strings.TrimSpace(c.Collection) == "" {
		return NewValidationError("collection is required", "body", "collection")
	}
	if c.QueryType != QueryEmbeddingSearch && c.QueryType != QueryPayloadSearch {
		return NewValidationError("invalid query_type "+string(c.QueryType), "body", "query_type")
	}
	for _, p := range c.Payload {
		switch p.Type {
		case PayloadFromValue, PayloadFromSlot, PayloadFromUserMessage:
		default:
			return NewValidationError("invalid payload type "+string(p.Type), "body", "payload", "type")
		}
	}
	return nil
}

// PyscriptActionConfig runs a stored python snippet in the action sandbox.
type PyscriptActionConfig struct {
	SourceCode       string               `json:"source_code" yaml:"source_code"`
	DispatchResponse bool                 `json:"dispatch_response" yaml:"dispatch_response"`
	SetSlots         []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

func (c *PyscriptActionConfig) Validate() error {
	if strings.TrimSpace(c.SourceCode) == "" {
		return NewValidationError("source_code is required", "body", "source_code")
	}
	return nil
}

// LlmPromptType enumerates the roles of a configured prompt.
type LlmPromptType string

const (
	LlmPromptSystem LlmPromptType = "system"
	LlmPromptUser   LlmPromptType = "user"
	LlmPromptQuery  LlmPromptType = "query"
)

// LlmPromptSource enumerates where a prompt's data comes from.
type LlmPromptSource string

const (
	LlmSourceStatic     LlmPromptSource = "static"
	LlmSourceBotContent LlmPromptSource = "bot_content"
	LlmSourceHistory    LlmPromptSource = "history"
)

// PromptHyperparameters tunes retrieval for bot_content prompts.
type PromptHyperparameters struct {
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	TopResults          int     `json:"top_results" yaml:"top_results"`
}

// LlmPrompt is one prompt of a prompt action.
type LlmPrompt struct {
	Name            string                 `json:"name" yaml:"name"`
	Data            string                 `json:"data,omitempty" yaml:"data,omitempty"`
	Instructions    string                 `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Type            LlmPromptType          `json:"type" yaml:"type"`
	Source          LlmPromptSource        `json:"source" yaml:"source"`
	IsEnabled       bool                   `json:"is_enabled" yaml:"is_enabled"`
	Hyperparameters *PromptHyperparameters `json:"hyperparameters,omitempty" yaml:"hyperparameters,omitempty"`
}

// UserQuestionType selects the source of the prompt action user question.
type UserQuestionType string

const (
	QuestionFromUserMessage UserQuestionType = "from_user_message"
	QuestionFromSlot        UserQuestionType = "from_slot"
)

// UserQuestion configures where the prompt action reads the user query from.
type UserQuestion struct {
	Type  UserQuestionType `json:"type" yaml:"type"`
	Value string           `json:"value,omitempty" yaml:"value,omitempty"`
}

// PromptActionConfig grounds an LLM prompt over cognition collections.
type PromptActionConfig struct {
	UserQuestion    UserQuestion         `json:"user_question" yaml:"user_question"`
	LlmPrompts      []LlmPrompt          `json:"llm_prompts" yaml:"llm_prompts"`
	CollectionName  string               `json:"collection,omitempty" yaml:"collection,omitempty"`
	NumBotResponses int                  `json:"num_bot_responses" yaml:"num_bot_responses"`
	FailureMessage  string               `json:"failure_message" yaml:"failure_message"`
	DispatchResponse bool                `json:"dispatch_response" yaml:"dispatch_response"`
	SetSlots        []SetSlotInstruction `json:"set_slots,omitempty" yaml:"set_slots,omitempty"`
}

// Validate enforces the prompt composition rules: exactly one system prompt,
// at most one history prompt, query and system prompts static, static prompts
// with data, and bounded retrieval hyperparameters.
func (c *PromptActionConfig) Validate() error {
	if c.UserQuestion.Type != QuestionFromUserMessage && c.UserQuestion.Type != QuestionFromSlot {
		return NewValidationError("invalid user_question type", "body", "user_question")
	}
	if c.UserQuestion.Type == QuestionFromSlot && strings.TrimSpace(c.UserQuestion.Value) == "" {
		return NewValidationError("Provide name of the slot as value", "body", "user_question", "__root__")
	}
	if len(c.LlmPrompts) == 0 {
		return NewValidationError("llm_prompts are required", "body", "llm_prompts")
	}
	if strings.TrimSpace(c.FailureMessage) == "" {
		return NewValidationError("failure_message is required", "body", "failure_message")
	}
	if c.NumBotResponses > 5 {
		return NewValidationError("num_bot_responses should not be greater than 5", "body", "num_bot_responses")
	}

	systemCount, historyCount := 0, 0
	for _, prompt := range c.LlmPrompts {
		switch prompt.Type {
		case LlmPromptSystem, LlmPromptUser, LlmPromptQuery:
		default:
			return NewValidationError("invalid prompt type "+string(prompt.Type), "body", "llm_prompts", "type")
		}
		switch prompt.Source {
		case LlmSourceStatic, LlmSourceBotContent, LlmSourceHistory:
		default:
			return NewValidationError("invalid prompt source "+string(prompt.Source), "body", "llm_prompts", "source")
		}
		if prompt.Type == LlmPromptSystem {
			systemCount++
			if prompt.Source != LlmSourceStatic {
				return NewValidationError("System prompt must have static source!", "body", "llm_prompts")
			}
		}
		if prompt.Source == LlmSourceHistory {
			historyCount++
		}
		if prompt.Type == LlmPromptQuery && prompt.Source != LlmSourceStatic {
			return NewValidationError("Query prompt must have static source!", "body", "llm_prompts")
		}
		if prompt.Source == LlmSourceStatic && strings.TrimSpace(prompt.Data) == "" {
			return NewValidationError("data is required for static prompts", "body", "llm_prompts", "data")
		}
		if prompt.Hyperparameters != nil {
			hp := prompt.Hyperparameters
			if hp.SimilarityThreshold < 0.3 || hp.SimilarityThreshold > 1.0 {
				return NewValidationError("similarity_threshold should be within 0.3 and 1", "body", "llm_prompts", "hyperparameters")
			}
			if hp.TopResults > 30 {
				return NewValidationError("top_results should not be greater than 30", "body", "llm_prompts", "hyperparameters")
			}
		}
	}
	if systemCount == 0 {
		return NewValidationError("System prompt is required!", "body", "llm_prompts")
	}
	if systemCount > 1 {
		return NewValidationError("Only one system prompt can be present!", "body", "llm_prompts")
	}
	if historyCount > 1 {
		return NewValidationError("Only one history source can be present!", "body", "llm_prompts")
	}
	return nil
}

// TextRecommendations configures intent-ranking suggestions for the
// two-stage fallback.
type TextRecommendations struct {
	Count            int  `json:"count" yaml:"count"`
	UseIntentRanking bool `json:"use_intent_ranking" yaml:"use_intent_ranking"`
}

// TriggerRule maps a suggestion button text to the payload it triggers.
type TriggerRule struct {
	Text    string `json:"text" yaml:"text"`
	Payload string `json:"payload" yaml:"payload"`
}

// TwoStageFallbackConfig configures the two-stage fallback action.
type TwoStageFallbackConfig struct {
	TextRecommendations *TextRecommendations `json:"text_recommendations,omitempty" yaml:"text_recommendations,omitempty"`
	TriggerRules        []TriggerRule        `json:"trigger_rules,omitempty" yaml:"trigger_rules,omitempty"`
	FallbackMessage     string               `json:"fallback_message" yaml:"fallback_message"`
}

func (c *TwoStageFallbackConfig) Validate() error {
	if c.TextRecommendations == nil && len(c.TriggerRules) == 0 {
		return NewValidationError("One of text_recommendations or trigger_rules should be defined", "body", "__root__")
	}
	if c.TextRecommendations != nil && c.TextRecommendations.Count < 0 {
		return NewValidationError("count cannot be negative", "body", "text_recommendations", "count")
	}
	for _, rule := range c.TriggerRules {
		if strings.TrimSpace(rule.Text) == "" || strings.TrimSpace(rule.Payload) == "" {
			return NewValidationError("trigger rules require text and payload", "body", "trigger_rules")
		}
	}
	if strings.TrimSpace(c.FallbackMessage) == "" {
		return NewValidationError("fallback_message is required", "body", "fallback_message")
	}
	return nil
}

// LiveAgentActionConfig hands the conversation over to a human agent. It is
// gated on BotSettings.live_agent_enabled by the store layer.
type LiveAgentActionConfig struct {
	DispatchResponse bool `json:"dispatch_response" yaml:"dispatch_response"`
}

func (c *LiveAgentActionConfig) Validate() error { return nil }

// SetSlotType enumerates the assignment modes of a slot-set action.
type SetSlotType string

const (
	SetSlotFromValue SetSlotType = "from_value"
	SetSlotReset     SetSlotType = "reset_slot"
)

// SlotSetOperation assigns or resets one slot.
type SlotSetOperation struct {
	Name  string      `json:"name" yaml:"name"`
	Type  SetSlotType `json:"type" yaml:"type"`
	Value any         `json:"value,omitempty" yaml:"value,omitempty"`
}

// SlotSetActionConfig sets or resets slots without external calls.
type SlotSetActionConfig struct {
	SetSlots []SlotSetOperation `json:"set_slots" yaml:"set_slots"`
}

func (c *SlotSetActionConfig) Validate() error {
	if len(c.SetSlots) == 0 {
		return NewValidationError("set_slots are required", "body", "set_slots")
	}
	for _, op := range c.SetSlots {
		if err := ValidateName(op.Name); err != nil {
			return NewValidationError("slot name cannot be empty or blank spaces", "body", "set_slots", "name")
		}
		if op.Type != SetSlotFromValue && op.Type != SetSlotReset {
			return NewValidationError("invalid set_slots type "+string(op.Type), "body", "set_slots", "type")
		}
	}
	return nil
}

// StopFlowActionConfig terminates the active flow. Structural only.
type StopFlowActionConfig struct{}

func (c *StopFlowActionConfig) Validate() error { return nil }

// Action is the tagged sum of all integrated action kinds. Exactly one
// config field matching Type must be set.
type Action struct {
	Name             string                    `json:"name" yaml:"name"`
	Type             ActionType                `json:"type" yaml:"type"`
	HTTP             *HTTPActionConfig         `json:"http_action,omitempty" yaml:"http_action,omitempty"`
	Email            *EmailActionConfig        `json:"email_action,omitempty" yaml:"email_action,omitempty"`
	Jira             *JiraActionConfig         `json:"jira_action,omitempty" yaml:"jira_action,omitempty"`
	Zendesk          *ZendeskActionConfig      `json:"zendesk_action,omitempty" yaml:"zendesk_action,omitempty"`
	Pipedrive        *PipedriveActionConfig    `json:"pipedrive_leads_action,omitempty" yaml:"pipedrive_leads_action,omitempty"`
	HubspotForms     *HubspotFormsActionConfig `json:"hubspot_forms_action,omitempty" yaml:"hubspot_forms_action,omitempty"`
	GoogleSearch     *GoogleSearchActionConfig `json:"google_search_action,omitempty" yaml:"google_search_action,omitempty"`
	WebSearch        *WebSearchActionConfig    `json:"web_search_action,omitempty" yaml:"web_search_action,omitempty"`
	Razorpay         *RazorpayActionConfig     `json:"razorpay_action,omitempty" yaml:"razorpay_action,omitempty"`
	Database         *DatabaseActionConfig     `json:"database_action,omitempty" yaml:"database_action,omitempty"`
	Pyscript         *PyscriptActionConfig     `json:"pyscript_action,omitempty" yaml:"pyscript_action,omitempty"`
	Prompt           *PromptActionConfig       `json:"prompt_action,omitempty" yaml:"prompt_action,omitempty"`
	TwoStageFallback *TwoStageFallbackConfig   `json:"two_stage_fallback,omitempty" yaml:"two_stage_fallback,omitempty"`
	LiveAgent        *LiveAgentActionConfig    `json:"live_agent_action,omitempty" yaml:"live_agent_action,omitempty"`
	SlotSet          *SlotSetActionConfig      `json:"slot_set_action,omitempty" yaml:"slot_set_action,omitempty"`
	StopFlow         *StopFlowActionConfig     `json:"stop_flow_action,omitempty" yaml:"stop_flow_action,omitempty"`
}

// Validate checks the envelope and dispatches to the kind-specific config.
func (a *Action) Validate() error {
	if err := ValidateName(a.Name); err != nil {
		return NewValidationError("action name cannot be empty or blank spaces", "body", "name")
	}
	if strings.HasPrefix(CanonicalName(a.Name), UtterancePrefix) {
		return NewValidationError("action name cannot start with utter_", "body", "name")
	}
	if !IsValidActionType(a.Type) {
		return NewValidationError("invalid action type "+string(a.Type), "body", "type")
	}
	validator, err := a.config()
	if err != nil {
		return err
	}
	return validator.Validate()
}

type actionConfig interface{ Validate() error }

// config returns the config matching the action type, or a ValidationError
// when it is absent.
func (a *Action) config() (actionConfig, error) {
	var cfg actionConfig
	switch a.Type {
	case ActionTypeHTTP:
		if a.HTTP != nil {
			cfg = a.HTTP
		}
	case ActionTypeEmail:
		if a.Email != nil {
			cfg = a.Email
		}
	case ActionTypeJira:
		if a.Jira != nil {
			cfg = a.Jira
		}
	case ActionTypeZendesk:
		if a.Zendesk != nil {
			cfg = a.Zendesk
		}
	case ActionTypePipedriveLeads:
		if a.Pipedrive != nil {
			cfg = a.Pipedrive
		}
	case ActionTypeHubspotForms:
		if a.HubspotForms != nil {
			cfg = a.HubspotForms
		}
	case ActionTypeGoogleSearch:
		if a.GoogleSearch != nil {
			cfg = a.GoogleSearch
		}
	case ActionTypeWebSearch:
		if a.WebSearch != nil {
			cfg = a.WebSearch
		}
	case ActionTypeRazorpay:
		if a.Razorpay != nil {
			cfg = a.Razorpay
		}
	case ActionTypeDatabase:
		if a.Database != nil {
			cfg = a.Database
		}
	case ActionTypePyscript:
		if a.Pyscript != nil {
			cfg = a.Pyscript
		}
	case ActionTypePrompt:
		if a.Prompt != nil {
			cfg = a.Prompt
		}
	case ActionTypeTwoStageFallback:
		if a.TwoStageFallback != nil {
			cfg = a.TwoStageFallback
		}
	case ActionTypeLiveAgent:
		if a.LiveAgent != nil {
			cfg = a.LiveAgent
		}
	case ActionTypeSlotSet:
		if a.SlotSet != nil {
			cfg = a.SlotSet
		}
	case ActionTypeStopFlow:
		if a.StopFlow == nil {
			a.StopFlow = &StopFlowActionConfig{}
		}
		cfg = a.StopFlow
	}
	if cfg == nil {
		return nil, NewValidationError("missing configuration for action type "+string(a.Type), "body", string(a.Type))
	}
	return cfg, nil
}
