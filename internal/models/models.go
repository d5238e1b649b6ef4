package models

import (
	"regexp"
	"strings"
	"time"
)

// ArtifactKind identifies the kind of a named artifact. It is part of the
// document uniqueness key (tenant, kind, canonical name).
type ArtifactKind string

const (
	KindIntent           ArtifactKind = "intents"
	KindTrainingExample  ArtifactKind = "training_examples"
	KindEntity           ArtifactKind = "entities"
	KindSlot             ArtifactKind = "slots"
	KindSlotMapping      ArtifactKind = "slot_mappings"
	KindResponse         ArtifactKind = "responses"
	KindStory            ArtifactKind = "stories"
	KindRule             ArtifactKind = "rules"
	KindMultiflowStory   ArtifactKind = "multiflow_stories"
	KindForm             ArtifactKind = "forms"
	KindLookupTable      ArtifactKind = "lookup_tables"
	KindSynonym          ArtifactKind = "synonyms"
	KindRegexFeature     ArtifactKind = "regex_features"
	KindAction           ArtifactKind = "actions"
	KindCognitionSchema  ArtifactKind = "cognition_schemas"
	KindCognitionData    ArtifactKind = "cognition_data"
	KindConfig           ArtifactKind = "configs"
	KindChatClientConfig ArtifactKind = "chat_client_configs"
)

// AllArtifactKinds lists every kind the document store may hold.
var AllArtifactKinds = []ArtifactKind{
	KindIntent, KindTrainingExample, KindEntity, KindSlot, KindSlotMapping,
	KindResponse, KindStory, KindRule, KindMultiflowStory, KindForm,
	KindLookupTable, KindSynonym, KindRegexFeature, KindAction,
	KindCognitionSchema, KindCognitionData, KindConfig, KindChatClientConfig,
}

// DocumentMeta carries the fields common to every persisted artifact.
type DocumentMeta struct {
	Tenant    string    `json:"bot"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Status    bool      `json:"status"` // true = active, false = soft-deleted
}

// Reserved intent names seeded per tenant and not user-deletable.
var ReservedIntentNames = []string{
	"nlu_fallback", "restart", "back", "out_of_scope", "session_start",
}

// IsReservedIntent reports whether name is a system-seeded intent.
func IsReservedIntent(name string) bool {
	canonical := CanonicalName(name)
	for _, reserved := range ReservedIntentNames {
		if canonical == reserved {
			return true
		}
	}
	return false
}

// Intent is a named user-intent label.
type Intent struct {
	Name            string `json:"name" yaml:"name"`
	IsSystemDefault bool   `json:"is_system_default,omitempty" yaml:"-"`
	UseEntities     bool   `json:"use_entities,omitempty" yaml:"use_entities,omitempty"`
}

// TrainingExample is a single example utterance labelled with an intent.
type TrainingExample struct {
	Intent string `json:"intent" yaml:"intent"`
	Text   string `json:"text" yaml:"text"`
}

// Validate checks the training example shape. The referenced intent is
// resolved separately by the cross-reference validator.
func (t *TrainingExample) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return NewValidationError("training example cannot be empty or blank spaces", "body", "text")
	}
	if err := ValidateName(t.Intent); err != nil {
		return NewValidationError("intent name cannot be empty or blank spaces", "body", "intent")
	}
	return nil
}

// Entity is a named slot-fillable span kind.
type Entity struct {
	Name string `json:"name" yaml:"name"`
}

// SlotType enumerates the supported slot value types.
type SlotType string

const (
	SlotTypeText        SlotType = "text"
	SlotTypeFloat       SlotType = "float"
	SlotTypeCategorical SlotType = "categorical"
	SlotTypeList        SlotType = "list"
	SlotTypeBool        SlotType = "bool"
	SlotTypeAny         SlotType = "any"
)

// IsValidSlotType checks if the given slot type is supported.
func IsValidSlotType(st SlotType) bool {
	switch st {
	case SlotTypeText, SlotTypeFloat, SlotTypeCategorical, SlotTypeList, SlotTypeBool, SlotTypeAny:
		return true
	default:
		return false
	}
}

// Slot is a named conversation variable.
type Slot struct {
	Name                  string   `json:"name" yaml:"name"`
	Type                  SlotType `json:"type" yaml:"type"`
	InitialValue          any      `json:"initial_value,omitempty" yaml:"initial_value,omitempty"`
	Values                []string `json:"values,omitempty" yaml:"values,omitempty"` // categorical slots only
	InfluenceConversation bool     `json:"influence_conversation" yaml:"influence_conversation"`
}

// Validate checks the slot shape.
func (s *Slot) Validate() error {
	if err := ValidateName(s.Name); err != nil {
		return NewValidationError("slot name cannot be empty or blank spaces", "body", "name")
	}
	if !IsValidSlotType(s.Type) {
		return NewValidationError("invalid slot type "+string(s.Type), "body", "type")
	}
	return nil
}

// SlotMappingType enumerates the supported slot-filling strategies.
type SlotMappingType string

const (
	MappingFromText          SlotMappingType = "from_text"
	MappingFromEntity        SlotMappingType = "from_entity"
	MappingFromIntent        SlotMappingType = "from_intent"
	MappingFromTriggerIntent SlotMappingType = "from_trigger_intent"
)

// IsValidSlotMappingType checks if the given mapping type is supported.
func IsValidSlotMappingType(mt SlotMappingType) bool {
	switch mt {
	case MappingFromText, MappingFromEntity, MappingFromIntent, MappingFromTriggerIntent:
		return true
	default:
		return false
	}
}

// MappingCondition restricts when a mapping rule applies.
type MappingCondition struct {
	ActiveLoop    string `json:"active_loop,omitempty" yaml:"active_loop,omitempty"`
	RequestedSlot string `json:"requested_slot,omitempty" yaml:"requested_slot,omitempty"`
}

// SlotMappingRule is a single ordered rule for filling one slot.
type SlotMappingRule struct {
	Type       SlotMappingType    `json:"type" yaml:"type"`
	Entity     string             `json:"entity,omitempty" yaml:"entity,omitempty"`
	Intent     []string           `json:"intent,omitempty" yaml:"intent,omitempty"`
	Value      any                `json:"value,omitempty" yaml:"value,omitempty"`
	Conditions []MappingCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// SlotMapping is the ordered list of mapping rules for one slot. Deletion is
// a whole-slot operation: all rules for the slot are removed together.
type SlotMapping struct {
	Slot  string            `json:"slot" yaml:"slot"`
	Rules []SlotMappingRule `json:"mapping" yaml:"mapping"`
}

// Validate checks mapping shape invariants: known mapping types, and any
// condition naming a requested_slot must also carry an active_loop.
func (m *SlotMapping) Validate() error {
	if err := ValidateName(m.Slot); err != nil {
		return NewValidationError("slot name cannot be empty or blank spaces", "body", "slot")
	}
	if len(m.Rules) == 0 {
		return NewValidationError("at least one mapping rule is required", "body", "mapping")
	}
	for _, rule := range m.Rules {
		if !IsValidSlotMappingType(rule.Type) {
			return NewValidationError("invalid slot mapping type "+string(rule.Type), "body", "mapping", "type")
		}
		for _, cond := range rule.Conditions {
			if cond.RequestedSlot != "" && cond.ActiveLoop == "" {
				return NewValidationError("active_loop is required when requested_slot is set", "body", "mapping", "conditions")
			}
		}
	}
	return nil
}

// UtterancePrefix is the mandatory prefix of response names.
const UtterancePrefix = "utter_"

// ResponseVariant is either a plain text variant or a custom JSON payload.
type ResponseVariant struct {
	Text   string         `json:"text,omitempty" yaml:"text,omitempty"`
	Custom map[string]any `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Response is a named utterance with one or more variants.
type Response struct {
	Name     string            `json:"name" yaml:"name"`
	Variants []ResponseVariant `json:"variants" yaml:"variants"`
}

// Validate checks the response shape: utter_ prefix and at least one variant
// that carries content.
func (r *Response) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return NewValidationError("utterance name cannot be empty or blank spaces", "body", "name")
	}
	if !strings.HasPrefix(CanonicalName(r.Name), UtterancePrefix) {
		return NewValidationError("utterance name must begin with utter_", "body", "name")
	}
	if len(r.Variants) == 0 {
		return NewValidationError("at least one response variant is required", "body", "variants")
	}
	for _, v := range r.Variants {
		if strings.TrimSpace(v.Text) == "" && len(v.Custom) == 0 {
			return NewValidationError("response variant cannot be empty", "body", "variants")
		}
	}
	return nil
}

// LookupTable is a named set of lookup values.
type LookupTable struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"elements" yaml:"examples"`
}

// Synonym maps a canonical value name to its synonym values.
type Synonym struct {
	Name   string   `json:"name" yaml:"synonym"`
	Values []string `json:"values" yaml:"examples"`
}

// RegexFeature is a named regular expression used as an NLU feature.
type RegexFeature struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Validate checks that the pattern compiles.
func (r *RegexFeature) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return NewValidationError("regex name cannot be empty or blank spaces", "body", "name")
	}
	if _, err := regexp.Compile(r.Pattern); err != nil {
		return NewValidationError("invalid regular expression "+r.Pattern, "body", "pattern")
	}
	return nil
}

// BotSettings is the per-tenant settings document carrying quota limits and
// feature toggles read by the quota gate and validators.
type BotSettings struct {
	Tenant                             string `json:"bot"`
	DataImporterLimitPerDay            int    `json:"data_importer_limit_per_day"`
	TrainingLimitPerDay                int    `json:"training_limit_per_day"`
	TestLimitPerDay                    int    `json:"test_limit_per_day"`
	TranslationLimitPerDay             int    `json:"translation_limit_per_day"`
	DataGenerationLimitPerDay          int    `json:"data_generation_limit_per_day"`
	CognitionCollectionsLimit          int    `json:"cognition_collections_limit"`
	CognitionColumnsPerCollectionLimit int    `json:"cognition_columns_per_collection_limit"`
	IntegrationsPerUserLimit           int    `json:"integrations_per_user_limit"`
	LiveAgentEnabled                   bool   `json:"live_agent_enabled"`
	IgnoreUtterances                   bool   `json:"ignore_utterances"`
}

// DefaultBotSettings returns the settings seeded when a tenant is created.
func DefaultBotSettings(tenant string) BotSettings {
	return BotSettings{
		Tenant:                             tenant,
		DataImporterLimitPerDay:            5,
		TrainingLimitPerDay:                5,
		TestLimitPerDay:                    5,
		TranslationLimitPerDay:             2,
		DataGenerationLimitPerDay:          3,
		CognitionCollectionsLimit:          3,
		CognitionColumnsPerCollectionLimit: 5,
		IntegrationsPerUserLimit:           2,
	}
}

// ChatClientConfig is the opaque client configuration map, stored and
// round-tripped verbatim by the importer and exporter.
type ChatClientConfig struct {
	Config map[string]any `json:"config" yaml:"config"`
}
