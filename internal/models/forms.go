package models

import "strings"

// SlotSetType enumerates how a form fills a slot after asking.
type SlotSetType string

const (
	SlotSetCustom  SlotSetType = "custom"
	SlotSetCurrent SlotSetType = "current"
	SlotSetSlot    SlotSetType = "slot"
)

// IsValidSlotSetType checks if the given slot-set type is supported.
func IsValidSlotSetType(st SlotSetType) bool {
	switch st {
	case SlotSetCustom, SlotSetCurrent, SlotSetSlot:
		return true
	default:
		return false
	}
}

// SlotSetDirective controls the value written into a form slot.
type SlotSetDirective struct {
	Type  SlotSetType `json:"type" yaml:"type"`
	Value any         `json:"value,omitempty" yaml:"value,omitempty"`
}

// FormSetting configures one slot of a form.
type FormSetting struct {
	Slot               string           `json:"slot" yaml:"slot"`
	AskQuestions       []string         `json:"ask_questions" yaml:"ask_questions"`
	ValidationSemantic string           `json:"validation_semantic,omitempty" yaml:"validation_semantic,omitempty"`
	IsRequired         bool             `json:"is_required" yaml:"is_required"`
	SlotSet            SlotSetDirective `json:"slot_set" yaml:"slot_set"`
}

// Form is a named ordered list of slot settings. Adding a form auto-creates
// an utterance utter_ask_<form>_<slot> for each slot.
type Form struct {
	Name     string        `json:"name" yaml:"name"`
	Settings []FormSetting `json:"settings" yaml:"settings"`
}

// Validate checks the form shape. Slot existence and the no-any-typed-slot
// rule are resolved against the store by the caller.
func (f *Form) Validate() error {
	if err := ValidateName(f.Name); err != nil {
		return NewValidationError("form name cannot be empty or blank spaces", "body", "name")
	}
	if len(f.Settings) == 0 {
		return NewValidationError("form settings are required", "body", "settings")
	}
	seen := make(map[string]bool, len(f.Settings))
	for _, setting := range f.Settings {
		if err := ValidateName(setting.Slot); err != nil {
			return NewValidationError("slot name cannot be empty or blank spaces", "body", "settings", "slot")
		}
		canonical := CanonicalName(setting.Slot)
		if seen[canonical] {
			return NewValidationError("duplicate slot "+setting.Slot+" in form", "body", "settings", "slot")
		}
		seen[canonical] = true
		if len(setting.AskQuestions) == 0 {
			return NewValidationError("ask_questions are required for slot "+setting.Slot, "body", "settings", "ask_questions")
		}
		for _, question := range setting.AskQuestions {
			if strings.TrimSpace(question) == "" {
				return NewValidationError("ask_questions cannot be empty", "body", "settings", "ask_questions")
			}
		}
		if !IsValidSlotSetType(setting.SlotSet.Type) {
			return NewValidationError("invalid slot_set type "+string(setting.SlotSet.Type), "body", "settings", "slot_set")
		}
	}
	return nil
}

// AskUtteranceName returns the auto-created utterance name for a form slot.
func AskUtteranceName(formName, slotName string) string {
	return UtterancePrefix + "ask_" + CanonicalName(formName) + "_" + CanonicalName(slotName)
}
