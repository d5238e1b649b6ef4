package models

// StepType enumerates the closed set of step kinds a flow may contain.
type StepType string

const (
	StepIntent                 StepType = "INTENT"
	StepSlot                   StepType = "SLOT"
	StepFormStart              StepType = "FORM_START"
	StepFormEnd                StepType = "FORM_END"
	StepBot                    StepType = "BOT"
	StepHTTPAction             StepType = "HTTP_ACTION"
	StepAction                 StepType = "ACTION"
	StepSlotSetAction          StepType = "SLOT_SET_ACTION"
	StepFormAction             StepType = "FORM_ACTION"
	StepGoogleSearchAction     StepType = "GOOGLE_SEARCH_ACTION"
	StepEmailAction            StepType = "EMAIL_ACTION"
	StepJiraAction             StepType = "JIRA_ACTION"
	StepZendeskAction          StepType = "ZENDESK_ACTION"
	StepPipedriveLeadsAction   StepType = "PIPEDRIVE_LEADS_ACTION"
	StepHubspotFormsAction     StepType = "HUBSPOT_FORMS_ACTION"
	StepRazorpayAction         StepType = "RAZORPAY_ACTION"
	StepTwoStageFallbackAction StepType = "TWO_STAGE_FALLBACK_ACTION"
	StepPyscriptAction         StepType = "PYSCRIPT_ACTION"
	StepPromptAction           StepType = "PROMPT_ACTION"
	StepDatabaseAction         StepType = "DATABASE_ACTION"
	StepWebSearchAction        StepType = "WEB_SEARCH_ACTION"
	StepLiveAgentAction        StepType = "LIVE_AGENT_ACTION"
	StepStopFlowAction         StepType = "STOP_FLOW_ACTION"
)

// IsValidStepType checks if the given step type is in the closed enumeration.
func IsValidStepType(st StepType) bool {
	switch st {
	case StepIntent, StepSlot, StepFormStart, StepFormEnd, StepBot,
		StepHTTPAction, StepAction, StepSlotSetAction, StepFormAction,
		StepGoogleSearchAction, StepEmailAction, StepJiraAction,
		StepZendeskAction, StepPipedriveLeadsAction, StepHubspotFormsAction,
		StepRazorpayAction, StepTwoStageFallbackAction, StepPyscriptAction,
		StepPromptAction, StepDatabaseAction, StepWebSearchAction,
		StepLiveAgentAction, StepStopFlowAction:
		return true
	default:
		return false
	}
}

// stepActionTypes maps action step types to the integrated-action kind the
// step name must resolve to.
var stepActionTypes = map[StepType]ActionType{
	StepHTTPAction:             ActionTypeHTTP,
	StepSlotSetAction:          ActionTypeSlotSet,
	StepGoogleSearchAction:     ActionTypeGoogleSearch,
	StepEmailAction:            ActionTypeEmail,
	StepJiraAction:             ActionTypeJira,
	StepZendeskAction:          ActionTypeZendesk,
	StepPipedriveLeadsAction:   ActionTypePipedriveLeads,
	StepHubspotFormsAction:     ActionTypeHubspotForms,
	StepRazorpayAction:         ActionTypeRazorpay,
	StepTwoStageFallbackAction: ActionTypeTwoStageFallback,
	StepPyscriptAction:         ActionTypePyscript,
	StepPromptAction:           ActionTypePrompt,
	StepDatabaseAction:         ActionTypeDatabase,
	StepWebSearchAction:        ActionTypeWebSearch,
	StepLiveAgentAction:        ActionTypeLiveAgent,
	StepStopFlowAction:         ActionTypeStopFlow,
}

// ActionKindForStep returns the integrated-action kind a step type resolves
// against, and whether the step type is an integrated-action step.
func ActionKindForStep(st StepType) (ActionType, bool) {
	at, ok := stepActionTypes[st]
	return at, ok
}

// IsActionStep reports whether the step type names an integrated action.
func IsActionStep(st StepType) bool {
	_, ok := stepActionTypes[st]
	return ok
}

// IsIntentFollower reports whether a step of this type may directly follow an
// INTENT step: an utterance or any action step. STOP_FLOW_ACTION is excluded
// because it may never immediately follow an intent.
func IsIntentFollower(st StepType) bool {
	if st == StepBot || st == StepAction || st == StepFormAction {
		return true
	}
	return IsActionStep(st) && st != StepStopFlowAction
}

// Step is a single element of a story or rule.
type Step struct {
	Name string   `json:"name" yaml:"name"`
	Type StepType `json:"type" yaml:"type"`
}

// Story is a named linear flow of steps.
type Story struct {
	Name  string `json:"block_name" yaml:"block_name"`
	Steps []Step `json:"events" yaml:"events"`
}

// Rule is a named linear flow with at most one INTENT step.
type Rule struct {
	Name  string `json:"block_name" yaml:"block_name"`
	Steps []Step `json:"events" yaml:"events"`
}

// Validate checks the structural invariants for stories.
func (s *Story) Validate() error {
	return validateFlowSteps(s.Name, s.Steps, false)
}

// Validate checks the structural invariants for rules, including the
// single-intent constraint.
func (r *Rule) Validate() error {
	return validateFlowSteps(r.Name, r.Steps, true)
}

// validateFlowSteps enforces the linear flow invariants shared by stories and
// rules:
//   - at least one step, the first of type INTENT
//   - no two consecutive INTENT steps
//   - every INTENT is followed by an utterance or action step
//   - STOP_FLOW_ACTION only as the last step, never right after an intent
//   - every step except FORM_END carries a name
func validateFlowSteps(flowName string, steps []Step, singleIntent bool) error {
	if err := ValidateName(flowName); err != nil {
		return NewValidationError("flow name cannot be empty or blank spaces", "body", "block_name")
	}
	if len(steps) == 0 {
		return NewValidationError("steps are required", "body", "events")
	}
	if steps[0].Type != StepIntent {
		return NewValidationError("first step should be an intent", "body", "events")
	}

	intentCount := 0
	for i, step := range steps {
		if !IsValidStepType(step.Type) {
			return NewValidationError("invalid step type "+string(step.Type), "body", "events", "type")
		}
		if step.Type != StepFormEnd {
			if err := ValidateName(step.Name); err != nil {
				return NewValidationError("step name cannot be empty or blank spaces", "body", "events", "name")
			}
		}
		if step.Type == StepIntent {
			intentCount++
			if i > 0 && steps[i-1].Type == StepIntent {
				return NewValidationError("intent should be followed by utterance or action", "body", "events")
			}
			if i == len(steps)-1 {
				return NewValidationError("intent should be followed by utterance or action", "body", "events")
			}
			next := steps[i+1]
			if next.Type == StepIntent || !IsIntentFollower(next.Type) {
				return NewValidationError("intent should be followed by utterance or action", "body", "events")
			}
		}
		if step.Type == StepStopFlowAction {
			if i != len(steps)-1 {
				return NewValidationError("stop flow action can only be the last step", "body", "events")
			}
			if i > 0 && steps[i-1].Type == StepIntent {
				return NewValidationError("stop flow action cannot immediately follow an intent", "body", "events")
			}
		}
	}

	if singleIntent && intentCount > 1 {
		return NewValidationError("rules can have only one intent", "body", "events")
	}
	return nil
}

// MultiflowType marks a multiflow sub-path as story-like or rule-like.
type MultiflowType string

const (
	MultiflowTypeStory MultiflowType = "STORY"
	MultiflowTypeRule  MultiflowType = "RULE"
)

// MultiflowStep is one node of a multiflow DAG. Connections name the node IDs
// of successor steps.
type MultiflowStep struct {
	NodeID      string        `json:"node_id" yaml:"node_id"`
	ComponentID string        `json:"component_id" yaml:"component_id"`
	Name        string        `json:"name" yaml:"name"`
	Type        StepType      `json:"step_type" yaml:"step_type"`
	Connections []string      `json:"connections" yaml:"connections"`
	FlowType    MultiflowType `json:"flow_type,omitempty" yaml:"flow_type,omitempty"`
}

// MultiflowStory is a named DAG of steps.
type MultiflowStory struct {
	Name  string          `json:"block_name" yaml:"block_name"`
	Steps []MultiflowStep `json:"events" yaml:"events"`
}

// Validate checks the DAG invariants: known step types, unique node IDs,
// connections resolving to existing nodes, every leaf an utterance or action
// (never an intent), and STOP_FLOW_ACTION only as a leaf that is not a direct
// successor of an intent.
func (m *MultiflowStory) Validate() error {
	if err := ValidateName(m.Name); err != nil {
		return NewValidationError("flow name cannot be empty or blank spaces", "body", "block_name")
	}
	if len(m.Steps) == 0 {
		return NewValidationError("steps are required", "body", "events")
	}

	nodes := make(map[string]MultiflowStep, len(m.Steps))
	for _, step := range m.Steps {
		if !IsValidStepType(step.Type) {
			return NewValidationError("invalid step type "+string(step.Type), "body", "events", "step_type")
		}
		if step.NodeID == "" {
			return NewValidationError("node_id is required", "body", "events", "node_id")
		}
		if _, dup := nodes[step.NodeID]; dup {
			return NewValidationError("duplicate node_id "+step.NodeID, "body", "events", "node_id")
		}
		nodes[step.NodeID] = step
	}

	for _, step := range m.Steps {
		for _, conn := range step.Connections {
			successor, ok := nodes[conn]
			if !ok {
				return NewValidationError("connection to unknown node "+conn, "body", "events", "connections")
			}
			if step.Type == StepIntent && successor.Type == StepStopFlowAction {
				return NewValidationError("stop flow action cannot immediately follow an intent", "body", "events")
			}
		}
		if len(step.Connections) == 0 {
			// Leaf node checks.
			if step.Type == StepIntent {
				return NewValidationError("leaf nodes cannot be intents", "body", "events")
			}
		} else if step.Type == StepStopFlowAction {
			return NewValidationError("stop flow action can only be a leaf step", "body", "events")
		}
	}
	return nil
}

// Leaves returns the leaf steps of the multiflow DAG.
func (m *MultiflowStory) Leaves() []MultiflowStep {
	var leaves []MultiflowStep
	for _, step := range m.Steps {
		if len(step.Connections) == 0 {
			leaves = append(leaves, step)
		}
	}
	return leaves
}
