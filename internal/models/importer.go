package models

import "time"

// EventStatus is the lifecycle state of an importer run.
type EventStatus string

const (
	EventEnqueued   EventStatus = "ENQUEUED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
	EventFailed     EventStatus = "FAILED"
)

// ImportStatus is the data outcome of a completed importer run.
type ImportStatus string

const (
	ImportSuccess ImportStatus = "Success"
	ImportFailure ImportStatus = "Failure"
)

// ImportMode selects the commit strategy of an importer run.
type ImportMode string

const (
	// ImportOverwrite soft-deletes current active entities of each kind
	// present in the bundle before inserting the new ones.
	ImportOverwrite ImportMode = "overwrite"
	// ImportAppend merges by canonical name, rejecting conflicts unless
	// force_import is set.
	ImportAppend ImportMode = "append"
)

// KindReport is the per-kind slice of a validation report.
type KindReport struct {
	Count int      `json:"count"`
	Data  []string `json:"data"`
}

// Add records a violation and bumps the count.
func (r *KindReport) Add(violation string) {
	r.Data = append(r.Data, violation)
	r.Count++
}

// ActionReport is the per-action-kind slice of a validation report.
type ActionReport struct {
	Type  string   `json:"type"`
	Count int      `json:"count"`
	Data  []string `json:"data"`
}

// ValidationReport is the cross-reference report partitioned by artifact
// kind, as persisted on the importer log.
type ValidationReport struct {
	Intents          KindReport     `json:"intents"`
	Utterances       KindReport     `json:"utterances"`
	TrainingExamples KindReport     `json:"training_examples"`
	Stories          KindReport     `json:"stories"`
	Rules            KindReport     `json:"rules"`
	Domain           KindReport     `json:"domain"`
	Config           KindReport     `json:"config"`
	Actions          []ActionReport `json:"actions"`
	MultiflowStories KindReport     `json:"multiflow_stories"`
	BotContent       KindReport     `json:"bot_content"`
	UserActions      KindReport     `json:"user_actions"`
}

// ActionReportFor returns the report slice for an action kind, creating it
// on first use.
func (r *ValidationReport) ActionReportFor(at ActionType) *ActionReport {
	for i := range r.Actions {
		if r.Actions[i].Type == string(at)+"s" {
			return &r.Actions[i]
		}
	}
	r.Actions = append(r.Actions, ActionReport{Type: string(at) + "s"})
	return &r.Actions[len(r.Actions)-1]
}

// HasViolations reports whether any slice of the report carries violations.
func (r *ValidationReport) HasViolations() bool {
	for _, slice := range []KindReport{
		r.Intents, r.Utterances, r.TrainingExamples, r.Stories, r.Rules,
		r.Domain, r.Config, r.MultiflowStories, r.BotContent, r.UserActions,
	} {
		if len(slice.Data) > 0 {
			return true
		}
	}
	for _, action := range r.Actions {
		if len(action.Data) > 0 {
			return true
		}
	}
	return false
}

// Violations flattens the report into a single message list.
func (r *ValidationReport) Violations() []string {
	var all []string
	for _, slice := range []KindReport{
		r.Intents, r.Utterances, r.TrainingExamples, r.Stories, r.Rules,
		r.Domain, r.Config, r.MultiflowStories, r.BotContent, r.UserActions,
	} {
		all = append(all, slice.Data...)
	}
	for _, action := range r.Actions {
		all = append(all, action.Data...)
	}
	return all
}

// ImporterLog summarizes one importer run: files received, per-kind counts
// and violations, event state machine transitions and timestamps.
type ImporterLog struct {
	ID             string           `json:"id"`
	Tenant         string           `json:"bot"`
	User           string           `json:"user"`
	ReferenceID    string           `json:"reference_id"`
	FilesReceived  []string         `json:"files_received"`
	Mode           ImportMode       `json:"mode"`
	Report         ValidationReport `json:"report"`
	IsDataUploaded bool             `json:"is_data_uploaded"`
	EventStatus    EventStatus      `json:"event_status"`
	Status         ImportStatus     `json:"status,omitempty"`
	StartTimestamp time.Time        `json:"start_timestamp"`
	EndTimestamp   *time.Time       `json:"end_timestamp,omitempty"`
	Exception      string           `json:"exception,omitempty"`
}

// CanTransition reports whether the event state machine allows moving from
// the current status to next.
func (l *ImporterLog) CanTransition(next EventStatus) bool {
	switch l.EventStatus {
	case EventEnqueued:
		return next == EventInProgress || next == EventFailed
	case EventInProgress:
		return next == EventCompleted || next == EventFailed
	default:
		return false
	}
}
