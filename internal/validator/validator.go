// Package validator runs the cross-reference validation pass over a full
// training data snapshot and produces the per-kind report persisted on the
// importer log. It never touches the store: the caller assembles the
// snapshot, merging current data for append-mode imports.
package validator

import (
	"fmt"
	"strings"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
)

// Bundle is a complete training data snapshot under validation.
type Bundle struct {
	Intents          []models.Intent
	TrainingExamples []models.TrainingExample
	Entities         []models.Entity
	Slots            []models.Slot
	SlotMappings     []models.SlotMapping
	Responses        []models.Response
	Stories          []models.Story
	Rules            []models.Rule
	MultiflowStories []models.MultiflowStory
	Forms            []models.Form
	LookupTables     []models.LookupTable
	Synonyms         []models.Synonym
	RegexFeatures    []models.RegexFeature
	Actions          []models.Action
	CognitionSchemas []models.CognitionSchema
	CognitionData    []models.CognitionData
	Config           *dataset.ModelConfig
	ChatClientConfig *models.ChatClientConfig
}

// Options tunes the validation pass.
type Options struct {
	// IgnoreUtterances suppresses orphan-utterance violations.
	IgnoreUtterances bool
}

// Validate runs every check over the snapshot and returns the report.
func Validate(b *Bundle, opts Options) models.ValidationReport {
	v := &run{bundle: b, opts: opts}
	v.index()
	v.checkIntents()
	v.checkTrainingExamples()
	v.checkDomain()
	v.checkUtterances()
	v.checkStories()
	v.checkRules()
	v.checkMultiflowStories()
	v.checkActions()
	v.checkConfig()
	v.checkBotContent()
	return v.report
}

type run struct {
	bundle *Bundle
	opts   Options
	report models.ValidationReport

	intents     map[string]bool
	responses   map[string]bool
	slots       map[string]models.Slot
	entities    map[string]bool
	forms       map[string]bool
	actions     map[string]models.ActionType
	collections map[string]*models.CognitionSchema
	// utterances referenced by any flow step or auto-created by a form
	usedResponses map[string]bool
}

func (v *run) index() {
	b := v.bundle
	v.intents = make(map[string]bool, len(b.Intents))
	for _, intent := range b.Intents {
		v.intents[models.CanonicalName(intent.Name)] = true
	}
	v.responses = make(map[string]bool, len(b.Responses))
	for _, response := range b.Responses {
		v.responses[models.CanonicalName(response.Name)] = true
	}
	v.slots = make(map[string]models.Slot, len(b.Slots))
	for _, slot := range b.Slots {
		v.slots[models.CanonicalName(slot.Name)] = slot
	}
	v.entities = make(map[string]bool, len(b.Entities))
	for _, entity := range b.Entities {
		v.entities[models.CanonicalName(entity.Name)] = true
	}
	v.forms = make(map[string]bool, len(b.Forms))
	for _, form := range b.Forms {
		v.forms[models.CanonicalName(form.Name)] = true
	}
	v.actions = make(map[string]models.ActionType, len(b.Actions))
	for _, action := range b.Actions {
		v.actions[models.CanonicalName(action.Name)] = action.Type
	}
	v.collections = make(map[string]*models.CognitionSchema, len(b.CognitionSchemas))
	for i := range b.CognitionSchemas {
		schema := &b.CognitionSchemas[i]
		v.collections[models.CanonicalName(schema.CollectionName)] = schema
	}

	v.usedResponses = make(map[string]bool)
	mark := func(stepType models.StepType, name string) {
		if stepType == models.StepBot {
			v.usedResponses[models.CanonicalName(name)] = true
		}
	}
	for _, story := range b.Stories {
		for _, step := range story.Steps {
			mark(step.Type, step.Name)
		}
	}
	for _, rule := range b.Rules {
		for _, step := range rule.Steps {
			mark(step.Type, step.Name)
		}
	}
	for _, flow := range b.MultiflowStories {
		for _, step := range flow.Steps {
			mark(step.Type, step.Name)
		}
	}
	for _, form := range b.Forms {
		for _, setting := range form.Settings {
			v.usedResponses[models.AskUtteranceName(form.Name, setting.Slot)] = true
		}
	}
}

func (v *run) checkIntents() {
	seen := make(map[string]bool, len(v.bundle.Intents))
	hasExample := make(map[string]bool)
	for _, example := range v.bundle.TrainingExamples {
		hasExample[models.CanonicalName(example.Intent)] = true
	}
	for _, intent := range v.bundle.Intents {
		canonical := models.CanonicalName(intent.Name)
		if canonical == "" {
			v.report.Intents.Add("intent name cannot be empty or blank spaces")
			continue
		}
		if seen[canonical] {
			v.report.Intents.Add(fmt.Sprintf("Duplicate intent found: %s", canonical))
			continue
		}
		seen[canonical] = true
		if !hasExample[canonical] && !models.IsReservedIntent(canonical) {
			v.report.Intents.Add(fmt.Sprintf("There is no example for intent: %s", canonical))
		}
	}
}

func (v *run) checkTrainingExamples() {
	seen := make(map[string]bool, len(v.bundle.TrainingExamples))
	for _, example := range v.bundle.TrainingExamples {
		if err := example.Validate(); err != nil {
			v.report.TrainingExamples.Add(err.Error())
			continue
		}
		intent := models.CanonicalName(example.Intent)
		if !v.intents[intent] {
			v.report.TrainingExamples.Add(fmt.Sprintf("Training example %q references undefined intent: %s", example.Text, intent))
		}
		key := models.CanonicalName(example.Text)
		if seen[key] {
			v.report.TrainingExamples.Add(fmt.Sprintf("Duplicate training example found: %s", example.Text))
		}
		seen[key] = true
	}
}

func (v *run) checkDomain() {
	seenSlots := make(map[string]bool, len(v.bundle.Slots))
	for _, slot := range v.bundle.Slots {
		if err := slot.Validate(); err != nil {
			v.report.Domain.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(slot.Name)
		if seenSlots[canonical] {
			v.report.Domain.Add(fmt.Sprintf("Duplicate slot found: %s", canonical))
		}
		seenSlots[canonical] = true
	}

	for _, mapping := range v.bundle.SlotMappings {
		if err := mapping.Validate(); err != nil {
			v.report.Domain.Add(err.Error())
			continue
		}
		slot := models.CanonicalName(mapping.Slot)
		if _, ok := v.slots[slot]; !ok {
			v.report.Domain.Add(fmt.Sprintf("Mapping for undefined slot: %s", slot))
		}
		for _, rule := range mapping.Rules {
			if rule.Type == models.MappingFromEntity && !v.entities[models.CanonicalName(rule.Entity)] {
				v.report.Domain.Add(fmt.Sprintf("Mapping for slot %q references undefined entity: %s", slot, rule.Entity))
			}
		}
	}

	seenForms := make(map[string]bool, len(v.bundle.Forms))
	for _, form := range v.bundle.Forms {
		if err := form.Validate(); err != nil {
			v.report.Domain.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(form.Name)
		if seenForms[canonical] {
			v.report.Domain.Add(fmt.Sprintf("Duplicate form found: %s", canonical))
		}
		seenForms[canonical] = true
		for _, setting := range form.Settings {
			slot, ok := v.slots[models.CanonicalName(setting.Slot)]
			if !ok {
				v.report.Domain.Add(fmt.Sprintf("Form %q references undefined slot: %s", canonical, setting.Slot))
				continue
			}
			if slot.Type == models.SlotTypeAny {
				v.report.Domain.Add(fmt.Sprintf("Form %q cannot have any type slot %q", canonical, slot.Name))
			}
		}
	}
}

func (v *run) checkUtterances() {
	seen := make(map[string]bool, len(v.bundle.Responses))
	for _, response := range v.bundle.Responses {
		if err := response.Validate(); err != nil {
			v.report.Utterances.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(response.Name)
		if seen[canonical] {
			v.report.Utterances.Add(fmt.Sprintf("Duplicate utterance found: %s", canonical))
			continue
		}
		seen[canonical] = true
		if !v.opts.IgnoreUtterances && !v.usedResponses[canonical] && !isDefaultUtterance(canonical) {
			v.report.Utterances.Add(fmt.Sprintf("The utterance %s is not used by any flow", canonical))
		}
	}
}

// isDefaultUtterance exempts the seeded fallback utterances from the orphan
// check.
func isDefaultUtterance(name string) bool {
	_, ok := dataset.DefaultUtterances[name]
	return ok
}

func (v *run) checkStories() {
	seen := make(map[string]bool, len(v.bundle.Stories))
	for _, story := range v.bundle.Stories {
		if err := story.Validate(); err != nil {
			v.report.Stories.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(story.Name)
		if seen[canonical] {
			v.report.Stories.Add(fmt.Sprintf("Duplicate story found: %s", canonical))
			continue
		}
		seen[canonical] = true
		for _, step := range story.Steps {
			if msg := v.resolveStep(step.Type, step.Name, canonical); msg != "" {
				v.report.Stories.Add(msg)
			}
		}
	}
}

func (v *run) checkRules() {
	seen := make(map[string]bool, len(v.bundle.Rules))
	var multiIntent []string
	for _, rule := range v.bundle.Rules {
		intentCount := 0
		for _, step := range rule.Steps {
			if step.Type == models.StepIntent {
				intentCount++
			}
		}
		if intentCount > 1 {
			multiIntent = append(multiIntent, rule.Name)
			continue
		}
		if err := rule.Validate(); err != nil {
			v.report.Rules.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(rule.Name)
		if seen[canonical] {
			v.report.Rules.Add(fmt.Sprintf("Duplicate rule found: %s", canonical))
			continue
		}
		seen[canonical] = true
		for _, step := range rule.Steps {
			if msg := v.resolveStep(step.Type, step.Name, canonical); msg != "" {
				v.report.Rules.Add(msg)
			}
		}
	}
	if len(multiIntent) > 0 {
		v.report.Rules.Add(fmt.Sprintf(
			"Found rules '%s' that contain more than intent.\nPlease use stories for this case",
			strings.Join(multiIntent, ", "),
		))
	}
}

func (v *run) checkMultiflowStories() {
	seen := make(map[string]bool, len(v.bundle.MultiflowStories))
	for _, flow := range v.bundle.MultiflowStories {
		if err := flow.Validate(); err != nil {
			v.report.MultiflowStories.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(flow.Name)
		if seen[canonical] {
			v.report.MultiflowStories.Add(fmt.Sprintf("Duplicate multiflow story found: %s", canonical))
			continue
		}
		seen[canonical] = true
		for _, step := range flow.Steps {
			if msg := v.resolveStep(step.Type, step.Name, canonical); msg != "" {
				v.report.MultiflowStories.Add(msg)
			}
		}
	}
}

// resolveStep checks one flow step against the snapshot indexes, returning a
// violation message or "".
func (v *run) resolveStep(stepType models.StepType, name, flow string) string {
	canonical := models.CanonicalName(name)
	switch stepType {
	case models.StepIntent:
		if !v.intents[canonical] {
			return fmt.Sprintf("Undefined intent %q used in flow %q", canonical, flow)
		}
	case models.StepBot:
		if !v.responses[canonical] {
			return fmt.Sprintf("Undefined utterance %q used in flow %q", canonical, flow)
		}
	case models.StepFormStart, models.StepFormAction:
		if !v.forms[canonical] {
			return fmt.Sprintf("Undefined form %q used in flow %q", canonical, flow)
		}
	case models.StepSlot:
		if _, ok := v.slots[canonical]; !ok {
			return fmt.Sprintf("Undefined slot %q used in flow %q", canonical, flow)
		}
	case models.StepFormEnd, models.StepAction:
		// FORM_END is structural; custom actions resolve on the action server.
	default:
		if kind, ok := models.ActionKindForStep(stepType); ok {
			actual, exists := v.actions[canonical]
			if !exists {
				return fmt.Sprintf("Undefined action %q used in flow %q", canonical, flow)
			}
			if actual != kind {
				return fmt.Sprintf("Action %q used in flow %q is not of type %s", canonical, flow, kind)
			}
		}
	}
	return ""
}

func (v *run) checkActions() {
	seen := make(map[string]bool, len(v.bundle.Actions))
	for i := range v.bundle.Actions {
		action := &v.bundle.Actions[i]
		slice := v.report.ActionReportFor(action.Type)
		if err := action.Validate(); err != nil {
			slice.Data = append(slice.Data, err.Error())
			slice.Count++
			continue
		}
		canonical := models.CanonicalName(action.Name)
		if seen[canonical] {
			slice.Data = append(slice.Data, fmt.Sprintf("Duplicate action found: %s", canonical))
			slice.Count++
			continue
		}
		seen[canonical] = true

		switch action.Type {
		case models.ActionTypeDatabase:
			if action.Database != nil {
				if _, ok := v.collections[models.CanonicalName(action.Database.Collection)]; !ok {
					slice.Data = append(slice.Data, fmt.Sprintf("Action %q references undefined collection: %s", canonical, action.Database.Collection))
					slice.Count++
				}
			}
		case models.ActionTypePrompt:
			if action.Prompt != nil && action.Prompt.CollectionName != "" {
				if _, ok := v.collections[models.CanonicalName(action.Prompt.CollectionName)]; !ok {
					slice.Data = append(slice.Data, fmt.Sprintf("Action %q references undefined collection: %s", canonical, action.Prompt.CollectionName))
					slice.Count++
				}
			}
		}
	}
}

func (v *run) checkConfig() {
	config := v.bundle.Config
	if config == nil {
		return
	}
	if len(config.Pipeline) == 0 {
		v.report.Config.Add("Config: pipeline is required")
	}
	if len(config.Policies) == 0 {
		v.report.Config.Add("Config: policies are required")
	}
	for _, component := range config.Pipeline {
		name, _ := component["name"].(string)
		if strings.TrimSpace(name) == "" {
			v.report.Config.Add("Config: pipeline component without a name")
			continue
		}
		if !dataset.IsKnownPipelineComponent(name) {
			v.report.Config.Add("Config: unknown pipeline component " + name)
		}
	}
	for _, policy := range config.Policies {
		name, _ := policy["name"].(string)
		if strings.TrimSpace(name) == "" {
			v.report.Config.Add("Config: policy without a name")
			continue
		}
		if !dataset.IsKnownPolicyComponent(name) {
			v.report.Config.Add("Config: unknown policy " + name)
		}
	}
}

func (v *run) checkBotContent() {
	seenCollections := make(map[string]bool, len(v.bundle.CognitionSchemas))
	for _, schema := range v.bundle.CognitionSchemas {
		if err := schema.Validate(); err != nil {
			v.report.BotContent.Add(err.Error())
			continue
		}
		canonical := models.CanonicalName(schema.CollectionName)
		if seenCollections[canonical] {
			v.report.BotContent.Add(fmt.Sprintf("Duplicate collection found: %s", canonical))
		}
		seenCollections[canonical] = true
	}

	for _, row := range v.bundle.CognitionData {
		schema := v.collections[models.CanonicalName(row.Collection)]
		if err := row.ValidateAgainstSchema(schema); err != nil {
			v.report.BotContent.Add(err.Error())
		}
	}
}
