package dataset

import (
	"fmt"

	"github.com/digiteinfotech/kairon/internal/models"
)

// AddStory creates a linear story after validating its shape and resolving
// every step reference.
func (p *Processor) AddStory(tenant, user string, story models.Story) error {
	if err := story.Validate(); err != nil {
		return err
	}
	story.Name = models.CanonicalName(story.Name)
	if err := p.resolveStepReferences(tenant, story.Steps); err != nil {
		return err
	}
	if err := p.saveDoc(tenant, user, models.KindStory, story.Name, story); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindStory, models.AuditSave, snapshot(story))
	return nil
}

// UpdateStory replaces the steps of an existing story.
func (p *Processor) UpdateStory(tenant, user string, story models.Story) error {
	if err := story.Validate(); err != nil {
		return err
	}
	story.Name = models.CanonicalName(story.Name)
	if err := p.resolveStepReferences(tenant, story.Steps); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindStory, story.Name, story); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindStory, models.AuditUpdate, snapshot(story))
	return nil
}

// ListStories returns every active story.
func (p *Processor) ListStories(tenant string) ([]models.Story, error) {
	return listDecoded[models.Story](p, tenant, models.KindStory)
}

// DeleteStory removes a story.
func (p *Processor) DeleteStory(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindStory, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindStory, models.AuditSoftDelete, map[string]any{"block_name": models.CanonicalName(name)})
	return nil
}

// AddRule creates a rule flow.
func (p *Processor) AddRule(tenant, user string, rule models.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.Name = models.CanonicalName(rule.Name)
	if err := p.resolveStepReferences(tenant, rule.Steps); err != nil {
		return err
	}
	if err := p.saveDoc(tenant, user, models.KindRule, rule.Name, rule); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindRule, models.AuditSave, snapshot(rule))
	return nil
}

// UpdateRule replaces the steps of an existing rule.
func (p *Processor) UpdateRule(tenant, user string, rule models.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.Name = models.CanonicalName(rule.Name)
	if err := p.resolveStepReferences(tenant, rule.Steps); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindRule, rule.Name, rule); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindRule, models.AuditUpdate, snapshot(rule))
	return nil
}

// ListRules returns every active rule.
func (p *Processor) ListRules(tenant string) ([]models.Rule, error) {
	return listDecoded[models.Rule](p, tenant, models.KindRule)
}

// DeleteRule removes a rule.
func (p *Processor) DeleteRule(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindRule, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindRule, models.AuditSoftDelete, map[string]any{"block_name": models.CanonicalName(name)})
	return nil
}

// AddMultiflowStory creates a DAG flow.
func (p *Processor) AddMultiflowStory(tenant, user string, flow models.MultiflowStory) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	flow.Name = models.CanonicalName(flow.Name)
	if err := p.resolveMultiflowReferences(tenant, flow.Steps); err != nil {
		return err
	}
	if err := p.saveDoc(tenant, user, models.KindMultiflowStory, flow.Name, flow); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindMultiflowStory, models.AuditSave, snapshot(flow))
	return nil
}

// UpdateMultiflowStory replaces an existing DAG flow.
func (p *Processor) UpdateMultiflowStory(tenant, user string, flow models.MultiflowStory) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	flow.Name = models.CanonicalName(flow.Name)
	if err := p.resolveMultiflowReferences(tenant, flow.Steps); err != nil {
		return err
	}
	if err := p.updateDoc(tenant, user, models.KindMultiflowStory, flow.Name, flow); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindMultiflowStory, models.AuditUpdate, snapshot(flow))
	return nil
}

// ListMultiflowStories returns every active DAG flow.
func (p *Processor) ListMultiflowStories(tenant string) ([]models.MultiflowStory, error) {
	return listDecoded[models.MultiflowStory](p, tenant, models.KindMultiflowStory)
}

// DeleteMultiflowStory removes a DAG flow.
func (p *Processor) DeleteMultiflowStory(tenant, user, name string) error {
	if err := p.store.SoftDeleteDocument(tenant, models.KindMultiflowStory, name, user); err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindMultiflowStory, models.AuditSoftDelete, map[string]any{"block_name": models.CanonicalName(name)})
	return nil
}

// resolveStepReferences resolves every step of a linear flow against the
// artifact it names: intents, utterances, forms, slots and integrated
// actions of the matching kind.
func (p *Processor) resolveStepReferences(tenant string, steps []models.Step) error {
	for _, step := range steps {
		if err := p.resolveStep(tenant, step.Type, step.Name); err != nil {
			return err
		}
	}
	return nil
}

// resolveMultiflowReferences resolves every node of a DAG flow.
func (p *Processor) resolveMultiflowReferences(tenant string, steps []models.MultiflowStep) error {
	for _, step := range steps {
		if err := p.resolveStep(tenant, step.Type, step.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) resolveStep(tenant string, stepType models.StepType, name string) error {
	switch stepType {
	case models.StepIntent:
		ok, err := p.exists(tenant, models.KindIntent, name)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(name), Kind: models.KindIntent}
		}
	case models.StepBot:
		ok, err := p.exists(tenant, models.KindResponse, name)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(name), Kind: models.KindResponse}
		}
	case models.StepFormStart, models.StepFormAction:
		ok, err := p.exists(tenant, models.KindForm, name)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(name), Kind: models.KindForm}
		}
	case models.StepSlot:
		ok, err := p.exists(tenant, models.KindSlot, name)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ReferentialIntegrityError{Name: models.CanonicalName(name), Kind: models.KindSlot}
		}
	case models.StepFormEnd:
		// Structural marker, nothing to resolve.
	case models.StepAction:
		// Custom actions run on an external action server; only the name is
		// recorded here.
	default:
		if kind, ok := models.ActionKindForStep(stepType); ok {
			action, err := p.GetAction(tenant, name)
			if err != nil {
				return &models.ReferentialIntegrityError{Name: models.CanonicalName(name), Kind: models.KindAction}
			}
			if action.Type != kind {
				return &models.ReferentialIntegrityError{
					Name: models.CanonicalName(name), Kind: models.KindAction,
					Msg: fmt.Sprintf("action %q is not of type %s", models.CanonicalName(name), kind),
				}
			}
		}
	}
	return nil
}

// flowReferencing scans stories, rules and multiflow stories for a step of
// the given type naming the artifact. It returns the first referencing flow.
func (p *Processor) flowReferencing(tenant string, stepType models.StepType, name string) (string, bool, error) {
	canonical := models.CanonicalName(name)

	stories, err := p.ListStories(tenant)
	if err != nil {
		return "", false, err
	}
	for _, story := range stories {
		for _, step := range story.Steps {
			if step.Type == stepType && models.CanonicalName(step.Name) == canonical {
				return story.Name, true, nil
			}
		}
	}

	rules, err := p.ListRules(tenant)
	if err != nil {
		return "", false, err
	}
	for _, rule := range rules {
		for _, step := range rule.Steps {
			if step.Type == stepType && models.CanonicalName(step.Name) == canonical {
				return rule.Name, true, nil
			}
		}
	}

	flows, err := p.ListMultiflowStories(tenant)
	if err != nil {
		return "", false, err
	}
	for _, flow := range flows {
		for _, step := range flow.Steps {
			if step.Type == stepType && models.CanonicalName(step.Name) == canonical {
				return flow.Name, true, nil
			}
		}
	}
	return "", false, nil
}

// flowReferencingAction scans every flow for an integrated-action step of
// the given action kind naming the action.
func (p *Processor) flowReferencingAction(tenant string, actionType models.ActionType, name string) (string, bool, error) {
	canonical := models.CanonicalName(name)
	matches := func(st models.StepType, stepName string) bool {
		kind, ok := models.ActionKindForStep(st)
		return ok && kind == actionType && models.CanonicalName(stepName) == canonical
	}

	stories, err := p.ListStories(tenant)
	if err != nil {
		return "", false, err
	}
	for _, story := range stories {
		for _, step := range story.Steps {
			if matches(step.Type, step.Name) {
				return story.Name, true, nil
			}
		}
	}

	rules, err := p.ListRules(tenant)
	if err != nil {
		return "", false, err
	}
	for _, rule := range rules {
		for _, step := range rule.Steps {
			if matches(step.Type, step.Name) {
				return rule.Name, true, nil
			}
		}
	}

	flows, err := p.ListMultiflowStories(tenant)
	if err != nil {
		return "", false, err
	}
	for _, flow := range flows {
		for _, step := range flow.Steps {
			if matches(step.Type, step.Name) {
				return flow.Name, true, nil
			}
		}
	}
	return "", false, nil
}
