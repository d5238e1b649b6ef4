package dataset

import (
	"errors"

	"github.com/digiteinfotech/kairon/internal/models"
)

// Singleton document names for per-tenant configs.
const (
	configDocName           = "config"
	chatClientConfigDocName = "chat_client_config"
)

// ModelConfig is the training pipeline and policy configuration. Component
// entries are stored verbatim; only their names are checked, against the
// declared component enumerations below.
type ModelConfig struct {
	Language string           `json:"language" yaml:"language"`
	Pipeline []map[string]any `json:"pipeline" yaml:"pipeline"`
	Policies []map[string]any `json:"policies" yaml:"policies"`
}

var knownPipelineComponents = map[string]bool{
	"WhitespaceTokenizer":        true,
	"SpacyTokenizer":             true,
	"SpacyNLP":                   true,
	"SpacyFeaturizer":            true,
	"RegexFeaturizer":            true,
	"LexicalSyntacticFeaturizer": true,
	"CountVectorsFeaturizer":     true,
	"LanguageModelFeaturizer":    true,
	"DIETClassifier":             true,
	"KeywordIntentClassifier":    true,
	"CRFEntityExtractor":         true,
	"RegexEntityExtractor":       true,
	"DucklingEntityExtractor":    true,
	"EntitySynonymMapper":        true,
	"ResponseSelector":           true,
	"FallbackClassifier":         true,
}

var knownPolicyComponents = map[string]bool{
	"MemoizationPolicy":          true,
	"AugmentedMemoizationPolicy": true,
	"TEDPolicy":                  true,
	"UnexpecTEDIntentPolicy":     true,
	"RulePolicy":                 true,
}

// IsKnownPipelineComponent reports whether a pipeline component name is part
// of the declared enumeration.
func IsKnownPipelineComponent(name string) bool { return knownPipelineComponents[name] }

// IsKnownPolicyComponent reports whether a policy name is part of the
// declared enumeration.
func IsKnownPolicyComponent(name string) bool { return knownPolicyComponents[name] }

// DefaultModelConfig is the configuration seeded for tenants that never
// uploaded one.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Language: "en",
		Pipeline: []map[string]any{
			{"name": "WhitespaceTokenizer"},
			{"name": "RegexFeaturizer"},
			{"name": "LexicalSyntacticFeaturizer"},
			{"name": "CountVectorsFeaturizer"},
			{"name": "DIETClassifier", "epochs": 100},
			{"name": "EntitySynonymMapper"},
			{"name": "FallbackClassifier", "threshold": 0.75},
		},
		Policies: []map[string]any{
			{"name": "MemoizationPolicy"},
			{"name": "TEDPolicy", "epochs": 100},
			{"name": "RulePolicy"},
		},
	}
}

// GetModelConfig returns the tenant's pipeline configuration, falling back to
// the default when none was saved.
func (p *Processor) GetModelConfig(tenant string) (ModelConfig, error) {
	var config ModelConfig
	err := p.getDoc(tenant, models.KindConfig, configDocName, &config)
	if errors.Is(err, models.ErrNotFound) {
		return DefaultModelConfig(), nil
	}
	if err != nil {
		return ModelConfig{}, err
	}
	return config, nil
}

// SaveModelConfig stores the pipeline configuration, replacing any previous
// one.
func (p *Processor) SaveModelConfig(tenant, user string, config ModelConfig) error {
	if len(config.Pipeline) == 0 {
		return models.NewValidationError("pipeline is required", "body", "pipeline")
	}
	if len(config.Policies) == 0 {
		return models.NewValidationError("policies are required", "body", "policies")
	}
	if config.Language == "" {
		config.Language = "en"
	}

	err := p.updateDoc(tenant, user, models.KindConfig, configDocName, config)
	if errors.Is(err, models.ErrNotFound) {
		err = p.saveDoc(tenant, user, models.KindConfig, configDocName, config)
	}
	if err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindConfig, models.AuditUpdate, snapshot(config))
	return nil
}

// GetChatClientConfig returns the tenant's chat client configuration.
func (p *Processor) GetChatClientConfig(tenant string) (*models.ChatClientConfig, error) {
	var config models.ChatClientConfig
	if err := p.getDoc(tenant, models.KindChatClientConfig, chatClientConfigDocName, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveChatClientConfig stores the chat client configuration verbatim.
func (p *Processor) SaveChatClientConfig(tenant, user string, config models.ChatClientConfig) error {
	err := p.updateDoc(tenant, user, models.KindChatClientConfig, chatClientConfigDocName, config)
	if errors.Is(err, models.ErrNotFound) {
		err = p.saveDoc(tenant, user, models.KindChatClientConfig, chatClientConfigDocName, config)
	}
	if err != nil {
		return err
	}
	p.audit.Record(tenant, user, models.KindChatClientConfig, models.AuditUpdate, snapshot(config))
	return nil
}

// GetBotSettings returns the tenant's settings, falling back to the defaults.
func (p *Processor) GetBotSettings(tenant string) (models.BotSettings, error) {
	return p.quota.Settings(tenant)
}

// UpdateBotSettings replaces the tenant's settings document.
func (p *Processor) UpdateBotSettings(tenant, user string, settings models.BotSettings) error {
	settings.Tenant = tenant
	if err := p.store.SaveBotSettings(settings); err != nil {
		return err
	}
	p.audit.Record(tenant, user, "bot_settings", models.AuditUpdate, snapshot(settings))
	return nil
}
