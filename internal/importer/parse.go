package importer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/validator"
)

// nluEntry is one block of nlu.yml: an intent with its examples, a synonym,
// a regex feature or a lookup table.
type nluEntry struct {
	Intent   string `yaml:"intent,omitempty"`
	Synonym  string `yaml:"synonym,omitempty"`
	Regex    string `yaml:"regex,omitempty"`
	Lookup   string `yaml:"lookup,omitempty"`
	Examples string `yaml:"examples,omitempty"`
}

type nluFile struct {
	NLU []nluEntry `yaml:"nlu"`
}

type formSpec struct {
	Settings []models.FormSetting `yaml:"settings"`
}

type domainFile struct {
	Intents      []yaml.Node                          `yaml:"intents"`
	Entities     []string                             `yaml:"entities"`
	Slots        map[string]models.Slot               `yaml:"slots"`
	SlotMappings map[string][]models.SlotMappingRule  `yaml:"slot_mappings"`
	Forms        map[string]formSpec                  `yaml:"forms"`
	Responses    map[string][]models.ResponseVariant  `yaml:"responses"`
}

type storiesFile struct {
	Stories []models.Story `yaml:"stories"`
}

type rulesFile struct {
	Rules []models.Rule `yaml:"rules"`
}

// multiflowNode is one DAG node as written in multiflow_stories.yml; the
// connections of an event repeat the full successor nodes.
type multiflowNode struct {
	NodeID      string               `yaml:"node_id"`
	ComponentID string               `yaml:"component_id,omitempty"`
	Name        string               `yaml:"name"`
	Type        models.StepType      `yaml:"type"`
	FlowType    models.MultiflowType `yaml:"flow_type,omitempty"`
}

type multiflowEvent struct {
	Step        multiflowNode   `yaml:"step"`
	Connections []multiflowNode `yaml:"connections,omitempty"`
}

type multiflowEntry struct {
	Name   string           `yaml:"block_name"`
	Events []multiflowEvent `yaml:"events"`
}

type multiflowFile struct {
	MultiflowStory []multiflowEntry `yaml:"multiflow_story"`
}

type actionsFile struct {
	Actions []models.Action `yaml:"actions"`
}

// botContentItem is one entry of bot_content.yml: the rows of a collection
// for one content type, optionally carrying the collection schema.
type botContentItem struct {
	Collection  string                  `yaml:"collection,omitempty"`
	ContentType models.ContentType      `yaml:"content_type"`
	Metadata    []models.ColumnMetadata `yaml:"metadata,omitempty"`
	Data        []any                   `yaml:"data"`
}

// ParseUpload decodes every classified file of an upload into a validation
// bundle.
func ParseUpload(upload *Upload) (*validator.Bundle, error) {
	bundle := &validator.Bundle{}

	if content, ok := upload.Files[FileNLU]; ok {
		if err := parseNLU(content, bundle); err != nil {
			return nil, fmt.Errorf("nlu: %w", err)
		}
	}
	if content, ok := upload.Files[FileDomain]; ok {
		if err := parseDomain(content, bundle); err != nil {
			return nil, fmt.Errorf("domain: %w", err)
		}
	}
	if content, ok := upload.Files[FileStories]; ok {
		var file storiesFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return nil, fmt.Errorf("stories: %w", err)
		}
		bundle.Stories = file.Stories
	}
	if content, ok := upload.Files[FileRules]; ok {
		var file rulesFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return nil, fmt.Errorf("rules: %w", err)
		}
		bundle.Rules = file.Rules
	}
	if content, ok := upload.Files[FileMultiflowStories]; ok {
		var file multiflowFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return nil, fmt.Errorf("multiflow stories: %w", err)
		}
		for _, entry := range file.MultiflowStory {
			story := models.MultiflowStory{Name: entry.Name}
			for _, event := range entry.Events {
				step := models.MultiflowStep{
					NodeID:      event.Step.NodeID,
					ComponentID: event.Step.ComponentID,
					Name:        event.Step.Name,
					Type:        event.Step.Type,
					FlowType:    event.Step.FlowType,
				}
				for _, conn := range event.Connections {
					step.Connections = append(step.Connections, conn.NodeID)
				}
				story.Steps = append(story.Steps, step)
			}
			bundle.MultiflowStories = append(bundle.MultiflowStories, story)
		}
	}
	if content, ok := upload.Files[FileActions]; ok {
		var file actionsFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return nil, fmt.Errorf("actions: %w", err)
		}
		bundle.Actions = file.Actions
	}
	if content, ok := upload.Files[FileConfig]; ok {
		var config dataset.ModelConfig
		if err := yaml.Unmarshal(content, &config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		bundle.Config = &config
	}
	if content, ok := upload.Files[FileBotContent]; ok {
		var items []botContentItem
		if err := yaml.Unmarshal(content, &items); err != nil {
			return nil, fmt.Errorf("bot content: %w", err)
		}
		for _, item := range items {
			if len(item.Metadata) > 0 {
				bundle.CognitionSchemas = append(bundle.CognitionSchemas, models.CognitionSchema{
					CollectionName: item.Collection,
					Metadata:       item.Metadata,
				})
			}
			for _, datum := range item.Data {
				bundle.CognitionData = append(bundle.CognitionData, models.CognitionData{
					Collection:  item.Collection,
					ContentType: item.ContentType,
					Data:        datum,
				})
			}
		}
	}
	if content, ok := upload.Files[FileChatClientConfig]; ok {
		var config models.ChatClientConfig
		if err := yaml.Unmarshal(content, &config); err != nil {
			return nil, fmt.Errorf("chat client config: %w", err)
		}
		bundle.ChatClientConfig = &config
	}
	return bundle, nil
}

func parseNLU(content []byte, bundle *validator.Bundle) error {
	var file nluFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return err
	}
	for _, entry := range file.NLU {
		examples := splitExamples(entry.Examples)
		switch {
		case entry.Intent != "":
			for _, text := range examples {
				bundle.TrainingExamples = append(bundle.TrainingExamples, models.TrainingExample{
					Intent: entry.Intent,
					Text:   text,
				})
			}
		case entry.Synonym != "":
			bundle.Synonyms = append(bundle.Synonyms, models.Synonym{Name: entry.Synonym, Values: examples})
		case entry.Regex != "":
			pattern := ""
			if len(examples) > 0 {
				pattern = examples[0]
			}
			bundle.RegexFeatures = append(bundle.RegexFeatures, models.RegexFeature{Name: entry.Regex, Pattern: pattern})
		case entry.Lookup != "":
			bundle.LookupTables = append(bundle.LookupTables, models.LookupTable{Name: entry.Lookup, Values: examples})
		}
	}
	return nil
}

// splitExamples breaks a Rasa-style examples block into its dash-prefixed
// lines.
func splitExamples(block string) []string {
	var examples []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			examples = append(examples, line)
		}
	}
	return examples
}

func parseDomain(content []byte, bundle *validator.Bundle) error {
	var file domainFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return err
	}
	for _, node := range file.Intents {
		switch node.Kind {
		case yaml.ScalarNode:
			bundle.Intents = append(bundle.Intents, models.Intent{Name: node.Value})
		case yaml.MappingNode:
			var intent models.Intent
			if err := node.Decode(&intent); err != nil {
				return fmt.Errorf("intents: %w", err)
			}
			bundle.Intents = append(bundle.Intents, intent)
		default:
			return fmt.Errorf("intents: unexpected yaml node")
		}
	}
	for _, name := range file.Entities {
		bundle.Entities = append(bundle.Entities, models.Entity{Name: name})
	}
	for name, slot := range file.Slots {
		slot.Name = name
		bundle.Slots = append(bundle.Slots, slot)
	}
	for slot, rules := range file.SlotMappings {
		bundle.SlotMappings = append(bundle.SlotMappings, models.SlotMapping{Slot: slot, Rules: rules})
	}
	for name, form := range file.Forms {
		bundle.Forms = append(bundle.Forms, models.Form{Name: name, Settings: form.Settings})
	}
	for name, variants := range file.Responses {
		bundle.Responses = append(bundle.Responses, models.Response{Name: name, Variants: variants})
	}
	return nil
}
