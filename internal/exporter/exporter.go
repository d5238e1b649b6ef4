// Package exporter serializes a tenant's full training data into the same
// multi-file YAML layout the importer accepts, packed as a zip archive. An
// exported archive re-imports cleanly in overwrite mode.
package exporter

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
)

// Exporter reads a tenant's artifacts and renders the export archive.
type Exporter struct {
	processor *dataset.Processor
}

// New creates an Exporter over the given processor.
func New(p *dataset.Processor) *Exporter {
	return &Exporter{processor: p}
}

// ArchiveName is the file name suggested for a downloaded export.
func ArchiveName(tenant string) string {
	return tenant + "_training_data.zip"
}

// Export renders every artifact of the tenant into the archive.
func (e *Exporter) Export(tenant string) ([]byte, error) {
	files, err := e.Files(tenant)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := writer.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	slog.Info("Exporter.Export: training data exported", "tenant", tenant, "files", len(files))
	return buf.Bytes(), nil
}

// Files renders the per-file YAML payloads without archiving them. Files with
// no content for the tenant are omitted.
func (e *Exporter) Files(tenant string) (map[string][]byte, error) {
	files := make(map[string][]byte)

	nlu, err := e.renderNLU(tenant)
	if err != nil {
		return nil, err
	}
	if nlu != nil {
		files["nlu.yml"] = nlu
	}

	domain, err := e.renderDomain(tenant)
	if err != nil {
		return nil, err
	}
	if domain != nil {
		files["domain.yml"] = domain
	}

	stories, err := e.processor.ListStories(tenant)
	if err != nil {
		return nil, err
	}
	if len(stories) > 0 {
		sort.Slice(stories, func(i, j int) bool { return stories[i].Name < stories[j].Name })
		if files["data/stories.yml"], err = marshalYAML(map[string]any{"stories": stories}); err != nil {
			return nil, err
		}
	}

	rules, err := e.processor.ListRules(tenant)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
		if files["data/rules.yml"], err = marshalYAML(map[string]any{"rules": rules}); err != nil {
			return nil, err
		}
	}

	multiflows, err := e.processor.ListMultiflowStories(tenant)
	if err != nil {
		return nil, err
	}
	if len(multiflows) > 0 {
		sort.Slice(multiflows, func(i, j int) bool { return multiflows[i].Name < multiflows[j].Name })
		entries := make([]multiflowEntry, 0, len(multiflows))
		for _, story := range multiflows {
			entries = append(entries, multiflowEntryFor(story))
		}
		if files["multiflow_stories.yml"], err = marshalYAML(map[string]any{"multiflow_story": entries}); err != nil {
			return nil, err
		}
	}

	actions, err := e.processor.ListActions(tenant, "")
	if err != nil {
		return nil, err
	}
	if len(actions) > 0 {
		sort.Slice(actions, func(i, j int) bool { return actions[i].Name < actions[j].Name })
		if files["actions.yml"], err = marshalYAML(map[string]any{"actions": actions}); err != nil {
			return nil, err
		}
	}

	botContent, err := e.renderBotContent(tenant)
	if err != nil {
		return nil, err
	}
	if botContent != nil {
		files["bot_content.yml"] = botContent
	}

	config, err := e.processor.GetModelConfig(tenant)
	if err != nil {
		return nil, err
	}
	if files["config.yml"], err = marshalYAML(config); err != nil {
		return nil, err
	}

	clientConfig, err := e.processor.GetChatClientConfig(tenant)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		if files["chat_client_config.yml"], err = marshalYAML(clientConfig); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// nluBlock is one entry of nlu.yml on the way out; exactly one of the name
// fields is set.
type nluBlock struct {
	Intent   string `yaml:"intent,omitempty"`
	Synonym  string `yaml:"synonym,omitempty"`
	Regex    string `yaml:"regex,omitempty"`
	Lookup   string `yaml:"lookup,omitempty"`
	Examples string `yaml:"examples,omitempty"`
}

func (e *Exporter) renderNLU(tenant string) ([]byte, error) {
	examples, err := e.processor.ListTrainingExamples(tenant, "")
	if err != nil {
		return nil, err
	}
	synonyms, err := e.processor.ListSynonyms(tenant)
	if err != nil {
		return nil, err
	}
	features, err := e.processor.ListRegexFeatures(tenant)
	if err != nil {
		return nil, err
	}
	tables, err := e.processor.ListLookupTables(tenant)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 && len(synonyms) == 0 && len(features) == 0 && len(tables) == 0 {
		return nil, nil
	}

	byIntent := make(map[string][]string)
	for _, example := range examples {
		byIntent[example.Intent] = append(byIntent[example.Intent], example.Text)
	}
	intents := make([]string, 0, len(byIntent))
	for intent := range byIntent {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	var blocks []nluBlock
	for _, intent := range intents {
		blocks = append(blocks, nluBlock{Intent: intent, Examples: examplesBlock(byIntent[intent])})
	}
	sort.Slice(synonyms, func(i, j int) bool { return synonyms[i].Name < synonyms[j].Name })
	for _, synonym := range synonyms {
		blocks = append(blocks, nluBlock{Synonym: synonym.Name, Examples: examplesBlock(synonym.Values)})
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Name < features[j].Name })
	for _, feature := range features {
		blocks = append(blocks, nluBlock{Regex: feature.Name, Examples: examplesBlock([]string{feature.Pattern})})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	for _, table := range tables {
		blocks = append(blocks, nluBlock{Lookup: table.Name, Examples: examplesBlock(table.Values)})
	}
	return marshalYAML(map[string]any{"nlu": blocks})
}

// examplesBlock renders values as the dash-prefixed block the importer splits
// back apart.
func examplesBlock(values []string) string {
	var b strings.Builder
	for _, value := range values {
		b.WriteString("- ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	return b.String()
}

// domainPayload mirrors the domain.yml shape the importer parses.
type domainPayload struct {
	Intents      []any                               `yaml:"intents,omitempty"`
	Entities     []string                            `yaml:"entities,omitempty"`
	Slots        map[string]models.Slot              `yaml:"slots,omitempty"`
	SlotMappings map[string][]models.SlotMappingRule `yaml:"slot_mappings,omitempty"`
	Forms        map[string]domainForm               `yaml:"forms,omitempty"`
	Responses    map[string][]models.ResponseVariant `yaml:"responses,omitempty"`
}

type domainForm struct {
	Settings []models.FormSetting `yaml:"settings"`
}

func (e *Exporter) renderDomain(tenant string) ([]byte, error) {
	payload := domainPayload{}

	intents, err := e.processor.ListIntents(tenant)
	if err != nil {
		return nil, err
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].Name < intents[j].Name })
	for _, intent := range intents {
		if intent.UseEntities {
			payload.Intents = append(payload.Intents, intent)
		} else {
			payload.Intents = append(payload.Intents, intent.Name)
		}
	}

	entities, err := e.processor.ListEntities(tenant)
	if err != nil {
		return nil, err
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	for _, entity := range entities {
		payload.Entities = append(payload.Entities, entity.Name)
	}

	slots, err := e.processor.ListSlots(tenant)
	if err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		payload.Slots = make(map[string]models.Slot, len(slots))
		for _, slot := range slots {
			payload.Slots[slot.Name] = slot
		}
	}

	mappings, err := e.processor.ListSlotMappings(tenant)
	if err != nil {
		return nil, err
	}
	if len(mappings) > 0 {
		payload.SlotMappings = make(map[string][]models.SlotMappingRule, len(mappings))
		for _, mapping := range mappings {
			payload.SlotMappings[mapping.Slot] = mapping.Rules
		}
	}

	forms, err := e.processor.ListForms(tenant)
	if err != nil {
		return nil, err
	}
	if len(forms) > 0 {
		payload.Forms = make(map[string]domainForm, len(forms))
		for _, form := range forms {
			payload.Forms[form.Name] = domainForm{Settings: form.Settings}
		}
	}

	responses, err := e.processor.ListResponses(tenant)
	if err != nil {
		return nil, err
	}
	if len(responses) > 0 {
		payload.Responses = make(map[string][]models.ResponseVariant, len(responses))
		for _, response := range responses {
			payload.Responses[response.Name] = response.Variants
		}
	}

	if len(payload.Intents) == 0 && len(payload.Entities) == 0 && payload.Slots == nil &&
		payload.SlotMappings == nil && payload.Forms == nil && payload.Responses == nil {
		return nil, nil
	}
	return marshalYAML(payload)
}

// multiflowNode mirrors the node shape of multiflow_stories.yml; connections
// repeat the full successor nodes.
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

func multiflowEntryFor(story models.MultiflowStory) multiflowEntry {
	nodes := make(map[string]multiflowNode, len(story.Steps))
	for _, step := range story.Steps {
		nodes[step.NodeID] = multiflowNode{
			NodeID:      step.NodeID,
			ComponentID: step.ComponentID,
			Name:        step.Name,
			Type:        step.Type,
			FlowType:    step.FlowType,
		}
	}
	entry := multiflowEntry{Name: story.Name}
	for _, step := range story.Steps {
		event := multiflowEvent{Step: nodes[step.NodeID]}
		for _, conn := range step.Connections {
			event.Connections = append(event.Connections, nodes[conn])
		}
		entry.Events = append(entry.Events, event)
	}
	return entry
}

// botContentItem is one entry of bot_content.yml: the rows of a collection
// for one content type, carrying the collection schema on its first entry.
type botContentItem struct {
	Collection  string                  `yaml:"collection,omitempty"`
	ContentType models.ContentType      `yaml:"content_type"`
	Metadata    []models.ColumnMetadata `yaml:"metadata,omitempty"`
	Data        []any                   `yaml:"data"`
}

func (e *Exporter) renderBotContent(tenant string) ([]byte, error) {
	schemas, err := e.processor.ListCognitionSchemas(tenant)
	if err != nil {
		return nil, err
	}
	rows, err := e.processor.ListCognitionData(tenant, "")
	if err != nil {
		return nil, err
	}
	if len(schemas) == 0 && len(rows) == 0 {
		return nil, nil
	}

	metadata := make(map[string][]models.ColumnMetadata, len(schemas))
	var collections []string
	for _, schema := range schemas {
		metadata[schema.CollectionName] = schema.Metadata
		collections = append(collections, schema.CollectionName)
	}
	for _, row := range rows {
		if _, known := metadata[row.Data.Collection]; !known {
			metadata[row.Data.Collection] = nil
			collections = append(collections, row.Data.Collection)
		}
	}
	sort.Strings(collections)

	var items []botContentItem
	for _, collection := range collections {
		byType := map[models.ContentType][]any{}
		for _, row := range rows {
			if row.Data.Collection != collection {
				continue
			}
			byType[row.Data.ContentType] = append(byType[row.Data.ContentType], row.Data.Data)
		}
		if len(byType) == 0 {
			// Schema without rows still exports, so it survives a round trip.
			items = append(items, botContentItem{
				Collection:  collection,
				ContentType: models.ContentTypeJSON,
				Metadata:    metadata[collection],
			})
			continue
		}
		first := true
		for _, contentType := range []models.ContentType{models.ContentTypeText, models.ContentTypeJSON} {
			data := byType[contentType]
			if len(data) == 0 {
				continue
			}
			item := botContentItem{Collection: collection, ContentType: contentType, Data: data}
			if first {
				item.Metadata = metadata[collection]
				first = false
			}
			items = append(items, item)
		}
	}
	return marshalYAML(items)
}

func marshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
