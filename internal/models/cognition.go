package models

import "strings"

// CognitionDataType enumerates the column types of a cognition schema.
type CognitionDataType string

const (
	CognitionTypeStr CognitionDataType = "str"
	CognitionTypeInt CognitionDataType = "int"
)

// IsValidCognitionDataType checks if the given data type is supported.
func IsValidCognitionDataType(dt CognitionDataType) bool {
	return dt == CognitionTypeStr || dt == CognitionTypeInt
}

// ColumnMetadata describes one column of a cognition collection.
type ColumnMetadata struct {
	ColumnName       string            `json:"column_name" yaml:"column_name"`
	DataType         CognitionDataType `json:"data_type" yaml:"data_type"`
	EnableSearch     bool              `json:"enable_search" yaml:"enable_search"`
	CreateEmbeddings bool              `json:"create_embeddings" yaml:"create_embeddings"`
}

// CognitionSchema is the typed schema of a cognition collection used as
// grounding data for prompt and database actions.
type CognitionSchema struct {
	CollectionName string           `json:"collection_name" yaml:"collection_name"`
	Metadata       []ColumnMetadata `json:"metadata" yaml:"metadata"`
}

// Validate checks that column names are unique within the schema and that
// declared types are supported.
func (s *CognitionSchema) Validate() error {
	if err := ValidateName(s.CollectionName); err != nil {
		return NewValidationError("collection name cannot be empty or blank spaces", "body", "collection_name")
	}
	seen := make(map[string]bool, len(s.Metadata))
	for _, col := range s.Metadata {
		if err := ValidateName(col.ColumnName); err != nil {
			return NewValidationError("column name cannot be empty or blank spaces", "body", "metadata", "column_name")
		}
		canonical := CanonicalName(col.ColumnName)
		if seen[canonical] {
			return NewValidationError("duplicate column "+col.ColumnName, "body", "metadata", "column_name")
		}
		seen[canonical] = true
		if !IsValidCognitionDataType(col.DataType) {
			return NewValidationError("invalid data type "+string(col.DataType), "body", "metadata", "data_type")
		}
	}
	return nil
}

// ContentType enumerates the payload shapes of a cognition row.
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeJSON ContentType = "json"
)

// MinTextContentWords is the minimum word count of a text cognition row.
const MinTextContentWords = 10

// CognitionData is one row of a cognition collection.
type CognitionData struct {
	Collection  string      `json:"collection" yaml:"collection"`
	ContentType ContentType `json:"content_type" yaml:"content_type"`
	Data        any         `json:"data" yaml:"data"`
}

// ValidateAgainstSchema checks the row against its collection schema: row
// columns must be a subset of schema columns with matching value types, and
// text rows must carry at least MinTextContentWords words.
func (d *CognitionData) ValidateAgainstSchema(schema *CognitionSchema) error {
	switch d.ContentType {
	case ContentTypeText:
		text, ok := d.Data.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return NewValidationError("text content is required", "body", "data")
		}
		if len(strings.Fields(text)) < MinTextContentWords {
			return NewValidationError("text content should contain at least 10 words", "body", "data")
		}
	case ContentTypeJSON:
		row, ok := d.Data.(map[string]any)
		if !ok || len(row) == 0 {
			return NewValidationError("json content must be a non-empty object", "body", "data")
		}
		if schema == nil {
			return NewValidationError("collection schema does not exist", "body", "collection")
		}
		columns := make(map[string]CognitionDataType, len(schema.Metadata))
		for _, col := range schema.Metadata {
			columns[CanonicalName(col.ColumnName)] = col.DataType
		}
		for key, value := range row {
			declared, ok := columns[CanonicalName(key)]
			if !ok {
				return NewValidationError("column "+key+" does not exist in collection schema", "body", "data")
			}
			if !valueMatchesType(value, declared) {
				return NewValidationError("invalid value for column "+key, "body", "data")
			}
		}
	default:
		return NewValidationError("invalid content type "+string(d.ContentType), "body", "content_type")
	}
	return nil
}

// valueMatchesType checks a row value against a declared column type. JSON
// numbers decode as float64, so integral floats satisfy int columns.
func valueMatchesType(value any, dt CognitionDataType) bool {
	switch dt {
	case CognitionTypeStr:
		_, ok := value.(string)
		return ok
	case CognitionTypeInt:
		switch v := value.(type) {
		case int:
			return true
		case int64:
			return true
		case float64:
			return v == float64(int64(v))
		default:
			return false
		}
	default:
		return false
	}
}

// InferSchema derives a collection schema from a sample JSON row. Used by
// the importer when a bot_content row arrives for a collection that has no
// schema yet in APPEND mode.
func InferSchema(collection string, row map[string]any) CognitionSchema {
	schema := CognitionSchema{CollectionName: CanonicalName(collection)}
	for key, value := range row {
		dataType := CognitionTypeStr
		if valueMatchesType(value, CognitionTypeInt) {
			dataType = CognitionTypeInt
		}
		schema.Metadata = append(schema.Metadata, ColumnMetadata{
			ColumnName:   key,
			DataType:     dataType,
			EnableSearch: true,
		})
	}
	return schema
}
