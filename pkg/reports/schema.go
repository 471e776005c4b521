package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolName is the name the report tool is registered under
const ToolName = "salesforce_reports"

// ToolDescription is shown to MCP clients and to the assistant model
const ToolDescription = `Work with Salesforce reports.
Operations:
- list: recently viewed reports, or a SOQL search over reports when queryFilter is set
- describe: report metadata (columns, groupings, filters, aggregates) without running it
- execute: run a report synchronously, optionally with detail rows and runtime filters
- executeAsync: start an asynchronous run and return the instance ID
- getInstances: list the asynchronous runs of a report
- getInstanceResults: fetch the results of one asynchronous run
Runtime filters replace the saved report filters for that run only.`

// SchemaProperties returns the JSON schema properties of the tool arguments
func SchemaProperties() map[string]interface{} {
	return schemaProperties(true)
}

// RequiredArguments lists the arguments every call must carry
func RequiredArguments() []string {
	return []string{"operation"}
}

// InputSchema returns the complete JSON schema object of the tool arguments
func InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": SchemaProperties(),
		"required":   RequiredArguments(),
	}
}

func schemaProperties(withOperationEnum bool) map[string]interface{} {
	operation := map[string]interface{}{
		"type":        "string",
		"description": "Operation to perform",
	}
	if withOperationEnum {
		names := make([]interface{}, len(Operations))
		for i, op := range Operations {
			names[i] = string(op)
		}
		operation["enum"] = names
	}

	return map[string]interface{}{
		"operation": operation,
		"reportId": map[string]interface{}{
			"type":        "string",
			"description": "Report ID (starts with 00O). Required for every operation except list",
		},
		"instanceId": map[string]interface{}{
			"type":        "string",
			"description": "Async instance ID. Required for getInstanceResults",
		},
		"includeDetails": map[string]interface{}{
			"type":        "boolean",
			"description": "Include detail rows in execute and getInstanceResults output (default: false)",
			"default":     false,
		},
		"filters": map[string]interface{}{
			"type":        "array",
			"description": "Runtime filters for execute and executeAsync. They replace the saved filters for this run",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"column": map[string]interface{}{
						"type":        "string",
						"description": "Column API name, e.g. AMOUNT",
					},
					"operator": map[string]interface{}{
						"type":        "string",
						"description": "Filter operator, e.g. equals, notEqual, greaterThan, lessThan, contains",
					},
					"value": map[string]interface{}{
						"type":        "string",
						"description": "Filter value",
					},
				},
				"required": []interface{}{"column", "operator", "value"},
			},
		},
		"queryFilter": map[string]interface{}{
			"type":        "string",
			"description": "SOQL WHERE clause over the Report object for list, e.g. FolderName = 'Sales'",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": fmt.Sprintf("Maximum number of reports for list (0 or omitted: %d, max: %d)", DefaultListLimit, MaxListLimit),
			"minimum":     0,
			"maximum":     MaxListLimit,
		},
	}
}

// ValidationError is an argument that does not match the tool schema
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments: %s", e.Message)
	}
	return fmt.Sprintf("invalid argument '%s': %s", e.Field, e.Message)
}

// SchemaValidator checks tool arguments against a compiled JSON schema
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles a draft 7 schema definition
func NewSchemaValidator(schemaMap map[string]interface{}) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := compiler.AddResource("arguments.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("arguments.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &SchemaValidator{schema: schema}, nil
}

// Validate checks a decoded JSON value. The most specific failure is
// reported.
func (v *SchemaValidator) Validate(instance interface{}) error {
	err := v.schema.Validate(instance)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed: %w", err)
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ValidationError{
		Field:   fieldName(ve.InstanceLocation),
		Message: ve.Message,
	}
}

// fieldName turns a JSON pointer such as /filters/0/column into filters[0].column
func fieldName(pointer string) string {
	var buf bytes.Buffer
	for i, part := range splitPointer(pointer) {
		if isIndex(part) {
			buf.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(part)
	}
	return buf.String()
}

func splitPointer(pointer string) []string {
	var parts []string
	for _, p := range bytes.Split([]byte(pointer), []byte("/")) {
		if len(p) > 0 {
			parts = append(parts, string(p))
		}
	}
	return parts
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var (
	validatorOnce sync.Once
	validator     *SchemaValidator
	validatorErr  error
)

// argumentValidator leaves operation names unconstrained so unknown
// operations reach the dispatcher and get the list of valid ones.
func argumentValidator() (*SchemaValidator, error) {
	validatorOnce.Do(func() {
		validator, validatorErr = NewSchemaValidator(map[string]interface{}{
			"type":       "object",
			"properties": schemaProperties(false),
			"required":   RequiredArguments(),
		})
	})
	return validator, validatorErr
}
