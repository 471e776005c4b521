package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// Operation names one of the report tool operations
type Operation string

const (
	OperationList               Operation = "list"
	OperationDescribe           Operation = "describe"
	OperationExecute            Operation = "execute"
	OperationExecuteAsync       Operation = "executeAsync"
	OperationGetInstances       Operation = "getInstances"
	OperationGetInstanceResults Operation = "getInstanceResults"
)

// Operations lists every supported operation in display order
var Operations = []Operation{
	OperationList,
	OperationDescribe,
	OperationExecute,
	OperationExecuteAsync,
	OperationGetInstances,
	OperationGetInstanceResults,
}

// Valid reports whether op is a known operation
func (op Operation) Valid() bool {
	for _, known := range Operations {
		if op == known {
			return true
		}
	}
	return false
}

func operationNames() string {
	names := make([]string, len(Operations))
	for i, op := range Operations {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

// Request is one invocation of the report tool
type Request struct {
	Operation      Operation                 `json:"operation"`
	ReportID       string                    `json:"reportId,omitempty"`
	InstanceID     string                    `json:"instanceId,omitempty"`
	IncludeDetails bool                      `json:"includeDetails,omitempty"`
	Filters        []salesforce.ReportFilter `json:"filters,omitempty"`
	QueryFilter    string                    `json:"queryFilter,omitempty"`
	// Limit of zero means unset.
	Limit int `json:"limit,omitempty"`
}

// Result is the text envelope returned for every request
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}

func textResult(text string) Result {
	return Result{Text: text}
}

func errorResult(format string, args ...interface{}) Result {
	return Result{Text: fmt.Sprintf(format, args...), IsError: true}
}

// DecodeRequest validates raw tool arguments against the tool schema and
// decodes them into a Request.
func DecodeRequest(arguments map[string]interface{}) (Request, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	data, err := json.Marshal(arguments)
	if err != nil {
		return Request{}, fmt.Errorf("invalid arguments: %w", err)
	}

	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return Request{}, fmt.Errorf("invalid arguments: %w", err)
	}

	validator, err := argumentValidator()
	if err != nil {
		return Request{}, err
	}
	if err := validator.Validate(instance); err != nil {
		return Request{}, err
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("invalid arguments: %w", err)
	}
	req.ReportID = strings.TrimSpace(req.ReportID)
	req.InstanceID = strings.TrimSpace(req.InstanceID)
	req.QueryFilter = strings.TrimSpace(req.QueryFilter)

	return req, nil
}

// HandleArguments decodes raw tool arguments and dispatches them. Argument
// errors come back as error results, like every other failure.
func HandleArguments(ctx context.Context, conn Connection, arguments map[string]interface{}) Result {
	req, err := DecodeRequest(arguments)
	if err != nil {
		return errorResult("Error: %v", err)
	}
	return Handle(ctx, conn, req)
}
