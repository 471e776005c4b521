package reports

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

const permissionHint = `

The connected user may not have access to this report. Check that:
1. The user can see the report and the folder that contains it.
2. The user's profile or a permission set grants "Run Reports".
3. The user can read the objects and fields the report is built on.`

const invalidIDHint = `

Check that the ID is correct and that the report still exists. Report IDs start with '00O' and are 15 or 18 characters long.`

// TranslateError renders a collaborator fault for op, adding a remediation
// hint for access and not-found failures.
func TranslateError(op Operation, err error) string {
	msg := err.Error()

	codes := msg
	var apiErr *salesforce.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode != "" {
		codes = apiErr.ErrorCode + " " + msg
	}

	text := fmt.Sprintf("Error executing %s operation: %s", op, msg)
	switch {
	case strings.Contains(codes, "INSUFFICIENT_ACCESS"), strings.Contains(codes, "INVALID_CROSS_REFERENCE"):
		text += permissionHint
	case strings.Contains(codes, "INVALID_ID_FIELD"), strings.Contains(codes, "NOT_FOUND"):
		text += invalidIDHint
	}
	return text
}
