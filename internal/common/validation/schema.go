package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"drclean-workers/internal/common/errors"
	"drclean-workers/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{9,}$`)
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages returns "field: message" lines.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

// SchemaValidator checks job variables against the input schemas of an
// activity registry. Schemas are compiled once.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator(reg *registry.ActivityRegistry) (*SchemaValidator, error) {
	v := &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, activity := range reg.Activities {
		if len(activity.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema of %s: %w", activity.TaskType, err)
		}
		v.schemas[activity.TaskType] = schema
	}
	return v, nil
}

// Check validates a JSON document. Task types without a schema pass.
func (v *SchemaValidator) Check(taskType, variables string) (*ValidationResult, error) {
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(variables))
	if err != nil {
		return nil, err
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// Validate implements camunda.Validator.
func (v *SchemaValidator) Validate(taskType, variables string) error {
	result, err := v.Check(taskType, variables)
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("variables are not valid JSON: %v", err), nil)
	}
	if result.Valid {
		return nil
	}
	return errors.NewInvalidInputError(
		fmt.Sprintf("%s variables do not match the input schema", taskType),
		result.GetErrorMessages(),
	)
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts Czech nine-digit numbers with or without the
// international prefix.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
