package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType is the storage type a JSONB property must satisfy.
type FieldType string

const (
	FieldTypeString  FieldType = "STRING"
	FieldTypeInteger FieldType = "INTEGER"
	FieldTypeFloat   FieldType = "FLOAT"
	FieldTypeBoolean FieldType = "BOOLEAN"
	FieldTypeDate    FieldType = "DATE"
)

const dateLayout = "2006-01-02"

// JSONBValidator checks property maps against field definitions.
type JSONBValidator struct{}

// NewJSONBValidator creates a new JSONB validator
func NewJSONBValidator() *JSONBValidator {
	return &JSONBValidator{}
}

// Rules are advisory bounds; a violation is reported as a warning.
type Rules struct {
	Min       *decimal.Decimal
	Max       *decimal.Decimal
	MaxLength int
}

// FieldDefinition represents a field definition for validation
type FieldDefinition struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Rules    *Rules    `json:"-"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

// Messages returns the error messages.
func (r ValidationResult) Messages() []string {
	return messagesOf(r.Errors)
}

// WarningMessages returns the warning messages.
func (r ValidationResult) WarningMessages() []string {
	return messagesOf(r.Warnings)
}

func messagesOf(items []ValidationError) []string {
	messages := make([]string, 0, len(items))
	for _, item := range items {
		messages = append(messages, item.Message)
	}
	return messages
}

// ValidateProperties validates properties against definitions. Fields are
// visited in name order so the messages are stable.
func (jv *JSONBValidator) ValidateProperties(properties map[string]any, definitions map[string]FieldDefinition) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}
	fail := func(field, message string, value any) {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{Field: field, Message: message, Value: value})
	}

	for _, name := range sortedKeys(definitions) {
		def := definitions[name]
		value, exists := properties[name]

		if def.Required && (!exists || value == nil || isBlankString(value)) {
			fail(name, fmt.Sprintf("required field '%s' is missing", name), nil)
			continue
		}
		if !exists || value == nil {
			continue
		}

		if err := checkType(name, value, def.Type); err != nil {
			fail(name, err.Error(), value)
			continue
		}
		if def.Rules != nil {
			if msg := def.Rules.check(name, value); msg != "" {
				result.Warnings = append(result.Warnings, ValidationError{Field: name, Message: msg, Value: value})
			}
		}
	}

	for _, name := range sortedKeys(properties) {
		if _, declared := definitions[name]; !declared {
			fail(name, fmt.Sprintf("property '%s' is not defined in schema", name), properties[name])
		}
	}

	return result
}

func checkType(name string, value any, expected FieldType) error {
	switch FieldType(strings.ToUpper(string(expected))) {
	case FieldTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string, got %T", name, value)
		}
	case FieldTypeInteger:
		if n, ok := toDecimal(value); !ok || !n.IsInteger() {
			return fmt.Errorf("field '%s' must be an integer, got %T", name, value)
		}
	case FieldTypeFloat:
		if _, ok := toDecimal(value); !ok {
			return fmt.Errorf("field '%s' must be a float, got %T", name, value)
		}
	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean, got %T", name, value)
		}
	case FieldTypeDate:
		return checkDate(name, value)
	default:
		return fmt.Errorf("unknown field type: %s", expected)
	}
	return nil
}

func checkDate(name string, value any) error {
	var text string
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("field '%s' must be a date, got %T", name, value)
	}
	if _, err := time.Parse(dateLayout, text); err != nil {
		return fmt.Errorf("field '%s' must be a valid date (YYYY-MM-DD): %v", name, err)
	}
	return nil
}

func (r Rules) check(name string, value any) string {
	if s, ok := value.(string); ok {
		if r.MaxLength > 0 && len(s) > r.MaxLength {
			return fmt.Sprintf("field '%s' length %d is greater than maximum %d", name, len(s), r.MaxLength)
		}
		return ""
	}

	n, ok := toDecimal(value)
	if !ok {
		return ""
	}
	if r.Min != nil && n.LessThan(*r.Min) {
		return fmt.Sprintf("field '%s' value %s is less than minimum %s", name, n, r.Min)
	}
	if r.Max != nil && n.GreaterThan(*r.Max) {
		return fmt.Sprintf("field '%s' value %s is greater than maximum %s", name, n, r.Max)
	}
	return ""
}

// toDecimal accepts the numeric kinds coercion and JSON decoding produce.
func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case float32:
		return toDecimal(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isBlankString(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}
