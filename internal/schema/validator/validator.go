package validator

import (
	"fmt"
	"strings"

	"github.com/rpattn/evservice/internal/domain"
	jsonb "github.com/rpattn/evservice/pkg/validator"

	"github.com/shopspring/decimal"
)

var kindTypes = map[domain.FieldKind]jsonb.FieldType{
	domain.FieldKindString:  jsonb.FieldTypeString,
	domain.FieldKindInteger: jsonb.FieldTypeInteger,
	domain.FieldKindFloat:   jsonb.FieldTypeFloat,
	domain.FieldKindBoolean: jsonb.FieldTypeBoolean,
	domain.FieldKindDate:    jsonb.FieldTypeDate,
}

// ValidateAliases ensures every field declares at least one header alias and
// that no alias is claimed by two fields. Matching is case-insensitive, so the
// comparison is too.
func ValidateAliases(fields []domain.FieldSpec) error {
	owners := make(map[string]string)
	names := make(map[string]struct{}, len(fields))

	for _, field := range fields {
		if _, dup := names[field.Name]; dup {
			return fmt.Errorf("field %s is declared more than once", field.Name)
		}
		names[field.Name] = struct{}{}

		if _, ok := kindTypes[field.Kind]; !ok {
			return fmt.Errorf("field %s has unsupported kind %q", field.Name, field.Kind)
		}
		if len(field.Aliases) == 0 {
			return fmt.Errorf("field %s declares no header aliases", field.Name)
		}

		for _, alias := range field.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				return fmt.Errorf("field %s declares an empty alias", field.Name)
			}
			if owner, taken := owners[key]; taken && owner != field.Name {
				return fmt.Errorf("alias %q of field %s is already used by field %s", alias, field.Name, owner)
			}
			owners[key] = field.Name
		}
	}

	return nil
}

// Values outside these bounds are imported but flagged: cable runs outside
// [0, 500] metres and contact numbers below 1.
var (
	minLength  = decimal.Zero
	maxLength  = decimal.NewFromInt(500)
	minContact = decimal.NewFromInt(1)
)

// Definitions builds JSONB validation definitions for one record group. The
// fields named in required are marked required; all others are optional.
func Definitions(group domain.FieldGroup, required ...string) map[string]jsonb.FieldDefinition {
	requiredSet := make(map[string]struct{}, len(required))
	for _, name := range required {
		requiredSet[name] = struct{}{}
	}

	definitions := make(map[string]jsonb.FieldDefinition)
	for _, field := range domain.FieldsInGroup(group) {
		_, isRequired := requiredSet[field.Name]
		def := jsonb.FieldDefinition{
			Type:     kindTypes[field.Kind],
			Required: isRequired,
		}
		switch field.Kind {
		case domain.FieldKindFloat:
			def.Rules = &jsonb.Rules{Min: &minLength, Max: &maxLength}
		case domain.FieldKindInteger:
			def.Rules = &jsonb.Rules{Min: &minContact}
		}
		definitions[field.Name] = def
	}
	return definitions
}
