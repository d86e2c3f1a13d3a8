package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ScopeIn  = "in scope"
	ScopeOut = "out scope"

	// DefaultStatus is assigned to service requests that arrive without one.
	DefaultStatus = "Pending"
)

// maxInScopeCableLength is the longest cable run, in metres, covered by the
// standard installation package.
var maxInScopeCableLength = decimal.NewFromInt(15)

// RuleOptions tunes ApplyRules for the calling path.
type RuleOptions struct {
	// StatusOnly skips the field legality check; status transitions are always allowed.
	StatusOnly bool
	// FallbackType is used for the legality check when the record resolves no
	// service type of its own, e.g. the stored type during an update.
	FallbackType ServiceType
	// StoredNumber is the service request number already on record. Its
	// prefix decides the type when rec carries no number of its own.
	StoredNumber string
}

// ApplyRules normalizes empty optional values, resolves the service type and
// enforces field legality for it. It returns the resolved service type.
func ApplyRules(rec *Record, opts RuleOptions) (ServiceType, error) {
	NormalizeEmpty(rec)

	serviceType, err := resolveServiceType(rec, opts.StoredNumber)
	if err != nil {
		return "", err
	}
	if serviceType == "" {
		serviceType = opts.FallbackType
	}

	if !opts.StatusOnly && serviceType != "" {
		if err := CheckFieldLegality(*rec, serviceType); err != nil {
			return serviceType, err
		}
	}
	return serviceType, nil
}

// NormalizeEmpty turns blank values of nullable fields into nil.
func NormalizeEmpty(rec *Record) {
	for _, field := range CanonicalFields {
		if !field.Nullable {
			continue
		}
		value, ok := rec.Get(field.Name)
		if !ok {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			rec.Set(field.Name, nil)
		}
	}
}

// ResolveServiceType derives the service type from the request number prefix,
// which takes priority over any explicit value, and otherwise normalizes the
// explicit value. The resolved type is written back into the record.
func ResolveServiceType(rec *Record) (ServiceType, error) {
	return resolveServiceType(rec, "")
}

func resolveServiceType(rec *Record, storedNumber string) (ServiceType, error) {
	number := rec.String(FieldServiceRequestNumber)
	if number == "" {
		number = storedNumber
	}
	if derived, ok := ServiceTypeFromNumber(number); ok {
		rec.Set(FieldServiceType, string(derived))
		return derived, nil
	}

	explicit := strings.TrimSpace(rec.String(FieldServiceType))
	if explicit == "" {
		return "", nil
	}
	parsed, ok := ParseServiceType(explicit)
	if !ok {
		return "", &SchemaValidationError{Problems: []string{fmt.Sprintf("Invalid service type: %s", explicit)}}
	}
	rec.Set(FieldServiceType, string(parsed))
	return parsed, nil
}

// CheckFieldLegality fails when a field forbidden for serviceType has a truthy value.
func CheckFieldLegality(rec Record, serviceType ServiceType) error {
	var offending []string
	for _, field := range ForbiddenFields[serviceType] {
		value, ok := rec.Get(field)
		if ok && truthy(value) {
			offending = append(offending, field)
		}
	}
	if len(offending) > 0 {
		return &InvalidFieldsForServiceTypeError{ServiceType: serviceType, Fields: offending}
	}
	return nil
}

// IsStatusOnly reports whether the only field carried by rec is the status.
func IsStatusOnly(rec Record) bool {
	if rec.Len() != 1 {
		return false
	}
	_, ok := rec.Get(FieldServiceRequestStatus)
	return ok
}

// Finalize computes derived fields on a complete record: scope for survey and
// installation visits, plus the scope and status defaults.
func Finalize(rec *Record) {
	serviceType, _ := ParseServiceType(rec.String(FieldServiceType))
	if serviceType.QualifiesForScope() {
		rec.Set(FieldScope, ComputeScope(*rec))
	} else if strings.TrimSpace(rec.String(FieldScope)) == "" {
		rec.Set(FieldScope, ScopeIn)
	}

	if strings.TrimSpace(rec.String(FieldServiceRequestStatus)) == "" {
		rec.Set(FieldServiceRequestStatus, DefaultStatus)
	}
}

// ComputeScope returns "out scope" when either cable length exceeds the
// in-scope limit and "in scope" otherwise.
func ComputeScope(rec Record) string {
	for _, field := range []string{FieldCableLength, FieldActualCableLength} {
		length, ok := rec.Float(field)
		if ok && decimal.NewFromFloat(length).GreaterThan(maxInScopeCableLength) {
			return ScopeOut
		}
	}
	return ScopeIn
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int64:
		return v != 0
	case int:
		return v != 0
	case Date:
		return !v.IsZero()
	default:
		return true
	}
}
