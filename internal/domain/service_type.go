package domain

import "strings"

// ServiceType is one of the four visit categories.
type ServiceType string

const (
	ServiceTypeEnquiry      ServiceType = "Enquiry Visit"
	ServiceTypeSurvey       ServiceType = "Survey Visit"
	ServiceTypeInstallation ServiceType = "Installation Visit"
	ServiceTypeCommission   ServiceType = "Commission Visit"
)

// ServiceTypes lists the known service types.
var ServiceTypes = []ServiceType{
	ServiceTypeEnquiry,
	ServiceTypeSurvey,
	ServiceTypeInstallation,
	ServiceTypeCommission,
}

// servicePrefixes maps the two-letter service request number prefix to its type.
var servicePrefixes = map[string]ServiceType{
	"EV": ServiceTypeEnquiry,
	"SV": ServiceTypeSurvey,
	"IN": ServiceTypeInstallation,
	"CM": ServiceTypeCommission,
}

// ForbiddenFields lists, per service type, the fields that must not carry a
// truthy value.
var ForbiddenFields = map[ServiceType][]string{
	ServiceTypeEnquiry: {
		FieldCableLength,
		FieldActualCableLength,
		FieldAdditionalMCB,
		FieldChargerSerialNumber,
		FieldSurveyDate,
		FieldInstallationDate,
		FieldCommissionDate,
	},
	ServiceTypeSurvey: {
		FieldActualCableLength,
		FieldChargerSerialNumber,
		FieldInstallationDate,
		FieldCommissionDate,
	},
	ServiceTypeInstallation: {
		FieldSurveyDate,
		FieldCommissionDate,
	},
	ServiceTypeCommission: {
		FieldCableLength,
		FieldActualCableLength,
		FieldAdditionalMCB,
		FieldSurveyDate,
		FieldInstallationDate,
	},
}

// ServiceTypeFromNumber derives the service type from the first two characters
// of a service request number.
func ServiceTypeFromNumber(number string) (ServiceType, bool) {
	number = strings.TrimSpace(number)
	if len(number) < 2 {
		return "", false
	}
	serviceType, ok := servicePrefixes[strings.ToUpper(number[:2])]
	return serviceType, ok
}

// ParseServiceType normalizes an explicit service type given either as a full
// name or a two-letter tag.
func ParseServiceType(value string) (ServiceType, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, known := range ServiceTypes {
		if strings.EqualFold(string(known), value) {
			return known, true
		}
	}
	serviceType, ok := servicePrefixes[strings.ToUpper(value)]
	return serviceType, ok
}

// QualifiesForScope reports whether scope is computed from cable length.
func (t ServiceType) QualifiesForScope() bool {
	return t == ServiceTypeSurvey || t == ServiceTypeInstallation
}
