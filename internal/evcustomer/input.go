package evcustomer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rpattn/evservice/internal/domain"

	"github.com/go-playground/validator/v10"
)

// CreateInput is the body of a direct create.
type CreateInput struct {
	BookingReference     string       `json:"bookingReference" validate:"notblank"`
	CustomerName         string       `json:"customerName" validate:"notblank"`
	ContactNumber        int64        `json:"contactNumber" validate:"required,gt=0"`
	Email                string       `json:"email"`
	Location             string       `json:"location" validate:"notblank"`
	Address              string       `json:"address" validate:"notblank"`
	Pincode              string       `json:"pincode"`
	VehicleModel         string       `json:"vehicleModel" validate:"notblank"`
	DealerName           string       `json:"dealerName" validate:"notblank"`
	ServiceRequestNumber string       `json:"serviceRequestNumber" validate:"notblank"`
	ServiceType          string       `json:"serviceType" validate:"notblank"`
	ServiceRequestStatus string       `json:"serviceRequestStatus"`
	RequestedDate        *domain.Date `json:"requestedDate"`
	SurveyDate           *domain.Date `json:"surveyDate"`
	InstallationDate     *domain.Date `json:"installationDate"`
	CommissionDate       *domain.Date `json:"commissionDate"`
	CableLength          *float64     `json:"cableLength" validate:"omitnil,gte=0"`
	ActualCableLength    *float64     `json:"actualCableLength" validate:"omitnil,gte=0"`
	AdditionalMCB        bool         `json:"additionalMCB"`
	Scope                string       `json:"scope"`
	ChargerModel         string       `json:"chargerModel"`
	ChargerSerialNumber  string       `json:"chargerSerialNumber"`
	EngineerName         string       `json:"engineerName"`
	Remarks              string       `json:"remarks"`
}

// Record converts the input to a canonical record. Blank strings and nil
// pointers are left out.
func (in CreateInput) Record() domain.Record {
	rec := domain.NewRecord()
	setString(&rec, domain.FieldBookingReference, in.BookingReference)
	setString(&rec, domain.FieldCustomerName, in.CustomerName)
	rec.Set(domain.FieldContactNumber, in.ContactNumber)
	setString(&rec, domain.FieldEmail, in.Email)
	setString(&rec, domain.FieldLocation, in.Location)
	setString(&rec, domain.FieldAddress, in.Address)
	setString(&rec, domain.FieldPincode, in.Pincode)
	setString(&rec, domain.FieldVehicleModel, in.VehicleModel)
	setString(&rec, domain.FieldDealerName, in.DealerName)
	setString(&rec, domain.FieldServiceRequestNumber, in.ServiceRequestNumber)
	setString(&rec, domain.FieldServiceType, in.ServiceType)
	setString(&rec, domain.FieldServiceRequestStatus, in.ServiceRequestStatus)
	setDate(&rec, domain.FieldRequestedDate, in.RequestedDate)
	setDate(&rec, domain.FieldSurveyDate, in.SurveyDate)
	setDate(&rec, domain.FieldInstallationDate, in.InstallationDate)
	setDate(&rec, domain.FieldCommissionDate, in.CommissionDate)
	setFloat(&rec, domain.FieldCableLength, in.CableLength)
	setFloat(&rec, domain.FieldActualCableLength, in.ActualCableLength)
	rec.Set(domain.FieldAdditionalMCB, in.AdditionalMCB)
	setString(&rec, domain.FieldScope, in.Scope)
	setString(&rec, domain.FieldChargerModel, in.ChargerModel)
	setString(&rec, domain.FieldChargerSerialNumber, in.ChargerSerialNumber)
	setString(&rec, domain.FieldEngineerName, in.EngineerName)
	setString(&rec, domain.FieldRemarks, in.Remarks)
	return rec
}

// UpdateInput is the body of a partial update. Only non-nil fields are
// applied; an empty string clears an optional field.
type UpdateInput struct {
	BookingReference     *string      `json:"bookingReference"`
	CustomerName         *string      `json:"customerName"`
	ContactNumber        *int64       `json:"contactNumber" validate:"omitnil,gt=0"`
	Email                *string      `json:"email"`
	Location             *string      `json:"location"`
	Address              *string      `json:"address"`
	Pincode              *string      `json:"pincode"`
	VehicleModel         *string      `json:"vehicleModel"`
	DealerName           *string      `json:"dealerName"`
	ServiceRequestNumber *string      `json:"serviceRequestNumber"`
	ServiceType          *string      `json:"serviceType"`
	ServiceRequestStatus *string      `json:"serviceRequestStatus"`
	RequestedDate        *domain.Date `json:"requestedDate"`
	SurveyDate           *domain.Date `json:"surveyDate"`
	InstallationDate     *domain.Date `json:"installationDate"`
	CommissionDate       *domain.Date `json:"commissionDate"`
	CableLength          *float64     `json:"cableLength" validate:"omitnil,gte=0"`
	ActualCableLength    *float64     `json:"actualCableLength" validate:"omitnil,gte=0"`
	AdditionalMCB        *bool        `json:"additionalMCB"`
	Scope                *string      `json:"scope"`
	ChargerModel         *string      `json:"chargerModel"`
	ChargerSerialNumber  *string      `json:"chargerSerialNumber"`
	EngineerName         *string      `json:"engineerName"`
	Remarks              *string      `json:"remarks"`
}

// Record converts the patch to a canonical record holding only the supplied fields.
func (in UpdateInput) Record() domain.Record {
	rec := domain.NewRecord()
	patchString(&rec, domain.FieldBookingReference, in.BookingReference)
	patchString(&rec, domain.FieldCustomerName, in.CustomerName)
	if in.ContactNumber != nil {
		rec.Set(domain.FieldContactNumber, *in.ContactNumber)
	}
	patchString(&rec, domain.FieldEmail, in.Email)
	patchString(&rec, domain.FieldLocation, in.Location)
	patchString(&rec, domain.FieldAddress, in.Address)
	patchString(&rec, domain.FieldPincode, in.Pincode)
	patchString(&rec, domain.FieldVehicleModel, in.VehicleModel)
	patchString(&rec, domain.FieldDealerName, in.DealerName)
	patchString(&rec, domain.FieldServiceRequestNumber, in.ServiceRequestNumber)
	patchString(&rec, domain.FieldServiceType, in.ServiceType)
	patchString(&rec, domain.FieldServiceRequestStatus, in.ServiceRequestStatus)
	setDate(&rec, domain.FieldRequestedDate, in.RequestedDate)
	setDate(&rec, domain.FieldSurveyDate, in.SurveyDate)
	setDate(&rec, domain.FieldInstallationDate, in.InstallationDate)
	setDate(&rec, domain.FieldCommissionDate, in.CommissionDate)
	setFloat(&rec, domain.FieldCableLength, in.CableLength)
	setFloat(&rec, domain.FieldActualCableLength, in.ActualCableLength)
	if in.AdditionalMCB != nil {
		rec.Set(domain.FieldAdditionalMCB, *in.AdditionalMCB)
	}
	patchString(&rec, domain.FieldScope, in.Scope)
	patchString(&rec, domain.FieldChargerModel, in.ChargerModel)
	patchString(&rec, domain.FieldChargerSerialNumber, in.ChargerSerialNumber)
	patchString(&rec, domain.FieldEngineerName, in.EngineerName)
	patchString(&rec, domain.FieldRemarks, in.Remarks)
	return rec
}

func setString(rec *domain.Record, field, value string) {
	if value = strings.TrimSpace(value); value != "" {
		rec.Set(field, value)
	}
}

func patchString(rec *domain.Record, field string, value *string) {
	if value != nil {
		rec.Set(field, strings.TrimSpace(*value))
	}
}

func setDate(rec *domain.Record, field string, value *domain.Date) {
	if value != nil && !value.IsZero() {
		rec.Set(field, *value)
	}
}

func setFloat(rec *domain.Record, field string, value *float64) {
	if value != nil {
		rec.Set(field, *value)
	}
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// schemaError turns validator failures into a SchemaValidationError using
// the canonical field labels.
func schemaError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	problems := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		label := fe.Field()
		if field, ok := domain.FieldByName(fe.Field()); ok {
			label = field.Label
		}
		switch fe.Tag() {
		case "required", "notblank":
			problems = append(problems, fmt.Sprintf("%s is required", label))
		case "gt":
			problems = append(problems, fmt.Sprintf("%s must be greater than %s", label, fe.Param()))
		case "gte":
			problems = append(problems, fmt.Sprintf("%s must be at least %s", label, fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", label))
		}
	}
	return &domain.SchemaValidationError{Problems: problems}
}

// blankRequired lists non-nullable fields a patch tries to set to blank.
func blankRequired(patch domain.Record) []string {
	var problems []string
	for _, name := range patch.Keys() {
		field, _ := domain.FieldByName(name)
		if field.Nullable || field.Kind != domain.FieldKindString {
			continue
		}
		if patch.String(name) == "" {
			problems = append(problems, fmt.Sprintf("%s cannot be empty", field.Label))
		}
	}
	return problems
}
