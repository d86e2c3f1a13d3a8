package domain

import "strings"

// FieldKind is the semantic type a canonical field is coerced to.
type FieldKind string

const (
	FieldKindString  FieldKind = "string"
	FieldKindInteger FieldKind = "integer"
	FieldKindFloat   FieldKind = "float"
	FieldKindBoolean FieldKind = "boolean"
	FieldKindDate    FieldKind = "date"
)

// FieldGroup names the half of a record a canonical field belongs to.
type FieldGroup string

const (
	GroupCustomer       FieldGroup = "customer"
	GroupServiceRequest FieldGroup = "serviceRequest"
)

// Canonical field names.
const (
	FieldBookingReference     = "bookingReference"
	FieldCustomerName         = "customerName"
	FieldContactNumber        = "contactNumber"
	FieldEmail                = "email"
	FieldLocation             = "location"
	FieldAddress              = "address"
	FieldPincode              = "pincode"
	FieldVehicleModel         = "vehicleModel"
	FieldDealerName           = "dealerName"
	FieldServiceRequestNumber = "serviceRequestNumber"
	FieldServiceType          = "serviceType"
	FieldServiceRequestStatus = "serviceRequestStatus"
	FieldRequestedDate        = "requestedDate"
	FieldSurveyDate           = "surveyDate"
	FieldInstallationDate     = "installationDate"
	FieldCommissionDate       = "commissionDate"
	FieldCableLength          = "cableLength"
	FieldActualCableLength    = "actualCableLength"
	FieldAdditionalMCB        = "additionalMCB"
	FieldScope                = "scope"
	FieldChargerModel         = "chargerModel"
	FieldChargerSerialNumber  = "chargerSerialNumber"
	FieldEngineerName         = "engineerName"
	FieldRemarks              = "remarks"
)

// FieldSpec declares one canonical field: where it lives, how it is coerced and
// which spreadsheet headers it may be read from. Aliases are listed in priority
// order; the first alias is also the header written on export.
type FieldSpec struct {
	Name     string
	Label    string
	Group    FieldGroup
	Kind     FieldKind
	Nullable bool
	Aliases  []string
}

// CanonicalFields is the ordered canonical schema. Partner spreadsheets depend on
// these alias lists, so entries must not be renamed or reordered.
var CanonicalFields = []FieldSpec{
	{Name: FieldBookingReference, Label: "Booking Reference", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Booking Reference", "Booking Ref", "Booking Reference No", "Booking ID", "Booking No"}},
	{Name: FieldCustomerName, Label: "Customer Name", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Customer Name", "Name", "Client Name", "Customer"}},
	{Name: FieldContactNumber, Label: "Contact Number", Group: GroupCustomer, Kind: FieldKindInteger,
		Aliases: []string{"Contact Number", "Contact No", "Phone", "Phone Number", "Mobile", "Mobile Number"}},
	{Name: FieldEmail, Label: "Email", Group: GroupCustomer, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Email", "Email ID", "Email Address", "E-mail"}},
	{Name: FieldLocation, Label: "Location", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Location", "City", "Area"}},
	{Name: FieldAddress, Label: "Address", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Address", "Customer Address", "Installation Address", "Site Address"}},
	{Name: FieldPincode, Label: "Pincode", Group: GroupCustomer, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Pincode", "Pin Code", "PIN", "Postal Code"}},
	{Name: FieldVehicleModel, Label: "Vehicle Model", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Vehicle Model", "Model", "Car Model", "Vehicle"}},
	{Name: FieldDealerName, Label: "Dealer Name", Group: GroupCustomer, Kind: FieldKindString,
		Aliases: []string{"Dealer Name", "Dealer", "Dealership"}},

	{Name: FieldServiceRequestNumber, Label: "Service Request Number", Group: GroupServiceRequest, Kind: FieldKindString,
		Aliases: []string{"Service Request Number", "Service Request No", "SR Number", "SR No", "Request Number"}},
	{Name: FieldServiceType, Label: "Service Type", Group: GroupServiceRequest, Kind: FieldKindString,
		Aliases: []string{"Service Type", "Type of Service", "Visit Type"}},
	{Name: FieldServiceRequestStatus, Label: "Service Request Status", Group: GroupServiceRequest, Kind: FieldKindString,
		Aliases: []string{"Service Request Status", "Status", "SR Status"}},
	{Name: FieldRequestedDate, Label: "Requested Date", Group: GroupServiceRequest, Kind: FieldKindDate, Nullable: true,
		Aliases: []string{"Requested Date", "Request Date", "SR Date", "Date"}},
	{Name: FieldSurveyDate, Label: "Survey Date", Group: GroupServiceRequest, Kind: FieldKindDate, Nullable: true,
		Aliases: []string{"Survey Date"}},
	{Name: FieldInstallationDate, Label: "Installation Date", Group: GroupServiceRequest, Kind: FieldKindDate, Nullable: true,
		Aliases: []string{"Installation Date"}},
	{Name: FieldCommissionDate, Label: "Commission Date", Group: GroupServiceRequest, Kind: FieldKindDate, Nullable: true,
		Aliases: []string{"Commission Date", "Commissioning Date"}},
	{Name: FieldCableLength, Label: "Cable Length", Group: GroupServiceRequest, Kind: FieldKindFloat, Nullable: true,
		Aliases: []string{"Cable Length", "Cable Length (m)", "Estimated Cable Length"}},
	{Name: FieldActualCableLength, Label: "Actual Cable Length", Group: GroupServiceRequest, Kind: FieldKindFloat, Nullable: true,
		Aliases: []string{"Actual Cable Length", "Actual Cable Length (m)"}},
	{Name: FieldAdditionalMCB, Label: "Additional MCB", Group: GroupServiceRequest, Kind: FieldKindBoolean,
		Aliases: []string{"Additional MCB", "MCB", "Additional MCB Required"}},
	{Name: FieldScope, Label: "Scope", Group: GroupServiceRequest, Kind: FieldKindString,
		Aliases: []string{"Scope"}},
	{Name: FieldChargerModel, Label: "Charger Model", Group: GroupServiceRequest, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Charger Model", "Charger Type"}},
	{Name: FieldChargerSerialNumber, Label: "Charger Serial Number", Group: GroupServiceRequest, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Charger Serial Number", "Charger Serial No", "Serial Number"}},
	{Name: FieldEngineerName, Label: "Engineer Name", Group: GroupServiceRequest, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Engineer Name", "Engineer", "Technician"}},
	{Name: FieldRemarks, Label: "Remarks", Group: GroupServiceRequest, Kind: FieldKindString, Nullable: true,
		Aliases: []string{"Remarks", "Comments", "Notes"}},
}

var fieldsByName = func() map[string]FieldSpec {
	index := make(map[string]FieldSpec, len(CanonicalFields))
	for _, field := range CanonicalFields {
		index[field.Name] = field
	}
	return index
}()

// FieldByName returns the canonical field declaration for name.
func FieldByName(name string) (FieldSpec, bool) {
	field, ok := fieldsByName[name]
	return field, ok
}

// FieldsInGroup returns the canonical fields of one group in declaration order.
func FieldsInGroup(group FieldGroup) []FieldSpec {
	fields := make([]FieldSpec, 0, len(CanonicalFields))
	for _, field := range CanonicalFields {
		if field.Group == group {
			fields = append(fields, field)
		}
	}
	return fields
}

// MatchesAlias reports whether a spreadsheet header names this field.
func (f FieldSpec) MatchesAlias(header string) bool {
	normalized := strings.TrimSpace(header)
	for _, alias := range f.Aliases {
		if strings.EqualFold(alias, normalized) {
			return true
		}
	}
	return false
}

// ExportHeader is the header written for the field on export.
func (f FieldSpec) ExportHeader() string {
	if len(f.Aliases) == 0 {
		return f.Label
	}
	return f.Aliases[0]
}
