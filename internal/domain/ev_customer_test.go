package domain

import (
	"testing"
	"time"
)

func TestMergeKeepsAbsentFieldsAndClearsNil(t *testing.T) {
	existing := NewRecord()
	existing.Set(FieldCustomerName, "Asha Rao")
	existing.Set(FieldDealerName, "City Motors")
	existing.Set(FieldRemarks, "call before visit")
	existing.Set(FieldServiceRequestNumber, "SV-1")

	incoming := NewRecord()
	incoming.Set(FieldCustomerName, "Asha R.")
	incoming.Set(FieldRemarks, nil)
	incoming.Set(FieldCableLength, 9.5)

	merged := Merge(existing, incoming)

	if merged.String(FieldCustomerName) != "Asha R." {
		t.Fatalf("expected incoming name to win, got %q", merged.String(FieldCustomerName))
	}
	if merged.String(FieldDealerName) != "City Motors" {
		t.Fatalf("expected dealer to be preserved, got %q", merged.String(FieldDealerName))
	}
	if _, ok := merged.Get(FieldRemarks); ok {
		t.Fatalf("expected remarks to be cleared")
	}
	if length, ok := merged.Float(FieldCableLength); !ok || length != 9.5 {
		t.Fatalf("expected cable length 9.5, got %v", length)
	}
	if existing.String(FieldCustomerName) != "Asha Rao" {
		t.Fatalf("merge must not mutate the existing record")
	}
}

func TestPropertiesRoundTripRestoresKinds(t *testing.T) {
	rec := NewRecord()
	rec.Set(FieldContactNumber, int64(9876543210))
	rec.Set(FieldCableLength, 12.5)
	rec.Set(FieldAdditionalMCB, true)
	rec.Set(FieldRequestedDate, NewDate(mustTime(t, "2024-05-17")))
	rec.Set(FieldServiceRequestNumber, "IN-77")

	customerJSON, err := MarshalProperties(rec.Customer)
	if err != nil {
		t.Fatalf("marshal customer: %v", err)
	}
	requestJSON, err := MarshalProperties(rec.ServiceRequest)
	if err != nil {
		t.Fatalf("marshal service request: %v", err)
	}

	customer, err := UnmarshalProperties(customerJSON)
	if err != nil {
		t.Fatalf("unmarshal customer: %v", err)
	}
	request, err := UnmarshalProperties(requestJSON)
	if err != nil {
		t.Fatalf("unmarshal service request: %v", err)
	}

	if contact, ok := customer[FieldContactNumber].(int64); !ok || contact != 9876543210 {
		t.Fatalf("expected int64 contact number, got %T %v", customer[FieldContactNumber], customer[FieldContactNumber])
	}
	if length, ok := request[FieldCableLength].(float64); !ok || length != 12.5 {
		t.Fatalf("expected float cable length, got %T %v", request[FieldCableLength], request[FieldCableLength])
	}
	if date, ok := request[FieldRequestedDate].(Date); !ok || date.String() != "2024-05-17" {
		t.Fatalf("expected restored date, got %T %v", request[FieldRequestedDate], request[FieldRequestedDate])
	}
	if mcb, ok := request[FieldAdditionalMCB].(bool); !ok || !mcb {
		t.Fatalf("expected boolean mcb, got %v", request[FieldAdditionalMCB])
	}
}

func TestNewEVCustomerDropsEmptyValues(t *testing.T) {
	rec := NewRecord()
	rec.Set(FieldCustomerName, "Ravi")
	rec.Set(FieldEmail, nil)
	rec.Set(FieldPincode, "  ")
	rec.Set(FieldServiceRequestNumber, "CM-9")

	customer := NewEVCustomer(rec)
	if _, ok := customer.Customer[FieldEmail]; ok {
		t.Fatalf("expected nil email to be dropped")
	}
	if _, ok := customer.Customer[FieldPincode]; ok {
		t.Fatalf("expected blank pincode to be dropped")
	}
	if customer.ServiceRequestNumber() != "CM-9" {
		t.Fatalf("unexpected natural key %q", customer.ServiceRequestNumber())
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return parsed
}
