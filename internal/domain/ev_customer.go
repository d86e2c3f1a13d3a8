package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Properties holds canonical field values of one record group.
type Properties map[string]any

// Record is a canonical EV customer record split into its two groups.
type Record struct {
	Customer       Properties `json:"customer"`
	ServiceRequest Properties `json:"serviceRequest"`
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Customer: Properties{}, ServiceRequest: Properties{}}
}

func (r Record) group(g FieldGroup) Properties {
	if g == GroupCustomer {
		return r.Customer
	}
	return r.ServiceRequest
}

// Get returns the value of a canonical field.
func (r Record) Get(name string) (any, bool) {
	field, ok := FieldByName(name)
	if !ok {
		return nil, false
	}
	props := r.group(field.Group)
	if props == nil {
		return nil, false
	}
	value, ok := props[name]
	return value, ok
}

// Set stores value under a canonical field. Unknown names are ignored.
func (r *Record) Set(name string, value any) {
	field, ok := FieldByName(name)
	if !ok {
		return
	}
	if field.Group == GroupCustomer {
		if r.Customer == nil {
			r.Customer = Properties{}
		}
		r.Customer[name] = value
		return
	}
	if r.ServiceRequest == nil {
		r.ServiceRequest = Properties{}
	}
	r.ServiceRequest[name] = value
}

// Delete removes a canonical field.
func (r Record) Delete(name string) {
	field, ok := FieldByName(name)
	if !ok {
		return
	}
	delete(r.group(field.Group), name)
}

// String returns a string field, or "" when absent.
func (r Record) String(name string) string {
	value, ok := r.Get(name)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Float returns a numeric field as float64.
func (r Record) Float(name string) (float64, bool) {
	value, ok := r.Get(name)
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Len returns the number of fields present in both groups.
func (r Record) Len() int {
	return len(r.Customer) + len(r.ServiceRequest)
}

// Keys returns the names of all fields present in the record.
func (r Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	for _, field := range CanonicalFields {
		if _, ok := r.group(field.Group)[field.Name]; ok {
			keys = append(keys, field.Name)
		}
	}
	return keys
}

// Clone returns a shallow copy of both groups.
func (r Record) Clone() Record {
	return Record{
		Customer:       copyProperties(r.Customer),
		ServiceRequest: copyProperties(r.ServiceRequest),
	}
}

// Merge overlays incoming on existing group by group. Fields absent from
// incoming are kept; fields explicitly set to nil are cleared.
func Merge(existing, incoming Record) Record {
	merged := existing.Clone()
	overlay(merged.Customer, incoming.Customer)
	overlay(merged.ServiceRequest, incoming.ServiceRequest)
	return merged
}

func overlay(dst, src Properties) {
	for key, value := range src {
		if value == nil {
			delete(dst, key)
			continue
		}
		dst[key] = value
	}
}

// EVCustomer is a persisted customer with one service request.
type EVCustomer struct {
	ID             uuid.UUID  `json:"id"`
	Customer       Properties `json:"customer"`
	ServiceRequest Properties `json:"serviceRequest"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewEVCustomer creates a customer from a finalized record.
func NewEVCustomer(rec Record) EVCustomer {
	now := time.Now().UTC()
	return EVCustomer{
		ID:             uuid.New(),
		Customer:       compact(rec.Customer),
		ServiceRequest: compact(rec.ServiceRequest),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Record returns the customer's fields as a canonical record.
func (c EVCustomer) Record() Record {
	return Record{
		Customer:       copyProperties(c.Customer),
		ServiceRequest: copyProperties(c.ServiceRequest),
	}
}

// WithRecord returns a copy of the customer holding rec.
func (c EVCustomer) WithRecord(rec Record) EVCustomer {
	return EVCustomer{
		ID:             c.ID,
		Customer:       compact(rec.Customer),
		ServiceRequest: compact(rec.ServiceRequest),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
	}
}

// ServiceRequestNumber returns the natural key.
func (c EVCustomer) ServiceRequestNumber() string {
	return c.Record().String(FieldServiceRequestNumber)
}

// EVCustomerFilter narrows list queries.
type EVCustomerFilter struct {
	ServiceType ServiceType
	Status      string
	Search      string
	Limit       int
	Offset      int
}

// NewEVCustomerFilter builds a filter from user input. The service type may be
// a full name or a two-letter tag.
func NewEVCustomerFilter(serviceType, status, search string) (EVCustomerFilter, error) {
	filter := EVCustomerFilter{
		Status: strings.TrimSpace(status),
		Search: strings.TrimSpace(search),
	}
	if strings.TrimSpace(serviceType) != "" {
		parsed, ok := ParseServiceType(serviceType)
		if !ok {
			return EVCustomerFilter{}, &SchemaValidationError{Problems: []string{fmt.Sprintf("Invalid service type: %s", serviceType)}}
		}
		filter.ServiceType = parsed
	}
	return filter, nil
}

// MarshalProperties encodes a group for JSONB storage.
func MarshalProperties(props Properties) (json.RawMessage, error) {
	if props == nil {
		props = Properties{}
	}
	return json.Marshal(props)
}

// UnmarshalProperties decodes a JSONB group and restores the declared kinds of
// canonical fields (json numbers to int64/float64, date strings to Date).
func UnmarshalProperties(data []byte) (Properties, error) {
	props := Properties{}
	if len(bytes.TrimSpace(data)) == 0 {
		return props, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	for key, value := range raw {
		field, ok := FieldByName(key)
		if !ok || value == nil {
			props[key] = value
			continue
		}
		restored, err := restoreKind(field.Kind, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		props[key] = restored
	}
	return props, nil
}

func restoreKind(kind FieldKind, value any) (any, error) {
	switch kind {
	case FieldKindInteger:
		if n, ok := value.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			return int64(f), nil
		}
	case FieldKindFloat:
		if n, ok := value.(json.Number); ok {
			return n.Float64()
		}
	case FieldKindDate:
		if s, ok := value.(string); ok {
			var d Date
			if err := d.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
				return nil, err
			}
			return d, nil
		}
	case FieldKindString:
		if n, ok := value.(json.Number); ok {
			return n.String(), nil
		}
	}
	return value, nil
}

func compact(props Properties) Properties {
	out := make(Properties, len(props))
	for key, value := range props {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func copyProperties(properties Properties) Properties {
	newProperties := make(Properties, len(properties))
	for k, v := range properties {
		newProperties[k] = v
	}
	return newProperties
}
