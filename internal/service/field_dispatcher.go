package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"backend/internal/apperr"
)

// fieldKind controls how a submitted raw value is coerced before the
// column write.
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldInt
	fieldJSON
)

type fieldMapping struct {
	column string
	kind   fieldKind
}

// propertyFields is the closed set of attributes editable through the
// change ledger, keyed by the logical field name used on the wire.
// Any column added to model.Property needs a row here or approvals for
// it fail closed with an unsupported-field error.
var propertyFields = map[string]fieldMapping{
	"title":              {column: "title", kind: fieldText},
	"description":        {column: "description", kind: fieldText},
	"address":            {column: "address", kind: fieldText},
	"city":               {column: "city", kind: fieldText},
	"state":              {column: "state", kind: fieldText},
	"zipCode":            {column: "zip_code", kind: fieldText},
	"propertyType":       {column: "property_type", kind: fieldText},
	"status":             {column: "status", kind: fieldText},
	"totalUnits":         {column: "total_units", kind: fieldInt},
	"deliveryDate":       {column: "delivery_date", kind: fieldText},
	"developerName":      {column: "developer_name", kind: fieldText},
	"partnershipManager": {column: "partnership_manager", kind: fieldText},
	"typologies":         {column: "typologies", kind: fieldJSON},
	"images":             {column: "images", kind: fieldJSON},
}

// SupportedField reports whether field can be routed to a property column.
func SupportedField(field string) bool {
	_, ok := propertyFields[field]
	return ok
}

// ResolveFieldUpdate maps a logical field name plus the JSON-serialized
// value stored in the ledger to the concrete column and coerced value to
// write. It never touches storage.
func ResolveFieldUpdate(field, rawValue string) (string, interface{}, error) {
	const op = "dispatcher.resolve"

	mapping, ok := propertyFields[field]
	if !ok {
		return "", nil, apperr.New(apperr.KindUnsupportedField, op, "unsupported field: "+field)
	}

	switch mapping.kind {
	case fieldInt:
		n, err := coerceInt(rawValue)
		if err != nil {
			return "", nil, apperr.Wrap(apperr.KindValidation, op, "value for "+field+" is not an integer", err)
		}
		return mapping.column, n, nil

	case fieldJSON:
		raw := strings.TrimSpace(rawValue)
		if raw == "" || !json.Valid([]byte(raw)) {
			return "", nil, apperr.New(apperr.KindValidation, op, "value for "+field+" is not valid JSON")
		}
		return mapping.column, raw, nil

	default:
		return mapping.column, coerceText(rawValue), nil
	}
}

// coerceInt accepts a JSON number or a JSON/plain numeric string.
func coerceInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)

	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		raw = strings.TrimSpace(s)
	}

	var num json.Number
	if err := json.Unmarshal([]byte(raw), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return int(i), nil
		}
	}
	return strconv.Atoi(raw)
}

// coerceText unwraps a JSON string; legacy rows that stored bare text
// pass through unchanged.
func coerceText(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	if strings.TrimSpace(raw) == "null" {
		return ""
	}
	return raw
}
