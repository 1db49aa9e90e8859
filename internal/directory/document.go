package directory

import (
	"strconv"
	"strings"
	"time"
)

// Value is a typed document field. Exactly one branch is set; absent
// branches stay nil so callers check presence explicitly instead of
// relying on zero values.
type Value struct {
	StringValue    *string `json:"stringValue,omitempty"`
	BooleanValue   *bool   `json:"booleanValue,omitempty"`
	IntegerValue   *string `json:"integerValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
}

// StringOf builds a string value.
func StringOf(value string) Value {
	return Value{StringValue: &value}
}

// BoolOf builds a boolean value.
func BoolOf(value bool) Value {
	return Value{BooleanValue: &value}
}

// IntOf builds an integer value. The wire encoding is a decimal string.
func IntOf(value int64) Value {
	encoded := strconv.FormatInt(value, 10)
	return Value{IntegerValue: &encoded}
}

// TimeOf builds a timestamp value, RFC 3339 UTC.
func TimeOf(value time.Time) Value {
	encoded := value.UTC().Format(time.RFC3339)
	return Value{TimestampValue: &encoded}
}

// Document is one record in the store.
type Document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]Value `json:"fields,omitempty"`
}

// ID returns the last path segment of the document name.
func (d Document) ID() string {
	if d.Name == "" {
		return ""
	}
	parts := strings.Split(d.Name, "/")
	return parts[len(parts)-1]
}

// String returns the named string field and whether it is present.
func (d Document) String(field string) (string, bool) {
	value, ok := d.Fields[field]
	if !ok || value.StringValue == nil {
		return "", false
	}
	return *value.StringValue, true
}

// Bool returns the named boolean field and whether it is present.
func (d Document) Bool(field string) (bool, bool) {
	value, ok := d.Fields[field]
	if !ok || value.BooleanValue == nil {
		return false, false
	}
	return *value.BooleanValue, true
}

// Int returns the named integer field and whether it is present.
func (d Document) Int(field string) (int64, bool) {
	value, ok := d.Fields[field]
	if !ok || value.IntegerValue == nil {
		return 0, false
	}
	parsed, err := strconv.ParseInt(*value.IntegerValue, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// Time returns the named timestamp field and whether it is present.
func (d Document) Time(field string) (time.Time, bool) {
	value, ok := d.Fields[field]
	if !ok || value.TimestampValue == nil {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, *value.TimestampValue)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
