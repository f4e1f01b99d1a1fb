package dedup

import "time"

// Column names that never take part in scoring.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Field is one named attribute of a Record. Order is significant for reporting only.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Record is the store-independent view of a row that may be duplicated by business key.
type Record struct {
	ID          int       `json:"id"`
	BusinessKey *string   `json:"business_key"`
	CreatedAt   time.Time `json:"created_at"`
	Fields      []Field   `json:"fields"`
}

// Key returns the business key and whether the record is eligible for grouping.
// Only nil and "" are exempt; any other key, including whitespace, is compared exactly.
func (r Record) Key() (string, bool) {
	if r.BusinessKey == nil || *r.BusinessKey == "" {
		return "", false
	}
	return *r.BusinessKey, true
}

// Value returns the value of the named field.
func (r Record) Value(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func isSystemField(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// KeyPtr is a small helper for building records with a business key.
func KeyPtr(key string) *string {
	return &key
}
