package dedup

import (
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroPolicy decides which zero-like values count as empty when scoring.
type ZeroPolicy string

const (
	// ZeroPolicyLiteral treats only integer 0 and the string "0.00" as zero-empty.
	ZeroPolicyLiteral ZeroPolicy = "literal"
	// ZeroPolicyNumeric treats numeric zero in any representation as empty.
	ZeroPolicyNumeric ZeroPolicy = "numeric"
)

// emptyDecimalString is how decimal:2 columns serialize an unset amount.
const emptyDecimalString = "0.00"

// Scorer computes the completeness score of a record.
type Scorer struct {
	ZeroPolicy ZeroPolicy
}

// DefaultScorer keeps the literal "0.00" behavior.
var DefaultScorer = Scorer{ZeroPolicy: ZeroPolicyLiteral}

// Score counts the populated fields of r using DefaultScorer.
func Score(r Record) int {
	return DefaultScorer.Score(r)
}

// Score counts the fields of r whose value is not empty. id, created_at and updated_at are ignored.
func (s Scorer) Score(r Record) int {
	score := 0
	for _, f := range r.Fields {
		if isSystemField(f.Name) {
			continue
		}
		if !s.IsEmpty(f.Value) {
			score++
		}
	}
	return score
}

// IsEmpty reports whether v counts as missing data.
func (s Scorer) IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		if t == "" || t == emptyDecimalString {
			return true
		}
		if s.ZeroPolicy == ZeroPolicyNumeric {
			return isNumericZeroString(t)
		}
		return false
	case []byte:
		return s.IsEmpty(string(t))
	case bool:
		return false
	case int:
		return t == 0
	case int8:
		return t == 0
	case int16:
		return t == 0
	case int32:
		return t == 0
	case int64:
		return t == 0
	case uint:
		return t == 0
	case uint8:
		return t == 0
	case uint16:
		return t == 0
	case uint32:
		return t == 0
	case uint64:
		return t == 0
	case float32:
		return s.ZeroPolicy == ZeroPolicyNumeric && t == 0
	case float64:
		return s.ZeroPolicy == ZeroPolicyNumeric && t == 0
	case decimal.Decimal:
		return s.ZeroPolicy == ZeroPolicyNumeric && t.IsZero()
	case *decimal.Decimal:
		if t == nil {
			return true
		}
		return s.IsEmpty(*t)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		return s.IsEmpty(rv.Elem().Interface())
	}
	return false
}

func isNumericZeroString(v string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return d.IsZero()
}
