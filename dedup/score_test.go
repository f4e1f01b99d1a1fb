package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestScore_CountsOnlyPopulatedFields(t *testing.T) {
	r := Record{
		ID: 5,
		Fields: []Field{
			{Name: "name", Value: "Unit A"},
			{Name: "price", Value: 0},
			{Name: "floor", Value: nil},
		},
	}
	if got := Score(r); got != 1 {
		t.Fatalf("expected score 1, got %d", got)
	}
}

func TestScore_IgnoresSystemColumns(t *testing.T) {
	now := time.Now()
	r := Record{Fields: []Field{
		{Name: "id", Value: 10},
		{Name: "created_at", Value: now},
		{Name: "updated_at", Value: now},
		{Name: "unit_code", Value: "U-1"},
	}}
	if got := Score(r); got != 1 {
		t.Fatalf("expected only unit_code to count, got %d", got)
	}
}

func TestScore_LiteralPolicy(t *testing.T) {
	cases := []struct {
		name  string
		value any
		empty bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"int zero", 0, true},
		{"int64 zero", int64(0), true},
		{"uint8 zero", uint8(0), true},
		{"decimal string zero", "0.00", true},
		{"one decimal zero string", "0.0", false},
		{"plain zero string", "0", false},
		{"float zero", 0.0, false},
		{"decimal zero", decimal.Zero, false},
		{"negative", -3, false},
		{"false", false, false},
		{"true", true, false},
		{"text", "Garden view", false},
		{"time", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"nil int pointer", (*int)(nil), true},
		{"zero int pointer", intPtr(0), true},
		{"int pointer", intPtr(3), false},
		{"bytes decimal zero", []byte("0.00"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultScorer.IsEmpty(tc.value); got != tc.empty {
				t.Fatalf("IsEmpty(%#v) = %v, want %v", tc.value, got, tc.empty)
			}
		})
	}
}

func TestScore_NumericPolicy(t *testing.T) {
	s := Scorer{ZeroPolicy: ZeroPolicyNumeric}
	for _, v := range []any{0.0, float32(0), "0", "0.0", "0.000", " 0 ", decimal.Zero, "0.00", 0, nil, ""} {
		if !s.IsEmpty(v) {
			t.Fatalf("numeric policy: expected %#v to be empty", v)
		}
	}
	for _, v := range []any{0.5, "0.01", "abc", decimal.NewFromInt(1), false, -1} {
		if s.IsEmpty(v) {
			t.Fatalf("numeric policy: expected %#v to be present", v)
		}
	}
}

func TestScore_Monotonic(t *testing.T) {
	base := Record{Fields: []Field{
		{Name: "name", Value: "Unit A"},
		{Name: "price", Value: "0.00"},
	}}
	extended := Record{Fields: append(append([]Field(nil), base.Fields...), Field{Name: "floor", Value: 3})}
	if Score(extended) <= Score(base) {
		t.Fatalf("expected extra populated field to raise score: base=%d extended=%d", Score(base), Score(extended))
	}
	if Score(extended) != Score(base)+1 {
		t.Fatalf("expected score to rise by exactly one: base=%d extended=%d", Score(base), Score(extended))
	}
}

func intPtr(v int) *int {
	return &v
}
