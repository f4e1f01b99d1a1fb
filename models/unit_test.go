package models_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/models"
	"github.com/shopspring/decimal"
)

func TestUnitDedupRecord_UnsetAmountsScoreAsEmpty(t *testing.T) {
	code := "U-100"
	u := models.Unit{
		ID:         7,
		CompanyId:  1,
		CompoundId: 2,
		UnitCode:   &code,
		Status:     models.UnitStatusAvailable,
	}
	rec := u.DedupRecord()

	if rec.ID != 7 {
		t.Fatalf("expected id 7, got %d", rec.ID)
	}
	if key, ok := rec.Key(); !ok || key != "U-100" {
		t.Fatalf("expected key U-100, got %q (ok=%v)", key, ok)
	}
	if got, _ := rec.Value("price"); got != "0.00" {
		t.Fatalf("expected price rendered as 0.00, got %#v", got)
	}
	// company_id, compound_id, unit_code, status, is_featured
	if got := dedup.Score(rec); got != 5 {
		t.Fatalf("expected score 5, got %d", got)
	}
	numeric := dedup.Scorer{ZeroPolicy: dedup.ZeroPolicyNumeric}
	if got := numeric.Score(rec); got != 5 {
		t.Fatalf("expected numeric score 5, got %d", got)
	}
}

func TestUnitDedupRecord_FullyPopulatedUnit(t *testing.T) {
	code := "U-200"
	floor, beds, baths, years := 3, 2, 2, 8
	delivery := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	u := models.Unit{
		ID:                 9,
		CompanyId:          1,
		CompoundId:         2,
		UnitCode:           &code,
		UnitName:           "Tower B 302",
		UnitType:           "apartment",
		Usage:              "residential",
		Status:             models.UnitStatusReserved,
		Floor:              &floor,
		Bedrooms:           &beds,
		Bathrooms:          &baths,
		BuiltUpArea:        decimal.NewFromInt(145),
		GardenArea:         decimal.NewFromFloat(20.5),
		RoofArea:           decimal.NewFromInt(30),
		Price:              decimal.NewFromInt(4_500_000),
		DownPayment:        decimal.NewFromInt(450_000),
		MonthlyInstallment: decimal.NewFromInt(42_000),
		InstallmentYears:   &years,
		DeliveryDate:       &delivery,
		Finishing:          "semi-finished",
		View:               "garden",
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := u.DedupRecord()
	if got, want := dedup.Score(rec), len(rec.Fields); got != want {
		t.Fatalf("expected every field to count (%d), got %d", want, got)
	}
	if got, _ := rec.Value("garden_area"); got != "20.50" {
		t.Fatalf("expected garden_area 20.50, got %#v", got)
	}
	if !rec.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("created_at not carried over")
	}
}

func TestUnitDedupRecord_NilCodeIsNotEligible(t *testing.T) {
	rec := models.Unit{ID: 1, CompanyId: 1}.DedupRecord()
	if _, ok := rec.Key(); ok {
		t.Fatalf("expected unit without code to be exempt from grouping")
	}
	if got, ok := rec.Value("unit_code"); !ok || got != nil {
		t.Fatalf("expected nil unit_code value, got %#v (ok=%v)", got, ok)
	}
}
