package models

import (
	"time"

	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/shopspring/decimal"
)

const EntityTypeUnit = "units"

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusReserved  UnitStatus = "reserved"
	UnitStatusSold      UnitStatus = "sold"
)

// Unit is a sellable unit inside a compound. unit_code is expected to be unique but is not
// enforced: imports may create several rows with the same code.
type Unit struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CompanyId          int             `gorm:"index;not null" json:"company_id"`
	CompoundId         int             `gorm:"index;not null" json:"compound_id"`
	UnitCode           *string         `gorm:"size:100;index" json:"unit_code"`
	UnitName           string          `gorm:"size:255" json:"unit_name"`
	UnitType           string          `gorm:"size:50" json:"unit_type"`
	Usage              string          `gorm:"size:50" json:"usage"`
	Status             UnitStatus      `gorm:"size:20;not null;default:available" json:"status"`
	Floor              *int            `json:"floor"`
	Bedrooms           *int            `json:"bedrooms"`
	Bathrooms          *int            `json:"bathrooms"`
	BuiltUpArea        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"built_up_area"`
	GardenArea         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"garden_area"`
	RoofArea           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"roof_area"`
	Price              decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	DownPayment        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"down_payment"`
	MonthlyInstallment decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"monthly_installment"`
	InstallmentYears   *int            `json:"installment_years"`
	DeliveryDate       *time.Time      `json:"delivery_date"`
	Finishing          string          `gorm:"size:50" json:"finishing"`
	View               string          `gorm:"size:100" json:"view"`
	IsFeatured         bool            `gorm:"not null;default:false" json:"is_featured"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DedupRecord converts the row into its scoring view. Field order follows the table columns.
// Decimal columns are rendered with two places ("0.00"), the same text the API and the Excel export show.
func (u Unit) DedupRecord() dedup.Record {
	return dedup.Record{
		ID:          u.ID,
		BusinessKey: u.UnitCode,
		CreatedAt:   u.CreatedAt,
		Fields: []dedup.Field{
			{Name: "company_id", Value: u.CompanyId},
			{Name: "compound_id", Value: u.CompoundId},
			{Name: "unit_code", Value: stringOrNil(u.UnitCode)},
			{Name: "unit_name", Value: u.UnitName},
			{Name: "unit_type", Value: u.UnitType},
			{Name: "usage", Value: u.Usage},
			{Name: "status", Value: string(u.Status)},
			{Name: "floor", Value: intOrNil(u.Floor)},
			{Name: "bedrooms", Value: intOrNil(u.Bedrooms)},
			{Name: "bathrooms", Value: intOrNil(u.Bathrooms)},
			{Name: "built_up_area", Value: u.BuiltUpArea.StringFixed(2)},
			{Name: "garden_area", Value: u.GardenArea.StringFixed(2)},
			{Name: "roof_area", Value: u.RoofArea.StringFixed(2)},
			{Name: "price", Value: u.Price.StringFixed(2)},
			{Name: "down_payment", Value: u.DownPayment.StringFixed(2)},
			{Name: "monthly_installment", Value: u.MonthlyInstallment.StringFixed(2)},
			{Name: "installment_years", Value: intOrNil(u.InstallmentYears)},
			{Name: "delivery_date", Value: timeOrNil(u.DeliveryDate)},
			{Name: "finishing", Value: u.Finishing},
			{Name: "view", Value: u.View},
			{Name: "is_featured", Value: u.IsFeatured},
		},
	}
}

func stringOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return *v
}
