package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/utils"
	"gorm.io/gorm"
)

// DedupRun is the audit row written after every resolver run (dry-runs included).
type DedupRun struct {
	ID             int       `gorm:"primary_key" json:"id"`
	RunId          string    `gorm:"size:64;uniqueIndex;not null" json:"run_id"`
	EntityType     string    `gorm:"size:50;index;not null" json:"entity_type"`
	Mode           string    `gorm:"size:20;not null" json:"mode"`
	CompanyId      int       `gorm:"index" json:"company_id"`
	ZeroPolicy     string    `gorm:"size:20;not null" json:"zero_policy"`
	RecordsScanned int       `gorm:"not null" json:"records_scanned"`
	GroupsFound    int       `gorm:"not null" json:"groups_found"`
	PlannedDeletes int       `gorm:"not null" json:"planned_deletes"`
	Executed       bool      `gorm:"not null;default:false" json:"executed"`
	DeletedCount   int       `gorm:"not null" json:"deleted_count"`
	MissingCount   int       `gorm:"not null" json:"missing_count"`
	FailedCount    int       `gorm:"not null" json:"failed_count"`
	Details        string    `gorm:"type:text" json:"details"` // JSON: plan groups + failures
	CorrelationId  string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type dedupRunDetails struct {
	Groups    []dedup.GroupDecision `json:"groups"`
	FailedIDs []dedup.DeleteFailure `json:"failed_ids,omitempty"`
}

// NewDedupRun builds the audit row for plan and, when it was executed, result.
func NewDedupRun(plan dedup.Plan, mode string, companyId int, result *dedup.ExecuteResult, correlationId string) (*DedupRun, error) {
	details := dedupRunDetails{Groups: plan.Groups}
	run := &DedupRun{
		RunId:          plan.RunID,
		EntityType:     plan.EntityType,
		Mode:           mode,
		CompanyId:      companyId,
		ZeroPolicy:     string(plan.ZeroPolicy),
		RecordsScanned: plan.RecordsScanned,
		GroupsFound:    plan.GroupsFound,
		PlannedDeletes: len(plan.ToDelete),
		CorrelationId:  correlationId,
	}
	if result != nil {
		run.Executed = true
		run.DeletedCount = result.DeletedCount
		run.MissingCount = len(result.MissingIDs)
		run.FailedCount = len(result.FailedIDs)
		details.FailedIDs = result.FailedIDs
	}
	raw, err := utils.MarshalToJSON(details)
	if err != nil {
		return nil, err
	}
	run.Details = raw
	return run, nil
}

// Failures decodes the per-id delete failures stored in Details.
func (r DedupRun) Failures() ([]dedup.DeleteFailure, error) {
	if r.Details == "" {
		return nil, nil
	}
	var details dedupRunDetails
	if err := utils.UnmarshalFromJSON([]byte(r.Details), &details); err != nil {
		return nil, err
	}
	return details.FailedIDs, nil
}

func SaveDedupRun(ctx context.Context, db *gorm.DB, run *DedupRun) error {
	if db == nil {
		return errors.New("database not initialized")
	}
	if run == nil || run.RunId == "" {
		return errors.New("run id is required")
	}
	return db.WithContext(ctx).Create(run).Error
}

func GetDedupRun(ctx context.Context, db *gorm.DB, runId string) (*DedupRun, error) {
	var run DedupRun
	err := db.WithContext(ctx).Where("run_id = ?", runId).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
