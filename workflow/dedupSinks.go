package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/models"
	"github.com/mmdatafocus/estate_backend/models/reports"
	"github.com/mmdatafocus/estate_backend/utils"
	"gorm.io/gorm"
)

// PlanSink receives the plan before anything is deleted. It returns where the plan was written, if anywhere.
type PlanSink interface {
	Name() string
	EmitPlan(ctx context.Context, plan dedup.Plan) (string, error)
}

// TextPlanSink prints the human-readable plan.
type TextPlanSink struct {
	W io.Writer
}

func (s TextPlanSink) Name() string { return "text" }

func (s TextPlanSink) EmitPlan(_ context.Context, plan dedup.Plan) (string, error) {
	if s.W == nil {
		return "", errors.New("no writer")
	}
	return "", dedup.WritePlanText(s.W, plan)
}

// JSONFilePlanSink writes the plan as JSON to Path.
type JSONFilePlanSink struct {
	Path string
}

func (s JSONFilePlanSink) Name() string { return "json" }

func (s JSONFilePlanSink) EmitPlan(_ context.Context, plan dedup.Plan) (string, error) {
	if err := utils.WriteJSONFile(s.Path, plan); err != nil {
		return "", err
	}
	return s.Path, nil
}

// ExcelFilePlanSink writes the plan workbook to Path.
type ExcelFilePlanSink struct {
	Path string
}

func (s ExcelFilePlanSink) Name() string { return "xlsx" }

func (s ExcelFilePlanSink) EmitPlan(_ context.Context, plan dedup.Plan) (string, error) {
	data, err := reports.PlanExcelBytes(plan)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return "", err
	}
	return s.Path, nil
}

// GCSPlanSink uploads the plan workbook to GCS_BUCKET under Prefix/<run_id>.xlsx.
type GCSPlanSink struct {
	Prefix string
	upload func(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

func NewGCSPlanSink(prefix string) *GCSPlanSink {
	if prefix == "" {
		prefix = "dedup-reports"
	}
	return &GCSPlanSink{Prefix: prefix, upload: utils.UploadBytesToGCS}
}

func (s *GCSPlanSink) Name() string { return "gcs" }

func (s *GCSPlanSink) EmitPlan(ctx context.Context, plan dedup.Plan) (string, error) {
	if plan.RunID == "" {
		return "", errors.New("plan has no run id")
	}
	data, err := reports.PlanExcelBytes(plan)
	if err != nil {
		return "", err
	}
	objectName := path.Join(s.Prefix, plan.RunID+".xlsx")
	uri, err := s.upload(ctx, objectName, data, utils.ContentTypeXLSX)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return uri, nil
}

// RunRecorder persists the audit row of a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, plan dedup.Plan, mode DedupMode, result *dedup.ExecuteResult) error
}

// GormRunRecorder writes dedup_runs rows.
type GormRunRecorder struct {
	DB        *gorm.DB
	CompanyId int
}

func (r GormRunRecorder) RecordRun(ctx context.Context, plan dedup.Plan, mode DedupMode, result *dedup.ExecuteResult) error {
	if plan.RunID == "" {
		plan.RunID, _ = utils.GetRunIdFromContext(ctx)
	}
	companyId := r.CompanyId
	if companyId == 0 {
		companyId, _ = utils.GetCompanyIdFromContext(ctx)
	}
	run, err := models.NewDedupRun(plan, string(mode), companyId, result, utils.CorrelationIdFromContextOrNew(ctx))
	if err != nil {
		return err
	}
	return models.SaveDedupRun(ctx, r.DB, run)
}
