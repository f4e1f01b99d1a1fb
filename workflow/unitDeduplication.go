package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DedupMode string

const (
	DedupModeDryRun  DedupMode = "dry-run"
	DedupModeForce   DedupMode = "force"
	DedupModeConfirm DedupMode = "confirm"
)

const DefaultDedupLockTTL = 10 * time.Minute

type DedupOptions struct {
	Mode         DedupMode     `validate:"required,oneof=dry-run force confirm"`
	EntityType   string        `validate:"required"`
	CompanyId    int           `validate:"gte=0"`
	ChunkSize    int           `validate:"gte=1,lte=5000"`
	LockTTL      time.Duration `validate:"gte=1s"`
	Notify       bool
	NotifyTarget string
}

// ConfirmFunc asks the operator to approve a plan. Only called in confirm mode with a non-empty plan.
type ConfirmFunc func(ctx context.Context, plan dedup.Plan) (bool, error)

// DedupJob holds the collaborators of one run. Store is required; everything else is optional.
type DedupJob struct {
	Store    dedup.RecordStore
	Scorer   dedup.Scorer
	Locker   Locker
	Sinks    []PlanSink
	Confirm  ConfirmFunc
	Recorder RunRecorder
	Notifier Notifier
	Logger   *logrus.Logger
	Tracer   trace.Tracer
}

// DedupOutcome is what a run did. Result is nil unless deletes were attempted.
type DedupOutcome struct {
	Plan         dedup.Plan           `json:"plan"`
	Result       *dedup.ExecuteResult `json:"result,omitempty"`
	Executed     bool                 `json:"executed"`
	Declined     bool                 `json:"declined"`
	ReportURIs   map[string]string    `json:"report_uris,omitempty"`
	SinkFailures map[string]string    `json:"sink_failures,omitempty"`
}

// RunUnitDeduplication plans duplicate removal for opts.EntityType and, depending on the mode, executes it.
// Read failures, a held lock and invalid options are returned as errors; per-record delete failures are in the outcome.
func RunUnitDeduplication(ctx context.Context, job DedupJob, opts DedupOptions) (DedupOutcome, error) {
	var outcome DedupOutcome

	if err := utils.ValidateStruct(opts); err != nil {
		return outcome, err
	}
	if job.Store == nil {
		return outcome, errors.New("record store is required")
	}
	if opts.Mode == DedupModeConfirm && job.Confirm == nil {
		return outcome, errors.New("confirm mode requires a confirmation prompt")
	}

	logger := job.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	tracer := job.Tracer
	if tracer == nil {
		tracer = otel.Tracer("estate-backend/dedup")
	}

	runId := uuid.NewString()
	ctx = utils.SetRunIdInContext(ctx, runId)
	correlationId := utils.CorrelationIdFromContextOrNew(ctx)
	ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	if opts.CompanyId > 0 {
		ctx = utils.SetCompanyIdInContext(ctx, opts.CompanyId)
	}
	fields := logrus.Fields{
		"run_id":         runId,
		"correlation_id": correlationId,
		"entity_type":    opts.EntityType,
		"mode":           string(opts.Mode),
		"company_id":     opts.CompanyId,
	}

	if job.Locker != nil {
		lock, err := job.Locker.Obtain(ctx, dedupLockKey(opts.EntityType), opts.LockTTL)
		if err != nil {
			config.LogError(logger, "unitDeduplication.go", "RunUnitDeduplication", "Obtaining run lock", fields, err)
			return outcome, err
		}
		stop := make(chan struct{})
		done := keepLockAlive(ctx, lock, opts.LockTTL, stop, func(err error) {
			logger.WithFields(fields).Warn(fmt.Sprintf("dedup.lock.refresh_failed: %v", err))
		})
		defer func() {
			close(stop)
			<-done
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.WithFields(fields).Warn(fmt.Sprintf("dedup.lock.release_failed: %v", err))
			}
		}()
	} else {
		logger.WithFields(fields).Warn("dedup.lock.disabled")
	}

	resolver := dedup.NewResolver(job.Store, job.Scorer, opts.EntityType, logger)
	resolver.ChunkSize = opts.ChunkSize

	planCtx, planSpan := tracer.Start(ctx, "dedup.plan", trace.WithAttributes(
		attribute.String("dedup.entity_type", opts.EntityType),
		attribute.String("dedup.run_id", runId),
	))
	plan, err := resolver.Plan(planCtx)
	if err != nil {
		planSpan.RecordError(err)
		planSpan.SetStatus(codes.Error, err.Error())
		planSpan.End()
		config.LogError(logger, "unitDeduplication.go", "RunUnitDeduplication", "Planning", fields, err)
		return outcome, err
	}
	plan.RunID = runId
	planSpan.SetAttributes(
		attribute.Int("dedup.records_scanned", plan.RecordsScanned),
		attribute.Int("dedup.groups_found", plan.GroupsFound),
		attribute.Int("dedup.to_delete", len(plan.ToDelete)),
	)
	planSpan.End()
	outcome.Plan = plan

	logger.WithFields(fields).WithFields(logrus.Fields{
		"records_scanned": plan.RecordsScanned,
		"groups_found":    plan.GroupsFound,
		"to_delete":       len(plan.ToDelete),
		"zero_policy":     string(plan.ZeroPolicy),
	}).Info("dedup.plan.ready")

	emitPlan(ctx, job.Sinks, plan, &outcome, logger, fields)

	switch {
	case opts.Mode == DedupModeDryRun:
		recordRun(ctx, job.Recorder, plan, opts.Mode, nil, logger, fields)
		return outcome, nil
	case plan.IsEmpty():
		logger.WithFields(fields).Info("dedup.plan.empty")
		recordRun(ctx, job.Recorder, plan, opts.Mode, nil, logger, fields)
		return outcome, nil
	case opts.Mode == DedupModeConfirm:
		ok, err := job.Confirm(ctx, plan)
		if err != nil {
			return outcome, fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			outcome.Declined = true
			logger.WithFields(fields).Info("dedup.execute.declined")
			recordRun(ctx, job.Recorder, plan, opts.Mode, nil, logger, fields)
			return outcome, nil
		}
	}

	execCtx, execSpan := tracer.Start(ctx, "dedup.execute", trace.WithAttributes(
		attribute.String("dedup.entity_type", opts.EntityType),
		attribute.String("dedup.run_id", runId),
		attribute.Int("dedup.to_delete", len(plan.ToDelete)),
	))
	result := resolver.Execute(execCtx, plan)
	execSpan.SetAttributes(
		attribute.Int("dedup.deleted", result.DeletedCount),
		attribute.Int("dedup.missing", len(result.MissingIDs)),
		attribute.Int("dedup.failed", len(result.FailedIDs)),
	)
	if len(result.FailedIDs) > 0 {
		execSpan.SetStatus(codes.Error, fmt.Sprintf("%d deletes failed", len(result.FailedIDs)))
	}
	execSpan.End()

	outcome.Result = &result
	outcome.Executed = true
	logger.WithFields(fields).WithFields(logrus.Fields{
		"deleted": result.DeletedCount,
		"missing": len(result.MissingIDs),
		"failed":  len(result.FailedIDs),
	}).Info("dedup.execute.done")

	recordRun(ctx, job.Recorder, plan, opts.Mode, &result, logger, fields)

	if opts.Notify && job.Notifier != nil && result.DeletedCount > 0 {
		title := "Duplicate records removed"
		body := fmt.Sprintf("%d duplicate %s removed (%d failed)", result.DeletedCount, opts.EntityType, len(result.FailedIDs))
		payload := map[string]any{
			"run_id":        runId,
			"entity_type":   opts.EntityType,
			"deleted_count": result.DeletedCount,
			"failed_count":  len(result.FailedIDs),
		}
		if err := job.Notifier.Send(ctx, opts.NotifyTarget, title, body, payload); err != nil {
			logger.WithFields(fields).Warn(fmt.Sprintf("dedup.notify.failed: %v", err))
		}
	}
	return outcome, nil
}

func emitPlan(ctx context.Context, sinks []PlanSink, plan dedup.Plan, outcome *DedupOutcome, logger *logrus.Logger, fields logrus.Fields) {
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		location, err := sink.EmitPlan(ctx, plan)
		if err != nil {
			if outcome.SinkFailures == nil {
				outcome.SinkFailures = map[string]string{}
			}
			outcome.SinkFailures[sink.Name()] = err.Error()
			logger.WithFields(fields).WithField("sink", sink.Name()).Warn(fmt.Sprintf("dedup.plan.sink_failed: %v", err))
			continue
		}
		if location != "" {
			if outcome.ReportURIs == nil {
				outcome.ReportURIs = map[string]string{}
			}
			outcome.ReportURIs[sink.Name()] = location
			logger.WithFields(fields).WithFields(logrus.Fields{"sink": sink.Name(), "location": location}).Info("dedup.plan.written")
		}
	}
}

func recordRun(ctx context.Context, recorder RunRecorder, plan dedup.Plan, mode DedupMode, result *dedup.ExecuteResult, logger *logrus.Logger, fields logrus.Fields) {
	if recorder == nil {
		return
	}
	if err := recorder.RecordRun(ctx, plan, mode, result); err != nil {
		config.LogError(logger, "unitDeduplication.go", "recordRun", "Saving dedup run", fields, err)
	}
}
