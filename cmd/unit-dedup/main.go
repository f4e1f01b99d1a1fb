package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/models"
	"github.com/mmdatafocus/estate_backend/utils"
	"github.com/mmdatafocus/estate_backend/workflow"
)

// unit-dedup removes duplicate units (same unit_code), keeping the most complete row of each group.
//
// Dry-run: print the plan only
//	go run ./cmd/unit-dedup -dry-run
//
// Interactive (default): print the plan, then ask for DELETE on stdin
//	go run ./cmd/unit-dedup
//
// Non-interactive:
//	go run ./cmd/unit-dedup -confirm=DELETE
//	go run ./cmd/unit-dedup -force
//
// Reports:
//	go run ./cmd/unit-dedup -dry-run -json=plan.json -xlsx=plan.xlsx -upload-gcs
func main() {
	dryRun := flag.Bool("dry-run", false, "Print the plan only (no deletes)")
	force := flag.Bool("force", false, "Delete without asking")
	confirm := flag.String("confirm", "", "Type DELETE to delete without the interactive prompt")
	companyID := flag.Int("company-id", 0, "Optional: only deduplicate units of this company")
	numericZero := flag.Bool("numeric-zero", config.DedupNumericZeroAsEmpty(), "Treat any numeric zero as an empty field when scoring")
	jsonPath := flag.String("json", "", "Optional: write the plan as JSON to this path")
	xlsxPath := flag.String("xlsx", "", "Optional: write the plan as an Excel workbook to this path")
	uploadGCS := flag.Bool("upload-gcs", false, "Upload the plan workbook to GCS_BUCKET under dedup-reports/<run_id>.xlsx")
	notify := flag.Bool("notify", false, "Send a push notification to admins when units were deleted")
	notifyTarget := flag.String("notify-target", workflow.DefaultNotifyTarget, "Notification target selector")
	chunkSize := flag.Int("chunk-size", config.DedupDeleteChunkSize(), "Ids deleted per transaction")
	lockTTL := flag.Duration("lock-ttl", workflow.DefaultDedupLockTTL, "Run lock TTL (refreshed while running)")
	migrate := flag.Bool("migrate", false, "Create/upgrade the units and dedup_runs tables first")
	flag.Parse()

	mode, err := resolveMode(*dryRun, *force, *confirm)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = utils.SetCorrelationIdInContext(ctx, utils.CorrelationIdFromContextOrNew(ctx))

	if err := config.ConnectDatabaseWithRetry(); err != nil {
		fmt.Fprintf(os.Stderr, "database connect failed: %v\n", err)
		os.Exit(1)
	}
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
			os.Exit(1)
		}
	}
	logger := config.GetLogger()

	var locker workflow.Locker
	if config.RedisConfigured() {
		if err := config.ConnectRedisWithRetry(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis connect failed: %v\n", err)
			os.Exit(1)
		}
		defer config.CloseRedis()
		locker = workflow.NewRedisLocker(config.GetRedisLock())
	} else {
		locker = workflow.NewMySQLLocker(db)
	}

	scorer := dedup.DefaultScorer
	if *numericZero {
		scorer = dedup.Scorer{ZeroPolicy: dedup.ZeroPolicyNumeric}
	}

	sinks := []workflow.PlanSink{workflow.TextPlanSink{W: os.Stdout}}
	if *jsonPath != "" {
		sinks = append(sinks, workflow.JSONFilePlanSink{Path: *jsonPath})
	}
	if *xlsxPath != "" {
		sinks = append(sinks, workflow.ExcelFilePlanSink{Path: *xlsxPath})
	}
	if *uploadGCS {
		sinks = append(sinks, workflow.NewGCSPlanSink("dedup-reports"))
	}

	job := workflow.DedupJob{
		Store:    models.NewUnitStore(db),
		Scorer:   scorer,
		Locker:   locker,
		Sinks:    sinks,
		Recorder: workflow.GormRunRecorder{DB: db, CompanyId: *companyID},
		Logger:   logger,
	}
	if mode == workflow.DedupModeConfirm {
		if strings.TrimSpace(*confirm) == "DELETE" {
			job.Confirm = func(context.Context, dedup.Plan) (bool, error) { return true, nil }
		} else {
			job.Confirm = promptConfirm(os.Stdin, os.Stdout)
		}
	}
	if *notify {
		job.Notifier = workflow.NewPubSubNotifier(config.NotificationTopic())
		defer config.ClosePubSub()
	}

	outcome, err := workflow.RunUnitDeduplication(ctx, job, workflow.DedupOptions{
		Mode:         mode,
		EntityType:   models.EntityTypeUnit,
		CompanyId:    *companyID,
		ChunkSize:    *chunkSize,
		LockTTL:      *lockTTL,
		Notify:       *notify,
		NotifyTarget: *notifyTarget,
	})
	if err != nil {
		if errors.Is(err, workflow.ErrRunInProgress) {
			fmt.Fprintln(os.Stderr, "another unit-dedup run is in progress; try again later")
		} else {
			fmt.Fprintf(os.Stderr, "unit-dedup failed: %v\n", err)
		}
		os.Exit(1)
	}

	printOutcome(os.Stdout, outcome)
}

// resolveMode maps the flags to a run mode. Without flags the run asks for confirmation.
func resolveMode(dryRun, force bool, confirm string) (workflow.DedupMode, error) {
	confirm = strings.TrimSpace(confirm)
	if confirm != "" && confirm != "DELETE" {
		return "", errors.New("--confirm only accepts DELETE")
	}
	switch {
	case dryRun && (force || confirm != ""):
		return "", errors.New("--dry-run cannot be combined with --force or --confirm")
	case dryRun:
		return workflow.DedupModeDryRun, nil
	case force:
		return workflow.DedupModeForce, nil
	default:
		return workflow.DedupModeConfirm, nil
	}
}

func promptConfirm(in io.Reader, out io.Writer) workflow.ConfirmFunc {
	return func(_ context.Context, plan dedup.Plan) (bool, error) {
		fmt.Fprintf(out, "about to delete %d units; type DELETE to continue: ", len(plan.ToDelete))
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		return strings.TrimSpace(line) == "DELETE", nil
	}
}

func printOutcome(w io.Writer, outcome workflow.DedupOutcome) {
	fmt.Fprintf(w, "run_id=%s\n", outcome.Plan.RunID)
	for sink, location := range outcome.ReportURIs {
		fmt.Fprintf(w, "report_%s=%s\n", sink, location)
	}
	for sink, reason := range outcome.SinkFailures {
		fmt.Fprintf(w, "report_%s_failed=%q\n", sink, reason)
	}
	switch {
	case outcome.Declined:
		fmt.Fprintln(w, "aborted: nothing deleted")
	case outcome.Result != nil:
		_ = dedup.WriteExecuteText(w, *outcome.Result)
	case outcome.Plan.IsEmpty():
		fmt.Fprintln(w, "nothing to delete")
	default:
		fmt.Fprintf(w, "dry-run: would delete %d units\n", len(outcome.Plan.ToDelete))
	}
}
