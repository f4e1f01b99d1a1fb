package models_test

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/models"
	"github.com/mmdatafocus/estate_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openUnitDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "units.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Use(config.NewCompanyScopePlugin()); err != nil {
		t.Fatalf("company scope plugin: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUnit(t *testing.T, db *gorm.DB, u models.Unit) models.Unit {
	t.Helper()
	if u.Status == "" {
		u.Status = models.UnitStatusAvailable
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed unit %d: %v", u.ID, err)
	}
	return u
}

func seedDuplicateUnits(t *testing.T, db *gorm.DB) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC) }
	a, b := "U-100", "U-200"
	seedUnit(t, db, models.Unit{ID: 5, CompanyId: 1, CompoundId: 1, UnitCode: &a, CreatedAt: day(1)})
	seedUnit(t, db, models.Unit{ID: 7, CompanyId: 1, CompoundId: 1, UnitCode: &a, UnitName: "A 101", UnitType: "apartment", Price: decimal.NewFromInt(900_000), CreatedAt: day(3)})
	seedUnit(t, db, models.Unit{ID: 9, CompanyId: 1, CompoundId: 1, UnitCode: &a, UnitName: "A 101", CreatedAt: day(2)})
	seedUnit(t, db, models.Unit{ID: 11, CompanyId: 1, CompoundId: 1, UnitCode: &b, CreatedAt: day(1)})
	seedUnit(t, db, models.Unit{ID: 12, CompanyId: 2, CompoundId: 4, UnitCode: &b, UnitName: "B 1", CreatedAt: day(1)})
	seedUnit(t, db, models.Unit{ID: 13, CompanyId: 1, CompoundId: 1, CreatedAt: day(1)})
}

func TestUnitStore_ListAll_OrderedByID(t *testing.T) {
	db := openUnitDB(t)
	seedDuplicateUnits(t, db)

	records, err := models.NewUnitStore(db).ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	var ids []int
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if want := []int{5, 7, 9, 11, 12, 13}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected ids %v, got %v", want, ids)
	}
	if got, _ := records[1].Value("price"); got != "900000.00" {
		t.Fatalf("expected price 900000.00, got %#v", got)
	}
}

func TestUnitStore_PlanAndExecute(t *testing.T) {
	db := openUnitDB(t)
	seedDuplicateUnits(t, db)
	ctx := context.Background()

	resolver := dedup.NewResolver(models.NewUnitStore(db), dedup.DefaultScorer, models.EntityTypeUnit, nil)
	plan, err := resolver.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.GroupsFound != 2 {
		t.Fatalf("expected 2 groups, got %d", plan.GroupsFound)
	}
	// U-100 keeps 7 (highest score); U-200 keeps 12 (unit_name beats 11).
	if want := []int{5, 9, 11}; !reflect.DeepEqual(plan.ToDelete, want) {
		t.Fatalf("expected to_delete %v, got %v", want, plan.ToDelete)
	}

	res := resolver.Execute(ctx, plan)
	if res.DeletedCount != 3 || len(res.FailedIDs) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	var remaining []int
	if err := db.Model(&models.Unit{}).Order("id").Pluck("id", &remaining).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if want := []int{7, 12, 13}; !reflect.DeepEqual(remaining, want) {
		t.Fatalf("expected remaining %v, got %v", want, remaining)
	}

	// A second execution of the same plan reports the ids as already gone.
	again := resolver.Execute(ctx, plan)
	if again.DeletedCount != 0 || !reflect.DeepEqual(again.MissingIDs, plan.ToDelete) {
		t.Fatalf("expected idempotent re-run, got %+v", again)
	}
}

func TestUnitStore_DeleteByIDs_ReferencedRowFailsAlone(t *testing.T) {
	db := openUnitDB(t)
	seedDuplicateUnits(t, db)
	ctx := context.Background()

	if err := db.Exec(`CREATE TABLE unit_sales (
		id INTEGER PRIMARY KEY,
		unit_id INTEGER NOT NULL REFERENCES units(id) ON DELETE RESTRICT
	)`).Error; err != nil {
		t.Fatalf("create unit_sales: %v", err)
	}
	if err := db.Exec(`INSERT INTO unit_sales (id, unit_id) VALUES (1, 9)`).Error; err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	res, err := models.NewUnitStore(db).DeleteByIDs(ctx, []int{5, 9, 11, 404})
	if err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if want := []int{5, 11}; !reflect.DeepEqual(res.Deleted, want) {
		t.Fatalf("expected deleted %v, got %v", want, res.Deleted)
	}
	if want := []int{404}; !reflect.DeepEqual(res.Missing, want) {
		t.Fatalf("expected missing %v, got %v", want, res.Missing)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != 9 {
		t.Fatalf("expected id 9 to fail, got %+v", res.Failed)
	}
	if !strings.Contains(strings.ToUpper(res.Failed[0].Reason), "FOREIGN KEY") {
		t.Fatalf("expected foreign key reason, got %q", res.Failed[0].Reason)
	}

	var count int64
	db.Model(&models.Unit{}).Where("id IN ?", []int{5, 9, 11}).Count(&count)
	if count != 1 {
		t.Fatalf("expected only the referenced unit to survive, got %d rows", count)
	}
}

func TestUnitStore_CompanyScope(t *testing.T) {
	db := openUnitDB(t)
	seedDuplicateUnits(t, db)
	ctx := utils.SetCompanyIdInContext(context.Background(), 2)
	store := models.NewUnitStore(db)

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 1 || records[0].ID != 12 {
		t.Fatalf("expected only company 2 unit, got %+v", records)
	}

	// Rows of another company are invisible, so they come back as missing.
	res, err := store.DeleteByIDs(ctx, []int{11, 12})
	if err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if !reflect.DeepEqual(res.Missing, []int{11}) || !reflect.DeepEqual(res.Deleted, []int{12}) {
		t.Fatalf("unexpected scoped delete result: %+v", res)
	}

	skip := utils.SetSkipCompanyScopeInContext(ctx, true)
	all, err := store.ListAll(skip)
	if err != nil {
		t.Fatalf("ListAll unscoped: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 units without scope, got %d", len(all))
	}
}

func TestSaveDedupRun(t *testing.T) {
	db := openUnitDB(t)
	ctx := context.Background()
	plan := dedup.Plan{
		RunID:          "run-1",
		EntityType:     models.EntityTypeUnit,
		ZeroPolicy:     dedup.ZeroPolicyLiteral,
		RecordsScanned: 3,
		GroupsFound:    1,
		ToDelete:       []int{5, 9},
	}
	result := &dedup.ExecuteResult{
		DeletedCount: 1,
		DeletedIDs:   []int{5},
		FailedIDs:    []dedup.DeleteFailure{{ID: 9, Reason: "referenced by other records: unit_sales"}},
	}
	run, err := models.NewDedupRun(plan, "force", 0, result, "corr-1")
	if err != nil {
		t.Fatalf("NewDedupRun: %v", err)
	}
	if err := models.SaveDedupRun(ctx, db, run); err != nil {
		t.Fatalf("SaveDedupRun: %v", err)
	}

	got, err := models.GetDedupRun(ctx, db, "run-1")
	if err != nil {
		t.Fatalf("GetDedupRun: %v", err)
	}
	if !got.Executed || got.PlannedDeletes != 2 || got.DeletedCount != 1 || got.FailedCount != 1 {
		t.Fatalf("unexpected run row: %+v", got)
	}
	failures, err := got.Failures()
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 1 || failures[0].ID != 9 || !strings.Contains(failures[0].Reason, "unit_sales") {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	if _, err := models.GetDedupRun(ctx, db, "nope"); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}
