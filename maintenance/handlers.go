package maintenance

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/mmdatafocus/estate_backend/models"
	"github.com/mmdatafocus/estate_backend/models/reports"
	"github.com/mmdatafocus/estate_backend/utils"
	"github.com/sirupsen/logrus"
)

// StoreFactory returns the store a request reads units from.
type StoreFactory func() dedup.RecordStore

// UnitStoreFactory reads from the shared database handle.
func UnitStoreFactory() StoreFactory {
	return func() dedup.RecordStore {
		return models.NewUnitStore(config.GetDB())
	}
}

type duplicatesQuery struct {
	CompanyId   int  `form:"company_id" binding:"omitempty,gte=0"`
	NumericZero bool `form:"numeric_zero"`
}

// DuplicateUnitsHandler returns the deletion plan for duplicate units. Nothing is deleted.
func DuplicateUnitsHandler(stores StoreFactory, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, ok := buildPlan(c, stores, logger)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, plan)
	}
}

// DuplicateUnitsExportHandler returns the same plan as an xlsx download.
func DuplicateUnitsExportHandler(stores StoreFactory, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, ok := buildPlan(c, stores, logger)
		if !ok {
			return
		}
		filename := fmt.Sprintf("duplicate-units-%s.xlsx", plan.GeneratedAt.Format("20060102-150405"))
		c.Header("Content-Type", utils.ContentTypeXLSX)
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := reports.WritePlanExcel(c.Writer, plan); err != nil {
			config.LogError(logger, "handlers.go", "DuplicateUnitsExportHandler", "Writing workbook", nil, err)
			_ = c.Error(err)
		}
	}
}

func buildPlan(c *gin.Context, stores StoreFactory, logger *logrus.Logger) (dedup.Plan, bool) {
	var q duplicatesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dedup.Plan{}, false
	}

	ctx := c.Request.Context()
	if q.CompanyId > 0 {
		ctx = utils.SetCompanyIdInContext(ctx, q.CompanyId)
	}
	scorer := dedup.DefaultScorer
	if q.NumericZero || config.DedupNumericZeroAsEmpty() {
		scorer = dedup.Scorer{ZeroPolicy: dedup.ZeroPolicyNumeric}
	}

	plan, err := dedup.NewResolver(stores(), scorer, models.EntityTypeUnit, logger).Plan(ctx)
	if err != nil {
		config.LogError(logger, "handlers.go", "buildPlan", "Planning duplicate units", q, err)
		status := http.StatusInternalServerError
		if errors.Is(err, dedup.ErrReadFailure) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "could not read units"})
		return dedup.Plan{}, false
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now().UTC()
	}
	return plan, true
}

// RegisterRoutes mounts the read-only maintenance endpoints on r.
func RegisterRoutes(r gin.IRouter, stores StoreFactory, logger *logrus.Logger) {
	g := r.Group("/api/maintenance")
	g.GET("/duplicates/units", DuplicateUnitsHandler(stores, logger))
	g.GET("/duplicates/units/export", DuplicateUnitsExportHandler(stores, logger))
}
