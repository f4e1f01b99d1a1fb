package config

import (
	"context"

	"github.com/mmdatafocus/estate_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const companyColumn = "company_id"

// CompanyScopePlugin limits a dedup run to one company: reads and deletes on tables with a
// company_id column get "company_id = ?" from the context. A row of another company is
// therefore invisible to ListAll and reported as missing by DeleteByIDs.
// Raw SQL and creates are not scoped.
type CompanyScopePlugin struct{}

func NewCompanyScopePlugin() *CompanyScopePlugin { return &CompanyScopePlugin{} }

func (p *CompanyScopePlugin) Name() string { return "company_scope" }

func (p *CompanyScopePlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("company_scope:query", scopeToCompany); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("company_scope:delete", scopeToCompany)
}

func scopeToCompany(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Schema == nil {
		return
	}
	companyId, ok := scopedCompanyId(db.Statement.Context)
	if !ok {
		return
	}
	if db.Statement.Schema.LookUpField(companyColumn) == nil {
		return
	}
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: companyColumn}, Value: companyId},
	}})
}

// scopedCompanyId returns the company a statement is limited to, if any.
func scopedCompanyId(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	if skip, _ := appctx.GetBool(ctx, appctx.ContextKeySkipCompanyScope); skip {
		return 0, false
	}
	companyId, ok := appctx.GetInt(ctx, appctx.ContextKeyCompanyId)
	if !ok || companyId <= 0 {
		return 0, false
	}
	return companyId, true
}
