package reports

import (
	"io"
	"time"

	"github.com/mmdatafocus/estate_backend/dedup"
	"github.com/xuri/excelize/v2"
)

const (
	sheetDedupSummary    = "Summary"
	sheetDedupDuplicates = "Duplicates"
)

var duplicateRowHeadings = []string{"Business Key", "ID", "Action", "Score", "Created At"}

// DuplicateRow is one candidate of a duplicate group in the export.
type DuplicateRow struct {
	BusinessKey string
	ID          int
	Action      string
	Score       int
	CreatedAt   time.Time
}

func (r DuplicateRow) GetCellValues() []interface{} {
	createdAt := ""
	if !r.CreatedAt.IsZero() {
		createdAt = r.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []interface{}{r.BusinessKey, r.ID, r.Action, r.Score, createdAt}
}

type summaryRow struct {
	Name  string
	Value interface{}
}

func (r summaryRow) GetCellValues() []interface{} {
	return []interface{}{r.Name, r.Value}
}

// DuplicateRows flattens a plan into rows: the kept candidate first, then the removed ones in rank order.
func DuplicateRows(plan dedup.Plan) []DuplicateRow {
	rows := make([]DuplicateRow, 0, len(plan.ToDelete)+len(plan.Groups))
	for _, g := range plan.Groups {
		rows = append(rows, DuplicateRow{BusinessKey: g.BusinessKey, ID: g.Kept.ID, Action: "keep", Score: g.Kept.Score, CreatedAt: g.Kept.CreatedAt})
		for _, c := range g.Removed {
			rows = append(rows, DuplicateRow{BusinessKey: g.BusinessKey, ID: c.ID, Action: "delete", Score: c.Score, CreatedAt: c.CreatedAt})
		}
	}
	return rows
}

func newPlanWorkbook(plan dedup.Plan) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetDedupSummary); err != nil {
		f.Close()
		return nil, err
	}

	generatedAt := ""
	if !plan.GeneratedAt.IsZero() {
		generatedAt = plan.GeneratedAt.UTC().Format(time.RFC3339)
	}
	summary := []ExcelExporter{
		summaryRow{"Run ID", plan.RunID},
		summaryRow{"Entity", plan.EntityType},
		summaryRow{"Generated At", generatedAt},
		summaryRow{"Zero Policy", string(plan.ZeroPolicy)},
		summaryRow{"Records Scanned", plan.RecordsScanned},
		summaryRow{"Groups Found", plan.GroupsFound},
		summaryRow{"Planned Deletes", len(plan.ToDelete)},
	}
	if err := writeSheet(f, sheetDedupSummary, []string{"Name", "Value"}, summary); err != nil {
		f.Close()
		return nil, err
	}

	rows := DuplicateRows(plan)
	data := make([]ExcelExporter, 0, len(rows))
	for _, r := range rows {
		data = append(data, r)
	}
	if err := writeSheet(f, sheetDedupDuplicates, duplicateRowHeadings, data); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WritePlanExcel writes the plan as an xlsx workbook with a Summary and a Duplicates sheet.
func WritePlanExcel(w io.Writer, plan dedup.Plan) error {
	f, err := newPlanWorkbook(plan)
	if err != nil {
		return err
	}
	return writeWorkbook(f, w)
}

func PlanExcelBytes(plan dedup.Plan) ([]byte, error) {
	f, err := newPlanWorkbook(plan)
	if err != nil {
		return nil, err
	}
	return workbookBytes(f)
}
