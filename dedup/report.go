package dedup

import (
	"fmt"
	"io"
	"time"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// WritePlanText prints the plan the same way the maintenance tools print their findings:
// one summary line, then one line per candidate with the values that ranked it.
func WritePlanText(w io.Writer, plan Plan) error {
	if _, err := fmt.Fprintf(w, "entity=%s records_scanned=%d groups_found=%d to_delete=%d zero_policy=%s\n",
		orDash(plan.EntityType), plan.RecordsScanned, plan.GroupsFound, len(plan.ToDelete), plan.ZeroPolicy); err != nil {
		return err
	}
	if plan.GroupsFound == 0 {
		_, err := fmt.Fprintln(w, "no duplicate groups found")
		return err
	}
	for _, g := range plan.Groups {
		if _, err := fmt.Fprintf(w, "business_key=%q members=%d\n", g.BusinessKey, len(g.Removed)+1); err != nil {
			return err
		}
		if err := writeCandidate(w, "KEEP", g.Kept); err != nil {
			return err
		}
		for _, c := range g.Removed {
			if err := writeCandidate(w, "DELETE", c); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCandidate(w io.Writer, action string, c Candidate) error {
	_, err := fmt.Fprintf(w, "  %-6s id=%d score=%d created_at=%s\n", action, c.ID, c.Score, formatTime(c.CreatedAt))
	return err
}

// WriteExecuteText prints deletion counts and every failed id with its reason.
func WriteExecuteText(w io.Writer, result ExecuteResult) error {
	if _, err := fmt.Fprintf(w, "deleted=%d missing=%d failed=%d\n",
		result.DeletedCount, len(result.MissingIDs), len(result.FailedIDs)); err != nil {
		return err
	}
	for _, f := range result.FailedIDs {
		if _, err := fmt.Fprintf(w, "  failed id=%d reason=%q\n", f.ID, f.Reason); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(reportTimeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
