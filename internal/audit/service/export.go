package service

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"arbiter/internal/audit"
	dErrors "arbiter/pkg/domain-errors"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Export returns every entry matching the filters, newest first, for the
// given format. JSON exports carry the full entries including metadata; CSV
// flattens to the scalar columns only.
func (s *Service) Export(ctx context.Context, filters audit.Filters, format string) ([]audit.Entry, error) {
	if format != FormatJSON && format != FormatCSV {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unsupported export format %q", format)
	}
	return s.filtered(ctx, filters)
}

// WriteCSV renders entries as CSV. Metadata is omitted: nested snapshots do
// not flatten usefully into spreadsheet cells, and the JSON export exists for
// full-fidelity consumers.
func WriteCSV(w io.Writer, entries []audit.Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"audit_id", "decision_id", "action_type", "actor", "reason", "timestamp"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.DecisionID,
			string(e.ActionType),
			string(e.Actor),
			e.Reason,
			e.Timestamp.Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
