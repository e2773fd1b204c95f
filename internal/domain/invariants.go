package domain

import "fmt"

// CheckInvariants reports violations of the structural rules the editor
// enforces on every reachable page: at least one Row, at least one Column
// per Row, and unique IDs. Span totals are not checked here; they are a
// validation concern.
func CheckInvariants(p Page) []error {
	var errs []error
	if len(p.Rows) == 0 {
		errs = append(errs, fmt.Errorf("page has no rows"))
	}

	rowIDs := make(map[string]bool, len(p.Rows))
	blockIDs := make(map[string]bool)
	for _, r := range p.Rows {
		if rowIDs[r.ID] {
			errs = append(errs, fmt.Errorf("duplicate row id %q", r.ID))
		}
		rowIDs[r.ID] = true

		if len(r.Columns) == 0 {
			errs = append(errs, fmt.Errorf("row %q has no columns", r.ID))
		}
		colIDs := make(map[string]bool, len(r.Columns))
		for _, c := range r.Columns {
			if colIDs[c.ID] {
				errs = append(errs, fmt.Errorf("duplicate column id %q in row %q", c.ID, r.ID))
			}
			colIDs[c.ID] = true

			for _, b := range c.Blocks {
				if blockIDs[b.ID] {
					errs = append(errs, fmt.Errorf("duplicate block id %q", b.ID))
				}
				blockIDs[b.ID] = true
			}
		}
	}
	return errs
}
