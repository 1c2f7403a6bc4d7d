package syncpump

import "context"

// Page describes one candidate selection request.
type Page struct {
	// Cursor is the exclusive lower bound; returned ids are strictly greater.
	Cursor int64
	// Limit caps the number of ids returned.
	Limit int
}

// Selector paginates the authoritative source dataset into an ordered id
// stream. Implementations are read-only: they must never return an id
// present in the exclusion set and must tolerate an empty result at the
// end of the data.
type Selector interface {
	// SelectIDs returns up to page.Limit foreign ids greater than
	// page.Cursor in creation order, skipping ids present in exclude.
	SelectIDs(ctx context.Context, page Page, exclude map[int64]struct{}) ([]int64, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, page Page, exclude map[int64]struct{}) ([]int64, error)

// SelectIDs implements Selector.
func (fn SelectorFunc) SelectIDs(ctx context.Context, page Page, exclude map[int64]struct{}) ([]int64, error) {
	return fn(ctx, page, exclude)
}
