// Package page describes paginated list requests shared by catalog, order,
// payment, library and admin listings.
package page

const (
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit = 50
	// MaxLimit caps the number of rows returned by a single request.
	MaxLimit = 100
)

// Request selects a window of a sorted listing. SortBy is a logical column
// name; storage maps it to a whitelisted column and falls back to its default
// for unknown names.
type Request struct {
	Limit  int
	Offset int
	SortBy string
	Desc   bool
}

// Normalize clamps Limit and Offset into their valid ranges.
func (r Request) Normalize() Request {
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	return r
}
