package domain

// Pagination carries list pagination hints supplied by the caller.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results with an optional continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
