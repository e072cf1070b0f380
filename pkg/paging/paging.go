// Package paging computes page ranges for the photo service's fixed page size.
package paging

// DefaultPageSize is the largest page the photo service returns
const DefaultPageSize = 500

// PageCount returns ceil(itemCount/pageSize). A non-positive pageSize
// falls back to DefaultPageSize.
func PageCount(itemCount, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if itemCount <= 0 {
		return 0
	}
	return (itemCount + pageSize - 1) / pageSize
}

// Pages lists the 1-based page numbers covering itemCount items
func Pages(itemCount, pageSize int) []int {
	n := PageCount(itemCount, pageSize)
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Cursor tracks a position within a paged listing
type Cursor struct {
	PageSize    int
	PageCount   int
	CurrentPage int
}

// NewCursor positions a cursor on the first page of itemCount items
func NewCursor(itemCount, pageSize int) Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Cursor{
		PageSize:    pageSize,
		PageCount:   PageCount(itemCount, pageSize),
		CurrentPage: 1,
	}
}

// Valid reports whether the cursor points at an existing page
func (c Cursor) Valid() bool {
	return c.CurrentPage >= 1 && c.CurrentPage <= c.PageCount
}

// Next returns the cursor advanced by one page
func (c Cursor) Next() Cursor {
	c.CurrentPage++
	return c
}

// Walk fetches page 1, 2, ... and stops once the page number passes the
// page count reported by the most recent fetch. The first page is always
// fetched, so an empty listing costs exactly one call.
func Walk(fetch func(page int) (pageCount int, err error)) error {
	page := 1
	for {
		pageCount, err := fetch(page)
		if err != nil {
			return err
		}
		page++
		if page > pageCount {
			return nil
		}
	}
}
