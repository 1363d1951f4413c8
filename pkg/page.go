package pkg

// Paginate returns the zero based page of items. Out of range or
// non-positive arguments yield an empty page.
func Paginate[T any](items []T, page int, pageSize int) []T {
	if page < 0 || pageSize <= 0 {
		return []T{}
	}
	// compare against the page count before multiplying so a huge page
	// cannot overflow
	pages := len(items) / pageSize
	if len(items)%pageSize != 0 {
		pages++
	}
	if page >= pages {
		return []T{}
	}
	start := page * pageSize
	end := start + pageSize

	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
