package utils

// Paginate returns the window of items starting at row offset and holding at most limit items.
// Out of range input yields an empty slice rather than an error.
func Paginate[T any](items []T, limit, offset int) []T {
	total := len(items)
	if limit <= 0 || offset < 0 || offset >= total {
		return []T{}
	}

	end := offset + limit
	if end > total || end < offset {
		end = total
	}

	return items[offset:end]
}
