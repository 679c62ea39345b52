package pagination

// Page describes one page of a descending-by-creation-time listing.
type Page struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// Clamp normalizes raw query values: page starts at 1, limit falls back to
// the default and is capped to keep worst-case payloads bounded.
func Clamp(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func New(page, limit int, total int64) Page {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1 && total > 0,
	}
}
