package usecase

import "fmt"

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func newPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// 0は未指定としてデフォルトにする
func normalizePaging(page, limit, defaultLimit, maxLimit int) (int, int, []FieldError) {
	var fields []FieldError
	if page == 0 {
		page = 1
	}
	if page < 1 {
		fields = append(fields, FieldError{Field: "page", Message: "Page must be a positive integer"})
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > maxLimit {
		fields = append(fields, FieldError{Field: "limit", Message: fmt.Sprintf("Limit must be between 1 and %d", maxLimit)})
	}
	return page, limit, fields
}
