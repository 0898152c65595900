package models

// Pagination describes the page window of a list response.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, pageSize, total int) *Pagination {
	pages := 0
	if total > 0 && pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: total, Pages: pages}
}
