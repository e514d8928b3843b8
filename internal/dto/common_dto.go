package dto

// PaginatedResponse is a page of items.
type PaginatedResponse struct {
	Items   interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

// PageQuery is the common page/per_page query.
type PageQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults and returns offset and limit.
func (q *PageQuery) Normalize() (offset, limit int) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 20
	}
	return (q.Page - 1) * q.PerPage, q.PerPage
}
