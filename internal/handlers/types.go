package handlers

// ListResponse is the common envelope for paginated admin API responses.
type ListResponse struct {
	Items      interface{} `json:"items"`
	TotalCount int64       `json:"total_count"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}
