package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// PaginationParams holds parsed limit/offset values from query params.
type PaginationParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ParsePagination reads limit and offset. Missing values take defaults,
// limit is capped at maxLimit, and malformed or negative values are errors.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) (PaginationParams, error) {
	p := PaginationParams{Limit: defaultLimit}
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("limit must be a positive integer")
		}
		p.Limit = n
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}
