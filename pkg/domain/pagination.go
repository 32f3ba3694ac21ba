package domain

import "fmt"

// PaginationOptions defines limit/offset pagination parameters
type PaginationOptions struct {
	Limit    int `json:"limit,omitempty"`
	Offset   int `json:"offset,omitempty"`
	MaxLimit int `json:"max_limit,omitempty"` // Maximum allowed limit
}

// PaginationResult contains a page of documents and its metadata
type PaginationResult struct {
	Documents []Document `json:"documents"`
	HasNext   bool       `json:"has_next"`
	HasPrev   bool       `json:"has_prev"`
	Total     int64      `json:"total"`
}

// DefaultPaginationOptions returns default pagination settings
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		Limit:    50,
		MaxLimit: 1000,
	}
}

// Validate validates pagination options
func (po *PaginationOptions) Validate() error {
	if po.Limit < 0 {
		return Validation("limit cannot be negative")
	}
	if po.Offset < 0 {
		return Validation("offset cannot be negative")
	}
	if po.MaxLimit > 0 && po.Limit > po.MaxLimit {
		return Validation("limit %d exceeds maximum %d", po.Limit, po.MaxLimit)
	}
	return nil
}

// Paginate slices docs according to the options. docs must already be in
// their final order.
func Paginate(docs []Document, options *PaginationOptions) (*PaginationResult, error) {
	if options == nil {
		options = DefaultPaginationOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pagination options: %w", err)
	}

	result := &PaginationResult{
		Documents: []Document{},
		Total:     int64(len(docs)),
	}

	limit := options.Limit
	if limit <= 0 {
		limit = 50
	}
	if options.MaxLimit > 0 && limit > options.MaxLimit {
		limit = options.MaxLimit
	}

	start := options.Offset
	if start >= len(docs) {
		result.HasPrev = start > 0 && len(docs) > 0
		return result, nil
	}
	end := start + limit
	if end < len(docs) {
		result.HasNext = true
	} else {
		end = len(docs)
	}
	result.HasPrev = start > 0
	result.Documents = docs[start:end]
	return result, nil
}
