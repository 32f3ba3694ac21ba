package api

import (
	"net/url"
	"strconv"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// paginationParams are query parameters that never become filter fields.
var paginationParams = map[string]bool{"limit": true, "offset": true}

// parseFilter builds an equality filter from query parameters. Values that
// parse as numbers or booleans are compared as such.
func parseFilter(query url.Values) map[string]interface{} {
	filter := make(map[string]interface{})
	for key, values := range query {
		if paginationParams[key] || len(values) == 0 {
			continue
		}
		filter[key] = parseQueryValue(values[0]) // Take first value if multiple provided
	}
	return filter
}

func parseQueryValue(value string) interface{} {
	if num, err := strconv.ParseInt(value, 10, 64); err == nil {
		return num
	}
	if num, err := strconv.ParseFloat(value, 64); err == nil {
		return num
	}
	if b, err := strconv.ParseBool(value); err == nil && (value == "true" || value == "false") {
		return b
	}
	return value
}

// parsePagination reads limit and offset from the query.
func parsePagination(query url.Values) (*domain.PaginationOptions, error) {
	options := domain.DefaultPaginationOptions()
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.Validation("invalid limit %q", v)
		}
		options.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.Validation("invalid offset %q", v)
		}
		options.Offset = offset
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}
