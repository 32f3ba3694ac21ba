package storage

import (
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// MatchesFilter checks if a document matches the given filter criteria.
// Filter keys may be dotted paths.
func MatchesFilter(doc domain.Document, filter map[string]interface{}) bool {
	for field, expectedValue := range filter {
		actualValue, exists := domain.Lookup(doc, field)
		if !exists {
			return false // Field doesn't exist in document
		}

		if !ValuesMatch(actualValue, expectedValue) {
			return false // Values don't match
		}
	}
	return true // All filter criteria match
}

// ValuesMatch compares two values for equality, handling different types
func ValuesMatch(actual, expected interface{}) bool {
	// Handle nil values
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	// Handle string comparison (case-insensitive for better UX)
	if actualStr, ok1 := actual.(string); ok1 {
		if expectedStr, ok2 := expected.(string); ok2 {
			return strings.EqualFold(actualStr, expectedStr)
		}
	}

	// A list matches when any element does
	if list, ok := domain.AsList(actual); ok {
		if _, expectedList := domain.AsList(expected); !expectedList {
			for _, elem := range list {
				if ValuesMatch(elem, expected) {
					return true
				}
			}
			return false
		}
	}

	return domain.ValuesEqual(actual, expected)
}

// IntersectPositions returns the positions present in every slice.
// This is used for index intersection in multi-field queries
func IntersectPositions(slices ...[]int) []int {
	if len(slices) == 0 {
		return nil
	}
	if len(slices) == 1 {
		out := make([]int, len(slices[0]))
		copy(out, slices[0])
		return out
	}

	// Count occurrences of each position across all slices
	countMap := make(map[int]int)
	for _, slice := range slices {
		seen := make(map[int]struct{}, len(slice))
		for _, pos := range slice {
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			countMap[pos]++
		}
	}

	result := []int{}
	expectedCount := len(slices)
	for pos, count := range countMap {
		if count == expectedCount {
			result = append(result, pos)
		}
	}
	return result
}
