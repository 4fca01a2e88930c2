package domain

import (
	"fmt"
	"strings"
)

// FilterBy selects how GetAll narrows the listing.
type FilterBy string

const (
	FilterNone          FilterBy = "none"
	FilterCustomerEmail FilterBy = "customerEmail"
	FilterProductID     FilterBy = "productId"
)

// SortBy is the field a listing is ordered by.
type SortBy string

const (
	SortByName      SortBy = "name"
	SortByEmail     SortBy = "email"
	SortByCreatedAt SortBy = "created_at"
	SortByUpdatedAt SortBy = "updated_at"
)

// SortOrder is the listing direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Query describes a GetAll request. Page is zero-based.
type Query struct {
	FilterBy    FilterBy
	FilterValue string
	SortBy      SortBy
	SortOrder   SortOrder
	Page        int
	Size        int
}

// ParseFilterBy maps a query-string value to a FilterBy. Empty means none.
func ParseFilterBy(s string) (FilterBy, error) {
	switch FilterBy(s) {
	case "", FilterNone:
		return FilterNone, nil
	case FilterCustomerEmail, FilterProductID:
		return FilterBy(s), nil
	}
	return "", fmt.Errorf("unknown filterBy %q", s)
}

// ParseSortBy maps a query-string value to a SortBy. Empty means name.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case "":
		return SortByName, nil
	case SortByName, SortByEmail, SortByCreatedAt, SortByUpdatedAt:
		return SortBy(s), nil
	}
	return "", fmt.Errorf("unknown sortBy %q", s)
}

// ParseSortOrder maps a query-string value to a SortOrder, ignoring case.
// Empty means ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToUpper(s)) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("unknown sortOrder %q", s)
}
