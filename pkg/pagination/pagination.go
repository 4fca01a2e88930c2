package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Params holds zero-based pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Size   int `json:"size"`
	Offset int `json:"-"`
}

// DefaultParams returns the first page with the default size.
func DefaultParams() Params {
	return Params{
		Page:   0,
		Size:   DefaultSize,
		Offset: 0,
	}
}

// New builds Params for a zero-based page, clamping out-of-range values to
// the defaults.
func New(page, size int) Params {
	p := DefaultParams()
	if page >= 0 {
		p.Page = page
	}
	if size > 0 && size <= MaxSize {
		p.Size = size
	}
	p.Offset = p.Page * p.Size
	return p
}

// FromRequest extracts the page and size query parameters from an HTTP
// request. Missing or invalid values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	page, size := -1, 0

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		size = v
	}

	return New(page, size)
}
