package httpx

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Int64 accepts a JSON number or a numeric string, as posted by HTML forms.
// null and "" decode to zero so `required` validation catches them.
type Int64 int64

func (n *Int64) UnmarshalJSON(b []byte) error {
	s, ok := scalarText(b)
	if !ok {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", b)
	}
	*n = Int64(v)
	return nil
}

// Float64 accepts a JSON number or a numeric string.
type Float64 float64

func (f *Float64) UnmarshalJSON(b []byte) error {
	s, ok := scalarText(b)
	if !ok {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = Float64(v)
	return nil
}

func scalarText(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", false
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	return s, s != ""
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// QueryInt64 parses an optional integer query parameter; absent or invalid is zero.
func QueryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}

// Page reads page/page_size with the usual defaults and bounds.
func Page(r *http.Request) (page, pageSize int) {
	query := r.URL.Query()
	page, _ = strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// PageMeta is the pagination block returned with list responses.
func PageMeta(page, pageSize, total int) map[string]any {
	return map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}
