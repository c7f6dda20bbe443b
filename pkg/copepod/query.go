package copepod

import (
	"net/url"
	"strconv"
	"strings"
)

// RecordQueryParams are the options of a record list or fetch.
// Zero values are omitted from the query string.
type RecordQueryParams struct {
	// Filter is a filter expression, e.g. `status = "active" && age > 18`.
	Filter string
	// Sort lists fields, prefixed with "-" for descending order.
	Sort string
	// Expand lists relation fields to inline.
	Expand []string
	// Fields restricts the returned fields.
	Fields []string
	// Page is 1-based.
	Page    int
	PerPage int
}

// NewRecordQueryParams creates empty query params.
func NewRecordQueryParams() *RecordQueryParams {
	return &RecordQueryParams{}
}

// WithFilter sets the filter expression.
func (q *RecordQueryParams) WithFilter(filter string) *RecordQueryParams {
	q.Filter = filter

	return q
}

// WithSort sets the sort expression.
func (q *RecordQueryParams) WithSort(sort string) *RecordQueryParams {
	q.Sort = sort

	return q
}

// WithExpand adds relation fields to expand.
func (q *RecordQueryParams) WithExpand(fields ...string) *RecordQueryParams {
	q.Expand = append(q.Expand, fields...)

	return q
}

// WithFields adds fields to return.
func (q *RecordQueryParams) WithFields(fields ...string) *RecordQueryParams {
	q.Fields = append(q.Fields, fields...)

	return q
}

// WithPage sets the page number.
func (q *RecordQueryParams) WithPage(page int) *RecordQueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *RecordQueryParams) WithPerPage(perPage int) *RecordQueryParams {
	q.PerPage = perPage

	return q
}

// ToValues converts the params to URL values. A nil receiver yields empty values.
func (q *RecordQueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Filter != "" {
		values.Set("filter", q.Filter)
	}

	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}

	if len(q.Expand) > 0 {
		values.Set("expand", strings.Join(q.Expand, ","))
	}

	if len(q.Fields) > 0 {
		values.Set("fields", strings.Join(q.Fields, ","))
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}

	return values
}
