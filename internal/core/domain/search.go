package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubjectRole selects which side of the invoice the active identity is on.
type SubjectRole string

// Available subject roles.
const (
	// SubjectSeller matches invoices issued by the identity.
	SubjectSeller SubjectRole = "Subject1"
	// SubjectBuyer matches invoices received by the identity.
	SubjectBuyer SubjectRole = "Subject2"
	// SubjectThirdParty matches invoices naming the identity as a third party.
	SubjectThirdParty SubjectRole = "Subject3"
	// SubjectAuthorized matches invoices the identity is authorised to view.
	SubjectAuthorized SubjectRole = "SubjectAuthorized"
)

// IsValid returns true if the subject role is recognised.
func (r SubjectRole) IsValid() bool {
	switch r {
	case SubjectSeller, SubjectBuyer, SubjectThirdParty, SubjectAuthorized:
		return true
	default:
		return false
	}
}

// DateField selects which invoice date the query range applies to.
type DateField string

// Available date fields.
const (
	DateIssue            DateField = "Issue"
	DateInvoicing        DateField = "Invoicing"
	DatePermanentStorage DateField = "PermanentStorage"
)

// IsValid returns true if the date field is recognised.
func (f DateField) IsValid() bool {
	switch f {
	case DateIssue, DateInvoicing, DatePermanentStorage:
		return true
	default:
		return false
	}
}

// SearchRequest is a query as submitted by the browser, before validation.
type SearchRequest struct {
	SubjectType string `json:"subjectType"`
	From        string `json:"from"`
	To          string `json:"to,omitempty"`
	DateType    string `json:"dateType"`
}

// SearchQuery is a validated, normalised query. It is immutable once submitted.
type SearchQuery struct {
	SubjectRole SubjectRole `json:"subjectType"`
	From        time.Time   `json:"from"`
	To          *time.Time  `json:"to,omitempty"`
	DateField   DateField   `json:"dateType"`
}

// Validate checks enum fields and the date range.
func (q SearchQuery) Validate() error {
	if !q.SubjectRole.IsValid() {
		return NewValidationError("subjectType", fmt.Sprintf("unknown value %q", q.SubjectRole))
	}
	if !q.DateField.IsValid() {
		return NewValidationError("dateType", fmt.Sprintf("unknown value %q", q.DateField))
	}
	if q.From.IsZero() {
		return NewValidationError("from", "is required")
	}
	if q.To != nil && q.To.Before(q.From) {
		return NewValidationError("to", "is before from")
	}
	return nil
}

// NewSearchQuery validates a raw request and normalises its dates.
// "from" becomes the start of its day and "to" the last second of its day.
func NewSearchQuery(req SearchRequest) (SearchQuery, error) {
	q := SearchQuery{
		SubjectRole: SubjectRole(strings.TrimSpace(req.SubjectType)),
		DateField:   DateField(strings.TrimSpace(req.DateType)),
	}
	if !q.SubjectRole.IsValid() {
		return SearchQuery{}, NewValidationError("subjectType", fmt.Sprintf("unknown value %q", req.SubjectType))
	}
	if !q.DateField.IsValid() {
		return SearchQuery{}, NewValidationError("dateType", fmt.Sprintf("unknown value %q", req.DateType))
	}

	from, dateOnly, err := ParseDate(req.From)
	if err != nil {
		return SearchQuery{}, NewValidationError("from", err.Error())
	}
	if dateOnly {
		from = startOfDay(from)
	}
	q.From = from

	if strings.TrimSpace(req.To) != "" {
		to, dateOnly, err := ParseDate(req.To)
		if err != nil {
			return SearchQuery{}, NewValidationError("to", err.Error())
		}
		if dateOnly {
			to = endOfDay(to)
		}
		q.To = &to
	}

	if err := q.Validate(); err != nil {
		return SearchQuery{}, err
	}
	return q, nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006/01/02",
	"20060102",
}

// ParseDate accepts the date formats the browser and users commonly type.
// dateOnly reports whether the value carried no time component.
func ParseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("is required")
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, false, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised date %q", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay is the last whole second of t's calendar day, which is not
// start+24h on daylight-saving transition days.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
