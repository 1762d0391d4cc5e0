package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery_NormalisesDates(t *testing.T) {
	q, err := NewSearchQuery(SearchRequest{
		SubjectType: "Subject2",
		From:        "2024-01-01",
		To:          "31.01.2024",
		DateType:    "Issue",
	})
	require.NoError(t, err)

	assert.Equal(t, SubjectBuyer, q.SubjectRole)
	assert.Equal(t, DateIssue, q.DateField)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), q.From)
	require.NotNil(t, q.To)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.Local), *q.To)
}

func TestNewSearchQuery_OpenEnded(t *testing.T) {
	q, err := NewSearchQuery(SearchRequest{
		SubjectType: "Subject1",
		From:        "2024-05-02T08:30:00",
		DateType:    "Invoicing",
	})
	require.NoError(t, err)

	assert.Nil(t, q.To)
	assert.Equal(t, 8, q.From.Hour())
	assert.Equal(t, 30, q.From.Minute())
}

func TestNewSearchQuery_RejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name  string
		req   SearchRequest
		field string
	}{
		{"subject", SearchRequest{SubjectType: "Subject9", From: "2024-01-01", DateType: "Issue"}, "subjectType"},
		{"date type", SearchRequest{SubjectType: "Subject1", From: "2024-01-01", DateType: "Paid"}, "dateType"},
		{"missing from", SearchRequest{SubjectType: "Subject1", DateType: "Issue"}, "from"},
		{"garbage to", SearchRequest{SubjectType: "Subject1", From: "2024-01-01", To: "soon", DateType: "Issue"}, "to"},
		{"to before from", SearchRequest{SubjectType: "Subject1", From: "2024-02-01", To: "2024-01-01", DateType: "Issue"}, "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSearchQuery(tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseDate_Formats(t *testing.T) {
	for _, s := range []string{"2024-03-05", "05.03.2024", "2024/03/05", "20240305"} {
		d, dateOnly, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, dateOnly, s)
		assert.Equal(t, time.March, d.Month(), s)
		assert.Equal(t, 5, d.Day(), s)
	}

	_, dateOnly, err := ParseDate("2024-03-05T10:00:00Z")
	require.NoError(t, err)
	assert.False(t, dateOnly)
}

func TestEndOfDay_DaylightSavingTransitions(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	for _, day := range []time.Time{
		time.Date(2024, 3, 31, 0, 0, 0, 0, warsaw),  // 23-hour day
		time.Date(2024, 10, 27, 0, 0, 0, 0, warsaw), // 25-hour day
		time.Date(2024, 6, 15, 0, 0, 0, 0, warsaw),
	} {
		end := endOfDay(day)
		y, m, d := day.Date()
		assert.Equal(t, time.Date(y, m, d, 23, 59, 59, 0, warsaw), end, day.Format(time.DateOnly))
		assert.Equal(t, 23, end.Hour())
		assert.Equal(t, d, end.Day())
	}
}
