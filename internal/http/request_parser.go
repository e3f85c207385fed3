package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledgerlens/internal/core"
)

var ErrInvalidParam = errors.New("invalid query parameter")

// ReportParams holds the reference and range of a report request.
type ReportParams struct {
	Reference string
	Range     string
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// SavingsParams holds the month and round-up step of a savings request.
type SavingsParams struct {
	Month string
	Limit int
}

// ParseReportParams reads date and range. date is either a full reference
// ("2006-01-02 15:04:05") or a calendar day that takes the time of day of now.
// A missing date means now; a missing range means the current month.
func ParseReportParams(query url.Values, now time.Time) (ReportParams, error) {
	params := ReportParams{
		Reference: now.Format(core.ReferenceLayout),
		Range:     strings.TrimSpace(query.Get("range")),
	}
	if params.Range == "" {
		params.Range = "M"
	}

	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return params, nil
	}
	if _, err := time.Parse(core.ReferenceLayout, v); err == nil {
		params.Reference = v
		return params, nil
	}
	day, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return ReportParams{}, fmt.Errorf("%w: date %q", ErrInvalidParam, v)
	}
	ref := time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	params.Reference = ref.Format(core.ReferenceLayout)
	return params, nil
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now as default.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return MonthParams{}, fmt.Errorf("%w: year %q", ErrInvalidParam, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: month %q", ErrInvalidParam, v)
		}
		params.Month = m
	}

	return params, nil
}

// ParseSavingsParams reads month ("YYYY-MM") and limit. Validation of both is
// left to the savings calculator.
func ParseSavingsParams(query url.Values, now time.Time, defaultLimit int) (SavingsParams, error) {
	params := SavingsParams{
		Month: strings.TrimSpace(query.Get("month")),
		Limit: defaultLimit,
	}
	if params.Month == "" {
		params.Month = now.Format(core.MonthLayout)
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return SavingsParams{}, fmt.Errorf("%w: limit %q", ErrInvalidParam, v)
		}
		params.Limit = limit
	}
	return params, nil
}
