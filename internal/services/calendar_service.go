package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payables/internal/core"
)

var (
	ErrConflictingStep = errors.New("next and previous cannot both be set")
	ErrInvalidMonth    = errors.New("month must be between 1 and 12")
)

// CalendarDay is one cell of the month grid. Active is false for the
// leading and trailing days that belong to the neighbouring months.
type CalendarDay struct {
	Year        int
	Month       time.Month
	Day         int
	Active      bool
	InvoicesDue []core.Invoice
}

type CalendarMonth struct {
	Year  int
	Month time.Month
	Title string
	// Weeks run Sunday to Saturday.
	Weeks [][]CalendarDay
}

type CalendarService struct {
	repo CalendarRepository
	now  func() time.Time
}

func NewCalendarService(repo CalendarRepository) *CalendarService {
	return &CalendarService{repo: repo, now: time.Now}
}

// StepFromFlags turns the next/previous query flags into a month offset.
func StepFromFlags(next, previous bool) (int, error) {
	switch {
	case next && previous:
		return 0, ErrConflictingStep
	case next:
		return 1, nil
	case previous:
		return -1, nil
	}
	return 0, nil
}

// Month builds the grid for year/month moved by step months. A zero year
// or month falls back to the current UTC month.
func (s *CalendarService) Month(ctx context.Context, userID string, year int, month time.Month, step int) (CalendarMonth, error) {
	if userID == "" {
		return CalendarMonth{}, core.ErrEmptyUserID
	}
	if step < -1 || step > 1 {
		return CalendarMonth{}, fmt.Errorf("invalid step %d", step)
	}
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}
	if month < time.January || month > time.December {
		return CalendarMonth{}, ErrInvalidMonth
	}

	first := time.Date(year, month+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday())+1)

	invoices, err := s.repo.InvoicesDueBetween(ctx, userID, start, end)
	if err != nil {
		return CalendarMonth{}, fmt.Errorf("load calendar invoices: %w", err)
	}
	byDay := make(map[string][]core.Invoice)
	for _, inv := range invoices {
		if inv.DueDate == nil {
			continue
		}
		key := inv.DueDate.UTC().Format(time.DateOnly)
		byDay[key] = append(byDay[key], inv)
	}

	cal := CalendarMonth{
		Year:  first.Year(),
		Month: first.Month(),
		Title: first.Format("January 2006"),
	}
	var week []CalendarDay
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		week = append(week, CalendarDay{
			Year:        d.Year(),
			Month:       d.Month(),
			Day:         d.Day(),
			Active:      d.Month() == first.Month(),
			InvoicesDue: byDay[d.Format(time.DateOnly)],
		})
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = nil
		}
	}
	return cal, nil
}
