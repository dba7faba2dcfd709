package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/cronexpr"
)

// ErrBadCron marks a cron expression the user got wrong, as opposed to an
// internal scheduling failure.
var ErrBadCron = errors.New("invalid cron expression")

// NextRunTimes returns the next n firings of a cron expression after now,
// in UTC.
func NextRunTimes(cron string, n int) ([]time.Time, error) {
	return NextRunTimesAfter(cron, time.Now().UTC(), n)
}

// NextRunTimesAfter returns the next n firings strictly after the given
// time. It returns an error if the expression is invalid or n is less than
// 1. An expression that has run out of firings yields a short or empty
// slice.
func NextRunTimesAfter(cron string, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be greater than 0")
	}
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCron, err)
	}
	return expr.NextN(after, uint(n)), nil
}

// ValidateCron reports whether the expression parses.
func ValidateCron(cron string) error {
	if _, err := cronexpr.Parse(cron); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCron, err)
	}
	return nil
}
