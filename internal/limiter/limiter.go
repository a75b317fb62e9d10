// Package limiter trims bulk exports of matching rows to a window.
package limiter

import (
	"errors"
	"fmt"
)

// Config holds the row-limiting parameters.
type Config struct {
	Limit  int // keep at most this many rows (0 = unlimited)
	Offset int // skip the first N rows
	Tail   int // keep only the last N rows; excludes Limit and ignores Offset
}

// Validate rejects negative values and Limit combined with Tail.
func (c Config) Validate() error {
	var errs []error
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("--limit must be non-negative, got %d", c.Limit))
	}
	if c.Offset < 0 {
		errs = append(errs, fmt.Errorf("--offset must be non-negative, got %d", c.Offset))
	}
	if c.Tail < 0 {
		errs = append(errs, fmt.Errorf("--tail must be non-negative, got %d", c.Tail))
	}
	if c.Limit > 0 && c.Tail > 0 {
		errs = append(errs, errors.New("--limit and --tail are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// IsActive reports whether any limiting is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open window [start, end) of a slice of length n.
func (c Config) Bounds(n int) (int, int) {
	if c.Tail > 0 {
		return max(0, n-c.Tail), n
	}
	start := min(max(c.Offset, 0), n)
	end := n
	if c.Limit > 0 {
		end = min(start+c.Limit, n)
	}
	return start, end
}

// Apply returns the window of rows selected by c. The result shares the
// backing array of rows.
func Apply[T any](c Config, rows []T) []T {
	if !c.IsActive() {
		return rows
	}
	start, end := c.Bounds(len(rows))
	return rows[start:end]
}
