package handlers

import (
	"strconv"

	"ecorewards/internal/apperr"
)

// parseLimit reads an optional positive limit query value. Zero means the
// caller's default.
func parseLimit(limitStr string) (int, error) {
	if limitStr == "" {
		return 0, nil
	}
	l, err := strconv.Atoi(limitStr)
	if err != nil || l < 1 {
		return 0, apperr.InvalidInput("limit must be a positive integer")
	}
	return l, nil
}
