// Package utils provides small parsing helpers for paging parameters shared
// by the HTTP handlers and the query-key model.
package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNotInteger is returned when a paging value is not a base-10 integer.
	ErrNotInteger = errors.New("not an integer")
	// ErrOutOfRange is returned when a paging value falls outside its bounds.
	ErrOutOfRange = errors.New("out of range")
)

// ParseBounded parses s as an integer in [lo, hi]. A blank s yields def
// without checking bounds, so callers can use 0 to mean "server default".
//
//	n, err := utils.ParseBounded(c.Query("limit"), 0, 1, 200)
func ParseBounded(s string, def, lo, hi int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def, ErrNotInteger
	}
	if n < lo || n > hi {
		return def, ErrOutOfRange
	}
	return n, nil
}

// NonNegative parses a page number or page size. Blank means 0.
func NonNegative(s string) (int, error) {
	return ParseBounded(s, 0, 0, math.MaxInt)
}
