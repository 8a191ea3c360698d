package models

import (
	"errors"
	"strconv"
	"strings"
)

// ParseInt reads the leading integer of a loosely typed value. Anything unparsable is 0 and
// out of range values saturate at the int64 bounds.
func ParseInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return n
		}
		return 0
	}
	return n
}
