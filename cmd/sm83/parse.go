package main

import (
	"errors"
	"strconv"
	"strings"
)

// parseImmediate accepts decimal, 0x-prefixed hex and h-suffixed hex, and
// rejects values that do not fit in bits.
func parseImmediate(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty")
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case strings.HasSuffix(s, "h"), strings.HasSuffix(s, "H"):
		s, base = s[:len(s)-1], 16
	}
	return strconv.ParseUint(s, base, bits)
}
