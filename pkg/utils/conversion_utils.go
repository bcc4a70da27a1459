package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 parses a base-10 path or query id.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid integer: %w", s, err)
	}
	return num, nil
}

// ParseDate parses a YYYY-MM-DD query value in the server's local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("'%s' is not a date, expected YYYY-MM-DD", s)
	}
	return t, nil
}
