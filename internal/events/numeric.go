package events

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// Limits of the numeric fields in the status stream.
const (
	MinorMin        = -1
	MinorMax        = 1<<20 - 1
	PercentMax      = 10000 // 100.00 % in hundredths
	percentFraction = 2
)

func numberError(key, value, what string) error {
	return errors.New(errors.ErrProtocol,
		fmt.Sprintf("Field %s:%s is not a valid %s", key, value, what), "")
}

// ParseUint16 decodes a volume number.
func ParseUint16(key, value string) (uint16, error) {
	n, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, numberError(key, value, "16 bit unsigned number")
	}
	return uint16(n), nil
}

// ParseUint8 decodes a node id.
func ParseUint8(key, value string) (uint8, error) {
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return 0, numberError(key, value, "8 bit unsigned number")
	}
	return uint8(n), nil
}

// ParseMinor decodes a device minor number. -1 means "no minor".
func ParseMinor(key, value string) (int32, error) {
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil || n < MinorMin || n > MinorMax {
		return 0, numberError(key, value, "minor number")
	}
	return int32(n), nil
}

// ParsePercent decodes a percentage with up to two fraction digits
// ("42", "42.5", "42.57") into hundredths of a percent.
func ParsePercent(key, value string) (uint16, error) {
	whole, frac, hasFrac := strings.Cut(value, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > percentFraction)) {
		return 0, numberError(key, value, "percentage")
	}
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) {
		return 0, numberError(key, value, "percentage")
	}

	w, err := strconv.ParseUint(whole, 10, 16)
	if err != nil || w > 100 {
		return 0, numberError(key, value, "percentage")
	}
	total := w * 100
	if hasFrac {
		f, _ := strconv.ParseUint(frac, 10, 16)
		if len(frac) == 1 {
			f *= 10
		}
		total += f
	}
	if total > PercentMax {
		return 0, numberError(key, value, "percentage")
	}
	return uint16(total), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
