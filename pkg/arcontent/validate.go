package arcontent

import (
	"regexp"
	"strconv"
)

// invalidName matches any single character a name may not contain.
var invalidName = regexp.MustCompile(`[^-_.A-Za-z0-9]`)

// ValidateName fails with ErrInvalidName when name contains a character outside
// [-_.A-Za-z0-9]. There is no length limit.
func ValidateName(name string) error {
	if invalidName.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// ParseID parses a caller supplied id. Only plain base-10 digits are accepted:
// signs, spaces and values overflowing int64 fail with ErrInvalidID.
func ParseID(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidID
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidID
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}
