package validate

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email format")

// Shape check only. Whether the mailbox exists is the mail server's
// problem, not ours.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates and normalizes an email address. The returned address
// is trimmed and lowercased. Length limits follow RFC 5321: 254 total,
// 64 for the local part, 255 for the domain.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmpty
	}
	if len(email) > 254 {
		return "", ErrStringTooLong
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	// The pattern guarantees exactly one @ and a dotted domain.
	at := strings.IndexByte(email, '@')
	if at > 64 || len(email)-at-1 > 255 {
		return "", ErrStringTooLong
	}
	return email, nil
}
