// Package validation holds the input rules shared by signup, profile and post handlers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 30
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes  = 72
	MaxEmailLen       = 254
	MaxFullNameLen    = 60
	MaxBioLen         = 500
	MaxDescriptionLen = 2200
	MaxCommentLen     = 1000
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks length, allowed characters and that the name does
// not start or end with a separator.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("Username must be between %d and %d characters", MinUsernameLen, MaxUsernameLen)
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("Username may only contain letters, numbers, underscores and dashes")
	}
	if strings.ContainsAny(username[:1], "_-") || strings.ContainsAny(username[len(username)-1:], "_-") {
		return errors.New("Username cannot start or end with an underscore or dash")
	}
	return nil
}

func ValidateEmail(email string) error {
	if len(email) > MaxEmailLen {
		return fmt.Errorf("Email must be at most %d characters", MaxEmailLen)
	}
	if !emailPattern.MatchString(email) {
		return errors.New("Invalid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("Password must be at least %d characters", MinPasswordLen)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("Password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

func ValidateFullName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("Full name is required")
	}
	if utf8.RuneCountInString(name) > MaxFullNameLen {
		return fmt.Errorf("Full name too long (max %d characters)", MaxFullNameLen)
	}
	return nil
}

func ValidateBio(bio string) error {
	return maxLen("Bio", bio, MaxBioLen)
}

func ValidateDescription(description string) error {
	return maxLen("Description", description, MaxDescriptionLen)
}

// ValidateComment trims text and returns it when non-empty and within limits.
func ValidateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("Comment text is required")
	}
	if err := maxLen("Comment", text, MaxCommentLen); err != nil {
		return "", err
	}
	return text, nil
}

func maxLen(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%s too long (max %d characters)", field, limit)
	}
	return nil
}
