package handler

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const (
	maxUsernameLen = 150
	maxTitleLen    = 256
	minPasswordLen = 8
)

// pubDateLayout is the format produced by <input type="datetime-local">.
const pubDateLayout = "2006-01-02T15:04"

func validateUsername(username string) string {
	switch {
	case username == "":
		return "Username is required"
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return "Username is too long"
	case !usernameRe.MatchString(username):
		return "Username may only contain letters, digits and _ . -"
	}
	return ""
}

func validateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Enter a valid email address"
	}
	return ""
}

func validatePassword(password, confirm string) string {
	switch {
	case password == "":
		return "Password is required"
	case utf8.RuneCountInString(password) < minPasswordLen:
		return "Password must be at least 8 characters"
	case password != confirm:
		return "Passwords do not match"
	}
	return ""
}

func validatePostTitle(title string) string {
	switch {
	case strings.TrimSpace(title) == "":
		return "Title is required"
	case utf8.RuneCountInString(title) > maxTitleLen:
		return "Title is too long"
	}
	return ""
}

func validateCommentBody(body string) string {
	if strings.TrimSpace(body) == "" {
		return "Comment cannot be empty"
	}
	return ""
}

// parsePubDate parses the publish date from the post form. Future dates are
// allowed and mean scheduled publication.
func parsePubDate(value string) (time.Time, string) {
	if value == "" {
		return time.Time{}, "Publish date is required"
	}
	t, err := time.ParseInLocation(pubDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, "Enter a valid date and time"
	}
	return t, ""
}
