package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/docuvault/internal/common"
)

var (
	emailRe      = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRe      = regexp.MustCompile(`^\d{10}$`)
	nationalIDRe = regexp.MustCompile(`^\d{12}$`)
)

const (
	minPasswordLen   = 8
	maxMessageLength = 2000
)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	return emailRe.MatchString(s)
}

func checkEmail(v *common.ValidationError, field, email string) {
	switch {
	case email == "":
		v.Add(field, "Email is required")
	case !validEmail(email):
		v.Add(field, "Email is invalid")
	}
}

func checkPhone(v *common.ValidationError, phone string) {
	switch {
	case phone == "":
		v.Add("phone", "Phone number is required")
	case !phoneRe.MatchString(phone):
		v.Add("phone", "Phone number must be 10 digits")
	}
}

func checkNationalID(v *common.ValidationError, id string) {
	switch {
	case id == "":
		v.Add("aadhaarNumber", "Aadhaar number is required")
	case !nationalIDRe.MatchString(id):
		v.Add("aadhaarNumber", "Aadhaar number must be 12 digits")
	}
}

// checkNewPassword validates a password and its confirmation under the given
// field names.
func checkNewPassword(v *common.ValidationError, field, password, confirmField, confirm string) {
	switch {
	case password == "":
		v.Add(field, "Password is required")
	case utf8.RuneCountInString(password) < minPasswordLen:
		v.Add(field, "Password must be at least 8 characters")
	}
	if password != confirm {
		v.Add(confirmField, "Passwords do not match")
	}
}
