package common

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidateEmail accepts a bare address such as "ann@example.com".
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewValidationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return NewValidationError("email", fmt.Sprintf("%q is not a valid email address", email))
	}
	if at := strings.LastIndexByte(email, '@'); !strings.Contains(email[at+1:], ".") {
		return NewValidationError("email", fmt.Sprintf("%q has no domain", email))
	}
	return nil
}
