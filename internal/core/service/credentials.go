package service

import (
	"strings"

	"github.com/verdantmart/identity-gateway/internal/pkg/validation"
)

// MinLoginPasswordLength is the client-side check applied before a login is
// submitted. The sign-up policy (MinPasswordLength) is stricter.
const MinLoginPasswordLength = 6

type loginCredentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var credentialValidator = validation.New()

// ValidateCredentials checks the email format and password length of a login
// form. Failures wrap domain.ErrValidation.
func ValidateCredentials(email, password string) error {
	return credentialValidator.Struct(loginCredentials{Email: strings.TrimSpace(email), Password: password})
}
