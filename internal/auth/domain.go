package auth

import "github.com/go-playground/validator/v10"

// Credentials carries a username/password pair supplied by a caller.
type Credentials struct {
	Username string `validate:"required,max=50"`
	Password string `validate:"required"`
}

var validate = validator.New()

// Validate checks field constraints before the repository is consulted.
func (c Credentials) Validate() error {
	return validate.Struct(c)
}
