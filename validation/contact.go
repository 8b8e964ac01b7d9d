// Package validation is the gate every contact payload goes through before it
// can reach the store. The client runs it before any round trip and the
// service runs it again authoritatively, so both sides share this code.
package validation

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"contact-lab/domain"
	"contact-lab/errors"

	"github.com/go-playground/validator/v10"
)

var (
	validate     = newValidator()
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

type contactInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,contact_email"`
	Phone   string `json:"phone" validate:"required,phone_digits"`
	Message string `json:"message" validate:"omitempty,min=10,max=1000"`
}

var fieldMessages = map[string]struct{ required, invalid string }{
	"name":    {"Name is required", "Name must be between 2 and 100 characters"},
	"email":   {"Email is required", "Please provide a valid email address"},
	"phone":   {"Phone number is required", "Please provide a valid 10-digit phone number"},
	"message": {"", "Message must be between 10 and 1000 characters"},
}

// ValidateContact normalizes the payload and checks every field.
// On rejection the returned error is an *errors.ValidationError listing all
// violated fields.
func ValidateContact(payload domain.ContactPayload) (domain.NewContact, error) {
	input := normalize(payload)
	err := validate.Struct(input)
	if err == nil {
		return domain.NewContact(input), nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return domain.NewContact{}, err
	}
	fields := make(errors.FieldErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	return domain.NewContact{}, &errors.ValidationError{Fields: fields}
}

// NormalizeEmail is the canonical form used for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalize(payload domain.ContactPayload) contactInput {
	return contactInput{
		Name:    strings.TrimSpace(payload.Name),
		Email:   NormalizeEmail(payload.Email),
		Phone:   stripSpaces(payload.Phone),
		Message: strings.TrimSpace(payload.Message),
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func describe(fe validator.FieldError) string {
	msg, ok := fieldMessages[fe.Field()]
	if !ok {
		return fe.Error()
	}
	if fe.Tag() == "required" {
		return msg.required
	}
	return msg.invalid
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone_digits", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}
