package agency

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ContactInput is the public contact form.
type ContactInput struct {
	Name    string `form:"name" validate:"min=2"`
	Email   string `form:"email" validate:"required,email"`
	Subject string `form:"subject" validate:"min=5"`
	Message string `form:"message" validate:"min=10"`
}

// ProfileInput is shared by complete-profile and profile edit.
type ProfileInput struct {
	Name      string   `form:"name" validate:"min=2"`
	Phone     string   `form:"phone" validate:"min=10"`
	Category  string   `form:"category" validate:"category"`
	Bio       string   `form:"bio" validate:"min=20"`
	Instagram string   `form:"instagram" validate:"omitempty,url"`
	Twitter   string   `form:"twitter" validate:"omitempty,url"`
	TikTok    string   `form:"tiktok" validate:"omitempty,url"`
	Facebook  string   `form:"facebook" validate:"omitempty,url"`
	YouTube   string   `form:"youtube" validate:"omitempty,url"`
	Rate      *float64 `form:"rate" validate:"omitempty,gte=0"`
	Currency  string   `form:"currency" validate:"omitempty,oneof=USD KES EUR GBP"`
}

// TalentInput is the admin "new talent" form.
type TalentInput struct {
	Name      string `form:"name" validate:"min=2"`
	Email     string `form:"email" validate:"required,email"`
	Phone     string `form:"phone" validate:"min=10"`
	Category  string `form:"category" validate:"category"`
	Bio       string `form:"bio" validate:"min=20"`
	Instagram string `form:"instagram" validate:"omitempty,url"`
	Twitter   string `form:"twitter" validate:"omitempty,url"`
	TikTok    string `form:"tiktok" validate:"omitempty,url"`
}

// PostInput is the admin "new blog post" form. Tags is comma separated.
type PostInput struct {
	Title   string `form:"title" validate:"min=5"`
	Author  string `form:"author" validate:"min=2"`
	Tags    string `form:"tags" validate:"min=2"`
	Content string `form:"content" validate:"min=50"`
}

type SignUpInput struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"min=6"`
}

type MatchInput struct {
	AestheticPreferences string `form:"aestheticPreferences" validate:"min=10"`
	Budget               string `form:"budget" validate:"min=2"`
}

var fieldMessages = map[string]string{
	"ContactInput.name":               "Please enter your name.",
	"ContactInput.email":              "Please enter a valid email address.",
	"ContactInput.subject":            "Subject must be at least 5 characters.",
	"ContactInput.message":            "Message must be at least 10 characters.",
	"ProfileInput.name":               "Full name is required.",
	"ProfileInput.phone":              "Please enter a valid phone number.",
	"ProfileInput.category":           "Please select a category.",
	"ProfileInput.bio":                "Bio must be at least 20 characters long.",
	"ProfileInput.rate":               "Rate must be a positive number.",
	"ProfileInput.currency":           "Please select a currency.",
	"TalentInput.name":                "Name must be at least 2 characters.",
	"TalentInput.email":               "Please enter a valid email address.",
	"TalentInput.phone":               "Please enter a valid phone number.",
	"TalentInput.category":            "Please select a category.",
	"TalentInput.bio":                 "Bio must be at least 20 characters.",
	"PostInput.title":                 "Title must be at least 5 characters.",
	"PostInput.author":                "Author name is required.",
	"PostInput.tags":                  "Please add at least one tag.",
	"PostInput.content":               "Content must be at least 50 characters.",
	"SignUpInput.email":               "Please enter a valid email.",
	"SignUpInput.password":            "Password must be at least 6 characters.",
	"SignUpInput.confirmPassword":     "Passwords don't match.",
	"LoginInput.email":                "Please enter a valid email.",
	"LoginInput.password":             "Password must be at least 6 characters.",
	"MatchInput.aestheticPreferences": "Please describe the desired aesthetic in at least 10 characters.",
	"MatchInput.budget":               "Please provide a budget.",
}

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

// ValidationError is returned by the write path when a form fails its rules.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid input: " + strings.Join(names, ", ")
}

// AsValidation extracts field errors from err, if it carries any.
func AsValidation(err error) (FieldErrors, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields, true
	}
	return nil, false
}

// NewValidator returns the validator used for forms and read-boundary
// decoding: field names come from form tags and "category" accepts both
// category spellings.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("form"); name != "" {
			return name
		}
		if name, _, _ := strings.Cut(field.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return field.Name
	})
	_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeCategory(fl.Field().String())
		return ok
	})
	return validate
}

func validateInput(validate *validator.Validate, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	fields := make(FieldErrors, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		message, ok := fieldMessages[fieldErr.Namespace()]
		if !ok {
			message = fmt.Sprintf("Invalid value for %s.", fieldErr.Field())
		}
		if _, exists := fields[fieldErr.Field()]; !exists {
			fields[fieldErr.Field()] = message
		}
	}
	return &ValidationError{Fields: fields}
}

// SplitTags turns "Africa, Art , ,Fashion" into ["Africa", "Art", "Fashion"].
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
