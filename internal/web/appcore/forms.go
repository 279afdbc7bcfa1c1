package appcore

import (
	"net/http"
	"strconv"
	"strings"

	"agency/internal/agency"
)

const rateMessage = "Rate must be a positive number."

func emptyForm() FormState {
	return FormState{Values: map[string]string{}}
}

// postedForm echoes the named fields back into the re-rendered form.
// Passwords are never listed.
func postedForm(r *http.Request, names ...string) FormState {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = strings.TrimSpace(r.PostForm.Get(name))
	}
	return FormState{Values: values}
}

// withValidation moves field errors from err into the form. It reports
// false when err is not a validation failure.
func (f FormState) withValidation(err error) (FormState, bool) {
	fields, ok := agency.AsValidation(err)
	if !ok {
		return f, false
	}
	f.Errors = fields
	return f, true
}

func (f FormState) withFieldError(name string, message string) FormState {
	errs := make(agency.FieldErrors, len(f.Errors)+1)
	for key, value := range f.Errors {
		errs[key] = value
	}
	errs[name] = message
	f.Errors = errs
	return f
}

var profileFields = []string{
	"name", "phone", "category", "bio",
	"instagram", "twitter", "tiktok", "facebook", "youtube",
	"rate", "currency",
}

// profileInput reads the profile form. A rate that is not a number is
// reported as a field error of its own.
func profileInput(form FormState) (agency.ProfileInput, string) {
	input := agency.ProfileInput{
		Name:      form.Value("name"),
		Phone:     form.Value("phone"),
		Category:  form.Value("category"),
		Bio:       form.Value("bio"),
		Instagram: form.Value("instagram"),
		Twitter:   form.Value("twitter"),
		TikTok:    form.Value("tiktok"),
		Facebook:  form.Value("facebook"),
		YouTube:   form.Value("youtube"),
		Currency:  form.Value("currency"),
	}

	raw := form.Value("rate")
	if raw == "" {
		return input, ""
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return input, rateMessage
	}
	input.Rate = &rate
	return input, ""
}

var talentFields = []string{"name", "email", "phone", "category", "bio", "instagram", "twitter", "tiktok"}

func talentInput(form FormState) agency.TalentInput {
	return agency.TalentInput{
		Name:      form.Value("name"),
		Email:     form.Value("email"),
		Phone:     form.Value("phone"),
		Category:  form.Value("category"),
		Bio:       form.Value("bio"),
		Instagram: form.Value("instagram"),
		Twitter:   form.Value("twitter"),
		TikTok:    form.Value("tiktok"),
	}
}

var postFields = []string{"title", "author", "tags", "content"}

func postInput(form FormState) agency.PostInput {
	return agency.PostInput{
		Title:   form.Value("title"),
		Author:  form.Value("author"),
		Tags:    form.Value("tags"),
		Content: form.Value("content"),
	}
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
