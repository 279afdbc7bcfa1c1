package appcore

import (
	"html/template"

	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/identity"
)

// Chrome is what the root layout needs from every page.
type Chrome struct {
	PageTitle    string
	Description  string
	ActivePath   string
	Viewer       *identity.User
	IsAdmin      bool
	CanonicalURL string
}

type ChromeView interface {
	PageChrome() Chrome
}

func (c Chrome) PageChrome() Chrome {
	return c
}

type HomePageView struct {
	Chrome
	Featured binding.State[[]agency.Talent]
	Posts    []PostCard
}

type DirectoryPageView struct {
	Chrome
	Category   string
	Search     string
	Categories []agency.Category
	Talents    binding.State[[]agency.Talent]
	Visible    []agency.Talent
}

type TalentPageView struct {
	Chrome
	Talent  agency.Talent
	IsOwner bool
}

type PostCard struct {
	ID            string
	Title         string
	Excerpt       string
	Author        string
	Date          string
	Tags          []string
	Minutes       int
	FeaturedImage string
}

type BlogPageView struct {
	Chrome
	Posts []PostCard
	Err   *binding.ErrorInfo
}

type PostPageView struct {
	Chrome
	Post    PostCard
	Content template.HTML
}

// FormState is shared by every form page: the submitted values, per-field
// messages and a form-level message.
type FormState struct {
	Values    map[string]string
	Errors    agency.FieldErrors
	FormError string
	Notice    string
}

func (f FormState) Value(name string) string {
	return f.Values[name]
}

func (f FormState) Error(name string) string {
	return f.Errors[name]
}

type ContactPageView struct {
	Chrome
	Form FormState
}

type JoinPageView struct {
	Chrome
}

type AuthPageView struct {
	Chrome
	Mode string
	Next string
	Form FormState
}

type ProfileFormPageView struct {
	Chrome
	Mode       string
	Action     string
	Form       FormState
	Categories []agency.Category
	Currencies []string
}

type ProfilePageView struct {
	Chrome
	Talent agency.Talent
}

type MatchPageView struct {
	Chrome
	Form        FormState
	Suggestions string
}

type DashboardPageView struct {
	Chrome
	Stats agency.DashboardStats
}

type AdminTalentPageView struct {
	Chrome
	Talents binding.State[[]agency.Talent]
}

type AdminBlogPageView struct {
	Chrome
	Posts []PostCard
	Err   *binding.ErrorInfo
}

type AdminMessagesPageView struct {
	Chrome
	Messages binding.State[[]agency.Message]
}

type AdminFormPageView struct {
	Chrome
	Form       FormState
	Categories []agency.Category
}

type NotFoundPageView struct {
	Chrome
	Path string
}
