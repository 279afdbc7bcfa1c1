// Package components renders the site's pages as templ components. The
// *_templ.go files are generated from the .templ sources by templ generate.
package components

import (
	"agency/internal/agency"
	"agency/internal/web/appcore"
	"github.com/a-h/templ"
)

type navItem struct {
	Href  string
	Label string
}

var publicNav = []navItem{
	{"/", "Home"},
	{"/talent", "Talent"},
	{"/blog", "Journal"},
	{"/talent-match", "Talent Match"},
	{"/join", "Join"},
	{"/contact", "Contact"},
}

var adminNav = []navItem{
	{"/admin/dashboard", "Dashboard"},
	{"/admin/talent", "Talent"},
	{"/admin/blog", "Blog"},
	{"/admin/messages", "Messages"},
}

// RootLayout is the document shell shared by every page.
func RootLayout[VM appcore.ChromeView](view VM, child templ.Component) templ.Component {
	return document(view.PageChrome(), child)
}

// AdminLayout adds the back office sidebar inside the root layout.
func AdminLayout[VM appcore.ChromeView](view VM, child templ.Component) templ.Component {
	return adminShell(view.PageChrome(), child)
}

type option struct {
	Value string
	Label string
}

func categoryOptions(categories []agency.Category) []option {
	options := make([]option, 0, len(categories))
	for _, category := range categories {
		options = append(options, option{Value: string(category), Label: category.Label()})
	}
	return options
}

func currencyOptions(currencies []string) []option {
	options := make([]option, 0, len(currencies))
	for _, currency := range currencies {
		options = append(options, option{Value: currency, Label: currency})
	}
	return options
}

// selectedValue normalizes legacy category labels so the stored option stays selected.
func selectedValue(form appcore.FormState, name string) string {
	current := form.Value(name)
	if name != "category" {
		return current
	}
	if normalized, ok := agency.NormalizeCategory(current); ok {
		return string(normalized)
	}
	return current
}

func statusLabel(approved bool) string {
	if approved {
		return "Approved"
	}
	return "Pending"
}

func socialLinks(socials agency.Socials) []navItem {
	all := []navItem{
		{socials.Instagram, "Instagram"},
		{socials.Twitter, "Twitter"},
		{socials.TikTok, "TikTok"},
		{socials.Facebook, "Facebook"},
		{socials.YouTube, "YouTube"},
	}
	links := all[:0]
	for _, link := range all {
		if link.Href != "" {
			links = append(links, link)
		}
	}
	return links
}

func passwordSafe(form appcore.FormState, name string, inputType string) string {
	if inputType == "password" {
		return ""
	}
	return form.Value(name)
}
