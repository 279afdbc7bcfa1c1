// Package agency holds the agency's documents, the queries pages bind to,
// the write path behind the site's forms and the access rules of the store.
package agency

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	CollectionTalents    = "talents"
	CollectionBlogPosts  = "blogPosts"
	CollectionMessages   = "messages"
	CollectionUsers      = "users"
	CollectionAdminRoles = "roles_admin"
)

type Category string

const (
	CategoryActress        Category = "actress"
	CategoryArtist         Category = "artist"
	CategoryModel          Category = "model"
	CategoryContentCreator Category = "content-creator"
	CategoryPhotographer   Category = "photographer"
)

var Categories = []Category{
	CategoryActress,
	CategoryArtist,
	CategoryModel,
	CategoryContentCreator,
	CategoryPhotographer,
}

var categoryLabels = map[Category]string{
	CategoryActress:        "Actress",
	CategoryArtist:         "Artist",
	CategoryModel:          "Model",
	CategoryContentCreator: "Content Creator",
	CategoryPhotographer:   "Photographer",
}

func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// NormalizeCategory accepts both the slug form ("content-creator") and the
// legacy title-case form ("Content Creator").
func NormalizeCategory(raw string) (Category, bool) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = strings.ReplaceAll(slug, " ", "-")
	category := Category(slug)
	if _, ok := categoryLabels[category]; ok {
		return category, true
	}
	return "", false
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if normalized, ok := NormalizeCategory(raw); ok {
		*c = normalized
		return nil
	}
	*c = Category(raw)
	return nil
}

var Currencies = []string{"USD", "KES", "EUR", "GBP"}

type Socials struct {
	Instagram string `json:"instagram,omitempty" validate:"omitempty,url"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,url"`
	TikTok    string `json:"tiktok,omitempty" validate:"omitempty,url"`
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,url"`
	YouTube   string `json:"youtube,omitempty" validate:"omitempty,url"`
}

type PortfolioItem struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
}

type Talent struct {
	ID           string          `json:"-"`
	Name         string          `json:"name" validate:"required"`
	Category     Category        `json:"category" validate:"required,oneof=actress artist model content-creator photographer"`
	Bio          string          `json:"bio"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Socials      Socials         `json:"socials"`
	Portfolio    []PortfolioItem `json:"portfolio"`
	ProfileImage string          `json:"profileImage"`
	Rate         *float64        `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Currency     string          `json:"currency,omitempty" validate:"omitempty,oneof=USD KES EUR GBP"`
	Approved     bool            `json:"approved"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

func (t *Talent) SetDocumentID(id string) {
	t.ID = id
}

type BlogPost struct {
	ID            string   `json:"-"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title" validate:"required"`
	Content       string   `json:"content"`
	Author        string   `json:"author"`
	PublishedAt   string   `json:"publishedAt"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featuredImage"`
}

func (p *BlogPost) SetDocumentID(id string) {
	p.ID = id
}

type Message struct {
	ID        string `json:"-"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
}

func (m *Message) SetDocumentID(id string) {
	m.ID = id
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTalent Role = "talent"
)

type UserProfile struct {
	ID          string `json:"-"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	Role        Role   `json:"role" validate:"required,oneof=admin talent"`
}

func (u *UserProfile) SetDocumentID(id string) {
	u.ID = id
}

// AdminRole grants admin by existing; its fields are informational.
type AdminRole struct {
	ID        string `json:"-"`
	Email     string `json:"email,omitempty"`
	GrantedAt string `json:"grantedAt,omitempty"`
}

func (a *AdminRole) SetDocumentID(id string) {
	a.ID = id
}

// Timestamps are stored as second-precision RFC 3339 in UTC so that string
// order is time order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// FormatDate renders a stored timestamp for display, falling back to the raw
// value when it does not parse.
func FormatDate(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return raw
		}
	}

	return parsed.Format("January 2, 2006")
}
