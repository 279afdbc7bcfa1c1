package agency

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"agency/internal/docstore"
)

// StaticRoutes are the public pages listed in the sitemap besides talent
// profiles and posts.
var StaticRoutes = []string{
	"",
	"/talent",
	"/blog",
	"/contact",
	"/login",
	"/signup",
	"/talent-match",
	"/complete-profile",
}

type SitemapURL struct {
	Loc             string  `xml:"loc"`
	LastModified    string  `xml:"lastmod,omitempty"`
	ChangeFrequency string  `xml:"changefreq,omitempty"`
	Priority        float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapEntries lists static routes, approved talents and blog posts. It
// reads with a privileged context since it runs server side for crawlers.
func SitemapEntries(ctx context.Context, store docstore.Store, rootURL string, now time.Time) ([]SitemapURL, error) {
	rootURL = strings.TrimRight(strings.TrimSpace(rootURL), "/")
	lastModified := now.UTC().Format(time.RFC3339)
	ctx = docstore.Privileged(ctx)

	entries := make([]SitemapURL, 0, len(StaticRoutes)+16)
	for _, route := range StaticRoutes {
		priority := 0.8
		if route == "" {
			priority = 1.0
		}
		entries = append(entries, SitemapURL{
			Loc:             rootURL + route,
			LastModified:    lastModified,
			ChangeFrequency: "monthly",
			Priority:        priority,
		})
	}

	talents, err := store.Query(ctx, ApprovedTalents())
	if err != nil {
		return nil, fmt.Errorf("list talents: %w", err)
	}
	for _, doc := range talents.Docs {
		entries = append(entries, SitemapURL{
			Loc:             rootURL + "/talent/" + doc.ID(),
			LastModified:    lastModified,
			ChangeFrequency: "weekly",
			Priority:        0.7,
		})
	}

	posts, err := store.Query(ctx, docstore.Collection(CollectionBlogPosts))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	for _, doc := range posts.Docs {
		entries = append(entries, SitemapURL{
			Loc:             rootURL + "/blog/" + doc.ID(),
			LastModified:    lastModified,
			ChangeFrequency: "weekly",
			Priority:        0.6,
		})
	}

	return entries, nil
}

func RenderSitemap(entries []SitemapURL) ([]byte, error) {
	body, err := xml.MarshalIndent(urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  entries,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
