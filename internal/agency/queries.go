package agency

import (
	"strings"

	"agency/internal/docstore"
)

const FeaturedTalentCount = 3

const RecentMessageCount = 5

func FeaturedTalents() *docstore.Query {
	return ApprovedTalents().Take(FeaturedTalentCount)
}

func AllTalents() *docstore.Query {
	return docstore.Collection(CollectionTalents)
}

func ApprovedTalents() *docstore.Query {
	return AllTalents().Where("approved", true)
}

func PendingTalents() *docstore.Query {
	return AllTalents().Where("approved", false)
}

// TalentDirectory is the public directory query. An empty or "all" category
// lists every approved talent; an unknown category still filters, so it
// yields no results rather than everything.
func TalentDirectory(category string) *docstore.Query {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return ApprovedTalents()
	}
	if normalized, ok := NormalizeCategory(category); ok {
		return ApprovedTalents().Where("category", string(normalized))
	}
	return ApprovedTalents().Where("category", category)
}

func BlogPosts() *docstore.Query {
	return docstore.Collection(CollectionBlogPosts).Order("publishedAt", docstore.Descending)
}

func AllMessages() *docstore.Query {
	return docstore.Collection(CollectionMessages).Order("createdAt", docstore.Descending)
}

func UnreadMessages() *docstore.Query {
	return docstore.Collection(CollectionMessages).Where("read", false)
}

func RecentMessages() *docstore.Query {
	return AllMessages().Take(RecentMessageCount)
}

// Refs return nil for an empty id, which hooks treat as "do not subscribe".

func TalentRef(id string) *docstore.DocRef {
	return ref(CollectionTalents, id)
}

func BlogPostRef(id string) *docstore.DocRef {
	return ref(CollectionBlogPosts, id)
}

func AdminRoleRef(uid string) *docstore.DocRef {
	return ref(CollectionAdminRoles, uid)
}

func UserProfileRef(uid string) *docstore.DocRef {
	return ref(CollectionUsers, uid)
}

func ref(collection string, id string) *docstore.DocRef {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return docstore.Doc(collection, id)
}

// FilterByName narrows an already-loaded directory by a case-insensitive
// name search.
func FilterByName(talents []Talent, term string) []Talent {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return talents
	}

	out := make([]Talent, 0, len(talents))
	for _, talent := range talents {
		if strings.Contains(strings.ToLower(talent.Name), term) {
			out = append(out, talent)
		}
	}
	return out
}
