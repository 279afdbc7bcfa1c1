package appcore

import (
	"encoding/json"
	"strconv"
	"strings"

	"agency/internal/agency"
	"agency/internal/markdown"
)

const excerptLength = 160

// DirectorySignalState is the datastar signal set of the talent directory.
type DirectorySignalState struct {
	Category string `json:"category"`
	Search   string `json:"q"`
}

func (s DirectorySignalState) normalized() DirectorySignalState {
	category := strings.TrimSpace(s.Category)
	if category == "" {
		category = "all"
	}
	if normalized, ok := agency.NormalizeCategory(category); ok {
		category = string(normalized)
	}
	return DirectorySignalState{
		Category: category,
		Search:   strings.TrimSpace(s.Search),
	}
}

func DirectorySignalsJSON(view DirectoryPageView) string {
	return marshalSignals(DirectorySignalState{
		Category: view.Category,
		Search:   view.Search,
	})
}

func marshalSignals[T interface{}](value T) string {
	payload, err := json.Marshal(value)
	if err != nil {
		return "{}"
	}

	return string(payload)
}

func CategoryChipClass(active bool) string {
	if active {
		return "chip active"
	}
	return "chip"
}

func NavLinkClass(activePath string, href string) string {
	if activePath == href || (href != "/" && strings.HasPrefix(activePath, href+"/")) {
		return "nav-link active"
	}
	return "nav-link"
}

func StatusBadgeClass(approved bool) string {
	if approved {
		return "badge approved"
	}
	return "badge pending"
}

func MessageRowClass(read bool) string {
	if read {
		return "message-row"
	}
	return "message-row unread"
}

func FormatRate(talent agency.Talent) string {
	if talent.Rate == nil {
		return ""
	}
	currency := talent.Currency
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + strconv.FormatFloat(*talent.Rate, 'f', -1, 64)
}

func Initials(name string) string {
	fields := strings.Fields(name)
	var out strings.Builder
	for _, field := range fields {
		if out.Len() >= 2 {
			break
		}
		out.WriteString(strings.ToUpper(string([]rune(field)[:1])))
	}
	return out.String()
}

func TalentImage(talent agency.Talent) string {
	if talent.ProfileImage != "" {
		return talent.ProfileImage
	}
	return "https://picsum.photos/seed/" + talent.ID + "/400/500"
}

func newPostCard(post agency.BlogPost) PostCard {
	return PostCard{
		ID:            post.ID,
		Title:         post.Title,
		Excerpt:       markdown.Excerpt(post.Content, excerptLength),
		Author:        post.Author,
		Date:          agency.FormatDate(post.PublishedAt),
		Tags:          post.Tags,
		Minutes:       markdown.ReadingMinutes(post.Content),
		FeaturedImage: post.FeaturedImage,
	}
}

func newPostCards(posts []agency.BlogPost) []PostCard {
	cards := make([]PostCard, 0, len(posts))
	for _, post := range posts {
		cards = append(cards, newPostCard(post))
	}
	return cards
}

func ReadingTime(minutes int) string {
	return strconv.Itoa(minutes) + " min read"
}
