package agency

import (
	"context"
	"fmt"

	"agency/internal/docstore"
	"go.uber.org/zap"
)

type seedDoc struct {
	collection string
	id         string
	data       any
}

func floatPtr(v float64) *float64 {
	return &v
}

// Placeholder documents written by `agency seed`. Some talents use the legacy
// title-case category spelling; Seed normalises it on write.
var seedDocs = []seedDoc{
	{CollectionTalents, "patricia-wambui", Talent{
		Name:     "Patricia Wambui",
		Category: "Actress",
		Bio:      "Award-winning actress from Kenya, known for her captivating performances in both theatre and film. Patricia has a passion for storytelling that reflects the African experience.",
		Email:    "patricia@wcta.africa",
		Phone:    "+254700000000",
		Socials: Socials{
			Instagram: "https://instagram.com/patricia",
			Twitter:   "https://twitter.com/patricia",
		},
		Portfolio: []PortfolioItem{
			{Image: "talent-1-portfolio-1", Caption: "Film Premiere 2024"},
			{Image: "talent-1-portfolio-2", Caption: `On the set of "Nairobi Half Life"`},
		},
		ProfileImage: "talent-1-profile",
		Rate:         floatPtr(1500),
		Currency:     "USD",
		Approved:     true,
		CreatedAt:    "2025-11-10T00:00:00Z",
	}},
	{CollectionTalents, "david-ochieng", Talent{
		Name:     "David Ochieng",
		Category: "Artist",
		Bio:      "A contemporary visual artist whose work explores themes of identity and urbanization in modern Africa. His vibrant murals have gained international acclaim.",
		Email:    "david@wcta.africa",
		Phone:    "+254711111111",
		Socials: Socials{
			Instagram: "https://instagram.com/david",
		},
		Portfolio: []PortfolioItem{
			{Image: "talent-2-portfolio-1", Caption: "Live painting at Nyege Nyege Festival"},
		},
		ProfileImage: "talent-2-profile",
		Approved:     true,
		CreatedAt:    "2025-10-25T00:00:00Z",
	}},
	{CollectionTalents, "aisha-khan", Talent{
		Name:     "Aisha Khan",
		Category: CategoryModel,
		Bio:      "An international fashion model who has graced the runways of Paris, Milan, and New York. Aisha is a strong advocate for diversity and inclusion in the fashion industry.",
		Email:    "aisha@wcta.africa",
		Phone:    "+254722222222",
		Socials: Socials{
			Instagram: "https://instagram.com/aisha",
			TikTok:    "https://tiktok.com/@aisha",
		},
		Portfolio: []PortfolioItem{
			{Image: "talent-3-portfolio-1", Caption: "Vogue Arabia Cover Shoot"},
		},
		ProfileImage: "talent-3-profile",
		Rate:         floatPtr(250000),
		Currency:     "KES",
		Approved:     true,
		CreatedAt:    "2025-09-15T00:00:00Z",
	}},
	{CollectionTalents, "samuel-maina", Talent{
		Name:     "Samuel Maina",
		Category: CategoryContentCreator,
		Bio:      "A popular YouTuber and content creator known for his witty commentary and engaging travel vlogs across Africa. He has a knack for capturing the continent's hidden gems.",
		Email:    "samuel@wcta.africa",
		Phone:    "+254733333333",
		Socials: Socials{
			Instagram: "https://instagram.com/samuel",
			Twitter:   "https://twitter.com/samuel",
			YouTube:   "https://youtube.com/@samuel",
		},
		Portfolio: []PortfolioItem{
			{Image: "talent-5-portfolio-1", Caption: "Filming in the Maasai Mara"},
		},
		ProfileImage: "talent-5-profile",
		Approved:     false,
		CreatedAt:    "2026-01-05T00:00:00Z",
	}},
	{CollectionBlogPosts, "blog001", BlogPost{
		Slug:   "the-rise-of-african-creatives",
		Title:  "The Rise of African Creatives",
		Author: "W. Chloe Admin",
		Content: `Africa's creative economy is booming, and the world is taking notice. From Nollywood to the vibrant art scenes in Nairobi and Lagos, African talent is reshaping global culture.

At W. Chloe, we are at the forefront of this movement, nurturing and promoting the continent's brightest stars and connecting them with brands and audiences worldwide.

## Challenges and Opportunities

Access to funding, infrastructure and global markets remain hurdles. Agencies bridge these gaps with management, mentorship and strategic partnerships.`,
		PublishedAt:   "2025-11-10T00:00:00Z",
		Tags:          []string{"Africa", "Creativity", "Entertainment"},
		FeaturedImage: "blog-1-featured",
	}},
	{CollectionBlogPosts, "blog002", BlogPost{
		Slug:   "navigating-the-digital-art-scene",
		Title:  "Navigating the Digital Art Scene",
		Author: "Jane Doe",
		Content: `The art world has been radically transformed by digital technology. For artists, this means new tools for creation and new avenues for exhibition and sales.

Success in the digital art world requires more than talent. Building a strong online presence on platforms like Instagram and Behance is essential for visibility.

## The Role of an Agency

We help our artists develop a cohesive digital strategy, from managing social media to launching online collections.`,
		PublishedAt:   "2025-10-20T00:00:00Z",
		Tags:          []string{"Digital Art", "NFTs", "Technology"},
		FeaturedImage: "blog-2-featured",
	}},
	{CollectionBlogPosts, "blog003", BlogPost{
		Slug:   "behind-the-scenes-a-day-with-a-top-model",
		Title:  "Behind the Scenes: A Day with a Top Model",
		Author: "W. Chloe Admin",
		Content: `What is a day in the life of a top model really like? It's early mornings, long hours and relentless dedication.

Her day started at 5 AM with a workout. By 7 AM she was on set for a major fashion campaign, a whirlwind of makeup, wardrobe changes and endless poses under hot lights.`,
		PublishedAt:   "2025-09-30T00:00:00Z",
		Tags:          []string{"Fashion", "Modeling", "Lifestyle"},
		FeaturedImage: "blog-3-featured",
	}},
	{CollectionMessages, "msg001", Message{
		Name:      "John Doe",
		Email:     "john@example.com",
		Subject:   "Booking Inquiry for Patricia Wambui",
		Message:   "We'd like to feature Patricia in our upcoming ad campaign for a new line of sustainable products. Please let us know her availability and rates.",
		CreatedAt: "2025-11-10T10:00:00Z",
	}},
	{CollectionMessages, "msg002", Message{
		Name:      "BrandCorp",
		Email:     "contact@brandcorp.com",
		Subject:   "Collaboration with David Ochieng",
		Message:   "We are launching a new creative space in downtown Nairobi and would love for David Ochieng to create a mural.",
		CreatedAt: "2025-11-09T15:30:00Z",
	}},
	{CollectionMessages, "msg003", Message{
		Name:      "Fan Mail",
		Email:     "fan@gmail.com",
		Subject:   "Message for Aisha Khan",
		Message:   "Aisha is such an inspiration! Thank you for representing such amazing talent.",
		CreatedAt: "2025-11-08T12:00:00Z",
		Read:      true,
	}},
}

// Seed writes the placeholder documents that are not already present and
// returns how many it wrote.
func Seed(ctx context.Context, store docstore.Store, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx = docstore.Privileged(ctx)

	written := 0
	for _, doc := range seedDocs {
		ref := docstore.Doc(doc.collection, doc.id)
		existing, err := store.Get(ctx, ref)
		if err != nil {
			return written, fmt.Errorf("seed %s: %w", ref.Path(), err)
		}
		if existing.Exists {
			continue
		}
		data := doc.data
		if talent, ok := data.(Talent); ok {
			if category, ok := NormalizeCategory(string(talent.Category)); ok {
				talent.Category = category
			}
			data = talent
		}
		if err := store.Set(ctx, ref, data); err != nil {
			return written, fmt.Errorf("seed %s: %w", ref.Path(), err)
		}
		written++
	}

	logger.Info("seed complete", zap.Int("written", written), zap.Int("total", len(seedDocs)))
	return written, nil
}
