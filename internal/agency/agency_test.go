package agency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agency/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *docstore.Badger {
	t.Helper()

	store, err := OpenStore(docstore.Options{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newService(t *testing.T, store docstore.Store) *Service {
	t.Helper()
	return NewService(store, WithLogger(zaptest.NewLogger(t)), WithClock(func() time.Time { return fixedNow }))
}

func adminContext(t *testing.T, svc *Service) context.Context {
	t.Helper()
	require.NoError(t, svc.GrantAdmin(context.Background(), "admin-1", "admin@example.com"))
	return docstore.WithUID(context.Background(), "admin-1")
}

func validProfile() ProfileInput {
	return ProfileInput{
		Name:      "Wanjiru Kamau",
		Phone:     "+254700123456",
		Category:  "photographer",
		Bio:       "Documentary photographer based in Nairobi.",
		Instagram: "https://instagram.com/wanjiru",
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]Category{
		"actress":         CategoryActress,
		"Actress":         CategoryActress,
		"Content Creator": CategoryContentCreator,
		"content-creator": CategoryContentCreator,
		" Photographer ":  CategoryPhotographer,
	}
	for raw, want := range cases {
		got, ok := NormalizeCategory(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := NormalizeCategory("dancer")
	assert.False(t, ok)
	assert.Equal(t, "Content Creator", CategoryContentCreator.Label())
}

func TestTalentDecodesLegacyCategory(t *testing.T) {
	var talent Talent
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Samuel","category":"Content Creator"}`), &talent))
	assert.Equal(t, CategoryContentCreator, talent.Category)
}

func TestTalentDirectoryQuery(t *testing.T) {
	assert.Equal(t, ApprovedTalents().Key(), TalentDirectory("").Key())
	assert.Equal(t, ApprovedTalents().Key(), TalentDirectory("all").Key())
	assert.Equal(t, TalentDirectory("content-creator").Key(), TalentDirectory("Content Creator").Key())
	assert.NotEqual(t, ApprovedTalents().Key(), TalentDirectory("dancer").Key())
	assert.Nil(t, TalentRef(" "))
	assert.Equal(t, "roles_admin/u1", AdminRoleRef("u1").Path())
}

func TestFilterByName(t *testing.T) {
	talents := []Talent{{Name: "Patricia Wambui"}, {Name: "David Ochieng"}}
	assert.Len(t, FilterByName(talents, ""), 2)
	assert.Equal(t, []Talent{{Name: "David Ochieng"}}, FilterByName(talents, "ochi"))
	assert.Empty(t, FilterByName(talents, "zz"))
}

func TestValidateReportsFieldMessages(t *testing.T) {
	svc := NewService(nil)

	err := svc.Validate(ContactInput{Name: "A", Email: "nope", Subject: "Hi", Message: "short"})
	fields, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{
		"name":    "Please enter your name.",
		"email":   "Please enter a valid email address.",
		"subject": "Subject must be at least 5 characters.",
		"message": "Message must be at least 10 characters.",
	}, fields)

	err = svc.Validate(SignUpInput{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2"})
	fields, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{"confirmPassword": "Passwords don't match."}, fields)

	assert.NoError(t, svc.Validate(validProfile()))

	profile := validProfile()
	profile.Category = "dancer"
	rate := -1.0
	profile.Rate = &rate
	fields, ok = AsValidation(svc.Validate(profile))
	require.True(t, ok)
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "rate")
}

func TestSlugifyAndTags(t *testing.T) {
	assert.Equal(t, "behind-the-scenes-a-day-with-a-top-model", Slugify("Behind the Scenes: A Day with a Top Model!"))
	assert.Equal(t, []string{"Africa", "Art", "Fashion"}, SplitTags("Africa, Art , ,Fashion"))
}

func TestCreateMessageIsPublicAndUnread(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	ctx := context.Background()

	ref, err := svc.CreateMessage(ctx, ContactInput{
		Name:    "John Doe",
		Email:   "john@example.com",
		Subject: "Booking inquiry",
		Message: "We would like to book Patricia for a campaign.",
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, ref)
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied, "visitors cannot read messages")

	snapshot, err := store.Get(adminContext(t, svc), ref)
	require.NoError(t, err)
	var message Message
	require.NoError(t, json.Unmarshal(snapshot.Data, &message))
	assert.False(t, message.Read)
	assert.Equal(t, "2026-02-14T09:30:00Z", message.CreatedAt)
}

func TestCreateMessageRejectsInvalidInput(t *testing.T) {
	svc := newService(t, newStore(t))

	_, err := svc.CreateMessage(context.Background(), ContactInput{Name: "J"})
	_, ok := AsValidation(err)
	assert.True(t, ok)
}

func TestCompleteAndUpdateProfile(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	ctx := docstore.WithUID(context.Background(), "u1")

	require.NoError(t, svc.CompleteProfile(ctx, "u1", "wanjiru@example.com", validProfile()))
	assert.ErrorIs(t, svc.CompleteProfile(ctx, "u1", "wanjiru@example.com", validProfile()), ErrProfileExists)

	snapshot, err := store.Get(ctx, TalentRef("u1"))
	require.NoError(t, err)
	var talent Talent
	require.NoError(t, json.Unmarshal(snapshot.Data, &talent))
	assert.False(t, talent.Approved)
	assert.Equal(t, CategoryPhotographer, talent.Category)
	assert.Equal(t, "wanjiru@example.com", talent.Email)

	update := validProfile()
	update.Name = "Wanjiru K."
	update.Category = "Artist"
	rate := 300.0
	update.Rate = &rate
	update.Currency = "EUR"
	require.NoError(t, svc.UpdateProfile(ctx, "u1", update))

	snapshot, err = store.Get(ctx, TalentRef("u1"))
	require.NoError(t, err)
	talent = Talent{}
	require.NoError(t, json.Unmarshal(snapshot.Data, &talent))
	assert.Equal(t, "Wanjiru K.", talent.Name)
	assert.Equal(t, CategoryArtist, talent.Category)
	require.NotNil(t, talent.Rate)
	assert.Equal(t, 300.0, *talent.Rate)
	assert.Equal(t, "2026-02-14T09:30:00Z", talent.CreatedAt)
}

func TestOwnerCannotApproveThemselves(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	ctx := docstore.WithUID(context.Background(), "u1")
	require.NoError(t, svc.CompleteProfile(ctx, "u1", "u1@example.com", validProfile()))

	err := svc.SetTalentApproval(ctx, "u1", true)
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	err = svc.UpdateProfile(docstore.WithUID(context.Background(), "u2"), "u1", validProfile())
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	require.NoError(t, svc.SetTalentApproval(adminContext(t, svc), "u1", true))
	assert.ErrorIs(t, svc.SetTalentApproval(adminContext(t, svc), "missing", true), ErrNotFound)
}

func TestUpdateProfileWithoutTalentDoc(t *testing.T) {
	svc := newService(t, newStore(t))
	err := svc.UpdateProfile(docstore.WithUID(context.Background(), "u9"), "u9", validProfile())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminWrites(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	visitor := docstore.WithUID(context.Background(), "u1")

	post := PostInput{
		Title:   "Lagos Fashion Week Recap",
		Author:  "Jane Doe",
		Tags:    "Fashion, Lagos",
		Content: "Lagos Fashion Week brought together designers, models and photographers from across the continent.",
	}
	_, err := svc.CreatePost(visitor, post)
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	admin := adminContext(t, svc)
	ref, err := svc.CreatePost(admin, post)
	require.NoError(t, err)

	snapshot, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	var stored BlogPost
	require.NoError(t, json.Unmarshal(snapshot.Data, &stored))
	assert.Equal(t, "lagos-fashion-week-recap", stored.Slug)
	assert.Equal(t, []string{"Fashion", "Lagos"}, stored.Tags)

	talentRef, err := svc.CreateTalent(admin, TalentInput{
		Name:     "Amani Otieno",
		Email:    "amani@example.com",
		Phone:    "+254799000000",
		Category: "Content Creator",
		Bio:      "Travel and food content creator from Kisumu.",
	})
	require.NoError(t, err)
	snapshot, err = store.Get(context.Background(), talentRef)
	require.NoError(t, err)
	var talent Talent
	require.NoError(t, json.Unmarshal(snapshot.Data, &talent))
	assert.True(t, talent.Approved)
	assert.Equal(t, CategoryContentCreator, talent.Category)

	msgRef, err := svc.CreateMessage(context.Background(), ContactInput{
		Name: "Ann", Email: "ann@example.com", Subject: "Hello there", Message: "Just saying hello to the team.",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.MarkMessageRead(visitor, msgRef.ID, true), docstore.ErrPermissionDenied)
	require.NoError(t, svc.MarkMessageRead(admin, msgRef.ID, true))
}

func TestRulesForLists(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	ctx := context.Background()

	_, err := Seed(ctx, store, zaptest.NewLogger(t))
	require.NoError(t, err)

	approved, err := store.Query(ctx, ApprovedTalents())
	require.NoError(t, err)
	assert.Len(t, approved.Docs, 3)

	_, err = store.Query(ctx, AllTalents())
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)
	_, err = store.Query(ctx, AllMessages())
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	all, err := store.Query(adminContext(t, svc), AllTalents())
	require.NoError(t, err)
	assert.Len(t, all.Docs, 4)

	_, err = store.Get(docstore.WithUID(ctx, "u1"), AdminRoleRef("admin-1"))
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)
	own, err := store.Get(docstore.WithUID(ctx, "admin-1"), AdminRoleRef("admin-1"))
	require.NoError(t, err)
	assert.True(t, own.Exists)

	err = store.Set(docstore.WithUID(ctx, "u1"), AdminRoleRef("u1"), AdminRole{})
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)
}

func TestSeedIsIdempotentAndNormalises(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	written, err := Seed(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, len(seedDocs), written)

	written, err = Seed(ctx, store, nil)
	require.NoError(t, err)
	assert.Zero(t, written)

	actresses, err := store.Query(ctx, TalentDirectory("actress"))
	require.NoError(t, err)
	require.Len(t, actresses.Docs, 1)
	assert.Equal(t, "patricia-wambui", actresses.Docs[0].ID())
}

func TestSitemap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := Seed(ctx, store, nil)
	require.NoError(t, err)

	entries, err := SitemapEntries(ctx, store, "https://wchloe.com/", fixedNow)
	require.NoError(t, err)
	assert.Len(t, entries, len(StaticRoutes)+3+3)
	assert.Equal(t, "https://wchloe.com", entries[0].Loc)
	assert.Equal(t, 1.0, entries[0].Priority)

	locs := make([]string, 0, len(entries))
	for _, entry := range entries {
		locs = append(locs, entry.Loc)
	}
	assert.Contains(t, locs, "https://wchloe.com/talent/aisha-khan")
	assert.NotContains(t, locs, "https://wchloe.com/talent/samuel-maina")
	assert.Contains(t, locs, "https://wchloe.com/blog/blog002")

	body, err := RenderSitemap(entries)
	require.NoError(t, err)
	assert.Contains(t, string(body), `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, string(body), "<loc>https://wchloe.com/contact</loc>")
}
