package appcore

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"agency/framework"
	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/identity"
	"agency/internal/markdown"
	"go.uber.org/zap"
)

const (
	siteName        = "Agency"
	siteDescription = "Creative talent, represented with care."
	latestPostCount = 3
)

func (c *Context) chrome(ctx context.Context, r *http.Request, title string, description string) (Chrome, *identity.User, error) {
	user, err := c.Viewer(ctx, r)
	if err != nil {
		return Chrome{}, nil, err
	}

	isAdmin := false
	if user != nil {
		isAdmin, err = c.isAdmin(ctx, user.UID)
		if err != nil {
			c.logger.Warn("admin lookup failed", zap.String("uid", user.UID), zap.Error(err))
			isAdmin = false
		}
	}

	if title == "" {
		title = siteName
	} else {
		title = title + " | " + siteName
	}
	if description == "" {
		description = siteDescription
	}

	return Chrome{
		PageTitle:    title,
		Description:  description,
		ActivePath:   r.URL.Path,
		Viewer:       user,
		IsAdmin:      isAdmin,
		CanonicalURL: c.rootURL + r.URL.Path,
	}, user, nil
}

func LoadHomePage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (HomePageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "", "")
	if err != nil {
		return HomePageView{}, err
	}

	featured, err := settleCollection[agency.Talent](ctx, appCtx, agency.FeaturedTalents())
	if err != nil {
		return HomePageView{}, err
	}
	posts, err := settleCollection[agency.BlogPost](ctx, appCtx, agency.BlogPosts().Take(latestPostCount))
	if err != nil {
		return HomePageView{}, err
	}

	return HomePageView{
		Chrome:   chrome,
		Featured: featured,
		Posts:    newPostCards(posts.Data),
	}, nil
}

func LoadDirectoryPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (DirectoryPageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "Our Talent", "Browse the actresses, artists, models, creators and photographers we represent.")
	if err != nil {
		return DirectoryPageView{}, err
	}

	state := DirectorySignalState{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
	}.normalized()

	talents, err := settleCollection[agency.Talent](ctx, appCtx, agency.TalentDirectory(state.Category))
	if err != nil {
		return DirectoryPageView{}, err
	}

	return NewDirectoryPageView(chrome, state, talents), nil
}

// NewDirectoryPageView is shared with the live directory stream.
func NewDirectoryPageView(chrome Chrome, state DirectorySignalState, talents binding.State[[]agency.Talent]) DirectoryPageView {
	return DirectoryPageView{
		Chrome:     chrome,
		Category:   state.Category,
		Search:     state.Search,
		Categories: agency.Categories,
		Talents:    talents,
		Visible:    agency.FilterByName(talents.Data, state.Search),
	}
}

// ParseDirectorySignals normalises signals read from a live request.
func ParseDirectorySignals(state DirectorySignalState) DirectorySignalState {
	return state.normalized()
}

func LoadTalentPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.IDParams,
) (TalentPageView, error) {
	state, err := settleDocument[agency.Talent](ctx, appCtx, agency.TalentRef(params.ID))
	if err != nil {
		return TalentPageView{}, err
	}
	if state.Err != nil {
		return TalentPageView{}, state.Err
	}
	if state.Data == nil {
		return TalentPageView{}, errPageNotFound
	}

	talent := *state.Data
	chrome, user, err := appCtx.chrome(ctx, r, talent.Name, talent.Category.Label()+" represented by "+siteName+".")
	if err != nil {
		return TalentPageView{}, err
	}

	isOwner := user != nil && user.UID == talent.ID
	if !talent.Approved && !isOwner && !chrome.IsAdmin {
		return TalentPageView{}, errPageNotFound
	}

	return TalentPageView{
		Chrome:  chrome,
		Talent:  talent,
		IsOwner: isOwner,
	}, nil
}

func LoadBlogPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (BlogPageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "Journal", "Stories, interviews and notes from the agency.")
	if err != nil {
		return BlogPageView{}, err
	}

	posts, err := settleCollection[agency.BlogPost](ctx, appCtx, agency.BlogPosts())
	if err != nil {
		return BlogPageView{}, err
	}

	return BlogPageView{
		Chrome: chrome,
		Posts:  newPostCards(posts.Data),
		Err:    posts.Err,
	}, nil
}

func LoadPostPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.IDParams,
) (PostPageView, error) {
	state, err := settleDocument[agency.BlogPost](ctx, appCtx, agency.BlogPostRef(params.ID))
	if err != nil {
		return PostPageView{}, err
	}
	if state.Err != nil {
		return PostPageView{}, state.Err
	}
	if state.Data == nil {
		return PostPageView{}, errPageNotFound
	}

	post := *state.Data
	card := newPostCard(post)
	chrome, _, err := appCtx.chrome(ctx, r, post.Title, card.Excerpt)
	if err != nil {
		return PostPageView{}, err
	}

	return PostPageView{
		Chrome:  chrome,
		Post:    card,
		Content: markdown.ToHTML(post.Content, markdown.Options{RootURL: appCtx.rootURL}),
	}, nil
}

func LoadContactPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (ContactPageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "Contact", "Bookings, collaborations and press enquiries.")
	if err != nil {
		return ContactPageView{}, err
	}

	return ContactPageView{Chrome: chrome, Form: emptyForm()}, nil
}

func LoadJoinPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (JoinPageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "Join the roster", "How to become represented by the agency.")
	if err != nil {
		return JoinPageView{}, err
	}

	return JoinPageView{Chrome: chrome}, nil
}

func LoadSignupPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AuthPageView, error) {
	return appCtx.authPage(ctx, r, authModeSignup)
}

func LoadLoginPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AuthPageView, error) {
	return appCtx.authPage(ctx, r, authModeLogin)
}

const (
	authModeSignup = "signup"
	authModeLogin  = "login"
)

func (c *Context) authPage(ctx context.Context, r *http.Request, mode string) (AuthPageView, error) {
	title := "Sign in"
	if mode == authModeSignup {
		title = "Create an account"
	}

	chrome, user, err := c.chrome(ctx, r, title, "")
	if err != nil {
		return AuthPageView{}, err
	}
	next := safeNext(r.FormValue("next"), "")
	if user != nil {
		return AuthPageView{}, framework.RedirectTo(safeNext(next, "/profile"))
	}

	return AuthPageView{
		Chrome: chrome,
		Mode:   mode,
		Next:   next,
		Form:   emptyForm(),
	}, nil
}

func LoadCompleteProfilePage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (ProfileFormPageView, error) {
	chrome, user, err := appCtx.chrome(ctx, r, "Complete your profile", "")
	if err != nil {
		return ProfileFormPageView{}, err
	}
	if user == nil {
		return ProfileFormPageView{}, redirectToLogin(r)
	}

	existing, err := appCtx.ownTalent(ctx, user)
	if err != nil {
		return ProfileFormPageView{}, err
	}
	if existing != nil {
		return ProfileFormPageView{}, framework.RedirectTo("/profile")
	}

	return newProfileFormPage(chrome, profileModeComplete, FormState{
		Values: map[string]string{"currency": "USD"},
	}), nil
}

func LoadProfilePage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (ProfilePageView, error) {
	chrome, user, err := appCtx.chrome(ctx, r, "Your profile", "")
	if err != nil {
		return ProfilePageView{}, err
	}
	if user == nil {
		return ProfilePageView{}, redirectToLogin(r)
	}

	talent, err := appCtx.ownTalent(ctx, user)
	if err != nil {
		return ProfilePageView{}, err
	}
	if talent == nil {
		return ProfilePageView{}, framework.RedirectTo("/complete-profile")
	}

	return ProfilePageView{Chrome: chrome, Talent: *talent}, nil
}

func LoadProfileEditPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (ProfileFormPageView, error) {
	chrome, user, err := appCtx.chrome(ctx, r, "Edit profile", "")
	if err != nil {
		return ProfileFormPageView{}, err
	}
	if user == nil {
		return ProfileFormPageView{}, redirectToLogin(r)
	}

	talent, err := appCtx.ownTalent(ctx, user)
	if err != nil {
		return ProfileFormPageView{}, err
	}
	if talent == nil {
		return ProfileFormPageView{}, framework.RedirectTo("/complete-profile")
	}

	return newProfileFormPage(chrome, profileModeEdit, FormState{Values: talentFormValues(*talent)}), nil
}

const (
	profileModeComplete = "complete"
	profileModeEdit     = "edit"
)

func newProfileFormPage(chrome Chrome, mode string, form FormState) ProfileFormPageView {
	action := "/complete-profile"
	if mode == profileModeEdit {
		action = "/profile/edit"
	}
	return ProfileFormPageView{
		Chrome:     chrome,
		Mode:       mode,
		Action:     action,
		Form:       form,
		Categories: agency.Categories,
		Currencies: agency.Currencies,
	}
}

func talentFormValues(talent agency.Talent) map[string]string {
	values := map[string]string{
		"name":      talent.Name,
		"phone":     talent.Phone,
		"category":  string(talent.Category),
		"bio":       talent.Bio,
		"instagram": talent.Socials.Instagram,
		"twitter":   talent.Socials.Twitter,
		"tiktok":    talent.Socials.TikTok,
		"facebook":  talent.Socials.Facebook,
		"youtube":   talent.Socials.YouTube,
		"currency":  talent.Currency,
	}
	if talent.Rate != nil {
		values["rate"] = strconv.FormatFloat(*talent.Rate, 'f', -1, 64)
	}
	if values["currency"] == "" {
		values["currency"] = "USD"
	}
	return values
}

// ownTalent reads talents/{uid} through a document hook, nil when the
// viewer has not completed a profile yet.
func (c *Context) ownTalent(ctx context.Context, user *identity.User) (*agency.Talent, error) {
	state, err := settleDocument[agency.Talent](UserContext(ctx, user), c, agency.TalentRef(user.UID))
	if err != nil {
		return nil, err
	}
	if state.Err != nil {
		return nil, state.Err
	}
	return state.Data, nil
}

func LoadTalentMatchPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (MatchPageView, error) {
	chrome, _, err := appCtx.chrome(ctx, r, "Talent match", "Describe your project and get talent suggestions.")
	if err != nil {
		return MatchPageView{}, err
	}

	return MatchPageView{Chrome: chrome, Form: emptyForm()}, nil
}

// requireAdmin resolves the admin role through the admin watcher. Anyone
// who is not an admin is sent to the login page.
func (c *Context) requireAdmin(ctx context.Context, r *http.Request, title string) (Chrome, context.Context, error) {
	chrome, user, err := c.chrome(ctx, r, title, "")
	if err != nil {
		return Chrome{}, nil, err
	}
	if user == nil {
		return Chrome{}, nil, redirectToLogin(r)
	}

	status, err := settleAdmin(ctx, c, c.SessionToken(r))
	if err != nil {
		return Chrome{}, nil, err
	}
	if !status.IsAdmin {
		c.logger.Info("admin page refused", zap.String("uid", user.UID), zap.String("path", r.URL.Path))
		return Chrome{}, nil, redirectToLogin(r)
	}

	chrome.IsAdmin = true
	return chrome, UserContext(ctx, user), nil
}

func LoadDashboardPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (DashboardPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "Dashboard")
	if err != nil {
		return DashboardPageView{}, err
	}

	stats, err := settleDashboard(adminCtx, appCtx)
	if err != nil {
		return DashboardPageView{}, err
	}

	return DashboardPageView{Chrome: chrome, Stats: stats}, nil
}

// AdminContext is requireAdmin for the live dashboard stream.
func (c *Context) AdminContext(ctx context.Context, r *http.Request) (context.Context, error) {
	_, adminCtx, err := c.requireAdmin(ctx, r, "")
	return adminCtx, err
}

func LoadAdminTalentPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminTalentPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "Talent")
	if err != nil {
		return AdminTalentPageView{}, err
	}

	talents, err := settleCollection[agency.Talent](adminCtx, appCtx, agency.AllTalents())
	if err != nil {
		return AdminTalentPageView{}, err
	}

	return AdminTalentPageView{Chrome: chrome, Talents: talents}, nil
}

func LoadAdminBlogPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminBlogPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "Blog")
	if err != nil {
		return AdminBlogPageView{}, err
	}

	posts, err := settleCollection[agency.BlogPost](adminCtx, appCtx, agency.BlogPosts())
	if err != nil {
		return AdminBlogPageView{}, err
	}

	return AdminBlogPageView{
		Chrome: chrome,
		Posts:  newPostCards(posts.Data),
		Err:    posts.Err,
	}, nil
}

func LoadAdminMessagesPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminMessagesPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "Messages")
	if err != nil {
		return AdminMessagesPageView{}, err
	}

	messages, err := settleCollection[agency.Message](adminCtx, appCtx, agency.AllMessages())
	if err != nil {
		return AdminMessagesPageView{}, err
	}

	return AdminMessagesPageView{Chrome: chrome, Messages: messages}, nil
}

func LoadAdminNewTalentPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminFormPageView, error) {
	chrome, _, err := appCtx.requireAdmin(ctx, r, "New talent")
	if err != nil {
		return AdminFormPageView{}, err
	}

	return AdminFormPageView{Chrome: chrome, Form: emptyForm(), Categories: agency.Categories}, nil
}

func LoadAdminNewPostPage(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminFormPageView, error) {
	chrome, _, err := appCtx.requireAdmin(ctx, r, "New post")
	if err != nil {
		return AdminFormPageView{}, err
	}

	return AdminFormPageView{Chrome: chrome, Form: emptyForm()}, nil
}

func NewNotFoundPageView(path string) NotFoundPageView {
	if path == "" {
		path = "/"
	}
	return NotFoundPageView{
		Chrome: Chrome{
			PageTitle:   "Page not found | " + siteName,
			Description: siteDescription,
			ActivePath:  path,
		},
		Path: path,
	}
}

func loadError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
