package web

import (
	"net/http"
	"time"

	"agency/framework"
	"agency/internal/agency"
	"agency/internal/web/appcore"
	"agency/internal/web/components"
)

type appHandler = framework.RouteHandler[*appcore.Context]

func rootLayouts[VM appcore.ChromeView]() []framework.LayoutRenderer[VM] {
	return []framework.LayoutRenderer[VM]{components.RootLayout[VM]}
}

func adminLayouts[VM appcore.ChromeView]() []framework.LayoutRenderer[VM] {
	return []framework.LayoutRenderer[VM]{components.RootLayout[VM], components.AdminLayout[VM]}
}

func pageModule[P any, VM appcore.ChromeView](
	pattern string,
	parse framework.ParamsParser[P],
	load framework.PageLoader[*appcore.Context, P, VM],
	render framework.PageRenderer[VM],
	layouts []framework.LayoutRenderer[VM],
) framework.PageModule[*appcore.Context, P, VM] {
	return framework.PageModule[*appcore.Context, P, VM]{
		Pattern:     pattern,
		ParseParams: parse,
		Load:        load,
		Render:      render,
		Layouts:     layouts,
	}
}

func page[VM appcore.ChromeView](
	pattern string,
	load framework.PageLoader[*appcore.Context, framework.EmptyParams, VM],
	render framework.PageRenderer[VM],
) appHandler {
	return framework.PageOnlyRouteHandler[*appcore.Context, framework.EmptyParams, VM]{
		Page: pageModule(pattern, framework.ParseEmptyParams, load, render, rootLayouts[VM]()),
	}
}

func idPage[VM appcore.ChromeView](
	pattern string,
	load framework.PageLoader[*appcore.Context, framework.IDParams, VM],
	render framework.PageRenderer[VM],
) appHandler {
	return framework.PageOnlyRouteHandler[*appcore.Context, framework.IDParams, VM]{
		Page: pageModule(pattern, framework.ParseIDParams, load, render, rootLayouts[VM]()),
	}
}

func form[VM appcore.ChromeView](
	pattern string,
	load framework.PageLoader[*appcore.Context, framework.EmptyParams, VM],
	submit framework.FormSubmitter[*appcore.Context, framework.EmptyParams, VM],
	render framework.PageRenderer[VM],
	layouts []framework.LayoutRenderer[VM],
) appHandler {
	return framework.FormRouteHandler[*appcore.Context, framework.EmptyParams, VM]{
		Page:   pageModule(pattern, framework.ParseEmptyParams, load, render, layouts),
		Submit: submit,
	}
}

func adminPage[VM appcore.ChromeView](
	pattern string,
	load framework.PageLoader[*appcore.Context, framework.EmptyParams, VM],
	render framework.PageRenderer[VM],
) appHandler {
	return framework.PageOnlyRouteHandler[*appcore.Context, framework.EmptyParams, VM]{
		Page: pageModule(pattern, framework.ParseEmptyParams, load, render, adminLayouts[VM]()),
	}
}

func stream(pattern string, serve framework.StreamHandler[*appcore.Context, framework.EmptyParams], methods ...string) appHandler {
	return framework.StreamRouteHandler[*appcore.Context, framework.EmptyParams]{
		Pattern:     pattern,
		Methods:     methods,
		ParseParams: framework.ParseEmptyParams,
		Serve:       serve,
	}
}

func idAction(pattern string, serve framework.StreamHandler[*appcore.Context, framework.IDParams]) appHandler {
	return framework.StreamRouteHandler[*appcore.Context, framework.IDParams]{
		Pattern:     pattern,
		Methods:     []string{http.MethodPost},
		ParseParams: framework.ParseIDParams,
		Serve:       serve,
	}
}

// Handlers lists every route of the site.
func Handlers() []appHandler {
	return []appHandler{
		page[appcore.HomePageView]("/", appcore.LoadHomePage, components.HomePage),
		page[appcore.DirectoryPageView]("/talent", appcore.LoadDirectoryPage, components.DirectoryPage),
		stream("/talent/live", serveDirectoryLive),
		idPage[appcore.TalentPageView]("/talent/[id]", appcore.LoadTalentPage, components.TalentPage),
		page[appcore.BlogPageView]("/blog", appcore.LoadBlogPage, components.BlogPage),
		idPage[appcore.PostPageView]("/blog/[id]", appcore.LoadPostPage, components.PostPage),
		form[appcore.ContactPageView]("/contact", appcore.LoadContactPage, appcore.SubmitContact, components.ContactPage, rootLayouts[appcore.ContactPageView]()),
		page[appcore.JoinPageView]("/join", appcore.LoadJoinPage, components.JoinPage),
		form[appcore.MatchPageView]("/talent-match", appcore.LoadTalentMatchPage, appcore.SubmitTalentMatch, components.MatchPage, rootLayouts[appcore.MatchPageView]()),
		stream("/sitemap.xml", serveSitemap),
		stream("/ws/talents", serveTalentFeed),

		form[appcore.AuthPageView]("/signup", appcore.LoadSignupPage, appcore.SubmitSignup, components.AuthPage, rootLayouts[appcore.AuthPageView]()),
		form[appcore.AuthPageView]("/login", appcore.LoadLoginPage, appcore.SubmitLogin, components.AuthPage, rootLayouts[appcore.AuthPageView]()),
		stream("/logout", appcore.Logout, http.MethodPost),
		form[appcore.ProfileFormPageView]("/complete-profile", appcore.LoadCompleteProfilePage, appcore.SubmitCompleteProfile, components.ProfileFormPage, rootLayouts[appcore.ProfileFormPageView]()),
		page[appcore.ProfilePageView]("/profile", appcore.LoadProfilePage, components.ProfilePage),
		form[appcore.ProfileFormPageView]("/profile/edit", appcore.LoadProfileEditPage, appcore.SubmitProfileEdit, components.ProfileFormPage, rootLayouts[appcore.ProfileFormPageView]()),

		stream("/admin", redirectToDashboard),
		adminPage[appcore.DashboardPageView]("/admin/dashboard", appcore.LoadDashboardPage, components.DashboardPage),
		stream("/admin/dashboard/live", serveDashboardLive),
		adminPage[appcore.AdminTalentPageView]("/admin/talent", appcore.LoadAdminTalentPage, components.AdminTalentPage),
		form[appcore.AdminFormPageView]("/admin/talent/new", appcore.LoadAdminNewTalentPage, appcore.SubmitAdminNewTalent, components.AdminTalentFormPage, adminLayouts[appcore.AdminFormPageView]()),
		idAction("/admin/talent/[id]/approval", appcore.SetTalentApproval),
		adminPage[appcore.AdminBlogPageView]("/admin/blog", appcore.LoadAdminBlogPage, components.AdminBlogPage),
		form[appcore.AdminFormPageView]("/admin/blog/new", appcore.LoadAdminNewPostPage, appcore.SubmitAdminNewPost, components.AdminPostFormPage, adminLayouts[appcore.AdminFormPageView]()),
		adminPage[appcore.AdminMessagesPageView]("/admin/messages", appcore.LoadAdminMessagesPage, components.AdminMessagesPage),
		idAction("/admin/messages/[id]/read", appcore.MarkMessageRead),
	}
}

func redirectToDashboard(
	_ framework.RuntimeContext[*appcore.Context],
	_ http.ResponseWriter,
	_ *http.Request,
	_ framework.EmptyParams,
) error {
	return framework.RedirectTo("/admin/dashboard")
}

func serveSitemap(
	runtime framework.RuntimeContext[*appcore.Context],
	w http.ResponseWriter,
	r *http.Request,
	_ framework.EmptyParams,
) error {
	appCtx := runtime.AppContext()
	entries, err := agency.SitemapEntries(r.Context(), appCtx.Store(), appCtx.RootURL(), time.Now())
	if err != nil {
		return err
	}
	body, err := agency.RenderSitemap(entries)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
	return nil
}
