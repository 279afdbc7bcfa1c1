package appcore

import (
	"context"
	"errors"
	"net/http"

	"agency/framework"
	"agency/internal/agency"
	"agency/internal/identity"
	"agency/internal/talentmatch"
	"go.uber.org/zap"
)

func SubmitContact(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (ContactPageView, error) {
	view, err := LoadContactPage(ctx, appCtx, r, params)
	if err != nil {
		return ContactPageView{}, err
	}

	form := postedForm(r, "name", "email", "subject", "message")
	_, err = appCtx.service.CreateMessage(ctx, agency.ContactInput{
		Name:    form.Value("name"),
		Email:   form.Value("email"),
		Subject: form.Value("subject"),
		Message: form.Value("message"),
	})
	if err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return ContactPageView{}, loadError("submit contact", err)
	}

	view.Form = emptyForm()
	view.Form.Notice = "Thanks for reaching out. We'll be in touch soon."
	return view, nil
}

func SubmitSignup(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (AuthPageView, error) {
	view, err := LoadSignupPage(ctx, appCtx, r, params)
	if err != nil {
		return AuthPageView{}, err
	}

	form := postedForm(r, "email")
	input := agency.SignUpInput{
		Email:           form.Value("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
	}
	if err := appCtx.service.Validate(input); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return AuthPageView{}, loadError("validate signup", err)
	}

	session, err := appCtx.identity.SignUp(ctx, input.Email, input.Password)
	switch {
	case errors.Is(err, identity.ErrEmailInUse):
		view.Form = form.withFieldError("email", "An account with this email already exists.")
		return view, nil
	case errors.Is(err, identity.ErrWeakPassword):
		view.Form = form.withFieldError("password", "Password must be at least 6 characters.")
		return view, nil
	case err != nil:
		return AuthPageView{}, loadError("sign up", err)
	}

	if err := appCtx.service.CreateUserProfile(UserContext(ctx, &session.User), session.User.UID, session.User.Email); err != nil {
		return AuthPageView{}, loadError("sign up", err)
	}

	appCtx.logger.Info("account created", zap.String("uid", session.User.UID))
	return AuthPageView{}, &framework.Redirect{
		URL:     "/complete-profile",
		Status:  http.StatusSeeOther,
		Cookies: []*http.Cookie{appCtx.sessionCookieFor(session)},
	}
}

func SubmitLogin(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (AuthPageView, error) {
	view, err := LoadLoginPage(ctx, appCtx, r, params)
	if err != nil {
		return AuthPageView{}, err
	}

	form := postedForm(r, "email")
	input := agency.LoginInput{
		Email:    form.Value("email"),
		Password: r.PostForm.Get("password"),
	}
	if err := appCtx.service.Validate(input); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return AuthPageView{}, loadError("validate login", err)
	}

	session, err := appCtx.identity.SignIn(ctx, input.Email, input.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		form.FormError = "Invalid email or password."
		view.Form = form
		return view, nil
	}
	if err != nil {
		return AuthPageView{}, loadError("sign in", err)
	}

	fallback := "/profile"
	if isAdmin, err := appCtx.isAdmin(ctx, session.User.UID); err == nil && isAdmin {
		fallback = "/admin/dashboard"
	}

	return AuthPageView{}, &framework.Redirect{
		URL:     safeNext(r.PostForm.Get("next"), fallback),
		Status:  http.StatusSeeOther,
		Cookies: []*http.Cookie{appCtx.sessionCookieFor(session)},
	}
}

// Logout ends the session and clears the cookie whether or not the session
// was still live.
func Logout(
	runtime framework.RuntimeContext[*Context],
	w http.ResponseWriter,
	r *http.Request,
	_ framework.EmptyParams,
) error {
	appCtx := runtime.AppContext()
	if token := appCtx.SessionToken(r); token != "" {
		if err := appCtx.identity.SignOut(r.Context(), token); err != nil {
			appCtx.logger.Warn("sign out failed", zap.Error(err))
		}
	}

	return &framework.Redirect{
		URL:     "/",
		Status:  http.StatusSeeOther,
		Cookies: []*http.Cookie{appCtx.clearedSessionCookie()},
	}
}

func SubmitCompleteProfile(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (ProfileFormPageView, error) {
	view, err := LoadCompleteProfilePage(ctx, appCtx, r, params)
	if err != nil {
		return ProfileFormPageView{}, err
	}
	user, err := appCtx.requireViewer(ctx, r)
	if err != nil {
		return ProfileFormPageView{}, err
	}

	form := postedForm(r, profileFields...)
	input, rateErr := profileInput(form)
	if rateErr != "" {
		view.Form = form.withFieldError("rate", rateErr)
		return view, nil
	}

	err = appCtx.service.CompleteProfile(UserContext(ctx, user), user.UID, user.Email, input)
	switch {
	case errors.Is(err, agency.ErrProfileExists):
		return ProfileFormPageView{}, framework.RedirectTo("/profile")
	case err != nil:
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return ProfileFormPageView{}, loadError("complete profile", err)
	}

	return ProfileFormPageView{}, framework.RedirectTo("/profile")
}

func SubmitProfileEdit(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (ProfileFormPageView, error) {
	view, err := LoadProfileEditPage(ctx, appCtx, r, params)
	if err != nil {
		return ProfileFormPageView{}, err
	}
	user, err := appCtx.requireViewer(ctx, r)
	if err != nil {
		return ProfileFormPageView{}, err
	}

	form := postedForm(r, profileFields...)
	input, rateErr := profileInput(form)
	if rateErr != "" {
		view.Form = form.withFieldError("rate", rateErr)
		return view, nil
	}

	if err := appCtx.service.UpdateProfile(UserContext(ctx, user), user.UID, input); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		if errors.Is(err, agency.ErrNotFound) {
			return ProfileFormPageView{}, framework.RedirectTo("/complete-profile")
		}
		return ProfileFormPageView{}, loadError("update profile", err)
	}

	return ProfileFormPageView{}, framework.RedirectTo("/profile")
}

func SubmitTalentMatch(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	params framework.EmptyParams,
) (MatchPageView, error) {
	view, err := LoadTalentMatchPage(ctx, appCtx, r, params)
	if err != nil {
		return MatchPageView{}, err
	}

	form := postedForm(r, "aestheticPreferences", "budget")
	input := agency.MatchInput{
		AestheticPreferences: form.Value("aestheticPreferences"),
		Budget:               form.Value("budget"),
	}
	if err := appCtx.service.Validate(input); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return MatchPageView{}, loadError("validate talent match", err)
	}

	output, err := appCtx.matcher.GenerateSuggestions(ctx, talentmatch.Input{
		AestheticPreferences: input.AestheticPreferences,
		Budget:               input.Budget,
	})
	if err != nil {
		switch {
		case errors.Is(err, talentmatch.ErrRateLimited):
			form.FormError = "Too many requests. Please wait a minute and try again."
		case errors.Is(err, talentmatch.ErrNotConfigured):
			form.FormError = "Talent match is not available right now."
		default:
			appCtx.logger.Error("talent match failed", zap.Error(err))
			form.FormError = "Failed to get suggestions. Please try again."
		}
		view.Form = form
		return view, nil
	}

	view.Form = form
	view.Suggestions = output.TalentSuggestions
	return view, nil
}

func SubmitAdminNewTalent(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminFormPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "New talent")
	if err != nil {
		return AdminFormPageView{}, err
	}

	form := postedForm(r, talentFields...)
	view := AdminFormPageView{Chrome: chrome, Form: form, Categories: agency.Categories}
	if _, err := appCtx.service.CreateTalent(adminCtx, talentInput(form)); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return AdminFormPageView{}, loadError("create talent", err)
	}

	return AdminFormPageView{}, framework.RedirectTo("/admin/talent")
}

func SubmitAdminNewPost(
	ctx context.Context,
	appCtx *Context,
	r *http.Request,
	_ framework.EmptyParams,
) (AdminFormPageView, error) {
	chrome, adminCtx, err := appCtx.requireAdmin(ctx, r, "New post")
	if err != nil {
		return AdminFormPageView{}, err
	}

	form := postedForm(r, postFields...)
	view := AdminFormPageView{Chrome: chrome, Form: form}
	if _, err := appCtx.service.CreatePost(adminCtx, postInput(form)); err != nil {
		if invalid, ok := form.withValidation(err); ok {
			view.Form = invalid
			return view, nil
		}
		return AdminFormPageView{}, loadError("create post", err)
	}

	return AdminFormPageView{}, framework.RedirectTo("/admin/blog")
}

// SetTalentApproval handles the approve toggle of the admin talent table.
func SetTalentApproval(
	runtime framework.RuntimeContext[*Context],
	w http.ResponseWriter,
	r *http.Request,
	params framework.IDParams,
) error {
	appCtx := runtime.AppContext()
	_, adminCtx, err := appCtx.requireAdmin(r.Context(), r, "")
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		runtime.RespondBadRequest(w, "invalid form body")
		return nil
	}

	if err := appCtx.service.SetTalentApproval(adminCtx, params.ID, parseBool(r.PostForm.Get("approved"))); err != nil {
		return loadError("set talent approval", err)
	}
	return framework.RedirectTo("/admin/talent")
}

// MarkMessageRead handles the read toggle of the admin messages table.
func MarkMessageRead(
	runtime framework.RuntimeContext[*Context],
	w http.ResponseWriter,
	r *http.Request,
	params framework.IDParams,
) error {
	appCtx := runtime.AppContext()
	_, adminCtx, err := appCtx.requireAdmin(r.Context(), r, "")
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		runtime.RespondBadRequest(w, "invalid form body")
		return nil
	}

	read := true
	if raw := r.PostForm.Get("read"); raw != "" {
		read = parseBool(raw)
	}
	if err := appCtx.service.MarkMessageRead(adminCtx, params.ID, read); err != nil {
		return loadError("mark message read", err)
	}
	return framework.RedirectTo("/admin/messages")
}
