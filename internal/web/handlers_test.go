package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/config"
	"agency/internal/docstore"
	"agency/internal/identity"
	"agency/internal/talentmatch"
	"agency/internal/web/appcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testRootURL = "https://agency.test"
	cookieName  = "agency_session"
)

type fakeMatcher struct {
	output talentmatch.Output
	err    error
	calls  int
}

func (m *fakeMatcher) GenerateSuggestions(_ context.Context, _ talentmatch.Input) (talentmatch.Output, error) {
	m.calls++
	return m.output, m.err
}

type testSite struct {
	handler  http.Handler
	store    *docstore.Badger
	identity *identity.Local
	service  *agency.Service
}

func newTestSite(t *testing.T, matcher talentmatch.Generator) *testSite {
	t.Helper()

	store, err := agency.OpenStore(docstore.Options{InMemory: true, Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = agency.Seed(context.Background(), store, nil)
	require.NoError(t, err)

	ident := identity.NewLocal(identity.Options{Store: store, Cost: bcrypt.MinCost})
	svc := agency.NewService(store)
	appCtx := appcore.NewContext(appcore.Options{
		Store:    store,
		Service:  svc,
		Identity: ident,
		Matcher:  matcher,
		Binding:  binding.Config{Validate: agency.NewValidator()},
		RootURL:  testRootURL,
	})

	handler, err := NewHandler(config.Config{StaticDir: "static"}, appCtx, zap.NewNop())
	require.NoError(t, err)

	return &testSite{handler: handler, store: store, identity: ident, service: svc}
}

func (s *testSite) request(method string, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testSite) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return s.request(http.MethodGet, path, nil, cookie)
}

func (s *testSite) post(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	return s.request(http.MethodPost, path, form, cookie)
}

// signUp creates an account directly and returns its session cookie.
func (s *testSite) signUp(t *testing.T, email string, admin bool) (*http.Cookie, string) {
	t.Helper()

	ctx := context.Background()
	session, err := s.identity.SignUp(ctx, email, "secret1")
	require.NoError(t, err)
	if admin {
		require.NoError(t, s.service.GrantAdmin(ctx, session.User.UID, email))
	}
	return &http.Cookie{Name: cookieName, Value: session.Token}, session.User.UID
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == cookieName {
			return cookie
		}
	}
	t.Fatalf("response has no %s cookie", cookieName)
	return nil
}

func TestPublicPagesRender(t *testing.T) {
	site := newTestSite(t, nil)

	cases := []struct {
		path       string
		contains   []string
		notContain []string
	}{
		{path: "/", contains: []string{"<!doctype html>", "<title>Agency</title>", "Aisha Khan", "The Rise of African Creatives"}, notContain: []string{"Samuel Maina"}},
		{path: "/talent", contains: []string{"Patricia Wambui", "David Ochieng", `id="talent-grid"`, `data-signals=`}, notContain: []string{"Samuel Maina"}},
		{path: "/talent?category=model", contains: []string{"Aisha Khan"}, notContain: []string{"David Ochieng"}},
		{path: "/talent?category=Actress", contains: []string{"Patricia Wambui"}, notContain: []string{"Aisha Khan"}},
		{path: "/talent?q=pat", contains: []string{"Patricia Wambui"}, notContain: []string{"David Ochieng"}},
		{path: "/talent/patricia-wambui", contains: []string{"<title>Patricia Wambui | Agency</title>", "Actress"}},
		{path: "/blog", contains: []string{"Navigating the Digital Art Scene", "min read"}},
		{path: "/blog/blog001", contains: []string{"The Rise of African Creatives", `class="prose"`}},
		{path: "/contact", contains: []string{`action="/contact"`, `name="subject"`}},
		{path: "/join", contains: []string{"Join the roster"}},
		{path: "/signup", contains: []string{`name="confirmPassword"`}},
		{path: "/login", contains: []string{"Sign in"}},
		{path: "/talent-match", contains: []string{`name="aestheticPreferences"`}},
	}

	for _, tc := range cases {
		rec := site.get(tc.path, nil)
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", tc.path)

		body := rec.Body.String()
		for _, want := range tc.contains {
			assert.Contains(t, body, want, tc.path)
		}
		for _, unwanted := range tc.notContain {
			assert.NotContains(t, body, unwanted, tc.path)
		}
	}
}

func TestPartialRequestSkipsLayout(t *testing.T) {
	site := newTestSite(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/blog", nil)
	req.Header.Set("Datastar-Request", "true")
	rec := httptest.NewRecorder()
	site.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), "Journal")
}

func TestNotFoundPages(t *testing.T) {
	site := newTestSite(t, nil)

	for _, path := range []string{"/talent/samuel-maina", "/talent/missing", "/blog/missing", "/nowhere"} {
		rec := site.get(path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Page not found", path)
	}

	rec := site.request(http.MethodDelete, "/contact", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestContactForm(t *testing.T) {
	site := newTestSite(t, nil)

	invalid := site.post("/contact", url.Values{
		"name":    {"A"},
		"email":   {"not-an-email"},
		"subject": {"Hi"},
		"message": {"short"},
	}, nil)
	require.Equal(t, http.StatusOK, invalid.Code)
	body := invalid.Body.String()
	assert.Contains(t, body, "Please enter a valid email address.")
	assert.Contains(t, body, "Message must be at least 10 characters.")
	assert.Contains(t, body, `value="not-an-email"`)

	valid := site.post("/contact", url.Values{
		"name":    {"Wanjiru"},
		"email":   {"wanjiru@example.com"},
		"subject": {"Booking enquiry"},
		"message": {"We would like to book Aisha for a shoot."},
	}, nil)
	require.Equal(t, http.StatusOK, valid.Code)
	assert.Contains(t, valid.Body.String(), "Thanks for reaching out.")

	snapshot, err := site.store.Query(docstore.Privileged(context.Background()), agency.UnreadMessages())
	require.NoError(t, err)
	found := false
	for _, doc := range snapshot.Docs {
		if strings.Contains(string(doc.Data), "Booking enquiry") {
			found = true
		}
	}
	assert.True(t, found, "contact message stored unread")
}

func TestSignupAndCompleteProfile(t *testing.T) {
	site := newTestSite(t, nil)

	mismatch := site.post("/signup", url.Values{
		"email":           {"grace@example.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	}, nil)
	require.Equal(t, http.StatusOK, mismatch.Code)
	assert.Contains(t, mismatch.Body.String(), "Passwords don&#39;t match.")

	signup := site.post("/signup", url.Values{
		"email":           {"grace@example.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, signup.Code)
	assert.Equal(t, "/complete-profile", signup.Header().Get("Location"))
	cookie := sessionCookie(t, signup)
	assert.True(t, cookie.HttpOnly)

	again := site.post("/signup", url.Values{
		"email":           {"grace@example.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	}, nil)
	assert.Contains(t, again.Body.String(), "An account with this email already exists.")

	profile := site.get("/profile", cookie)
	require.Equal(t, http.StatusSeeOther, profile.Code)
	assert.Equal(t, "/complete-profile", profile.Header().Get("Location"))

	badRate := site.post("/complete-profile", url.Values{
		"name": {"Grace Njeri"},
		"rate": {"lots"},
	}, cookie)
	require.Equal(t, http.StatusOK, badRate.Code)
	assert.Contains(t, badRate.Body.String(), "Rate must be a positive number.")

	complete := site.post("/complete-profile", url.Values{
		"name":      {"Grace Njeri"},
		"phone":     {"+254711111111"},
		"category":  {"photographer"},
		"bio":       {"Documentary photographer based in Nairobi."},
		"instagram": {"https://instagram.com/grace"},
		"rate":      {"150"},
		"currency":  {"USD"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, complete.Code)
	assert.Equal(t, "/profile", complete.Header().Get("Location"))

	profile = site.get("/profile", cookie)
	require.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), "Grace Njeri")
	assert.Contains(t, profile.Body.String(), "Pending")
	assert.Contains(t, profile.Body.String(), "USD 150")

	revisit := site.get("/complete-profile", cookie)
	require.Equal(t, http.StatusSeeOther, revisit.Code)
	assert.Equal(t, "/profile", revisit.Header().Get("Location"))

	user, err := site.identity.Current(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, http.StatusOK, site.get("/talent/"+user.UID, cookie).Code, "owner sees pending profile")
	assert.Equal(t, http.StatusNotFound, site.get("/talent/"+user.UID, nil).Code, "public does not")

	edit := site.get("/profile/edit", cookie)
	require.Equal(t, http.StatusOK, edit.Code)
	assert.Contains(t, edit.Body.String(), `value="Grace Njeri"`)

	saved := site.post("/profile/edit", url.Values{
		"name":     {"Grace W. Njeri"},
		"phone":    {"+254711111111"},
		"category": {"Photographer"},
		"bio":      {"Documentary photographer based in Nairobi."},
		"currency": {"KES"},
		"rate":     {"20000"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, saved.Code)
	assert.Contains(t, site.get("/profile", cookie).Body.String(), "Grace W. Njeri")
}

func TestLoginAndLogout(t *testing.T) {
	site := newTestSite(t, nil)
	_, _ = site.signUp(t, "ana@example.com", false)

	wrong := site.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong-one"}}, nil)
	require.Equal(t, http.StatusOK, wrong.Code)
	assert.Contains(t, wrong.Body.String(), "Invalid email or password.")

	login := site.post("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret1"},
		"next":     {"/profile/edit"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, login.Code)
	assert.Equal(t, "/profile/edit", login.Header().Get("Location"))
	cookie := sessionCookie(t, login)

	offsite := site.post("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret1"},
		"next":     {"//evil.example"},
	}, nil)
	assert.Equal(t, "/profile", offsite.Header().Get("Location"))

	signedIn := site.get("/login", cookie)
	assert.Equal(t, http.StatusSeeOther, signedIn.Code)

	logout := site.post("/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, logout.Code)
	assert.Equal(t, "/", logout.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, logout).MaxAge)

	user, err := site.identity.Current(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.Equal(t, http.StatusMethodNotAllowed, site.get("/logout", cookie).Code)
}

func TestLoginNextStaysOnSite(t *testing.T) {
	site := newTestSite(t, nil)
	_, _ = site.signUp(t, "ana@example.com", false)

	for _, next := range []string{"/\t/evil.example/phish", "/\\evil.example", "/\n/evil.example", "https://evil.example/"} {
		login := site.post("/login", url.Values{
			"email":    {"ana@example.com"},
			"password": {"secret1"},
			"next":     {next},
		}, nil)
		require.Equal(t, http.StatusSeeOther, login.Code, "%q", next)
		assert.Equal(t, "/profile", login.Header().Get("Location"), "%q", next)
	}

	cookie, _ := site.signUp(t, "ben@example.com", false)
	signedIn := site.get("/login?next=%2F%09%2Fevil.example%2Fphish", cookie)
	require.Equal(t, http.StatusSeeOther, signedIn.Code)
	assert.Equal(t, "/profile", signedIn.Header().Get("Location"))

	encoded := site.get("/login?next=/%09/evil.example", cookie)
	require.Equal(t, http.StatusSeeOther, encoded.Code)
	assert.Equal(t, "/profile", encoded.Header().Get("Location"))
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	site := newTestSite(t, nil)
	member, _ := site.signUp(t, "member@example.com", false)

	cases := []struct {
		path   string
		cookie *http.Cookie
	}{
		{path: "/profile"},
		{path: "/complete-profile"},
		{path: "/admin/dashboard"},
		{path: "/admin/talent", cookie: member},
		{path: "/admin/messages", cookie: member},
	}
	for _, tc := range cases {
		rec := site.get(tc.path, tc.cookie)
		require.Equal(t, http.StatusSeeOther, rec.Code, tc.path)
		assert.Equal(t, "/login?next="+url.QueryEscape(tc.path), rec.Header().Get("Location"), tc.path)
	}

	approve := site.post("/admin/talent/samuel-maina/approval", url.Values{"approved": {"true"}}, member)
	assert.Equal(t, http.StatusSeeOther, approve.Code)
	assert.Equal(t, "/login", approve.Header().Get("Location"))
}

func TestAdminBackOffice(t *testing.T) {
	site := newTestSite(t, nil)
	admin, _ := site.signUp(t, "admin@agency.test", true)

	root := site.get("/admin", admin)
	require.Equal(t, http.StatusSeeOther, root.Code)
	assert.Equal(t, "/admin/dashboard", root.Header().Get("Location"))

	dashboard := site.get("/admin/dashboard", admin)
	require.Equal(t, http.StatusOK, dashboard.Code)
	body := dashboard.Body.String()
	assert.Contains(t, body, `id="dashboard-stats"`)
	assert.Contains(t, body, "Pending review")
	assert.Contains(t, body, "Back office")

	talent := site.get("/admin/talent", admin)
	require.Equal(t, http.StatusOK, talent.Code)
	assert.Contains(t, talent.Body.String(), "Samuel Maina")

	approve := site.post("/admin/talent/samuel-maina/approval", url.Values{"approved": {"true"}}, admin)
	require.Equal(t, http.StatusSeeOther, approve.Code)
	assert.Equal(t, "/admin/talent", approve.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, site.get("/talent/samuel-maina", nil).Code)

	missing := site.post("/admin/talent/nobody/approval", url.Values{"approved": {"true"}}, admin)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	read := site.post("/admin/messages/msg001/read", url.Values{"read": {"true"}}, admin)
	require.Equal(t, http.StatusSeeOther, read.Code)
	messages := site.get("/admin/messages", admin)
	require.Equal(t, http.StatusOK, messages.Code)
	assert.Contains(t, messages.Body.String(), "Mark as unread")

	invalidPost := site.post("/admin/blog/new", url.Values{"title": {"Hi"}}, admin)
	require.Equal(t, http.StatusOK, invalidPost.Code)
	assert.Contains(t, invalidPost.Body.String(), "Title must be at least 5 characters.")

	post := site.post("/admin/blog/new", url.Values{
		"title":   {"Casting Call for Spring"},
		"author":  {"Agency Team"},
		"tags":    {"casting, news"},
		"content": {"We are casting for a spring campaign across three cities. Apply through the join page."},
	}, admin)
	require.Equal(t, http.StatusSeeOther, post.Code)
	assert.Equal(t, "/admin/blog", post.Header().Get("Location"))
	assert.Contains(t, site.get("/blog", nil).Body.String(), "Casting Call for Spring")

	newTalent := site.post("/admin/talent/new", url.Values{
		"name":     {"Joy Atieno"},
		"email":    {"joy@example.com"},
		"phone":    {"+254722222222"},
		"category": {"artist"},
		"bio":      {"Painter working with recycled materials."},
	}, admin)
	require.Equal(t, http.StatusSeeOther, newTalent.Code)
	assert.Contains(t, site.get("/talent?category=artist", nil).Body.String(), "Joy Atieno")
}

func TestTalentMatch(t *testing.T) {
	matcher := &fakeMatcher{output: talentmatch.Output{TalentSuggestions: "Aisha Khan suits a bold editorial look."}}
	site := newTestSite(t, matcher)

	invalid := site.post("/talent-match", url.Values{"aestheticPreferences": {"bold"}, "budget": {"$"}}, nil)
	require.Equal(t, http.StatusOK, invalid.Code)
	assert.Contains(t, invalid.Body.String(), "at least 10 characters")
	assert.Equal(t, 0, matcher.calls)

	form := url.Values{"aestheticPreferences": {"Bold editorial, high contrast"}, "budget": {"USD 2000"}}
	ok := site.post("/talent-match", form, nil)
	require.Equal(t, http.StatusOK, ok.Code)
	assert.Contains(t, ok.Body.String(), "Aisha Khan suits a bold editorial look.")

	matcher.err = talentmatch.ErrRateLimited
	limited := site.post("/talent-match", form, nil)
	assert.Contains(t, limited.Body.String(), "Too many requests.")
}

func TestTalentMatchWithoutKey(t *testing.T) {
	site := newTestSite(t, nil)

	rec := site.post("/talent-match", url.Values{
		"aestheticPreferences": {"Bold editorial, high contrast"},
		"budget":               {"USD 2000"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Talent match is not available right now.")
}

func TestSitemap(t *testing.T) {
	site := newTestSite(t, nil)

	rec := site.get("/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

	body := rec.Body.String()
	assert.Contains(t, body, "<loc>"+testRootURL+"/talent/patricia-wambui</loc>")
	assert.Contains(t, body, "<loc>"+testRootURL+"/blog/blog002</loc>")
	assert.NotContains(t, body, "samuel-maina")
}

func TestMetricsAndHealth(t *testing.T) {
	site := newTestSite(t, nil)

	_ = site.get("/", nil)
	metrics := site.get("/metrics", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "agency_http_request_duration_seconds")
	assert.Contains(t, metrics.Body.String(), "agency_binding_")

	health := site.get("/healthz", nil)
	require.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "ok", health.Body.String())
}
