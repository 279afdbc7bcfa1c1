package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agency/framework"
	"github.com/a-h/templ"
	"go.uber.org/zap/zaptest"
)

func textComponent(value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, value)
		return err
	})
}

func wrapComponent(tag string, child templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "["+tag+"]"); err != nil {
			return err
		}
		if err := child.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "[/"+tag+"]")
		return err
	})
}

func page(pattern string, load func() (string, error)) framework.PageOnlyRouteHandler[*struct{}, framework.EmptyParams, string] {
	return framework.PageOnlyRouteHandler[*struct{}, framework.EmptyParams, string]{
		Page: framework.PageModule[*struct{}, framework.EmptyParams, string]{
			Pattern:     pattern,
			ParseParams: framework.ParseEmptyParams,
			Load: func(context.Context, *struct{}, *http.Request, framework.EmptyParams) (string, error) {
				return load()
			},
			Render: func(view string) templ.Component { return textComponent(view) },
			Layouts: []framework.LayoutRenderer[string]{
				func(_ string, child templ.Component) templ.Component {
					return wrapComponent("layout", child)
				},
			},
		},
	}
}

func TestHTTPServerCachePoliciesAndPartials(t *testing.T) {
	t.Parallel()

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "file.txt"), []byte("asset"), 0o644); err != nil {
		t.Fatalf("write static asset: %v", err)
	}

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			page("/blog", func() (string, error) { return "page", nil }),
		},
		Static: StaticMount{
			URLPrefix: "/static/",
			Dir:       staticDir,
		},
		CachePolicies: CachePolicies{
			HTML:           "html-cache",
			Live:           "live-cache",
			LiveNavigation: "live-nav-cache",
			Static:         "static-cache",
			Health:         "health-cache",
			Error:          "error-cache",
		},
		NotFoundPage: func(framework.NotFoundContext) templ.Component {
			return textComponent("not-found")
		},
		Logger: zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	recPage := httptest.NewRecorder()
	handler.ServeHTTP(recPage, httptest.NewRequest(http.MethodGet, "/blog", nil))
	if recPage.Code != http.StatusOK {
		t.Fatalf("page status: expected %d, got %d", http.StatusOK, recPage.Code)
	}
	if got := recPage.Header().Get("Cache-Control"); got != "html-cache" {
		t.Fatalf("page cache policy: expected %q, got %q", "html-cache", got)
	}
	if got := recPage.Header().Get("Vary"); !strings.Contains(got, "Datastar-Request") {
		t.Fatalf("page vary header: expected Datastar-Request, got %q", got)
	}
	if body := strings.TrimSpace(recPage.Body.String()); body != "[layout]page[/layout]" {
		t.Fatalf("page body: expected layout-wrapped response, got %q", body)
	}

	reqPartial := httptest.NewRequest(http.MethodGet, "/blog", nil)
	reqPartial.Header.Set("Datastar-Request", "true")
	recPartial := httptest.NewRecorder()
	handler.ServeHTTP(recPartial, reqPartial)
	if got := recPartial.Header().Get("Cache-Control"); got != "live-cache" {
		t.Fatalf("partial cache policy: expected %q, got %q", "live-cache", got)
	}
	if body := strings.TrimSpace(recPartial.Body.String()); body != "page" {
		t.Fatalf("partial body: expected bare page, got %q", body)
	}

	reqNav := httptest.NewRequest(http.MethodGet, "/blog?__live=navigation", nil)
	reqNav.Header.Set("Datastar-Request", "true")
	recNav := httptest.NewRecorder()
	handler.ServeHTTP(recNav, reqNav)
	if got := recNav.Header().Get("Cache-Control"); got != "live-nav-cache" {
		t.Fatalf("navigation cache policy: expected %q, got %q", "live-nav-cache", got)
	}

	recStatic := httptest.NewRecorder()
	handler.ServeHTTP(recStatic, httptest.NewRequest(http.MethodGet, "/static/file.txt", nil))
	if recStatic.Code != http.StatusOK {
		t.Fatalf("static status: expected %d, got %d", http.StatusOK, recStatic.Code)
	}
	if got := recStatic.Header().Get("Cache-Control"); got != "static-cache" {
		t.Fatalf("static cache policy: expected %q, got %q", "static-cache", got)
	}

	recHealth := httptest.NewRecorder()
	handler.ServeHTTP(recHealth, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := recHealth.Header().Get("Cache-Control"); got != "health-cache" {
		t.Fatalf("health cache policy: expected %q, got %q", "health-cache", got)
	}
	if body := strings.TrimSpace(recHealth.Body.String()); body != "ok" {
		t.Fatalf("health body: expected %q, got %q", "ok", body)
	}
}

func TestHTTPServerMetrics(t *testing.T) {
	t.Parallel()

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			page("/blog", func() (string, error) { return "page", nil }),
		},
	})
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: expected %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "agency_http_request_duration_seconds") {
		t.Fatal("expected request duration histogram in metrics output")
	}
}

func TestHTTPServerNotFoundContextForLoadAndUnmatched(t *testing.T) {
	t.Parallel()

	errNotFound := errors.New("not found")
	ctxs := make([]framework.NotFoundContext, 0, 2)

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			page("/blog", func() (string, error) { return "", errNotFound }),
		},
		IsNotFoundError: func(err error) bool { return errors.Is(err, errNotFound) },
		NotFoundPage: func(notFoundContext framework.NotFoundContext) templ.Component {
			ctxs = append(ctxs, notFoundContext)
			return textComponent("missing")
		},
		CachePolicies: CachePolicies{
			Error: "error-cache",
		},
	})
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	recLoadNotFound := httptest.NewRecorder()
	handler.ServeHTTP(recLoadNotFound, httptest.NewRequest(http.MethodGet, "/blog", nil))
	if recLoadNotFound.Code != http.StatusNotFound {
		t.Fatalf("load not found status: expected %d, got %d", http.StatusNotFound, recLoadNotFound.Code)
	}
	if got := recLoadNotFound.Header().Get("Cache-Control"); got != "error-cache" {
		t.Fatalf("load not found cache policy: expected %q, got %q", "error-cache", got)
	}

	recUnmatched := httptest.NewRecorder()
	handler.ServeHTTP(recUnmatched, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if recUnmatched.Code != http.StatusNotFound {
		t.Fatalf("unmatched status: expected %d, got %d", http.StatusNotFound, recUnmatched.Code)
	}

	if len(ctxs) != 2 {
		t.Fatalf("expected 2 not-found contexts, got %d", len(ctxs))
	}
	if ctxs[0].Source != framework.NotFoundSourcePageLoad {
		t.Fatalf("expected first source %q, got %q", framework.NotFoundSourcePageLoad, ctxs[0].Source)
	}
	if ctxs[1].Source != framework.NotFoundSourceUnmatchedRoute {
		t.Fatalf("expected second source %q, got %q", framework.NotFoundSourceUnmatchedRoute, ctxs[1].Source)
	}
	if ctxs[1].RequestPath != "/missing" {
		t.Fatalf("expected second request path /missing, got %q", ctxs[1].RequestPath)
	}
}

func TestHTTPServerErrorPage(t *testing.T) {
	t.Parallel()

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			page("/blog", func() (string, error) { return "", errors.New("store offline") }),
		},
		ErrorPage: func() templ.Component { return textComponent("something went wrong") },
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if body := rec.Body.String(); body != "something went wrong" {
		t.Fatalf("unexpected error body %q", body)
	}
}
