package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"agency/framework"
	"github.com/a-h/templ"
)

type testAppContext struct{}

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

func capture(rendered *string) func(*http.Request, http.ResponseWriter, templ.Component) error {
	return func(_ *http.Request, _ http.ResponseWriter, component templ.Component) error {
		var b bytes.Buffer
		if err := component.Render(context.Background(), &b); err != nil {
			return err
		}
		*rendered = b.String()
		return nil
	}
}

func staticPage(pattern string, view string, layouts ...framework.LayoutRenderer[string]) framework.PageOnlyRouteHandler[*testAppContext, framework.EmptyParams, string] {
	return framework.PageOnlyRouteHandler[*testAppContext, framework.EmptyParams, string]{
		Page: framework.PageModule[*testAppContext, framework.EmptyParams, string]{
			Pattern:     pattern,
			ParseParams: framework.ParseEmptyParams,
			Load: func(context.Context, *testAppContext, *http.Request, framework.EmptyParams) (string, error) {
				return view, nil
			},
			Render:  func(view string) templ.Component { return textComponent(view) },
			Layouts: layouts,
		},
	}
}

func TestServeRoutePageOnly(t *testing.T) {
	var rendered string

	routeEngine, err := New(Config[*testAppContext]{
		AppContext: &testAppContext{},
		Handlers: []framework.RouteHandler[*testAppContext]{
			staticPage("/blog", "page"),
		},
		RenderPage: capture(&rendered),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if !routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil)) {
		t.Fatal("expected route to match")
	}
	if rendered != "page" {
		t.Fatalf("expected page content, got %q", rendered)
	}

	if routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil)) {
		t.Fatal("did not expect missing route to match")
	}

	rec := httptest.NewRecorder()
	if !routeEngine.ServeRoute(rec, httptest.NewRequest(http.MethodDelete, "/blog", nil)) {
		t.Fatal("expected matched route to answer other methods")
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestServeRouteParams(t *testing.T) {
	var rendered string

	routeEngine, err := New(Config[*testAppContext]{
		AppContext: &testAppContext{},
		Handlers: []framework.RouteHandler[*testAppContext]{
			framework.PageOnlyRouteHandler[*testAppContext, framework.IDParams, string]{
				Page: framework.PageModule[*testAppContext, framework.IDParams, string]{
					Pattern:     "/talent/[id]",
					ParseParams: framework.ParseIDParams,
					Load: func(_ context.Context, _ *testAppContext, _ *http.Request, params framework.IDParams) (string, error) {
						return "talent:" + params.ID, nil
					},
					Render: func(view string) templ.Component { return textComponent(view) },
				},
			},
			staticPage("/talent/live", "live"),
		},
		RenderPage: capture(&rendered),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/talent/talent-aisha", nil))
	if rendered != "talent:talent-aisha" {
		t.Fatalf("expected id param, got %q", rendered)
	}

	routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/talent/live", nil))
	if rendered != "live" {
		t.Fatalf("expected static route to win, got %q", rendered)
	}
}

func TestServeRouteSkipsLayoutsForPartialRequests(t *testing.T) {
	var rendered string

	routeEngine, err := New(Config[*testAppContext]{
		AppContext: &testAppContext{},
		Handlers: []framework.RouteHandler[*testAppContext]{
			staticPage("/blog", "body", func(_ string, child templ.Component) templ.Component {
				return wrapComponent("layout", child)
			}),
		},
		IsPartialRequest: func(_ *http.Request) bool { return true },
		RenderPage:       capture(&rendered),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if !routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil)) {
		t.Fatal("expected route to match")
	}
	if rendered != "body" {
		t.Fatalf("expected partial body without layout, got %q", rendered)
	}
}

func TestFormRouteHandler(t *testing.T) {
	var rendered string

	routeEngine, err := New(Config[*testAppContext]{
		AppContext: &testAppContext{},
		Handlers: []framework.RouteHandler[*testAppContext]{
			framework.FormRouteHandler[*testAppContext, framework.EmptyParams, string]{
				Page: framework.PageModule[*testAppContext, framework.EmptyParams, string]{
					Pattern:     "/contact",
					ParseParams: framework.ParseEmptyParams,
					Load: func(context.Context, *testAppContext, *http.Request, framework.EmptyParams) (string, error) {
						return "form", nil
					},
					Render: func(view string) templ.Component { return textComponent(view) },
				},
				Submit: func(_ context.Context, _ *testAppContext, r *http.Request, _ framework.EmptyParams) (string, error) {
					if r.PostForm.Get("name") == "" {
						return "form with errors", nil
					}
					return "", framework.RedirectTo("/contact?sent=1")
				},
			},
		},
		RenderPage: capture(&rendered),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	invalid := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(""))
	invalid.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	routeEngine.ServeRoute(httptest.NewRecorder(), invalid)
	if rendered != "form with errors" {
		t.Fatalf("expected re-rendered form, got %q", rendered)
	}

	valid := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(url.Values{"name": {"Ada"}}.Encode()))
	valid.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	routeEngine.ServeRoute(rec, valid)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/contact?sent=1" {
		t.Fatalf("unexpected redirect location %q", got)
	}
}

func TestNotFoundAndServerErrorClassification(t *testing.T) {
	errNotFound := errors.New("not found")
	errBoom := errors.New("boom")

	failing := func(loadErr error) framework.PageOnlyRouteHandler[*testAppContext, framework.EmptyParams, string] {
		return framework.PageOnlyRouteHandler[*testAppContext, framework.EmptyParams, string]{
			Page: framework.PageModule[*testAppContext, framework.EmptyParams, string]{
				Pattern:     "/blog",
				ParseParams: framework.ParseEmptyParams,
				Load: func(context.Context, *testAppContext, *http.Request, framework.EmptyParams) (string, error) {
					return "", loadErr
				},
				Render: func(view string) templ.Component { return textComponent(view) },
			},
		}
	}

	t.Run("not found", func(t *testing.T) {
		notFoundCalled := false
		serverErrorCalled := false
		var notFoundContext framework.NotFoundContext

		routeEngine, err := New(Config[*testAppContext]{
			AppContext:      &testAppContext{},
			Handlers:        []framework.RouteHandler[*testAppContext]{failing(errNotFound)},
			RenderPage:      func(*http.Request, http.ResponseWriter, templ.Component) error { return nil },
			IsNotFoundError: func(err error) bool { return errors.Is(err, errNotFound) },
			HandleNotFound: func(_ http.ResponseWriter, _ *http.Request, ctx framework.NotFoundContext) {
				notFoundCalled = true
				notFoundContext = ctx
			},
			HandleServerError: func(http.ResponseWriter, error) {
				serverErrorCalled = true
			},
		})
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}

		if !routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil)) {
			t.Fatal("expected route to match")
		}
		if !notFoundCalled {
			t.Fatal("expected not found callback")
		}
		if notFoundContext.Source != framework.NotFoundSourcePageLoad {
			t.Fatalf("expected not-found source %q, got %q", framework.NotFoundSourcePageLoad, notFoundContext.Source)
		}
		if notFoundContext.MatchedRoutePattern != "/blog" {
			t.Fatalf("expected matched route pattern /blog, got %q", notFoundContext.MatchedRoutePattern)
		}
		if serverErrorCalled {
			t.Fatal("did not expect server error callback")
		}
	})

	t.Run("server error", func(t *testing.T) {
		notFoundCalled := false
		serverErrorCalled := false

		routeEngine, err := New(Config[*testAppContext]{
			AppContext: &testAppContext{},
			Handlers:   []framework.RouteHandler[*testAppContext]{failing(errBoom)},
			RenderPage: func(*http.Request, http.ResponseWriter, templ.Component) error { return nil },
			HandleNotFound: func(http.ResponseWriter, *http.Request, framework.NotFoundContext) {
				notFoundCalled = true
			},
			HandleServerError: func(_ http.ResponseWriter, err error) {
				serverErrorCalled = errors.Is(err, errBoom)
			},
		})
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}

		routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil))
		if notFoundCalled {
			t.Fatal("did not expect not found callback")
		}
		if !serverErrorCalled {
			t.Fatal("expected server error callback with the load error")
		}
	})

	t.Run("redirect", func(t *testing.T) {
		routeEngine, err := New(Config[*testAppContext]{
			AppContext: &testAppContext{},
			Handlers:   []framework.RouteHandler[*testAppContext]{failing(framework.RedirectTo("/login"))},
			RenderPage: func(*http.Request, http.ResponseWriter, templ.Component) error { return nil },
		})
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}

		rec := httptest.NewRecorder()
		routeEngine.ServeRoute(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})
}

func TestLayoutOrder(t *testing.T) {
	var rendered string

	routeEngine, err := New(Config[*testAppContext]{
		AppContext: &testAppContext{},
		Handlers: []framework.RouteHandler[*testAppContext]{
			staticPage("/blog", "body",
				func(_ string, child templ.Component) templ.Component {
					return wrapComponent("outer", child)
				},
				func(_ string, child templ.Component) templ.Component {
					return wrapComponent("inner", child)
				},
			),
		},
		RenderPage: capture(&rendered),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if !routeEngine.ServeRoute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog", nil)) {
		t.Fatal("expected route to match")
	}
	if rendered != "[outer][inner]body[/inner][/outer]" {
		t.Fatalf("unexpected render output: %q", rendered)
	}
}

func TestNewRequiresRenderPageAndHandlers(t *testing.T) {
	if _, err := New(Config[*testAppContext]{}); err == nil {
		t.Fatal("expected error without render callback")
	}
	if _, err := New(Config[*testAppContext]{
		RenderPage: func(*http.Request, http.ResponseWriter, templ.Component) error { return nil },
	}); err == nil {
		t.Fatal("expected error without handlers")
	}
}
