package framework

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

type EmptyParams struct{}

type IDParams struct {
	ID string
}

// RouteParams are the [name] segments of the matched route pattern.
type RouteParams map[string]string

type ParamsParser[P interface{}] func(params RouteParams) (P, bool)

type PageLoader[C interface{}, P interface{}, VM interface{}] func(
	ctx context.Context,
	appCtx C,
	r *http.Request,
	params P,
) (VM, error)

// FormSubmitter handles a POST to a page. It returns the view to re-render
// (typically with field errors) or a *Redirect error on success.
type FormSubmitter[C interface{}, P interface{}, VM interface{}] func(
	ctx context.Context,
	appCtx C,
	r *http.Request,
	params P,
) (VM, error)

type PageRenderer[VM interface{}] func(view VM) templ.Component

type LayoutRenderer[VM interface{}] func(view VM, child templ.Component) templ.Component

type PageModule[C interface{}, P interface{}, VM interface{}] struct {
	Pattern     string
	ParseParams ParamsParser[P]
	Load        PageLoader[C, P, VM]
	Render      PageRenderer[VM]
	Layouts     []LayoutRenderer[VM]
}

// Redirect is returned by loaders and submitters to send the browser
// elsewhere instead of rendering.
type Redirect struct {
	URL     string
	Status  int
	Cookies []*http.Cookie
}

func (r *Redirect) Error() string {
	return fmt.Sprintf("redirect %d to %s", r.Status, r.URL)
}

func RedirectTo(url string) error {
	return &Redirect{URL: url, Status: http.StatusSeeOther}
}

type RuntimeContext[C interface{}] interface {
	AppContext() C
	IsPartialRequest(r *http.Request) bool
	RenderPage(r *http.Request, w http.ResponseWriter, component templ.Component) error
	OpenLive(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator
	IsNotFound(err error) bool
	RespondNotFound(w http.ResponseWriter, r *http.Request, notFoundContext NotFoundContext)
	RespondBadRequest(w http.ResponseWriter, message string)
	RespondServerError(w http.ResponseWriter, err error)
}

type NotFoundSource string

const (
	NotFoundSourcePageLoad       NotFoundSource = "page_load"
	NotFoundSourceUnmatchedRoute NotFoundSource = "unmatched_route"
)

type NotFoundContext struct {
	RequestPath         string
	MatchedRoutePattern string
	Source              NotFoundSource
}

// RouteHandler serves requests whose path matched Pattern. TryServe returns
// false when the handler does not serve the request's method.
type RouteHandler[C interface{}] interface {
	RoutePattern() string
	TryServe(runtime RuntimeContext[C], w http.ResponseWriter, r *http.Request, params RouteParams) bool
}

type PageOnlyRouteHandler[C interface{}, P interface{}, VM interface{}] struct {
	Page PageModule[C, P, VM]
}

func (h PageOnlyRouteHandler[C, P, VM]) RoutePattern() string {
	return h.Page.Pattern
}

func (h PageOnlyRouteHandler[C, P, VM]) TryServe(
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	params RouteParams,
) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return servePageModule(runtime, w, r, params, h.Page, h.Page.Load)
}

// FormRouteHandler renders Page on GET and runs Submit on POST, rendering
// the returned view through the same page module.
type FormRouteHandler[C interface{}, P interface{}, VM interface{}] struct {
	Page   PageModule[C, P, VM]
	Submit FormSubmitter[C, P, VM]
}

func (h FormRouteHandler[C, P, VM]) RoutePattern() string {
	return h.Page.Pattern
}

func (h FormRouteHandler[C, P, VM]) TryServe(
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	params RouteParams,
) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return servePageModule(runtime, w, r, params, h.Page, h.Page.Load)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			runtime.RespondBadRequest(w, "invalid form body")
			return true
		}
		return servePageModule(runtime, w, r, params, h.Page, PageLoader[C, P, VM](h.Submit))
	default:
		return false
	}
}

// StreamHandler owns the response for the lifetime of the request: live
// patches, websocket upgrades and raw documents.
type StreamHandler[C interface{}, P interface{}] func(
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	params P,
) error

type StreamRouteHandler[C interface{}, P interface{}] struct {
	Pattern     string
	Methods     []string
	ParseParams ParamsParser[P]
	Serve       StreamHandler[C, P]
}

func (h StreamRouteHandler[C, P]) RoutePattern() string {
	return h.Pattern
}

func (h StreamRouteHandler[C, P]) TryServe(
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	routeParams RouteParams,
) bool {
	if !allowsMethod(h.Methods, r.Method) {
		return false
	}

	params, ok := h.ParseParams(routeParams)
	if !ok {
		return false
	}

	if err := h.Serve(runtime, w, r, params); err != nil {
		handleLoadError(runtime, w, r, err, h.Pattern, NotFoundSourcePageLoad)
	}
	return true
}

func allowsMethod(methods []string, method string) bool {
	if len(methods) == 0 {
		return method == http.MethodGet || method == http.MethodHead
	}
	for _, allowed := range methods {
		if allowed == method {
			return true
		}
	}
	return false
}

func ParseEmptyParams(RouteParams) (EmptyParams, bool) {
	return EmptyParams{}, true
}

func ParseIDParams(params RouteParams) (IDParams, bool) {
	id, ok := params["id"]
	if !ok || id == "" {
		return IDParams{}, false
	}
	return IDParams{ID: id}, true
}

func applyLayouts[VM interface{}](
	layouts []LayoutRenderer[VM],
	view VM,
	child templ.Component,
) templ.Component {
	wrapped := child
	for idx := len(layouts) - 1; idx >= 0; idx-- {
		wrapped = layouts[idx](view, wrapped)
	}
	return wrapped
}

func servePageModule[C interface{}, P interface{}, VM interface{}](
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	routeParams RouteParams,
	module PageModule[C, P, VM],
	load PageLoader[C, P, VM],
) bool {
	params, ok := module.ParseParams(routeParams)
	if !ok {
		return false
	}

	view, err := load(r.Context(), runtime.AppContext(), r, params)
	if err != nil {
		handleLoadError(runtime, w, r, err, module.Pattern, NotFoundSourcePageLoad)
		return true
	}

	component := module.Render(view)
	if !runtime.IsPartialRequest(r) {
		component = applyLayouts(module.Layouts, view, component)
	}
	if err := runtime.RenderPage(r, w, component); err != nil {
		runtime.RespondServerError(w, fmt.Errorf("render route %q: %w", module.Pattern, err))
	}
	return true
}

func handleLoadError[C interface{}](
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	err error,
	routePattern string,
	source NotFoundSource,
) {
	var redirect *Redirect
	if errors.As(err, &redirect) {
		status := redirect.Status
		if status == 0 {
			status = http.StatusSeeOther
		}
		for _, cookie := range redirect.Cookies {
			http.SetCookie(w, cookie)
		}
		http.Redirect(w, r, redirect.URL, status)
		return
	}

	if runtime.IsNotFound(err) {
		runtime.RespondNotFound(w, r, NotFoundContext{
			RequestPath:         r.URL.Path,
			MatchedRoutePattern: routePattern,
			Source:              source,
		})
		return
	}

	runtime.RespondServerError(w, fmt.Errorf("load route %q: %w", routePattern, err))
}
