package engine

import (
	"errors"
	"fmt"
	"net/http"

	"agency/framework"
	"agency/framework/router"
	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

type Config[C interface{}] struct {
	AppContext C
	Handlers   []framework.RouteHandler[C]

	RenderPage       func(r *http.Request, w http.ResponseWriter, component templ.Component) error
	OpenLive         func(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator
	IsPartialRequest func(r *http.Request) bool

	IsNotFoundError   func(err error) bool
	HandleNotFound    func(w http.ResponseWriter, r *http.Request, notFoundContext framework.NotFoundContext)
	HandleBadRequest  func(w http.ResponseWriter, message string)
	HandleServerError func(w http.ResponseWriter, err error)
}

type Engine[C interface{}] struct {
	appContext C
	routes     *router.AppRouter
	handlers   map[string][]framework.RouteHandler[C]

	renderPage func(r *http.Request, w http.ResponseWriter, component templ.Component) error
	openLive   func(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator
	isPartial  func(r *http.Request) bool

	isNotFound  func(err error) bool
	notFound    func(w http.ResponseWriter, r *http.Request, notFoundContext framework.NotFoundContext)
	badRequest  func(w http.ResponseWriter, message string)
	serverError func(w http.ResponseWriter, err error)
}

func New[C interface{}](cfg Config[C]) (*Engine[C], error) {
	if cfg.RenderPage == nil {
		return nil, errors.New("render page callback is required")
	}
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("at least one route handler is required")
	}

	handlers := make(map[string][]framework.RouteHandler[C], len(cfg.Handlers))
	patterns := make([]string, 0, len(cfg.Handlers))
	for _, handler := range cfg.Handlers {
		pattern := router.Pattern(handler.RoutePattern())
		handlers[pattern] = append(handlers[pattern], handler)
		patterns = append(patterns, pattern)
	}

	routes, err := router.NewAppRouter(patterns)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	openLive := cfg.OpenLive
	if openLive == nil {
		openLive = func(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator {
			return datastar.NewSSE(w, r)
		}
	}

	isPartial := cfg.IsPartialRequest
	if isPartial == nil {
		isPartial = func(*http.Request) bool { return false }
	}

	isNotFound := cfg.IsNotFoundError
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}

	notFound := cfg.HandleNotFound
	if notFound == nil {
		notFound = func(w http.ResponseWriter, r *http.Request, _ framework.NotFoundContext) {
			http.NotFound(w, r)
		}
	}

	badRequest := cfg.HandleBadRequest
	if badRequest == nil {
		badRequest = func(w http.ResponseWriter, message string) {
			http.Error(w, message, http.StatusBadRequest)
		}
	}

	serverError := cfg.HandleServerError
	if serverError == nil {
		serverError = func(w http.ResponseWriter, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}

	return &Engine[C]{
		appContext:  cfg.AppContext,
		routes:      routes,
		handlers:    handlers,
		renderPage:  cfg.RenderPage,
		openLive:    openLive,
		isPartial:   isPartial,
		isNotFound:  isNotFound,
		notFound:    notFound,
		badRequest:  badRequest,
		serverError: serverError,
	}, nil
}

// ServeRoute dispatches r to the handlers of the best matching pattern. A
// matched pattern whose handlers all decline the method gets a 405.
func (engine *Engine[C]) ServeRoute(w http.ResponseWriter, r *http.Request) bool {
	match, ok := engine.routes.Match(r.URL.Path)
	if !ok {
		return false
	}

	params := framework.RouteParams(match.Params)
	for _, handler := range engine.handlers[match.ID] {
		if handler.TryServe(engine, w, r, params) {
			return true
		}
	}

	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	return true
}

func (engine *Engine[C]) AppContext() C {
	return engine.appContext
}

func (engine *Engine[C]) IsPartialRequest(r *http.Request) bool {
	return engine.isPartial(r)
}

func (engine *Engine[C]) RenderPage(
	r *http.Request,
	w http.ResponseWriter,
	component templ.Component,
) error {
	return engine.renderPage(r, w, component)
}

func (engine *Engine[C]) OpenLive(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator {
	return engine.openLive(w, r)
}

func (engine *Engine[C]) IsNotFound(err error) bool {
	return engine.isNotFound(err)
}

func (engine *Engine[C]) RespondNotFound(
	w http.ResponseWriter,
	r *http.Request,
	notFoundContext framework.NotFoundContext,
) {
	engine.notFound(w, r, notFoundContext)
}

func (engine *Engine[C]) RespondBadRequest(w http.ResponseWriter, message string) {
	engine.badRequest(w, message)
}

func (engine *Engine[C]) RespondServerError(w http.ResponseWriter, err error) {
	engine.serverError(w, err)
}
