package appcore

import (
	"errors"
	"time"

	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/docstore"
	"agency/internal/identity"
	"agency/internal/talentmatch"
	"go.uber.org/zap"
)

var errPageNotFound = errors.New("page not found")

type Options struct {
	Store    docstore.Store
	Service  *agency.Service
	Identity identity.Provider
	Matcher  talentmatch.Generator
	Binding  binding.Config
	Logger   *zap.Logger

	RootURL       string
	SessionCookie string
	SessionTTL    time.Duration
	// SecureCookies marks the session cookie Secure; set behind HTTPS.
	SecureCookies bool
}

// Context is handed to every loader, submitter and live handler.
type Context struct {
	store    docstore.Store
	service  *agency.Service
	identity identity.Provider
	matcher  talentmatch.Generator
	binding  binding.Config
	logger   *zap.Logger
	isAdmin  agency.AdminLookup

	rootURL       string
	sessionCookie string
	sessionTTL    time.Duration
	secureCookies bool
}

func NewContext(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = talentmatch.Unavailable{}
	}
	cookie := opts.SessionCookie
	if cookie == "" {
		cookie = "agency_session"
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	bindingCfg := opts.Binding
	if bindingCfg.Logger == nil {
		bindingCfg.Logger = logger
	}

	return &Context{
		store:         opts.Store,
		service:       opts.Service,
		identity:      opts.Identity,
		matcher:       matcher,
		binding:       bindingCfg,
		logger:        logger,
		isAdmin:       agency.StoreAdminLookup(opts.Store),
		rootURL:       opts.RootURL,
		sessionCookie: cookie,
		sessionTTL:    ttl,
		secureCookies: opts.SecureCookies,
	}
}

func (c *Context) Store() docstore.Store {
	return c.store
}

func (c *Context) Identity() identity.Provider {
	return c.identity
}

func (c *Context) Binding() binding.Config {
	return c.binding
}

func (c *Context) Logger() *zap.Logger {
	return c.logger
}

func (c *Context) RootURL() string {
	return c.rootURL
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, errPageNotFound) || errors.Is(err, agency.ErrNotFound)
}
