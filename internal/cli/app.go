package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/config"
	"agency/internal/docstore"
	"agency/internal/identity"
	"agency/internal/logging"
	"agency/internal/talentmatch"
	"agency/internal/web/appcore"
	"go.uber.org/zap"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *docstore.Badger
	identity *identity.Local
	service  *agency.Service
}

func newApp(cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := agency.OpenStore(docstore.Options{
		Path:     filepath.Clean(cfg.DataDir),
		InMemory: cfg.InMemory,
		Logger:   logger.Named("docstore"),
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open document store: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		identity: identity.NewLocal(identity.Options{
			Store:      store,
			Logger:     logger.Named("identity"),
			SessionTTL: cfg.SessionTTL,
		}),
		service: agency.NewService(store, agency.WithLogger(logger.Named("agency"))),
	}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}

func (a *app) matcher() talentmatch.Generator {
	generator, err := talentmatch.NewOpenAI(talentmatch.Config{
		APIKey:  a.cfg.OpenAIKey,
		Model:   a.cfg.OpenAIModel,
		BaseURL: a.cfg.OpenAIBaseURL,
		Logger:  a.logger.Named("talentmatch"),
	})
	if errors.Is(err, talentmatch.ErrNotConfigured) {
		a.logger.Warn("talent match disabled: no OpenAI API key")
		return talentmatch.Unavailable{}
	}
	if err != nil {
		a.logger.Error("talent match disabled", zap.Error(err))
		return talentmatch.Unavailable{}
	}
	return talentmatch.NewLimited(generator, a.cfg.MatchPerMinute, a.cfg.MatchBurst)
}

func (a *app) appContext() *appcore.Context {
	return appcore.NewContext(appcore.Options{
		Store:    a.store,
		Service:  a.service,
		Identity: a.identity,
		Matcher:  a.matcher(),
		Binding: binding.Config{
			Logger:   a.logger.Named("binding"),
			Validate: agency.NewValidator(),
		},
		Logger:        a.logger,
		RootURL:       a.cfg.RootURL,
		SessionCookie: a.cfg.SessionCookie,
		SessionTTL:    a.cfg.SessionTTL,
		SecureCookies: strings.HasPrefix(a.cfg.RootURL, "https://"),
	})
}
