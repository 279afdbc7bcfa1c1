package web

import (
	"fmt"
	"net/http"

	"agency/framework"
	"agency/framework/httpserver"
	"agency/internal/config"
	"agency/internal/web/appcore"
	"agency/internal/web/components"
	"github.com/a-h/templ"
	"go.uber.org/zap"
)

func NewHandler(cfg config.Config, appCtx *appcore.Context, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler, err := httpserver.New(httpserver.Config[*appcore.Context]{
		AppContext: appCtx,
		Handlers:   Handlers(),
		Static: httpserver.StaticMount{
			URLPrefix: "/static/",
			Dir:       cfg.StaticDir,
		},
		IsNotFoundError: appcore.IsNotFoundError,
		NotFoundPage:    notFoundPage,
		ErrorPage:       components.ErrorPage,
		Logger:          logger.Named("http"),
	})
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}
	return handler, nil
}

func notFoundPage(notFoundContext framework.NotFoundContext) templ.Component {
	return components.NotFoundPage(appcore.NewNotFoundPageView(notFoundContext.RequestPath))
}
