package server

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/structura-io/structura/pkg/application"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/constants"
	"github.com/structura-io/structura/pkg/httpapi"
	"github.com/structura-io/structura/pkg/middleware"
	"github.com/structura-io/structura/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   *application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the standard middleware stack around the application's
// controllers: request id first so the logger can tag every line, then the
// pool so services can open transactions.
func Default(options *DefaultOptions) *server.HTTPServer {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", middleware.TenantHeader, options.Configuration.RequestIDHeader},
	})

	options.Application.RegisterMiddleware(
		middleware.RequestID(),
		middleware.RequestLogger(options.Logger),
		corsHandler.Handler,
		middleware.Provide(constants.PoolKey, options.Pool),
	)

	return server.NewHTTPServer(
		options.Application,
		http.HandlerFunc(notFound),
		http.HandlerFunc(methodNotAllowed),
	)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no such route", nil)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
}
