// Package application wires modules into one process: every module registers
// its services, HTTP controllers, and embedded schema migrations against a
// shared Application, and the server entrypoint runs the result.
package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/structura-io/structura/pkg/eventbus"
)

// Controller is one HTTP surface. Key must be unique within the application;
// registering the same key twice replaces the earlier controller.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module is a self-contained feature vertical.
type Module interface {
	Name() string
	Register(app *Application) error
}

type Application struct {
	pool     *pgxpool.Pool
	eventBus eventbus.EventBus
	log      *logrus.Logger

	controllers map[string]Controller
	services    map[reflect.Type]any
	middleware  []mux.MiddlewareFunc
	migrations  *MigrationRegistry
}

func New(pool *pgxpool.Pool, bus eventbus.EventBus, log *logrus.Logger) *Application {
	return &Application{
		pool:        pool,
		eventBus:    bus,
		log:         log,
		controllers: map[string]Controller{},
		services:    map[reflect.Type]any{},
		migrations:  newMigrationRegistry(),
	}
}

func (app *Application) Pool() *pgxpool.Pool {
	return app.pool
}

func (app *Application) EventBus() eventbus.EventBus {
	return app.eventBus
}

func (app *Application) Logger() *logrus.Logger {
	return app.log
}

func (app *Application) Migrations() *MigrationRegistry {
	return app.migrations
}

func (app *Application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

// RegisterMiddleware appends router-level middleware; the server applies it
// in registration order, outermost first.
func (app *Application) RegisterMiddleware(middlewares ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middlewares...)
}

func (app *Application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

func (app *Application) Controllers() []Controller {
	out := make([]Controller, 0, len(app.controllers))
	for _, c := range app.controllers {
		out = append(out, c)
	}
	return out
}

// RegisterServices stores each service keyed by its concrete type.
func (app *Application) RegisterServices(services ...any) {
	for _, s := range services {
		app.services[reflect.TypeOf(s)] = s
	}
}

// Service returns the registered *T for a zero value of T, or panics: a
// missing service is a wiring bug, not a runtime condition.
func (app *Application) Service(of any) any {
	typ := reflect.PointerTo(reflect.TypeOf(of))
	s, ok := app.services[typ]
	if !ok {
		panic(fmt.Sprintf("application: service %s is not registered", typ))
	}
	return s
}

// RegisterModules runs each module's Register in order.
func (app *Application) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(app); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
