package estimation

import (
	"embed"

	"github.com/structura-io/structura/modules/estimation/infrastructure/persistence"
	"github.com/structura-io/structura/modules/estimation/presentation/controllers"
	"github.com/structura-io/structura/modules/estimation/services"
	"github.com/structura-io/structura/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app *application.Application) error {
	app.Migrations().Add(m.Name(), migrationFiles, "infrastructure/persistence/schema")

	sheets := persistence.NewSheetRepository()
	headers := persistence.NewHeaderRepository()
	items := persistence.NewLineItemRepository()
	headerStore := persistence.HeaderSiblings()
	itemStore := persistence.LineItemSiblings()

	app.RegisterServices(
		services.NewSheetService(sheets, items, app.EventBus()),
		services.NewHeaderService(sheets, headers, items, headerStore, app.EventBus()),
		services.NewLineItemService(sheets, headers, items, itemStore, app.EventBus()),
		services.NewImportService(sheets, headers, items, headerStore, itemStore, app.EventBus()),
	)

	app.RegisterControllers(
		controllers.NewEstimationAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "estimation"
}
