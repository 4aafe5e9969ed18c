package questionnaire

import (
	"embed"

	"github.com/structura-io/structura/modules/questionnaire/infrastructure/persistence"
	"github.com/structura-io/structura/modules/questionnaire/presentation/controllers"
	"github.com/structura-io/structura/modules/questionnaire/services"
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

	app.RegisterServices(
		services.NewQuestionnaireService(
			persistence.NewTemplateRepository(),
			persistence.NewCategoryRepository(),
			persistence.CategorySiblings(),
			app.EventBus(),
		),
	)

	app.RegisterControllers(
		controllers.NewQuestionnaireAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "questionnaire"
}
