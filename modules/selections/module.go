package selections

import (
	"embed"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/modules/selections/infrastructure/persistence"
	"github.com/structura-io/structura/modules/selections/presentation/controllers"
	"github.com/structura-io/structura/modules/selections/services"
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

	templates := persistence.NewTemplateRepository()
	categories := persistence.NewCategoryRepository()
	questions := persistence.NewQuestionRepository()

	app.RegisterServices(
		services.NewTemplateService(templates, app.EventBus()),
		services.NewCategoryService(
			templates,
			categories,
			questions,
			persistence.CategorySiblings(selection.DimensionInitial),
			persistence.CategorySiblings(selection.DimensionPaint),
			app.EventBus(),
		),
		services.NewQuestionService(categories, questions, persistence.QuestionSiblings(), app.EventBus()),
	)

	app.RegisterControllers(
		controllers.NewSelectionsAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "selections"
}
