package modules

import (
	"github.com/structura-io/structura/modules/estimation"
	"github.com/structura-io/structura/modules/questionnaire"
	"github.com/structura-io/structura/modules/selections"
	"github.com/structura-io/structura/pkg/application"
)

var BuiltInModules = []application.Module{
	estimation.NewModule(),
	selections.NewModule(),
	questionnaire.NewModule(),
}

func Load(app *application.Application, externalModules ...application.Module) error {
	if err := app.RegisterModules(BuiltInModules...); err != nil {
		return err
	}
	return app.RegisterModules(externalModules...)
}
