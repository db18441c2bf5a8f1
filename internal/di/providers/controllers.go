package providers

import (
	"github.com/samber/do/v2"

	"github.com/meshapp/mesh-cache/internal/controller"
	"github.com/meshapp/mesh-cache/internal/logger"
	"github.com/meshapp/mesh-cache/internal/validation"
)

// ProvideUserController provides the user controller.
func ProvideUserController(i do.Injector) (*controller.UserController, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return controller.NewUserController(storeHandle.Store, validator, log.Logger), nil
}

// ProvidePostController provides the post controller.
func ProvidePostController(i do.Injector) (*controller.PostController, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return controller.NewPostController(storeHandle.Store, validator, log.Logger), nil
}
