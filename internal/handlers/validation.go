package handlers

import (
  "github.com/gin-gonic/gin/binding"
  "github.com/go-playground/validator/v10"

  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

// RegisterValidations installs custom binding rules on gin's validator.
// Called once by the router before any handler binds a payload.
func RegisterValidations() {
  v, ok := binding.Validator.Engine().(*validator.Validate)
  if !ok {
    return
  }
  v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
    switch fl.Field().String() {
    case types.VisibilityDraft, types.VisibilityPublic, types.VisibilityArchived:
      return true
    }
    return false
  })
}
