package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgvalidator "github.com/carehospital/admin-api/pkg/validator"
)

// RegisterValidators installs the custom tags on gin's binding validator.
// Call once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return pkgvalidator.Register(v)
}
