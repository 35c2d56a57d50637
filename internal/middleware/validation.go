package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"

	"github.com/healthfirst/portal-api/pkg/validator"
)

// RegisterValidation installs the portal tags on gin's binding engine so
// request structs can use them in `binding` tags.
func RegisterValidation(now func() time.Time) error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return validator.RegisterTags(v, now)
}
