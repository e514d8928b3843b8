package utils

import (
	"fmt"
	"strings"
	"sync"

	"contentgen/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	ginOnce      sync.Once
)

// enumValidators are shared by the service validator and gin's binding engine.
var enumValidators = map[string]validator.Func{
	"tone": func(fl validator.FieldLevel) bool {
		return models.Tone(fl.Field().String()).Valid()
	},
	"style": func(fl validator.FieldLevel) bool {
		return models.Style(fl.Field().String()).Valid()
	},
	"tier": func(fl validator.FieldLevel) bool {
		return models.QualityTier(fl.Field().String()).Valid()
	},
	"phase": func(fl validator.FieldLevel) bool {
		return models.Phase(fl.Field().String()).Valid()
	},
}

func register(v *validator.Validate) {
	for tag, fn := range enumValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validator %s: %v", tag, err))
		}
	}
}

// GetValidator returns the shared validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)
	})
	return validate
}

// RegisterBindingValidators installs the enum validators on gin's engine.
func RegisterBindingValidators() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
}

// ValidateStruct validates s and flattens failures into one readable error.
func ValidateStruct(s interface{}) error {
	if err := GetValidator().Struct(s); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// FormatValidationError turns validator errors into a "; "-joined message.
// Other errors pass through unchanged.
func FormatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, param)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, param)
		case "tone":
			message = fmt.Sprintf("%s must be a known tone", field)
		case "style":
			message = fmt.Sprintf("%s must be a known style", field)
		case "tier":
			message = fmt.Sprintf("%s must be fast, balanced or quality", field)
		case "phase":
			message = fmt.Sprintf("%s must be a known phase", field)
		default:
			message = fmt.Sprintf("%s failed %s validation", field, e.Tag())
		}
		messages = append(messages, message)
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
