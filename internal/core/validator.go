package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"zapnest/internal/types"
)

// ValidationError describes one failed field rule. Field is the JSON name.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator and registers the domain tags:
//
//	tier - case-insensitive lite|core|elite
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator that reports JSON field names.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("tier", validateTier); err != nil {
		// Registration only fails on an empty tag name.
		panic(fmt.Sprintf("register tier validation: %v", err))
	}

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct runs the struct tags. The returned AppError's code follows
// the first failing rule; every failure is listed under
// Details["validation_errors"].
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: messageFor(fe),
		})
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(out[0].Code),
		out[0].Message,
		err,
		map[string]any{"validation_errors": out},
	)
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "required_without", "required_with":
		return string(types.ErrCodeValidationMissingField)
	case "email":
		return string(types.ErrCodeValidationInvalidEmail)
	case "tier":
		return string(types.ErrCodeValidationInvalidTier)
	default:
		return string(errCodeValidationInvalidJSON)
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "tier":
		return "Invalid tier. Must be lite, core, or elite"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func validateTier(fl validator.FieldLevel) bool {
	switch types.NormalizeTier(fl.Field().String()) {
	case types.TierLite, types.TierCore, types.TierElite:
		return true
	default:
		return false
	}
}
