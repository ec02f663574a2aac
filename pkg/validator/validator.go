package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carehospital/admin-api/internal/model"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type structValidator struct {
	v *validator.Validate
}

// New returns a Validator reading `validate` tags, with the custom tags registered.
func New() Validator {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return &structValidator{v: v}
}

// Register adds the appointment_status and appointment_type tags and makes
// field errors use json names. It is applied to gin's binding engine too.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("appointment_status", func(fl validator.FieldLevel) bool {
		return model.AppointmentStatus(fl.Field().String()).IsTarget()
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("appointment_type", func(fl validator.FieldLevel) bool {
		return model.AppointmentType(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

func (s *structValidator) Validate(obj interface{}) error {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}
	return Humanize(err)
}

// Humanize turns validator.ValidationErrors into a single readable error.
// Other errors are returned unchanged.
func Humanize(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "appointment_status":
		return fmt.Sprintf("%s must be one of confirmed, cancelled, completed, rescheduled", fe.Field())
	case "appointment_type":
		return fmt.Sprintf("%s must be one of consultation, followup, emergency, checkup", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
