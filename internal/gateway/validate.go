package gateway

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/model"
)

var validate = newValidator()

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(model.GenerateRequest)
		checkDates(sl, r.StartDate, r.EndDate)
	}, model.GenerateRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(model.ItineraryInput)
		checkDates(sl, in.StartDate, in.EndDate)
		if in.DaysCount >= 1 && len(in.GeneratedItinerary) != in.DaysCount {
			sl.ReportError(in.GeneratedItinerary, "GeneratedItinerary", "generated_itinerary", "eqdays", "")
		}
	}, model.ItineraryInput{})
	return v
}

func checkDates(sl validator.StructLevel, start, end model.Date) {
	if start.IsZero() {
		sl.ReportError(start, "StartDate", "start_date", "required", "")
	}
	if end.IsZero() {
		sl.ReportError(end, "EndDate", "end_date", "required", "")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		sl.ReportError(end, "EndDate", "end_date", "afterstart", "")
	}
}

// check validates s and converts failures into an apperr validation error.
func check(op string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return apperr.New(apperr.KindValidation, op, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := fieldName(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "afterstart":
		return "end_date must not be before start_date"
	case "eqdays":
		return "generated_itinerary must have one entry per day"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func fieldName(f string) string {
	switch f {
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	case "DaysCount":
		return "days_count"
	case "GeneratedItinerary":
		return "generated_itinerary"
	default:
		return strings.ToLower(f)
	}
}
