package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
)

var validate = newValidator()

// newValidator adds the "clock" rule: a time of day civil.ParseTime accepts,
// H:MM or HH:MM.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := civil.ParseTime(fl.Field().String())
		return ok
	})
	return v
}

// eventInput is the flag form of a manual event.
type eventInput struct {
	Date        string `validate:"required,datetime=2006-01-02"`
	Start       string `validate:"omitempty,clock"`
	End         string `validate:"omitempty,clock"`
	Category    string `validate:"required,oneof=lesson orientation escort campus-tour cultural-experience company-visit buddy-lunch closing-ceremony other"`
	Title       string `validate:"required,max=200"`
	Location    string `validate:"max=200"`
	Headcount   int    `validate:"gte=0"`
	Buddies     int    `validate:"gte=0"`
	StaffCount  int    `validate:"gte=0"`
	Transport   string `validate:"omitempty,oneof=none bus walk on-campus"`
	BusCompany  string
	Vehicles    int    `validate:"gte=0"`
	Trip        string `validate:"omitempty,oneof=one-way round-trip"`
	Stops       string
	RoomNeeded  bool
	StaffNeeded bool
	Arrangement bool
	Notes       string
}

func (in eventInput) Event() model.Event {
	e := model.Event{
		Date:              in.Date,
		StartTime:         in.Start,
		EndTime:           in.End,
		Category:          model.Category(in.Category),
		Title:             strings.TrimSpace(in.Title),
		Location:          strings.TrimSpace(in.Location),
		RoomNeeded:        in.RoomNeeded,
		Headcount:         in.Headcount,
		Buddies:           in.Buddies,
		StaffNeeded:       in.StaffNeeded || in.StaffCount > 0,
		StaffCount:        in.StaffCount,
		Transport:         model.Transport(in.Transport),
		ArrangementNeeded: in.Arrangement,
		Notes:             in.Notes,
	}
	if e.Transport == model.TransportBus {
		e.Bus = model.BusDetails{
			Company:  in.BusCompany,
			Vehicles: in.Vehicles,
			Trip:     model.TripType(in.Trip),
			Stops:    in.Stops,
		}
	}
	return e
}

// validateInput returns the first failed field as a readable error.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("invalid input: %s is required", field)
	case "datetime":
		return fmt.Errorf("invalid input: %s %q does not match %s", field, fe.Value(), fe.Param())
	case "clock":
		return fmt.Errorf("invalid input: %s %q is not a time of day (H:MM)", field, fe.Value())
	case "oneof":
		return fmt.Errorf("invalid input: %s %q must be one of: %s", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Errorf("invalid input: %s failed %s", field, fe.Tag())
	}
}
