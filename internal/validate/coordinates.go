package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/chronosight/internal/model"
)

var structValidator = validator.New()

// Coordinates checks that a point lies within lat [-90,90] and lng [-180,180]
func Coordinates(c model.Coordinates) error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &model.Error{
			Kind: model.KindInvalidInput,
			Op:   "validate coordinates",
			Msg:  fmt.Sprintf("%s %v is out of range (%s %s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param()),
			Err:  err,
		}
	}
	return &model.Error{Kind: model.KindInvalidInput, Op: "validate coordinates", Msg: err.Error(), Err: err}
}

// Request checks a LocationRequest before it is submitted
func Request(req model.LocationRequest) error {
	switch req.Kind {
	case model.ByCoordinates:
		return Coordinates(req.Coordinates)
	case model.ByName:
		if req.Name == "" {
			return &model.Error{Kind: model.KindInvalidInput, Op: "validate request", Msg: "location name is empty"}
		}
		return nil
	default:
		return &model.Error{Kind: model.KindInvalidInput, Op: "validate request", Msg: "unknown location request kind"}
	}
}
