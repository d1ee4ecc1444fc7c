package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Coordinates is a point on the map in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// IsZero reports whether both components are zero
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// DisplayName formats coordinates the way they are shown as a location title
func (c Coordinates) DisplayName() string {
	return fmt.Sprintf("Lat: %.4f, Lon: %.4f", c.Lat, c.Lng)
}

// String renders coordinates as the resolver sees them
func (c Coordinates) String() string {
	return fmt.Sprintf("latitude %g, longitude %g", c.Lat, c.Lng)
}

// RequestKind tags a LocationRequest
type RequestKind int

const (
	ByCoordinates RequestKind = iota + 1 // Map click or typed "lat, lng"
	ByName                               // Free-text place name
)

func (k RequestKind) String() string {
	switch k {
	case ByCoordinates:
		return "coordinates"
	case ByName:
		return "name"
	default:
		return "unknown"
	}
}

// LocationRequest is one user pick, consumed once by the resolver.
// A ByName request carries zero Coordinates; Kind, not the zero value,
// decides how the request is interpreted.
type LocationRequest struct {
	Kind        RequestKind `json:"kind"`
	Coordinates Coordinates `json:"coordinates"`
	Name        string      `json:"name,omitempty"`
}

// NewCoordinatesRequest builds a ByCoordinates request
func NewCoordinatesRequest(c Coordinates) LocationRequest {
	return LocationRequest{Kind: ByCoordinates, Coordinates: c}
}

// NewNameRequest builds a ByName request
func NewNameRequest(name string) LocationRequest {
	return LocationRequest{Kind: ByName, Name: name}
}

// Identifier is the location text handed to the model
func (r LocationRequest) Identifier() string {
	if r.Kind == ByName {
		return r.Name
	}
	return r.Coordinates.String()
}

// DisplayName is the title shown for the request before resolution
func (r LocationRequest) DisplayName() string {
	if r.Kind == ByName {
		return r.Name
	}
	return r.Coordinates.DisplayName()
}

var coordinatePattern = regexp.MustCompile(`^(-?\d+(\.\d+)?),\s*(-?\d+(\.\d+)?)$`)

// ParseQuery turns search text into a LocationRequest. Text of the form
// "lat, lng" always becomes a ByCoordinates request; anything else is a
// named search. The input is trimmed first; blank input is rejected.
func ParseQuery(text string) (LocationRequest, error) {
	term := strings.TrimSpace(text)
	if term == "" {
		return LocationRequest{}, &Error{Kind: KindInvalidInput, Op: "parse query", Msg: "search term is empty"}
	}

	m := coordinatePattern.FindStringSubmatch(term)
	if m == nil {
		return NewNameRequest(term), nil
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return LocationRequest{}, &Error{Kind: KindInvalidInput, Op: "parse query", Msg: "invalid latitude", Err: err}
	}
	lng, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return LocationRequest{}, &Error{Kind: KindInvalidInput, Op: "parse query", Msg: "invalid longitude", Err: err}
	}

	return NewCoordinatesRequest(Coordinates{Lat: lat, Lng: lng}), nil
}
