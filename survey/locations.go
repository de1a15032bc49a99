package survey

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownLocation = errors.New("unknown location")

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapCenter and MapZoom frame Northern Mindanao.
var (
	MapCenter = Coordinates{Lat: 8.5, Lng: 124.6}
	MapZoom   = 8
)

type province struct {
	name           string
	municipalities []string
}

// Only provinces with surveyed municipalities are offered on the form.
var provinces = []province{
	{"Bukidnon", []string{
		"Maramag", "Baungon", "Talakag", "Manolo Fortich", "Malaybalay",
		"Kibawe", "Valencia City", "Libona", "Quezon",
	}},
	{"Misamis Oriental", []string{
		"Balingasag", "Manticao", "Gingoog City", "Naawan", "Claveria",
		"Lugait", "Jasaan", "Opol", "El Salvador", "Villanueva",
		"Kinoguitan", "Cagayan de Oro", "Magsaysay", "Tagoloan", "Medina",
	}},
	{"Lanao del Norte", []string{"Iligan City"}},
}

var coordinates = map[string]Coordinates{
	"Libona":         {8.40, 124.73},
	"Quezon":         {7.72, 125.10},
	"Balingasag":     {8.75, 124.78},
	"Manticao":       {8.40, 124.28},
	"Gingoog City":   {8.83, 125.10},
	"Naawan":         {8.43, 124.32},
	"Claveria":       {8.62, 124.89},
	"Lugait":         {8.33, 124.26},
	"Jasaan":         {8.65, 124.75},
	"Opol":           {8.52, 124.58},
	"El Salvador":    {8.56, 124.52},
	"Villanueva":     {8.58, 124.78},
	"Kinoguitan":     {8.98, 124.79},
	"Cagayan de Oro": {8.48, 124.65},
	"Magsaysay":      {8.96, 125.00},
	"Tagoloan":       {8.53, 124.75},
	"Medina":         {8.91, 125.02},
	"Iligan City":    {8.23, 124.24},
}

// Provinces returns the form's province choices in display order.
func Provinces() []string {
	names := make([]string, len(provinces))
	for i, p := range provinces {
		names[i] = p.name
	}
	return names
}

// Municipalities returns the municipalities of a province.
func Municipalities(name string) ([]string, error) {
	for _, p := range provinces {
		if p.name == name {
			return slices.Clone(p.municipalities), nil
		}
	}
	return nil, fmt.Errorf("%w: province %q", ErrUnknownLocation, name)
}

// CheckLocation verifies municipality belongs to province.
func CheckLocation(province, municipality string) error {
	names, err := Municipalities(province)
	if err != nil {
		return err
	}
	if !slices.Contains(names, municipality) {
		return fmt.Errorf("%w: %q is not in %s", ErrUnknownLocation, municipality, province)
	}
	return nil
}

// Locate returns map coordinates when the municipality has them.
func Locate(municipality string) (Coordinates, bool) {
	c, ok := coordinates[municipality]
	return c, ok
}

// Location is one dropdown entry with its optional coordinates.
type Location struct {
	Municipality string       `json:"municipality"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// Locations returns every province with its municipalities.
func Locations() map[string][]Location {
	out := make(map[string][]Location, len(provinces))
	for _, p := range provinces {
		entries := make([]Location, len(p.municipalities))
		for i, m := range p.municipalities {
			entries[i] = Location{Municipality: m}
			if c, ok := coordinates[m]; ok {
				entries[i].Coordinates = &c
			}
		}
		out[p.name] = entries
	}
	return out
}

// Marker is a map pin for one prediction.
type Marker struct {
	Coordinates
	Color string `json:"color"`
	Popup string `json:"popup"`
}

// MarkerFor builds the pin for municipality, or nil when it has no coordinates.
func MarkerFor(municipality, risk string) *Marker {
	c, ok := Locate(municipality)
	if !ok {
		return nil
	}
	return &Marker{
		Coordinates: c,
		Color:       MarkerColor(risk),
		Popup:       fmt.Sprintf("%s - %s", municipality, risk),
	}
}
