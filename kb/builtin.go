package kb

import "github.com/signalsfoundry/skynav/model"

// BuiltinLocations is the small set of locations every registry starts with.
// Paris comes first: it is the fallback when the configured location is unknown.
var BuiltinLocations = []model.Location{
	model.DefaultLocation,
	{Name: "Greenwich", State: "London", Country: "United Kingdom", PlanetName: "Earth", Longitude: 0, Latitude: 51.4769, Altitude: 46, Role: 'O'},
	{Name: "Mauna Kea", State: "Hawaii", Country: "United States", PlanetName: "Earth", Longitude: -155.4681, Latitude: 19.8207, Altitude: 4205, Role: 'O'},
	{Name: "Cerro Paranal", State: "Antofagasta", Country: "Chile", PlanetName: "Earth", Longitude: -70.4045, Latitude: -24.6272, Altitude: 2635, Role: 'O'},
	{Name: "Tokyo", State: "Tokyo", Country: "Japan", PlanetName: "Earth", Longitude: 139.6917, Latitude: 35.6895, Altitude: 40, Population: 13960, Role: 'C'},
	{Name: "North Pole", State: "", Country: "", PlanetName: "Earth", Longitude: 0, Latitude: 90, Altitude: 0},
	{Name: "Gale Crater", State: "Aeolis", Country: "Mars", PlanetName: "Mars", Longitude: 137.4, Latitude: -5.4, Altitude: -4500},
	{Name: "Olympus Mons", State: "Tharsis", Country: "Mars", PlanetName: "Mars", Longitude: -133.8, Latitude: 18.65, Altitude: 21900},
	{Name: "Barycenter", State: "", Country: "", PlanetName: "Solar System Observer"},
}

// DefaultLocation is the location used when nothing else resolves.
var DefaultLocation = model.DefaultLocation

// NewWithBuiltins returns a knowledge base seeded with BuiltinLocations.
func NewWithBuiltins() *KnowledgeBase {
	kb := NewKnowledgeBase()
	for _, loc := range BuiltinLocations {
		_ = kb.PutLocation(loc)
	}
	return kb
}
