package ephem

// AUKm is the astronomical unit in kilometres.
const AUKm = 149597870.7

// Well-known body names.
const (
	Sun                 = "Sun"
	Mercury             = "Mercury"
	Venus               = "Venus"
	Earth               = "Earth"
	Mars                = "Mars"
	Jupiter             = "Jupiter"
	Saturn              = "Saturn"
	Uranus              = "Uranus"
	Neptune             = "Neptune"
	SolarSystemObserver = "Solar System Observer"
)

// orbitalElements are mean Keplerian elements referred to the J2000 ecliptic
// and equinox, with their rates of change per Julian century.
// A is in AU, angles in degrees.
type orbitalElements struct {
	A, E, I, L, LongPeri, LongNode float64

	ADot, EDot, IDot, LDot, LongPeriDot, NodeDot float64
}

// rotationElements describe how a body's equator sits in the ecliptic and how
// fast it spins.
type rotationElements struct {
	Period         float64 // sidereal day, Julian days (negative = retrograde)
	Offset         float64 // prime meridian angle at J2000, degrees
	Obliquity      float64 // equator tilt against the ecliptic, degrees
	AscendingNode  float64 // degrees
	PrecessionRate float64 // degrees per day
}

// BodyInfo is the static description of one body.
type BodyInfo struct {
	Name     string
	RadiusKm float64
	orbit    *orbitalElements // nil for bodies fixed at the origin
	rotation rotationElements
}

// Approximate elements valid 1800–2050 (Standish, "Keplerian Elements for
// Approximate Positions of the Major Planets"). Good to a few arcminutes in
// that window and degrading gracefully outside it.
var defaultBodies = []BodyInfo{
	{
		Name:     Sun,
		RadiusKm: 696000,
		rotation: rotationElements{Period: 25.38, Offset: 84.176, Obliquity: 7.25, AscendingNode: 75.76},
	},
	{
		Name:     Mercury,
		RadiusKm: 2439.7,
		orbit: &orbitalElements{
			A: 0.38709927, E: 0.20563593, I: 7.00497902, L: 252.25032350, LongPeri: 77.45779628, LongNode: 48.33076593,
			ADot: 0.00000037, EDot: 0.00001906, IDot: -0.00594749, LDot: 149472.67411175, LongPeriDot: 0.16047689, NodeDot: -0.12534081,
		},
		rotation: rotationElements{Period: 58.6462, Offset: 329.5469, Obliquity: 0.034, AscendingNode: 48.33},
	},
	{
		Name:     Venus,
		RadiusKm: 6051.8,
		orbit: &orbitalElements{
			A: 0.72333566, E: 0.00677672, I: 3.39467605, L: 181.97909950, LongPeri: 131.60246718, LongNode: 76.67984255,
			ADot: 0.00000390, EDot: -0.00004107, IDot: -0.00078890, LDot: 58517.81538729, LongPeriDot: 0.00268329, NodeDot: -0.27769418,
		},
		rotation: rotationElements{Period: -243.0185, Offset: 160.20, Obliquity: 177.36, AscendingNode: 76.68},
	},
	{
		Name:     Earth,
		RadiusKm: 6378.1366,
		orbit: &orbitalElements{
			A: 1.00000261, E: 0.01671123, I: -0.00001531, L: 100.46457166, LongPeri: 102.93768193, LongNode: 0,
			ADot: 0.00000562, EDot: -0.00004392, IDot: -0.01294668, LDot: 35999.37244981, LongPeriDot: 0.32327364, NodeDot: 0,
		},
		rotation: rotationElements{Period: 0.99726968, Obliquity: 23.4392803055555556, PrecessionRate: 50.290966 / 3600 / 365.25},
	},
	{
		Name:     Mars,
		RadiusKm: 3396.19,
		orbit: &orbitalElements{
			A: 1.52371034, E: 0.09339410, I: 1.84969142, L: -4.55343205, LongPeri: -23.94362959, LongNode: 49.55953891,
			ADot: 0.00001847, EDot: 0.00007882, IDot: -0.00813131, LDot: 19140.30268499, LongPeriDot: 0.44441088, NodeDot: -0.29257343,
		},
		rotation: rotationElements{Period: 1.02595676, Offset: 176.630, Obliquity: 25.19, AscendingNode: 49.56},
	},
	{
		Name:     Jupiter,
		RadiusKm: 71492,
		orbit: &orbitalElements{
			A: 5.20288700, E: 0.04838624, I: 1.30439695, L: 34.39644051, LongPeri: 14.72847983, LongNode: 100.47390909,
			ADot: -0.00011607, EDot: -0.00013253, IDot: -0.00183714, LDot: 3034.74612775, LongPeriDot: 0.21252668, NodeDot: 0.20469106,
		},
		rotation: rotationElements{Period: 0.41354, Offset: 284.95, Obliquity: 3.13, AscendingNode: 100.47},
	},
	{
		Name:     Saturn,
		RadiusKm: 60268,
		orbit: &orbitalElements{
			A: 9.53667594, E: 0.05386179, I: 2.48599187, L: 49.95424423, LongPeri: 92.59887831, LongNode: 113.66242448,
			ADot: -0.00125060, EDot: -0.00050991, IDot: 0.00193609, LDot: 1222.49362201, LongPeriDot: -0.41897216, NodeDot: -0.28867794,
		},
		rotation: rotationElements{Period: 0.44401, Offset: 38.90, Obliquity: 26.73, AscendingNode: 113.66},
	},
	{
		Name:     Uranus,
		RadiusKm: 25559,
		orbit: &orbitalElements{
			A: 19.18916464, E: 0.04725744, I: 0.77263783, L: 313.23810451, LongPeri: 170.95427630, LongNode: 74.01692503,
			ADot: -0.00196176, EDot: -0.00004397, IDot: -0.00242939, LDot: 428.48202785, LongPeriDot: 0.40805281, NodeDot: 0.04240589,
		},
		rotation: rotationElements{Period: -0.71833, Offset: 203.81, Obliquity: 97.77, AscendingNode: 74.02},
	},
	{
		Name:     Neptune,
		RadiusKm: 24764,
		orbit: &orbitalElements{
			A: 30.06992276, E: 0.00859048, I: 1.77004347, L: -55.12002969, LongPeri: 44.96476227, LongNode: 131.78422574,
			ADot: 0.00026291, EDot: 0.00005105, IDot: 0.00035372, LDot: 218.45945325, LongPeriDot: -0.32241464, NodeDot: -0.00508664,
		},
		rotation: rotationElements{Period: 0.67125, Offset: 249.978, Obliquity: 28.32, AscendingNode: 131.78},
	},
	{
		// Pseudo-body at the solar-system barycenter; no spin, equator = ecliptic.
		Name:     SolarSystemObserver,
		rotation: rotationElements{Period: 1},
	},
}
