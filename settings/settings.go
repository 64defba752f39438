// Package settings holds the navigator's persisted configuration: the option
// keys, the in-memory Config handed to the navigator, and the Store
// abstraction the values are read from and written back to.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Persisted option keys.
const (
	KeyInitLocation    = "init_location/location"
	KeyViewingMode     = "navigation/viewing_mode"
	KeyInitViewPos     = "navigation/init_view_pos"
	KeyPresetSkyTime   = "navigation/preset_sky_time"
	KeyTodayTime       = "navigation/today_time"
	KeyStartupTimeMode = "navigation/startup_time_mode"
)

// Defaults for unset keys.
const (
	DefaultLocationID  = "Paris, Paris, France"
	DefaultViewingMode = ViewingModeHorizon
	DefaultInitViewPos = "1,1e-05,0.2"
	DefaultPresetSky   = "2451545"
	DefaultTodayTime   = "22:00"
	DefaultStartupMode = StartupActual
)

// Viewing modes as stored in navigation/viewing_mode.
const (
	ViewingModeEquator = "equator"
	ViewingModeHorizon = "horizon"
)

// StartupTimeMode selects how the simulated time is chosen at startup.
type StartupTimeMode string

const (
	// StartupActual keeps the real-world current time.
	StartupActual StartupTimeMode = "actual"
	// StartupPreset uses navigation/preset_sky_time.
	StartupPreset StartupTimeMode = "preset"
	// StartupToday uses today's date at navigation/today_time.
	StartupToday StartupTimeMode = "today"
)

var (
	// ErrUnknownViewingMode indicates a viewing mode other than equator/horizon.
	ErrUnknownViewingMode = errors.New("unknown viewing mode")
	// ErrUnknownStartupMode indicates a startup time mode other than actual/preset/today.
	ErrUnknownStartupMode = errors.New("unknown startup time mode")
	// ErrInvalidVector indicates a malformed "x,y,z" vector string.
	ErrInvalidVector = errors.New("invalid vector")
)

// Store is a flat string key/value store for persisted options.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Config is the navigator's startup configuration.
type Config struct {
	LocationID      string
	ViewingMode     string
	InitViewPos     mgl64.Vec3
	PresetSkyTime   float64 // wall Julian day, local time
	TodayTime       timectrl.TimeOfDay
	StartupTimeMode StartupTimeMode
}

// Default returns the configuration used when no value is stored.
func Default() Config {
	return Config{
		LocationID:      DefaultLocationID,
		ViewingMode:     DefaultViewingMode,
		InitViewPos:     mgl64.Vec3{1, 1e-05, 0.2},
		PresetSkyTime:   timectrl.J2000,
		TodayTime:       timectrl.TimeOfDay{Hour: 22},
		StartupTimeMode: DefaultStartupMode,
	}
}

// Validate reports configuration inconsistencies that must stop startup.
func (c Config) Validate() error {
	switch c.ViewingMode {
	case ViewingModeEquator, ViewingModeHorizon:
	default:
		return fmt.Errorf("%s %q: %w", KeyViewingMode, c.ViewingMode, ErrUnknownViewingMode)
	}
	switch c.StartupTimeMode {
	case StartupActual, StartupPreset, StartupToday:
	default:
		return fmt.Errorf("%s %q: %w", KeyStartupTimeMode, c.StartupTimeMode, ErrUnknownStartupMode)
	}
	return nil
}

// Load reads every option from store, applying defaults for missing keys.
// Recoverable problems (an unparsable preset time, view vector or time of
// day) are logged and the default or an invalid marker is kept; an unknown
// viewing or startup mode is returned as an error.
func Load(ctx context.Context, store Store, log logging.Logger) (Config, error) {
	if log == nil {
		log = logging.Noop()
	}
	cfg := Default()

	get := func(key, def string) (string, error) {
		if store == nil {
			return def, nil
		}
		v, ok, err := store.Get(key)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", key, err)
		}
		if !ok {
			return def, nil
		}
		return v, nil
	}

	var err error
	if cfg.LocationID, err = get(KeyInitLocation, DefaultLocationID); err != nil {
		return Config{}, err
	}

	if cfg.ViewingMode, err = get(KeyViewingMode, DefaultViewingMode); err != nil {
		return Config{}, err
	}

	rawView, err := get(KeyInitViewPos, DefaultInitViewPos)
	if err != nil {
		return Config{}, err
	}
	if v, perr := ParseVec3(rawView); perr == nil {
		cfg.InitViewPos = v
	} else {
		log.Warn(ctx, "ignoring invalid initial view direction", logging.String("key", KeyInitViewPos), logging.String("error", perr.Error()))
	}

	rawPreset, err := get(KeyPresetSkyTime, DefaultPresetSky)
	if err != nil {
		return Config{}, err
	}
	if jd, perr := timectrl.ParsePresetSkyTime(rawPreset); perr == nil {
		cfg.PresetSkyTime = jd
	} else {
		log.Warn(ctx, "ignoring invalid preset sky time", logging.String("key", KeyPresetSkyTime), logging.String("error", perr.Error()))
	}

	rawToday, err := get(KeyTodayTime, DefaultTodayTime)
	if err != nil {
		return Config{}, err
	}
	// An invalid value is kept as-is; the navigator warns and falls back to now.
	cfg.TodayTime, _ = timectrl.ParseTimeOfDay(rawToday)

	rawMode, err := get(KeyStartupTimeMode, string(DefaultStartupMode))
	if err != nil {
		return Config{}, err
	}
	cfg.StartupTimeMode = StartupTimeMode(strings.ToLower(strings.TrimSpace(rawMode)))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%q: %w", s, ErrInvalidVector)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("%q: %w", s, ErrInvalidVector)
		}
		v[i] = f
	}
	return v, nil
}

// FormatVec3 is the inverse of ParseVec3.
func FormatVec3(v mgl64.Vec3) string {
	return strconv.FormatFloat(v[0], 'g', -1, 64) + "," +
		strconv.FormatFloat(v[1], 'g', -1, 64) + "," +
		strconv.FormatFloat(v[2], 'g', -1, 64)
}

// MemoryStore is a Store backed by a map. The zero value is not usable; use
// NewMemoryStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns a store pre-populated with initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
