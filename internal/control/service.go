// Package control exposes the navigator over gRPC. Requests and replies use
// protobuf well-known types so that no generated code is needed.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/model"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Engine runs navigator commands. *sim.Engine implements it.
type Engine interface {
	Do(ctx context.Context, name string, fn func(*core.Navigator) error) error
	State() sim.State
	SelectBody(ctx context.Context, body string) error
	SetTracking(ctx context.Context, enabled bool) error
}

// LocationDirectory resolves and lists locations. *kb.KnowledgeBase
// implements it.
type LocationDirectory interface {
	Resolve(id string) (model.Location, error)
	ListLocations() []model.Location
	LocationsOn(planet string) []model.Location
}

// Service implements NavigatorControlServer.
type Service struct {
	engine Engine
	locs   LocationDirectory
	log    logging.Logger
}

var _ NavigatorControlServer = (*Service)(nil)

// NewService returns a control service driving engine.
func NewService(engine Engine, locs LocationDirectory, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{engine: engine, locs: locs, log: log}
}

// GetState returns the latest published state.
func (s *Service) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.engine.State())
}

// SetJulianDay sets the simulated time. Out-of-range days are clamped.
func (s *Service) SetJulianDay(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	jd := in.GetValue()
	return s.apply(ctx, MethodSetJulianDay, func(n *core.Navigator) error {
		n.SetJulianDay(jd)
		return nil
	})
}

// SetTimeRate sets the rate in Julian days per real second.
func (s *Service) SetTimeRate(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	rate := in.GetValue()
	return s.apply(ctx, MethodSetTimeRate, func(n *core.Navigator) error {
		n.SetTimeRate(rate)
		return nil
	})
}

// SetTimeNow resets the simulated time to the real current time.
func (s *Service) SetTimeNow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, MethodSetTimeNow, func(n *core.Navigator) error {
		n.SetTimeNow()
		return nil
	})
}

// StepTimeRate speeds time up or down. Request fields: direction
// ("increase" or "decrease") and fine (bool, selects the smaller step).
func (s *Service) StepTimeRate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	direction, _, err := stringField(in, "direction")
	if err != nil {
		return nil, ToStatusError(err)
	}
	fine, _, err := boolField(in, "fine")
	if err != nil {
		return nil, ToStatusError(err)
	}

	var step func(*core.Navigator)
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "increase", "faster", "+":
		step = (*core.Navigator).IncreaseTimeSpeed
		if fine {
			step = (*core.Navigator).IncreaseTimeSpeedLess
		}
	case "decrease", "slower", "-":
		step = (*core.Navigator).DecreaseTimeSpeed
		if fine {
			step = (*core.Navigator).DecreaseTimeSpeedLess
		}
	default:
		return nil, ToStatusError(fmt.Errorf("%w: direction %q, want increase or decrease", ErrInvalidRequest, direction))
	}
	return s.apply(ctx, MethodStepTimeRate, func(n *core.Navigator) error {
		step(n)
		return nil
	})
}

// AddDays shifts the simulated time. Request fields: days (number) and
// sidereal (bool, counts days of the observer's body).
func (s *Service) AddDays(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	days, ok, err := numberField(in, "days")
	if err == nil && !ok {
		err = fmt.Errorf("%w: days is required", ErrInvalidRequest)
	}
	if err != nil {
		return nil, ToStatusError(err)
	}
	sidereal, _, err := boolField(in, "sidereal")
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.apply(ctx, MethodAddDays, func(n *core.Navigator) error {
		if sidereal {
			n.AddSiderealDays(days)
		} else {
			n.AddSolarDays(days)
		}
		return nil
	})
}

// MoveObserver starts moving the observer to a registered location. Request
// fields: location (ID), duration and duration_if_planet_change (real
// seconds, defaulting to core.DefaultMoveDuration and
// core.DefaultMoveDurationPlanetChange).
func (s *Service) MoveObserver(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, ok, err := stringField(in, "location")
	if err == nil && !ok {
		err = fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	if err != nil {
		return nil, ToStatusError(err)
	}
	duration, ok, err := numberField(in, "duration")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if !ok {
		duration = core.DefaultMoveDuration
	}
	planetDuration, ok, err := numberField(in, "duration_if_planet_change")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if !ok {
		planetDuration = core.DefaultMoveDurationPlanetChange
	}

	target, err := s.locs.Resolve(id)
	if err != nil {
		return nil, ToStatusError(err)
	}
	loggerFrom(ctx, s.log).Info(ctx, "moving observer",
		logging.String("location", target.ID()),
		logging.Float64("duration_s", duration))
	return s.apply(ctx, MethodMoveObserver, func(n *core.Navigator) error {
		n.MoveObserverTo(target, duration, planetDuration)
		return nil
	})
}

// SelectBody selects a solar-system body; an empty name clears the selection.
func (s *Service) SelectBody(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.engine.SelectBody(ctx, in.GetValue()); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(s.engine.State())
}

// SetTracking makes the view follow the selected body.
func (s *Service) SetTracking(ctx context.Context, in *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if err := s.engine.SetTracking(ctx, in.GetValue()); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(s.engine.State())
}

// MoveToSelected moves the observer onto the selected body.
func (s *Service) MoveToSelected(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, MethodMoveToSelected, (*core.Navigator).MoveObserverToSelected)
}

// SetMountMode accepts "horizon", "equator" or "toggle".
func (s *Service) SetMountMode(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if strings.EqualFold(strings.TrimSpace(in.GetValue()), "toggle") {
		return s.apply(ctx, MethodSetMountMode, func(n *core.Navigator) error {
			n.ToggleMountMode()
			return nil
		})
	}
	mode, err := core.ParseMountMode(in.GetValue())
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.apply(ctx, MethodSetMountMode, func(n *core.Navigator) error {
		n.SetMountMode(mode)
		return nil
	})
}

// SetVisionDirection points the view. Request fields: frame ("altaz",
// "equatorial" or "j2000", default "altaz") and x, y, z.
func (s *Service) SetVisionDirection(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	frame, ok, err := stringField(in, "frame")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if !ok {
		frame = core.FrameAltAz
	}
	var v mgl64.Vec3
	for i, key := range []string{"x", "y", "z"} {
		c, ok, err := numberField(in, key)
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
		}
		if err != nil {
			return nil, ToStatusError(err)
		}
		v[i] = c
	}
	if v.Len() == 0 {
		return nil, ToStatusError(fmt.Errorf("%w: direction must be non-zero", ErrInvalidRequest))
	}
	return s.apply(ctx, MethodSetVisionDirection, func(n *core.Navigator) error {
		return n.SetVisionDirection(frame, v)
	})
}

type locationEntry struct {
	ID string `json:"id"`
	model.Location
}

// ListLocations lists registered locations, optionally only those on the
// named body.
func (s *Service) ListLocations(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	var locs []model.Location
	if planet := strings.TrimSpace(in.GetValue()); planet != "" {
		locs = s.locs.LocationsOn(planet)
	} else {
		locs = s.locs.ListLocations()
	}
	entries := make([]locationEntry, 0, len(locs))
	for _, loc := range locs {
		entries = append(entries, locationEntry{ID: loc.ID(), Location: loc})
	}
	return toStruct(map[string]any{"locations": entries})
}

// settingsView is the persisted configuration as returned by UpdateSettings.
type settingsView struct {
	Location        string     `json:"location"`
	ViewingMode     string     `json:"viewing_mode"`
	InitViewPos     mgl64.Vec3 `json:"init_view_pos"`
	PresetSkyTime   float64    `json:"preset_sky_time"`
	TodayTime       string     `json:"today_time"`
	StartupTimeMode string     `json:"startup_time_mode"`
}

// UpdateSettings changes the persisted startup options. Every request field
// is optional: location (ID), startup_time_mode ("actual", "preset" or
// "today"), preset_sky_time (Julian day or date string), today_time
// ("HH:MM[:SS]") and save_view_direction (bool, stores the current view as
// the startup direction). It replies with the resulting configuration.
func (s *Service) UpdateSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var steps []func(*core.Navigator) error

	if id, ok, err := stringField(in, "location"); err != nil {
		return nil, ToStatusError(err)
	} else if ok {
		steps = append(steps, func(n *core.Navigator) error { return n.SetDefaultLocationID(id) })
	}
	if mode, ok, err := stringField(in, "startup_time_mode"); err != nil {
		return nil, ToStatusError(err)
	} else if ok {
		m := settings.StartupTimeMode(strings.ToLower(strings.TrimSpace(mode)))
		steps = append(steps, func(n *core.Navigator) error { return n.SetStartupTimeMode(m) })
	}
	if preset, ok, err := presetField(in, "preset_sky_time"); err != nil {
		return nil, ToStatusError(err)
	} else if ok {
		steps = append(steps, func(n *core.Navigator) error { return n.SetPresetSkyTime(preset) })
	}
	if raw, ok, err := stringField(in, "today_time"); err != nil {
		return nil, ToStatusError(err)
	} else if ok {
		tod, err := timectrl.ParseTimeOfDay(raw)
		if err != nil {
			return nil, ToStatusError(err)
		}
		steps = append(steps, func(n *core.Navigator) error { return n.SetInitTodayTime(tod) })
	}
	if save, _, err := boolField(in, "save_view_direction"); err != nil {
		return nil, ToStatusError(err)
	} else if save {
		steps = append(steps, (*core.Navigator).SetInitViewDirectionToCurrent)
	}

	var cfg settings.Config
	err := s.engine.Do(ctx, MethodUpdateSettings, func(n *core.Navigator) error {
		for _, step := range steps {
			if err := step(n); err != nil {
				return err
			}
		}
		cfg = n.Config()
		return nil
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(settingsView{
		Location:        cfg.LocationID,
		ViewingMode:     cfg.ViewingMode,
		InitViewPos:     cfg.InitViewPos,
		PresetSkyTime:   cfg.PresetSkyTime,
		TodayTime:       cfg.TodayTime.String(),
		StartupTimeMode: string(cfg.StartupTimeMode),
	})
}

func (s *Service) apply(ctx context.Context, name string, fn func(*core.Navigator) error) (*structpb.Struct, error) {
	if err := s.engine.Do(ctx, name, fn); err != nil {
		return nil, ToStatusError(err)
	}
	return toStruct(s.engine.State())
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("encode reply: %w", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, ToStatusError(fmt.Errorf("encode reply: %w", err))
	}
	return out, nil
}

func field(in *structpb.Struct, key string) (*structpb.Value, bool) {
	v, ok := in.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil, false
	}
	return v, true
}

func numberField(in *structpb.Struct, key string) (float64, bool, error) {
	v, ok := field(in, key)
	if !ok {
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	return n.NumberValue, true, nil
}

func stringField(in *structpb.Struct, key string) (string, bool, error) {
	v, ok := field(in, key)
	if !ok {
		return "", false, nil
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	return s.StringValue, true, nil
}

func boolField(in *structpb.Struct, key string) (bool, bool, error) {
	v, ok := field(in, key)
	if !ok {
		return false, false, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, false, fmt.Errorf("%w: %s must be a bool", ErrInvalidRequest, key)
	}
	return b.BoolValue, true, nil
}

// presetField accepts a Julian day number or any string
// timectrl.ParsePresetSkyTime understands.
func presetField(in *structpb.Struct, key string) (float64, bool, error) {
	v, ok := field(in, key)
	if !ok {
		return 0, false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, true, nil
	case *structpb.Value_StringValue:
		jd, err := timectrl.ParsePresetSkyTime(k.StringValue)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return jd, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s must be a number or a date string", ErrInvalidRequest, key)
	}
}
