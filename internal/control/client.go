package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the control service over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Call invokes method with a Struct request. It is the generic entry point
// used by the command-line client.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, method, in, opts...)
}

func (c *Client) GetState(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetState, &emptypb.Empty{}, opts...)
}

func (c *Client) SetJulianDay(ctx context.Context, jd float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetJulianDay, wrapperspb.Double(jd), opts...)
}

func (c *Client) SetTimeRate(ctx context.Context, rate float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetTimeRate, wrapperspb.Double(rate), opts...)
}

func (c *Client) SetTimeNow(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetTimeNow, &emptypb.Empty{}, opts...)
}

func (c *Client) StepTimeRate(ctx context.Context, increase, fine bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	direction := "decrease"
	if increase {
		direction = "increase"
	}
	in, err := structpb.NewStruct(map[string]any{"direction": direction, "fine": fine})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodStepTimeRate, in, opts...)
}

func (c *Client) AddDays(ctx context.Context, days float64, sidereal bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"days": days, "sidereal": sidereal})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodAddDays, in, opts...)
}

func (c *Client) MoveObserver(ctx context.Context, locationID string, duration, durationIfPlanetChange float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{
		"location":                  locationID,
		"duration":                  duration,
		"duration_if_planet_change": durationIfPlanetChange,
	})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodMoveObserver, in, opts...)
}

func (c *Client) SelectBody(ctx context.Context, body string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSelectBody, wrapperspb.String(body), opts...)
}

func (c *Client) SetTracking(ctx context.Context, enabled bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetTracking, wrapperspb.Bool(enabled), opts...)
}

func (c *Client) MoveToSelected(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodMoveToSelected, &emptypb.Empty{}, opts...)
}

func (c *Client) SetMountMode(ctx context.Context, mode string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetMountMode, wrapperspb.String(mode), opts...)
}

func (c *Client) SetVisionDirection(ctx context.Context, frame string, x, y, z float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"frame": frame, "x": x, "y": y, "z": z})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodSetVisionDirection, in, opts...)
}

func (c *Client) ListLocations(ctx context.Context, planet string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListLocations, wrapperspb.String(planet), opts...)
}

func (c *Client) UpdateSettings(ctx context.Context, changes map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(changes)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, MethodUpdateSettings, in, opts...)
}
