package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "skynav.control.v1.NavigatorControl"

// Method names of the control service.
const (
	MethodGetState           = "GetState"
	MethodSetJulianDay       = "SetJulianDay"
	MethodSetTimeRate        = "SetTimeRate"
	MethodSetTimeNow         = "SetTimeNow"
	MethodStepTimeRate       = "StepTimeRate"
	MethodAddDays            = "AddDays"
	MethodMoveObserver       = "MoveObserver"
	MethodSelectBody         = "SelectBody"
	MethodSetTracking        = "SetTracking"
	MethodMoveToSelected     = "MoveToSelected"
	MethodSetMountMode       = "SetMountMode"
	MethodSetVisionDirection = "SetVisionDirection"
	MethodListLocations      = "ListLocations"
	MethodUpdateSettings     = "UpdateSettings"
)

// NavigatorControlServer is the server API of the control service. Every
// method answers with the navigator state (or the listing it asked for) as a
// protobuf Struct.
type NavigatorControlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetJulianDay(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	SetTimeRate(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	SetTimeNow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StepTimeRate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddDays(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoveObserver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectBody(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetTracking(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	MoveToSelected(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetMountMode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetVisionDirection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLocations(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	UpdateSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NavigatorControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetState, NavigatorControlServer.GetState),
		unary(MethodSetJulianDay, NavigatorControlServer.SetJulianDay),
		unary(MethodSetTimeRate, NavigatorControlServer.SetTimeRate),
		unary(MethodSetTimeNow, NavigatorControlServer.SetTimeNow),
		unary(MethodStepTimeRate, NavigatorControlServer.StepTimeRate),
		unary(MethodAddDays, NavigatorControlServer.AddDays),
		unary(MethodMoveObserver, NavigatorControlServer.MoveObserver),
		unary(MethodSelectBody, NavigatorControlServer.SelectBody),
		unary(MethodSetTracking, NavigatorControlServer.SetTracking),
		unary(MethodMoveToSelected, NavigatorControlServer.MoveToSelected),
		unary(MethodSetMountMode, NavigatorControlServer.SetMountMode),
		unary(MethodSetVisionDirection, NavigatorControlServer.SetVisionDirection),
		unary(MethodListLocations, NavigatorControlServer.ListLocations),
		unary(MethodUpdateSettings, NavigatorControlServer.UpdateSettings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skynav/control/v1/control.proto",
}

// RegisterNavigatorControlServer registers srv on s.
func RegisterNavigatorControlServer(s grpc.ServiceRegistrar, srv NavigatorControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the gRPC path of a control method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method descriptor for a handler taking *Req.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}](name string, call func(NavigatorControlServer, context.Context, PReq) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(NavigatorControlServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(PReq))
			})
		},
	}
}
