package control

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/observability"
)

// NewGRPCServer returns a gRPC server with svc registered behind the
// request-id, metrics and tracing interceptors. collector may be nil.
func NewGRPCServer(svc NavigatorControlServer, collector *observability.ControlCollector, log logging.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	}
	server := grpc.NewServer(append(base, opts...)...)
	RegisterNavigatorControlServer(server, svc)
	return server
}
