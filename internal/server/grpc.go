package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/vinscan/internal/common"
)

const requestIDHeader = "x-request-id"

// New builds a gRPC server with the VIN service and the standard health service
// registered. The health server starts SERVING.
func New(svc VinServiceServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(requestLogger(logger)))
	grpcServer := grpc.NewServer(opts...)

	RegisterVinServiceServer(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return grpcServer, healthServer
}

// requestLogger attaches a request ID (from x-request-id or freshly generated)
// and logs one line per call.
func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDHeader); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, id := common.EnsureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		logger.Info("grpc.call",
			"method", info.FullMethod,
			"request_id", id,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
