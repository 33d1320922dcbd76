// Package grpc runs the grocerylist gRPC side port. It serves the standard
// health service (grpc.health.v1.Health) backed by a readiness check, so
// orchestrators can probe the database the web app depends on.
//
//	srv, _, err := grpc.Start(config.GRPCPort(), database.Pinger(db))
//	...
//	grpc.Stop(srv)
//
// Calls are traced with otelgrpc, counted on the shared metrics registry and
// logged one line each. A panicking handler answers INTERNAL.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
)

// ServiceName is the health service name besides "" (the whole server).
const ServiceName = "grocerylist"

const maxMsgSize = 1 << 20

var (
	rpcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grocerylist",
		Name:      "grpc_requests_total",
		Help:      "gRPC calls by method and status code.",
	}, []string{"method", "code"})

	rpcSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grocerylist",
		Name:      "grpc_request_duration_seconds",
		Help:      "gRPC call latency.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
	}, []string{"method"})
)

func init() {
	metrics.MustRegister(rpcTotal, rpcSeconds)
}

// recoverUnary turns a handler panic into codes.Internal.
func recoverUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return next(ctx, req)
}

// observeUnary logs and measures each call.
func observeUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	took := time.Since(start)
	code := status.Code(err)

	rpcTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	rpcSeconds.WithLabelValues(info.FullMethod).Observe(took.Seconds())
	logger.WithCtx(ctx).Info("grpc: call",
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", took.Milliseconds(),
	)
	return resp, err
}

// Checker reports whether the app can serve; nil means ready.
type Checker func(ctx context.Context) error

type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	check Checker
}

func (h *healthServer) serving(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if h.check == nil {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	if err := h.check(ctx); err != nil {
		logger.WithCtx(ctx).Warn("grpc: not ready", "error", err)
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

func knownService(name string) error {
	if name != "" && name != ServiceName {
		return status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	return nil
}

func (h *healthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if err := knownService(req.GetService()); err != nil {
		return nil, err
	}
	return &grpc_health_v1.HealthCheckResponse{Status: h.serving(ctx)}, nil
}

// Watch sends the current status once.
func (h *healthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	if err := knownService(req.GetService()); err != nil {
		return err
	}
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: h.serving(stream.Context())})
}

// NewServer builds a server with the health service registered, not yet
// serving.
func NewServer(check Checker) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(recoverUnary, observeUnary),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	grpc_health_v1.RegisterHealthServer(srv, &healthServer{check: check})
	reflection.Register(srv)
	return srv
}

// Start listens on port and serves in the background.
func Start(port string, check Checker) (*grpc.Server, net.Listener, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}

	srv := NewServer(check)
	logger.Info("grpc: listening", "addr", addr)
	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc: serve", "error", err)
		}
	}()
	return srv, lis, nil
}

// Stop waits for in-flight calls, then stops srv.
func Stop(srv *grpc.Server) {
	if srv == nil {
		return
	}
	logger.Info("grpc: shutting down")
	srv.GracefulStop()
}
