// Package rpc builds the gRPC server. It exposes the standard gRPC health
// service so load balancers can check the analysis service, guarded by the
// API-key interceptor.
package rpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aqualyx/geoanalyze/internal/auth"
)

// ServiceName is the health service name reported for the analysis service.
const ServiceName = "geoanalyze.Analysis"

// Server bundles the gRPC server with its health registry.
type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
}

// New creates a gRPC server with API-key authentication and a health service.
// Both the overall ("") and the analysis service report SERVING.
func New(mode, header, key string) *Server {
	g := grpc.NewServer(grpc.UnaryInterceptor(auth.APIKeyInterceptor(mode, header, key)))
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(g, h)
	return &Server{GRPC: g, Health: h}
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}
