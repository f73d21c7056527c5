package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vendora/marketplace-ledger/internal/application"
)

type LedgerInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewLedgerInternalServer(service *application.Service) *LedgerInternalServer {
	return &LedgerInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc *LedgerInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *LedgerInternalServer) Check(_ context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *LedgerInternalServer) Watch(_ *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING})
}
