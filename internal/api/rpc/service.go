// Package rpc exposes the generic dispatcher over gRPC. Requests and
// responses are google.protobuf.Struct values carrying the same JSON shapes
// as the REST /query endpoint, so no generated stubs are needed.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"github.com/KevinKickass/OpenMachineConfig/internal/dispatch"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "openmachineconfig.v1.Config"
	queryMethod = "/" + ServiceName + "/Query"
)

// ConfigServer is the server API of openmachineconfig.v1.Config.
type ConfigServer interface {
	Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ConfigServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: queryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "openmachineconfig/v1/config.proto",
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: queryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServer).Query(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type QueryService struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

func NewQueryService(dispatcher *dispatch.Dispatcher, logger *zap.Logger) *QueryService {
	return &QueryService{dispatcher: dispatcher, logger: logger}
}

// Query decodes {entity, action, params} and returns {result} or {error}.
// Domain failures travel in the response body; only malformed requests and
// missing permissions become gRPC status errors.
func (s *QueryService) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := in.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	var req dispatch.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if req.Action.Mutates() && !permitted(ctx, auth.PermTechnician) {
		return nil, status.Error(codes.PermissionDenied, "insufficient permissions")
	}

	body, err := json.Marshal(s.dispatcher.Dispatch(ctx, req))
	if err != nil {
		s.logger.Error("Failed to encode query response", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(body); err != nil {
		s.logger.Error("Failed to encode query response", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// NewServer builds a gRPC server with the config and health services
// registered. The health status is SERVING until the caller changes it.
func NewServer(dispatcher *dispatch.Dispatcher, authService *auth.AuthService, logger *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryAuthInterceptor(authService)))
	srv.RegisterService(&ConfigServiceDesc, NewQueryService(dispatcher, logger))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
