package rpc

import (
	"context"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type permissionsKey struct{}

// UnaryAuthInterceptor validates the "authorization: Bearer <token>"
// metadata. Health checks are public. With authentication disabled every
// call gets admin permissions.
func UnaryAuthInterceptor(a *auth.AuthService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		if !a.Enabled() {
			return handler(context.WithValue(ctx, permissionsKey{}, auth.RoleAdmin.Permissions()), req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok || token == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization metadata format")
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(context.WithValue(ctx, permissionsKey{}, claims.Role.Permissions()), req)
	}
}

func permitted(ctx context.Context, required auth.Permission) bool {
	perms, _ := ctx.Value(permissionsKey{}).([]auth.Permission)
	for _, p := range perms {
		if p == required {
			return true
		}
	}
	return false
}
