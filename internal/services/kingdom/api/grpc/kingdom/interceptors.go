package kingdom

import (
	"context"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/i18n/catalog"
	"github.com/louisbranch/throne-of-dust/internal/platform/id"
	"github.com/louisbranch/throne-of-dust/internal/platform/requestctx"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/auth"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"
)

// Metadata keys read or written by the interceptors.
const (
	RequestIDHeader = "x-throne-of-dust-request-id"
	LocaleHeader    = "x-locale"
	authHeader      = "authorization"
)

// RequestIDInterceptor echoes the caller's request id, or assigns one, in
// the response headers.
func RequestIDInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		requestID := firstValue(md, RequestIDHeader)
		if requestID == "" {
			generated, err := idGenerator()
			if err != nil {
				return nil, status.Errorf(codes.Internal, "generate request id: %v", err)
			}
			requestID = generated
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(ctx, req)
	}
}

// ErrorInterceptor negotiates the caller's locale and converts domain
// errors into gRPC statuses with localized details.
func ErrorInterceptor(locales *catalog.Bundle) grpc.UnaryServerInterceptor {
	if locales == nil {
		locales = catalog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		requested := firstValue(md, LocaleHeader)
		if requested == "" {
			requested = firstValue(md, "accept-language")
		}
		locale := locales.Match(requested)
		ctx = requestctx.WithLocale(ctx, locale)

		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if code := apperrors.GetCode(err); code == apperrors.CodeUnknown {
			if _, ok := status.FromError(err); !ok {
				log.Printf("%s: %v", info.FullMethod, err)
			}
		}
		return nil, apperrors.HandleError(err, locale)
	}
}

// AuthInterceptor verifies the bearer token for every method except
// Register and Login and stores the player id in the context.
func AuthInterceptor(svc *service.Service) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] || !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		token, ok := auth.BearerToken(firstValue(md, authHeader))
		if !ok {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "missing bearer token")
		}
		claims, err := svc.Authenticate(token)
		if err != nil {
			return nil, err
		}
		return handler(requestctx.WithPlayerID(ctx, claims.PlayerID), req)
	}
}

// Interceptors returns the server chain in the order it must run.
func Interceptors(svc *service.Service) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		RequestIDInterceptor(nil),
		ErrorInterceptor(nil),
		AuthInterceptor(svc),
	}
}

func firstValue(md metadata.MD, key string) string {
	for _, v := range md.Get(key) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
