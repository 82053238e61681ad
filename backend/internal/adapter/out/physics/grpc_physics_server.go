package physics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	portPhysics "gaze-walk/backend/internal/core/port/out/physics"
)

const physicsServiceName = "gazewalk.physics.Physics"

func fullMethod(name string) string {
	return "/" + physicsServiceName + "/" + name
}

// unaryMethod описывает один унарный метод сервиса поверх метода порта
func unaryMethod[Req any, Resp any](name string, call func(portPhysics.PhysicsPort, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			port := srv.(portPhysics.PhysicsPort)
			if interceptor == nil {
				return call(port, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(port, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// physicsServiceDesc описание сервиса физики, написанное руками вместо protoc
var physicsServiceDesc = grpc.ServiceDesc{
	ServiceName: physicsServiceName,
	HandlerType: (*portPhysics.PhysicsPort)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateBody", portPhysics.PhysicsPort.CreateBody),
		unaryMethod("SphereCast", portPhysics.PhysicsPort.SphereCast),
		unaryMethod("GetBodyState", portPhysics.PhysicsPort.GetBodyState),
		unaryMethod("ApplyImpulse", portPhysics.PhysicsPort.ApplyImpulse),
		unaryMethod("SetVelocity", portPhysics.PhysicsPort.SetVelocity),
		unaryMethod("Step", portPhysics.PhysicsPort.Step),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gazewalk/physics",
}

// RegisterPhysicsServer публикует любую реализацию порта физики как gRPC-сервис
func RegisterPhysicsServer(s grpc.ServiceRegistrar, impl portPhysics.PhysicsPort) {
	s.RegisterService(&physicsServiceDesc, impl)
}

// NewPhysicsServer создает gRPC-сервер с логированием и переводом ошибок порта в статусы
func NewPhysicsServer(impl portPhysics.PhysicsPort, logger zerolog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	log := logger.With().Str("component", "PhysicsServer").Logger()
	opts = append(opts, grpc.ChainUnaryInterceptor(statusInterceptor, loggingInterceptor(log)))

	s := grpc.NewServer(opts...)
	RegisterPhysicsServer(s, impl)
	return s
}

// statusInterceptor переводит ошибки порта в gRPC-коды
func statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}
	switch {
	case errors.Is(err, portPhysics.ErrUnknownBody):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("method", info.FullMethod).Msg("ошибка вызова")
			return resp, err
		}
		log.Trace().Str("method", info.FullMethod).Dur("took", time.Since(start)).Send()
		return resp, nil
	}
}
