package physics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	portPhysics "gaze-walk/backend/internal/core/port/out/physics"
)

// GRPCPhysicsAdapter адаптер для взаимодействия с физическим сервером через gRPC
type GRPCPhysicsAdapter struct {
	conn        *grpc.ClientConn
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewGRPCPhysicsAdapter создает новый адаптер для взаимодействия с физическим сервером.
// Соединение устанавливается лениво при первом вызове.
func NewGRPCPhysicsAdapter(address string, callTimeout time.Duration, logger zerolog.Logger, opts ...grpc.DialOption) (*GRPCPhysicsAdapter, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к серверу физики: %w", err)
	}

	adapter := &GRPCPhysicsAdapter{
		conn:        conn,
		callTimeout: callTimeout,
		logger:      logger.With().Str("component", "GRPCPhysics").Logger(),
	}
	adapter.logger.Info().Str("address", address).Msg("клиент сервера физики создан")

	return adapter, nil
}

// invoke выполняет унарный вызов с таймаутом и переводит статусы обратно в ошибки порта
func (a *GRPCPhysicsAdapter) invoke(ctx context.Context, method string, req, resp any) error {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	err := a.conn.Invoke(ctx, fullMethod(method), req, resp)
	if err == nil {
		return nil
	}

	st := status.Convert(err)
	if st.Code() == codes.NotFound {
		return fmt.Errorf("%s: %w", st.Message(), portPhysics.ErrUnknownBody)
	}
	return fmt.Errorf("ошибка вызова %s через gRPC: %w", method, err)
}

// CreateBody создает тело в физической симуляции
func (a *GRPCPhysicsAdapter) CreateBody(ctx context.Context, req *portPhysics.CreateBodyRequest) (*portPhysics.CreateBodyResponse, error) {
	resp := &portPhysics.CreateBodyResponse{}
	if err := a.invoke(ctx, "CreateBody", req, resp); err != nil {
		return nil, err
	}
	a.logger.Info().Str("body", resp.ID).Str("status", resp.Status).Msg("тело создано на сервере физики")
	return resp, nil
}

// SphereCast пускает сферический луч на сервере
func (a *GRPCPhysicsAdapter) SphereCast(ctx context.Context, req *portPhysics.SphereCastRequest) (*portPhysics.SphereCastResponse, error) {
	resp := &portPhysics.SphereCastResponse{}
	if err := a.invoke(ctx, "SphereCast", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBodyState получает состояние тела
func (a *GRPCPhysicsAdapter) GetBodyState(ctx context.Context, req *portPhysics.GetBodyStateRequest) (*portPhysics.GetBodyStateResponse, error) {
	resp := &portPhysics.GetBodyStateResponse{}
	if err := a.invoke(ctx, "GetBodyState", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ApplyImpulse применяет импульс к телу
func (a *GRPCPhysicsAdapter) ApplyImpulse(ctx context.Context, req *portPhysics.ApplyImpulseRequest) (*portPhysics.ApplyImpulseResponse, error) {
	resp := &portPhysics.ApplyImpulseResponse{}
	if err := a.invoke(ctx, "ApplyImpulse", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SetVelocity перезаписывает скорость тела
func (a *GRPCPhysicsAdapter) SetVelocity(ctx context.Context, req *portPhysics.SetVelocityRequest) (*portPhysics.SetVelocityResponse, error) {
	resp := &portPhysics.SetVelocityResponse{}
	if err := a.invoke(ctx, "SetVelocity", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Step продвигает удаленную симуляцию
func (a *GRPCPhysicsAdapter) Step(ctx context.Context, req *portPhysics.StepRequest) (*portPhysics.StepResponse, error) {
	resp := &portPhysics.StepResponse{}
	if err := a.invoke(ctx, "Step", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close закрывает соединение с физическим сервером
func (a *GRPCPhysicsAdapter) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
