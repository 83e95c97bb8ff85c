package grpc_control

import (
	"context"
	"time"

	"sentiment-pulse/src/config"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements the FeedControlServer interface
type ControlService struct {
	Config     *config.Config
	Feed       interfaces.IPriceFeed
	ConfigPath string
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService. An empty
// cfgPath disables persisting the selected symbol.
func NewControlService(cfg *config.Config, feed interfaces.IPriceFeed, cfgPath string, log *logger.Logger) *ControlService {
	return &ControlService{
		Config:     cfg,
		Feed:       feed,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return s.status("")
}

// -----------------------------------------------------------------------------

func (s *ControlService) SelectSymbol(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	symbol := req.GetValue()
	if symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}

	if err := s.Feed.SelectSymbol(symbol); err != nil {
		if helpers.IsValidation(err) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	// Persist the choice so a restart comes back on the same symbol
	if s.ConfigPath != "" {
		s.Config.Feed.ActiveSymbol = symbol
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Warning("gRPC: Failed to persist active symbol: %v", err)
		}
	}

	s.Logger.Info("gRPC: Active symbol is now %s", symbol)
	return s.status("selected " + symbol)
}

// -----------------------------------------------------------------------------

func (s *ControlService) Simulate(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	s.Feed.StartSimulation()
	s.Logger.Info("gRPC: Simulation forced")
	return s.status("simulation started")
}

// -----------------------------------------------------------------------------

func (s *ControlService) status(message string) (*structpb.Struct, error) {
	symbols := make([]interface{}, 0)
	for _, sym := range s.Feed.Symbols() {
		symbols = append(symbols, sym)
	}

	fields := map[string]interface{}{
		"state":         s.Feed.State().String(),
		"active_symbol": s.Feed.ActiveSymbol(),
		"symbols":       symbols,
	}
	if snap, err := s.Feed.GetSnapshot(""); err == nil && snap.Latest != nil {
		fields["last_price"] = snap.Latest.Price
		fields["percent_change"] = snap.PercentChange
	}
	if message != "" {
		fields["message"] = message
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("gRPC %s -> %s (%s)", info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}
