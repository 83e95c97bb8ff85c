package main

import (
	"fmt"
	"net"

	"sentiment-pulse/src/config"
	pb "sentiment-pulse/src/grpc_control"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components. The gRPC
// server is nil when grpc_port is not configured.
func startServers(
	srv interfaces.IDataExchanger,
	feed interfaces.IPriceFeed,
	config *config.Config,
	configPath string,
	appLogger *logger.Logger,
) *grpc.Server {

	// 1. FastAPIServer
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if config.GrpcPort == 0 {
		appLogger.Info("gRPC control disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error("failed to listen for gRPC: %v", err)
		return nil
	}

	grpcLogger := logger.NewLogger(config.MConfig, "ControlService")
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(pb.LoggingInterceptor(grpcLogger)))
	controlService := pb.NewControlService(config, feed, configPath, grpcLogger)
	pb.RegisterFeedControlServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer
}
