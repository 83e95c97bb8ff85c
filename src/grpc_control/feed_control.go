package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service only exchanges protobuf well-known types, so its
// descriptor is declared here instead of generated from a .proto file.

const (
	FeedControlServiceName = "feed.control.v1.FeedControl"

	FeedControl_GetStatus_FullMethodName    = "/feed.control.v1.FeedControl/GetStatus"
	FeedControl_SelectSymbol_FullMethodName = "/feed.control.v1.FeedControl/SelectSymbol"
	FeedControl_Simulate_FullMethodName     = "/feed.control.v1.FeedControl/Simulate"
)

// -----------------------------------------------------------------------------
// Server API
// -----------------------------------------------------------------------------

type FeedControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SelectSymbol(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Simulate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterFeedControlServer(s grpc.ServiceRegistrar, srv FeedControlServer) {
	s.RegisterService(&FeedControl_ServiceDesc, srv)
}

var FeedControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedControlServiceName,
	HandlerType: (*FeedControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _FeedControl_GetStatus_Handler},
		{MethodName: "SelectSymbol", Handler: _FeedControl_SelectSymbol_Handler},
		{MethodName: "Simulate", Handler: _FeedControl_Simulate_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "feed/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func _FeedControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FeedControl_GetStatus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeedControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func _FeedControl_SelectSymbol_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedControlServer).SelectSymbol(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FeedControl_SelectSymbol_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeedControlServer).SelectSymbol(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func _FeedControl_Simulate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedControlServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FeedControl_Simulate_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FeedControlServer).Simulate(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client API
// -----------------------------------------------------------------------------

type FeedControlClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SelectSymbol(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Simulate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type feedControlClient struct {
	cc grpc.ClientConnInterface
}

func NewFeedControlClient(cc grpc.ClientConnInterface) FeedControlClient {
	return &feedControlClient{cc}
}

func (c *feedControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedControl_GetStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *feedControlClient) SelectSymbol(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedControl_SelectSymbol_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *feedControlClient) Simulate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedControl_Simulate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
