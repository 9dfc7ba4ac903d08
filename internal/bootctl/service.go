package bootctl

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "autopeer.bootctl.v1.BootControl"

const (
	methodGetCurrentSlot         = "GetCurrentSlot"
	methodIsSlotMarkedSuccessful = "IsSlotMarkedSuccessful"
	methodMarkBootSuccessful     = "MarkBootSuccessful"
	methodGetNumberSlots         = "GetNumberSlots"
	methodGetSuffix              = "GetSuffix"
	methodIsSlotBootable         = "IsSlotBootable"
)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// BootControlServer is the server API of the boot-control service. The
// messages are protobuf well-known types so no generated code is needed.
type BootControlServer interface {
	GetCurrentSlot(context.Context, *emptypb.Empty) (*wrapperspb.UInt32Value, error)
	IsSlotMarkedSuccessful(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.Int32Value, error)
	MarkBootSuccessful(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetNumberSlots(context.Context, *emptypb.Empty) (*wrapperspb.UInt32Value, error)
	GetSuffix(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.StringValue, error)
	IsSlotBootable(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.Int32Value, error)
}

// RegisterBootControlServer registers srv on s.
func RegisterBootControlServer(s grpc.ServiceRegistrar, srv BootControlServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BootControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodGetCurrentSlot, Handler: unaryHandler(methodGetCurrentSlot, BootControlServer.GetCurrentSlot)},
		{MethodName: methodIsSlotMarkedSuccessful, Handler: unaryHandler(methodIsSlotMarkedSuccessful, BootControlServer.IsSlotMarkedSuccessful)},
		{MethodName: methodMarkBootSuccessful, Handler: unaryHandler(methodMarkBootSuccessful, BootControlServer.MarkBootSuccessful)},
		{MethodName: methodGetNumberSlots, Handler: unaryHandler(methodGetNumberSlots, BootControlServer.GetNumberSlots)},
		{MethodName: methodGetSuffix, Handler: unaryHandler(methodGetSuffix, BootControlServer.GetSuffix)},
		{MethodName: methodIsSlotBootable, Handler: unaryHandler(methodIsSlotBootable, BootControlServer.IsSlotBootable)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autopeer/bootctl/v1/bootctl.proto",
}

// unaryHandler adapts a typed server method to grpc.MethodHandler, which is
// what protoc-gen-go-grpc would generate per method.
func unaryHandler[Req, Resp any](name string, call func(BootControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BootControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BootControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
