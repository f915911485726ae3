package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "vinscan.v1.VinService"

// VinServiceServer is the server API for vinscan.v1.VinService. Messages are
// protobuf well-known types so no generated code is needed.
type VinServiceServer interface {
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	CheckShape(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	FindInText(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Decode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ExportExtractions(context.Context, *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error)
}

func unary[Req, Resp any](method string, call func(VinServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	full := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VinServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VinServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var VinServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VinServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unary("Extract", VinServiceServer.Extract)},
		{MethodName: "CheckShape", Handler: unary("CheckShape", VinServiceServer.CheckShape)},
		{MethodName: "FindInText", Handler: unary("FindInText", VinServiceServer.FindInText)},
		{MethodName: "Decode", Handler: unary("Decode", VinServiceServer.Decode)},
		{MethodName: "ExportExtractions", Handler: unary("ExportExtractions", VinServiceServer.ExportExtractions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vinscan/v1/vin_service.proto",
}

func RegisterVinServiceServer(s grpc.ServiceRegistrar, srv VinServiceServer) {
	s.RegisterService(&VinServiceDesc, srv)
}

// VinServiceClient is the client API for vinscan.v1.VinService.
type VinServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVinServiceClient(cc grpc.ClientConnInterface) *VinServiceClient {
	return &VinServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VinServiceClient) Extract(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Extract", in, opts...)
}

func (c *VinServiceClient) CheckShape(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, "CheckShape", in, opts...)
}

func (c *VinServiceClient) FindInText(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "FindInText", in, opts...)
}

func (c *VinServiceClient) Decode(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Decode", in, opts...)
}

func (c *VinServiceClient) ExportExtractions(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return invoke[wrapperspb.BytesValue](ctx, c.cc, "ExportExtractions", in, opts...)
}
