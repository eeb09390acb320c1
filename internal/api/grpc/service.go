// Package grpc provides the gRPC API of the dictdb record service.
//
// Messages are google.protobuf.Struct values, so the service is declared by
// hand instead of generated from a .proto file:
//
//	service dictdb.v1.Records {
//	  rpc Write(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Select(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc DDL(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified service name.
const ServiceName = "dictdb.v1.Records"

// Full method names.
const (
	WriteMethod  = "/" + ServiceName + "/Write"
	SelectMethod = "/" + ServiceName + "/Select"
	DDLMethod    = "/" + ServiceName + "/DDL"
)

// RecordsServer is the server API of the Records service.
type RecordsServer interface {
	Write(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DDL(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RecordsServiceDesc describes the Records service for grpc.Server.
var RecordsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Write", Handler: unaryHandler(WriteMethod, RecordsServer.Write)},
		{MethodName: "Select", Handler: unaryHandler(SelectMethod, RecordsServer.Select)},
		{MethodName: "DDL", Handler: unaryHandler(DDLMethod, RecordsServer.DDL)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dictdb/v1/records.proto",
}

// RegisterRecordsServer registers srv with s.
func RegisterRecordsServer(s grpc.ServiceRegistrar, srv RecordsServer) {
	s.RegisterService(&RecordsServiceDesc, srv)
}

type unaryMethod func(RecordsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RecordsClient is a client of the Records service.
type RecordsClient struct {
	cc grpc.ClientConnInterface
}

// NewRecordsClient creates a client on cc.
func NewRecordsClient(cc grpc.ClientConnInterface) *RecordsClient {
	return &RecordsClient{cc: cc}
}

// Write calls Records.Write.
func (c *RecordsClient) Write(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, WriteMethod, in, opts)
}

// Select calls Records.Select.
func (c *RecordsClient) Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SelectMethod, in, opts)
}

// DDL calls Records.DDL.
func (c *RecordsClient) DDL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DDLMethod, in, opts)
}

func (c *RecordsClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
