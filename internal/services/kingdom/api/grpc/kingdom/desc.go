package kingdom

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kingdom.v1.KingdomService"

// Method names served by the kingdom service.
const (
	MethodRegister        = "Register"
	MethodLogin           = "Login"
	MethodGetState        = "GetState"
	MethodCollect         = "Collect"
	MethodCollectBuilding = "CollectBuilding"
	MethodUpgradeBuilding = "UpgradeBuilding"
	MethodRecruit         = "Recruit"
	MethodAddTrait        = "AddTrait"
	MethodStartRaid       = "StartRaid"
	MethodResolveRaid     = "ResolveRaid"
	MethodListRaids       = "ListRaids"
)

// FullMethod returns the /service/method path for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// publicMethods do not require a bearer token.
var publicMethods = map[string]bool{
	FullMethod(MethodRegister): true,
	FullMethod(MethodLogin):    true,
}

type handlerFunc func(*Service, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fn handlerFunc, name string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(*Service)
		if interceptor == nil {
			return fn(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes kingdom.v1.KingdomService. Every method takes and
// returns a google.protobuf.Struct holding the same JSON document as the
// HTTP API.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRegister, Handler: unaryHandler((*Service).Register, MethodRegister)},
		{MethodName: MethodLogin, Handler: unaryHandler((*Service).Login, MethodLogin)},
		{MethodName: MethodGetState, Handler: unaryHandler((*Service).GetState, MethodGetState)},
		{MethodName: MethodCollect, Handler: unaryHandler((*Service).Collect, MethodCollect)},
		{MethodName: MethodCollectBuilding, Handler: unaryHandler((*Service).CollectBuilding, MethodCollectBuilding)},
		{MethodName: MethodUpgradeBuilding, Handler: unaryHandler((*Service).UpgradeBuilding, MethodUpgradeBuilding)},
		{MethodName: MethodRecruit, Handler: unaryHandler((*Service).Recruit, MethodRecruit)},
		{MethodName: MethodAddTrait, Handler: unaryHandler((*Service).AddTrait, MethodAddTrait)},
		{MethodName: MethodStartRaid, Handler: unaryHandler((*Service).StartRaid, MethodStartRaid)},
		{MethodName: MethodResolveRaid, Handler: unaryHandler((*Service).ResolveRaid, MethodResolveRaid)},
		{MethodName: MethodListRaids, Handler: unaryHandler((*Service).ListRaids, MethodListRaids)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kingdom/v1/kingdom.proto",
}

// Register attaches svc to registrar.
func Register(registrar grpc.ServiceRegistrar, svc *Service) {
	registrar.RegisterService(&ServiceDesc, svc)
}

// Client calls kingdom.v1.KingdomService methods over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with in as its payload.
func (c *Client) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
