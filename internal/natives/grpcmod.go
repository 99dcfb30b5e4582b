package natives

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/dynamic/grpcdynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pasalang/pasa/internal/vm"
)

// Registry of loaded proto descriptors, shared by all connections.
var (
	protoRegistry      = make(map[string]*desc.FileDescriptor)
	protoRegistryMutex sync.RWMutex
)

// grpcConn wraps a client connection as an opaque VM object.
type grpcConn struct {
	conn   *grpc.ClientConn
	target string
}

func (c *grpcConn) Type() vm.ObjectType { return "grpc_conn" }
func (c *grpcConn) Inspect() string {
	if c.conn == nil {
		return "<grpc closed>"
	}
	return fmt.Sprintf("<grpc %s>", c.target)
}

func grpcNatives() []*vm.NativeFunction {
	return []*vm.NativeFunction{
		{Name: "grpc_load_proto", Arity: 1, Fn: nativeGrpcLoadProto},
		{Name: "grpc_connect", Arity: 1, Fn: nativeGrpcConnect},
		{Name: "grpc_invoke", Arity: 3, Fn: nativeGrpcInvoke},
		{Name: "grpc_close", Arity: 1, Fn: nativeGrpcClose},
	}
}

// nativeGrpcLoadProto parses a .proto file and registers its services for
// dynamic invocation.
func nativeGrpcLoadProto(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return vm.NilVal(), fmt.Errorf("expected one string argument (path)")
	}
	path := args[0].AsString()
	parser := protoparse.Parser{ImportPaths: []string{filepath.Dir(path)}}
	fds, err := parser.ParseFiles(filepath.Base(path))
	if err != nil {
		return vm.NilVal(), fmt.Errorf("proto parse error: %v", err)
	}

	protoRegistryMutex.Lock()
	for _, fd := range fds {
		protoRegistry[fd.GetName()] = fd
	}
	protoRegistryMutex.Unlock()
	return vm.BoolVal(true), nil
}

func nativeGrpcConnect(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return vm.NilVal(), fmt.Errorf("expected one string argument (target)")
	}
	target := args[0].AsString()
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return vm.NilVal(), err
	}
	return vm.ObjVal(&grpcConn{conn: conn, target: target}), nil
}

// nativeGrpcInvoke calls "package.Service/Method" on a connection with a
// request object; the response message comes back as an object.
func nativeGrpcInvoke(args []vm.Value) (vm.Value, error) {
	if len(args) != 3 {
		return vm.NilVal(), fmt.Errorf("expected (conn, method, request)")
	}
	handle, ok := args[0].Obj.(*grpcConn)
	if !args[0].IsObj() || !ok {
		return vm.NilVal(), fmt.Errorf("expected a grpc connection, got %s", args[0].TypeName())
	}
	if !args[1].IsString() {
		return vm.NilVal(), fmt.Errorf("method must be a string like \"pkg.Service/Method\"")
	}

	parts := strings.SplitN(args[1].AsString(), "/", 2)
	if len(parts) != 2 {
		return vm.NilVal(), fmt.Errorf("method must be \"pkg.Service/Method\"")
	}
	serviceName, methodName := parts[0], parts[1]

	method, err := findMethod(serviceName, methodName)
	if err != nil {
		return vm.NilVal(), err
	}

	req := dynamic.NewMessage(method.GetInputType())
	reqJSON, err := json.Marshal(ToGo(args[2]))
	if err != nil {
		return vm.NilVal(), err
	}
	if err := req.UnmarshalJSON(reqJSON); err != nil {
		return vm.NilVal(), fmt.Errorf("request does not match %s: %v", method.GetInputType().GetName(), err)
	}

	stub := grpcdynamic.NewStub(handle.conn)
	resp, err := stub.InvokeRpc(context.Background(), method, req)
	if err != nil {
		return vm.NilVal(), err
	}

	respDyn, err := dynamic.AsDynamicMessage(resp)
	if err != nil {
		return vm.NilVal(), err
	}
	respJSON, err := respDyn.MarshalJSON()
	if err != nil {
		return vm.NilVal(), err
	}
	var data interface{}
	if err := json.Unmarshal(respJSON, &data); err != nil {
		return vm.NilVal(), err
	}
	return FromGo(data)
}

func findMethod(serviceName, methodName string) (*desc.MethodDescriptor, error) {
	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()

	for _, fd := range protoRegistry {
		if symbol := fd.FindSymbol(serviceName); symbol != nil {
			service, ok := symbol.(*desc.ServiceDescriptor)
			if !ok {
				return nil, fmt.Errorf("%s is not a service", serviceName)
			}
			method := service.FindMethodByName(methodName)
			if method == nil {
				return nil, fmt.Errorf("service %s has no method %s", serviceName, methodName)
			}
			if method.IsClientStreaming() || method.IsServerStreaming() {
				return nil, fmt.Errorf("streaming methods are not supported")
			}
			return method, nil
		}
	}
	return nil, fmt.Errorf("unknown service %s (missing grpc_load_proto?)", serviceName)
}

func nativeGrpcClose(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	handle, ok := args[0].Obj.(*grpcConn)
	if !args[0].IsObj() || !ok {
		return vm.NilVal(), fmt.Errorf("expected a grpc connection, got %s", args[0].TypeName())
	}
	if handle.conn != nil {
		if err := handle.conn.Close(); err != nil {
			return vm.NilVal(), err
		}
		handle.conn = nil
	}
	return vm.BoolVal(true), nil
}
