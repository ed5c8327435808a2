package sampler

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCSampler drives a unary sampling RPC described by a .proto file
// loaded at runtime — no generated stubs. The request message may carry
// any subset of the fields prompt, context, default_assignment,
// current_value and mode; the response's first string field is the
// candidate text.
type GRPCSampler struct {
	conn   *grpc.ClientConn
	method *desc.MethodDescriptor
}

// NewGRPCSampler connects to target and resolves service/method from
// protoPath. The method path has the form "package.Service/Method".
func NewGRPCSampler(target, protoPath, methodPath string) (*GRPCSampler, error) {
	parser := protoparse.Parser{}
	files, err := parser.ParseFiles(protoPath)
	if err != nil {
		return nil, fmt.Errorf("parsing proto %s: %w", protoPath, err)
	}

	method, err := findMethod(files, methodPath)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}

	return &GRPCSampler{conn: conn, method: method}, nil
}

func findMethod(files []*desc.FileDescriptor, methodPath string) (*desc.MethodDescriptor, error) {
	serviceName, methodName, ok := splitMethodPath(methodPath)
	if !ok {
		return nil, fmt.Errorf("method path %q must have the form package.Service/Method", methodPath)
	}
	for _, fd := range files {
		if sd := fd.FindService(serviceName); sd != nil {
			if md := sd.FindMethodByName(methodName); md != nil {
				if md.IsClientStreaming() || md.IsServerStreaming() {
					return nil, fmt.Errorf("method %s must be unary", methodPath)
				}
				return md, nil
			}
			return nil, fmt.Errorf("service %s has no method %s", serviceName, methodName)
		}
	}
	return nil, fmt.Errorf("service %s not found", serviceName)
}

func splitMethodPath(path string) (service, method string, ok bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:], i > 0 && i < len(path)-1
		}
	}
	return "", "", false
}

func (s *GRPCSampler) Sample(ctx context.Context, req Request) (string, error) {
	reqMsg := dynamic.NewMessage(s.method.GetInputType())
	setStringField(reqMsg, "prompt", req.Prompt)
	setStringField(reqMsg, "context", req.Context)
	setStringField(reqMsg, "default_assignment", req.DefaultAssignment)
	setStringField(reqMsg, "mode", string(req.Mode))
	if req.CurrentValue != nil {
		setStringField(reqMsg, "current_value", req.CurrentValue.Inspect())
	}

	respMsg := dynamic.NewMessage(s.method.GetOutputType())

	methodPath := fmt.Sprintf("/%s/%s", s.method.GetService().GetFullyQualifiedName(), s.method.GetName())
	if err := s.conn.Invoke(ctx, methodPath, reqMsg, respMsg); err != nil {
		return "", &TransportError{Provider: "grpc", Err: err}
	}

	text, err := firstStringField(respMsg)
	if err != nil {
		return "", &TransportError{Provider: "grpc", Err: err}
	}
	return SelectLine(NormalizeResponse(text), req.DefaultAssignment, req.Mode), nil
}

func (s *GRPCSampler) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func setStringField(msg *dynamic.Message, name, value string) {
	if fd := msg.GetMessageDescriptor().FindFieldByName(name); fd != nil {
		_ = msg.TrySetFieldByName(name, value)
	}
}

// firstStringField returns the value of the message's first declared
// string field.
func firstStringField(msg *dynamic.Message) (string, error) {
	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		value, err := msg.TryGetFieldByName(fd.GetName())
		if err != nil {
			continue
		}
		if text, ok := value.(string); ok {
			return text, nil
		}
	}
	return "", fmt.Errorf("response message has no string field")
}
