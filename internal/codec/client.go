package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region constants
// GenerateMethod is the full gRPC method name of the generation service.
// Requests and responses are google.protobuf.Struct messages.
const GenerateMethod = "/adaptive.v1.GenerationService/Generate"

// #endregion constants

// #region client-struct
// GRPCClient calls a remote generation service over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewGRPCClient connects to the generation service at addr.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, cc: conn}, nil
}

// NewGRPCClientWithConn creates a GRPCClient over an existing connection.
// The caller keeps ownership of cc.
func NewGRPCClientWithConn(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region generate
// Generate sends the request and returns the service's payload. The service
// answers with either a "payload" object or a "text" string.
func (c *GRPCClient) Generate(ctx context.Context, req Request) (Payload, error) {
	interests := make([]any, len(req.Interests))
	for i, tag := range req.Interests {
		interests[i] = tag
	}
	in, err := structpb.NewStruct(map[string]any{
		"kind":        string(req.Kind),
		"prompt":      req.Prompt,
		"subject":     req.Subject,
		"grade_level": req.GradeLevel,
		"interests":   interests,
	})
	if err != nil {
		return Payload{}, fmt.Errorf("build request: %w", err)
	}

	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, GenerateMethod, in, out); err != nil {
		return Payload{}, fmt.Errorf("generate rpc: %w", err)
	}

	if v, ok := out.GetFields()["payload"]; ok && v.GetStructValue() != nil {
		obj, err := protojson.Marshal(v.GetStructValue())
		if err != nil {
			return Payload{}, fmt.Errorf("encode payload: %w", err)
		}
		return Payload{Object: obj}, nil
	}
	if v, ok := out.GetFields()["text"]; ok {
		return Payload{Text: v.GetStringValue()}, nil
	}
	return Payload{}, fmt.Errorf("%w: response has neither payload nor text", ErrMalformedReply)
}

// #endregion generate
