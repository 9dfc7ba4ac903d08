package bootctl

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcmiddleware "github.com/autopeer-io/otarecovery/internal/pkg/middleware/grpc"
)

// GRPCClient talks to a boot-control daemon.
type GRPCClient struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

var (
	_ Client    = (*GRPCClient)(nil)
	_ Inspector = (*GRPCClient)(nil)
)

// Dial connects to target, e.g. "unix:///run/bootctl.sock" or "127.0.0.1:8091".
func Dial(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmiddleware.UnaryTimeoutInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("create boot-control client for %q: %w", target, err)
	}
	return &GRPCClient{cc: conn, conn: conn}, nil
}

// NewGRPCClient wraps an existing connection.
func NewGRPCClient(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

// Close closes the connection opened by Dial.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *GRPCClient) GetCurrentSlot(ctx context.Context) (uint32, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(ctx, fullMethod(methodGetCurrentSlot), &emptypb.Empty{}, out); err != nil {
		return 0, fmt.Errorf("GetCurrentSlot: %w", err)
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) IsSlotMarkedSuccessful(ctx context.Context, slot uint32) (BoolResult, error) {
	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, fullMethod(methodIsSlotMarkedSuccessful), wrapperspb.UInt32(slot), out); err != nil {
		return False, fmt.Errorf("IsSlotMarkedSuccessful(%d): %w", slot, err)
	}
	return BoolResult(out.GetValue()), nil
}

func (c *GRPCClient) MarkBootSuccessful(ctx context.Context) (CommandResult, error) {
	err := c.cc.Invoke(ctx, fullMethod(methodMarkBootSuccessful), &emptypb.Empty{}, new(emptypb.Empty))
	if err == nil {
		return CommandResult{Success: true}, nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.FailedPrecondition {
		return CommandResult{Message: st.Message()}, nil
	}
	return CommandResult{}, fmt.Errorf("MarkBootSuccessful: %w", err)
}

// Slots enumerates slots with one RPC per attribute, the way the HAL
// exposes them.
func (c *GRPCClient) Slots(ctx context.Context) ([]Slot, error) {
	n := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(ctx, fullMethod(methodGetNumberSlots), &emptypb.Empty{}, n); err != nil {
		return nil, fmt.Errorf("GetNumberSlots: %w", err)
	}
	current, err := c.GetCurrentSlot(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, n.GetValue())
	for i := uint32(0); i < n.GetValue(); i++ {
		suffix := new(wrapperspb.StringValue)
		if err := c.cc.Invoke(ctx, fullMethod(methodGetSuffix), wrapperspb.UInt32(i), suffix); err != nil {
			return nil, fmt.Errorf("GetSuffix(%d): %w", i, err)
		}
		bootable := new(wrapperspb.Int32Value)
		if err := c.cc.Invoke(ctx, fullMethod(methodIsSlotBootable), wrapperspb.UInt32(i), bootable); err != nil {
			return nil, fmt.Errorf("IsSlotBootable(%d): %w", i, err)
		}
		successful, err := c.IsSlotMarkedSuccessful(ctx, i)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{
			Index:      i,
			Suffix:     suffix.GetValue(),
			Bootable:   BoolResult(bootable.GetValue()) == True,
			Successful: successful == True,
			Current:    i == current,
		})
	}
	return slots, nil
}
