package bootctl

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Backend is what the gRPC service exposes: a Client that can also list
// its slots.
type Backend interface {
	Client
	Inspector
}

// Service serves a Backend over gRPC.
type Service struct {
	backend Backend
}

var _ BootControlServer = (*Service)(nil)

func NewService(b Backend) *Service {
	return &Service{backend: b}
}

func (s *Service) GetCurrentSlot(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt32Value, error) {
	slot, err := s.backend.GetCurrentSlot(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get current slot: %v", err)
	}
	return wrapperspb.UInt32(slot), nil
}

func (s *Service) IsSlotMarkedSuccessful(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.Int32Value, error) {
	res, err := s.backend.IsSlotMarkedSuccessful(ctx, req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "query slot %d: %v", req.GetValue(), err)
	}
	return wrapperspb.Int32(int32(res)), nil
}

func (s *Service) MarkBootSuccessful(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	res, err := s.backend.MarkBootSuccessful(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "mark boot successful: %v", err)
	}
	if !res.Success {
		return nil, status.Error(codes.FailedPrecondition, res.Message)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) GetNumberSlots(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt32Value, error) {
	slots, err := s.backend.Slots(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list slots: %v", err)
	}
	return wrapperspb.UInt32(uint32(len(slots))), nil
}

func (s *Service) slot(ctx context.Context, index uint32) (Slot, error) {
	slots, err := s.backend.Slots(ctx)
	if err != nil {
		return Slot{}, status.Errorf(codes.Internal, "list slots: %v", err)
	}
	if int(index) >= len(slots) {
		return Slot{}, status.Error(codes.OutOfRange, fmt.Sprintf("slot %d out of range", index))
	}
	return slots[index], nil
}

func (s *Service) GetSuffix(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.StringValue, error) {
	slot, err := s.slot(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(slot.Suffix), nil
}

func (s *Service) IsSlotBootable(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.Int32Value, error) {
	slot, err := s.slot(ctx, req.GetValue())
	if status.Code(err) == codes.OutOfRange {
		return wrapperspb.Int32(int32(InvalidSlot)), nil
	}
	if err != nil {
		return nil, err
	}
	if slot.Bootable {
		return wrapperspb.Int32(int32(True)), nil
	}
	return wrapperspb.Int32(int32(False)), nil
}
