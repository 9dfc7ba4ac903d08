package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
)

func TestTimeoutInterceptor(t *testing.T) {
	var remaining time.Duration
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		dl, ok := ctx.Deadline()
		if !ok {
			t.Fatal("no deadline set")
		}
		remaining = time.Until(dl)
		return nil
	}

	if err := NewUnaryTimeoutInterceptor(time.Second)(context.Background(), "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if remaining > time.Second || remaining <= 0 {
		t.Errorf("remaining = %v, want at most 1s", remaining)
	}

	if err := UnaryTimeoutInterceptor(context.Background(), "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if remaining <= time.Second || remaining > DefaultRPCTimeout {
		t.Errorf("remaining = %v, want default bound", remaining)
	}

	// An existing deadline is kept.
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	if err := NewUnaryTimeoutInterceptor(0)(ctx, "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if remaining <= DefaultRPCTimeout {
		t.Errorf("remaining = %v, caller deadline overridden", remaining)
	}
}
