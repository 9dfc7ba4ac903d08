package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"google.golang.org/grpc"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	grpcmiddleware "github.com/autopeer-io/otarecovery/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// GRPCServer exposes the boot-control service.
type GRPCServer struct {
	server  *grpc.Server
	options *options.GrpcOptions
}

func NewGRPCServer(opts *options.GrpcOptions, backend bootctl.Backend) *GRPCServer {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcmiddleware.UnaryMetricsInterceptor,
		grpcmiddleware.UnaryLoggingInterceptor(log.WithName("grpc").Logr()),
	))
	bootctl.RegisterBootControlServer(srv, bootctl.NewService(backend))
	return &GRPCServer{server: srv, options: opts}
}

// Listen opens the configured endpoint. A stale unix socket left by a
// previous run is removed first.
func (s *GRPCServer) Listen() (net.Listener, error) {
	if s.options.Network == "unix" {
		if err := os.Remove(s.options.Addr); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", s.options.Addr, err)
		}
	}
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s %s: %w", s.options.Network, s.options.Addr, err)
	}
	return lis, nil
}

func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	log.Info("Starting gRPC Server", "network", s.options.Network, "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.server.GracefulStop()
		return nil
	}
}
