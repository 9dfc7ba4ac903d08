// Package daemon serves a boot-control backend over gRPC, with health,
// metrics and slot status over HTTP.
package daemon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// Config selects the daemon's endpoints.
type Config struct {
	GrpcOptions *options.GrpcOptions
	HttpOptions *options.HttpOptions
}

// Server is one protocol endpoint of the daemon.
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager builds the gRPC server and, unless its address is empty, the
// HTTP server.
func NewManager(cfg *Config, backend bootctl.Backend) *Manager {
	servers := []Server{NewGRPCServer(cfg.GrpcOptions, backend)}
	if cfg.HttpOptions.Enabled() {
		servers = append(servers, NewHTTPServer(cfg.HttpOptions, backend))
	}
	return &Manager{servers: servers}
}

// Start launches all servers in parallel and waits until ctx is done or one
// of them fails.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
