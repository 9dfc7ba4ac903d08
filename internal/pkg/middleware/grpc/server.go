package grpc

import (
	"context"
	"path"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
)

// UnaryLoggingInterceptor logs every served call with its status code.
func UnaryLoggingInterceptor(logger logr.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		kv := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start).String()}
		if err != nil {
			logger.Error(err, "RPC failed", kv...)
		} else {
			logger.V(1).Info("RPC served", kv...)
		}
		return resp, err
	}
}

// UnaryMetricsInterceptor records request counts and latency per method.
func UnaryMetricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	method := path.Base(info.FullMethod)
	start := time.Now()
	resp, err := handler(ctx, req)
	metrics.BootControlLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.BootControlRequests.WithLabelValues(method, status.Code(err).String()).Inc()
	return resp, err
}
