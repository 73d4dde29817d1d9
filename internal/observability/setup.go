package observability

import (
	"context"
	"net/http"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	ServiceName  string
	LogLevel     string
	OTLPEndpoint string
}

// Setup wires logging, metrics and tracing. It returns the tracer shutdown
// func and the handler serving /metrics.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, http.Handler, error) {
	observability.InitLogger(opts.LogLevel)
	observability.InitMetrics()
	tracerShutdown, err := observability.InitTracing(ctx, opts.ServiceName, opts.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	return tracerShutdown, promhttp.Handler(), nil
}
