package session

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/lagekarte/lagekarte/backend-go/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	inputs   metric.Int64Counter
	frames   metric.Int64Counter
	sessions metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// newMetrics registers the session instruments on the global provider, which
// is a no-op unless one is installed.
func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)

	out.inputs, err = m.Int64Counter(
		"session.inputs",
		metric.WithDescription("Client messages applied to session engines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inputs counter: %w", err)
	}

	out.frames, err = m.Int64Counter(
		"session.frames",
		metric.WithDescription("Frames pushed to connected clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	out.sessions, err = m.Int64Counter(
		"session.created",
		metric.WithDescription("Sessions created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	out.active, err = m.Int64UpDownCounter(
		"session.active",
		metric.WithDescription("Sessions currently open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active sessions counter: %w", err)
	}

	return &out, nil
}
