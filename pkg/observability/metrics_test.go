package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnRunFinish(ctx, &domain.RunEvent{Duration: time.Second})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Outcome: domain.KindMissingAPIKey})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Outcome: domain.KindMissingAPIKey})
	hooks.OnRelayReturn(ctx, &domain.RelayEvent{StatusCode: 200})
	hooks.OnRelayReturn(ctx, &domain.RelayEvent{})
	hooks.OnConnect(ctx, &domain.ConnectEvent{Accepted: false})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(observability.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("MissingApiKey")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connections.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestMetrics_ChainedWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := domain.ChainHooks(observability.LoggingHooks(logger), m.Hooks())

	hooks.OnConnect(context.Background(), &domain.ConnectEvent{
		SourceKind: domain.KindInput,
		TargetKind: domain.KindOutput,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connections.WithLabelValues("false")))
	assert.True(t, strings.Contains(buf.String(), "source_kind=input"), buf.String())
}
