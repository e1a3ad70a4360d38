package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	eng, err := pdasim.New(testutils.BalancedDefinition("aabb"), pdasim.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Configs.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Halts.WithLabelValues("halted_accepted", "accepted")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepsToHalt))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestCombine_LogAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	logger := logging.NewWithWriter(buf, slog.LevelDebug)

	hooks := observability.Combine(m.Hooks(), observability.LogHooks(logger))
	eng, err := pdasim.New(testutils.BalancedDefinition("ab"), pdasim.WithLifecycleHooks(hooks), pdasim.WithRunID("obs"))
	require.NoError(t, err)
	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Generations))
	out := buf.String()
	assert.Contains(t, out, "msg=generation")
	assert.Contains(t, out, "msg=halt")
	assert.Contains(t, out, "run_id=obs")
	assert.Contains(t, out, "verdict=accepted")
}

func TestCombine_Empty(t *testing.T) {
	hooks := observability.Combine()
	assert.Nil(t, hooks.OnGeneration)
	assert.Nil(t, hooks.OnHalt)
}
