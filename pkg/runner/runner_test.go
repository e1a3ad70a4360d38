package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/pdasim/internal/runtime"
	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/adapters/memory"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadEngine(t *testing.T, def domain.Definition) *runtime.Engine {
	t.Helper()
	m, err := automaton.FromDefinition(def)
	require.NoError(t, err)
	e := runtime.NewEngine()
	e.Load(m, def.Input())
	return e
}

func TestRunner_HaltsAccepted(t *testing.T) {
	e := loadEngine(t, testutils.BalancedDefinition("aabb"))

	res, err := runner.New().Run(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, runner.StopHalted, res.Reason)
	assert.Equal(t, 5, res.Steps)
	assert.True(t, res.Accepted())
	assert.Equal(t, domain.PhaseAccepted, res.Snapshot.Phase)
	require.Len(t, res.Traces, 1)
	assert.Equal(t, []string{
		"q0, a, Z → q0, AZ",
		"q0, a, A → q0, AA",
		"q0, b, A → q1, ε",
		"q1, b, A → q1, ε",
		"q1, ε, Z → q2, Z",
	}, res.Traces[0].Labels())
}

func TestRunner_HaltsRejected(t *testing.T) {
	e := loadEngine(t, testutils.BalancedDefinition("aab"))

	res, err := runner.New().Run(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, runner.StopHalted, res.Reason)
	assert.Equal(t, domain.VerdictRejected, res.Snapshot.Verdict)
	assert.False(t, res.Accepted())
	assert.Len(t, res.Traces, len(res.Snapshot.Frontier), "frontier traces are reported when nothing accepts")
}

func TestRunner_Budget(t *testing.T) {
	e := loadEngine(t, testutils.LoopingDefinition("aabb"))

	res, err := runner.New(runner.WithBudget(10)).Run(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, runner.StopBudget, res.Reason)
	assert.Equal(t, 10, res.Steps)
	assert.Equal(t, domain.PhaseActive, res.Snapshot.Phase)
	assert.Equal(t, domain.VerdictAccepted, res.Snapshot.Verdict, "an accepting branch coexists with the loop")
}

func TestRunner_StopOnAccept(t *testing.T) {
	e := loadEngine(t, testutils.LoopingDefinition("aabb"))

	res, err := runner.New(runner.WithStopOnAccept()).Run(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, runner.StopAccepted, res.Reason)
	assert.Equal(t, 5, res.Steps)
	require.NotEmpty(t, res.Traces)
	last := res.Traces[0][len(res.Traces[0])-1]
	assert.Equal(t, domain.State("q2"), last.State)
}

func TestRunner_DedupBoundsEpsilonLoop(t *testing.T) {
	e := loadEngine(t, testutils.LoopingDefinition("aabb"))

	res, err := runner.New(runner.WithDedup(), runner.WithBudget(0)).Run(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, runner.StopHalted, res.Reason)
	assert.Equal(t, domain.PhaseAccepted, res.Snapshot.Phase)
}

func TestRunner_IdleEngine(t *testing.T) {
	_, err := runner.New().Run(context.Background(), runtime.NewEngine())
	assert.ErrorIs(t, err, domain.ErrNoModel)
}

func TestRunner_PersistsEveryGeneration(t *testing.T) {
	store := memory.NewStore()
	e := loadEngine(t, testutils.BalancedDefinition("ab"))

	res, err := runner.New(runner.WithStore(store, "run-1")).Run(context.Background(), e)
	require.NoError(t, err)

	cp, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", cp.RunID)
	assert.Equal(t, res.Snapshot.Step, cp.Step)
	assert.Equal(t, domain.PhaseAccepted, cp.Phase)
}

func TestRunner_StartAndStop(t *testing.T) {
	e := loadEngine(t, testutils.LoopingDefinition("aabb"))
	r := runner.New(runner.WithBudget(0), runner.WithDelay(2*time.Millisecond))

	h := r.Start(context.Background(), e)
	time.Sleep(20 * time.Millisecond)
	h.Stop()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	res, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, runner.StopCanceled, res.Reason)
	assert.Equal(t, e.Step(), res.Steps)
}

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Step(ctx context.Context, snap domain.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *MockHandler) Finish(ctx context.Context, res runner.Result) error {
	return m.Called(ctx, res).Error(0)
}

func TestRunner_HandlerLifecycle(t *testing.T) {
	e := loadEngine(t, testutils.BalancedDefinition("ab"))

	h := new(MockHandler)
	h.On("Step", mock.Anything, mock.Anything).Return(nil)
	h.On("Finish", mock.Anything, mock.MatchedBy(func(r runner.Result) bool {
		return r.Reason == runner.StopHalted
	})).Return(nil).Once()

	res, err := runner.New(runner.WithHandler(h)).Run(context.Background(), e)
	require.NoError(t, err)

	h.AssertNumberOfCalls(t, "Step", res.Steps+1)
	h.AssertExpectations(t)
}

func TestTextHandler_StatusAndReport(t *testing.T) {
	e := loadEngine(t, testutils.BalancedDefinition("ab"))
	out := &bytes.Buffer{}

	_, err := runner.New(runner.WithHandler(runner.NewTextHandler(out, runner.WithTextHandlerTraces()))).
		Run(context.Background(), e)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Step 0: 1 active configuration(s)\nCurrent State: q0\nRemaining Input: ab\nStack: Z")
	assert.Contains(t, text, "Step 1: 1 active configuration(s)")
	assert.Contains(t, text, "Transition: q0, a, Z → q0, AZ")
	assert.Contains(t, text, "## Result: ACCEPTED")
	assert.Contains(t, text, "### Accepting Traces")
	assert.Contains(t, text, "0. State: q0, Input: ab, Stack: Z")
}

func TestTextHandler_RejectedStatus(t *testing.T) {
	snap := domain.Snapshot{Step: 4, Phase: domain.PhaseRejected, Verdict: domain.VerdictRejected}
	assert.Equal(t, "Step 4: No valid configurations remain. String rejected.", runner.StatusLine(snap))
}

func TestTextHandler_Renderer(t *testing.T) {
	out := &bytes.Buffer{}
	h := runner.NewTextHandler(out, runner.WithTextHandlerQuiet(), runner.WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	require.NoError(t, h.Step(context.Background(), domain.Snapshot{Step: 1}))
	assert.Empty(t, out.String())

	require.NoError(t, h.Finish(context.Background(), runner.Result{Reason: runner.StopBudget}))
	assert.True(t, strings.HasPrefix(out.String(), "Rendered: ## Result:"))
	assert.Contains(t, out.String(), "step budget was spent")
}

func TestJSONHandler_Lines(t *testing.T) {
	e := loadEngine(t, testutils.BalancedDefinition("ab"))
	out := &bytes.Buffer{}

	res, err := runner.New(runner.WithHandler(runner.NewJSONHandler(out))).Run(context.Background(), e)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, res.Steps+2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "step", first["type"])
	assert.Equal(t, float64(0), first["step"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "result", last["type"])
	assert.Equal(t, "halted", last["reason"])
	snap := last["snapshot"].(map[string]any)
	assert.Equal(t, "accepted", snap["verdict"])
}
