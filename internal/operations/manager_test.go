package operations_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefill/internal/infrastructure"
	"pricefill/internal/operations"
	"pricefill/internal/operations/testutil"
)

func newTestManager(steps ...operations.Step) *operations.Manager {
	return operations.NewManager(testutil.CreateTestRegistry(steps...), nil, nil, nil)
}

func TestManagerRunsStepsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(id string) *testutil.MockStage {
		return &testutil.MockStage{
			IDValue:   id,
			NameValue: id,
			ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, id)
				return nil
			},
		}
	}

	manager := newTestManager(record("load"), record("index"), record("enrich"), record("export"))
	resp, state, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "run-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"load", "index", "enrich", "export"}, order)
	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Len(t, state.GetCompletedStages(), 4)
	assert.False(t, state.HasFailures())
}

func TestManagerStopsAtFirstFailure(t *testing.T) {
	cause := errors.New("price guide unreadable")
	first := testutil.CreateSuccessfulStage("load", "Load")
	failing := testutil.CreateFailingStage("index", "Index", cause)
	last := testutil.CreateSuccessfulStage("enrich", "Enrich")

	resp, state, err := newTestManager(first, failing, last).Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "price guide unreadable")

	assert.Equal(t, 1, first.ExecuteCalls())
	assert.Equal(t, 0, last.ExecuteCalls())
	assert.Equal(t, operations.StepStatusFailed, state.GetStage("index").GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage("enrich").GetStatus())
	assert.Contains(t, state.GetStage("enrich").Message, "index")
}

func TestManagerValidationFailure(t *testing.T) {
	invalid := testutil.CreateValidationFailingStage("load", "Load", errors.New("collection path is required"))
	next := testutil.CreateSuccessfulStage("index", "Index")

	_, state, err := newTestManager(invalid, next).Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Contains(t, err.Error(), "collection path is required")
	assert.Equal(t, 1, invalid.ValidateCalls())
	assert.Equal(t, 0, invalid.ExecuteCalls())
	assert.Equal(t, operations.StepStatusFailed, state.GetStage("load").GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage("index").GetStatus())
}

func TestManagerCancelledBeforeStart(t *testing.T) {
	step := testutil.CreateSuccessfulStage("load", "Load")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, state, err := newTestManager(step).Execute(ctx, operations.OperationRequest{})

	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, operations.OperationStatusCancelled, resp.Status)
	assert.Equal(t, 0, step.ExecuteCalls())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage("load").GetStatus())
}

func TestManagerCancelledDuringStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &testutil.MockStage{
		IDValue:   "enrich",
		NameValue: "Enrich",
		ExecuteFunc: func(stepCtx context.Context, state *operations.OperationState) error {
			cancel()
			<-stepCtx.Done()
			return stepCtx.Err()
		},
	}
	after := testutil.CreateSuccessfulStage("export", "Export")

	_, state, err := newTestManager(cancelling, after).Execute(ctx, operations.OperationRequest{})

	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusCancelled, state.GetStatus())
	assert.Equal(t, operations.StepStatusFailed, state.GetStage("enrich").GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage("export").GetStatus())
}

func TestManagerStepTimeout(t *testing.T) {
	cfg := operations.NewConfig()
	cfg.SetStepTimeout("export", 10*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, cfg.GetStepTimeout("export"))
	assert.Equal(t, operations.DefaultStepTimeout, cfg.GetStepTimeout("load"))

	registry := testutil.CreateTestRegistry(testutil.CreateSlowStage("export", "Export", time.Second))
	manager := operations.NewManager(registry, cfg, nil, nil)

	start := time.Now()
	_, state, err := manager.Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, operations.OperationStatusFailed, state.GetStatus())
}

func TestManagerPassesContextBetweenSteps(t *testing.T) {
	writer := testutil.CreateContextAwareStage("index", "Index", "", "price_map", "ready")
	reader := testutil.CreateContextAwareStage("enrich", "Enrich", "price_map", "", nil)

	_, state, err := newTestManager(writer, reader).Execute(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{"window": "avg7"},
	})

	require.NoError(t, err)
	value, err := operations.ContextValue[string](state, "price_map")
	require.NoError(t, err)
	assert.Equal(t, "ready", value)

	window, ok := state.GetConfig("window")
	require.True(t, ok)
	assert.Equal(t, "avg7", window)
}

func TestManagerReaderWithoutWriterFailsValidation(t *testing.T) {
	reader := testutil.CreateContextAwareStage("enrich", "Enrich", "price_map", "", nil)

	_, _, err := newTestManager(reader).Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
}

func TestManagerUsesTraceIDAsOperationID(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace-123")

	resp, _, err := newTestManager(testutil.CreateSuccessfulStage("load", "Load")).Execute(ctx, operations.OperationRequest{})

	require.NoError(t, err)
	assert.Equal(t, "trace-123", resp.ID)
}

func TestManagerRecordsStepMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(nil, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	registry := testutil.CreateTestRegistry(
		testutil.CreateSuccessfulStage("load", "Load"),
		testutil.CreateFailingStage("index", "Index", nil),
	)
	manager := operations.NewManager(registry, nil, operations.NewOperationTracer(providers), nil)
	_, _, err = manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)

	counters, err := providers.CollectCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[infrastructure.MetricStepsTotal])
	assert.Equal(t, int64(1), counters[infrastructure.MetricStepErrors])
}

func TestManagerRegisterStep(t *testing.T) {
	manager := operations.NewManager(nil, nil, nil, nil)
	require.NoError(t, manager.RegisterStep(testutil.CreateSuccessfulStage("load", "Load")))
	assert.Error(t, manager.RegisterStep(testutil.CreateSuccessfulStage("load", "Load")))
	assert.Equal(t, 1, manager.GetRegistry().Count())
	assert.NotNil(t, manager.GetConfig())
}
