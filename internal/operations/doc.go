// Package operations runs an enrichment as a sequence of steps.
//
// A Manager executes the steps of a Registry in registration order on the calling
// goroutine. Each step is validated, then executed under its configured timeout, inside its
// own trace span. The first failure stops the run and marks the remaining steps skipped;
// the error is returned as an *OperationError typed validation, execution, timeout or
// cancellation.
//
// Steps exchange data through the OperationState context map:
//
//	registry := operations.NewRegistry()
//	if err := operations.RegisterPipeline(registry, options, tracer, logger); err != nil {
//		return err
//	}
//	manager := operations.NewManager(registry, nil, tracer, logger)
//	resp, state, err := manager.Execute(ctx, operations.OperationRequest{})
//	summary, _ := operations.ContextValue[*dataprocessing.Summary](state, operations.ContextKeySummary)
package operations
