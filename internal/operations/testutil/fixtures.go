package testutil

import (
	"context"
	"errors"
	"time"

	"pricefill/internal/operations"
)

// CreateTestRegistry creates a registry holding the given steps in order
func CreateTestRegistry(steps ...operations.Step) *operations.Registry {
	registry := operations.NewRegistry()
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			panic(err)
		}
	}
	return registry
}

// CreateSuccessfulStage creates a step that always succeeds
func CreateSuccessfulStage(id, name string) *MockStage {
	return &MockStage{
		IDValue:   id,
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return ctx.Err()
		},
	}
}

// CreateFailingStage creates a step whose Execute returns err
func CreateFailingStage(id, name string, err error) *MockStage {
	if err == nil {
		err = errors.New("step failed")
	}
	return &MockStage{
		IDValue:   id,
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateValidationFailingStage creates a step whose Validate returns err
func CreateValidationFailingStage(id, name string, err error) *MockStage {
	if err == nil {
		err = errors.New("validation failed")
	}
	return &MockStage{
		IDValue:   id,
		NameValue: name,
		ValidateFunc: func(state *operations.OperationState) error {
			return err
		},
	}
}

// CreateSlowStage creates a step that waits for duration or until ctx is done
func CreateSlowStage(id, name string, duration time.Duration) *MockStage {
	return &MockStage{
		IDValue:   id,
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// CreateContextAwareStage creates a step that requires readKey and writes value under writeKey
func CreateContextAwareStage(id, name, readKey, writeKey string, value interface{}) *MockStage {
	return &MockStage{
		IDValue:   id,
		NameValue: name,
		ValidateFunc: func(state *operations.OperationState) error {
			if readKey == "" {
				return nil
			}
			if _, ok := state.GetContext(readKey); !ok {
				return errors.New(readKey + " missing")
			}
			return nil
		},
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if writeKey != "" {
				state.SetContext(writeKey, value)
			}
			return nil
		},
	}
}
