package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/incidents-platform/auth-service/internal/logging"
)

func TestSubmit_RunsJob(t *testing.T) {
	r := NewRunner(logging.New("error"))

	var ran atomic.Bool
	r.Submit("test.job", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	r.Wait()

	assert.True(t, ran.Load())
}

func TestSubmit_FailureDoesNotPropagate(t *testing.T) {
	r := NewRunner(logging.New("error"))

	r.Submit("test.failing", func(ctx context.Context) error {
		return errors.New("boom")
	})
	r.Submit("test.panicking", func(ctx context.Context) error {
		panic("boom")
	})
	r.Wait()
	// reaching here without a crash is the assertion
}

func TestSubmit_ContextHasDeadline(t *testing.T) {
	r := NewRunner(logging.New("error"))

	var hasDeadline atomic.Bool
	r.Submit("test.deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		return nil
	})
	r.Wait()

	assert.True(t, hasDeadline.Load())
}
