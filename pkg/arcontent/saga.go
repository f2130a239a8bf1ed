package arcontent

import (
	"context"
	"log/slog"
)

// Saga status values.
const (
	SagaStatusRunning      = "running"
	SagaStatusSucceeded    = "succeeded"
	SagaStatusCompensating = "compensating"
	SagaStatusCompensated  = "compensated"
)

type sagaAction struct {
	kind string
	ref  string
	undo func(ctx context.Context) error
}

// saga records compensating actions for side effects that live outside the
// metadata transaction. Compensate runs them newest first.
type saga struct {
	op      string
	log     *slog.Logger
	status  string
	actions []sagaAction
}

func newSaga(op string, log *slog.Logger) *saga {
	return &saga{op: op, log: log, status: SagaStatusRunning}
}

// AppendAction pushes an undo step.
func (s *saga) AppendAction(kind, ref string, undo func(ctx context.Context) error) {
	s.actions = append(s.actions, sagaAction{kind: kind, ref: ref, undo: undo})
}

// Succeed drops the recorded actions.
func (s *saga) Succeed() {
	s.status = SagaStatusSucceeded
	s.actions = nil
}

// Compensate runs every recorded action in reverse order. Failures are logged
// and do not stop the remaining actions. It returns the number of failed actions.
func (s *saga) Compensate(ctx context.Context) int {
	s.status = SagaStatusCompensating
	// The caller's context may already be cancelled; undo steps still need to run.
	ctx = context.WithoutCancel(ctx)

	failed := 0
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if err := a.undo(ctx); err != nil {
			failed++
			s.log.Error("saga compensation failed", "op", s.op, "action", a.kind, "ref", a.ref, "err", err)
		}
	}
	s.actions = nil
	s.status = SagaStatusCompensated
	return failed
}

// Status reports the saga state.
func (s *saga) Status() string {
	return s.status
}

const sagaActionBlobDelete = "blob_delete"

// writeBlob writes data and records its deletion as a compensating action.
func (s *saga) writeBlob(ctx context.Context, blobs BlobStore, category Category, key string, data []byte) (Locator, error) {
	loc, err := blobs.Write(ctx, category, key, data)
	if err != nil {
		return "", err
	}
	s.AppendAction(sagaActionBlobDelete, string(loc), func(ctx context.Context) error {
		return blobs.Delete(ctx, loc)
	})
	return loc, nil
}
