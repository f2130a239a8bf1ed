package arcontent

import (
	"context"
	"errors"
	"fmt"
)

// resolve parses idString and loads the row of the given kind. The two lookup
// failures stay distinct: ErrInvalidID for a malformed id, ErrNotFound for a
// missing row. Any other repository failure is reported as ErrIOFailure.
func resolve[T Entity](ctx context.Context, repo Repository, op string, kind Kind, idString string) (T, error) {
	var zero T
	id, err := ParseID(idString)
	if err != nil {
		return zero, newError(op, ErrInvalidID, fmt.Sprintf("%s id %q", kind, idString))
	}
	e, err := repo.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, newError(op, ErrNotFound, fmt.Sprintf("%s %d", kind, id))
		}
		return zero, wrapError(op, ErrIOFailure, "lookup failed", err)
	}
	t, ok := e.(T)
	if !ok {
		return zero, wrapError(op, ErrIOFailure, "lookup failed", fmt.Errorf("repository returned %T for kind %s", e, kind))
	}
	return t, nil
}

// load is resolve for ids already held as integers, such as resource references.
func load[T Entity](ctx context.Context, repo Repository, op string, kind Kind, id int64) (T, error) {
	return resolve[T](ctx, repo, op, kind, FormatID(id))
}
