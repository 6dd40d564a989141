package memstore

import (
	"context"

	"floor_service/internal/status"
)

type statusRepository struct{ s *Store }

func (s *Store) Status() status.StatusRepository { return statusRepository{s} }

func (r statusRepository) Atomic(ctx context.Context, fn func(status.StatusStore) error) error {
	return r.s.atomic(ctx, func(t *tx) error { return fn(t) })
}
