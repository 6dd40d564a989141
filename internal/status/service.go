package status

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"floor_service/internal/floor"
)

// Engine runs the account, device and game status transitions. It never
// touches caches; subscribers of the Notifier do that.
type Engine struct {
	repo     StatusRepository
	notifier Notifier
}

func NewEngine(repo StatusRepository, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{repo: repo, notifier: notifier}
}

// SetAccountStatus applies Block or UnBlock to an admin or user. It reports
// false without error when the account is already in the requested state.
func (e *Engine) SetAccountStatus(ctx context.Context, kind floor.EntityKind, id, token string) (bool, error) {
	target, ok := accountTarget(token)
	if !ok {
		return false, fmt.Errorf("%w: %q", floor.ErrInvalidStatus, token)
	}
	if kind != floor.KindAdmin && kind != floor.KindUser {
		return false, fmt.Errorf("%w: no account of kind %q", floor.ErrNotFound, kind)
	}

	var from floor.AccountStatus
	err := e.repo.Atomic(ctx, func(s StatusStore) error {
		switch kind {
		case floor.KindAdmin:
			a, err := s.LockAdmin(ctx, id)
			if err != nil {
				return err
			}
			from = a.Status
		default:
			u, err := s.LockUser(ctx, id)
			if err != nil {
				return err
			}
			from = u.Status
		}
		if from == target {
			return nil
		}
		return s.SetStatus(ctx, kind, id, string(target))
	})
	if err != nil {
		return false, e.rejected(kind, id, token, err)
	}

	if from == target {
		log.WithFields(log.Fields{"kind": kind, "id": id, "status": target}).Debug("account already in requested state")
		return false, nil
	}
	e.emit(ctx, kind, id, string(from), string(target))
	return true, nil
}

// Freeze sets a room or machine to Frozen or Operable. Setting the current
// value again is allowed and reports false.
func (e *Engine) Freeze(ctx context.Context, req FreezeRequest) (bool, error) {
	target, ok := deviceTarget(req.Status)
	if !ok {
		return false, fmt.Errorf("%w: %q", floor.ErrInvalidStatus, req.Status)
	}

	kind := floor.KindMachine
	if req.RoomName != "" {
		kind = floor.KindRoom
	}

	var from floor.DeviceStatus
	err := e.repo.Atomic(ctx, func(s StatusStore) error {
		if kind == floor.KindRoom {
			r, err := s.LockRoom(ctx, req.ID)
			if err != nil {
				return err
			}
			if r.RoomName != req.RoomName {
				return fmt.Errorf("%w: room %s is not named %q", floor.ErrNotFound, req.ID, req.RoomName)
			}
			from = r.Status
		} else {
			m, err := s.LockMachine(ctx, req.ID)
			if err != nil {
				return err
			}
			if req.MachineNo != "" && m.MachineNo != req.MachineNo {
				return fmt.Errorf("%w: machine %s is not number %q", floor.ErrNotFound, req.ID, req.MachineNo)
			}
			from = m.Status
		}
		return s.SetStatus(ctx, kind, req.ID, string(target))
	})
	if err != nil {
		return false, e.rejected(kind, req.ID, req.Status, err)
	}

	if from == target {
		return false, nil
	}
	e.emit(ctx, kind, req.ID, string(from), string(target))
	return true, nil
}

// SetGameStatus enables or disables a game.
func (e *Engine) SetGameStatus(ctx context.Context, id, token string) (bool, error) {
	target, ok := gameTarget(token)
	if !ok {
		return false, fmt.Errorf("%w: %q", floor.ErrInvalidStatus, token)
	}

	var from floor.GameStatus
	err := e.repo.Atomic(ctx, func(s StatusStore) error {
		g, err := s.LockGame(ctx, id)
		if err != nil {
			return err
		}
		from = g.Status
		if from == target {
			return nil
		}
		return s.SetStatus(ctx, floor.KindGame, id, string(target))
	})
	if err != nil {
		return false, e.rejected(floor.KindGame, id, token, err)
	}

	if from == target {
		return false, nil
	}
	e.emit(ctx, floor.KindGame, id, string(from), string(target))
	return true, nil
}

func (e *Engine) emit(ctx context.Context, kind floor.EntityKind, id, from, to string) {
	log.WithFields(log.Fields{"kind": kind, "id": id, "from": from, "to": to}).Info("status changed")
	e.notifier.Publish(ctx, floor.StatusChange{
		Kind:      kind,
		ID:        id,
		From:      from,
		To:        to,
		ChangedAt: time.Now().UTC(),
	})
}

func (e *Engine) rejected(kind floor.EntityKind, id, token string, err error) error {
	entry := log.WithError(err).WithFields(log.Fields{"kind": kind, "id": id, "token": token})
	if floor.CodeOf(err) == floor.CodeInternal {
		entry.Error("status change failed")
	} else {
		entry.Warn("status change rejected")
	}
	return err
}
