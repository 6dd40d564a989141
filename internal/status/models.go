package status

import (
	"context"
	"strings"

	"floor_service/internal/floor"
)

// Account transition tokens accepted by SetAccountStatus.
const (
	TokenBlock   = "Block"
	TokenUnBlock = "UnBlock"
)

// FreezeRequest targets a room when RoomName is set, otherwise a machine.
// Whichever name is supplied must match the row behind ID.
type FreezeRequest struct {
	ID        string `json:"id" binding:"required"`
	RoomName  string `json:"room_name"`
	MachineNo string `json:"machine_no"`
	Status    string `json:"status" binding:"required"`
}

// Notifier receives committed status changes.
type Notifier interface {
	Publish(ctx context.Context, change floor.StatusChange)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, floor.StatusChange) {}

func accountTarget(token string) (floor.AccountStatus, bool) {
	switch {
	case strings.EqualFold(token, TokenBlock):
		return floor.AccountBlocked, true
	case strings.EqualFold(token, TokenUnBlock):
		return floor.AccountActive, true
	}
	return "", false
}

func deviceTarget(token string) (floor.DeviceStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "freeze", "frozen":
		return floor.DeviceFrozen, true
	case "unfreeze", "operable":
		return floor.DeviceOperable, true
	}
	return "", false
}

func gameTarget(token string) (floor.GameStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "enable", "enabled":
		return floor.GameEnabled, true
	case "disable", "disabled":
		return floor.GameDisabled, true
	}
	return "", false
}
