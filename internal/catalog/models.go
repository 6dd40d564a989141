package catalog

import (
	"github.com/shopspring/decimal"

	"floor_service/internal/floor"
)

type CreateRoomRequest struct {
	RoomName     string          `json:"room_name" binding:"required"`
	NoOfMachines int             `json:"no_of_machines"`
	NoOfSpins    int             `json:"no_of_spins"`
	MinJackpot   int64           `json:"min_jackpot"`
	MaxJackpot   int64           `json:"max_jackpot"`
	MinBet       int64           `json:"min_bet"`
	MaxBet       int64           `json:"max_bet"`
	RTP          decimal.Decimal `json:"rtp"`
	Currency     string          `json:"currency"`
}

type CreateMachineRequest struct {
	AdminID        string `json:"admin_id" binding:"required"`
	MachineNo      string `json:"machine_no" binding:"required"`
	InitialBalance int64  `json:"balance"`
}

type CreateGameRequest struct {
	GameName string `json:"game_name" binding:"required"`
	Currency string `json:"currency"`
}

type CreateUserRequest struct {
	Firstname string         `json:"firstname" binding:"required"`
	Lastname  string         `json:"lastname" binding:"required"`
	Username  string         `json:"username" binding:"required"`
	Password  string         `json:"password" binding:"required"`
	UserType  floor.UserType `json:"user_type" binding:"required"`
	Currency  string         `json:"currency"`
}

type CreateAdminRequest struct {
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

var hundred = decimal.NewFromInt(100)
