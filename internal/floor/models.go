package floor

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AccountStatus string

const (
	AccountActive  AccountStatus = "Active"
	AccountBlocked AccountStatus = "Blocked"
)

// DeviceStatus gates operations on rooms and machines.
type DeviceStatus string

const (
	DeviceOperable DeviceStatus = "Operable"
	DeviceFrozen   DeviceStatus = "Frozen"
)

type GameStatus string

const (
	GameEnabled  GameStatus = "Enabled"
	GameDisabled GameStatus = "Disabled"
)

type UserType string

const (
	UserTypeManager UserType = "Manager"
	UserTypeWorker  UserType = "Worker"
	UserTypeUser    UserType = "User"
)

// EntityKind names the tables that carry a balance or a status.
type EntityKind string

const (
	KindAdmin   EntityKind = "Admin"
	KindUser    EntityKind = "User"
	KindRoom    EntityKind = "Room"
	KindMachine EntityKind = "Machine"
	KindGame    EntityKind = "Game"
)

type Admin struct {
	ID           string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Firstname    string        `gorm:"column:firstname;type:varchar(100);not null" json:"firstname"`
	Lastname     string        `gorm:"column:lastname;type:varchar(100);not null" json:"lastname"`
	Email        string        `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	ProfileImage *string       `gorm:"column:profile_image;type:varchar(255)" json:"profile_image"`
	Balance      *int64        `gorm:"column:balance" json:"-"`
	Status       AccountStatus `gorm:"column:status;type:varchar(20);not null;default:'Active'" json:"status"`
	PasswordSalt string        `gorm:"column:password_salt;type:varchar(255)" json:"-"`
	PasswordHash string        `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	CreatedAt    time.Time     `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;not null" json:"updated_at"`
}

type User struct {
	ID           string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Firstname    string        `gorm:"column:firstname;type:varchar(100);not null" json:"firstname"`
	Lastname     string        `gorm:"column:lastname;type:varchar(100);not null" json:"lastname"`
	Username     string        `gorm:"column:username;type:varchar(100);not null;uniqueIndex" json:"username"`
	Balance      *int64        `gorm:"column:balance" json:"-"`
	Credit       *int64        `gorm:"column:credit" json:"credit"`
	UserType     UserType      `gorm:"column:user_type;type:varchar(20);not null;index" json:"user_type"`
	Status       AccountStatus `gorm:"column:status;type:varchar(20);not null;default:'Active'" json:"status"`
	Currency     string        `gorm:"column:currency;type:varchar(8)" json:"currency"`
	PasswordSalt string        `gorm:"column:password_salt;type:varchar(255)" json:"-"`
	PasswordHash string        `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	CreatedAt    time.Time     `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;not null" json:"updated_at"`
}

type Room struct {
	ID           string          `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	RoomName     string          `gorm:"column:room_name;type:varchar(100);not null;uniqueIndex" json:"room_name"`
	NoOfMachines int             `gorm:"column:no_of_machines;not null;default:0" json:"no_of_machines"`
	NoOfSpins    int             `gorm:"column:no_of_spins;not null;default:0" json:"no_of_spins"`
	MinJackpot   int64           `gorm:"column:min_jackpot;not null;default:0" json:"min_jackpot"`
	MaxJackpot   int64           `gorm:"column:max_jackpot;not null;default:0" json:"max_jackpot"`
	MinBet       int64           `gorm:"column:min_bet;not null;default:0" json:"min_bet"`
	MaxBet       int64           `gorm:"column:max_bet;not null;default:0" json:"max_bet"`
	RTP          decimal.Decimal `gorm:"column:rtp;type:numeric(5,2);not null;default:0" json:"rtp"`
	Currency     string          `gorm:"column:currency;type:varchar(8)" json:"currency"`
	Status       DeviceStatus    `gorm:"column:status;type:varchar(20);not null;default:'Operable'" json:"status"`
	ManagerID    *string         `gorm:"column:manager_id;type:varchar(36);index" json:"manager_id"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

type Machine struct {
	ID        string       `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	MachineNo string       `gorm:"column:machine_no;type:varchar(100);not null;uniqueIndex" json:"machine_no"`
	Balance   *int64       `gorm:"column:balance" json:"-"`
	RoomID    *string      `gorm:"column:room_id;type:varchar(36);index" json:"room_id"`
	RoomName  *string      `gorm:"column:room_name;type:varchar(100)" json:"room_name"` // copy of rooms.room_name, rewritten on attach
	WorkerID  *string      `gorm:"column:worker_id;type:varchar(36);index" json:"worker_id"`
	Status    DeviceStatus `gorm:"column:status;type:varchar(20);not null;default:'Operable'" json:"status"`
	CreatedAt time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

type Game struct {
	ID        string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	GameName  string     `gorm:"column:game_name;type:varchar(100);not null;uniqueIndex" json:"game_name"`
	Currency  string     `gorm:"column:currency;type:varchar(8)" json:"currency"`
	MinBet    int64      `gorm:"column:min_bet;not null;default:0" json:"min_bet"`
	MaxBet    int64      `gorm:"column:max_bet;not null;default:0" json:"max_bet"`
	Status    GameStatus `gorm:"column:status;type:varchar(20);not null;default:'Enabled'" json:"status"`
	MachineID *string    `gorm:"column:machine_id;type:varchar(36);index" json:"machine_id"`
	RoomName  *string    `gorm:"column:room_name;type:varchar(100)" json:"room_name"`
	CreatedAt time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// LedgerEntry is the journal row written in the same transaction as the
// balance mutations it describes.
type LedgerEntry struct {
	ID                  string         `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Kind                string         `gorm:"column:kind;type:varchar(30);not null" json:"kind"` // "transfer", "reclaim", "credit", "machine_funding"
	AdminID             string         `gorm:"column:admin_id;type:varchar(36);not null;index" json:"admin_id"`
	TargetKind          *EntityKind    `gorm:"column:target_kind;type:varchar(20)" json:"target_kind"`
	TargetID            *string        `gorm:"column:target_id;type:varchar(36);index" json:"target_id"`
	Amount              int64          `gorm:"column:amount;not null" json:"amount"`
	AdminBalanceBefore  int64          `gorm:"column:admin_balance_before;not null" json:"admin_balance_before"`
	AdminBalanceAfter   int64          `gorm:"column:admin_balance_after;not null" json:"admin_balance_after"`
	TargetBalanceBefore *int64         `gorm:"column:target_balance_before" json:"target_balance_before"`
	TargetBalanceAfter  *int64         `gorm:"column:target_balance_after" json:"target_balance_after"`
	ReferenceID         *string        `gorm:"column:reference_id;type:varchar(255);uniqueIndex" json:"reference_id"`
	Metadata            datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	CreatedAt           time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

const (
	EntryTransfer       = "transfer"
	EntryReclaim        = "reclaim"
	EntryCredit         = "credit"
	EntryMachineFunding = "machine_funding"
)

func (a *Admin) CurrentBalance() int64   { return valueOrZero(a.Balance) }
func (u *User) CurrentBalance() int64    { return valueOrZero(u.Balance) }
func (m *Machine) CurrentBalance() int64 { return valueOrZero(m.Balance) }

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Int64 returns a pointer to v, for the explicit balance writes.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	a.ID = EnsureID(a.ID)
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ID = EnsureID(u.ID)
	return nil
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	r.ID = EnsureID(r.ID)
	return nil
}

func (m *Machine) BeforeCreate(tx *gorm.DB) error {
	m.ID = EnsureID(m.ID)
	return nil
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	g.ID = EnsureID(g.ID)
	return nil
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	e.ID = EnsureID(e.ID)
	return nil
}

// EnsureID returns id, or a fresh uuid when id is empty.
func EnsureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// AllModels lists every table for auto-migration.
func AllModels() []any {
	return []any{&Admin{}, &User{}, &Room{}, &Machine{}, &Game{}, &LedgerEntry{}}
}
