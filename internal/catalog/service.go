package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"floor_service/internal/floor"
)

// Catalog creates and configures the floor's rooms, machines, games and
// accounts. Names are unique per kind.
type Catalog struct {
	repo        CatalogRepository
	hasher      *Hasher
	defaultTake int
	maxTake     int
}

func NewCatalog(repo CatalogRepository, hasher *Hasher) *Catalog {
	if hasher == nil {
		hasher = NewHasher(0, 0)
	}
	return &Catalog{repo: repo, hasher: hasher}
}

func (c *Catalog) WithPageLimits(defaultTake, maxTake int) *Catalog {
	c.defaultTake = defaultTake
	c.maxTake = maxTake
	return c
}

func (c *Catalog) CreateRoom(ctx context.Context, req CreateRoomRequest) (*floor.Room, error) {
	name := strings.TrimSpace(req.RoomName)
	if req.MinBet < 0 || req.MinBet > req.MaxBet {
		return nil, fmt.Errorf("%w: bet range %d..%d", floor.ErrInvalidAmount, req.MinBet, req.MaxBet)
	}
	if req.MinJackpot < 0 || req.MinJackpot > req.MaxJackpot {
		return nil, fmt.Errorf("%w: jackpot range %d..%d", floor.ErrInvalidAmount, req.MinJackpot, req.MaxJackpot)
	}
	if req.RTP.IsNegative() || req.RTP.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: rtp %s", floor.ErrInvalidAmount, req.RTP)
	}
	if err := c.ensureUnique(ctx, floor.KindRoom, name); err != nil {
		return nil, err
	}

	room := &floor.Room{
		RoomName:     name,
		NoOfMachines: req.NoOfMachines,
		NoOfSpins:    req.NoOfSpins,
		MinJackpot:   req.MinJackpot,
		MaxJackpot:   req.MaxJackpot,
		MinBet:       req.MinBet,
		MaxBet:       req.MaxBet,
		RTP:          req.RTP.Round(2),
		Currency:     req.Currency,
		Status:       floor.DeviceOperable,
	}
	if err := c.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"room_id": room.ID, "room_name": room.RoomName}).Info("room created")
	return room, nil
}

// CreateMachine registers a machine funded with InitialBalance taken from the
// admin. The duplicate check runs before the admin is debited.
func (c *Catalog) CreateMachine(ctx context.Context, req CreateMachineRequest) (*floor.Machine, error) {
	if req.InitialBalance < 0 {
		return nil, fmt.Errorf("%w: %d", floor.ErrInvalidAmount, req.InitialBalance)
	}
	machineNo := strings.TrimSpace(req.MachineNo)

	var machine *floor.Machine
	err := c.repo.Atomic(ctx, func(s FundingStore) error {
		admin, err := s.LockAdmin(ctx, req.AdminID)
		if err != nil {
			return err
		}
		taken, err := s.MachineNoTaken(ctx, machineNo)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: machine %q", floor.ErrDuplicateName, machineNo)
		}

		adminBefore := admin.CurrentBalance()
		adminAfter := adminBefore - req.InitialBalance
		if adminAfter < 0 {
			return fmt.Errorf("%w: admin %s has %d, needs %d", floor.ErrInsufficientFunds, req.AdminID, adminBefore, req.InitialBalance)
		}

		machine = &floor.Machine{
			ID:        floor.EnsureID(""),
			MachineNo: machineNo,
			Balance:   floor.Int64(req.InitialBalance),
			Status:    floor.DeviceOperable,
		}
		if err := s.CreateMachine(ctx, machine); err != nil {
			return err
		}
		if req.InitialBalance == 0 {
			return nil
		}
		if err := s.SetAdminBalance(ctx, req.AdminID, adminAfter); err != nil {
			return err
		}
		kind := floor.KindMachine
		return s.CreateEntry(ctx, &floor.LedgerEntry{
			Kind:                floor.EntryMachineFunding,
			AdminID:             req.AdminID,
			TargetKind:          &kind,
			TargetID:            floor.String(machine.ID),
			Amount:              req.InitialBalance,
			AdminBalanceBefore:  adminBefore,
			AdminBalanceAfter:   adminAfter,
			TargetBalanceBefore: floor.Int64(0),
			TargetBalanceAfter:  floor.Int64(req.InitialBalance),
			CreatedAt:           time.Now().UTC(),
		})
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"admin_id": req.AdminID, "machine_no": machineNo}).Warn("machine not created")
		return nil, err
	}

	log.WithFields(log.Fields{
		"admin_id":   req.AdminID,
		"machine_id": machine.ID,
		"amount":     req.InitialBalance,
	}).Info("machine created")
	return machine, nil
}

func (c *Catalog) CreateGame(ctx context.Context, req CreateGameRequest) (*floor.Game, error) {
	name := strings.TrimSpace(req.GameName)
	if err := c.ensureUnique(ctx, floor.KindGame, name); err != nil {
		return nil, err
	}
	game := &floor.Game{
		GameName: name,
		Currency: req.Currency,
		Status:   floor.GameEnabled,
	}
	if err := c.repo.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"game_id": game.ID, "game_name": game.GameName}).Info("game created")
	return game, nil
}

func (c *Catalog) SetGameBetLimits(ctx context.Context, gameID string, minBet, maxBet int64) (*floor.Game, error) {
	if minBet < 0 || minBet > maxBet {
		return nil, fmt.Errorf("%w: bet range %d..%d", floor.ErrInvalidAmount, minBet, maxBet)
	}
	if err := c.repo.UpdateGameBetLimits(ctx, gameID, minBet, maxBet); err != nil {
		return nil, err
	}
	return c.repo.GetGame(ctx, gameID)
}

// DeleteGame hard deletes a game, which also drops it from its machine.
func (c *Catalog) DeleteGame(ctx context.Context, gameID string) error {
	if err := c.repo.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	log.WithField("game_id", gameID).Info("game deleted")
	return nil
}

// CreateSubUser creates a Manager or Worker account.
func (c *Catalog) CreateSubUser(ctx context.Context, req CreateUserRequest) (*floor.User, error) {
	if req.UserType != floor.UserTypeManager && req.UserType != floor.UserTypeWorker {
		return nil, fmt.Errorf("%w: sub-user cannot be %q", floor.ErrInvalidRole, req.UserType)
	}
	username := strings.TrimSpace(req.Username)
	if err := c.ensureUnique(ctx, floor.KindUser, username); err != nil {
		return nil, err
	}

	salt, hash, err := c.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &floor.User{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Username:     username,
		Balance:      floor.Int64(0),
		Credit:       floor.Int64(0),
		UserType:     req.UserType,
		Status:       floor.AccountActive,
		Currency:     req.Currency,
		PasswordSalt: salt,
		PasswordHash: hash,
	}
	if err := c.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "user_type": user.UserType}).Info("sub-user created")
	return user, nil
}

func (c *Catalog) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*floor.Admin, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.ensureUnique(ctx, floor.KindAdmin, email); err != nil {
		return nil, err
	}

	salt, hash, err := c.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &floor.Admin{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Email:        email,
		Balance:      floor.Int64(0),
		Status:       floor.AccountActive,
		PasswordSalt: salt,
		PasswordHash: hash,
	}
	if err := c.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	log.WithField("admin_id", admin.ID).Info("admin created")
	return admin, nil
}

// VerifyAdminPassword returns the admin for valid credentials. Unknown
// emails and wrong passwords both report ErrNotFound.
func (c *Catalog) VerifyAdminPassword(ctx context.Context, email, password string) (*floor.Admin, error) {
	admin, err := c.repo.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if !verifyArgon2id(password, admin.PasswordHash) {
		log.WithField("admin_id", admin.ID).Warn("admin password mismatch")
		return nil, fmt.Errorf("%w: admin %s", floor.ErrNotFound, email)
	}
	if admin.Status == floor.AccountBlocked {
		return nil, fmt.Errorf("%w: admin %s is blocked", floor.ErrInvalidStatus, admin.ID)
	}
	return admin, nil
}

// ListRooms pages rooms, newest name first. Search matches the whole room
// name, ignoring case.
func (c *Catalog) ListRooms(ctx context.Context, page floor.PageRequest) (*floor.Page[floor.Room], error) {
	page = page.Normalize(c.defaultTake, c.maxTake)
	rooms, total, err := c.repo.ListRooms(ctx, strings.TrimSpace(page.Search), page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []floor.Room{}
	}
	return &floor.Page[floor.Room]{Count: total, Skip: page.Skip, Take: page.Take, Data: rooms}, nil
}

func (c *Catalog) ListMachines(ctx context.Context, page floor.PageRequest) (*floor.Page[floor.Machine], error) {
	page = page.Normalize(c.defaultTake, c.maxTake)
	machines, total, err := c.repo.ListMachines(ctx, strings.TrimSpace(page.Search), page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if machines == nil {
		machines = []floor.Machine{}
	}
	return &floor.Page[floor.Machine]{Count: total, Skip: page.Skip, Take: page.Take, Data: machines}, nil
}

func (c *Catalog) ListUsersByType(ctx context.Context, userType floor.UserType, page floor.PageRequest) (*floor.Page[floor.User], error) {
	page = page.Normalize(c.defaultTake, c.maxTake)
	users, total, err := c.repo.ListUsersByType(ctx, userType, page.Search, page.Skip, page.Take)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []floor.User{}
	}
	return &floor.Page[floor.User]{Count: total, Skip: page.Skip, Take: page.Take, Data: users}, nil
}

func (c *Catalog) ensureUnique(ctx context.Context, kind floor.EntityKind, name string) error {
	taken, err := c.repo.NameTaken(ctx, kind, name)
	if err != nil {
		return err
	}
	if taken {
		log.WithFields(log.Fields{"kind": kind, "name": name}).Warn("name already in use")
		return fmt.Errorf("%w: %s %q", floor.ErrDuplicateName, kind, name)
	}
	return nil
}
