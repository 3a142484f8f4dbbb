// Package repotest provides in-memory implementations of the repo interfaces.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/model"
	"github.com/robonav/server/internal/repo"
)

// Store is an in-memory database shared by the fakes. Set an Err* field to make
// the matching call fail.
type Store struct {
	mu sync.Mutex

	accounts      map[uuid.UUID]model.Account
	confirmations map[string]uuid.UUID

	robots       map[int64]model.Robot
	locations    []model.LocationRecord
	named        []model.NamedLocation
	tasks        []model.Task
	instructions []model.Instruction
	callbacks    []model.Callback

	nextID int64

	ErrCreateAccount error
	ErrConsume       error
	ErrRobots        error
	ErrLocation      error
	ErrTasks         error
	ErrCallbacks     error

	// LocationDelay blocks Current until it elapses or ctx ends.
	LocationDelay time.Duration
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		accounts:      make(map[uuid.UUID]model.Account),
		confirmations: make(map[string]uuid.UUID),
		robots:        make(map[int64]model.Robot),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// SetState changes an account's confirmation state
func (s *Store) SetState(id uuid.UUID, state model.ConfirmationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]
	a.State = state
	s.accounts[id] = a
}

// Account returns a stored account
func (s *Store) Account(id uuid.UUID) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

// TokenCount returns the number of outstanding confirmation tokens of an account
func (s *Store) TokenCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, owner := range s.confirmations {
		if owner == id {
			n++
		}
	}
	return n
}

// AddRobot stores a robot with the given id
func (s *Store) AddRobot(r model.Robot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots[r.ID] = r
	if r.ID > s.nextID {
		s.nextID = r.ID
	}
}

// AddLocation appends a location record; record ids increase with each call
func (s *Store) AddLocation(robotID int64, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, model.LocationRecord{ID: int64(len(s.locations) + 1), RobotID: robotID, X: x, Y: y})
}

// AddNamedLocation stores a named location
func (s *Store) AddNamedLocation(l model.NamedLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.named = append(s.named, l)
}

// AddTask stores a task
func (s *Store) AddTask(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

// AddCallback stores a callback
func (s *Store) AddCallback(c model.Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, c)
}

// Instructions returns recorded instructions
func (s *Store) Instructions() []model.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Instruction(nil), s.instructions...)
}

// Users returns a UserRepo backed by the store
func (s *Store) Users() repo.UserRepo { return userRepo{s} }

// Confirmations returns a ConfirmationRepo backed by the store
func (s *Store) Confirmations() repo.ConfirmationRepo { return confirmationRepo{s} }

// Robots returns a RobotRepo backed by the store
func (s *Store) Robots() repo.RobotRepo { return robotRepo{s} }

// Locations returns a LocationRepo backed by the store
func (s *Store) Locations() repo.LocationRepo { return locationRepo{s} }

// Tasks returns a TaskRepo backed by the store
func (s *Store) Tasks() repo.TaskRepo { return taskRepo{s} }

// InstructionsRepo returns an InstructionRepo backed by the store
func (s *Store) InstructionsRepo() repo.InstructionRepo { return instructionRepo{s} }

// Callbacks returns a CallbackRepo backed by the store
func (s *Store) Callbacks() repo.CallbackRepo { return callbackRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) CreatePending(ctx context.Context, username, email, passwordHash, confirmationHash string) (model.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrCreateAccount != nil {
		return model.Account{}, s.ErrCreateAccount
	}
	// email wins over username, matching the Postgres repo
	for _, a := range s.accounts {
		if a.Email == email {
			return model.Account{}, repo.ErrDuplicateEmail
		}
	}
	for _, a := range s.accounts {
		if a.Username == username {
			return model.Account{}, repo.ErrDuplicateUsername
		}
	}
	acct := model.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		State:        model.StatePending,
		CreatedAt:    time.Now().UTC(),
	}
	s.accounts[acct.ID] = acct
	s.confirmations[confirmationHash] = acct.ID
	return acct, nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return model.Account{}, repo.ErrNotFound
	}
	return a, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Username == username })
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Email == email })
}

func (r userRepo) find(match func(model.Account) bool) (model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if match(a) {
			return a, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

type confirmationRepo struct{ s *Store }

func (r confirmationRepo) Replace(ctx context.Context, accountID uuid.UUID, tokenHash string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, owner := range s.confirmations {
		if owner == accountID {
			delete(s.confirmations, h)
		}
	}
	s.confirmations[tokenHash] = accountID
	return nil
}

func (r confirmationRepo) Consume(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrConsume != nil {
		return uuid.Nil, s.ErrConsume
	}
	owner, ok := s.confirmations[tokenHash]
	if !ok {
		return uuid.Nil, repo.ErrNotFound
	}
	delete(s.confirmations, tokenHash)
	if a := s.accounts[owner]; a.State == model.StatePending {
		a.State = model.StateConfirmed
		s.accounts[owner] = a
	}
	return owner, nil
}

type robotRepo struct{ s *Store }

func (r robotRepo) List(ctx context.Context) ([]model.Robot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRobots != nil {
		return nil, s.ErrRobots
	}
	out := make([]model.Robot, 0, len(s.robots))
	for _, rb := range s.robots {
		out = append(out, rb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r robotRepo) Get(ctx context.Context, id int64) (model.Robot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRobots != nil {
		return model.Robot{}, s.ErrRobots
	}
	rb, ok := s.robots[id]
	if !ok {
		return model.Robot{}, repo.ErrNotFound
	}
	return rb, nil
}

func (r robotRepo) Create(ctx context.Context, battery int, pingMS *int) (model.Robot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRobots != nil {
		return model.Robot{}, s.ErrRobots
	}
	rb := model.Robot{ID: s.id(), Battery: battery, PingMS: pingMS}
	s.robots[rb.ID] = rb
	return rb, nil
}

type locationRepo struct{ s *Store }

func (r locationRepo) Current(ctx context.Context, robotID int64) (model.CurrentLocation, bool, error) {
	s := r.s
	if s.LocationDelay > 0 {
		select {
		case <-time.After(s.LocationDelay):
		case <-ctx.Done():
			return model.CurrentLocation{}, false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrLocation != nil {
		return model.CurrentLocation{}, false, s.ErrLocation
	}

	var latest *model.LocationRecord
	for i := range s.locations {
		rec := &s.locations[i]
		if rec.RobotID == robotID && (latest == nil || rec.ID > latest.ID) {
			latest = rec
		}
	}
	if latest == nil {
		return model.CurrentLocation{}, false, nil
	}

	cur := model.CurrentLocation{Record: *latest}
	var names []string
	for _, n := range s.named {
		if n.RobotID == robotID && n.X == latest.X && n.Y == latest.Y {
			names = append(names, n.Name)
		}
	}
	if len(names) > 0 {
		sort.Strings(names)
		cur.Name = &names[0]
	}
	return cur, true, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) List(ctx context.Context) ([]model.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrTasks != nil {
		return nil, s.ErrTasks
	}
	out := append([]model.Task(nil), s.tasks...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r taskRepo) IDsForRobot(ctx context.Context, robotID int64) ([]int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrTasks != nil {
		return nil, s.ErrTasks
	}
	ids := []int64{}
	for _, t := range s.tasks {
		if t.RobotID == robotID {
			ids = append(ids, t.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type instructionRepo struct{ s *Store }

func (r instructionRepo) Create(ctx context.Context, robotID int64, command string, issuedBy uuid.UUID) (model.Instruction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.robots[robotID]; !ok {
		return model.Instruction{}, repo.ErrNotFound
	}
	in := model.Instruction{
		ID:       int64(len(s.instructions) + 1),
		RobotID:  robotID,
		Command:  command,
		IssuedBy: issuedBy,
		IssuedAt: time.Now().UTC(),
	}
	s.instructions = append(s.instructions, in)
	return in, nil
}

type callbackRepo struct{ s *Store }

func (r callbackRepo) List(ctx context.Context, robotID *int64) ([]model.Callback, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrCallbacks != nil {
		return nil, s.ErrCallbacks
	}
	out := []model.Callback{}
	for _, c := range s.callbacks {
		if robotID == nil || c.RobotID == *robotID {
			out = append(out, c)
		}
	}
	return out, nil
}
