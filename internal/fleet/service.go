// Package fleet assembles robot, location and task records into the views
// served by the robot API.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/model"
	"github.com/robonav/server/internal/repo"
	"golang.org/x/sync/errgroup"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultConcurrency  = 8
	maxCommandLength    = 1024
)

// Repos groups the stores the fleet service reads and writes
type Repos struct {
	Robots       repo.RobotRepo
	Locations    repo.LocationRepo
	Tasks        repo.TaskRepo
	Instructions repo.InstructionRepo
	Callbacks    repo.CallbackRepo
}

// Options configures Service
type Options struct {
	// StoreTimeout bounds every single store call.
	StoreTimeout time.Duration
	// Concurrency caps in-flight lookups during ListRobots.
	Concurrency int
	Logger      *slog.Logger
}

// Service serves fleet reads and the few fleet writes
type Service struct {
	repos        Repos
	storeTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

// NewService creates a new fleet service
func NewService(repos Repos, opts Options) *Service {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repos:        repos,
		storeTimeout: opts.StoreTimeout,
		concurrency:  opts.Concurrency,
		logger:       opts.Logger,
	}
}

// ListTasks returns every task. An empty task table is ErrNotFound.
func (s *Service) ListTasks(ctx context.Context) ([]TaskView, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	tasks, err := s.repos.Tasks.List(storeCtx)
	if err != nil {
		return nil, apperr.Store("list tasks", err)
	}
	if len(tasks) == 0 {
		return nil, apperr.ErrNotFound
	}

	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = newTaskView(t)
	}
	return views, nil
}

// ListRobots returns a snapshot of every robot ordered by id. Task and
// location lookups run concurrently; the result is returned only after all of
// them finish, and any failure discards the whole listing.
func (s *Service) ListRobots(ctx context.Context) ([]RobotView, error) {
	robots, err := s.listRobots(ctx)
	if err != nil {
		return nil, err
	}
	if len(robots) == 0 {
		return nil, apperr.ErrNotFound
	}

	locations := make([]LocationView, len(robots))
	tasks := make([][]int64, len(robots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, r := range robots {
		i, r := i, r
		g.Go(func() error {
			ids, err := s.taskIDs(gctx, r.ID)
			if err != nil {
				return err
			}
			tasks[i] = ids
			return nil
		})
		g.Go(func() error {
			loc, err := s.currentLocation(gctx, r.ID)
			if err != nil {
				return err
			}
			locations[i] = loc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "robot listing aborted", "robots", len(robots), "error", err)
		return nil, err
	}

	views := make([]RobotView, len(robots))
	for i, r := range robots {
		views[i] = newRobotView(r, locations[i], tasks[i])
	}
	return views, nil
}

// RobotLocation returns the current location of one robot
func (s *Service) RobotLocation(ctx context.Context, robotID int64) (LocationView, error) {
	if _, err := s.getRobot(ctx, robotID); err != nil {
		return LocationView{}, err
	}
	return s.currentLocation(ctx, robotID)
}

// CreateRobot registers a robot. Battery is a percentage; ping is optional.
func (s *Service) CreateRobot(ctx context.Context, battery int, pingMS *int) (RobotView, error) {
	if battery < 0 || battery > 100 {
		return RobotView{}, apperr.Validation("battery must be between 0 and 100")
	}
	if pingMS != nil && *pingMS < 0 {
		return RobotView{}, apperr.Validation("ping must not be negative")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	robot, err := s.repos.Robots.Create(storeCtx, battery, pingMS)
	if err != nil {
		return RobotView{}, apperr.Store("create robot", err)
	}
	s.logger.InfoContext(ctx, "robot created", "robot_id", robot.ID)
	return newRobotView(robot, newLocationView(robot.ID, model.CurrentLocation{}, false), nil), nil
}

// SendInstruction records a command for a robot on behalf of issuer
func (s *Service) SendInstruction(ctx context.Context, issuer uuid.UUID, robotID int64, command string) (model.Instruction, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return model.Instruction{}, apperr.Validation("command is required")
	}
	if len(command) > maxCommandLength {
		return model.Instruction{}, apperr.Validation("command is too long")
	}
	if robotID <= 0 {
		return model.Instruction{}, apperr.Validation("robot_id is required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	in, err := s.repos.Instructions.Create(storeCtx, robotID, command, issuer)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Instruction{}, apperr.ErrNotFound
		}
		return model.Instruction{}, apperr.Store("create instruction", err)
	}
	s.logger.InfoContext(ctx, "instruction queued",
		"instruction_id", in.ID,
		"robot_id", robotID,
		"issued_by", issuer,
	)
	return in, nil
}

// ListCallbacks returns robot callbacks, optionally for one robot. Never nil.
func (s *Service) ListCallbacks(ctx context.Context, robotID *int64) ([]model.Callback, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	callbacks, err := s.repos.Callbacks.List(storeCtx, robotID)
	if err != nil {
		return nil, apperr.Store("list callbacks", err)
	}
	if callbacks == nil {
		callbacks = []model.Callback{}
	}
	return callbacks, nil
}

func (s *Service) listRobots(ctx context.Context) ([]model.Robot, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	robots, err := s.repos.Robots.List(storeCtx)
	if err != nil {
		return nil, apperr.Store("list robots", err)
	}
	return robots, nil
}

func (s *Service) getRobot(ctx context.Context, robotID int64) (model.Robot, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	robot, err := s.repos.Robots.Get(storeCtx, robotID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Robot{}, apperr.ErrNotFound
		}
		return model.Robot{}, apperr.Store("get robot", err)
	}
	return robot, nil
}

func (s *Service) taskIDs(ctx context.Context, robotID int64) ([]int64, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ids, err := s.repos.Tasks.IDsForRobot(storeCtx, robotID)
	if err != nil {
		return nil, apperr.Store("robot tasks", err)
	}
	return ids, nil
}

func (s *Service) currentLocation(ctx context.Context, robotID int64) (LocationView, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	cur, ok, err := s.repos.Locations.Current(storeCtx, robotID)
	if err != nil {
		return LocationView{}, apperr.Store("robot location", err)
	}
	return newLocationView(robotID, cur, ok), nil
}
