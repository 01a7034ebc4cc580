package service

import (
	"context"
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/repository"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrScheduleNotFound = fmt.Errorf("workout schedule %w", ErrNotFound)
	ErrExerciseNotFound = fmt.Errorf("exercise %w", ErrNotFound)
)

// ExerciseInput is one exercise line. Nil Sets/Reps take the defaults.
type ExerciseInput struct {
	Name      string
	Sets      *int
	Reps      *int
	Completed bool
}

// ScheduleInput is used for create and update. On update a nil field keeps the stored value and
// a non-nil Exercises slice replaces the whole exercise list.
type ScheduleInput struct {
	Title       *string
	Description *string
	Days        []string
	Intensity   *string
	Duration    *int
	Exercises   []ExerciseInput
}

type WorkoutService interface {
	ListSchedules(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutSchedule, error)
	GetSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID) (*domain.WorkoutSchedule, error)
	CreateSchedule(ctx context.Context, ownerID primitive.ObjectID, in ScheduleInput) (*domain.WorkoutSchedule, error)
	UpdateSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID, in ScheduleInput) (*domain.WorkoutSchedule, error)
	ToggleExerciseCompletion(ctx context.Context, scheduleID, exerciseID, requesterID primitive.ObjectID) (*domain.WorkoutSchedule, error)
	DeleteSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID) error
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	tx           repository.Transactor
	scheduleRepo repository.WorkoutScheduleRepository
	exerciseRepo repository.ExerciseRepository
	logger       *slog.Logger
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	tx repository.Transactor,
	scheduleRepo repository.WorkoutScheduleRepository,
	exerciseRepo repository.ExerciseRepository,
	logger *slog.Logger,
) WorkoutService {
	return &workoutService{
		tx:           tx,
		scheduleRepo: scheduleRepo,
		exerciseRepo: exerciseRepo,
		logger:       logger,
	}
}

// ListSchedules retrieves every schedule of ownerID with its exercises, newest first.
func (s *workoutService) ListSchedules(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutSchedule, error) {
	schedules, err := s.scheduleRepo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		if err := s.loadExercises(ctx, &schedules[i]); err != nil {
			return nil, err
		}
	}
	return schedules, nil
}

// GetSchedule retrieves a schedule the requester owns.
func (s *workoutService) GetSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID) (*domain.WorkoutSchedule, error) {
	schedule, err := s.getOwned(ctx, scheduleID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.loadExercises(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// CreateSchedule inserts the schedule and then its exercises in one transaction.
func (s *workoutService) CreateSchedule(ctx context.Context, ownerID primitive.ObjectID, in ScheduleInput) (*domain.WorkoutSchedule, error) {
	// 1. Validate input and apply defaults
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, validationError("title is required")
	}
	schedule := &domain.WorkoutSchedule{
		UserID:    ownerID,
		Intensity: domain.DefaultIntensity,
		Duration:  domain.DefaultDuration,
		Days:      []string{},
	}
	if err := applyScheduleInput(schedule, in); err != nil {
		return nil, err
	}
	exercises, err := buildExercises(in.Exercises)
	if err != nil {
		return nil, err
	}

	// 2. Persist schedule then exercises
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.scheduleRepo.Create(ctx, schedule); err != nil {
			return err
		}
		return s.insertExercises(ctx, schedule.ID, exercises)
	})
	if err != nil {
		return nil, err
	}

	schedule.Exercises = exercises
	s.logger.Info("workout schedule created", "scheduleId", schedule.ID.Hex(), "userId", ownerID.Hex(), "exercises", len(exercises))
	return schedule, nil
}

// UpdateSchedule merges in into the stored schedule. A supplied exercise list fully replaces
// the stored one within the same transaction.
func (s *workoutService) UpdateSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID, in ScheduleInput) (*domain.WorkoutSchedule, error) {
	schedule, err := s.getOwned(ctx, scheduleID, requesterID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, validationError("title cannot be blank")
	}
	if err := applyScheduleInput(schedule, in); err != nil {
		return nil, err
	}

	var exercises []domain.Exercise
	if in.Exercises != nil {
		if exercises, err = buildExercises(in.Exercises); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
			return err
		}
		if in.Exercises == nil {
			return nil
		}
		if err := s.exerciseRepo.DeleteBySchedule(ctx, schedule.ID); err != nil {
			return err
		}
		return s.insertExercises(ctx, schedule.ID, exercises)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if err := s.loadExercises(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ToggleExerciseCompletion flips the completed flag of one exercise in the schedule.
func (s *workoutService) ToggleExerciseCompletion(ctx context.Context, scheduleID, exerciseID, requesterID primitive.ObjectID) (*domain.WorkoutSchedule, error) {
	schedule, err := s.getOwned(ctx, scheduleID, requesterID)
	if err != nil {
		return nil, err
	}

	if _, err := s.exerciseRepo.ToggleCompleted(ctx, scheduleID, exerciseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	if err := s.loadExercises(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeleteSchedule removes the exercises and then the schedule in one transaction.
func (s *workoutService) DeleteSchedule(ctx context.Context, scheduleID, requesterID primitive.ObjectID) error {
	if _, err := s.getOwned(ctx, scheduleID, requesterID); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.exerciseRepo.DeleteBySchedule(ctx, scheduleID); err != nil {
			return err
		}
		return s.scheduleRepo.Delete(ctx, scheduleID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	s.logger.Info("workout schedule deleted", "scheduleId", scheduleID.Hex(), "userId", requesterID.Hex())
	return nil
}

func (s *workoutService) getOwned(ctx context.Context, scheduleID, requesterID primitive.ObjectID) (*domain.WorkoutSchedule, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if !domain.Owns(requesterID, schedule) {
		return nil, ErrForbidden
	}
	return schedule, nil
}

func (s *workoutService) loadExercises(ctx context.Context, schedule *domain.WorkoutSchedule) error {
	exercises, err := s.exerciseRepo.ListBySchedule(ctx, schedule.ID)
	if err != nil {
		return err
	}
	schedule.Exercises = exercises
	return nil
}

func (s *workoutService) insertExercises(ctx context.Context, scheduleID primitive.ObjectID, exercises []domain.Exercise) error {
	for i := range exercises {
		exercises[i].ScheduleID = scheduleID
		if _, err := s.exerciseRepo.Create(ctx, &exercises[i]); err != nil {
			return fmt.Errorf("create exercise %q: %w", exercises[i].Name, err)
		}
	}
	return nil
}

// applyScheduleInput copies every non-nil field of in onto schedule.
func applyScheduleInput(schedule *domain.WorkoutSchedule, in ScheduleInput) error {
	if in.Title != nil {
		schedule.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		schedule.Description = *in.Description
	}
	if in.Days != nil {
		days, err := domain.NormalizeDays(in.Days)
		if err != nil {
			return validationError("%v", err)
		}
		schedule.Days = days
	}
	if in.Intensity != nil {
		intensity, err := domain.ParseIntensity(*in.Intensity)
		if err != nil {
			return validationError("%v", err)
		}
		schedule.Intensity = intensity
	}
	if in.Duration != nil {
		if *in.Duration <= 0 {
			return validationError("duration must be positive")
		}
		schedule.Duration = *in.Duration
	}
	return nil
}

// buildExercises skips blank names, applies defaults and numbers the rest in order.
func buildExercises(inputs []ExerciseInput) ([]domain.Exercise, error) {
	exercises := []domain.Exercise{}
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			continue
		}
		ex := domain.Exercise{
			Name:      name,
			Sets:      domain.DefaultSets,
			Reps:      domain.DefaultReps,
			Completed: in.Completed,
			Position:  len(exercises),
		}
		if in.Sets != nil {
			if *in.Sets <= 0 {
				return nil, validationError("sets for %q must be positive", name)
			}
			ex.Sets = *in.Sets
		}
		if in.Reps != nil {
			if *in.Reps <= 0 {
				return nil, validationError("reps for %q must be positive", name)
			}
			ex.Reps = *in.Reps
		}
		exercises = append(exercises, ex)
	}
	return exercises, nil
}
