package service

import (
	"context"
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/events"
	"gymhub/social-fitness/internal/repository"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrGoalNotFound = fmt.Errorf("progress goal %w", ErrNotFound)
)

type CreateGoalInput struct {
	GoalType        string
	GoalDescription string
	InitialValue    float64
	TargetValue     float64
	Unit            string
	TargetDate      *time.Time
}

// UpdateGoalInput is a merge patch: nil fields keep the stored value.
type UpdateGoalInput struct {
	GoalType        *string
	GoalDescription *string
	CurrentValue    *float64
	TargetValue     *float64
	Unit            *string
	TargetDate      *time.Time
	IsCompleted     *bool
}

type ProgressService interface {
	ListGoals(ctx context.Context, ownerID primitive.ObjectID) ([]domain.ProgressView, error)
	GetGoal(ctx context.Context, goalID, requesterID primitive.ObjectID) (*domain.ProgressView, error)
	CreateGoal(ctx context.Context, ownerID primitive.ObjectID, in CreateGoalInput) (*domain.ProgressView, error)
	UpdateGoal(ctx context.Context, goalID, requesterID primitive.ObjectID, in UpdateGoalInput) (*domain.ProgressView, error)
	DeleteGoal(ctx context.Context, goalID, requesterID primitive.ObjectID) error

	ListHistory(ctx context.Context, goalID, requesterID primitive.ObjectID) ([]domain.ProgressHistory, error)
	AddHistory(ctx context.Context, goalID, requesterID primitive.ObjectID, value float64, notes string) (*domain.ProgressHistory, error)
}

// progressService implements the ProgressService interface.
type progressService struct {
	tx           repository.Transactor
	progressRepo repository.ProgressRepository
	historyRepo  repository.ProgressHistoryRepository
	publisher    events.Publisher
	logger       *slog.Logger
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(
	tx repository.Transactor,
	progressRepo repository.ProgressRepository,
	historyRepo repository.ProgressHistoryRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) ProgressService {
	return &progressService{
		tx:           tx,
		progressRepo: progressRepo,
		historyRepo:  historyRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// ListGoals retrieves every goal of ownerID, newest first.
func (s *progressService) ListGoals(ctx context.Context, ownerID primitive.ObjectID) ([]domain.ProgressView, error) {
	goals, err := s.progressRepo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.ProgressView, len(goals))
	for i := range goals {
		views[i] = goals[i].View()
	}
	return views, nil
}

// GetGoal retrieves a goal the requester owns.
func (s *progressService) GetGoal(ctx context.Context, goalID, requesterID primitive.ObjectID) (*domain.ProgressView, error) {
	goal, err := s.getOwned(ctx, goalID, requesterID)
	if err != nil {
		return nil, err
	}
	view := goal.View()
	return &view, nil
}

// CreateGoal inserts the goal together with its initial measurement. The current value always
// starts at the initial value.
func (s *progressService) CreateGoal(ctx context.Context, ownerID primitive.ObjectID, in CreateGoalInput) (*domain.ProgressView, error) {
	// 1. Validate input
	goal := &domain.Progress{
		UserID:          ownerID,
		GoalType:        strings.TrimSpace(in.GoalType),
		GoalDescription: strings.TrimSpace(in.GoalDescription),
		InitialValue:    in.InitialValue,
		CurrentValue:    in.InitialValue,
		TargetValue:     in.TargetValue,
		Unit:            strings.TrimSpace(in.Unit),
		TargetDate:      in.TargetDate,
		StartedAt:       time.Now().UTC(),
	}
	if goal.GoalType == "" || goal.GoalDescription == "" || goal.Unit == "" {
		return nil, validationError("goalType, goalDescription and unit are required")
	}

	// 2. Goal and first history row commit together
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.progressRepo.Create(ctx, goal); err != nil {
			return err
		}
		_, err := s.historyRepo.Create(ctx, &domain.ProgressHistory{
			ProgressID:       goal.ID,
			MeasurementValue: goal.InitialValue,
			RecordedAt:       goal.StartedAt,
			Notes:            domain.NoteInitialMeasurement,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("progress goal created", "progressId", goal.ID.Hex(), "userId", ownerID.Hex())
	view := goal.View()
	return &view, nil
}

// UpdateGoal merges in into the stored goal. A changed current value also appends a history row
// in the same transaction.
func (s *progressService) UpdateGoal(ctx context.Context, goalID, requesterID primitive.ObjectID, in UpdateGoalInput) (*domain.ProgressView, error) {
	goal, err := s.getOwned(ctx, goalID, requesterID)
	if err != nil {
		return nil, err
	}

	if in.GoalType != nil {
		if goal.GoalType = strings.TrimSpace(*in.GoalType); goal.GoalType == "" {
			return nil, validationError("goalType cannot be blank")
		}
	}
	if in.GoalDescription != nil {
		if goal.GoalDescription = strings.TrimSpace(*in.GoalDescription); goal.GoalDescription == "" {
			return nil, validationError("goalDescription cannot be blank")
		}
	}
	if in.Unit != nil {
		if goal.Unit = strings.TrimSpace(*in.Unit); goal.Unit == "" {
			return nil, validationError("unit cannot be blank")
		}
	}
	if in.TargetValue != nil {
		goal.TargetValue = *in.TargetValue
	}
	if in.TargetDate != nil {
		goal.TargetDate = in.TargetDate
	}
	if in.IsCompleted != nil {
		goal.IsCompleted = *in.IsCompleted
	}

	var entry *domain.ProgressHistory
	if in.CurrentValue != nil && *in.CurrentValue != goal.CurrentValue {
		note := domain.NoteValueUpdated
		if in.GoalDescription != nil && goal.GoalDescription != "" {
			note = goal.GoalDescription
		}
		goal.CurrentValue = *in.CurrentValue
		entry = &domain.ProgressHistory{
			ProgressID:       goal.ID,
			MeasurementValue: goal.CurrentValue,
			RecordedAt:       time.Now().UTC(),
			Notes:            note,
		}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.progressRepo.Update(ctx, goal); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		_, err := s.historyRepo.Create(ctx, entry)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}

	if entry != nil {
		s.publishRecorded(ctx, goal, entry)
	}
	view := goal.View()
	return &view, nil
}

// DeleteGoal removes the history rows and then the goal in one transaction.
func (s *progressService) DeleteGoal(ctx context.Context, goalID, requesterID primitive.ObjectID) error {
	if _, err := s.getOwned(ctx, goalID, requesterID); err != nil {
		return err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.historyRepo.DeleteByProgress(ctx, goalID); err != nil {
			return err
		}
		return s.progressRepo.Delete(ctx, goalID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGoalNotFound
		}
		return err
	}
	s.logger.Info("progress goal deleted", "progressId", goalID.Hex(), "userId", requesterID.Hex())
	return nil
}

// ListHistory retrieves the measurements of a goal, newest first.
func (s *progressService) ListHistory(ctx context.Context, goalID, requesterID primitive.ObjectID) ([]domain.ProgressHistory, error) {
	if _, err := s.getOwned(ctx, goalID, requesterID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByProgress(ctx, goalID)
}

// AddHistory appends a measurement and makes it the goal's current value.
func (s *progressService) AddHistory(ctx context.Context, goalID, requesterID primitive.ObjectID, value float64, notes string) (*domain.ProgressHistory, error) {
	goal, err := s.getOwned(ctx, goalID, requesterID)
	if err != nil {
		return nil, err
	}

	entry := &domain.ProgressHistory{
		ProgressID:       goal.ID,
		MeasurementValue: value,
		RecordedAt:       time.Now().UTC(),
		Notes:            strings.TrimSpace(notes),
	}
	goal.CurrentValue = value

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.historyRepo.Create(ctx, entry); err != nil {
			return err
		}
		return s.progressRepo.Update(ctx, goal)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}

	s.publishRecorded(ctx, goal, entry)
	return entry, nil
}

func (s *progressService) getOwned(ctx context.Context, goalID, requesterID primitive.ObjectID) (*domain.Progress, error) {
	goal, err := s.progressRepo.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if !domain.Owns(requesterID, goal) {
		return nil, ErrForbidden
	}
	return goal, nil
}

func (s *progressService) publishRecorded(ctx context.Context, goal *domain.Progress, entry *domain.ProgressHistory) {
	err := s.publisher.Publish(ctx, events.SubjectProgressRecorded, events.ProgressRecordedEvent{
		ProgressID: goal.ID.Hex(),
		UserID:     goal.UserID.Hex(),
		Value:      entry.MeasurementValue,
		Percentage: goal.Percentage(),
		Timestamp:  events.Timestamp(entry.RecordedAt),
	})
	if err != nil {
		s.logger.Warn("event publish failed", "subject", events.SubjectProgressRecorded, "error", err)
	}
}
