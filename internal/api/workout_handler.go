package api

import (
	"gymhub/social-fitness/internal/service"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WorkoutHandler handles HTTP requests for workout schedules.
type WorkoutHandler struct {
	errorResponder
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService, logger *slog.Logger) *WorkoutHandler {
	return &WorkoutHandler{
		errorResponder: errorResponder{logger: logger},
		workoutService: workoutService,
	}
}

// --- DTOs ---

type ExerciseRequest struct {
	Name      string `json:"name"`
	Sets      *int   `json:"sets"`
	Reps      *int   `json:"reps"`
	Completed bool   `json:"completed"`
}

// ScheduleRequest is shared by create and update. Absent fields keep their stored value on update.
type ScheduleRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Days        []string          `json:"days"`
	Intensity   *string           `json:"intensity"`
	Duration    *int              `json:"duration"`
	Exercises   []ExerciseRequest `json:"exercises"`
}

func (r ScheduleRequest) toInput() service.ScheduleInput {
	in := service.ScheduleInput{
		Title:       r.Title,
		Description: r.Description,
		Days:        r.Days,
		Intensity:   r.Intensity,
		Duration:    r.Duration,
	}
	if r.Exercises != nil {
		in.Exercises = make([]service.ExerciseInput, 0, len(r.Exercises))
		for _, e := range r.Exercises {
			in.Exercises = append(in.Exercises, service.ExerciseInput{
				Name:      e.Name,
				Sets:      e.Sets,
				Reps:      e.Reps,
				Completed: e.Completed,
			})
		}
	}
	return in
}

func (h *WorkoutHandler) ListSchedules(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	schedules, err := h.workoutService.ListSchedules(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (h *WorkoutHandler) GetSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	schedule, err := h.workoutService.GetSchedule(c.Request.Context(), scheduleID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (h *WorkoutHandler) CreateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.workoutService.CreateSchedule(c.Request.Context(), userID, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

func (h *WorkoutHandler) UpdateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.workoutService.UpdateSchedule(c.Request.Context(), scheduleID, userID, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ToggleExercise flips the completed flag of one exercise and returns the whole schedule.
func (h *WorkoutHandler) ToggleExercise(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	exerciseID, ok := parseIDParam(c, "exerciseId")
	if !ok {
		return
	}
	schedule, err := h.workoutService.ToggleExerciseCompletion(c.Request.Context(), scheduleID, exerciseID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (h *WorkoutHandler) DeleteSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.workoutService.DeleteSchedule(c.Request.Context(), scheduleID, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
