package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"gymhub/social-fitness/internal/service"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ProgressHandler handles HTTP requests for progress goals and their history.
type ProgressHandler struct {
	errorResponder
	progressService service.ProgressService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService service.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		errorResponder:  errorResponder{logger: logger},
		progressService: progressService,
	}
}

// Date accepts "2006-01-02" as well as RFC3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// --- DTOs ---

type CreateGoalRequest struct {
	GoalType        string  `json:"goalType" binding:"required"`
	GoalDescription string  `json:"goalDescription"`
	InitialValue    float64 `json:"initialValue"`
	TargetValue     float64 `json:"targetValue"`
	Unit            string  `json:"unit"`
	TargetDate      *Date   `json:"targetDate"`
}

type UpdateGoalRequest struct {
	GoalType        *string  `json:"goalType"`
	GoalDescription *string  `json:"goalDescription"`
	CurrentValue    *float64 `json:"currentValue"`
	TargetValue     *float64 `json:"targetValue"`
	Unit            *string  `json:"unit"`
	TargetDate      *Date    `json:"targetDate"`
	IsCompleted     *bool    `json:"isCompleted"`
}

type HistoryRequest struct {
	Value *float64 `json:"value" binding:"required"`
	Notes string   `json:"notes"`
}

func (h *ProgressHandler) ListGoals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goals, err := h.progressService.ListGoals(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (h *ProgressHandler) GetGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	goal, err := h.progressService.GetGoal(c.Request.Context(), goalID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *ProgressHandler) CreateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateGoalRequest
	if !bindJSON(c, &req) {
		return
	}
	goal, err := h.progressService.CreateGoal(c.Request.Context(), userID, service.CreateGoalInput{
		GoalType:        req.GoalType,
		GoalDescription: req.GoalDescription,
		InitialValue:    req.InitialValue,
		TargetValue:     req.TargetValue,
		Unit:            req.Unit,
		TargetDate:      req.TargetDate.ptr(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *ProgressHandler) UpdateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateGoalRequest
	if !bindJSON(c, &req) {
		return
	}
	goal, err := h.progressService.UpdateGoal(c.Request.Context(), goalID, userID, service.UpdateGoalInput{
		GoalType:        req.GoalType,
		GoalDescription: req.GoalDescription,
		CurrentValue:    req.CurrentValue,
		TargetValue:     req.TargetValue,
		Unit:            req.Unit,
		TargetDate:      req.TargetDate.ptr(),
		IsCompleted:     req.IsCompleted,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *ProgressHandler) DeleteGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.progressService.DeleteGoal(c.Request.Context(), goalID, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProgressHandler) ListHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.progressService.ListHistory(c.Request.Context(), goalID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AddHistory records a measurement; the goal's current value follows it.
func (h *ProgressHandler) AddHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req HistoryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.progressService.AddHistory(c.Request.Context(), goalID, userID, *req.Value, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
