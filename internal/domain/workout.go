package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Intensity of a workout schedule.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

const (
	DefaultIntensity = IntensityMedium
	DefaultDuration  = 45 // Minutes
)

// weekdays in the order schedules store them.
var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WorkoutSchedule is a user's recurring workout plan. Its exercises live in their own
// collection keyed by ScheduleID and are loaded into Exercises on read.
type WorkoutSchedule struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Days        []string           `bson:"days" json:"days"` // Distinct lowercase weekday names
	Intensity   Intensity          `bson:"intensity" json:"intensity"`
	Duration    int                `bson:"duration" json:"duration"` // Minutes
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	Exercises []Exercise `bson:"-" json:"exercises"`
}

// OwnerID implements Owned.
func (w *WorkoutSchedule) OwnerID() primitive.ObjectID {
	if w == nil {
		return primitive.NilObjectID
	}
	return w.UserID
}

// ParseIntensity validates s, returning DefaultIntensity for an empty string.
func ParseIntensity(s string) (Intensity, error) {
	switch Intensity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultIntensity, nil
	case IntensityLow:
		return IntensityLow, nil
	case IntensityMedium:
		return IntensityMedium, nil
	case IntensityHigh:
		return IntensityHigh, nil
	}
	return "", fmt.Errorf("unknown intensity %q", s)
}

// NormalizeDays lowercases and de-duplicates day names and returns them in weekday order.
func NormalizeDays(days []string) ([]string, error) {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		name := strings.ToLower(strings.TrimSpace(d))
		if name == "" {
			continue
		}
		if !isWeekday(name) {
			return nil, fmt.Errorf("unknown day %q", d)
		}
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for _, w := range weekdays {
		if seen[w] {
			out = append(out, w)
		}
	}
	return out, nil
}

func isWeekday(name string) bool {
	for _, w := range weekdays {
		if w == name {
			return true
		}
	}
	return false
}
