package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NoteInitialMeasurement = "Initial measurement"
	NoteValueUpdated       = "Value updated"
)

// Progress is a measurable goal, e.g. body weight from 90 to 80 kg.
type Progress struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	GoalType        string             `bson:"goalType" json:"goalType"`
	GoalDescription string             `bson:"goalDescription" json:"goalDescription"`
	InitialValue    float64            `bson:"initialValue" json:"initialValue"`
	CurrentValue    float64            `bson:"currentValue" json:"currentValue"`
	TargetValue     float64            `bson:"targetValue" json:"targetValue"`
	Unit            string             `bson:"unit" json:"unit"`
	StartedAt       time.Time          `bson:"startedAt" json:"startedAt"`
	TargetDate      *time.Time         `bson:"targetDate,omitempty" json:"targetDate,omitempty"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	IsCompleted     bool               `bson:"isCompleted" json:"isCompleted"`
}

// OwnerID implements Owned.
func (p *Progress) OwnerID() primitive.ObjectID {
	if p == nil {
		return primitive.NilObjectID
	}
	return p.UserID
}

// Percentage is how far CurrentValue has moved from InitialValue towards TargetValue, clamped to
// [0, 100]. Works for decreasing goals too. A goal whose target equals its initial value is
// complete by definition.
func (p *Progress) Percentage() float64 {
	if p.TargetValue == p.InitialValue {
		return 100
	}
	// Halving first keeps the differences finite for any finite inputs.
	moved := p.CurrentValue/2 - p.InitialValue/2
	span := p.TargetValue/2 - p.InitialValue/2
	pct := moved / span * 100
	switch {
	case math.IsNaN(pct):
		return 0
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// ProgressHistory is one measurement of a goal. Rows are never updated.
type ProgressHistory struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgressID       primitive.ObjectID `bson:"progressId" json:"progressId"`
	MeasurementValue float64            `bson:"measurementValue" json:"value"`
	RecordedAt       time.Time          `bson:"recordedAt" json:"recordedAt"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ProgressView is a goal with its derived completion percentage.
type ProgressView struct {
	Progress
	ProgressPercentage float64 `json:"progressPercentage"`
}

// View derives the percentage. It is never stored.
func (p *Progress) View() ProgressView {
	return ProgressView{Progress: *p, ProgressPercentage: p.Percentage()}
}
