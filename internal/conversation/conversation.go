// Package conversation tracks where each technician is in the diagnosis
// dialogue and decides what the bot answers to every message.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Stage is a position in the dialogue.
type Stage string

const (
	StageIntro                   Stage = "INTRO"
	StageAwaitingProblem         Stage = "AWAITING_PROBLEM"
	StageAwaitingFeedback        Stage = "AWAITING_FEEDBACK"
	StageAwaitingRefinement      Stage = "AWAITING_REFINEMENT"
	StageAwaitingRefinedFeedback Stage = "AWAITING_REFINED_FEEDBACK"
)

// Stages lists every valid stage in dialogue order.
var Stages = []Stage{
	StageIntro,
	StageAwaitingProblem,
	StageAwaitingFeedback,
	StageAwaitingRefinement,
	StageAwaitingRefinedFeedback,
}

// ParseStage rejects anything that is not one of Stages.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

func (s Stage) String() string { return string(s) }

func (s *Stage) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Conversation is the state kept per user between messages.
type Conversation struct {
	UserID       int64     `json:"user_id"`
	Stage        Stage     `json:"stage"`
	Equipment    string    `json:"equipment,omitempty"`
	Problem      string    `json:"problem,omitempty"`
	LastSolution string    `json:"last_solution,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New returns the conversation of a user that has just been greeted.
func New(userID int64) Conversation {
	return Conversation{UserID: userID, Stage: StageIntro}
}

// Store keeps conversations between messages.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound for users that never talked to the bot.
	Get(ctx context.Context, userID int64) (Conversation, error)
	Put(ctx context.Context, conv Conversation) error
	Delete(ctx context.Context, userID int64) error
	Close() error
}
