package conversation

import "errors"

// Failure classes. Each one is handled differently by the tracker:
// validation keeps the stage and asks again, generation falls back to a
// fixed answer, persistence is logged only, unexpected restarts the dialogue.
var (
	ErrValidation  = errors.New("validation error")
	ErrGeneration  = errors.New("generation error")
	ErrPersistence = errors.New("persistence error")
	ErrUnexpected  = errors.New("unexpected error")
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrUnknownStage = errors.New("unknown stage")
)

// Kind names the failure class of err for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrGeneration):
		return "GENERATION_ERROR"
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_ERROR"
	default:
		return "UNEXPECTED_ERROR"
	}
}
