package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

const (
	eventEquipment = "equipment"
	eventDiagnose  = "diagnose"
	eventConfirm   = "confirm"
	eventReject    = "reject"
	eventRefine    = "refine"
	eventReset     = "reset"
)

func stageNames(stages ...Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}

var transitions = fsm.Events{
	{Name: eventEquipment, Src: stageNames(StageIntro), Dst: string(StageAwaitingProblem)},
	{Name: eventDiagnose, Src: stageNames(StageAwaitingProblem), Dst: string(StageAwaitingFeedback)},
	{Name: eventConfirm, Src: stageNames(StageAwaitingFeedback, StageAwaitingRefinedFeedback), Dst: string(StageIntro)},
	{Name: eventReject, Src: stageNames(StageAwaitingFeedback, StageAwaitingRefinedFeedback), Dst: string(StageAwaitingRefinement)},
	{Name: eventRefine, Src: stageNames(StageAwaitingRefinement), Dst: string(StageAwaitingRefinedFeedback)},
	{Name: eventReset, Src: stageNames(Stages...), Dst: string(StageIntro)},
}

// fire applies event to conv.Stage through the transition table.
// An event the current stage does not accept is an unexpected error.
func fire(ctx context.Context, conv *Conversation, event string) error {
	m := fsm.NewFSM(string(conv.Stage), transitions, nil)
	if err := m.Event(ctx, event); err != nil {
		var same fsm.NoTransitionError
		if !errors.As(err, &same) {
			return fmt.Errorf("%w: event %s in stage %s: %v", ErrUnexpected, event, conv.Stage, err)
		}
	}
	st, err := ParseStage(m.Current())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	conv.Stage = st
	return nil
}

// allowedEvents lists the events stage accepts.
func allowedEvents(stage Stage) []string {
	return fsm.NewFSM(string(stage), transitions, nil).AvailableTransitions()
}
