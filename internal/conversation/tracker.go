package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"forklift-assistant/internal/diagnosis"
	"forklift-assistant/internal/logging"
	"forklift-assistant/internal/records"
	"forklift-assistant/internal/retrieval"
)

// ResetCommand restarts the dialogue from any stage.
const ResetCommand = "/start"

var (
	affirmative = map[string]bool{"sim": true, "✅": true}
	negative    = map[string]bool{"não": true, "❌": true}
)

type Diagnoser interface {
	Diagnose(ctx context.Context, req diagnosis.Request) diagnosis.Result
}

type Retriever interface {
	Relevant(ctx context.Context, equipment, problem string) ([]retrieval.ScoredRecord, error)
}

type RecordInserter interface {
	Insert(ctx context.Context, rec records.Record) (records.Record, error)
}

// Reply is what the bot answers to one message. Each entry is one logical
// message; the transport may still split long ones.
type Reply struct {
	Messages []string
	Stage    Stage
}

type Options struct {
	// EnrichLimit caps how many past solutions are appended to a diagnosis;
	// zero means 3. History is turned off at the retriever, not here.
	EnrichLimit int
	Now         func() time.Time
}

type Tracker struct {
	store     Store
	diagnoser Diagnoser
	retriever Retriever
	records   RecordInserter
	opts      Options
	locks     *userLocks
	logger    *zap.Logger
}

// NewTracker wires the dialogue. retriever may be nil to disable enrichment.
func NewTracker(store Store, d Diagnoser, r Retriever, recs RecordInserter, opts Options, logger *zap.Logger) *Tracker {
	if opts.EnrichLimit <= 0 {
		opts.EnrichLimit = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		store:     store,
		diagnoser: d,
		retriever: r,
		records:   recs,
		opts:      opts,
		locks:     newUserLocks(),
		logger:    logging.OrNop(logger).Named("tracker"),
	}
}

// Advance handles one inbound message of userID. It never fails: every
// error is turned into a reply. Messages of the same user are processed one
// at a time.
func (t *Tracker) Advance(ctx context.Context, userID int64, text string) (reply Reply) {
	unlock := t.locks.lock(userID)
	defer unlock()

	log := t.logger.With(zap.Int64("user_id", userID))

	defer func() {
		if r := recover(); r != nil {
			reply = t.restart(ctx, log, userID, fmt.Errorf("%w: panic: %v", ErrUnexpected, r))
		}
	}()

	conv, err := t.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		log.Info("new user")
		return t.greet(ctx, log, New(userID))
	}
	if err != nil {
		return t.restart(ctx, log, userID, fmt.Errorf("%w: load conversation: %v", ErrUnexpected, err))
	}

	if isReset(text) {
		if err := fire(ctx, &conv, eventReset); err != nil {
			return t.restart(ctx, log, userID, err)
		}
		return t.greet(ctx, log, New(userID))
	}

	from := conv.Stage
	msgs, err := t.step(ctx, log, &conv, strings.TrimSpace(text))
	switch {
	case errors.Is(err, ErrValidation):
		log.Info("invalid input", zap.Stringer("stage", conv.Stage), zap.String("kind", Kind(err)))
	case err != nil:
		return t.restart(ctx, log, userID, err)
	}

	t.save(ctx, log, conv)
	if from != conv.Stage {
		log.Info("stage changed", zap.Stringer("from", from), zap.Stringer("to", conv.Stage))
	}
	return Reply{Messages: msgs, Stage: conv.Stage}
}

// Forget drops the stored conversation of userID; the next message is
// treated as a first contact.
func (t *Tracker) Forget(ctx context.Context, userID int64) error {
	unlock := t.locks.lock(userID)
	defer unlock()
	if err := t.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: delete conversation: %w", ErrPersistence, err)
	}
	return nil
}

// step runs the handler of the current stage. A validation error comes with
// the messages to send and leaves conv unchanged.
func (t *Tracker) step(ctx context.Context, log *zap.Logger, conv *Conversation, text string) ([]string, error) {
	switch conv.Stage {
	case StageIntro:
		if text == "" {
			return []string{msgEmptyEquipment}, ErrValidation
		}
		conv.Equipment = text
		if err := fire(ctx, conv, eventEquipment); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf(msgAskProblem, conv.Equipment)}, nil

	case StageAwaitingProblem:
		if text == "" {
			return []string{msgEmptyProblem}, ErrValidation
		}
		conv.Problem = text
		shown := t.diagnose(ctx, log, conv, "")
		if err := fire(ctx, conv, eventDiagnose); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf(msgSolution, conv.Equipment, shown), msgFeedback}, nil

	case StageAwaitingFeedback:
		switch feedback(text) {
		case feedbackYes:
			t.persist(ctx, log, *conv)
			if err := fire(ctx, conv, eventConfirm); err != nil {
				return nil, err
			}
			clearFields(conv)
			return []string{msgConfirmed}, nil
		case feedbackNo:
			if err := fire(ctx, conv, eventReject); err != nil {
				return nil, err
			}
			return []string{msgAskRefinement}, nil
		default:
			return []string{msgUnrecognized}, ErrValidation
		}

	case StageAwaitingRefinement:
		if text == "" {
			return []string{msgEmptyRefinement}, ErrValidation
		}
		shown := t.diagnose(ctx, log, conv, text)
		t.persist(ctx, log, *conv)
		if err := fire(ctx, conv, eventRefine); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf(msgSolution, conv.Equipment, shown), msgFeedback}, nil

	case StageAwaitingRefinedFeedback:
		switch feedback(text) {
		case feedbackYes:
			if err := fire(ctx, conv, eventConfirm); err != nil {
				return nil, err
			}
			clearFields(conv)
			return []string{msgRefinedConfirmed}, nil
		case feedbackNo:
			if err := fire(ctx, conv, eventReject); err != nil {
				return nil, err
			}
			return []string{msgAskRedescribe}, nil
		default:
			return []string{msgUnrecognized}, ErrValidation
		}

	default:
		return nil, fmt.Errorf("%w: %w %q", ErrUnexpected, ErrUnknownStage, conv.Stage)
	}
}

// diagnose generates a solution, stores it as LastSolution and returns the
// text to show, which may carry past solutions for the same equipment.
// Only the generated text is kept so stored records never nest history.
func (t *Tracker) diagnose(ctx context.Context, log *zap.Logger, conv *Conversation, refinement string) string {
	res := t.diagnoser.Diagnose(ctx, diagnosis.Request{
		Equipment:  conv.Equipment,
		Problem:    conv.Problem,
		Refinement: refinement,
	})
	if res.Failed() {
		log.Warn("using fallback answer",
			zap.String("kind", Kind(fmt.Errorf("%w: %w", ErrGeneration, res.Err))),
			zap.Stringer("outcome", res.Outcome),
			zap.Error(res.Err))
	}
	conv.LastSolution = res.Text

	if t.retriever == nil {
		return res.Text
	}
	scored, err := t.retriever.Relevant(ctx, conv.Equipment, conv.Problem)
	if err != nil {
		log.Error("history lookup failed", zap.String("kind", Kind(fmt.Errorf("%w: %w", ErrPersistence, err))), zap.Error(err))
		return res.Text
	}
	return retrieval.Enrich(res.Text, scored, t.opts.EnrichLimit)
}

func (t *Tracker) persist(ctx context.Context, log *zap.Logger, conv Conversation) {
	if t.records == nil {
		return
	}
	rec, err := t.records.Insert(ctx, records.Record{
		Equipment: conv.Equipment,
		Problem:   conv.Problem,
		Solution:  conv.LastSolution,
	})
	if err != nil {
		log.Error("failed to save maintenance record",
			zap.String("kind", Kind(fmt.Errorf("%w: %w", ErrPersistence, err))),
			zap.String("equipment", conv.Equipment),
			zap.Error(err))
		return
	}
	log.Info("maintenance record saved", zap.String("record_id", rec.ID), zap.String("equipment", rec.Equipment))
}

func (t *Tracker) save(ctx context.Context, log *zap.Logger, conv Conversation) {
	conv.UpdatedAt = t.opts.Now().UTC()
	if err := t.store.Put(ctx, conv); err != nil {
		log.Error("failed to save conversation",
			zap.String("kind", Kind(fmt.Errorf("%w: %w", ErrPersistence, err))),
			zap.Error(err))
	}
}

func (t *Tracker) greet(ctx context.Context, log *zap.Logger, conv Conversation) Reply {
	t.save(ctx, log, conv)
	return Reply{Messages: []string{msgIntro}, Stage: StageIntro}
}

// restart handles an unexpected error: the user starts over.
func (t *Tracker) restart(ctx context.Context, log *zap.Logger, userID int64, err error) Reply {
	log.Error("conversation reset after error", zap.String("kind", Kind(err)), zap.Error(err))
	t.save(ctx, log, New(userID))
	return Reply{Messages: []string{msgUnexpected, msgIntro}, Stage: StageIntro}
}

func clearFields(conv *Conversation) {
	conv.Equipment = ""
	conv.Problem = ""
	conv.LastSolution = ""
}

func isReset(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	cmd := fields[0]
	return cmd == ResetCommand || strings.HasPrefix(cmd, ResetCommand+"@")
}

type feedbackAnswer int

const (
	feedbackUnknown feedbackAnswer = iota
	feedbackYes
	feedbackNo
)

func feedback(text string) feedbackAnswer {
	word := strings.ToLower(strings.TrimSpace(text))
	switch {
	case affirmative[word]:
		return feedbackYes
	case negative[word]:
		return feedbackNo
	default:
		return feedbackUnknown
	}
}
