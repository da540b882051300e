package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forklift-assistant/internal/diagnosis"
	"forklift-assistant/internal/records"
	"forklift-assistant/internal/retrieval"
)

const userID = int64(42)

var generated = strings.Repeat("Verificar a tensão da bateria e o contator principal. ", 3)

type fakeDiagnoser struct {
	mu     sync.Mutex
	calls  []diagnosis.Request
	result func(diagnosis.Request) diagnosis.Result
}

func (f *fakeDiagnoser) Diagnose(_ context.Context, req diagnosis.Request) diagnosis.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(req)
	}
	return diagnosis.Result{Text: generated, Outcome: diagnosis.OutcomeOK}
}

type fakeRecords struct {
	mu    sync.Mutex
	saved []records.Record
	err   error
}

func (f *fakeRecords) Insert(_ context.Context, rec records.Record) (records.Record, error) {
	if f.err != nil {
		return records.Record{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = "rec-" + rec.Equipment
	f.saved = append(f.saved, rec)
	return rec, nil
}

type fakeRetriever struct {
	scored []retrieval.ScoredRecord
	err    error
}

func (f *fakeRetriever) Relevant(context.Context, string, string) ([]retrieval.ScoredRecord, error) {
	return f.scored, f.err
}

type harness struct {
	tracker *Tracker
	store   *MemoryStore
	diag    *fakeDiagnoser
	recs    *fakeRecords
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: NewMemoryStore(), diag: &fakeDiagnoser{}, recs: &fakeRecords{}}
	h.tracker = NewTracker(h.store, h.diag, &fakeRetriever{}, h.recs, Options{}, nil)
	return h
}

func (h *harness) send(t *testing.T, text string) Reply {
	t.Helper()
	return h.tracker.Advance(context.Background(), userID, text)
}

func (h *harness) conv(t *testing.T) Conversation {
	t.Helper()
	c, err := h.store.Get(context.Background(), userID)
	require.NoError(t, err)
	return c
}

// walk brings the user to AWAITING_FEEDBACK.
func (h *harness) walk(t *testing.T) {
	t.Helper()
	h.send(t, "/start")
	h.send(t, "Linde H25")
	r := h.send(t, "perde força e desliga")
	require.Equal(t, StageAwaitingFeedback, r.Stage)
}

func TestAdvance_ConfirmedDiagnosisIsPersisted(t *testing.T) {
	h := newHarness(t)

	r := h.send(t, "/start")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgIntro}, r.Messages)

	r = h.send(t, "Linde H25")
	assert.Equal(t, StageAwaitingProblem, r.Stage)
	assert.Equal(t, "Linde H25", h.conv(t).Equipment)
	assert.Contains(t, r.Messages[0], "Linde H25")

	r = h.send(t, "perde força e desliga")
	assert.Equal(t, StageAwaitingFeedback, r.Stage)
	require.Len(t, h.diag.calls, 1)
	assert.Equal(t, diagnosis.Request{Equipment: "Linde H25", Problem: "perde força e desliga"}, h.diag.calls[0])
	require.Len(t, r.Messages, 2)
	assert.Contains(t, r.Messages[0], generated)
	assert.Equal(t, msgFeedback, r.Messages[1])
	assert.Empty(t, h.recs.saved)

	r = h.send(t, "sim")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgConfirmed}, r.Messages)
	require.Len(t, h.recs.saved, 1)
	assert.Equal(t, "Linde H25", h.recs.saved[0].Equipment)
	assert.Equal(t, "perde força e desliga", h.recs.saved[0].Problem)
	assert.Equal(t, generated, h.recs.saved[0].Solution)

	c := h.conv(t)
	assert.Equal(t, StageIntro, c.Stage)
	assert.Empty(t, c.Equipment)
	assert.Empty(t, c.Problem)
	assert.Empty(t, c.LastSolution)
}

func TestAdvance_FirstContactOnlyRegisters(t *testing.T) {
	h := newHarness(t)

	r := h.send(t, "Linde H25")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgIntro}, r.Messages)
	assert.Empty(t, h.conv(t).Equipment)

	r = h.send(t, "Linde H25")
	assert.Equal(t, StageAwaitingProblem, r.Stage)
}

func TestForget_NextMessageIsFirstContact(t *testing.T) {
	h := newHarness(t)
	h.walk(t)

	require.NoError(t, h.tracker.Forget(context.Background(), userID))
	_, err := h.store.Get(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNotFound)

	r := h.send(t, "sim")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgIntro}, r.Messages)
	assert.Empty(t, h.recs.saved)
}

func TestAdvance_IntroNeverPersists(t *testing.T) {
	for _, equipment := range []string{"Linde H25", "Hyster H50FT", "Toyota 8FGU25", "empilhadeira elétrica 2t"} {
		h := newHarness(t)
		h.send(t, "/start")
		r := h.send(t, equipment)
		assert.Equal(t, StageAwaitingProblem, r.Stage)
		assert.Equal(t, equipment, h.conv(t).Equipment)
		assert.Empty(t, h.recs.saved)
		assert.Empty(t, h.diag.calls)
	}
}

func TestAdvance_GenerationTimeoutStillAdvances(t *testing.T) {
	h := newHarness(t)
	h.diag.result = func(diagnosis.Request) diagnosis.Result {
		return diagnosis.Result{Text: diagnosis.FallbackText, Outcome: diagnosis.OutcomeTimeout, Err: context.DeadlineExceeded}
	}
	h.send(t, "/start")
	h.send(t, "Linde H25")

	r := h.send(t, "perde força e desliga")
	assert.Equal(t, StageAwaitingFeedback, r.Stage)
	assert.Contains(t, r.Messages[0], diagnosis.FallbackText)
	assert.Equal(t, diagnosis.FallbackText, h.conv(t).LastSolution)
}

func TestAdvance_EmptyInputKeepsStage(t *testing.T) {
	h := newHarness(t)
	h.send(t, "/start")

	r := h.send(t, "   ")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgEmptyEquipment}, r.Messages)

	h.send(t, "Linde H25")
	r = h.send(t, "")
	assert.Equal(t, StageAwaitingProblem, r.Stage)
	assert.Equal(t, []string{msgEmptyProblem}, r.Messages)
	assert.Empty(t, h.diag.calls)
	assert.Equal(t, "Linde H25", h.conv(t).Equipment)

	h.send(t, "perde força")
	h.send(t, "não")
	r = h.send(t, "\n")
	assert.Equal(t, StageAwaitingRefinement, r.Stage)
	assert.Equal(t, []string{msgEmptyRefinement}, r.Messages)
}

func TestAdvance_FeedbackMatching(t *testing.T) {
	cases := []struct {
		text string
		want Stage
	}{
		{"sim", StageIntro},
		{"SIM", StageIntro},
		{"  Sim ", StageIntro},
		{"✅", StageIntro},
		{"não", StageAwaitingRefinement},
		{"NÃO", StageAwaitingRefinement},
		{"❌", StageAwaitingRefinement},
		{"talvez", StageAwaitingFeedback},
		{"sim, resolveu", StageAwaitingFeedback},
		{"nao", StageAwaitingFeedback},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			h := newHarness(t)
			h.walk(t)
			r := h.send(t, tc.text)
			assert.Equal(t, tc.want, r.Stage)
			if tc.want == StageAwaitingFeedback {
				assert.Equal(t, []string{msgUnrecognized}, r.Messages)
				assert.Empty(t, h.recs.saved)
			}
		})
	}
}

func TestAdvance_RefinementLoop(t *testing.T) {
	h := newHarness(t)
	h.walk(t)

	r := h.send(t, "não")
	assert.Equal(t, StageAwaitingRefinement, r.Stage)
	assert.Equal(t, []string{msgAskRefinement}, r.Messages)
	assert.Empty(t, h.recs.saved)

	r = h.send(t, "troquei o fusível e continua desligando")
	assert.Equal(t, StageAwaitingRefinedFeedback, r.Stage)
	require.Len(t, h.diag.calls, 2)
	assert.Equal(t, diagnosis.Request{
		Equipment:  "Linde H25",
		Problem:    "perde força e desliga",
		Refinement: "troquei o fusível e continua desligando",
	}, h.diag.calls[1])
	require.Len(t, h.recs.saved, 1, "refined diagnosis is saved right away")
	assert.Equal(t, "perde força e desliga", h.recs.saved[0].Problem)
	assert.Equal(t, msgFeedback, r.Messages[1])

	r = h.send(t, "hmm")
	assert.Equal(t, StageAwaitingRefinedFeedback, r.Stage)
	assert.Equal(t, []string{msgUnrecognized}, r.Messages)

	r = h.send(t, "❌")
	assert.Equal(t, StageAwaitingRefinement, r.Stage)
	assert.Equal(t, []string{msgAskRedescribe}, r.Messages)

	r = h.send(t, "desliga só com carga no garfo")
	assert.Equal(t, StageAwaitingRefinedFeedback, r.Stage)
	assert.Len(t, h.recs.saved, 2)

	r = h.send(t, "sim")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgRefinedConfirmed}, r.Messages)
	assert.Len(t, h.recs.saved, 2, "confirming a refined diagnosis saves nothing more")
	assert.Empty(t, h.conv(t).Equipment)
}

func TestAdvance_ResetFromEveryStage(t *testing.T) {
	reach := map[Stage][]string{
		StageIntro:                   {"/start"},
		StageAwaitingProblem:         {"/start", "Linde H25"},
		StageAwaitingFeedback:        {"/start", "Linde H25", "perde força"},
		StageAwaitingRefinement:      {"/start", "Linde H25", "perde força", "não"},
		StageAwaitingRefinedFeedback: {"/start", "Linde H25", "perde força", "não", "continua"},
	}
	for stage, msgs := range reach {
		for _, cmd := range []string{"/start", "/start@ForkliftHelpBot", "/start agora"} {
			t.Run(string(stage)+" "+cmd, func(t *testing.T) {
				h := newHarness(t)
				for _, m := range msgs {
					h.send(t, m)
				}
				require.Equal(t, stage, h.conv(t).Stage)

				r := h.send(t, cmd)
				assert.Equal(t, StageIntro, r.Stage)
				assert.Equal(t, []string{msgIntro}, r.Messages)
				c := h.conv(t)
				assert.Equal(t, StageIntro, c.Stage)
				assert.Empty(t, c.Equipment)
				assert.Empty(t, c.Problem)
				assert.Empty(t, c.LastSolution)
			})
		}
	}
}

func TestAdvance_StartLookalikesAreText(t *testing.T) {
	h := newHarness(t)
	h.send(t, "/start")
	r := h.send(t, "/starter")
	assert.Equal(t, StageAwaitingProblem, r.Stage)
	assert.Equal(t, "/starter", h.conv(t).Equipment)
}

func TestAdvance_PersistenceFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.recs.err = errors.New("mongo: no reachable servers")
	h.walk(t)

	r := h.send(t, "sim")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgConfirmed}, r.Messages)
}

func TestAdvance_EnrichmentShownButNotStored(t *testing.T) {
	h := newHarness(t)
	past := records.Record{Equipment: "Linde H25", Problem: "motor perde força", Solution: "Trocar o sensor do pedal."}
	h.tracker.retriever = &fakeRetriever{scored: []retrieval.ScoredRecord{{Record: past, Relevance: 0.8}}}
	h.walk(t)

	c := h.conv(t)
	assert.Equal(t, generated, c.LastSolution)

	h.send(t, "sim")
	require.Len(t, h.recs.saved, 1)
	assert.Equal(t, generated, h.recs.saved[0].Solution)
}

func TestAdvance_EnrichmentInReply(t *testing.T) {
	h := newHarness(t)
	past := records.Record{Equipment: "Linde H25", Problem: "motor perde força", Solution: "Trocar o sensor do pedal."}
	h.tracker.retriever = &fakeRetriever{scored: []retrieval.ScoredRecord{{Record: past, Relevance: 0.8}}}
	h.send(t, "/start")
	h.send(t, "Linde H25")

	r := h.send(t, "perde força e desliga")
	assert.Contains(t, r.Messages[0], "Relevância: 80%")
	assert.Contains(t, r.Messages[0], "Trocar o sensor do pedal.")
}

func TestAdvance_RetrieverFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.tracker.retriever = &fakeRetriever{err: errors.New("connection refused")}
	h.send(t, "/start")
	h.send(t, "Linde H25")

	r := h.send(t, "perde força e desliga")
	assert.Equal(t, StageAwaitingFeedback, r.Stage)
	assert.Equal(t, "🔧 Solução para Linde H25:\n\n"+generated, r.Messages[0])
}

func TestAdvance_PanicResetsConversation(t *testing.T) {
	h := newHarness(t)
	h.diag.result = func(diagnosis.Request) diagnosis.Result { panic("nil map") }
	h.send(t, "/start")
	h.send(t, "Linde H25")

	r := h.send(t, "perde força")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, []string{msgUnexpected, msgIntro}, r.Messages)
	c := h.conv(t)
	assert.Equal(t, StageIntro, c.Stage)
	assert.Empty(t, c.Equipment)
}

type brokenStore struct{ *MemoryStore }

func (brokenStore) Get(context.Context, int64) (Conversation, error) {
	return Conversation{}, errors.New("disk on fire")
}

func TestAdvance_StoreReadFailureResets(t *testing.T) {
	store := brokenStore{NewMemoryStore()}
	tr := NewTracker(store, &fakeDiagnoser{}, nil, &fakeRecords{}, Options{}, nil)

	r := tr.Advance(context.Background(), userID, "Linde H25")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, msgUnexpected, r.Messages[0])
}

func TestAdvance_CorruptStageResets(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Put(context.Background(), Conversation{UserID: userID, Stage: "DONE"}))

	r := h.send(t, "oi")
	assert.Equal(t, StageIntro, r.Stage)
	assert.Equal(t, msgUnexpected, r.Messages[0])
	assert.Equal(t, StageIntro, h.conv(t).Stage)
}

func TestAdvance_UpdatedAt(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	store := NewMemoryStore()
	tr := NewTracker(store, &fakeDiagnoser{}, nil, nil, Options{Now: func() time.Time { return now }}, nil)

	tr.Advance(context.Background(), userID, "/start")
	c, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, c.UpdatedAt.Equal(now))
	assert.Equal(t, time.UTC, c.UpdatedAt.Location())
}

// overlapStore fails the test when two Advance calls of one user interleave
// between loading and saving the conversation.
type overlapStore struct {
	*MemoryStore
	inflight atomic.Int32
	overlaps atomic.Int32
}

func (s *overlapStore) Get(ctx context.Context, id int64) (Conversation, error) {
	if s.inflight.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	time.Sleep(time.Millisecond)
	return s.MemoryStore.Get(ctx, id)
}

func (s *overlapStore) Put(ctx context.Context, c Conversation) error {
	defer s.inflight.Add(-1)
	return s.MemoryStore.Put(ctx, c)
}

func TestAdvance_SerializesPerUser(t *testing.T) {
	store := &overlapStore{MemoryStore: NewMemoryStore()}
	tr := NewTracker(store, &fakeDiagnoser{}, nil, &fakeRecords{}, Options{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Advance(context.Background(), userID, "/start")
		}()
	}
	wg.Wait()

	assert.Zero(t, store.overlaps.Load())
	assert.Zero(t, tr.locks.size())
}

func TestAdvance_UsersAreIndependent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.tracker.Advance(ctx, 1, "/start")
	h.tracker.Advance(ctx, 2, "/start")
	h.tracker.Advance(ctx, 1, "Linde H25")

	a, err := h.store.Get(ctx, 1)
	require.NoError(t, err)
	b, err := h.store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingProblem, a.Stage)
	assert.Equal(t, StageIntro, b.Stage)
}
