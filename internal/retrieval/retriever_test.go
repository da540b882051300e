package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forklift-assistant/internal/records"
)

type memFinder struct {
	recs  []records.Record
	err   error
	calls int
}

func (m *memFinder) FindRecent(_ context.Context, equipment string, limit int) ([]records.Record, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []records.Record
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.recs[i].Equipment == equipment {
			out = append(out, m.recs[i])
		}
	}
	return out, nil
}

func rec(equipment, problem, solution string, minute int) records.Record {
	return records.Record{
		ID:        problem,
		Equipment: equipment,
		Problem:   problem,
		Solution:  solution,
		Timestamp: time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC),
	}
}

func TestRelevant_RanksAndFilters(t *testing.T) {
	store := &memFinder{recs: []records.Record{
		rec("X", "motor não liga", "verificar relé de partida", 1),
		rec("X", "troca de pneu", "substituir pneu", 2),
	}}
	r := New(store, DefaultOptions())

	got, err := r.Relevant(context.Background(), "X", "o motor não está ligando")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "motor não liga", got[0].Problem)
	assert.GreaterOrEqual(t, got[0].Relevance, 0.6)

	assert.Less(t, r.Score("o motor não está ligando", "troca de pneu"), 0.3)
}

func TestRelevant_IdenticalProblemScoresOne(t *testing.T) {
	r := New(&memFinder{}, DefaultOptions())
	assert.InDelta(t, 1.0, r.Score("perde força e desliga", "perde força e desliga"), 1e-9)
}

func TestRelevant_NeverMoreThanLimitNorBelowThreshold(t *testing.T) {
	store := &memFinder{}
	for i := 0; i < 12; i++ {
		store.recs = append(store.recs, rec("Linde H25", "perde força e desliga", "bateria", i))
	}
	r := New(store, DefaultOptions())

	got, err := r.Relevant(context.Background(), "Linde H25", "perde força e desliga")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, s := range got {
		assert.GreaterOrEqual(t, s.Relevance, 0.6)
		assert.LessOrEqual(t, s.Relevance, 1.0)
	}
}

func TestRelevant_StableOnTies(t *testing.T) {
	store := &memFinder{recs: []records.Record{
		{ID: "old", Equipment: "X", Problem: "freio fraco", Solution: "a"},
		{ID: "new", Equipment: "X", Problem: "freio fraco", Solution: "b"},
	}}
	r := New(store, DefaultOptions())

	got, err := r.Relevant(context.Background(), "X", "freio fraco")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestRelevant_Idempotent(t *testing.T) {
	store := &memFinder{recs: []records.Record{
		rec("X", "motor não liga", "relé", 1),
		rec("X", "motor não liga de manhã", "bateria", 2),
		rec("X", "motor falha ao ligar", "combustível", 3),
	}}
	r := New(store, DefaultOptions())

	first, err := r.Relevant(context.Background(), "X", "motor não liga")
	require.NoError(t, err)
	second, err := r.Relevant(context.Background(), "X", "motor não liga")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Relevance, first[i].Relevance)
	}
}

func TestRelevant_EquipmentIsCaseSensitive(t *testing.T) {
	store := &memFinder{recs: []records.Record{rec("x", "motor não liga", "relé", 1)}}
	r := New(store, DefaultOptions())

	got, err := r.Relevant(context.Background(), "X", "motor não liga")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRelevant_StoreError(t *testing.T) {
	boom := errors.New("boom")
	r := New(&memFinder{err: boom}, DefaultOptions())

	_, err := r.Relevant(context.Background(), "X", "motor")
	assert.ErrorIs(t, err, boom)
}

func TestRelevant_ZeroLimitTurnsHistoryOff(t *testing.T) {
	store := &memFinder{recs: []records.Record{rec("X", "motor não liga", "relé", 1)}}
	opts := DefaultOptions()
	opts.Limit = 0

	got, err := New(store, opts).Relevant(context.Background(), "X", "motor não liga")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, store.calls)
}

func TestRelevant_StopsWhenContextDone(t *testing.T) {
	store := &memFinder{recs: []records.Record{rec("X", "motor não liga", "relé", 1)}}
	r := New(store, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := r.Relevant(ctx, "X", "motor não liga")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestRelevant_LongProblemText(t *testing.T) {
	long := strings.Repeat("empilhadeira elétrica perde força ao subir rampa carregada. ", 70)
	store := &memFinder{}
	for i := 0; i < 5; i++ {
		store.recs = append(store.recs, rec("X", long, "verificar contator", i))
	}
	r := New(store, DefaultOptions())

	start := time.Now()
	got, err := r.Relevant(context.Background(), "X", long+"?")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, got, 5)
}

func TestRelevant_CustomWeights(t *testing.T) {
	store := &memFinder{recs: []records.Record{rec("X", "motor não liga", "relé", 1)}}
	r := New(store, Options{Limit: 5, Threshold: 0.5, TextWeight: 0, KeywordWeight: 1})

	got, err := r.Relevant(context.Background(), "X", "o motor não está ligando")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].Relevance, 1e-9)
}

func TestEnrich(t *testing.T) {
	scored := []ScoredRecord{
		{Record: records.Record{Problem: "p1", Solution: "s1"}, Relevance: 0.934},
		{Record: records.Record{Problem: "p2", Solution: "s2"}, Relevance: 0.8},
		{Record: records.Record{Problem: "p3", Solution: "s3"}, Relevance: 0.7},
		{Record: records.Record{Problem: "p4", Solution: "s4"}, Relevance: 0.65},
	}

	out := Enrich("diagnóstico", scored, 3)
	assert.True(t, strings.HasPrefix(out, "diagnóstico\n\n"))
	assert.Contains(t, out, historyHeader)
	assert.Contains(t, out, "1. Relevância: 93%\nProblema: p1\nSolução: s1")
	assert.Contains(t, out, "3. Relevância: 70%")
	assert.NotContains(t, out, "p4")
	assert.Less(t, strings.Index(out, "p1"), strings.Index(out, "p2"))

	assert.Equal(t, "diagnóstico", Enrich("diagnóstico", nil, 3))
}
