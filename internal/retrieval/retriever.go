// Package retrieval ranks previously solved maintenance cases against a new
// problem description.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"forklift-assistant/internal/records"
)

// Options holds the ranking parameters. All of them are tunable; the
// defaults are what the bot has shipped with.
type Options struct {
	Limit         int     // candidates fetched per query
	Threshold     float64 // minimum relevance kept
	TextWeight    float64
	KeywordWeight float64
}

func DefaultOptions() Options {
	return Options{Limit: 5, Threshold: 0.6, TextWeight: 0.6, KeywordWeight: 0.4}
}

// ScoredRecord is a stored case with its relevance to the current query.
type ScoredRecord struct {
	records.Record
	Relevance float64 `json:"relevance"`
}

// RecentFinder is the slice of records.Store the retriever needs.
type RecentFinder interface {
	FindRecent(ctx context.Context, equipment string, limit int) ([]records.Record, error)
}

type Retriever struct {
	store RecentFinder
	opts  Options
}

func New(store RecentFinder, opts Options) *Retriever {
	return &Retriever{store: store, opts: opts}
}

// Score combines text similarity and keyword overlap, clamped to [0,1].
func (r *Retriever) Score(problem, candidate string) float64 {
	s := r.opts.TextWeight*Similarity(problem, candidate) + r.opts.KeywordWeight*KeywordOverlap(problem, candidate)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Relevant returns the stored cases for equipment whose relevance to problem
// reaches the threshold, most relevant first. Ties keep store order.
func (r *Retriever) Relevant(ctx context.Context, equipment, problem string) ([]ScoredRecord, error) {
	if r.opts.Limit <= 0 {
		return nil, nil
	}
	recs, err := r.store.FindRecent(ctx, equipment, r.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %q: %w", equipment, err)
	}
	if len(recs) > r.opts.Limit {
		recs = recs[:r.opts.Limit]
	}

	var out []ScoredRecord
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := r.Score(problem, rec.Problem)
		if rel >= r.opts.Threshold {
			out = append(out, ScoredRecord{Record: rec, Relevance: rel})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out, nil
}
