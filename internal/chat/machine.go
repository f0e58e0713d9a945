// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat routes one user turn at a time through an intent-driven
// state machine over the indexed corpus.
package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// State names a node of the turn state machine.
type State string

const (
	StateClassifying    State = "classifying"
	StateTrendRetrieval State = "trend_retrieval"
	StateTrendSummary   State = "trend_summary"
	StateTopicQA        State = "topic_qa"
	StatePaperResolving State = "paper_resolving"
	StatePaperQA        State = "paper_qa"
	StateFallback       State = "fallback"
	StateDone           State = "done"
)

// Trace is the sequence of states visited by one run, ending in StateDone.
type Trace []State

// Contains reports whether the run visited st.
func (t Trace) Contains(st State) bool {
	for _, s := range t {
		if s == st {
			return true
		}
	}
	return false
}

// Retriever is the read side of the corpus index.
type Retriever interface {
	Search(ctx context.Context, text string, n int, f store.Filter) ([]types.ScoredEntry, error)
	Get(ctx context.Context, f store.Filter) ([]types.CorpusEntry, error)
}

// Machine runs the per-turn state machine.
type Machine struct {
	Model         llm.Model
	Retriever     Retriever
	Classifier    *IntentClassifier
	Disambiguator *Disambiguator
	Config        types.ChatConfig
	Now           func() time.Time
	Logger        *zap.Logger
}

// NewMachine wires a classifier and disambiguator that share m and r.
func NewMachine(m llm.Model, r Retriever, cfg types.ChatConfig, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		Model:         m,
		Retriever:     r,
		Classifier:    &IntentClassifier{Model: m, Logger: log},
		Disambiguator: &Disambiguator{Model: m, Retriever: r, Candidates: cfg.Candidates, Logger: log},
		Config:        cfg,
		Now:           time.Now,
		Logger:        log,
	}
}

// Run handles the newest user turn in st. It either appends one assistant
// turn or sets st.Error, and always ends in StateDone.
func (m *Machine) Run(ctx context.Context, st *types.ConversationState) Trace {
	st.Error = ""
	trace := Trace{}

	for state := StateClassifying; ; {
		trace = append(trace, state)
		if state == StateDone {
			break
		}
		state = m.step(ctx, state, st)
	}

	intent := types.IntentOutOfScope
	if st.IntentInfo != nil {
		intent = st.IntentInfo.Intent
	}
	metrics.ChatTurns.WithLabelValues(string(intent)).Inc()
	if st.Error != "" {
		metrics.ChatErrors.Inc()
	}
	m.logger().Debug("turn complete", zap.Any("trace", trace), zap.String("error", st.Error))
	return trace
}

func (m *Machine) step(ctx context.Context, state State, st *types.ConversationState) State {
	switch state {
	case StateClassifying:
		return m.classify(ctx, st)
	case StateTrendRetrieval:
		return m.trendRetrieval(ctx, st)
	case StateTrendSummary:
		return m.trendSummary(ctx, st)
	case StateTopicQA:
		return m.topicQA(ctx, st)
	case StatePaperResolving:
		return m.paperResolving(ctx, st)
	case StatePaperQA:
		return m.paperQA(ctx, st)
	case StateFallback:
		return m.fallback(ctx, st)
	}
	return StateDone
}

func (m *Machine) classify(ctx context.Context, st *types.ConversationState) State {
	info := m.Classifier.Classify(ctx, st)
	st.IntentInfo = &info

	switch info.Intent {
	case types.IntentLatestPapers:
		return StateTrendRetrieval
	case types.IntentTopicQA:
		return StateTopicQA
	case types.IntentSpecificPaper:
		return StatePaperResolving
	}
	return StateFallback
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Machine) logger() *zap.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return zap.NewNop()
}
