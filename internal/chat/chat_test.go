// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-assistant/internal/freshness"
	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

var now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

// scriptedModel answers by prompt kind and records every prompt it sees.
type scriptedModel struct {
	classify    string
	classifyErr error
	pick        string
	answer      string
	answerErr   error

	prompts map[string][]string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	if m.prompts == nil {
		m.prompts = map[string][]string{}
	}
	switch {
	case strings.Contains(prompt, "Classify the user's query"):
		m.prompts["classify"] = append(m.prompts["classify"], prompt)
		return m.classify, m.classifyErr
	case strings.Contains(prompt, "Candidate papers:"):
		m.prompts["disambiguate"] = append(m.prompts["disambiguate"], prompt)
		return m.pick, nil
	default:
		m.prompts["answer"] = append(m.prompts["answer"], prompt)
		return m.answer, m.answerErr
	}
}

func (m *scriptedModel) calls(kind string) int { return len(m.prompts[kind]) }

type fakeRetriever struct {
	entries  []types.CorpusEntry
	err      error
	searches []store.Filter
	gets     []store.Filter
}

func (r *fakeRetriever) match(e types.CorpusEntry, f store.Filter) bool {
	if len(f.IsAbstract) > 0 && e.IsAbstract != f.IsAbstract[0] {
		return false
	}
	if len(f.PaperDomains) > 0 {
		found := false
		for _, d := range f.PaperDomains {
			found = found || d == e.PaperDomain
		}
		if !found {
			return false
		}
	}
	if f.MinDateInt > 0 && e.DatePublishedInt < f.MinDateInt {
		return false
	}
	return f.SourceID == "" || e.SourceID == f.SourceID
}

func (r *fakeRetriever) Search(_ context.Context, _ string, n int, f store.Filter) ([]types.ScoredEntry, error) {
	r.searches = append(r.searches, f)
	if r.err != nil {
		return nil, r.err
	}
	var out []types.ScoredEntry
	for _, e := range r.entries {
		if len(out) == n {
			break
		}
		if r.match(e, f) {
			out = append(out, types.ScoredEntry{CorpusEntry: e, Score: 1 - 0.1*float64(len(out))})
		}
	}
	return out, nil
}

func (r *fakeRetriever) Get(_ context.Context, f store.Filter) ([]types.CorpusEntry, error) {
	r.gets = append(r.gets, f)
	if r.err != nil {
		return nil, r.err
	}
	var out []types.CorpusEntry
	for _, e := range r.entries {
		if r.match(e, f) {
			out = append(out, e)
		}
	}
	return out, nil
}

func entry(sourceID string, idx int, domain types.Domain, published time.Time, title, text string) types.CorpusEntry {
	d := types.NewDate(published)
	return types.CorpusEntry{
		Chunk: types.Chunk{
			ID:            types.ChunkID(sourceID, idx),
			SourceID:      sourceID,
			Domain:        domain,
			DatePublished: d,
			ChunkIndex:    idx,
			Text:          text,
			Metadata:      types.ChunkMetadata{Title: title, Authors: []string{}},
			IsAbstract:    idx == 0,
		},
		PaperDomain:      domain,
		DatePublishedInt: d.Int(),
	}
}

func corpusEntries() []types.CorpusEntry {
	return []types.CorpusEntry{
		entry("W123", 0, types.DomainNLP, now.AddDate(-7, 0, 0), "Attention Is All You Need", "Attention Is All You Need. We propose the Transformer."),
		entry("W123", 1, types.DomainNLP, now.AddDate(-7, 0, 0), "Attention Is All You Need", "Multi-head attention runs several attention layers in parallel."),
		entry("W200", 0, types.DomainCV, now.AddDate(0, 0, -2), "Fast Segmentation", "Fast Segmentation. A real-time segmenter."),
		entry("W201", 0, types.DomainCV, now.AddDate(0, 0, -30), "Old Detector", "Old Detector. An older detector."),
	}
}

func newTestMachine(m *scriptedModel, r *fakeRetriever) *Machine {
	mc := NewMachine(m, r, types.ChatConfig{
		HistoryWindow:     3,
		DefaultPeriodDays: 7,
		TopicChunks:       5,
		PaperChunks:       4,
		Candidates:        4,
		MaxSummaryPapers:  10,
		ExitToken:         "exit",
	}, nil)
	mc.Now = func() time.Time { return now }
	return mc
}

func userState(text string) *types.ConversationState {
	return &types.ConversationState{History: []types.Message{{Role: types.RoleUser, Content: text}}}
}

func strptr(s string) *string { return &s }

func TestRunLatestPapersRoutesToTrendRetrieval(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "latest_papers", "domains": ["CV"], "period": 7, "specific_paper": null, "specific_paper_id": null}`,
		answer:   "1) Paper Title: Fast Segmentation\n   Summary: A real-time segmenter.",
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := userState("What's new in computer vision this week?")

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, Trace{StateClassifying, StateTrendRetrieval, StateTrendSummary, StateDone}, trace)
	assert.Equal(t, 0, m.calls("disambiguate"))
	require.Len(t, r.gets, 1)
	assert.Equal(t, store.Filter{
		IsAbstract:   []bool{true},
		PaperDomains: []types.Domain{types.DomainCV},
		MinDateInt:   freshness.Cutoff(now, 7),
	}, r.gets[0])

	require.Len(t, st.PapersRetrieved, 1)
	assert.Equal(t, "W200", st.PapersRetrieved[0].ID)
	assert.Equal(t, "Fast Segmentation", st.PapersRetrieved[0].Title)
	assert.Equal(t, m.answer, st.LastBotResponse)
	assert.Len(t, st.History, 2)
	assert.Empty(t, st.Error)
}

func TestRunTrendDefaultPeriodAndAllDomains(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "latest_papers", "domains": [], "period": null}`, answer: "summary"}
	r := &fakeRetriever{}
	st := userState("Anything new?")

	newTestMachine(m, r).Run(context.Background(), st)

	require.Len(t, r.gets, 1)
	assert.Empty(t, r.gets[0].PaperDomains)
	assert.Equal(t, freshness.Cutoff(now, 7), r.gets[0].MinDateInt)
	assert.Equal(t, NoRecentPapersReply, st.LastBotResponse)
	assert.Equal(t, 0, m.calls("answer"), "empty retrieval makes no model call")
}

func TestTrendSummaryCapsPapersAndFallsBackToTitles(t *testing.T) {
	var entries []types.CorpusEntry
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("W%d", 300+i)
		entries = append(entries, entry(id, 0, types.DomainML, now, "Paper "+id, "abstract "+id))
	}
	m := &scriptedModel{
		classify:  `{"intent": "latest_papers", "domains": ["ML"], "period": "3"}`,
		answerErr: errors.New("provider down"),
	}
	r := &fakeRetriever{entries: entries}
	st := userState("Latest ML papers from the last 3 days")

	newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, freshness.Cutoff(now, 3), r.gets[0].MinDateInt)
	require.Equal(t, 1, m.calls("answer"))
	assert.Contains(t, m.prompts["answer"][0], "10) Title: Paper W309")
	assert.NotContains(t, m.prompts["answer"][0], "11) Title:")

	assert.True(t, strings.HasPrefix(st.LastBotResponse, "Here are the recent papers I found:"))
	assert.Contains(t, st.LastBotResponse, "1) Paper W300")
	assert.NotContains(t, st.LastBotResponse, "Paper W310")
	assert.Empty(t, st.Error)
}

func TestRunCarriesOverPaperID(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "specific_paper", "domains": ["NLP"], "specific_paper": "attention is all you need ", "specific_paper_id": null}`,
		answer:   "It uses multi-head attention.",
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := &types.ConversationState{
		History: []types.Message{
			{Role: types.RoleUser, Content: "Tell me about Attention Is All You Need"},
			{Role: types.RoleAssistant, Content: "It introduced the Transformer."},
			{Role: types.RoleUser, Content: "What attention does it use?"},
		},
		IntentInfo: &types.IntentInfo{
			Intent:          types.IntentSpecificPaper,
			SpecificPaper:   strptr("Attention Is All You Need"),
			SpecificPaperID: strptr("W123"),
		},
	}

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, Trace{StateClassifying, StatePaperResolving, StatePaperQA, StateDone}, trace)
	assert.Equal(t, 0, m.calls("disambiguate"), "carried id skips disambiguation")
	require.Len(t, r.searches, 1)
	assert.Equal(t, store.Filter{SourceID: "W123"}, r.searches[0])
	require.NotNil(t, st.IntentInfo.SpecificPaperID)
	assert.Equal(t, "W123", *st.IntentInfo.SpecificPaperID)

	prompt := m.prompts["answer"][0]
	assert.Contains(t, prompt, "We propose the Transformer.\n\nMulti-head attention", "chunks joined in rank order")
	assert.Contains(t, m.prompts["classify"][0], "Previous paper ID: W123")
	assert.Equal(t, "It uses multi-head attention.", st.LastBotResponse)
}

func TestRunParaphrasedTitleDisambiguatesAgain(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "specific_paper", "specific_paper": "the transformer paper", "specific_paper_id": null}`,
		pick:     `Sure! {"paper_title": "Attention Is All You Need", "paper_id": "W123"}`,
		answer:   "It proposes the Transformer.",
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := userState("What does the transformer paper propose?")
	st.IntentInfo = &types.IntentInfo{
		Intent:          types.IntentSpecificPaper,
		SpecificPaper:   strptr("Fast Segmentation"),
		SpecificPaperID: strptr("W200"),
	}

	newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, 1, m.calls("disambiguate"))
	require.Len(t, r.searches, 2)
	assert.Equal(t, store.AbstractsOnly(), r.searches[0])
	assert.Equal(t, store.Filter{SourceID: "W123"}, r.searches[1])
	assert.Equal(t, "Attention Is All You Need", *st.IntentInfo.SpecificPaper)
	assert.Equal(t, "W123", *st.IntentInfo.SpecificPaperID)
	assert.Contains(t, m.prompts["disambiguate"][0], "Source ID: W200")
	assert.Equal(t, "It proposes the Transformer.", st.LastBotResponse)
}

func TestRunUnresolvedPaperSetsError(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "specific_paper", "specific_paper": "a paper about llamas", "specific_paper_id": null}`,
		pick:     `{"paper_title": "null", "paper_id": "null"}`,
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := userState("What does the llama paper say?")

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, StateDone, trace[len(trace)-1])
	assert.Equal(t, PaperNotIdentified, st.Error)
	assert.Equal(t, 0, m.calls("answer"))
	assert.Nil(t, st.IntentInfo.SpecificPaper)
	assert.Nil(t, st.IntentInfo.SpecificPaperID)
	assert.Len(t, st.History, 1, "no assistant turn on error")
}

func TestRunMalformedClassifierOutputFallsBack(t *testing.T) {
	m := &scriptedModel{classify: "I think this is about trends", answer: "Hello! I'm an AI research assistant."}
	r := &fakeRetriever{entries: corpusEntries()}
	st := userState("hi there")

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, Trace{StateClassifying, StateFallback, StateDone}, trace)
	assert.Equal(t, types.IntentOutOfScope, st.IntentInfo.Intent)
	assert.Empty(t, r.searches)
	assert.Equal(t, "Hello! I'm an AI research assistant.", st.LastBotResponse)
}

func TestRunFallbackModelFailureUsesCannedReply(t *testing.T) {
	m := &scriptedModel{
		classify:  `{"intent": "out_of_scope"}`,
		answerErr: errors.New("breaker open"),
	}
	st := userState("What's the weather?")

	newTestMachine(m, &fakeRetriever{}).Run(context.Background(), st)

	assert.Equal(t, FallbackReply, st.LastBotResponse)
	assert.Empty(t, st.Error)
}

func TestRunClassifierErrorFallsBack(t *testing.T) {
	m := &scriptedModel{classifyErr: errors.New("timeout"), answer: "I can help with research."}
	st := userState("What's new in NLP?")

	trace := newTestMachine(m, &fakeRetriever{}).Run(context.Background(), st)
	assert.True(t, trace.Contains(StateFallback))
}

func TestRunTopicQA(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "topic_qa", "domains": ["NLP"]}`, answer: "Attention weighs tokens."}
	r := &fakeRetriever{entries: corpusEntries()}
	st := userState("How does attention work?")

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, Trace{StateClassifying, StateTopicQA, StateDone}, trace)
	require.Len(t, r.searches, 1)
	assert.True(t, r.searches[0].IsEmpty(), "topic search has no domain restriction")
	assert.Contains(t, m.prompts["answer"][0], "(Title: Attention Is All You Need, Domain: NLP)")
	assert.Contains(t, m.prompts["answer"][0], "(Title: Fast Segmentation, Domain: CV)")
	assert.Equal(t, "Attention weighs tokens.", st.LastBotResponse)
}

func TestRunTopicQAWithNoChunks(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "topic_qa"}`, answer: "should not be used"}
	st := userState("How do diffusion models work?")

	newTestMachine(m, &fakeRetriever{}).Run(context.Background(), st)

	assert.Equal(t, NoTopicInfoReply, st.LastBotResponse)
	assert.Equal(t, 0, m.calls("answer"))
}

func TestRunStoreFailureSetsError(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "topic_qa"}`}
	r := &fakeRetriever{err: errors.New("database is locked")}
	st := userState("How do diffusion models work?")

	trace := newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, StateDone, trace[len(trace)-1])
	assert.Contains(t, st.Error, "database is locked")
	assert.Len(t, st.History, 1)
}

func TestRunClearsPreviousError(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "out_of_scope"}`, answer: "Hi!"}
	st := userState("hello")
	st.Error = PaperNotIdentified

	newTestMachine(m, &fakeRetriever{}).Run(context.Background(), st)
	assert.Empty(t, st.Error)
}

func TestParseIntentReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		ok    bool
		want  types.IntentInfo
	}{
		{
			name:  "full record with prose around it",
			reply: "Here you go:\n{\"intent\": \"latest_papers\", \"domains\": [\"cv\", \"Robotics\", \"NLP\"], \"period\": 14}\nThanks",
			ok:    true,
			want:  types.IntentInfo{Intent: types.IntentLatestPapers, Domains: []types.Domain{types.DomainCV, types.DomainNLP}, Period: intptr(14)},
		},
		{
			name:  "unknown intent",
			reply: `{"intent": "weather", "domains": ["CV"]}`,
			ok:    true,
			want:  types.IntentInfo{Intent: types.IntentOutOfScope, Domains: []types.Domain{}},
		},
		{
			name:  "null strings are absent",
			reply: `{"intent": "specific_paper", "domains": [], "period": "null", "specific_paper": "BERT", "specific_paper_id": "null"}`,
			ok:    true,
			want:  types.IntentInfo{Intent: types.IntentSpecificPaper, Domains: []types.Domain{}, SpecificPaper: strptr("BERT")},
		},
		{
			name:  "non-positive period dropped",
			reply: `{"intent": "latest_papers", "period": 0}`,
			ok:    true,
			want:  types.IntentInfo{Intent: types.IntentLatestPapers, Domains: []types.Domain{}},
		},
		{
			name:  "no json",
			reply: "latest_papers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseIntentReply(tt.reply)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func intptr(i int) *int { return &i }

func TestClassifyPromptUsesPriorTwoTurns(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "out_of_scope"}`}
	c := &IntentClassifier{Model: m}
	st := &types.ConversationState{History: []types.Message{
		{Role: types.RoleUser, Content: "first question"},
		{Role: types.RoleAssistant, Content: "first answer"},
		{Role: types.RoleUser, Content: "second question"},
	}}

	c.Classify(context.Background(), st)

	prompt := m.prompts["classify"][0]
	assert.Contains(t, prompt, "assistant: first answer")
	assert.Contains(t, prompt, "user: first question")
	assert.Contains(t, prompt, "Query:\nsecond question")
	assert.Contains(t, prompt, "Previous paper title: null")
}

func TestClassifyNewDescriptionClearsID(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "specific_paper", "specific_paper": "ResNet", "specific_paper_id": null}`}
	c := &IntentClassifier{Model: m}
	st := userState("And what about ResNet?")
	st.IntentInfo = &types.IntentInfo{SpecificPaper: strptr("BERT"), SpecificPaperID: strptr("W9")}

	info := c.Classify(context.Background(), st)
	assert.Equal(t, "ResNet", *info.SpecificPaper)
	assert.Nil(t, info.SpecificPaperID)
}

func attentionFollowUp(text string) *types.ConversationState {
	st := userState(text)
	st.IntentInfo = &types.IntentInfo{
		Intent:          types.IntentSpecificPaper,
		SpecificPaper:   strptr("Attention Is All You Need"),
		SpecificPaperID: strptr("W123"),
	}
	return st
}

func TestRunNewDescriptionIgnoresEchoedPriorID(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "specific_paper", "specific_paper": "the fast segmentation paper", "specific_paper_id": "W123"}`,
		pick:     `{"paper_title": "Fast Segmentation", "paper_id": "W200"}`,
		answer:   "It segments in real time.",
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := attentionFollowUp("How fast is the fast segmentation paper?")

	newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, 1, m.calls("disambiguate"))
	require.Len(t, r.searches, 2)
	assert.Equal(t, store.Filter{SourceID: "W200"}, r.searches[1])
	assert.Equal(t, "W200", *st.IntentInfo.SpecificPaperID)
	assert.Equal(t, "Fast Segmentation", *st.IntentInfo.SpecificPaper)
	assert.Equal(t, "It segments in real time.", st.LastBotResponse)
}

func TestRunUnchangedTitleKeepsPriorIDOverModelID(t *testing.T) {
	m := &scriptedModel{
		classify: `{"intent": "specific_paper", "specific_paper": "Attention Is All You Need", "specific_paper_id": "W999"}`,
		answer:   "Eight heads.",
	}
	r := &fakeRetriever{entries: corpusEntries()}
	st := attentionFollowUp("How many heads does it use?")

	newTestMachine(m, r).Run(context.Background(), st)

	assert.Equal(t, 0, m.calls("disambiguate"))
	require.Len(t, r.searches, 1)
	assert.Equal(t, store.Filter{SourceID: "W123"}, r.searches[0])
	assert.Equal(t, "W123", *st.IntentInfo.SpecificPaperID)
	assert.Equal(t, "Eight heads.", st.LastBotResponse)
}

func TestCarryOver(t *testing.T) {
	prevTitle, prevID := strptr("Attention Is All You Need"), strptr("W123")
	tests := []struct {
		name              string
		title, id         *string
		prevTitle, prevID *string
		wantTitle, wantID *string
	}{
		{"same title, no id", strptr(" attention is all you need"), nil, prevTitle, prevID, strptr(" attention is all you need"), prevID},
		{"same title, other id", strptr("Attention Is All You Need"), strptr("W999"), prevTitle, prevID, strptr("Attention Is All You Need"), prevID},
		{"new title, prior id echoed", strptr("BERT"), strptr("W123"), prevTitle, prevID, strptr("BERT"), nil},
		{"new title, model id", strptr("BERT"), strptr("W7"), prevTitle, prevID, strptr("BERT"), nil},
		{"no title, prior id echoed", nil, strptr("W123"), prevTitle, prevID, prevTitle, prevID},
		{"no title, other id", nil, strptr("W7"), prevTitle, prevID, nil, nil},
		{"no prior paper", strptr("BERT"), strptr("W7"), nil, nil, strptr("BERT"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, id := carryOver(tt.title, tt.id, tt.prevTitle, tt.prevID)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestDisambiguator(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantID  string
		wantNil bool
	}{
		{"picks candidate", `{"paper_title": "Fast Segmentation", "paper_id": "W200"}`, "W200", false},
		{"declines", `{"paper_title": "null", "paper_id": "null"}`, "", true},
		{"id not among candidates", `{"paper_title": "Other", "paper_id": "W999"}`, "", true},
		{"unparseable", "The second one.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &scriptedModel{pick: tt.reply}
			d := &Disambiguator{Model: m, Retriever: &fakeRetriever{entries: corpusEntries()}, Candidates: 4}
			title, id := d.Resolve(context.Background(), "real-time segmentation")
			if tt.wantNil {
				assert.Nil(t, title)
				assert.Nil(t, id)
				return
			}
			require.NotNil(t, id)
			assert.Equal(t, tt.wantID, *id)
			assert.Equal(t, "Fast Segmentation", *title, "title comes from the corpus")
		})
	}
}

func TestDisambiguatorNoCandidatesSkipsModel(t *testing.T) {
	m := &scriptedModel{pick: `{"paper_title": "X", "paper_id": "W1"}`}
	d := &Disambiguator{Model: m, Retriever: &fakeRetriever{}}

	title, id := d.Resolve(context.Background(), "anything")
	assert.Nil(t, title)
	assert.Nil(t, id)
	assert.Equal(t, 0, m.calls("disambiguate"))
}

func TestDisambiguatorSnippetIsTruncated(t *testing.T) {
	long := strings.Repeat("word ", 200)
	m := &scriptedModel{pick: "null"}
	d := &Disambiguator{Model: m, Retriever: &fakeRetriever{entries: []types.CorpusEntry{
		entry("W1", 0, types.DomainML, now, "Long Paper", long),
	}}}

	d.Resolve(context.Background(), "long paper")
	prompt := m.prompts["disambiguate"][0]
	assert.Contains(t, prompt, "Abstract snippet: "+strings.TrimSpace(strings.Repeat("word ", snippetWords))+"\n")
}

func TestSessionTurnTruncatesHistory(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "out_of_scope"}`, answer: "Hi!"}
	s := NewSession(newTestMachine(m, &fakeRetriever{}), 3)
	require.NotEmpty(t, s.ID)

	for i := 0; i < 3; i++ {
		reply, err := s.Turn(context.Background(), fmt.Sprintf("hello %d", i))
		require.NoError(t, err)
		assert.Equal(t, "Hi!", reply)
		assert.LessOrEqual(t, len(s.State.History), 3)
	}
	assert.Equal(t, []types.Message{
		{Role: types.RoleAssistant, Content: "Hi!"},
		{Role: types.RoleUser, Content: "hello 2"},
		{Role: types.RoleAssistant, Content: "Hi!"},
	}, s.State.History)
}

func TestSessionTurnReturnsError(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "specific_paper", "specific_paper": null, "specific_paper_id": null}`}
	s := NewSession(newTestMachine(m, &fakeRetriever{}), 3)

	reply, err := s.Turn(context.Background(), "what does it say?")
	require.Error(t, err)
	assert.Equal(t, PaperNotIdentified, err.Error())
	assert.Empty(t, reply)
}

func TestSessionLoop(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "out_of_scope"}`, answer: "Hi!"}
	s := NewSession(newTestMachine(m, &fakeRetriever{}), 3)

	in := strings.NewReader("hello\n\n  EXIT \nnever read\n")
	var out bytes.Buffer
	require.NoError(t, s.Loop(context.Background(), in, &out, "exit"))

	assert.Equal(t, 1, m.calls("classify"))
	assert.Contains(t, out.String(), "Assistant: Hi!")
}

func TestSessionLoopEndsOnEOF(t *testing.T) {
	m := &scriptedModel{classify: `{"intent": "specific_paper"}`}
	s := NewSession(newTestMachine(m, &fakeRetriever{}), 3)

	var out bytes.Buffer
	require.NoError(t, s.Loop(context.Background(), strings.NewReader("tell me about it"), &out, ""))
	assert.Contains(t, out.String(), "Error: "+PaperNotIdentified)
}
