// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/freshness"
	"github.com/pdiddy/paper-assistant/internal/store"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Fixed replies used when retrieval is empty or the model is unavailable.
const (
	NoRecentPapersReply  = "I couldn't find any recent papers matching that request."
	NoTopicInfoReply     = "I couldn't find relevant information on that topic."
	NoPaperTextReply     = "I couldn't find the text of that paper in the corpus."
	AnswerFailedReply    = "Sorry, I couldn't generate an answer."
	FallbackReply        = "I'm not sure about that, but I can help you with research topics or recent papers."
	PaperNotIdentified   = "Paper not identified yet."
	retrievalFailedError = "retrieval failed: %v"
)

const (
	defaultPeriodDays   = 7
	defaultTopicChunks  = 5
	defaultPaperChunks  = 4
	defaultSummaryLimit = 10
)

func (m *Machine) trendRetrieval(ctx context.Context, st *types.ConversationState) State {
	info := st.IntentInfo
	period := orDefault(m.Config.DefaultPeriodDays, defaultPeriodDays)
	if info.Period != nil && *info.Period > 0 {
		period = *info.Period
	}

	entries, err := m.Retriever.Get(ctx, store.Filter{
		IsAbstract:   []bool{true},
		PaperDomains: info.Domains,
		MinDateInt:   freshness.Cutoff(m.now(), period),
	})
	if err != nil {
		m.logger().Error("trend retrieval", zap.Error(err))
		st.PapersRetrieved = nil
		st.Error = fmt.Sprintf(retrievalFailedError, err)
		return StateDone
	}

	papers := make([]types.RetrievedPaper, 0, len(entries))
	for _, e := range entries {
		papers = append(papers, types.RetrievedPaper{ID: e.SourceID, Title: entryTitle(e), Abstract: e.Text})
	}
	st.PapersRetrieved = papers
	return StateTrendSummary
}

func (m *Machine) trendSummary(ctx context.Context, st *types.ConversationState) State {
	papers := st.PapersRetrieved
	if len(papers) == 0 {
		st.AppendAssistant(NoRecentPapersReply)
		return StateDone
	}
	if limit := orDefault(m.Config.MaxSummaryPapers, defaultSummaryLimit); len(papers) > limit {
		papers = papers[:limit]
	}

	m.reply(ctx, st, summaryPromptTmpl, map[string]any{
		"History": formatHistory(priorTurns(st.History, 2)),
		"Papers":  papers,
		"Query":   st.LastUserMessage(),
	}, titleList(papers))
	return StateDone
}

func (m *Machine) topicQA(ctx context.Context, st *types.ConversationState) State {
	query := st.LastUserMessage()
	hits, err := m.Retriever.Search(ctx, query, orDefault(m.Config.TopicChunks, defaultTopicChunks), store.Filter{})
	if err != nil {
		m.logger().Error("topic retrieval", zap.Error(err))
		st.Error = fmt.Sprintf(retrievalFailedError, err)
		return StateDone
	}
	if len(hits) == 0 {
		st.AppendAssistant(NoTopicInfoReply)
		return StateDone
	}

	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n(Title: %s, Domain: %s)", h.Text, entryTitle(h.CorpusEntry), h.PaperDomain)
	}

	m.reply(ctx, st, topicPromptTmpl, map[string]any{
		"History": formatHistory(priorTurns(st.History, 2)),
		"Query":   query,
		"Context": b.String(),
	}, AnswerFailedReply)
	return StateDone
}

func (m *Machine) paperResolving(ctx context.Context, st *types.ConversationState) State {
	info := st.IntentInfo
	if info.SpecificPaperID != nil || info.SpecificPaper == nil {
		return StatePaperQA
	}

	title, id := m.Disambiguator.Resolve(ctx, *info.SpecificPaper)
	info.SpecificPaper, info.SpecificPaperID = title, id
	return StatePaperQA
}

func (m *Machine) paperQA(ctx context.Context, st *types.ConversationState) State {
	info := st.IntentInfo
	if info.SpecificPaperID == nil {
		info.SpecificPaper = nil
		st.Error = PaperNotIdentified
		return StateDone
	}

	query := st.LastUserMessage()
	hits, err := m.Retriever.Search(ctx, query, orDefault(m.Config.PaperChunks, defaultPaperChunks),
		store.Filter{SourceID: *info.SpecificPaperID})
	if err != nil {
		m.logger().Error("paper retrieval", zap.String("source_id", *info.SpecificPaperID), zap.Error(err))
		st.Error = fmt.Sprintf(retrievalFailedError, err)
		return StateDone
	}
	if len(hits) == 0 {
		st.AppendAssistant(NoPaperTextReply)
		return StateDone
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	title := entryTitle(hits[0].CorpusEntry)
	if info.SpecificPaper != nil {
		title = *info.SpecificPaper
	}

	m.reply(ctx, st, paperPromptTmpl, map[string]any{
		"History": formatHistory(priorTurns(st.History, 2)),
		"Title":   title,
		"Query":   query,
		"Context": strings.Join(texts, "\n\n"),
	}, AnswerFailedReply)
	return StateDone
}

func (m *Machine) fallback(ctx context.Context, st *types.ConversationState) State {
	m.reply(ctx, st, fallbackPromptTmpl, map[string]any{"Query": st.LastUserMessage()}, FallbackReply)
	return StateDone
}

// reply renders tmpl, asks the model, and appends its answer. When the
// model fails or returns nothing, onFailure is appended instead.
func (m *Machine) reply(ctx context.Context, st *types.ConversationState, tmpl *template.Template, data map[string]any, onFailure string) {
	prompt, err := render(tmpl, data)
	if err == nil {
		var out string
		if out, err = m.Model.Complete(ctx, prompt); err == nil && out != "" {
			st.AppendAssistant(out)
			return
		}
	}
	m.logger().Warn("reply generation failed", zap.String("prompt", tmpl.Name()), zap.Error(err))
	st.AppendAssistant(onFailure)
}

func titleList(papers []types.RetrievedPaper) string {
	var b strings.Builder
	b.WriteString("Here are the recent papers I found:\n")
	for i, p := range papers {
		fmt.Fprintf(&b, "%d) %s\n", i+1, p.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
