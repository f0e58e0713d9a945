// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/llm"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// IntentClassifier turns the latest user turn into an IntentInfo.
type IntentClassifier struct {
	Model  llm.Model
	Logger *zap.Logger
}

// intentReply mirrors the JSON the model is asked for. Fields are raw so
// that numbers, strings and nulls are all tolerated.
type intentReply struct {
	Intent          string          `json:"intent"`
	Domains         json.RawMessage `json:"domains"`
	Period          json.RawMessage `json:"period"`
	SpecificPaper   json.RawMessage `json:"specific_paper"`
	SpecificPaperID json.RawMessage `json:"specific_paper_id"`
}

func outOfScope() types.IntentInfo {
	return types.IntentInfo{Intent: types.IntentOutOfScope, Domains: []types.Domain{}}
}

// Classify asks the model for the intent of st's latest user turn. A
// failed call, an unparseable reply, or an unknown intent yields
// out_of_scope. A paper id survives only when it is carried over from the
// previous turn.
func (c *IntentClassifier) Classify(ctx context.Context, st *types.ConversationState) types.IntentInfo {
	query := st.LastUserMessage()
	if strings.TrimSpace(query) == "" {
		return outOfScope()
	}

	var prevTitle, prevID *string
	if st.IntentInfo != nil {
		prevTitle, prevID = st.IntentInfo.SpecificPaper, st.IntentInfo.SpecificPaperID
	}

	prompt, err := render(classifyPromptTmpl, map[string]any{
		"PrevTitle": prevTitle,
		"PrevID":    prevID,
		"Intents":   intentNames(),
		"Domains":   domainNames(),
		"History":   formatHistory(priorTurns(st.History, 2)),
		"Query":     query,
	})
	if err != nil {
		c.logger().Error("classification prompt", zap.Error(err))
		return outOfScope()
	}

	reply, err := c.Model.Complete(ctx, prompt)
	if err != nil {
		c.logger().Warn("intent classification failed", zap.Error(err))
		return outOfScope()
	}

	info, ok := parseIntentReply(reply)
	if !ok {
		c.logger().Debug("unparseable classifier reply", zap.String("reply", reply))
		return outOfScope()
	}

	info.SpecificPaper, info.SpecificPaperID = carryOver(info.SpecificPaper, info.SpecificPaperID, prevTitle, prevID)
	return info
}

// carryOver decides which paper id survives classification. Only an id
// from the previous turn is trusted: it is kept when the description is
// unchanged, or when the model names no description but echoes that id.
// Any other id is dropped so the description goes through disambiguation.
func carryOver(title, id, prevTitle, prevID *string) (*string, *string) {
	if prevTitle == nil || prevID == nil {
		return title, nil
	}
	switch {
	case title != nil && sameTitle(*title, *prevTitle):
	case title == nil && id != nil && strings.TrimSpace(*id) == *prevID:
		t := *prevTitle
		title = &t
	default:
		return title, nil
	}
	i := *prevID
	return title, &i
}

func (c *IntentClassifier) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// parseIntentReply decodes the first JSON object in reply. Unknown domains
// are dropped; "null" and empty strings become absent.
func parseIntentReply(reply string) (types.IntentInfo, bool) {
	var r intentReply
	if err := llm.DecodeJSON(reply, &r); err != nil {
		return types.IntentInfo{}, false
	}

	intent, ok := types.ParseIntent(r.Intent)
	if !ok {
		return outOfScope(), true
	}

	info := types.IntentInfo{Intent: intent, Domains: []types.Domain{}}
	for _, d := range rawStrings(r.Domains) {
		if dom, ok := types.ParseDomain(d); ok {
			info.Domains = append(info.Domains, dom)
		}
	}
	if p, ok := rawInt(r.Period); ok && p > 0 {
		info.Period = &p
	}
	info.SpecificPaper = rawOptionalString(r.SpecificPaper)
	info.SpecificPaperID = rawOptionalString(r.SpecificPaperID)
	return info, true
}

// sameTitle compares paper descriptions ignoring case and surrounding space.
func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func rawStrings(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

func rawInt(raw json.RawMessage) (int, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v, true
		}
	}
	return 0, false
}

func rawOptionalString(raw json.RawMessage) *string {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	switch strings.ToLower(v) {
	case "", "null", "none":
		return nil
	}
	return &v
}

func intentNames() []string {
	return []string{
		string(types.IntentLatestPapers),
		string(types.IntentTopicQA),
		string(types.IntentSpecificPaper),
		string(types.IntentOutOfScope),
	}
}

func domainNames() []string {
	out := make([]string, len(types.Domains))
	for i, d := range types.Domains {
		out[i] = string(d)
	}
	return out
}

// priorTurns returns up to n history entries before the newest one.
func priorTurns(h []types.Message, n int) []types.Message {
	if len(h) <= 1 {
		return nil
	}
	prior := h[:len(h)-1]
	if len(prior) > n {
		prior = prior[len(prior)-n:]
	}
	return prior
}
