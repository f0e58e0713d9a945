// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Domain is one label of the fixed research-domain taxonomy.
type Domain string

const (
	DomainCV  Domain = "CV"
	DomainDL  Domain = "DL"
	DomainMM  Domain = "MM"
	DomainNLP Domain = "NLP"
	DomainML  Domain = "ML"

	// DomainUnknown is stored when classification output is outside the taxonomy.
	DomainUnknown Domain = "unknown"
)

// Domains lists the taxonomy in a fixed order.
var Domains = []Domain{DomainCV, DomainDL, DomainMM, DomainNLP, DomainML}

// ParseDomain maps free text to a taxonomy label, case-insensitively.
func ParseDomain(s string) (Domain, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Domains {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentLatestPapers  Intent = "latest_papers"
	IntentTopicQA       Intent = "topic_qa"
	IntentSpecificPaper Intent = "specific_paper"
	IntentOutOfScope    Intent = "out_of_scope"
)

// ParseIntent maps classifier output to an Intent.
func ParseIntent(s string) (Intent, bool) {
	switch i := Intent(strings.ToLower(strings.TrimSpace(s))); i {
	case IntentLatestPapers, IntentTopicQA, IntentSpecificPaper, IntentOutOfScope:
		return i, true
	}
	return "", false
}

// IntentInfo is the structured classification of the latest user turn.
// Nil pointer fields mean absent.
type IntentInfo struct {
	Intent  Intent   `json:"intent"`
	Domains []Domain `json:"domains"`

	// Period is a look-back window in days.
	Period *int `json:"period,omitempty"`

	// SpecificPaper is a free-text description of a paper.
	SpecificPaper *string `json:"specific_paper,omitempty"`

	// SpecificPaperID is a resolved corpus source_id.
	SpecificPaperID *string `json:"specific_paper_id,omitempty"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RetrievedPaper is an abstract entry surfaced by trend retrieval.
type RetrievedPaper struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// ConversationState is the per-session value passed between turns.
type ConversationState struct {
	History         []Message        `json:"chat_history"`
	IntentInfo      *IntentInfo      `json:"intent_info,omitempty"`
	PapersRetrieved []RetrievedPaper `json:"papers_retrieved,omitempty"`
	LastBotResponse string           `json:"last_bot_response,omitempty"`

	// Error is set instead of an assistant turn when a turn cannot complete.
	Error string `json:"error,omitempty"`
}

// LastUserMessage returns the content of the newest user turn.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleUser {
			return s.History[i].Content
		}
	}
	return ""
}

// AppendAssistant records an assistant turn.
func (s *ConversationState) AppendAssistant(content string) {
	s.History = append(s.History, Message{Role: RoleAssistant, Content: content})
	s.LastBotResponse = content
}

// TruncateHistory keeps only the newest n entries.
func (s *ConversationState) TruncateHistory(n int) {
	if n >= 0 && len(s.History) > n {
		s.History = append([]Message(nil), s.History[len(s.History)-n:]...)
	}
}
