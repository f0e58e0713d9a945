// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"orNull": func(s *string) string {
		if s == nil {
			return "null"
		}
		return *s
	},
}

var classifyPromptTmpl = template.Must(template.New("classify").Funcs(funcs).Parse(`You are an expert research assistant.
Classify the user's query into an intent and domain(s) using only the allowed values.

Previous paper info (may be null):
- Previous paper title: {{orNull .PrevTitle}}
- Previous paper ID: {{orNull .PrevID}}

Instructions:
1. If the user is still asking about the same paper, repeat the previous paper title and ID exactly.
2. If the user asks about a different paper, set specific_paper to its title or description and specific_paper_id to null.
3. If the query is not about a specific paper, set specific_paper and specific_paper_id to null.

Respond with a single JSON object with these fields:
- intent: one of {{.Intents}}
- domains: a list drawn from {{.Domains}}
- period: the number of days mentioned, or null
- specific_paper: the paper title or description, or null
- specific_paper_id: the paper id if known, or null

Chat history:
{{.History}}

Query:
{{.Query}}
`))

var summaryPromptTmpl = template.Must(template.New("summary").Funcs(funcs).Parse(`You are an expert research assistant.

Chat history:
{{.History}}

You retrieved the following papers with abstracts:
{{range $i, $p := .Papers}}
{{inc $i}}) Title: {{$p.Title}}
Abstract: {{$p.Abstract}}
{{end}}
For each paper, summarize the abstract in one or two concise sentences using only the abstract given.
Output a numbered list like this:

1) Paper Title: <title>
   Summary: <summary>

User query: {{.Query}}
Respond in a friendly, professional way.
`))

var topicPromptTmpl = template.Must(template.New("topic").Parse(`You are an expert research assistant.

Chat history:
{{.History}}

The user asked:
"{{.Query}}"

You have access to the following relevant excerpts:

{{.Context}}

Answer concisely and coherently using only the information above.
If the information is not sufficient, say that you don't know.
`))

var paperPromptTmpl = template.Must(template.New("paper").Parse(`You are a helpful research assistant.
Answer the question using only the paper text below.
If the answer is not in the text, say that you don't know.

Chat history:
{{.History}}

Paper: {{.Title}}
{{.Context}}

Question: {{.Query}}
`))

var fallbackPromptTmpl = template.Must(template.New("fallback").Parse(`You are a helpful AI research assistant.
The user's message is outside your research scope.
Reply naturally, politely and briefly. Mention that you are an AI research assistant if it helps.
If you don't know the answer, say so.

User message: {{.Query}}
`))

var disambiguatePromptTmpl = template.Must(template.New("disambiguate").Funcs(funcs).Parse(`You are an expert research assistant.

The user is asking about a paper described as:
"{{.Description}}"

Candidate papers:
{{range $i, $c := .Candidates}}
{{inc $i}}) Title: {{$c.Title}}
   Abstract snippet: {{$c.Snippet}}
   Source ID: {{$c.ID}}
{{end}}
Choose the single paper that best matches the description.
Return only valid JSON in this format:
{"paper_title": "<exact candidate title>", "paper_id": "<candidate source id>"}

If no candidate matches, return:
{"paper_title": "null", "paper_id": "null"}
`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// formatHistory renders messages one per line as "role: content".
func formatHistory(msgs []types.Message) string {
	if len(msgs) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
