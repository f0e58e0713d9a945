// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preprocess

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Sentences splits text into sentences with prose's segmenter. If the
// segmenter fails the whole text is returned as one sentence.
func Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return []string{text}
	}
	var out []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ChunkSentences packs sentences into chunks of at most maxWords words,
// never splitting a sentence. When a chunk closes, its last overlap words
// seed the next one. A single sentence longer than maxWords becomes its
// own chunk.
func ChunkSentences(sentences []string, maxWords, overlap int) []string {
	var chunks []string
	var current []string
	for _, sent := range sentences {
		words := strings.Fields(sent)
		if len(words) == 0 {
			continue
		}
		if len(current)+len(words) > maxWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			if overlap < len(current) {
				current = append([]string(nil), current[len(current)-overlap:]...)
			}
		}
		current = append(current, words...)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
