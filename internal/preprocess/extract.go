// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor turns a PDF into raw text and a best-effort abstract. Both are
// empty when the file cannot be read.
type Extractor interface {
	Extract(path string) (text, abstract string)
}

// maxAbstractFallback caps the abstract when no following heading is found.
const maxAbstractFallback = 2000

// abstractPattern captures the text after "Abstract" up to the next line
// that starts with a common section heading.
var abstractPattern = regexp.MustCompile(`(?is)abstract[:\s]*(.*?)\n\s*(?:introduction|background|related work|preliminaries|methods|materials|approach|problem formulation|experimental|experiments|evaluation|results|discussion|1 |I\. |I |1\.|II |II\.)`)

var abstractFallback = regexp.MustCompile(`(?is)abstract[:\s]*(.*)`)

var whitespace = regexp.MustCompile(`\s+`)

// PDFExtractor reads PDFs with the pure-Go ledongthuc/pdf reader.
type PDFExtractor struct{}

// Extract returns the plain text of every page and the abstract found in it.
func (PDFExtractor) Extract(path string) (string, string) {
	text, err := readPDF(path)
	if err != nil {
		return "", ""
	}
	return text, ExtractAbstract(text)
}

// readPDF concatenates the plain text of all pages. The reader panics on
// some malformed files, so panics are turned into errors.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ExtractAbstract finds the abstract section in raw paper text. When no
// heading follows it, up to 2000 characters after "Abstract" are used.
// Whitespace is collapsed.
func ExtractAbstract(text string) string {
	var abstract string
	if m := abstractPattern.FindStringSubmatch(text); m != nil {
		abstract = m[1]
	} else if m := abstractFallback.FindStringSubmatch(text); m != nil {
		abstract = strings.TrimSpace(m[1])
		if r := []rune(abstract); len(r) > maxAbstractFallback {
			abstract = string(r[:maxAbstractFallback])
		}
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(abstract, " "))
}

// Clean collapses whitespace and drops invalid UTF-8.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
