// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

// pdfMagic is the signature every PDF file starts with.
var pdfMagic = []byte("%PDF")

// Prober checks whether a URL serves a PDF without downloading it.
type Prober struct {
	Client    *http.Client
	UserAgent string
}

// IsPDF issues a HEAD request and accepts a 200 with a pdf content type.
// Otherwise it requests the first 101 bytes and accepts a 200 or 206 whose
// body starts with the PDF signature. Any transport error means no.
func (p *Prober) IsPDF(ctx context.Context, u string) bool {
	if u == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false
	}
	p.setHeaders(req)
	if resp, err := p.Client.Do(req); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK &&
			strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "pdf") {
			return true
		}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	p.setHeaders(req)
	req.Header.Set("Range", "bytes=0-100")
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return false
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, 101))
	return bytes.HasPrefix(head, pdfMagic)
}

func (p *Prober) setHeaders(req *http.Request) {
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
}
