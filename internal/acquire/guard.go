// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads resolved PDFs under a size ceiling and a
// wall-time bound. Exceeding either bound is an outcome, not an error.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/internal/metrics"
	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Outcome is the result of one guarded download.
type Outcome string

const (
	Saved    Outcome = "saved"
	TooLarge Outcome = "too_large"
	Timeout  Outcome = "timeout"
	Failed   Outcome = "failed"
)

const copyBufferSize = 32 * 1024

// errTooLarge aborts the copy loop once the ceiling is crossed.
var errTooLarge = errors.New("download exceeds size ceiling")

// Guard performs bounded downloads.
type Guard struct {
	Client      *http.Client
	MaxBytes    int64
	MaxDuration time.Duration

	// HeadTimeout bounds the HEAD size check that precedes the transfer.
	HeadTimeout time.Duration

	UserAgent string
	Logger    *zap.Logger
}

// NewGuard builds a Guard from cfg. cfg.Timeout bounds dialing, the TLS
// handshake, response headers and the HEAD request; cfg.MaxDuration bounds
// the whole transfer.
func NewGuard(cfg types.DownloadConfig, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		Client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
			ResponseHeaderTimeout: cfg.Timeout,
			TLSHandshakeTimeout:   cfg.Timeout,
		}},
		MaxBytes:    cfg.MaxBytes,
		MaxDuration: cfg.MaxDuration,
		HeadTimeout: cfg.Timeout,
		UserAgent:   cfg.UserAgent,
		Logger:      log,
	}
}

// Download fetches url into dest. Only Saved leaves a file at dest; every
// other outcome removes partial output.
func (g *Guard) Download(ctx context.Context, url, dest string) Outcome {
	log := g.Logger.With(zap.String("url", url))

	if size := g.remoteSize(ctx, url); g.MaxBytes > 0 && size > g.MaxBytes {
		log.Debug("declared size over ceiling", zap.Int64("bytes", size))
		metrics.DownloadTotal.WithLabelValues(string(TooLarge)).Inc()
		return TooLarge
	}

	dlCtx := ctx
	if g.MaxDuration > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, g.MaxDuration)
		defer cancel()
	}

	outcome, err := g.fetch(dlCtx, url, dest)
	if outcome == Failed && dlCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		outcome = Timeout
	}
	if err != nil {
		log.Debug("download not saved", zap.String("outcome", string(outcome)), zap.Error(err))
	}
	metrics.DownloadTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

// remoteSize returns the Content-Length a HEAD request declares, or -1
// when the request fails or runs past HeadTimeout.
func (g *Guard) remoteSize(ctx context.Context, url string) int64 {
	if g.HeadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.HeadTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return -1
	}
	g.setHeaders(req)
	resp, err := g.Client.Do(req)
	if err != nil {
		return -1
	}
	resp.Body.Close()
	return resp.ContentLength
}

func (g *Guard) fetch(ctx context.Context, url, dest string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed, fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Accept", "application/pdf")

	resp, err := g.Client.Do(req)
	if err != nil {
		return Failed, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failed, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	if g.MaxBytes > 0 && resp.ContentLength > g.MaxBytes {
		return TooLarge, errTooLarge
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Failed, fmt.Errorf("creating directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".acquire-*.tmp")
	if err != nil {
		return Failed, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	copyErr := g.copyBounded(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		if errors.Is(copyErr, errTooLarge) {
			return TooLarge, copyErr
		}
		return Failed, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return Failed, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return Failed, fmt.Errorf("renaming temp file: %w", err)
	}
	return Saved, nil
}

// copyBounded streams src to dst and fails once more than MaxBytes arrive.
func (g *Guard) copyBounded(dst io.Writer, src io.Reader) error {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if g.MaxBytes > 0 && written > g.MaxBytes {
				return errTooLarge
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (g *Guard) setHeaders(req *http.Request) {
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
}
