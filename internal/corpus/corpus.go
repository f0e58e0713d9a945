// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus owns the on-disk artifacts of each corpus partition: the
// JSON manifest of accepted papers, the JSONL chunk file, and the raw PDF
// directory.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// MaxJSONLLineCapacity is the maximum buffer size for one chunk line (1MB).
const MaxJSONLLineCapacity = 1024 * 1024

// Kind names a partition.
type Kind string

const (
	Baseline Kind = "baseline"
	Recent   Kind = "recent"
)

// Partition is one partition's configuration resolved against the
// processed directory.
type Partition struct {
	Kind Kind
	types.PartitionConfig
	ProcessedDir string
}

// Partitions returns the baseline and recent partitions, in that order.
func Partitions(cfg types.IngestConfig) []Partition {
	return []Partition{
		{Kind: Baseline, PartitionConfig: cfg.Baseline, ProcessedDir: cfg.ProcessedDir},
		{Kind: Recent, PartitionConfig: cfg.Recent, ProcessedDir: cfg.ProcessedDir},
	}
}

// ManifestPath is the partition's metadata file.
func (p Partition) ManifestPath() string {
	return filepath.Join(p.ProcessedDir, p.Manifest)
}

// ChunksPath is the partition's chunk file.
func (p Partition) ChunksPath() string {
	return filepath.Join(p.ProcessedDir, p.Chunks)
}

// PDFPath is where a paper's PDF is stored.
func (p Partition) PDFPath(sourceID string) string {
	return filepath.Join(p.RawDir, sourceID+".pdf")
}

// Exists reports whether both the manifest and the chunk file are present.
func (p Partition) Exists() bool {
	return fileExists(p.ManifestPath()) && fileExists(p.ChunksPath())
}

// Remove deletes the manifest, the chunk file and the raw PDF directory.
// Missing artifacts are ignored.
func (p Partition) Remove() error {
	for _, path := range []string{p.ManifestPath(), p.ChunksPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	if err := os.RemoveAll(p.RawDir); err != nil {
		return fmt.Errorf("removing %s: %w", p.RawDir, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) ([]types.PaperRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var recs []types.PaperRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return recs, nil
}

// WriteManifest writes recs as an indented JSON array, replacing path
// atomically.
func WriteManifest(path string, recs []types.PaperRecord) error {
	if recs == nil {
		recs = []types.PaperRecord{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// NewestPublished returns the latest publication date among recs, or false
// when no record has a date.
func NewestPublished(recs []types.PaperRecord) (types.Date, bool) {
	var newest types.Date
	for _, r := range recs {
		if r.DatePublished.IsZero() {
			continue
		}
		if newest.IsZero() || r.DatePublished.After(newest.Time) {
			newest = r.DatePublished
		}
	}
	return newest, !newest.IsZero()
}

// ReadChunks loads every chunk from a JSONL file.
func ReadChunks(path string) ([]types.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunks file: %w", err)
	}
	defer f.Close()

	var chunks []types.Chunk
	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c types.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks file: %w", err)
	}
	return chunks, nil
}

// WriteChunks writes one JSON object per line, replacing path atomically.
func WriteChunks(path string, chunks []types.Chunk) error {
	var data []byte
	for i, c := range chunks {
		line, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding chunk %d: %w", i, err)
		}
		data = append(data, line...)
		data = append(data, '\n')
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".corpus-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
