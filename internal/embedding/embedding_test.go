// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

func TestOpenAIEmbedOrdersByIndex(t *testing.T) {
	var gotModel string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		assert.Equal(t, []string{"a", "b"}, body.Input)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"m","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		]}`))
	}))
	defer ts.Close()

	e := NewOpenAI(types.EmbeddingConfig{
		AIConfig:   types.AIConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "test-key", BaseURL: ts.URL + "/v1"},
		Dimensions: 2,
	})
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", gotModel)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedDimensionMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2,3]}]}`))
	}))
	defer ts.Close()

	e := NewOpenAI(types.EmbeddingConfig{
		AIConfig:   types.AIConfig{Model: "m", APIKey: "k", BaseURL: ts.URL + "/v1"},
		Dimensions: 2,
	})
	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestOpenAIEmbedEmptyInput(t *testing.T) {
	e := NewOpenAI(types.EmbeddingConfig{AIConfig: types.AIConfig{Model: "m", BaseURL: "http://127.0.0.1:0"}})
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOllamaEmbed(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, apiPathEmbeddings, r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		vec := []float32{float32(len(req.Prompt)), 0}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vec})
	}))
	defer ts.Close()

	p := NewOllamaProvider(WithBaseURL(ts.URL), WithModel("nomic-embed-text"), WithDimensions(2))
	vecs, err := p.Embed(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, [][]float32{{2, 0}, {4, 0}}, vecs)
}

func TestOllamaEmbedErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewOllamaProvider(WithBaseURL(ts.URL))
	_, err := p.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(types.EmbeddingConfig{AIConfig: types.AIConfig{Provider: "bogus"}}, types.CacheConfig{}, nil)
	require.Error(t, err)
}

func TestNewWithoutCacheReturnsProvider(t *testing.T) {
	e, err := New(types.EmbeddingConfig{AIConfig: types.AIConfig{Provider: "ollama", Model: "m"}}, types.CacheConfig{}, nil)
	require.NoError(t, err)
	_, ok := e.(*OllamaProvider)
	assert.True(t, ok)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
	fail bool
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]float32{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = vec
	return nil
}

type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newMapCache()
	c := NewCached(inner, cache, "m", nil)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)

	second, err := c.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"ccc"}, inner.batches[1])
}

func TestCachedKeysByModel(t *testing.T) {
	cache := newMapCache()
	a := NewCached(&countingEmbedder{}, cache, "model-a", nil)
	b := NewCached(&countingEmbedder{}, cache, "model-b", nil)
	assert.NotEqual(t, a.key("text"), b.key("text"))
}

func TestCachedSurvivesCacheErrors(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newMapCache()
	cache.fail = true
	c := NewCached(inner, cache, "m", nil)

	vecs, err := c.Embed(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}}, vecs)
}

type closingCache struct {
	*mapCache
	closed int
}

func (c *closingCache) Close() error {
	c.closed++
	return nil
}

func TestCloseReleasesCache(t *testing.T) {
	cache := &closingCache{mapCache: newMapCache()}
	var e Embedder = NewCached(&countingEmbedder{}, cache, "m", nil)

	require.NoError(t, Close(e))
	assert.Equal(t, 1, cache.closed)
}

func TestCloseWithoutResources(t *testing.T) {
	assert.NoError(t, Close(&countingEmbedder{}))
	assert.NoError(t, Close(NewCached(&countingEmbedder{}, newMapCache(), "m", nil)))
}

func TestEmbedOne(t *testing.T) {
	v, err := EmbedOne(context.Background(), &countingEmbedder{}, "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, v)
}
