// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultCacheTTL     = time.Hour
	defaultCacheCleanup = 10 * time.Minute
)

// CachingEmbedder memoizes single-text embeddings. Repeated questions
// against the same index skip the embedding round trip. Batch calls embed
// documents and are passed through without touching the cache, so a query
// never receives a vector computed for a document.
type CachingEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

// NewCachingEmbedder wraps next with an expiring in-memory cache.
// A non-positive ttl selects the default of one hour.
func NewCachingEmbedder(next Embedder, ttl time.Duration) *CachingEmbedder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachingEmbedder{
		next:  next,
		cache: cache.New(ttl, defaultCacheCleanup),
	}
}

// EmbedText returns the cached vector for text or computes and stores it.
func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return slices.Clone(v.([]float32)), nil
	}
	vec, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, slices.Clone(vec), cache.DefaultExpiration)
	return vec, nil
}

// EmbedTexts delegates to the wrapped embedder without caching.
func (c *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedTexts(ctx, texts)
}

// Len reports the number of cached vectors.
func (c *CachingEmbedder) Len() int {
	return c.cache.ItemCount()
}
