package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/anote/internal/storage"
	"github.com/dshills/anote/pkg/types"
)

const (
	// DefaultLimit is used when the caller passes no positive limit
	DefaultLimit = 80
	// MaxLimit caps every result set
	MaxLimit = 200

	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Second
)

// SearchMode records which path produced a response
type SearchMode string

const (
	SearchModeRecent    SearchMode = "recent"    // blank query, newest first
	SearchModeFullText  SearchMode = "fulltext"  // FTS5 MATCH by rank
	SearchModeSubstring SearchMode = "substring" // LIKE fallback, newest first
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Limit int
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results  []types.NoteSummary
	Mode     SearchMode
	Limit    int
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs note searches against a store. It never reports a
// malformed query as an error: the full-text path degrades to a literal
// substring match instead.
type Searcher struct {
	storage storage.Storage
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger that records degraded searches.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCacheTTL sets how long a cached response stays valid. Zero disables
// the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) {
		s.now = now
	}
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, opts ...Option) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](defaultCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	s := &Searcher{
		storage: store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:     defaultCacheTTL,
		now:     time.Now,
		cache:   cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampLimit applies the default and the [1, MaxLimit] bounds
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search returns notes matching req.Query. A blank query lists the most
// recently updated notes.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := s.now()
	req.Query = strings.TrimSpace(req.Query)
	req.Limit = ClampLimit(req.Limit)

	key, cacheable := s.cacheKey(ctx, req)
	if cacheable {
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = s.now().Sub(start)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error
	if req.Query == "" {
		response, err = s.recentSearch(ctx, req)
	} else {
		response, err = s.fullTextSearch(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	response.Limit = req.Limit
	response.Duration = s.now().Sub(start)
	if cacheable {
		s.storeInCache(key, response)
	}
	return response, nil
}

func (s *Searcher) recentSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := s.storage.RecentNotes(ctx, req.Limit)
	if err != nil {
		return nil, types.Internal(err)
	}
	return &SearchResponse{Results: results, Mode: SearchModeRecent}, nil
}

func (s *Searcher) fullTextSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	results, err := s.storage.MatchNotes(ctx, req.Query, req.Limit)
	if err == nil {
		return &SearchResponse{Results: results, Mode: SearchModeFullText}, nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, types.Internal(err)
	}

	s.logger.Debug("full-text query rejected, falling back to substring match",
		"query", req.Query, "error", err)

	results, err = s.storage.LikeNotes(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, types.Internal(err)
	}
	return &SearchResponse{Results: results, Mode: SearchModeSubstring}, nil
}

// cacheKey derives the cache key from the request and the store's change
// stamp, so a commit from this process or any other one retires every
// cached response.
func (s *Searcher) cacheKey(ctx context.Context, req SearchRequest) ([32]byte, bool) {
	if s.ttl <= 0 {
		return [32]byte{}, false
	}
	stamp, err := s.storage.ChangeStamp(ctx)
	if err != nil {
		s.logger.Debug("search cache bypassed", "error", err)
		return [32]byte{}, false
	}
	return computeQueryHash(req, stamp), true
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	now := s.now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of response under key
func (s *Searcher) storeInCache(key [32]byte, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: s.now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse. NoteSummary
// holds only values, so copying the slice is enough.
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.NoteSummary, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest, stamp storage.ChangeStamp) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d|%d|%d", req.Limit, stamp.Local, stamp.Data))
	return sha256.Sum256([]byte(data.String()))
}
