// Package searcher implements note search over the store's full-text index.
//
// A request takes one of three paths:
//   - Recent: a blank query lists the most recently updated notes
//   - FullText: the query runs as an FTS5 MATCH expression, best rank first
//   - Substring: when the engine rejects the expression (unbalanced quotes,
//     reserved operators in ordinary text), the query is matched literally
//     against title and body with LIKE, newest first
//
// The fallback is silent: a malformed query is a lower quality result, not
// an error. Only storage failures and cancellation are returned.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, searcher.WithLogger(log))
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "budget review",
//	    Limit: 20,
//	})
//
//	for _, n := range resp.Results {
//	    fmt.Printf("%s  %s (%s)\n", n.ID, n.Title, n.FolderName)
//	}
//
// # Limits
//
// A limit of zero or less becomes DefaultLimit (80); anything above
// MaxLimit (200) is capped.
//
// # Caching
//
// Responses are kept in an LRU cache for a few seconds. The cache key
// includes the store's ChangeStamp, which moves on every local commit and
// on every commit by another connection to the same file, so a cached
// response is never served after the data it was built from changed.
package searcher
