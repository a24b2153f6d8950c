package core

import "errors"

var (
	// ErrStoreUnavailable reports a connection or pool failure in the conversation store.
	ErrStoreUnavailable = errors.New("conversation store unavailable")
	// ErrStoreQueryFailed reports a malformed query, a constraint violation or a bad row.
	ErrStoreQueryFailed = errors.New("conversation store query failed")
	// ErrEmbeddingUnavailable reports a failed embedding service call.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrNotInitialized reports a component used without its dependencies wired.
	ErrNotInitialized = errors.New("not initialized")
)
