package types

import "fmt"

// PreconditionError reports a failure that prevents a batch from being
// attempted at all, such as a missing source directory. Callers should
// treat it as fatal to the operation that returned it.
type PreconditionError struct {
	Op   string
	Path string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// ItemError reports a failure that affects a single unit of work. The
// item is skipped and the batch continues.
type ItemError struct {
	Identity string
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.Identity, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// CacheIOError reports a failure reading or writing a cache backing
// store. Non-fatal: a failed load yields an empty cache, a failed flush
// leaves in-memory state intact for a later retry.
type CacheIOError struct {
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache store %s: %v", e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }
