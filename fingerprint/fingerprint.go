package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"photoindex/types"
)

// Sum computes the content fingerprint of a byte stream: the hex MD5
// digest of the raw bytes. Identical bytes always produce identical
// fingerprints regardless of filename. Fingerprint collisions are
// treated as identical images; there is no collision fallback.
func Sum(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("cannot read byte source: %v", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes fingerprints an in-memory byte slice.
func SumBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SumFile fingerprints the contents of a file.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %v", path, err)
	}
	defer f.Close()
	return Sum(f)
}

// Ledger tracks which fingerprints have been accepted during a run and
// keeps a list of rejected (duplicate) identities for reporting. State
// is process-local and never persisted across runs.
type Ledger struct {
	mu         sync.Mutex
	accepted   map[string]struct{}
	duplicates []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accepted: make(map[string]struct{})}
}

// Accept records the fingerprint if it has not been seen and returns
// true. On a duplicate it appends the identity to the rejection list and
// returns false. The duplicates list itself is not deduplicated: every
// rejected submission accumulates an entry. Accept is the single atomic
// check-and-set point of the pipeline and is safe for concurrent use.
func (l *Ledger) Accept(fp string, identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.accepted[fp]; seen {
		l.duplicates = append(l.duplicates, identity)
		return false
	}
	l.accepted[fp] = struct{}{}
	return true
}

// Stats returns a read-only snapshot of the ledger counters.
func (l *Ledger) Stats() types.LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.LedgerStats{
		TotalAccepted:   len(l.accepted),
		TotalDuplicates: len(l.duplicates),
	}
}

// Duplicates returns a copy of the rejected identity list in rejection
// order.
func (l *Ledger) Duplicates() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.duplicates))
	copy(out, l.duplicates)
	return out
}

// Reset drops all accepted fingerprints and rejected identities.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepted = make(map[string]struct{})
	l.duplicates = nil
}
