package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// progressTracker periodically prints ingest progress to the terminal
// while workers run.
type progressTracker struct {
	mu         sync.Mutex
	processed  int
	duplicates int
	errors     int
	total      int
	ticker     *time.Ticker
	done       chan bool
}

func newProgressTracker(total int) *progressTracker {
	t := &progressTracker{
		total:  total,
		ticker: time.NewTicker(500 * time.Millisecond),
		done:   make(chan bool),
	}
	go t.display()
	return t
}

func (t *progressTracker) record(result ingestResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	if result.Duplicate {
		t.duplicates++
	}
	if result.Err != nil {
		t.errors++
	}
}

func (t *progressTracker) display() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.mu.Lock()
			if t.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (duplicates: %d, errors: %d)",
					t.processed, t.total, t.duplicates, t.errors)
			} else {
				fmt.Printf("\rProgress: %d/%d (duplicates: %d)",
					t.processed, t.total, t.duplicates)
			}
			t.mu.Unlock()
		}
	}
}

func (t *progressTracker) stop() {
	t.ticker.Stop()
	t.done <- true
	t.mu.Lock()
	if t.processed > 0 {
		fmt.Printf("\rProgress: %d/%d (duplicates: %d, errors: %d)\n",
			t.processed, t.total, t.duplicates, t.errors)
	}
	t.mu.Unlock()
}
