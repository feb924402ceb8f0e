package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks how far a batch run has got. It is safe for concurrent use.
type Progress struct {
	// TotalItems is the total number of items to process.
	TotalItems int

	// ProcessedItems is the number of items that completed successfully.
	ProcessedItems int

	// CurrentIndex is the index of the item most recently started.
	CurrentIndex int

	// CurrentLabel identifies the item most recently started.
	CurrentLabel string

	// StartTime is when processing started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	mu sync.Mutex
}

// NewProgress creates a new progress tracker.
func NewProgress(totalItems int) *Progress {
	now := time.Now()
	return &Progress{
		TotalItems:     totalItems,
		CurrentIndex:   -1,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Start records that the item at index is about to run and returns a snapshot.
func (p *Progress) Start(index int, label string) ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CurrentIndex = index
	p.CurrentLabel = label
	p.LastUpdateTime = time.Now()
	return p.snapshotLocked()
}

// AddProcessed increments the processed items count.
func (p *Progress) AddProcessed(itemsProcessed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems += itemsProcessed
	p.LastUpdateTime = time.Now()
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	CurrentIndex    int
	CurrentLabel    string
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
	ItemsPerSecond  float64
}

func (p *Progress) snapshotLocked() ProgressSnapshot {
	return ProgressSnapshot{
		TotalItems:      p.TotalItems,
		ProcessedItems:  p.ProcessedItems,
		CurrentIndex:    p.CurrentIndex,
		CurrentLabel:    p.CurrentLabel,
		StartTime:       p.StartTime,
		LastUpdateTime:  p.LastUpdateTime,
		PercentComplete: p.percentCompleteLocked(),
		ElapsedTime:     time.Since(p.StartTime),
		ItemsPerSecond:  p.itemsPerSecondLocked(),
	}
}

func (p *Progress) percentCompleteLocked() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return (float64(p.ProcessedItems) / float64(p.TotalItems)) * percentMultiplier
}

func (p *Progress) itemsPerSecondLocked() float64 {
	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}
