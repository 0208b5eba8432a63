package inventory

import (
	"sort"
	"strings"
)

// AllocationStrategy defines the order in which batches are drawn
type AllocationStrategy string

const (
	// AllocationStrategyFIFO draws the oldest received batches first
	AllocationStrategyFIFO AllocationStrategy = "FIFO"
	// AllocationStrategyLIFO draws the newest received batches first
	AllocationStrategyLIFO AllocationStrategy = "LIFO"
	// AllocationStrategyFEFO draws the batches closest to expiry first
	AllocationStrategyFEFO AllocationStrategy = "FEFO"
)

// IsValid checks if the strategy is valid
func (s AllocationStrategy) IsValid() bool {
	switch s {
	case AllocationStrategyFIFO, AllocationStrategyLIFO, AllocationStrategyFEFO:
		return true
	}
	return false
}

// String returns the string representation
func (s AllocationStrategy) String() string {
	return string(s)
}

// AllAllocationStrategies returns all valid allocation strategies
func AllAllocationStrategies() []AllocationStrategy {
	return []AllocationStrategy{
		AllocationStrategyFIFO,
		AllocationStrategyLIFO,
		AllocationStrategyFEFO,
	}
}

// ParseAllocationStrategy parses a strategy tag case-insensitively
func ParseAllocationStrategy(s string) (AllocationStrategy, error) {
	strategy := AllocationStrategy(strings.ToUpper(strings.TrimSpace(s)))
	if !strategy.IsValid() {
		return "", ErrInvalidStrategy(s)
	}
	return strategy, nil
}

// BatchOrderer defines the draw priority of candidate batches
type BatchOrderer interface {
	// Strategy returns the strategy this orderer implements
	Strategy() AllocationStrategy
	// Less reports whether batch a must be drawn before batch b
	Less(a, b *Batch) bool
}

// FIFOOrderer orders by received date ascending
type FIFOOrderer struct{}

// Strategy returns FIFO
func (FIFOOrderer) Strategy() AllocationStrategy { return AllocationStrategyFIFO }

// Less orders by received date ascending, then batch ID
func (FIFOOrderer) Less(a, b *Batch) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	return idLess(a, b)
}

// LIFOOrderer orders by received date descending
type LIFOOrderer struct{}

// Strategy returns LIFO
func (LIFOOrderer) Strategy() AllocationStrategy { return AllocationStrategyLIFO }

// Less orders by received date descending, then batch ID
func (LIFOOrderer) Less(a, b *Batch) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.After(b.ReceivedAt)
	}
	return idLess(a, b)
}

// FEFOOrderer orders by expiry date ascending. Batches without an expiry
// date cannot expire and are drawn after every dated batch.
type FEFOOrderer struct{}

// Strategy returns FEFO
func (FEFOOrderer) Strategy() AllocationStrategy { return AllocationStrategyFEFO }

// Less orders by expiry ascending with undated last, then received date, then batch ID
func (FEFOOrderer) Less(a, b *Batch) bool {
	switch {
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return true
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return false
	case a.ExpiresAt != nil && b.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.Before(*b.ExpiresAt)
	}
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	return idLess(a, b)
}

func idLess(a, b *Batch) bool {
	return a.ID.String() < b.ID.String()
}

// GetBatchOrderer returns the orderer for a strategy
func GetBatchOrderer(strategy AllocationStrategy) (BatchOrderer, error) {
	switch strategy {
	case AllocationStrategyFIFO:
		return FIFOOrderer{}, nil
	case AllocationStrategyLIFO:
		return LIFOOrderer{}, nil
	case AllocationStrategyFEFO:
		return FEFOOrderer{}, nil
	}
	return nil, ErrInvalidStrategy(string(strategy))
}

// OrderBatches returns the batches with quantity > 0 in draw order for the
// strategy. The input slice is not modified.
func OrderBatches(candidates []Batch, strategy AllocationStrategy) ([]Batch, error) {
	orderer, err := GetBatchOrderer(strategy)
	if err != nil {
		return nil, err
	}

	ordered := make([]Batch, 0, len(candidates))
	for _, b := range candidates {
		if b.IsAvailable() {
			ordered = append(ordered, b)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return orderer.Less(&ordered[i], &ordered[j])
	})
	return ordered, nil
}
