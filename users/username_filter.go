package users

import (
	"hash/fnv"
	"math"
	"math/bits"
	"sync"
)

const defaultUsernameFilterRate = 0.01

// UsernameFilter is a bloom filter of taken usernames kept in a packed bit set. A negative answer is
// certain, a positive one must be confirmed against the repository. Once more usernames than its
// capacity were added the false positive rate drifts up and Saturated reports true.
type UsernameFilter struct {
	mu       sync.RWMutex
	words    []uint64
	size     uint64
	probes   uint64
	capacity uint
	added    uint
	rate     float64
}

func NewUsernameFilter(capacity uint, falsePositiveRate float64) *UsernameFilter {
	capacity = max(capacity, 1)

	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = defaultUsernameFilterRate
	}

	// m = -n ln p / (ln 2)^2 and k = m/n ln 2
	exact := -float64(capacity) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)
	probes := max(uint64(math.Round(exact/float64(capacity)*math.Ln2)), 1)
	words := (uint64(math.Ceil(exact)) + 63) / 64

	return &UsernameFilter{
		words:    make([]uint64, words),
		size:     words * 64,
		probes:   probes,
		capacity: capacity,
		rate:     falsePositiveRate,
	}
}

// BuildUsernameFilter returns a filter holding usernames with room for twice as many, and never
// less than minCapacity.
func BuildUsernameFilter(usernames []string, minCapacity uint, falsePositiveRate float64) *UsernameFilter {
	filter := NewUsernameFilter(max(2*uint(len(usernames)), minCapacity), falsePositiveRate)
	for _, username := range usernames {
		filter.Add(username)
	}

	return filter
}

// probe returns the start and step of the probe sequence of username. Both halves come from one
// 64 bit FNV-1a sum; the step is odd so it never collapses onto the start.
func probe(username string) (start, step uint64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(username))
	sum := h.Sum64()

	return sum, bits.RotateLeft64(sum, 32) | 1
}

func (filter *UsernameFilter) Add(username string) {
	start, step := probe(username)

	filter.mu.Lock()
	defer filter.mu.Unlock()

	for i := range filter.probes {
		pos := (start + i*step) % filter.size
		filter.words[pos/64] |= 1 << (pos % 64)
	}

	filter.added++
}

// MightContain is false only when username was never added.
func (filter *UsernameFilter) MightContain(username string) bool {
	start, step := probe(username)

	filter.mu.RLock()
	defer filter.mu.RUnlock()

	for i := range filter.probes {
		pos := (start + i*step) % filter.size
		if filter.words[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}

	return true
}

func (filter *UsernameFilter) Capacity() uint {
	return filter.capacity
}

func (filter *UsernameFilter) FalsePositiveRate() float64 {
	return filter.rate
}

func (filter *UsernameFilter) Saturated() bool {
	filter.mu.RLock()
	defer filter.mu.RUnlock()

	return filter.added > filter.capacity
}
