package buffer_pool_manager

import (
	"fmt"
	"sync"
)

// Replacer keeps track of unpinned frames and picks eviction victims.
type Replacer interface {

	// Evict selects a frame to evict based on the replacement policy.
	Evict() (FrameID, bool)

	// RecordAccess registers an access to a frame.
	RecordAccess(frameId FrameID)

	// SetEvictable marks a frame as a candidate for eviction, or withdraws it.
	SetEvictable(frameId FrameID, evictable bool)

	// Remove eliminates a frame from the replacer, typically when its page is deleted.
	Remove(frameId FrameID)

	// Size returns the current number of evictable frames.
	Size() int
}

// lruKNode holds the access history of one frame: the timestamps of its last
// up to k accesses, oldest first.
type lruKNode struct {
	history   []uint64
	evictable bool
}

// LRUKReplacer implements the LRU-K replacement policy.
//
// A frame with fewer than k recorded accesses has an infinite backward
// k-distance and outranks every frame with a full history. Within either
// class the victim is the frame whose oldest recorded access is earliest,
// with ties broken by ascending frame ID.
type LRUKReplacer struct {
	mutex *sync.Mutex

	k        int
	capacity int

	// monotonically increasing access counter, shared by all frames.
	currentTimestamp uint64

	// number of evictable frames currently tracked.
	currentSize int

	nodes map[FrameID]*lruKNode
}

func NewLRUKReplacer(capacity int, k int) *LRUKReplacer {

	return &LRUKReplacer{
		mutex:    &sync.Mutex{},
		k:        k,
		capacity: capacity,
		nodes:    make(map[FrameID]*lruKNode),
	}
}

// Evict removes and returns the evictable frame with the largest backward
// k-distance. The returned frame's access history is dropped.
func (replacer *LRUKReplacer) Evict() (FrameID, bool) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	victim := FrameID(-1)
	victimUnderK := false
	var victimOldest uint64

	for frameId, node := range replacer.nodes {

		if !node.evictable {
			continue
		}

		underK := len(node.history) < replacer.k
		oldest := node.history[0]

		switch {
		case victim == -1:
		case underK && !victimUnderK:
		case underK == victimUnderK && oldest < victimOldest:
		case underK == victimUnderK && oldest == victimOldest && frameId < victim:
		default:
			continue
		}

		victim = frameId
		victimUnderK = underK
		victimOldest = oldest
	}

	if victim == -1 {
		return 0, false
	}

	delete(replacer.nodes, victim)
	replacer.currentSize--

	return victim, true
}

// RecordAccess appends the next global timestamp to the frame's history,
// keeping only the last k timestamps.
func (replacer *LRUKReplacer) RecordAccess(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	if int(frameId) >= replacer.capacity {
		panic(fmt.Sprintf("frame ID %d out of range for replacer of capacity %d", frameId, replacer.capacity))
	}

	replacer.currentTimestamp++

	node, exists := replacer.nodes[frameId]

	if !exists {
		node = &lruKNode{}
		replacer.nodes[frameId] = node
	}

	node.history = append(node.history, replacer.currentTimestamp)

	if len(node.history) > replacer.k {
		node.history = node.history[1:]
	}
}

// SetEvictable toggles the evictable flag of a frame, adjusting the number of
// evictable frames. It is a no-op for unknown frames.
func (replacer *LRUKReplacer) SetEvictable(frameId FrameID, evictable bool) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	node, exists := replacer.nodes[frameId]

	if !exists || node.evictable == evictable {
		return
	}

	node.evictable = evictable

	if evictable {
		replacer.currentSize++
	} else {
		replacer.currentSize--
	}
}

// Remove deletes a frame's access history. Only evictable frames may be removed.
func (replacer *LRUKReplacer) Remove(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	node, exists := replacer.nodes[frameId]

	if !exists {
		return
	}

	if !node.evictable {
		panic(fmt.Sprintf("frame %d removed from replacer while non-evictable", frameId))
	}

	delete(replacer.nodes, frameId)
	replacer.currentSize--
}

// Size returns the number of evictable frames.
func (replacer *LRUKReplacer) Size() int {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	return replacer.currentSize
}
