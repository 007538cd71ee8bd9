package buffer_pool_manager

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

type hashEntry[K comparable, V any] struct {
	key   K
	value V
}

// hashBucket holds up to bucketSize entries and its own local depth.
// Multiple directory slots may share one bucket while the table's global
// depth exceeds the bucket's local depth.
type hashBucket[K comparable, V any] struct {
	depth int
	items []hashEntry[K, V]
}

func (bucket *hashBucket[K, V]) find(key K) (V, bool) {

	for _, entry := range bucket.items {
		if entry.key == key {
			return entry.value, true
		}
	}

	var zero V
	return zero, false
}

func (bucket *hashBucket[K, V]) remove(key K) bool {

	for i, entry := range bucket.items {
		if entry.key == key {
			bucket.items = append(bucket.items[:i], bucket.items[i+1:]...)
			return true
		}
	}
	return false
}

// ExtendibleHashTable is a dynamically growing hash map. The buffer pool uses
// it as the page table mapping page IDs to frame IDs.
//
// The directory is indexed by the low globalDepth bits of the key hash.
// Directory doubling copies bucket references, never buckets.
type ExtendibleHashTable[K comparable, V any] struct {
	mutex *sync.Mutex

	globalDepth int
	bucketSize  int
	numBuckets  int

	dir  []*hashBucket[K, V]
	hash func(K) uint64
}

// NewExtendibleHashTable returns a table with a single empty bucket and a
// global depth of zero.
func NewExtendibleHashTable[K comparable, V any](bucketSize int, hash func(K) uint64) *ExtendibleHashTable[K, V] {

	return &ExtendibleHashTable[K, V]{
		mutex:       &sync.Mutex{},
		globalDepth: 0,
		bucketSize:  bucketSize,
		numBuckets:  1,
		dir:         []*hashBucket[K, V]{{depth: 0}},
		hash:        hash,
	}
}

// HashPageID is the hash function used for the buffer pool's page table.
func HashPageID(pageId PageID) uint64 {

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(pageId))
	return xxhash.Sum64(buf[:])
}

func (table *ExtendibleHashTable[K, V]) indexOf(key K) int {

	mask := (uint64(1) << table.globalDepth) - 1
	return int(table.hash(key) & mask)
}

// Find returns the value associated with key.
func (table *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.dir[table.indexOf(key)].find(key)
}

// Insert places or overwrites the value associated with key, splitting
// buckets and doubling the directory as needed.
func (table *ExtendibleHashTable[K, V]) Insert(key K, value V) {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	for {

		bucket := table.dir[table.indexOf(key)]

		for i := range bucket.items {
			if bucket.items[i].key == key {
				bucket.items[i].value = value
				return
			}
		}

		if len(bucket.items) < table.bucketSize {
			bucket.items = append(bucket.items, hashEntry[K, V]{key: key, value: value})
			return
		}

		table.splitBucket(bucket)
	}
}

// splitBucket raises the local depth of a full bucket, allocating a sibling
// bucket and redistributing the entries between the two. The directory is
// doubled first if the bucket is already at global depth.
func (table *ExtendibleHashTable[K, V]) splitBucket(bucket *hashBucket[K, V]) {

	if bucket.depth == table.globalDepth {

		// double the directory; new slot i+oldLen aliases slot i.
		table.dir = append(table.dir, table.dir...)
		table.globalDepth++
	}

	bucket.depth++
	table.numBuckets++

	sibling := &hashBucket[K, V]{depth: bucket.depth}

	// every directory slot whose index has the new depth bit set, and which
	// pointed at the old bucket, now points at the sibling.
	highBit := 1 << (bucket.depth - 1)

	for i := range table.dir {
		if table.dir[i] == bucket && i&highBit != 0 {
			table.dir[i] = sibling
		}
	}

	items := bucket.items
	bucket.items = nil

	for _, entry := range items {
		target := table.dir[table.indexOf(entry.key)]
		target.items = append(target.items, entry)
	}
}

// Remove deletes the entry associated with key.
func (table *ExtendibleHashTable[K, V]) Remove(key K) bool {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.dir[table.indexOf(key)].remove(key)
}

// GetGlobalDepth returns the number of directory index bits in use.
func (table *ExtendibleHashTable[K, V]) GetGlobalDepth() int {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.globalDepth
}

// GetLocalDepth returns the local depth of the bucket at the given directory index.
func (table *ExtendibleHashTable[K, V]) GetLocalDepth(dirIndex int) int {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.dir[dirIndex].depth
}

// GetNumBuckets returns the number of distinct buckets.
func (table *ExtendibleHashTable[K, V]) GetNumBuckets() int {

	table.mutex.Lock()
	defer table.mutex.Unlock()

	return table.numBuckets
}
