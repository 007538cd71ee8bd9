package buffer_pool_manager

const (
	PAGE_SIZE = 4096

	// page ID of the header page, created when the database file is initialized.
	HEADER_PAGE_ID = PageID(0)

	INVALID_PAGE_ID = PageID(-1)

	DIRTY = true
	CLEAN = false
)

// PageID is the logical, stable identifier of a unit of disk storage.
type PageID int64

// FrameID is the index of a fixed slot in the buffer pool.
// Components outside the buffer pool must never hold a frame ID across an unpin.
type FrameID int32

// Config holds the static knobs of the storage core. All values are fixed for
// the lifetime of the process.
type Config struct {

	// number of frames owned by the buffer pool.
	PoolSize int

	// capacity of each bucket of the extendible hash table.
	BucketSize int

	// K of the LRU-K replacement policy.
	ReplacerK int

	// maximum number of entries in a B+ tree leaf page.
	LeafMaxSize int32

	// maximum number of child pointers in a B+ tree internal page.
	InternalMaxSize int32
}

func DefaultConfig() Config {

	return Config{
		PoolSize:        64,
		BucketSize:      32,
		ReplacerK:       2,
		LeafMaxSize:     32,
		InternalMaxSize: 32,
	}
}
