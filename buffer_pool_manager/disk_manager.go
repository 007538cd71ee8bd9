package buffer_pool_manager

import "errors"

var ErrIncompleteRead = errors.New("incomplete read")
var ErrIncompleteWrite = errors.New("incomplete write")

// DiskManager is responsible for reading, writing, allocating and deallocating
// pages of the database file.
type DiskManager interface {

	// ReadPage fills data, which must be PAGE_SIZE bytes long, with the
	// contents of a page on stable storage. A page that has been allocated but
	// never written reads as zeroes.
	ReadPage(pageId PageID, data []byte) error

	// WritePage writes a full page to stable storage. The write is durable on return.
	WritePage(pageId PageID, data []byte) error

	// AllocatePage returns a page ID for use. It reuses a deallocated page ID
	// if available, otherwise increments maxAllocatedPageId and returns a
	// fresh one.
	AllocatePage() PageID

	// DeallocatePage marks a page ID as free, making it available for future
	// allocation.
	DeallocatePage(pageId PageID)

	// Close releases the underlying storage.
	Close() error
}
