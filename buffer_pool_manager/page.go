package buffer_pool_manager

import "sync"

// Page is the content of one frame in the buffer pool.
// The buffer pool exclusively owns all page memory; every other component
// holds a pinned reference for the duration of its access, and must unpin the
// page on every exit path.
//
// The page ID of a Page may change over the lifetime of its frame, as pages
// are evicted and frames reused. The buffer pool's page table is the sole
// authority mapping a page ID to a frame.
type Page struct {
	data     []byte
	pageId   PageID
	pinCount int
	dirty    bool

	// latch shared by all users of the page.
	mutex sync.RWMutex
}

func newPage() *Page {

	return &Page{
		data:   make([]byte, PAGE_SIZE),
		pageId: INVALID_PAGE_ID,
	}
}

// Data returns the raw page buffer. Callers must hold the page latch.
func (page *Page) Data() []byte {
	return page.data
}

// PageId returns the ID of the page currently hosted by this frame.
func (page *Page) PageId() PageID {
	return page.pageId
}

// PinCount returns the number of outstanding references to the page.
func (page *Page) PinCount() int {
	return page.pinCount
}

// IsDirty reports whether the page has been modified since it was last
// written to disk.
func (page *Page) IsDirty() bool {
	return page.dirty
}

// WLatch acquires the page latch in exclusive mode.
func (page *Page) WLatch() {
	page.mutex.Lock()
}

// WUnlatch releases the exclusive page latch.
func (page *Page) WUnlatch() {
	page.mutex.Unlock()
}

// RLatch acquires the page latch in shared mode.
func (page *Page) RLatch() {
	page.mutex.RLock()
}

// RUnlatch releases the shared page latch.
func (page *Page) RUnlatch() {
	page.mutex.RUnlock()
}

func (page *Page) resetMemory() {

	for i := range page.data {
		page.data[i] = 0
	}
}
