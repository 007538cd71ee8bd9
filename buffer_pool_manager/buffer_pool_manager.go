package buffer_pool_manager

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrBufferPoolFull is returned when every frame is pinned and no victim can
// be found. Callers treat this as fatal.
var ErrBufferPoolFull = errors.New("buffer pool exhausted, no free or evictable frame")

// BufferPoolManager mediates all disk I/O through a fixed array of frames.
// Pages are looked up through an extendible hash table and evicted according
// to the LRU-K policy.
//
// Every frame is in exactly one of three states: on the free list, pinned, or
// evictable. A dirty page is never evicted without first being written
// through to disk.
type BufferPoolManager struct {

	// guards the page table, the free list, the replacer and the per-frame
	// pin counts. Disk I/O happens while holding it.
	mutex *sync.Mutex

	poolSize   int
	frames     []*Page
	freeFrames []FrameID

	pageTable *ExtendibleHashTable[PageID, FrameID]
	replacer  *LRUKReplacer

	disk DiskManager
	log  LogManager
}

func NewBufferPoolManager(config Config, disk DiskManager, log LogManager) *BufferPoolManager {

	frames := make([]*Page, config.PoolSize)
	freeFrames := make([]FrameID, 0, config.PoolSize)

	for i := range frames {
		frames[i] = newPage()
		freeFrames = append(freeFrames, FrameID(i))
	}

	if log == nil {
		log = NewNoopLogManager()
	}

	return &BufferPoolManager{
		mutex:      &sync.Mutex{},
		poolSize:   config.PoolSize,
		frames:     frames,
		freeFrames: freeFrames,
		pageTable:  NewExtendibleHashTable[PageID, FrameID](config.BucketSize, HashPageID),
		replacer:   NewLRUKReplacer(config.PoolSize, config.ReplacerK),
		disk:       disk,
		log:        log,
	}
}

// acquireFrame returns a frame ready to host a new page, taking it from the
// free list or by evicting a victim. The victim's page is written back if
// dirty and its page table mapping is removed.
func (pool *BufferPoolManager) acquireFrame() (FrameID, error) {

	if len(pool.freeFrames) > 0 {

		frameId := pool.freeFrames[0]
		pool.freeFrames = pool.freeFrames[1:]
		return frameId, nil
	}

	frameId, ok := pool.replacer.Evict()

	if !ok {
		return 0, ErrBufferPoolFull
	}

	page := pool.frames[frameId]

	if page.dirty {

		slog.Debug("writing back dirty victim", "pageId", page.pageId, "frameId", frameId, "at", "BufferPoolManager")

		pool.log.LogPageWrite(page.pageId)

		if err := pool.disk.WritePage(page.pageId, page.data); err != nil {
			return 0, fmt.Errorf("failed to write back page %d: %w", page.pageId, err)
		}
	}

	pool.pageTable.Remove(page.pageId)

	return frameId, nil
}

// NewPage allocates a fresh page, pins it in a frame and returns it.
func (pool *BufferPoolManager) NewPage() (*Page, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, err := pool.acquireFrame()

	if err != nil {
		return nil, err
	}

	pageId := pool.disk.AllocatePage()

	page := pool.frames[frameId]
	page.resetMemory()
	page.pageId = pageId
	page.pinCount = 1
	page.dirty = false

	pool.pageTable.Insert(pageId, frameId)
	pool.replacer.RecordAccess(frameId)
	pool.replacer.SetEvictable(frameId, false)

	return page, nil
}

// FetchPage returns the requested page pinned in a frame, reading it from
// disk on a miss.
func (pool *BufferPoolManager) FetchPage(pageId PageID) (*Page, error) {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if frameId, exists := pool.pageTable.Find(pageId); exists {

		page := pool.frames[frameId]
		page.pinCount++

		pool.replacer.RecordAccess(frameId)
		pool.replacer.SetEvictable(frameId, false)

		return page, nil
	}

	frameId, err := pool.acquireFrame()

	if err != nil {
		return nil, err
	}

	page := pool.frames[frameId]

	if err = pool.disk.ReadPage(pageId, page.data); err != nil {

		// the frame was not re-registered, return it to the free list.
		page.pageId = INVALID_PAGE_ID
		page.dirty = false
		pool.freeFrames = append(pool.freeFrames, frameId)

		return nil, fmt.Errorf("failed to read page %d: %w", pageId, err)
	}

	page.pageId = pageId
	page.pinCount = 1
	page.dirty = false

	pool.pageTable.Insert(pageId, frameId)
	pool.replacer.RecordAccess(frameId)
	pool.replacer.SetEvictable(frameId, false)

	return page, nil
}

// UnpinPage drops one reference to a resident page. The dirty flag is sticky:
// once set it survives until the page is flushed or evicted. When the pin
// count reaches zero the frame becomes evictable.
func (pool *BufferPoolManager) UnpinPage(pageId PageID, dirty bool) bool {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable.Find(pageId)

	if !exists {
		return false
	}

	page := pool.frames[frameId]

	if page.pinCount == 0 {
		return false
	}

	page.dirty = page.dirty || dirty
	page.pinCount--

	if page.pinCount == 0 {
		pool.replacer.SetEvictable(frameId, true)
	}

	return true
}

// FlushPage writes a resident page through to disk, regardless of its dirty
// flag, and clears the flag.
func (pool *BufferPoolManager) FlushPage(pageId PageID) bool {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable.Find(pageId)

	if !exists {
		return false
	}

	page := pool.frames[frameId]

	if err := pool.disk.WritePage(pageId, page.data); err != nil {
		slog.Error("failed to flush page", "pageId", pageId, "error", err.Error(), "at", "BufferPoolManager")
		return false
	}

	page.dirty = false

	return true
}

// FlushAllPages writes every resident page through to disk.
func (pool *BufferPoolManager) FlushAllPages() {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	for _, page := range pool.frames {

		if page.pageId == INVALID_PAGE_ID {
			continue
		}

		if err := pool.disk.WritePage(page.pageId, page.data); err != nil {
			slog.Error("failed to flush page", "pageId", page.pageId, "error", err.Error(), "at", "BufferPoolManager")
			continue
		}

		page.dirty = false
	}
}

// DeletePage removes a page from the pool and returns its page ID to the disk
// manager. Returns true if the page is not resident, false if it is pinned.
func (pool *BufferPoolManager) DeletePage(pageId PageID) bool {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	frameId, exists := pool.pageTable.Find(pageId)

	if !exists {
		return true
	}

	page := pool.frames[frameId]

	if page.pinCount > 0 {
		return false
	}

	pool.pageTable.Remove(pageId)
	pool.replacer.Remove(frameId)

	page.resetMemory()
	page.pageId = INVALID_PAGE_ID
	page.dirty = false

	pool.freeFrames = append(pool.freeFrames, frameId)
	pool.disk.DeallocatePage(pageId)

	return true
}

// PinnedPageCount returns the number of frames with outstanding pins.
func (pool *BufferPoolManager) PinnedPageCount() int {

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	pinned := 0

	for _, page := range pool.frames {
		if page.pageId != INVALID_PAGE_ID && page.pinCount > 0 {
			pinned++
		}
	}

	return pinned
}

// Close flushes every resident page and closes the disk manager.
func (pool *BufferPoolManager) Close() error {

	pool.FlushAllPages()
	return pool.disk.Close()
}
