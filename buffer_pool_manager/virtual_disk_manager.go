package buffer_pool_manager

import (
	"sync"

	"github.com/dsnet/golib/memfile"
)

// VirtualDiskManager keeps the whole database file in memory. It exists for
// tests that exercise the buffer pool and the B+ tree without touching disk.
type VirtualDiskManager struct {
	file *memfile.File

	mutex                 *sync.Mutex
	deallocatedPageIdList []PageID
	maxAllocatedPageId    PageID
}

func NewVirtualDiskManager() *VirtualDiskManager {

	return &VirtualDiskManager{
		file:               memfile.New(make([]byte, PAGE_SIZE)),
		mutex:              &sync.Mutex{},
		maxAllocatedPageId: HEADER_PAGE_ID,
	}
}

// ReadPage fills data with the contents of the page. A page past the end of
// the in-memory file reads as zeroes.
func (disk *VirtualDiskManager) ReadPage(pageId PageID, data []byte) error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	n, err := disk.file.ReadAt(data, int64(pageId)*PAGE_SIZE)

	if err != nil && n == 0 {
		for i := range data {
			data[i] = 0
		}
		return nil
	}

	for i := n; i < len(data); i++ {
		data[i] = 0
	}

	return nil
}

// WritePage writes a full page. The in-memory file grows as needed.
func (disk *VirtualDiskManager) WritePage(pageId PageID, data []byte) error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	_, err := disk.file.WriteAt(data, int64(pageId)*PAGE_SIZE)
	return err
}

// AllocatePage reuses a deallocated page ID if available, otherwise returns a
// fresh one.
func (disk *VirtualDiskManager) AllocatePage() PageID {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	if len(disk.deallocatedPageIdList) > 0 {

		pageId := disk.deallocatedPageIdList[0]
		disk.deallocatedPageIdList = disk.deallocatedPageIdList[1:]
		return pageId
	}

	pageId := disk.maxAllocatedPageId + 1
	disk.maxAllocatedPageId++
	return pageId
}

// DeallocatePage adds the page ID to the free list.
func (disk *VirtualDiskManager) DeallocatePage(pageId PageID) {

	disk.mutex.Lock()
	disk.deallocatedPageIdList = append(disk.deallocatedPageIdList, pageId)
	disk.mutex.Unlock()
}

func (disk *VirtualDiskManager) Close() error {
	return nil
}
