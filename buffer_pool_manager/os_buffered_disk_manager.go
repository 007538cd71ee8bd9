package buffer_pool_manager

import (
	"log/slog"
	"os"
	"sync"
)

// OSBufferedDiskManager stores pages in a file opened through the OS page
// cache. It is the simplest DiskManager; DirectIODiskManager bypasses the
// kernel cache instead.
type OSBufferedDiskManager struct {
	file *os.File

	mutex                 *sync.Mutex
	deallocatedPageIdList []PageID
	maxAllocatedPageId    PageID
}

func NewOSBufferedDiskManager(filePath string) (*OSBufferedDiskManager, error) {

	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, err
	}

	stats, err := f.Stat()

	if err != nil {
		f.Close()
		return nil, err
	}

	disk := &OSBufferedDiskManager{
		file:  f,
		mutex: &sync.Mutex{},
	}

	// page 0 is the header page, so the highest allocated page ID of a file
	// holding n pages is n-1.
	numPages := stats.Size() / PAGE_SIZE

	if numPages == 0 {
		slog.Info("initializing new database file", "filePath", filePath, "at", "OSBufferedDiskManager")

		if err = disk.WritePage(HEADER_PAGE_ID, make([]byte, PAGE_SIZE)); err != nil {
			f.Close()
			return nil, err
		}
		numPages = 1
	}

	disk.maxAllocatedPageId = PageID(numPages - 1)

	return disk, nil
}

// ReadPage fills data with the contents of the page. A page past the end of
// the file reads as zeroes.
func (disk *OSBufferedDiskManager) ReadPage(pageId PageID, data []byte) error {

	offset := int64(pageId) * PAGE_SIZE

	n, err := disk.file.ReadAt(data, offset)

	if err != nil && n == 0 {

		stats, statErr := disk.file.Stat()

		if statErr == nil && offset >= stats.Size() {
			for i := range data {
				data[i] = 0
			}
			return nil
		}
		return err
	}

	if n < len(data) {
		for i := n; i < len(data); i++ {
			data[i] = 0
		}
	}

	return nil
}

// WritePage writes a full page to the file.
func (disk *OSBufferedDiskManager) WritePage(pageId PageID, data []byte) error {

	n, err := disk.file.WriteAt(data, int64(pageId)*PAGE_SIZE)

	if err != nil {
		return err
	}

	if n != len(data) {
		return ErrIncompleteWrite
	}

	return nil
}

// AllocatePage reuses a deallocated page ID if available, otherwise returns a
// fresh one.
func (disk *OSBufferedDiskManager) AllocatePage() PageID {

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
func (disk *OSBufferedDiskManager) DeallocatePage(pageId PageID) {

	disk.mutex.Lock()
	disk.deallocatedPageIdList = append(disk.deallocatedPageIdList, pageId)
	disk.mutex.Unlock()
}

func (disk *OSBufferedDiskManager) Close() error {
	return disk.file.Close()
}
