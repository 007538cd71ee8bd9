package buffer_pool_manager

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/ncw/directio"
)

// DirectIODiskManager uses Direct I/O to move pages directly between process
// memory and the disk controller.

// Direct I/O bypasses the kernel page cache, this is useful because:
// 1. It prevents file data from being cached twice, once in the kernel page cache, and once in the buffer pool.
// 2. It gives the database complete control over when data is flushed to disk.
type DirectIODiskManager struct {
	file *os.File

	mutex                 *sync.Mutex
	deallocatedPageIdList []PageID
	maxAllocatedPageId    PageID
}

func NewDirectIODiskManager(filePath string) (*DirectIODiskManager, error) {

	newFileCreated := false

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		slog.Info("database file does not exist, creating new file", "filePath", filePath, "at", "DirectIODiskManager")
		newFileCreated = true
	}

	file, err := OpenFileDirectIO(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, err
	}

	disk := &DirectIODiskManager{
		file:  file,
		mutex: &sync.Mutex{},
	}

	if newFileCreated {

		// reserve the header page so that page ID 0 is never handed out.
		if err = disk.WritePage(HEADER_PAGE_ID, make([]byte, PAGE_SIZE)); err != nil {
			file.Close()
			return nil, err
		}
		disk.maxAllocatedPageId = HEADER_PAGE_ID

	} else {

		stats, err := file.Stat()

		if err != nil {
			file.Close()
			return nil, err
		}

		disk.maxAllocatedPageId = PageID(stats.Size()/PAGE_SIZE) - 1
	}

	return disk, nil
}

// ReadPage fills data with the contents of the page.
// Direct I/O requires the transfer buffer to be block aligned, so the page is
// staged through an aligned block.
func (disk *DirectIODiskManager) ReadPage(pageId PageID, data []byte) error {

	block := directio.AlignedBlock(PAGE_SIZE)

	// the ReadAt function internally calls the pread system call, which reads
	// data at the offset without disturbing the file cursor.
	n, err := disk.file.ReadAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil && n == 0 {
		return err
	}

	if n != PAGE_SIZE {
		return ErrIncompleteRead
	}

	copy(data, block)
	return nil
}

// WritePage writes a full page through an aligned block.
func (disk *DirectIODiskManager) WritePage(pageId PageID, data []byte) error {

	block := directio.AlignedBlock(PAGE_SIZE)
	copy(block, data)

	// the WriteAt function internally calls the pwrite system call, which
	// writes data at the offset without disturbing the file cursor.
	n, err := disk.file.WriteAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil {
		slog.Error("failed to write page", "pageId", pageId, "error", err.Error(), "at", "DirectIODiskManager")
		return err
	}

	if n != PAGE_SIZE {
		return ErrIncompleteWrite
	}

	return nil
}

// AllocatePage allocates a page in the file and returns its page ID.
// It reuses a deallocated page ID if available, otherwise increments
// maxAllocatedPageId, growing the file by 16 pages when every page in it is
// already allocated.
func (disk *DirectIODiskManager) AllocatePage() PageID {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	if len(disk.deallocatedPageIdList) > 0 {

		pageId := disk.deallocatedPageIdList[0]
		disk.deallocatedPageIdList = disk.deallocatedPageIdList[1:]
		return pageId
	}

	stats, err := disk.file.Stat()

	if err != nil {
		slog.Error("failed to stat database file", "error", err.Error(), "at", "DirectIODiskManager")
		panic(err)
	}

	// if every page in the file is allocated, grow the file by 16 pages so
	// that reads of freshly allocated pages stay within bounds.
	if disk.maxAllocatedPageId+1 == PageID(stats.Size()/PAGE_SIZE) {

		block := directio.AlignedBlock(PAGE_SIZE * 16)

		if _, err := disk.file.WriteAt(block, int64(disk.maxAllocatedPageId+1)*PAGE_SIZE); err != nil {
			slog.Error("failed to extend database file", "error", err.Error(), "at", "DirectIODiskManager")
			panic(err)
		}
	}

	pageId := disk.maxAllocatedPageId + 1
	disk.maxAllocatedPageId++

	return pageId
}

// DeallocatePage adds the page ID to the free list.
func (disk *DirectIODiskManager) DeallocatePage(pageId PageID) {

	disk.mutex.Lock()
	disk.deallocatedPageIdList = append(disk.deallocatedPageIdList, pageId)
	disk.mutex.Unlock()
}

func (disk *DirectIODiskManager) Close() error {

	slog.Info("closing DirectIODiskManager", "at", "DirectIODiskManager")

	return disk.file.Close()
}
