package buffer_pool_manager

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"
)

type BufferPoolManagerTestSuite struct {
	suite.Suite
	disk       *VirtualDiskManager
	bufferPool *BufferPoolManager
}

func (bs *BufferPoolManagerTestSuite) SetupTest() {

	bs.disk = NewVirtualDiskManager()

	config := Config{
		PoolSize:   3,
		BucketSize: 4,
		ReplacerK:  2,
	}

	bs.bufferPool = NewBufferPoolManager(config, bs.disk, nil)
}

func (bs *BufferPoolManagerTestSuite) TestSingleFrameEviction() {

	config := Config{PoolSize: 1, BucketSize: 4, ReplacerK: 2}
	pool := NewBufferPoolManager(config, NewVirtualDiskManager(), nil)

	page0, err := pool.NewPage()

	bs.Suite.Require().NoError(err)
	bs.Suite.Assert().Equal(1, page0.PinCount())

	pageId0 := page0.PageId()

	// the only frame is pinned, no victim exists.
	_, err = pool.NewPage()
	bs.Suite.Assert().ErrorIs(err, ErrBufferPoolFull)

	bs.Suite.Assert().True(pool.UnpinPage(pageId0, CLEAN))

	page1, err := pool.NewPage()

	bs.Suite.Require().NoError(err)
	bs.Suite.Assert().NotEqual(pageId0, page1.PageId())
	bs.Suite.Assert().Equal(1, page1.PinCount())
}

func (bs *BufferPoolManagerTestSuite) TestDirtyPageWriteBack() {

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()
	binary.LittleEndian.PutUint16(page.Data()[:2], 42)

	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, DIRTY))

	// fill the pool to force the dirty page out.
	for i := 0; i < 3; i++ {

		other, err := bs.bufferPool.NewPage()

		bs.Suite.Require().NoError(err)
		bs.Suite.Require().True(bs.bufferPool.UnpinPage(other.PageId(), CLEAN))
	}

	page, err = bs.bufferPool.FetchPage(pageId)

	bs.Suite.Require().NoError(err)
	bs.Suite.Assert().Equal(uint16(42), binary.LittleEndian.Uint16(page.Data()[:2]))

	bs.bufferPool.UnpinPage(pageId, CLEAN)
}

func (bs *BufferPoolManagerTestSuite) TestUnpinPage() {

	// unpin of a non-resident page fails.
	bs.Suite.Assert().False(bs.bufferPool.UnpinPage(99, CLEAN))

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()

	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, CLEAN))

	// the pin count is already zero.
	bs.Suite.Assert().False(bs.bufferPool.UnpinPage(pageId, CLEAN))
}

func (bs *BufferPoolManagerTestSuite) TestDirtyFlagIsSticky() {

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()

	_, err = bs.bufferPool.FetchPage(pageId)
	bs.Suite.Require().NoError(err)

	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, DIRTY))

	// a later clean unpin must not clear the flag.
	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, CLEAN))
	bs.Suite.Assert().True(page.IsDirty())

	bs.Suite.Assert().True(bs.bufferPool.FlushPage(pageId))
	bs.Suite.Assert().False(page.IsDirty())
}

func (bs *BufferPoolManagerTestSuite) TestFlushThenFetch() {

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()
	copy(page.Data(), []byte("durable"))

	bs.Suite.Assert().True(bs.bufferPool.FlushPage(pageId))
	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, CLEAN))

	// evict the flushed page by cycling the pool.
	for i := 0; i < 3; i++ {

		other, err := bs.bufferPool.NewPage()

		bs.Suite.Require().NoError(err)
		bs.Suite.Require().True(bs.bufferPool.UnpinPage(other.PageId(), CLEAN))
	}

	page, err = bs.bufferPool.FetchPage(pageId)

	bs.Suite.Require().NoError(err)
	bs.Suite.Assert().Equal([]byte("durable"), page.Data()[:7])

	bs.bufferPool.UnpinPage(pageId, CLEAN)
}

func (bs *BufferPoolManagerTestSuite) TestFlushNonResident() {

	bs.Suite.Assert().False(bs.bufferPool.FlushPage(123))
}

func (bs *BufferPoolManagerTestSuite) TestDeletePage() {

	// deleting a non-resident page succeeds trivially.
	bs.Suite.Assert().True(bs.bufferPool.DeletePage(50))

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()

	// pinned pages cannot be deleted.
	bs.Suite.Assert().False(bs.bufferPool.DeletePage(pageId))

	bs.Suite.Assert().True(bs.bufferPool.UnpinPage(pageId, CLEAN))
	bs.Suite.Assert().True(bs.bufferPool.DeletePage(pageId))

	// the page ID returns to the disk manager's free list.
	bs.Suite.Assert().Equal(pageId, bs.disk.AllocatePage())
}

func (bs *BufferPoolManagerTestSuite) TestFetchSharesFrame() {

	page, err := bs.bufferPool.NewPage()

	bs.Suite.Require().NoError(err)

	pageId := page.PageId()

	fetched, err := bs.bufferPool.FetchPage(pageId)

	bs.Suite.Require().NoError(err)
	bs.Suite.Assert().Same(page, fetched)
	bs.Suite.Assert().Equal(2, fetched.PinCount())

	bs.bufferPool.UnpinPage(pageId, CLEAN)
	bs.bufferPool.UnpinPage(pageId, CLEAN)

	bs.Suite.Assert().Equal(0, bs.bufferPool.PinnedPageCount())
}

func TestBufferPoolManager(t *testing.T) {

	suite.Run(t, new(BufferPoolManagerTestSuite))
}
