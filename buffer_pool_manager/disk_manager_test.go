package buffer_pool_manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DiskManagerTestSuite struct {
	suite.Suite
	filePath string
	disk     *OSBufferedDiskManager
}

func (ds *DiskManagerTestSuite) SetupTest() {

	ds.filePath = filepath.Join(ds.Suite.T().TempDir(), "test.db")

	disk, err := NewOSBufferedDiskManager(ds.filePath)

	ds.Suite.Require().NoError(err)

	ds.disk = disk
}

func (ds *DiskManagerTestSuite) TearDownTest() {

	ds.Suite.Assert().NoError(ds.disk.Close())
}

func (ds *DiskManagerTestSuite) TestWriteReadRoundTrip() {

	pageId := ds.disk.AllocatePage()

	data := make([]byte, PAGE_SIZE)
	copy(data, []byte("hello, page"))

	ds.Suite.Require().NoError(ds.disk.WritePage(pageId, data))

	read := make([]byte, PAGE_SIZE)

	ds.Suite.Require().NoError(ds.disk.ReadPage(pageId, read))
	ds.Suite.Assert().Equal(data, read)
}

func (ds *DiskManagerTestSuite) TestHeaderPageReserved() {

	// a fresh file already holds the header page, so the first allocation is
	// page 1.
	ds.Suite.Assert().Equal(PageID(1), ds.disk.AllocatePage())
}

func (ds *DiskManagerTestSuite) TestAllocateReusesDeallocated() {

	first := ds.disk.AllocatePage()
	second := ds.disk.AllocatePage()

	ds.Suite.Assert().Equal(first+1, second)

	ds.disk.DeallocatePage(first)

	ds.Suite.Assert().Equal(first, ds.disk.AllocatePage())
}

func (ds *DiskManagerTestSuite) TestUnwrittenPageReadsZeroes() {

	pageId := ds.disk.AllocatePage()

	data := make([]byte, PAGE_SIZE)
	data[0] = 0xff

	ds.Suite.Require().NoError(ds.disk.ReadPage(pageId, data))
	ds.Suite.Assert().Equal(byte(0), data[0])
}

func (ds *DiskManagerTestSuite) TestPersistsAcrossReopen() {

	pageId := ds.disk.AllocatePage()

	data := make([]byte, PAGE_SIZE)
	copy(data, []byte("persistent"))

	ds.Suite.Require().NoError(ds.disk.WritePage(pageId, data))
	ds.Suite.Require().NoError(ds.disk.Close())

	disk, err := NewOSBufferedDiskManager(ds.filePath)

	ds.Suite.Require().NoError(err)

	read := make([]byte, PAGE_SIZE)

	ds.Suite.Require().NoError(disk.ReadPage(pageId, read))
	ds.Suite.Assert().Equal(data, read)

	// the reopened manager allocates past the persisted pages.
	ds.Suite.Assert().Greater(disk.AllocatePage(), pageId)

	ds.disk = disk
}

func (ds *DiskManagerTestSuite) TestVirtualDiskManagerParity() {

	virtual := NewVirtualDiskManager()

	pageId := virtual.AllocatePage()
	ds.Suite.Assert().Equal(PageID(1), pageId)

	data := make([]byte, PAGE_SIZE)
	copy(data, []byte("in memory"))

	ds.Suite.Require().NoError(virtual.WritePage(pageId, data))

	read := make([]byte, PAGE_SIZE)

	ds.Suite.Require().NoError(virtual.ReadPage(pageId, read))
	ds.Suite.Assert().Equal(data, read)

	// unwritten pages read as zeroes.
	far := make([]byte, PAGE_SIZE)
	far[10] = 0xab

	ds.Suite.Require().NoError(virtual.ReadPage(40, far))
	ds.Suite.Assert().Equal(byte(0), far[10])

	virtual.DeallocatePage(pageId)
	ds.Suite.Assert().Equal(pageId, virtual.AllocatePage())
}

func TestDiskManager(t *testing.T) {

	if _, err := os.Stat(os.TempDir()); err != nil {
		t.Skip("no writable temp dir")
	}

	suite.Run(t, new(DiskManagerTestSuite))
}
