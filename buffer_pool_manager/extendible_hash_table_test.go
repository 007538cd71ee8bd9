package buffer_pool_manager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// identityHash makes directory growth deterministic in tests.
func identityHash(key int) uint64 {
	return uint64(key)
}

type ExtendibleHashTableTestSuite struct {
	suite.Suite
	table *ExtendibleHashTable[int, int]
}

func (hs *ExtendibleHashTableTestSuite) SetupTest() {

	hs.table = NewExtendibleHashTable[int, int](2, identityHash)
}

func (hs *ExtendibleHashTableTestSuite) TestDirectoryGrowth() {

	hs.Suite.Assert().Equal(0, hs.table.GetGlobalDepth())
	hs.Suite.Assert().Equal(1, hs.table.GetNumBuckets())

	for _, key := range []int{4, 12, 16, 64, 31} {
		hs.table.Insert(key, key*10)
	}

	hs.Suite.Assert().Equal(3, hs.table.GetGlobalDepth())
	hs.Suite.Assert().Equal(4, hs.table.GetNumBuckets())

	value, found := hs.table.Find(4)

	hs.Suite.Assert().True(found)
	hs.Suite.Assert().Equal(40, value)

	_, found = hs.table.Find(5)
	hs.Suite.Assert().False(found)

	hs.Suite.Assert().True(hs.table.Remove(4))

	_, found = hs.table.Find(4)
	hs.Suite.Assert().False(found)

	hs.Suite.Assert().False(hs.table.Remove(4))
}

func (hs *ExtendibleHashTableTestSuite) TestOverwrite() {

	hs.table.Insert(8, 1)
	hs.table.Insert(8, 2)

	value, found := hs.table.Find(8)

	hs.Suite.Assert().True(found)
	hs.Suite.Assert().Equal(2, value)
}

func (hs *ExtendibleHashTableTestSuite) TestLocalDepthAliasing() {

	// fill one suffix so only its bucket splits; the sibling slot keeps a
	// shallower local depth.
	for _, key := range []int{0, 4, 8} {
		hs.table.Insert(key, key)
	}

	globalDepth := hs.table.GetGlobalDepth()
	hs.Suite.Assert().Greater(globalDepth, 0)

	// the directory slot for odd suffixes still aliases an unsplit bucket.
	hs.Suite.Assert().LessOrEqual(hs.table.GetLocalDepth(1), globalDepth)

	for _, key := range []int{0, 4, 8} {

		value, found := hs.table.Find(key)

		hs.Suite.Assert().True(found)
		hs.Suite.Assert().Equal(key, value)
	}
}

func (hs *ExtendibleHashTableTestSuite) TestConcurrentInsertFind() {

	table := NewExtendibleHashTable[int, int](4, identityHash)

	var wg sync.WaitGroup

	for worker := 0; worker < 8; worker++ {

		wg.Add(1)

		go func(base int) {

			defer wg.Done()

			for i := 0; i < 500; i++ {
				table.Insert(base*500+i, base)
			}
		}(worker)
	}

	wg.Wait()

	for key := 0; key < 8*500; key++ {

		value, found := table.Find(key)

		hs.Suite.Require().True(found)
		hs.Suite.Assert().Equal(key/500, value)
	}
}

func TestExtendibleHashTable(t *testing.T) {

	suite.Run(t, new(ExtendibleHashTableTestSuite))
}
