package bplustree

import (
	"testing"

	"github.com/stretchr/testify/suite"
	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

type IndexIteratorTestSuite struct {
	suite.Suite
	pool *bpm.BufferPoolManager
	tree *BPlusTree
}

func (is *IndexIteratorTestSuite) SetupTest() {

	is.pool = bpm.NewBufferPoolManager(testConfig(), bpm.NewVirtualDiskManager(), nil)

	tree, err := NewBPlusTree("iterator_index", is.pool, testConfig())

	is.Suite.Require().NoError(err)

	is.tree = tree

	// even keys only, so seeks between keys are exercised.
	for key := KeyType(2); key <= 40; key += 2 {

		ok, err := is.tree.Insert(key, testRid(key))

		is.Suite.Require().NoError(err)
		is.Suite.Require().True(ok)
	}
}

func (is *IndexIteratorTestSuite) TestFullScan() {

	iterator, err := is.tree.Begin()

	is.Suite.Require().NoError(err)

	expected := KeyType(2)

	for !iterator.IsEnd() {

		is.Suite.Assert().Equal(expected, iterator.Key())
		is.Suite.Assert().Equal(testRid(expected), iterator.RID())

		expected += 2

		is.Suite.Require().NoError(iterator.Next())
	}

	iterator.Close()

	is.Suite.Assert().Equal(KeyType(42), expected)
	is.Suite.Assert().Equal(0, is.pool.PinnedPageCount())
}

func (is *IndexIteratorTestSuite) TestSeekExactKey() {

	iterator, err := is.tree.BeginAt(20)

	is.Suite.Require().NoError(err)
	is.Suite.Require().False(iterator.IsEnd())
	is.Suite.Assert().Equal(KeyType(20), iterator.Key())

	iterator.Close()
}

func (is *IndexIteratorTestSuite) TestSeekBetweenKeys() {

	// 21 is absent; the scan starts at the next greater key.
	iterator, err := is.tree.BeginAt(21)

	is.Suite.Require().NoError(err)
	is.Suite.Require().False(iterator.IsEnd())
	is.Suite.Assert().Equal(KeyType(22), iterator.Key())

	iterator.Close()
}

func (is *IndexIteratorTestSuite) TestSeekPastLastKey() {

	iterator, err := is.tree.BeginAt(100)

	is.Suite.Require().NoError(err)
	is.Suite.Assert().True(iterator.IsEnd())

	iterator.Close()

	is.Suite.Assert().Equal(0, is.pool.PinnedPageCount())
}

func (is *IndexIteratorTestSuite) TestCloseReleasesLeaf() {

	iterator, err := is.tree.Begin()

	is.Suite.Require().NoError(err)
	is.Suite.Require().False(iterator.IsEnd())

	iterator.Close()

	is.Suite.Assert().True(iterator.IsEnd())
	is.Suite.Assert().Equal(0, is.pool.PinnedPageCount())

	// closing twice is harmless.
	iterator.Close()
}

func TestIndexIterator(t *testing.T) {

	suite.Run(t, new(IndexIteratorTestSuite))
}
