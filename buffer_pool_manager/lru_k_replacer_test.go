package buffer_pool_manager

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LRUKReplacerTestSuite struct {
	suite.Suite
	replacer *LRUKReplacer
}

func (rs *LRUKReplacerTestSuite) SetupTest() {

	rs.replacer = NewLRUKReplacer(8, 2)
}

func (rs *LRUKReplacerTestSuite) TestEvictOrder() {

	// frames with fewer than K accesses outrank full-history frames; within
	// either class the earliest oldest access wins.
	accesses := []FrameID{1, 2, 3, 4, 5, 6, 1, 2, 3, 1, 2, 3, 4, 5, 6}

	for _, frameId := range accesses {
		rs.replacer.RecordAccess(frameId)
	}

	for frameId := FrameID(1); frameId <= 6; frameId++ {
		rs.replacer.SetEvictable(frameId, true)
	}

	rs.Suite.Assert().Equal(6, rs.replacer.Size())

	expected := []FrameID{4, 5, 6, 1, 2, 3}

	for _, want := range expected {

		victim, ok := rs.replacer.Evict()

		rs.Suite.Require().True(ok)
		rs.Suite.Assert().Equal(want, victim)
	}

	_, ok := rs.replacer.Evict()
	rs.Suite.Assert().False(ok)
	rs.Suite.Assert().Equal(0, rs.replacer.Size())
}

func (rs *LRUKReplacerTestSuite) TestUnderKPreferred() {

	// frame 1 has a full history with old timestamps, frame 2 a single
	// recent access; the under-K frame is evicted first.
	rs.replacer.RecordAccess(1)
	rs.replacer.RecordAccess(1)
	rs.replacer.RecordAccess(2)

	rs.replacer.SetEvictable(1, true)
	rs.replacer.SetEvictable(2, true)

	victim, ok := rs.replacer.Evict()

	rs.Suite.Require().True(ok)
	rs.Suite.Assert().Equal(FrameID(2), victim)

	victim, ok = rs.replacer.Evict()

	rs.Suite.Require().True(ok)
	rs.Suite.Assert().Equal(FrameID(1), victim)
}

func (rs *LRUKReplacerTestSuite) TestSetEvictable() {

	rs.replacer.RecordAccess(3)

	// non-evictable frames are never victims.
	_, ok := rs.replacer.Evict()
	rs.Suite.Assert().False(ok)
	rs.Suite.Assert().Equal(0, rs.replacer.Size())

	rs.replacer.SetEvictable(3, true)
	rs.Suite.Assert().Equal(1, rs.replacer.Size())

	// toggling twice is idempotent.
	rs.replacer.SetEvictable(3, true)
	rs.Suite.Assert().Equal(1, rs.replacer.Size())

	rs.replacer.SetEvictable(3, false)
	rs.Suite.Assert().Equal(0, rs.replacer.Size())

	// unknown frames are a no-op.
	rs.replacer.SetEvictable(7, true)
	rs.Suite.Assert().Equal(0, rs.replacer.Size())
}

func (rs *LRUKReplacerTestSuite) TestRemove() {

	rs.replacer.RecordAccess(1)
	rs.replacer.RecordAccess(2)
	rs.replacer.SetEvictable(1, true)
	rs.replacer.SetEvictable(2, true)

	rs.replacer.Remove(1)
	rs.Suite.Assert().Equal(1, rs.replacer.Size())

	// removing an unknown frame is a no-op.
	rs.replacer.Remove(5)
	rs.Suite.Assert().Equal(1, rs.replacer.Size())

	victim, ok := rs.replacer.Evict()

	rs.Suite.Require().True(ok)
	rs.Suite.Assert().Equal(FrameID(2), victim)
}

func (rs *LRUKReplacerTestSuite) TestTimestampOrderOverFrameId() {

	// frames recorded back to back evict in timestamp order, independent of
	// frame ID.
	rs.replacer.RecordAccess(4)
	rs.replacer.RecordAccess(2)

	rs.replacer.SetEvictable(4, true)
	rs.replacer.SetEvictable(2, true)

	victim, ok := rs.replacer.Evict()

	rs.Suite.Require().True(ok)
	rs.Suite.Assert().Equal(FrameID(4), victim)
}

func TestLRUKReplacer(t *testing.T) {

	suite.Run(t, new(LRUKReplacerTestSuite))
}
