package bplustree

import (
	"fmt"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// KeyType is the key of the index.
type KeyType = int64

// RID identifies a record by the heap page holding it and its slot within
// that page. It is the value type stored in the index leaves.
type RID struct {
	PageId  bpm.PageID
	SlotNum uint32
}

func (rid RID) String() string {
	return fmt.Sprintf("(%d, %d)", rid.PageId, rid.SlotNum)
}
