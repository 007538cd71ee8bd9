package bplustree

import (
	"encoding/binary"
	"sort"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// leaf page layout: common header, then the page ID of the next leaf in key
// order, then an array of (key, rid) entries sorted by key.
const (
	offsetNextPageId = commonHeaderSize
	leafHeaderSize   = commonHeaderSize + 8
	leafEntrySize    = 16

	// LeafPageCapacity is the number of entries that physically fit in a leaf.
	// The configured max size must not exceed it.
	LeafPageCapacity = (bpm.PAGE_SIZE - leafHeaderSize) / leafEntrySize
)

// LeafPage is a typed view over a B+ tree leaf page.
type LeafPage struct {
	BPlusTreePage
}

func leafView(page *bpm.Page) LeafPage {
	return LeafPage{BPlusTreePage{page: page}}
}

func (leaf LeafPage) Init(pageId bpm.PageID, parentPageId bpm.PageID, maxSize int32) {

	leaf.setPageType(leafPage)
	leaf.SetSize(0)
	leaf.SetMaxSize(maxSize)
	leaf.SetPageId(pageId)
	leaf.SetParentPageId(parentPageId)
	leaf.SetNextPageId(bpm.INVALID_PAGE_ID)
}

func (leaf LeafPage) GetNextPageId() bpm.PageID {
	return bpm.PageID(binary.LittleEndian.Uint64(leaf.data()[offsetNextPageId:]))
}

func (leaf LeafPage) SetNextPageId(nextPageId bpm.PageID) {
	binary.LittleEndian.PutUint64(leaf.data()[offsetNextPageId:], uint64(nextPageId))
}

func leafEntryOffset(index int32) int {
	return leafHeaderSize + int(index)*leafEntrySize
}

func (leaf LeafPage) KeyAt(index int32) KeyType {
	return KeyType(binary.LittleEndian.Uint64(leaf.data()[leafEntryOffset(index):]))
}

func (leaf LeafPage) RidAt(index int32) RID {

	offset := leafEntryOffset(index) + 8

	return RID{
		PageId:  bpm.PageID(binary.LittleEndian.Uint32(leaf.data()[offset:])),
		SlotNum: binary.LittleEndian.Uint32(leaf.data()[offset+4:]),
	}
}

func (leaf LeafPage) setEntryAt(index int32, key KeyType, rid RID) {

	offset := leafEntryOffset(index)

	binary.LittleEndian.PutUint64(leaf.data()[offset:], uint64(key))
	binary.LittleEndian.PutUint32(leaf.data()[offset+8:], uint32(rid.PageId))
	binary.LittleEndian.PutUint32(leaf.data()[offset+12:], rid.SlotNum)
}

// copyEntries moves count entries from position src to position dst within
// the leaf, handling overlap.
func (leaf LeafPage) copyEntries(dst int32, src int32, count int32) {

	if count <= 0 {
		return
	}

	data := leaf.data()
	copy(data[leafEntryOffset(dst):leafEntryOffset(dst+count)], data[leafEntryOffset(src):leafEntryOffset(src+count)])
}

// KeyIndex returns the index of the first entry whose key is >= the target,
// or the current size if every key is smaller.
func (leaf LeafPage) KeyIndex(key KeyType) int32 {

	size := leaf.GetSize()

	index := sort.Search(int(size), func(i int) bool {
		return leaf.KeyAt(int32(i)) >= key
	})

	return int32(index)
}

// Lookup returns the rid stored for an exact key match.
func (leaf LeafPage) Lookup(key KeyType) (RID, bool) {

	index := leaf.KeyIndex(key)

	if index < leaf.GetSize() && leaf.KeyAt(index) == key {
		return leaf.RidAt(index), true
	}

	return RID{}, false
}

// Insert places the entry in sorted position and returns the new size.
// Duplicate keys are rejected.
func (leaf LeafPage) Insert(key KeyType, rid RID) (int32, bool) {

	index := leaf.KeyIndex(key)
	size := leaf.GetSize()

	if index < size && leaf.KeyAt(index) == key {
		return size, false
	}

	leaf.copyEntries(index+1, index, size-index)
	leaf.setEntryAt(index, key, rid)
	leaf.IncreaseSize(1)

	return size + 1, true
}

// RemoveRecord deletes the entry with the given key. It is a no-op if the key
// is absent.
func (leaf LeafPage) RemoveRecord(key KeyType) bool {

	index := leaf.KeyIndex(key)
	size := leaf.GetSize()

	if index >= size || leaf.KeyAt(index) != key {
		return false
	}

	leaf.copyEntries(index, index+1, size-index-1)
	leaf.IncreaseSize(-1)

	return true
}

// MoveHalfTo moves the upper half of the entries to an empty sibling created
// during a split.
func (leaf LeafPage) MoveHalfTo(sibling LeafPage) {

	size := leaf.GetSize()
	splitFrom := size/2 + 1

	moved := size - splitFrom

	copy(sibling.data()[leafEntryOffset(0):leafEntryOffset(moved)],
		leaf.data()[leafEntryOffset(splitFrom):leafEntryOffset(size)])

	sibling.SetSize(moved)
	leaf.SetSize(splitFrom)
}

// MoveAllTo appends every entry to the left sibling during a merge, and hands
// over the next pointer.
func (leaf LeafPage) MoveAllTo(left LeafPage) {

	size := leaf.GetSize()
	leftSize := left.GetSize()

	copy(left.data()[leafEntryOffset(leftSize):leafEntryOffset(leftSize+size)],
		leaf.data()[leafEntryOffset(0):leafEntryOffset(size)])

	left.SetSize(leftSize + size)
	left.SetNextPageId(leaf.GetNextPageId())
	leaf.SetSize(0)
}

// MoveLastToFrontOf lends this leaf's greatest entry to the right sibling.
func (leaf LeafPage) MoveLastToFrontOf(right LeafPage) {

	size := leaf.GetSize()
	key := leaf.KeyAt(size - 1)
	rid := leaf.RidAt(size - 1)

	rightSize := right.GetSize()
	right.copyEntries(1, 0, rightSize)
	right.setEntryAt(0, key, rid)
	right.IncreaseSize(1)

	leaf.IncreaseSize(-1)
}

// MoveFirstToEndOf lends this leaf's smallest entry to the left sibling.
func (leaf LeafPage) MoveFirstToEndOf(left LeafPage) {

	key := leaf.KeyAt(0)
	rid := leaf.RidAt(0)

	left.setEntryAt(left.GetSize(), key, rid)
	left.IncreaseSize(1)

	leaf.copyEntries(0, 1, leaf.GetSize()-1)
	leaf.IncreaseSize(-1)
}
