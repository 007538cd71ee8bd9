package bplustree

import (
	"encoding/binary"
	"sort"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// internal page layout: common header, then an array of (key, child page ID)
// entries. The size field counts child pointers; the key in slot 0 is unused,
// only its child pointer is meaningful. For i >= 1, every key in the subtree
// under child i is >= key i.
const (
	internalHeaderSize = commonHeaderSize
	internalEntrySize  = 16

	// InternalPageCapacity is the number of child pointers that physically
	// fit in an internal page, less one slot of headroom so that a node may
	// overflow transiently before it is split.
	InternalPageCapacity = (bpm.PAGE_SIZE-internalHeaderSize)/internalEntrySize - 1
)

// InternalPage is a typed view over a B+ tree internal page.
type InternalPage struct {
	BPlusTreePage
}

func internalView(page *bpm.Page) InternalPage {
	return InternalPage{BPlusTreePage{page: page}}
}

func (node InternalPage) Init(pageId bpm.PageID, parentPageId bpm.PageID, maxSize int32) {

	node.setPageType(internalPage)
	node.SetSize(0)
	node.SetMaxSize(maxSize)
	node.SetPageId(pageId)
	node.SetParentPageId(parentPageId)
}

func internalEntryOffset(index int32) int {
	return internalHeaderSize + int(index)*internalEntrySize
}

func (node InternalPage) KeyAt(index int32) KeyType {
	return KeyType(binary.LittleEndian.Uint64(node.data()[internalEntryOffset(index):]))
}

func (node InternalPage) SetKeyAt(index int32, key KeyType) {
	binary.LittleEndian.PutUint64(node.data()[internalEntryOffset(index):], uint64(key))
}

func (node InternalPage) ValueAt(index int32) bpm.PageID {
	return bpm.PageID(binary.LittleEndian.Uint64(node.data()[internalEntryOffset(index)+8:]))
}

func (node InternalPage) SetValueAt(index int32, child bpm.PageID) {
	binary.LittleEndian.PutUint64(node.data()[internalEntryOffset(index)+8:], uint64(child))
}

// ValueIndex returns the slot holding the given child page ID, or -1.
func (node InternalPage) ValueIndex(child bpm.PageID) int32 {

	for i := int32(0); i < node.GetSize(); i++ {
		if node.ValueAt(i) == child {
			return i
		}
	}
	return -1
}

func (node InternalPage) copyEntries(dst int32, src int32, count int32) {

	if count <= 0 {
		return
	}

	data := node.data()
	copy(data[internalEntryOffset(dst):internalEntryOffset(dst+count)], data[internalEntryOffset(src):internalEntryOffset(src+count)])
}

// Lookup returns the child to descend into for the given key: the child of
// the largest slot i >= 1 with key i <= key, or the slot 0 child.
func (node InternalPage) Lookup(key KeyType) bpm.PageID {

	size := node.GetSize()

	// first slot in [1, size) whose key exceeds the target.
	index := sort.Search(int(size-1), func(i int) bool {
		return node.KeyAt(int32(i)+1) > key
	})

	return node.ValueAt(int32(index))
}

// PopulateNewRoot makes this freshly allocated page the root holding the two
// halves of a split root.
func (node InternalPage) PopulateNewRoot(left bpm.PageID, key KeyType, right bpm.PageID) {

	node.SetValueAt(0, left)
	node.SetKeyAt(1, key)
	node.SetValueAt(1, right)
	node.SetSize(2)
}

// InsertNodeAfter places (key, newChild) immediately after the slot holding
// oldChild, returning the new size.
func (node InternalPage) InsertNodeAfter(oldChild bpm.PageID, key KeyType, newChild bpm.PageID) int32 {

	index := node.ValueIndex(oldChild) + 1
	size := node.GetSize()

	node.copyEntries(index+1, index, size-index)
	node.SetKeyAt(index, key)
	node.SetValueAt(index, newChild)
	node.IncreaseSize(1)

	return size + 1
}

// Remove deletes the entry at the given slot.
func (node InternalPage) Remove(index int32) {

	node.copyEntries(index, index+1, node.GetSize()-index-1)
	node.IncreaseSize(-1)
}

// MoveHalfTo moves the upper half of the child pointers to an empty sibling
// created during a split, reparenting the moved children. The returned key is
// the separator to propagate upward; it is also retained in the sibling's
// unused slot 0.
func (node InternalPage) MoveHalfTo(sibling InternalPage, pool *bpm.BufferPoolManager) (KeyType, error) {

	size := node.GetSize()
	keep := (size + 1) / 2
	moved := size - keep

	separator := node.KeyAt(keep)

	copy(sibling.data()[internalEntryOffset(0):internalEntryOffset(moved)],
		node.data()[internalEntryOffset(keep):internalEntryOffset(size)])

	sibling.SetSize(moved)
	node.SetSize(keep)

	if err := sibling.reparentChildren(0, moved, pool); err != nil {
		return separator, err
	}

	return separator, nil
}

// MoveAllTo appends every child pointer to the left sibling during a merge.
// The parent's separator key descends as the key of the first migrated slot.
func (node InternalPage) MoveAllTo(left InternalPage, middleKey KeyType, pool *bpm.BufferPoolManager) error {

	size := node.GetSize()
	leftSize := left.GetSize()

	copy(left.data()[internalEntryOffset(leftSize):internalEntryOffset(leftSize+size)],
		node.data()[internalEntryOffset(0):internalEntryOffset(size)])

	left.SetKeyAt(leftSize, middleKey)
	left.SetSize(leftSize + size)
	node.SetSize(0)

	return left.reparentChildren(leftSize, leftSize+size, pool)
}

// MoveLastToFrontOf rotates this node's last child into the right sibling
// through the parent: the parent's separator descends as the key of the right
// sibling's old first slot, and this node's last key ascends to the parent.
// The ascending key is returned.
func (node InternalPage) MoveLastToFrontOf(right InternalPage, middleKey KeyType, pool *bpm.BufferPoolManager) (KeyType, error) {

	size := node.GetSize()
	ascending := node.KeyAt(size - 1)
	child := node.ValueAt(size - 1)

	rightSize := right.GetSize()
	right.copyEntries(1, 0, rightSize)
	right.SetKeyAt(1, middleKey)
	right.SetValueAt(0, child)
	right.IncreaseSize(1)

	node.IncreaseSize(-1)

	return ascending, right.reparentChildren(0, 1, pool)
}

// MoveFirstToEndOf rotates this node's first child into the left sibling
// through the parent. The key ascending to the parent is returned.
func (node InternalPage) MoveFirstToEndOf(left InternalPage, middleKey KeyType, pool *bpm.BufferPoolManager) (KeyType, error) {

	ascending := node.KeyAt(1)
	child := node.ValueAt(0)

	leftSize := left.GetSize()
	left.SetKeyAt(leftSize, middleKey)
	left.SetValueAt(leftSize, child)
	left.IncreaseSize(1)

	node.copyEntries(0, 1, node.GetSize()-1)
	node.IncreaseSize(-1)

	return ascending, left.reparentChildren(leftSize, leftSize+1, pool)
}

// reparentChildren points the parent page ID of the children in slots
// [from, to) at this node.
func (node InternalPage) reparentChildren(from int32, to int32, pool *bpm.BufferPoolManager) error {

	for i := from; i < to; i++ {

		childPage, err := pool.FetchPage(node.ValueAt(i))

		if err != nil {
			return err
		}

		pageView(childPage).SetParentPageId(node.GetPageId())
		pool.UnpinPage(childPage.PageId(), bpm.DIRTY)
	}

	return nil
}
