package bplustree

import (
	"encoding/binary"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

const (
	invalidPage  = int32(0)
	leafPage     = int32(1)
	internalPage = int32(2)
)

// common header layout shared by leaf and internal pages. All fields are
// little endian.
const (
	offsetPageType     = 0
	offsetSize         = 4
	offsetMaxSize      = 8
	offsetPageId       = 16
	offsetParentPageId = 24
	commonHeaderSize   = 32
)

// BPlusTreePage is a typed view over the common header of a tree page hosted
// in a buffer pool frame. Callers must hold the page latch for the duration
// of the view's use.
type BPlusTreePage struct {
	page *bpm.Page
}

func pageView(page *bpm.Page) BPlusTreePage {
	return BPlusTreePage{page: page}
}

func (node BPlusTreePage) data() []byte {
	return node.page.Data()
}

func (node BPlusTreePage) IsLeafPage() bool {
	return int32(binary.LittleEndian.Uint32(node.data()[offsetPageType:])) == leafPage
}

func (node BPlusTreePage) setPageType(pageType int32) {
	binary.LittleEndian.PutUint32(node.data()[offsetPageType:], uint32(pageType))
}

func (node BPlusTreePage) GetSize() int32 {
	return int32(binary.LittleEndian.Uint32(node.data()[offsetSize:]))
}

func (node BPlusTreePage) SetSize(size int32) {
	binary.LittleEndian.PutUint32(node.data()[offsetSize:], uint32(size))
}

func (node BPlusTreePage) IncreaseSize(delta int32) {
	node.SetSize(node.GetSize() + delta)
}

func (node BPlusTreePage) GetMaxSize() int32 {
	return int32(binary.LittleEndian.Uint32(node.data()[offsetMaxSize:]))
}

func (node BPlusTreePage) SetMaxSize(maxSize int32) {
	binary.LittleEndian.PutUint32(node.data()[offsetMaxSize:], uint32(maxSize))
}

// GetMinSize returns the smallest legal size of a non-root node. A leaf may
// hold as few as half its entries rounded down; an internal node must keep at
// least half its child pointers rounded up, so that no internal node ever
// degenerates to a single child.
func (node BPlusTreePage) GetMinSize() int32 {

	if node.IsLeafPage() {
		return node.GetMaxSize() / 2
	}
	return (node.GetMaxSize() + 1) / 2
}

func (node BPlusTreePage) GetPageId() bpm.PageID {
	return bpm.PageID(binary.LittleEndian.Uint64(node.data()[offsetPageId:]))
}

func (node BPlusTreePage) SetPageId(pageId bpm.PageID) {
	binary.LittleEndian.PutUint64(node.data()[offsetPageId:], uint64(pageId))
}

func (node BPlusTreePage) GetParentPageId() bpm.PageID {
	return bpm.PageID(binary.LittleEndian.Uint64(node.data()[offsetParentPageId:]))
}

func (node BPlusTreePage) SetParentPageId(parentPageId bpm.PageID) {
	binary.LittleEndian.PutUint64(node.data()[offsetParentPageId:], uint64(parentPageId))
}
