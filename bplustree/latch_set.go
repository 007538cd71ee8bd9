package bplustree

import bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"

type opType int

const (
	opSearch opType = iota
	opInsert
	opDelete
)

// latchSet tracks the pages exclusively latched by one write descent, in
// root-to-leaf order, together with the tree's root pointer lock. Latches are
// dropped in root-to-leaf order to preserve the crabbing invariant.
type latchSet struct {
	tree       *BPlusTree
	pages      []*bpm.Page
	rootLocked bool
}

func newLatchSet(tree *BPlusTree) *latchSet {
	return &latchSet{tree: tree}
}

func (set *latchSet) add(page *bpm.Page) {
	set.pages = append(set.pages, page)
}

func (set *latchSet) unlockRoot() {

	if set.rootLocked {
		set.tree.rootLatch.Unlock()
		set.rootLocked = false
	}
}

// releaseAncestors drops every latch except the most recently added one.
// Called when the current child is safe for the operation, meaning no
// structural change can propagate above it; the ancestors are unmodified.
func (set *latchSet) releaseAncestors() {

	for _, page := range set.pages[:len(set.pages)-1] {
		page.WUnlatch()
		set.tree.bufferPool.UnpinPage(page.PageId(), bpm.CLEAN)
	}

	set.pages = set.pages[len(set.pages)-1:]
	set.unlockRoot()
}

// releaseAll drops every latch in the set and unpins each page.
func (set *latchSet) releaseAll(dirty bool) {

	for _, page := range set.pages {
		page.WUnlatch()
		set.tree.bufferPool.UnpinPage(page.PageId(), dirty)
	}

	set.pages = nil
	set.unlockRoot()
}

// removeAt drops a single page from the set, optionally returning it to the
// buffer pool's free space. Used when a merge empties a node: the page is
// unreachable once its parent slot is gone, so releasing it out of order is
// harmless.
func (set *latchSet) removeAt(pos int, dirty bool, deletePage bool) {

	page := set.pages[pos]
	pageId := page.PageId()

	set.pages = append(set.pages[:pos], set.pages[pos+1:]...)

	page.WUnlatch()
	set.tree.bufferPool.UnpinPage(pageId, dirty)

	if deletePage {
		set.tree.bufferPool.DeletePage(pageId)
	}
}
