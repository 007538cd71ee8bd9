package bplustree

import (
	"fmt"
	"log/slog"
	"sync"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// BPlusTree is a concurrent ordered index over (key, rid) pairs, backed by
// pages fetched from the buffer pool. Threads descend the tree with latch
// crabbing: a write descent keeps ancestors exclusively latched until the
// child is known to be safe for the operation.
//
// Keys are unique. The root page ID is persisted in the header page under the
// index name; INVALID_PAGE_ID denotes an empty tree.
type BPlusTree struct {
	indexName  string
	bufferPool *bpm.BufferPoolManager

	leafMaxSize     int32
	internalMaxSize int32

	// rootLatch orders access to rootPageId.
	rootLatch  sync.RWMutex
	rootPageId bpm.PageID
}

// NewBPlusTree opens the named index, registering it in the header page if it
// does not exist yet.
func NewBPlusTree(indexName string, bufferPool *bpm.BufferPoolManager, config bpm.Config) (*BPlusTree, error) {

	if config.LeafMaxSize < 3 || config.LeafMaxSize > LeafPageCapacity {
		return nil, fmt.Errorf("leaf max size %d out of range [3, %d]", config.LeafMaxSize, LeafPageCapacity)
	}

	if config.InternalMaxSize < 3 || config.InternalMaxSize > InternalPageCapacity {
		return nil, fmt.Errorf("internal max size %d out of range [3, %d]", config.InternalMaxSize, InternalPageCapacity)
	}

	tree := &BPlusTree{
		indexName:       indexName,
		bufferPool:      bufferPool,
		leafMaxSize:     config.LeafMaxSize,
		internalMaxSize: config.InternalMaxSize,
		rootPageId:      bpm.INVALID_PAGE_ID,
	}

	headerPage, err := bufferPool.FetchPage(bpm.HEADER_PAGE_ID)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch header page: %w", err)
	}

	headerPage.WLatch()
	header := headerPageView(headerPage)

	rootPageId, found := header.GetRootId(indexName)

	if found {
		tree.rootPageId = rootPageId
		headerPage.WUnlatch()
		bufferPool.UnpinPage(bpm.HEADER_PAGE_ID, bpm.CLEAN)

		return tree, nil
	}

	registered := header.InsertRecord(indexName, bpm.INVALID_PAGE_ID)
	headerPage.WUnlatch()
	bufferPool.UnpinPage(bpm.HEADER_PAGE_ID, bpm.DIRTY)

	if !registered {
		return nil, fmt.Errorf("failed to register index %q in header page", indexName)
	}

	slog.Info("registered new index", "indexName", indexName, "at", "BPlusTree")

	return tree, nil
}

// IsEmpty reports whether the tree holds no entries.
func (tree *BPlusTree) IsEmpty() bool {

	tree.rootLatch.RLock()
	defer tree.rootLatch.RUnlock()

	return tree.rootPageId == bpm.INVALID_PAGE_ID
}

// GetRootPageId returns the page ID of the current root.
func (tree *BPlusTree) GetRootPageId() bpm.PageID {

	tree.rootLatch.RLock()
	defer tree.rootLatch.RUnlock()

	return tree.rootPageId
}

// updateRootPageId rewrites this index's record in the header page. The
// caller must hold rootLatch exclusively.
func (tree *BPlusTree) updateRootPageId() error {

	headerPage, err := tree.bufferPool.FetchPage(bpm.HEADER_PAGE_ID)

	if err != nil {
		return fmt.Errorf("failed to fetch header page: %w", err)
	}

	headerPage.WLatch()
	headerPageView(headerPage).UpdateRecord(tree.indexName, tree.rootPageId)
	headerPage.WUnlatch()

	tree.bufferPool.UnpinPage(bpm.HEADER_PAGE_ID, bpm.DIRTY)

	return nil
}

// isSafe reports whether an operation descending into this node can no longer
// propagate a structural change above it.
func isSafe(page *bpm.Page, op opType, isRoot bool) bool {

	node := pageView(page)
	size := node.GetSize()

	if op == opInsert {

		if node.IsLeafPage() {
			return size < node.GetMaxSize()-1
		}
		return size < node.GetMaxSize()
	}

	// the root is exempt from minimum-size constraints; it is unsafe for
	// deletion only when the operation could collapse it.
	if isRoot {

		if node.IsLeafPage() {
			return size > 1
		}
		return size > 2
	}

	return size > node.GetMinSize()
}

// findLeafRead descends to a leaf with read crabbing: each child is latched
// in shared mode before the parent latch is dropped. The returned leaf is
// pinned and share latched; nil if the tree is empty.
func (tree *BPlusTree) findLeafRead(key KeyType, leftMost bool) (*bpm.Page, error) {

	tree.rootLatch.RLock()

	if tree.rootPageId == bpm.INVALID_PAGE_ID {
		tree.rootLatch.RUnlock()
		return nil, nil
	}

	page, err := tree.bufferPool.FetchPage(tree.rootPageId)

	if err != nil {
		tree.rootLatch.RUnlock()
		return nil, err
	}

	page.RLatch()
	tree.rootLatch.RUnlock()

	for !pageView(page).IsLeafPage() {

		node := internalView(page)

		var childId bpm.PageID

		if leftMost {
			childId = node.ValueAt(0)
		} else {
			childId = node.Lookup(key)
		}

		childPage, err := tree.bufferPool.FetchPage(childId)

		if err != nil {
			page.RUnlatch()
			tree.bufferPool.UnpinPage(page.PageId(), bpm.CLEAN)
			return nil, err
		}

		childPage.RLatch()
		page.RUnlatch()
		tree.bufferPool.UnpinPage(page.PageId(), bpm.CLEAN)

		page = childPage
	}

	return page, nil
}

// findLeafWrite descends to the leaf responsible for key with write crabbing,
// recording every exclusively latched page in the latch set. The caller must
// hold rootLatch exclusively (tracked in the set) and the tree must not be
// empty.
func (tree *BPlusTree) findLeafWrite(key KeyType, op opType, set *latchSet) (*bpm.Page, error) {

	page, err := tree.bufferPool.FetchPage(tree.rootPageId)

	if err != nil {
		return nil, err
	}

	page.WLatch()
	set.add(page)

	if isSafe(page, op, true) {
		set.unlockRoot()
	}

	for !pageView(page).IsLeafPage() {

		childId := internalView(page).Lookup(key)

		childPage, err := tree.bufferPool.FetchPage(childId)

		if err != nil {
			return nil, err
		}

		childPage.WLatch()
		set.add(childPage)

		if isSafe(childPage, op, false) {
			set.releaseAncestors()
		}

		page = childPage
	}

	return page, nil
}

// GetValue performs a point lookup. The result holds zero or one rid.
func (tree *BPlusTree) GetValue(key KeyType) ([]RID, error) {

	page, err := tree.findLeafRead(key, false)

	if err != nil || page == nil {
		return nil, err
	}

	rid, found := leafView(page).Lookup(key)

	page.RUnlatch()
	tree.bufferPool.UnpinPage(page.PageId(), bpm.CLEAN)

	if !found {
		return nil, nil
	}

	return []RID{rid}, nil
}

// Insert adds a unique key to the index. Returns false, leaving the tree
// unchanged, if the key is already present.
func (tree *BPlusTree) Insert(key KeyType, rid RID) (bool, error) {

	set := newLatchSet(tree)

	tree.rootLatch.Lock()
	set.rootLocked = true

	if tree.rootPageId == bpm.INVALID_PAGE_ID {

		err := tree.startNewTree(key, rid)
		set.unlockRoot()

		return err == nil, err
	}

	leaf, err := tree.findLeafWrite(key, opInsert, set)

	if err != nil {
		set.releaseAll(bpm.CLEAN)
		return false, err
	}

	leafNode := leafView(leaf)

	if _, exists := leafNode.Lookup(key); exists {
		set.releaseAll(bpm.CLEAN)
		return false, nil
	}

	leafNode.Insert(key, rid)

	if leafNode.GetSize() >= leafNode.GetMaxSize() {

		if err := tree.splitLeaf(set, leafNode); err != nil {
			set.releaseAll(bpm.DIRTY)
			return false, err
		}
	}

	set.releaseAll(bpm.DIRTY)

	return true, nil
}

// startNewTree allocates the first leaf as the root. The caller must hold
// rootLatch exclusively.
func (tree *BPlusTree) startNewTree(key KeyType, rid RID) error {

	rootPage, err := tree.bufferPool.NewPage()

	if err != nil {
		return err
	}

	root := leafView(rootPage)
	root.Init(rootPage.PageId(), bpm.INVALID_PAGE_ID, tree.leafMaxSize)
	root.Insert(key, rid)

	tree.rootPageId = rootPage.PageId()
	tree.bufferPool.UnpinPage(rootPage.PageId(), bpm.DIRTY)

	return tree.updateRootPageId()
}

// splitLeaf allocates a sibling leaf, moves the upper half of the entries to
// it, links it into the leaf chain and propagates the separator upward. The
// leaf being split is the last page of the latch set.
func (tree *BPlusTree) splitLeaf(set *latchSet, leaf LeafPage) error {

	siblingPage, err := tree.bufferPool.NewPage()

	if err != nil {
		return err
	}

	sibling := leafView(siblingPage)
	sibling.Init(siblingPage.PageId(), leaf.GetParentPageId(), tree.leafMaxSize)

	leaf.MoveHalfTo(sibling)
	sibling.SetNextPageId(leaf.GetNextPageId())
	leaf.SetNextPageId(sibling.GetPageId())

	err = tree.insertIntoParent(set, len(set.pages)-1, sibling.KeyAt(0), siblingPage)

	tree.bufferPool.UnpinPage(siblingPage.PageId(), bpm.DIRTY)

	return err
}

// insertIntoParent inserts the separator for a freshly split node into its
// parent, splitting ancestors as needed. childPos indexes the left half's
// page in the latch set; rightPage is its new sibling, pinned by the caller.
func (tree *BPlusTree) insertIntoParent(set *latchSet, childPos int, key KeyType, rightPage *bpm.Page) error {

	leftPage := set.pages[childPos]

	if childPos == 0 {

		// the split reached the top of the retained chain, which crabbing
		// guarantees is the root.
		newRootPage, err := tree.bufferPool.NewPage()

		if err != nil {
			return err
		}

		newRoot := internalView(newRootPage)
		newRoot.Init(newRootPage.PageId(), bpm.INVALID_PAGE_ID, tree.internalMaxSize)
		newRoot.PopulateNewRoot(leftPage.PageId(), key, rightPage.PageId())

		pageView(leftPage).SetParentPageId(newRootPage.PageId())
		pageView(rightPage).SetParentPageId(newRootPage.PageId())

		tree.rootPageId = newRootPage.PageId()
		tree.bufferPool.UnpinPage(newRootPage.PageId(), bpm.DIRTY)

		slog.Debug("tree grew a level", "newRootPageId", tree.rootPageId, "indexName", tree.indexName, "at", "BPlusTree")

		return tree.updateRootPageId()
	}

	parentPage := set.pages[childPos-1]
	parent := internalView(parentPage)

	parent.InsertNodeAfter(leftPage.PageId(), key, rightPage.PageId())
	pageView(rightPage).SetParentPageId(parentPage.PageId())

	if parent.GetSize() <= parent.GetMaxSize() {
		return nil
	}

	siblingPage, err := tree.bufferPool.NewPage()

	if err != nil {
		return err
	}

	sibling := internalView(siblingPage)
	sibling.Init(siblingPage.PageId(), parent.GetParentPageId(), tree.internalMaxSize)

	separator, err := parent.MoveHalfTo(sibling, tree.bufferPool)

	if err != nil {
		tree.bufferPool.UnpinPage(siblingPage.PageId(), bpm.DIRTY)
		return err
	}

	err = tree.insertIntoParent(set, childPos-1, separator, siblingPage)

	tree.bufferPool.UnpinPage(siblingPage.PageId(), bpm.DIRTY)

	return err
}

// Remove deletes a key from the index. Removing an absent key is a no-op.
func (tree *BPlusTree) Remove(key KeyType) error {

	set := newLatchSet(tree)

	tree.rootLatch.Lock()
	set.rootLocked = true

	if tree.rootPageId == bpm.INVALID_PAGE_ID {
		set.unlockRoot()
		return nil
	}

	leaf, err := tree.findLeafWrite(key, opDelete, set)

	if err != nil {
		set.releaseAll(bpm.CLEAN)
		return err
	}

	if !leafView(leaf).RemoveRecord(key) {
		set.releaseAll(bpm.CLEAN)
		return nil
	}

	err = tree.handleUnderflow(set, len(set.pages)-1)
	set.releaseAll(bpm.DIRTY)

	return err
}

// handleUnderflow restores the minimum-size invariant of the node at position
// pos of the latch set, borrowing from or merging with a sibling, recursing
// into the parent when a merge shrinks it.
func (tree *BPlusTree) handleUnderflow(set *latchSet, pos int) error {

	page := set.pages[pos]
	node := pageView(page)
	pool := tree.bufferPool

	if pos == 0 {

		if set.rootLocked {
			return tree.adjustRoot(set)
		}

		// the top of the retained chain was safe for the deletion, so no
		// structural change can reach it.
		return nil
	}

	if node.GetSize() >= node.GetMinSize() {
		return nil
	}

	parentPage := set.pages[pos-1]
	parent := internalView(parentPage)
	index := parent.ValueIndex(page.PageId())

	// sibling latches are safe to take while holding this node: writers on a
	// sibling pair are serialized by the parent latch, and the iterator never
	// blocks while holding a leaf latch.
	var leftPage, rightPage *bpm.Page

	releaseSibling := func(sibling *bpm.Page, dirty bool) {
		if sibling != nil {
			sibling.WUnlatch()
			pool.UnpinPage(sibling.PageId(), dirty)
		}
	}

	if index > 0 {

		var err error
		leftPage, err = pool.FetchPage(parent.ValueAt(index - 1))

		if err != nil {
			return err
		}

		leftPage.WLatch()

		if pageView(leftPage).GetSize() > pageView(leftPage).GetMinSize() {

			err = tree.borrowFromLeft(page, leftPage, parent, index)
			releaseSibling(leftPage, bpm.DIRTY)
			return err
		}
	}

	if index < parent.GetSize()-1 {

		var err error
		rightPage, err = pool.FetchPage(parent.ValueAt(index + 1))

		if err != nil {
			releaseSibling(leftPage, bpm.CLEAN)
			return err
		}

		rightPage.WLatch()

		if pageView(rightPage).GetSize() > pageView(rightPage).GetMinSize() {

			err = tree.borrowFromRight(page, rightPage, parent, index)
			releaseSibling(leftPage, bpm.CLEAN)
			releaseSibling(rightPage, bpm.DIRTY)
			return err
		}
	}

	// neither sibling can lend; merge, preferring the left sibling.
	if leftPage != nil {

		err := tree.mergeIntoLeft(set, pos, parent, index, leftPage)
		releaseSibling(rightPage, bpm.CLEAN)
		releaseSibling(leftPage, bpm.DIRTY)

		if err != nil {
			return err
		}

		return tree.handleUnderflow(set, pos-1)
	}

	err := tree.mergeRightIntoNode(set, pos, parent, index, rightPage)

	if err != nil {
		return err
	}

	return tree.handleUnderflow(set, pos-1)
}

func (tree *BPlusTree) borrowFromLeft(page *bpm.Page, leftPage *bpm.Page, parent InternalPage, index int32) error {

	if pageView(page).IsLeafPage() {

		node := leafView(page)
		leafView(leftPage).MoveLastToFrontOf(node)
		parent.SetKeyAt(index, node.KeyAt(0))

		return nil
	}

	ascending, err := internalView(leftPage).MoveLastToFrontOf(internalView(page), parent.KeyAt(index), tree.bufferPool)
	parent.SetKeyAt(index, ascending)

	return err
}

func (tree *BPlusTree) borrowFromRight(page *bpm.Page, rightPage *bpm.Page, parent InternalPage, index int32) error {

	if pageView(page).IsLeafPage() {

		right := leafView(rightPage)
		right.MoveFirstToEndOf(leafView(page))
		parent.SetKeyAt(index+1, right.KeyAt(0))

		return nil
	}

	ascending, err := internalView(rightPage).MoveFirstToEndOf(internalView(page), parent.KeyAt(index+1), tree.bufferPool)
	parent.SetKeyAt(index+1, ascending)

	return err
}

// mergeIntoLeft folds the node at pos into its left sibling and removes the
// node's slot from the parent. The emptied page is released and deleted.
func (tree *BPlusTree) mergeIntoLeft(set *latchSet, pos int, parent InternalPage, index int32, leftPage *bpm.Page) error {

	page := set.pages[pos]

	if pageView(page).IsLeafPage() {
		leafView(page).MoveAllTo(leafView(leftPage))
	} else {

		if err := internalView(page).MoveAllTo(internalView(leftPage), parent.KeyAt(index), tree.bufferPool); err != nil {
			return err
		}
	}

	parent.Remove(index)
	set.removeAt(pos, bpm.DIRTY, true)

	return nil
}

// mergeRightIntoNode folds the right sibling into the node at pos and removes
// the sibling's slot from the parent.
func (tree *BPlusTree) mergeRightIntoNode(set *latchSet, pos int, parent InternalPage, index int32, rightPage *bpm.Page) error {

	page := set.pages[pos]

	if pageView(page).IsLeafPage() {
		leafView(rightPage).MoveAllTo(leafView(page))
	} else {

		if err := internalView(rightPage).MoveAllTo(internalView(page), parent.KeyAt(index+1), tree.bufferPool); err != nil {
			return err
		}
	}

	parent.Remove(index + 1)

	rightPageId := rightPage.PageId()
	rightPage.WUnlatch()
	tree.bufferPool.UnpinPage(rightPageId, bpm.DIRTY)
	tree.bufferPool.DeletePage(rightPageId)

	return nil
}

// adjustRoot shrinks the tree when a deletion leaves the root degenerate: an
// internal root with a single child hands the root role to that child, and an
// empty leaf root leaves the tree empty.
func (tree *BPlusTree) adjustRoot(set *latchSet) error {

	rootPage := set.pages[0]
	root := pageView(rootPage)

	if !root.IsLeafPage() && root.GetSize() == 1 {

		childId := internalView(rootPage).ValueAt(0)

		childPage, err := tree.bufferPool.FetchPage(childId)

		if err != nil {
			return err
		}

		pageView(childPage).SetParentPageId(bpm.INVALID_PAGE_ID)
		tree.bufferPool.UnpinPage(childId, bpm.DIRTY)

		tree.rootPageId = childId
		set.removeAt(0, bpm.DIRTY, true)

		slog.Debug("tree shrank a level", "newRootPageId", childId, "indexName", tree.indexName, "at", "BPlusTree")

		return tree.updateRootPageId()
	}

	if root.IsLeafPage() && root.GetSize() == 0 {

		tree.rootPageId = bpm.INVALID_PAGE_ID
		set.removeAt(0, bpm.DIRTY, true)

		return tree.updateRootPageId()
	}

	return nil
}
