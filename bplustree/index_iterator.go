package bplustree

import (
	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// IndexIterator is a forward-only cursor over the tree's leaf chain. It holds
// exactly one pinned, share-latched leaf at a time; crossing to the next leaf
// releases the current one first. Reads see each leaf as it is visited, not a
// global snapshot.
type IndexIterator struct {
	bufferPool *bpm.BufferPoolManager

	// current leaf; nil once the iterator is exhausted or closed.
	page  *bpm.Page
	index int32
}

// Begin positions an iterator at the smallest key in the tree.
func (tree *BPlusTree) Begin() (*IndexIterator, error) {

	page, err := tree.findLeafRead(0, true)

	if err != nil {
		return nil, err
	}

	iterator := &IndexIterator{bufferPool: tree.bufferPool, page: page}

	// an empty tree yields an exhausted iterator.
	if page != nil && leafView(page).GetSize() == 0 {
		iterator.releaseLeaf()
	}

	return iterator, nil
}

// BeginAt positions an iterator at the smallest key >= the given key.
func (tree *BPlusTree) BeginAt(key KeyType) (*IndexIterator, error) {

	page, err := tree.findLeafRead(key, false)

	if err != nil {
		return nil, err
	}

	iterator := &IndexIterator{bufferPool: tree.bufferPool, page: page}

	if page != nil {

		iterator.index = leafView(page).KeyIndex(key)

		// every key in this leaf is smaller; start at the next leaf.
		if iterator.index >= leafView(page).GetSize() {
			if err := iterator.advanceLeaf(); err != nil {
				return nil, err
			}
		}
	}

	return iterator, nil
}

// End returns the exhausted sentinel.
func (tree *BPlusTree) End() *IndexIterator {
	return &IndexIterator{bufferPool: tree.bufferPool}
}

// IsEnd reports whether the iterator has run off the last leaf.
func (iterator *IndexIterator) IsEnd() bool {
	return iterator.page == nil
}

// Key returns the key at the current position.
func (iterator *IndexIterator) Key() KeyType {
	return leafView(iterator.page).KeyAt(iterator.index)
}

// RID returns the rid at the current position.
func (iterator *IndexIterator) RID() RID {
	return leafView(iterator.page).RidAt(iterator.index)
}

// Next advances the iterator by one entry, crossing to the next leaf when the
// current one is exhausted.
func (iterator *IndexIterator) Next() error {

	if iterator.page == nil {
		return nil
	}

	iterator.index++

	if iterator.index < leafView(iterator.page).GetSize() {
		return nil
	}

	return iterator.advanceLeaf()
}

// advanceLeaf releases the current leaf and latches its successor, skipping
// leaves emptied by a concurrent merge.
func (iterator *IndexIterator) advanceLeaf() error {

	nextPageId := leafView(iterator.page).GetNextPageId()

	iterator.releaseLeaf()

	for nextPageId != bpm.INVALID_PAGE_ID {

		nextPage, err := iterator.bufferPool.FetchPage(nextPageId)

		if err != nil {
			return err
		}

		nextPage.RLatch()

		if leafView(nextPage).GetSize() > 0 {

			iterator.page = nextPage
			iterator.index = 0

			return nil
		}

		nextPageId = leafView(nextPage).GetNextPageId()

		nextPage.RUnlatch()
		iterator.bufferPool.UnpinPage(nextPage.PageId(), bpm.CLEAN)
	}

	return nil
}

func (iterator *IndexIterator) releaseLeaf() {

	page := iterator.page
	iterator.page = nil
	iterator.index = 0

	page.RUnlatch()
	iterator.bufferPool.UnpinPage(page.PageId(), bpm.CLEAN)
}

// Close releases the leaf held by the iterator. Safe to call on an exhausted
// iterator.
func (iterator *IndexIterator) Close() {

	if iterator.page != nil {
		iterator.releaseLeaf()
	}
}
