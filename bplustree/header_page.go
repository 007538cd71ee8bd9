package bplustree

import (
	"bytes"
	"encoding/binary"

	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// header page layout: a record count followed by fixed-width records mapping
// an index name to its root page ID. The header page always lives at page 0.
const (
	offsetRecordCount  = 0
	headerRecordsStart = 8
	headerNameSize     = 32
	headerRecordSize   = headerNameSize + 8

	HeaderPageCapacity = (bpm.PAGE_SIZE - headerRecordsStart) / headerRecordSize
)

// HeaderPage is a typed view over the header page. Callers must hold the page
// latch for the duration of the view's use.
type HeaderPage struct {
	page *bpm.Page
}

func headerPageView(page *bpm.Page) HeaderPage {
	return HeaderPage{page: page}
}

func (header HeaderPage) data() []byte {
	return header.page.Data()
}

func (header HeaderPage) GetRecordCount() int32 {
	return int32(binary.LittleEndian.Uint32(header.data()[offsetRecordCount:]))
}

func (header HeaderPage) setRecordCount(count int32) {
	binary.LittleEndian.PutUint32(header.data()[offsetRecordCount:], uint32(count))
}

func headerRecordOffset(index int32) int {
	return headerRecordsStart + int(index)*headerRecordSize
}

func (header HeaderPage) nameAt(index int32) string {

	offset := headerRecordOffset(index)
	name := header.data()[offset : offset+headerNameSize]

	if end := bytes.IndexByte(name, 0); end >= 0 {
		name = name[:end]
	}
	return string(name)
}

func (header HeaderPage) rootAt(index int32) bpm.PageID {
	return bpm.PageID(binary.LittleEndian.Uint64(header.data()[headerRecordOffset(index)+headerNameSize:]))
}

func (header HeaderPage) setRecordAt(index int32, name string, rootPageId bpm.PageID) {

	offset := headerRecordOffset(index)
	nameField := header.data()[offset : offset+headerNameSize]

	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, name)

	binary.LittleEndian.PutUint64(header.data()[offset+headerNameSize:], uint64(rootPageId))
}

func (header HeaderPage) findRecord(name string) int32 {

	for i := int32(0); i < header.GetRecordCount(); i++ {
		if header.nameAt(i) == name {
			return i
		}
	}
	return -1
}

// GetRootId returns the root page ID registered for the named index.
func (header HeaderPage) GetRootId(name string) (bpm.PageID, bool) {

	index := header.findRecord(name)

	if index == -1 {
		return bpm.INVALID_PAGE_ID, false
	}
	return header.rootAt(index), true
}

// InsertRecord registers a new index. Returns false if the name is already
// registered, too long, or the header page is full.
func (header HeaderPage) InsertRecord(name string, rootPageId bpm.PageID) bool {

	if len(name) > headerNameSize || header.findRecord(name) != -1 {
		return false
	}

	count := header.GetRecordCount()

	if count >= HeaderPageCapacity {
		return false
	}

	header.setRecordAt(count, name, rootPageId)
	header.setRecordCount(count + 1)

	return true
}

// UpdateRecord rewrites the root page ID of a registered index.
func (header HeaderPage) UpdateRecord(name string, rootPageId bpm.PageID) bool {

	index := header.findRecord(name)

	if index == -1 {
		return false
	}

	header.setRecordAt(index, name, rootPageId)
	return true
}

// DeleteRecord removes a registered index.
func (header HeaderPage) DeleteRecord(name string) bool {

	index := header.findRecord(name)

	if index == -1 {
		return false
	}

	count := header.GetRecordCount()

	for i := index; i < count-1; i++ {
		header.setRecordAt(i, header.nameAt(i+1), header.rootAt(i+1))
	}

	header.setRecordCount(count - 1)
	return true
}
