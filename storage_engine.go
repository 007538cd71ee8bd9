package main

import (
	"fmt"
	"sync"

	"github.com/wyvern-db/WyvernDB/bplustree"
	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

// StorageEngine ties the storage core together: it owns the disk manager and
// the buffer pool, and hands out named B+ tree indexes whose roots are
// tracked in the header page.
type StorageEngine struct {
	config     bpm.Config
	bufferPool *bpm.BufferPoolManager

	openIndexesMutex *sync.Mutex
	openIndexes      map[string]*bplustree.BPlusTree
}

func NewStorageEngine(filePath string, config bpm.Config) (*StorageEngine, error) {

	disk, err := bpm.NewDirectIODiskManager(filePath)

	if err != nil {
		return nil, fmt.Errorf("failed to open database file %q: %w", filePath, err)
	}

	return &StorageEngine{
		config:           config,
		bufferPool:       bpm.NewBufferPoolManager(config, disk, bpm.NewNoopLogManager()),
		openIndexesMutex: &sync.Mutex{},
		openIndexes:      make(map[string]*bplustree.BPlusTree),
	}, nil
}

// OpenIndex returns the named index, creating it on first use.
func (engine *StorageEngine) OpenIndex(name string) (*bplustree.BPlusTree, error) {

	engine.openIndexesMutex.Lock()
	defer engine.openIndexesMutex.Unlock()

	if tree, exists := engine.openIndexes[name]; exists {
		return tree, nil
	}

	tree, err := bplustree.NewBPlusTree(name, engine.bufferPool, engine.config)

	if err != nil {
		return nil, err
	}

	engine.openIndexes[name] = tree
	return tree, nil
}

// Close flushes every resident page and closes the database file.
func (engine *StorageEngine) Close() error {
	return engine.bufferPool.Close()
}
