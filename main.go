package main

import (
	"fmt"

	"github.com/wyvern-db/WyvernDB/bplustree"
	bpm "github.com/wyvern-db/WyvernDB/buffer_pool_manager"
)

func main() {

	engine, err := NewStorageEngine("wyvern.db", bpm.DefaultConfig())

	if err != nil {
		panic(err)
	}

	index, err := engine.OpenIndex("users_pk")

	if err != nil {
		panic(err)
	}

	for key := int64(1); key <= 10; key++ {

		if _, err := index.Insert(key, bplustree.RID{PageId: bpm.PageID(key), SlotNum: 0}); err != nil {
			panic(err)
		}
	}

	iterator, err := index.Begin()

	if err != nil {
		panic(err)
	}

	for !iterator.IsEnd() {

		fmt.Printf("%d -> %s\n", iterator.Key(), iterator.RID())

		if err := iterator.Next(); err != nil {
			panic(err)
		}
	}

	iterator.Close()

	if err := engine.Close(); err != nil {
		panic(err)
	}
}
