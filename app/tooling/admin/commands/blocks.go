// Package commands contains the functionality for the admin tool.
package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/conf/v3"
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// Blocks prints a page of blocks, newest first.
func Blocks(args conf.Args, db *database.Database) error {
	var page int
	if p := args.Num(1); p != "" {
		var err error
		if page, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("page %q: %w", p, err)
		}
	}

	blocks, err := db.Blocks(page, database.PageSize, database.SortDESC)
	if err != nil {
		return err
	}

	for _, blk := range blocks {
		fmt.Printf("Height: %d  Hash: %s  Prev: %s  Articles: %d  Publishers: %d\n",
			blk.Height, blk.Hash, blk.PreviousHash, len(blk.Data.Articles), len(blk.Data.Publishers))
	}

	return nil
}

// Article prints a committed article.
func Article(args conf.Args, db *database.Database) error {
	id := args.Num(1)
	if id == "" {
		return fmt.Errorf("article id is required")
	}

	a, err := db.Article(id)
	if err != nil {
		return err
	}

	fmt.Printf("ID: %s\nAuthor: %s\nByline: %s\nHeadline: %s\nSection: %s\nContent: %s\nDate: %s\n",
		a.ID, a.AuthorKey, a.Byline, a.Headline, a.Section, a.ContentHash, a.Date)

	return nil
}

// Peers prints the peers persisted by the node.
func Peers(strg peer.Storage) error {
	peers, err := strg.Peers()
	if err != nil {
		return err
	}

	for _, p := range peers {
		fmt.Printf("Address: %s  Type: %s\n", p.Address, p.Type)
	}

	return nil
}
