// This program performs administrative tasks against the storage of a
// stopped ledger node.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/avisen/ledger/app/tooling/admin/commands"
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/storage/leveldb"
	"github.com/avisen/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args   conf.Args
		DBPath string `conf:"default:zblock/ledger"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger storage admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	strg, err := leveldb.New(cfg.DBPath)
	if err != nil {
		return err
	}

	db, err := database.New(strg)
	if err != nil {
		strg.Close()
		return err
	}
	defer db.Close()

	log.Infow("admin", "dbpath", cfg.DBPath, "chainsize", db.ChainSize())

	return processCommands(cfg.Args, db, strg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, db *database.Database, strg *leveldb.LevelDB) error {
	switch args.Num(0) {
	case "blocks":
		if err := commands.Blocks(args, db); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	case "article":
		if err := commands.Article(args, db); err != nil {
			return fmt.Errorf("getting article: %w", err)
		}
	case "peers":
		if err := commands.Peers(strg); err != nil {
			return fmt.Errorf("getting peers: %w", err)
		}
	default:
		fmt.Println("blocks [page]: list a page of blocks, newest first")
		fmt.Println("article <id>:  show a committed article")
		fmt.Println("peers:         list the persisted peers")
	}

	return nil
}
