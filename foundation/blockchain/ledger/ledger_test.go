package ledger_test

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/avisen/ledger/foundation/blockchain/storage/memory"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	founderHexKey  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	outsiderHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func loadKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hexKey)
	ifErrFailNow(t, err)
	return key
}

// newLedger constructs a ledger on memory storage, signing with the founder
// key. When withGenesis is set the chain starts with a genesis block.
func newLedger(t *testing.T, withGenesis bool) *ledger.Ledger {
	founder := loadKey(t, founderHexKey)

	strg, err := memory.New()
	ifErrFailNow(t, err)

	l, err := ledger.New(ledger.Config{
		Storage:      strg,
		SigningKey:   founder,
		AuthorityKey: signature.PublicKeyString(founder.PublicKey),
		EvHandler:    func(v string, args ...any) { t.Logf(v, args...) },
	})
	ifErrFailNow(t, err)

	if withGenesis {
		_, err := l.CreateGenesis()
		ifErrFailNow(t, err)
	}

	return l
}

func article(t *testing.T, key *ecdsa.PrivateKey, n int) database.Article {
	a, err := database.SignArticle(key, "Jane Doe", fmt.Sprintf("Headline %d", n), "World", signature.Hash(fmt.Sprintf("content %d", n)), "2024-05-01")
	ifErrFailNow(t, err)
	return a
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)

	tip, exists := l.LatestBlock()
	if !exists || l.ChainSize() != 1 {
		t.Fatalf("\t%s\tShould have the genesis as the only block.", failed)
	}
	t.Logf("\t%s\tShould have the genesis as the only block.", success)

	if !tip.IsGenesis() || !l.IsPublisher(signature.PublicKeyString(founder.PublicKey)) {
		t.Fatalf("\t%s\tShould recognize the founder as publisher.", failed)
	}
	t.Logf("\t%s\tShould recognize the founder as publisher.", success)

	if _, err := l.CreateGenesis(); err == nil {
		t.Fatalf("\t%s\tShould not create a second genesis.", failed)
	}
	t.Logf("\t%s\tShould not create a second genesis.", success)
}

func Test_MintThreshold(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)
	gen, _ := l.LatestBlock()

	pending := database.Publisher{PublicKey: signature.PublicKeyString(loadKey(t, outsiderHexKey).PublicKey)}
	sig, err := signature.Sign(founder, pending.PublicKey)
	ifErrFailNow(t, err)

	if !l.AcceptPublisher(pending, sig) {
		t.Fatalf("\t%s\tShould admit the pending publisher.", failed)
	}

	for i := 0; i < ledger.MintThreshold-1; i++ {
		res, err := l.ProcessArticle(article(t, founder, i))
		ifErrFailNow(t, err)

		if !res.Accepted || res.Block != nil {
			t.Fatalf("\t%s\tShould buffer article %d without minting: %+v", failed, i, res)
		}
	}
	t.Logf("\t%s\tShould buffer %d articles without minting.", success, ledger.MintThreshold-1)

	if n := len(l.UnprocessedArticles()); n != ledger.MintThreshold-1 {
		t.Fatalf("\t%s\tShould report %d unprocessed articles: %d", failed, ledger.MintThreshold-1, n)
	}
	t.Logf("\t%s\tShould report %d unprocessed articles.", success, ledger.MintThreshold-1)

	res, err := l.ProcessArticle(article(t, founder, ledger.MintThreshold))
	ifErrFailNow(t, err)

	if !res.Accepted || res.Block == nil {
		t.Fatalf("\t%s\tShould mint a block on the threshold article.", failed)
	}
	t.Logf("\t%s\tShould mint a block on the threshold article.", success)

	block := *res.Block
	if block.Height != gen.Height+1 || block.PreviousHash != gen.Hash {
		t.Fatalf("\t%s\tShould extend the tip: height %d prev %s", failed, block.Height, block.PreviousHash)
	}
	t.Logf("\t%s\tShould extend the tip.", success)

	if len(block.Data.Articles) != ledger.MintThreshold || !block.Data.HasPublisher(pending.PublicKey) || !block.Data.HasPublisher(gen.PublisherKey) {
		t.Fatalf("\t%s\tShould carry the articles and the merged publisher set.", failed)
	}
	t.Logf("\t%s\tShould carry the articles and the merged publisher set.", success)

	if err := block.ValidateBlock(gen, 1, func(string, ...any) {}); err != nil {
		t.Fatalf("\t%s\tShould mint a block peers accept: %s", failed, err)
	}
	t.Logf("\t%s\tShould mint a block peers accept.", success)

	if len(l.UnprocessedArticles()) != 0 || len(l.UnprocessedPublishers()) != 0 {
		t.Fatalf("\t%s\tShould clear both buffers.", failed)
	}
	t.Logf("\t%s\tShould clear both buffers.", success)

	got, err := l.GetArticle(block.Data.Articles[3].ID)
	ifErrFailNow(t, err)
	if got.ID != block.Data.Articles[3].ID {
		t.Fatalf("\t%s\tShould find a committed article.", failed)
	}
	t.Logf("\t%s\tShould find a committed article.", success)
}

func Test_ConcurrentMint(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)

	for i := 0; i < ledger.MintThreshold-1; i++ {
		_, err := l.ProcessArticle(article(t, founder, i))
		ifErrFailNow(t, err)
	}

	// Every submission races on a buffer one short of the threshold.
	const submitters = ledger.MintThreshold
	articles := make([]database.Article, submitters)
	for i := range articles {
		articles[i] = article(t, founder, ledger.MintThreshold+i)
	}

	var wg sync.WaitGroup
	results := make(chan ledger.ProcessedArticle, submitters)
	errs := make(chan error, submitters)

	for _, a := range articles {
		wg.Add(1)
		go func(a database.Article) {
			defer wg.Done()

			res, err := l.ProcessArticle(a)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}(a)
	}

	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("\t%s\tShould process every article: %s", failed, err)
	}

	var minted []database.Block
	for res := range results {
		if !res.Accepted {
			t.Fatalf("\t%s\tShould accept every article.", failed)
		}
		if res.Block != nil {
			minted = append(minted, *res.Block)
		}
	}

	if len(minted) != 1 || minted[0].Height != 1 {
		t.Fatalf("\t%s\tShould mint exactly one block at height 1: %d", failed, len(minted))
	}
	t.Logf("\t%s\tShould mint exactly one block at height 1.", success)

	if l.ChainSize() != 2 || len(minted[0].Data.Articles) != ledger.MintThreshold {
		t.Fatalf("\t%s\tShould commit one full block: size %d", failed, l.ChainSize())
	}
	t.Logf("\t%s\tShould commit one full block.", success)

	if n := len(l.UnprocessedArticles()); n != submitters-1 {
		t.Fatalf("\t%s\tShould keep %d articles buffered: %d", failed, submitters-1, n)
	}
	t.Logf("\t%s\tShould keep %d articles buffered.", success, submitters-1)
}

func Test_RejectArticle(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)

	a := article(t, founder, 1)
	a.Byline = "Someone Else"

	res, err := l.ProcessArticle(a)
	ifErrFailNow(t, err)

	if res.Accepted || res.Block != nil || len(l.UnprocessedArticles()) != 0 {
		t.Fatalf("\t%s\tShould reject a tampered article without buffering it.", failed)
	}
	t.Logf("\t%s\tShould reject a tampered article without buffering it.", success)
}

func Test_MintWithoutGenesis(t *testing.T) {
	l := newLedger(t, false)
	founder := loadKey(t, founderHexKey)

	for i := 0; i < ledger.MintThreshold-1; i++ {
		_, err := l.ProcessArticle(article(t, founder, i))
		ifErrFailNow(t, err)
	}

	res, err := l.ProcessArticle(article(t, founder, ledger.MintThreshold))
	if !errors.Is(err, ledger.ErrNoGenesis) || !res.Accepted || res.Block != nil {
		t.Fatalf("\t%s\tShould fail to mint without a genesis: %v", failed, err)
	}
	t.Logf("\t%s\tShould fail to mint without a genesis.", success)
}

func Test_AcceptPublisher(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)
	outsider := loadKey(t, outsiderHexKey)

	pub := database.Publisher{PublicKey: signature.PublicKeyString(outsider.PublicKey)}

	badSig, err := signature.Sign(outsider, pub.PublicKey)
	ifErrFailNow(t, err)

	if l.AcceptPublisher(pub, badSig) || len(l.UnprocessedPublishers()) != 0 {
		t.Fatalf("\t%s\tShould reject an admission not signed by the authority.", failed)
	}
	t.Logf("\t%s\tShould reject an admission not signed by the authority.", success)

	sig, err := signature.Sign(founder, pub.PublicKey)
	ifErrFailNow(t, err)

	if !l.AcceptPublisher(pub, sig) {
		t.Fatalf("\t%s\tShould admit the publisher once.", failed)
	}
	t.Logf("\t%s\tShould admit the publisher once.", success)

	if l.AcceptPublisher(pub, sig) || len(l.UnprocessedPublishers()) != 1 {
		t.Fatalf("\t%s\tShould reject a duplicate admission.", failed)
	}
	t.Logf("\t%s\tShould reject a duplicate admission.", success)
}

func Test_ProcessBlock(t *testing.T) {
	founder := loadKey(t, founderHexKey)
	outsider := loadKey(t, outsiderHexKey)

	gen, err := database.Genesis(founder, 1000)
	ifErrFailNow(t, err)

	build := func(key *ecdsa.PrivateKey, prev database.Block, headline string, ts int64) database.Block {
		data := database.NewTransactionData([]database.Article{article(t, founder, len(headline))}, prev.Data.Publishers)
		data.Articles[0].Headline = headline
		b, err := database.NewBlock(key, prev.Hash, data, ts, prev.Height+1)
		ifErrFailNow(t, err)
		return b
	}

	b1 := build(founder, gen, "one", 2000)
	b1Prime := build(founder, gen, "other", 2001)

	wrongPrev := build(founder, b1, "two", 3000)
	wrongPrev.PreviousHash = "wrong"

	tampered := build(founder, b1, "two", 3000)
	tampered.Timestamp = 3500

	gap, err := database.NewBlock(founder, b1.Hash, database.NewTransactionData(nil, b1.Data.Publishers), 3000, b1.Height+5)
	ifErrFailNow(t, err)

	type table struct {
		name   string
		block  database.Block
		accept bool
	}

	tt := []table{
		{name: "genesis", block: gen, accept: true},
		{name: "height-1", block: b1, accept: true},
		{name: "duplicate-height", block: b1Prime, accept: false},
		{name: "wrong-previous", block: wrongPrev, accept: false},
		{name: "same-timestamp", block: build(founder, b1, "two", b1.Timestamp), accept: false},
		{name: "older-timestamp", block: build(founder, b1, "two", b1.Timestamp-5), accept: false},
		{name: "unknown-publisher", block: build(outsider, b1, "two", 3000), accept: false},
		{name: "height-gap", block: gap, accept: false},
		{name: "tampered-timestamp", block: tampered, accept: false},
		{name: "height-2", block: build(founder, b1, "two", 3000), accept: true},
	}

	// The table is replayed in order against one ledger.
	l := newLedger(t, false)

	t.Log("Given the need to validate blocks against the tip.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				size := l.ChainSize()

				accepted, err := l.ProcessBlock(tst.block)
				ifErrFailNow(t, err)

				if accepted != tst.accept {
					t.Fatalf("\t%s\tTest %d:\tShould get accepted=%v for %s.", failed, testID, tst.accept, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould get accepted=%v for %s.", success, testID, tst.accept, tst.name)

				exp := size
				if tst.accept {
					exp++
				}
				if l.ChainSize() != exp {
					t.Fatalf("\t%s\tTest %d:\tShould have chain size %d: %d", failed, testID, exp, l.ChainSize())
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Chain(t *testing.T) {
	l := newLedger(t, true)
	founder := loadKey(t, founderHexKey)

	for i := 0; i < 3*ledger.MintThreshold; i++ {
		_, err := l.ProcessArticle(article(t, founder, i))
		ifErrFailNow(t, err)
	}

	if l.ChainSize() != 4 {
		t.Fatalf("\t%s\tShould have minted three blocks: size %d", failed, l.ChainSize())
	}

	blocks, err := l.Chain(0, 1, database.SortDESC, nil)
	ifErrFailNow(t, err)
	if len(blocks) != 1 || blocks[0].Height != 3 {
		t.Fatalf("\t%s\tShould return the latest block first.", failed)
	}
	t.Logf("\t%s\tShould return the latest block first.", success)

	from := uint64(1)
	blocks, err = l.Chain(0, 1, database.SortDESC, &from)
	ifErrFailNow(t, err)
	if len(blocks) != 2 || blocks[0].Height != 2 || blocks[1].Height != 3 {
		t.Fatalf("\t%s\tShould return blocks above the height in ascending order: %d", failed, len(blocks))
	}
	t.Logf("\t%s\tShould return blocks above the height in ascending order.", success)

	blocks, err = l.Chain(-1, 10, database.SortASC, nil)
	ifErrFailNow(t, err)
	if len(blocks) != 0 {
		t.Fatalf("\t%s\tShould return nothing for a negative page.", failed)
	}
	t.Logf("\t%s\tShould return nothing for a negative page.", success)

	tip, _ := l.LatestBlock()
	got, err := l.GetBlock(tip.Hash)
	ifErrFailNow(t, err)
	if got.Hash != tip.Hash {
		t.Fatalf("\t%s\tShould find a block by hash.", failed)
	}
	t.Logf("\t%s\tShould find a block by hash.", success)

	if _, err := l.GetArticle("bad id"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("\t%s\tShould not find a malformed article id.", failed)
	}
	t.Logf("\t%s\tShould not find a malformed article id.", success)
}
