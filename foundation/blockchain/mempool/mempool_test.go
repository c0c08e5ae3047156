package mempool_test

import (
	"testing"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name       string
		articles   []database.Article
		publishers []database.Publisher
		pubCount   int
	}

	tt := []table{
		{
			name: "basic",
			articles: []database.Article{
				database.NewArticle("key1", "Jane", "First", "World", "h1", "2024-01-01", "sig"),
				database.NewArticle("key1", "Jane", "Second", "World", "h2", "2024-01-01", "sig"),
				database.NewArticle("key2", "John", "Third", "Sport", "h3", "2024-01-02", "sig"),
			},
			publishers: []database.Publisher{
				{PublicKey: "pub1"},
				{PublicKey: "pub2"},
			},
			pubCount: 2,
		},
		{
			name: "duplicate-publisher",
			articles: []database.Article{
				database.NewArticle("key1", "Jane", "First", "World", "h1", "2024-01-01", "sig"),
			},
			publishers: []database.Publisher{
				{PublicKey: "pub1"},
				{PublicKey: "pub1"},
			},
			pubCount: 1,
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for i, article := range tst.articles {
						if n := mp.Add(article); n != i+1 {
							t.Fatalf("\t%s\tTest %d:\tShould report the article count: got %d, exp %d", failed, testID, n, i+1)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add articles.", success, testID)

					for i, article := range mp.Articles() {
						if article.ID != tst.articles[i].ID {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, article.ID)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.articles[i].ID)
							t.Fatalf("\t%s\tTest %d:\tShould keep submission order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep submission order.", success, testID)

					added := 0
					for _, pub := range tst.publishers {
						if mp.AddPublisher(pub) {
							added++
						}
					}

					if added != tst.pubCount || len(mp.Publishers()) != tst.pubCount {
						t.Fatalf("\t%s\tTest %d:\tShould treat publishers as a set: added %d, exp %d", failed, testID, added, tst.pubCount)
					}
					t.Logf("\t%s\tTest %d:\tShould treat publishers as a set.", success, testID)

					mp.Truncate()

					if mp.Count() != 0 || len(mp.Publishers()) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be empty after truncate.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be empty after truncate.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
