package cmd

import (
	"log"
	"os"
	"time"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	byline   string
	headline string
	section  string
	content  string
	date     string
)

// articleCmd represents the article command
var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Sign an article and submit it to a publisher node",
	Run:   articleRun,
}

func init() {
	rootCmd.AddCommand(articleCmd)
	articleCmd.Flags().StringVarP(&byline, "byline", "b", "", "Who the article is attributed to.")
	articleCmd.Flags().StringVarP(&headline, "headline", "t", "", "Title of the article.")
	articleCmd.Flags().StringVarP(&section, "section", "s", "", "News section of the article.")
	articleCmd.Flags().StringVarP(&content, "content", "c", "", "Path to the file with the article content.")
	articleCmd.Flags().StringVarP(&date, "date", "d", time.Now().UTC().Format(time.DateOnly), "Publication date in YYYY-MM-DD.")
}

func articleRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	body, err := os.ReadFile(content)
	if err != nil {
		log.Fatal(err)
	}

	article, err := database.SignArticle(privateKey, byline, headline, section, signature.Hash(string(body)), date)
	if err != nil {
		log.Fatal(err)
	}

	if err := submit("/article", article); err != nil {
		log.Fatal(err)
	}
}
