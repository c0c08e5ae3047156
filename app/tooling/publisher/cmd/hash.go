package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash [file]",
	Short: "Print the content hash of a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(signature.Hash(string(body)))
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
