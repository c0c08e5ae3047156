package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new publisher key pair",
	Run:   generateRun,
}

var publicKeyCmd = &cobra.Command{
	Use:   "public-key",
	Short: "Print the public key of the account",
	Run:   publicKeyRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(publicKeyCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	privateKey, err := signature.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(accountPath, 0700); err != nil {
		log.Fatal(err)
	}

	if err := crypto.SaveECDSA(getPrivateKeyPath(), privateKey); err != nil {
		log.Fatal(err)
	}

	fmt.Println(signature.PublicKeyString(privateKey.PublicKey))
}

func publicKeyRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(signature.PublicKeyString(privateKey.PublicKey))
}
