package cmd

import (
	"log"

	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var newPublisherKey string

// admitCmd represents the admit command
var admitCmd = &cobra.Command{
	Use:   "admit",
	Short: "Sign a publisher key with the authority account and submit it",
	Run:   admitRun,
}

func init() {
	rootCmd.AddCommand(admitCmd)
	admitCmd.Flags().StringVarP(&newPublisherKey, "key", "k", "", "Public key of the publisher to admit.")
}

func admitRun(cmd *cobra.Command, args []string) {
	if _, err := signature.ToPublicKey(newPublisherKey); err != nil {
		log.Fatal(err)
	}

	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	sig, err := signature.Sign(privateKey, newPublisherKey)
	if err != nil {
		log.Fatal(err)
	}

	np := struct {
		PublicKey string `json:"publicKey"`
		Signature string `json:"signature"`
	}{
		PublicKey: newPublisherKey,
		Signature: sig,
	}

	if err := submit("/network/node/publisher", np); err != nil {
		log.Fatal(err)
	}
}
