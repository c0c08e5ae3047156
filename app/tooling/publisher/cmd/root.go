// Package cmd contains the publisher app.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	nodeURL     string
	networkID   string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/publishers/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "url", "u", "", "Url of the node. When empty the signed payload is printed.")
	rootCmd.PersistentFlags().StringVarP(&networkID, "network", "n", "avisen", "Network id sent to the node.")
}

var rootCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Sign and submit articles to a ledger node",
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtension) {
		accountName += keyExtension
	}

	return filepath.Join(accountPath, accountName)
}

// submit prints the value when no node is configured, otherwise it posts the
// value to the path of the node.
func submit(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	if nodeURL == "" {
		fmt.Println(string(data))
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, nodeURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(network.NetworkIDHeader, networkID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", resp.Status, string(body))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("node returned %s", resp.Status)
	}

	return nil
}
