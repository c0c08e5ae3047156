package main

import "github.com/avisen/ledger/app/tooling/publisher/cmd"

func main() {
	cmd.Execute()
}
