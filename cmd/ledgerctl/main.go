package main

import "github.com/congo-pay/walletledger/cmd/ledgerctl/commands"

func main() {
	commands.Execute()
}
