// Command acpctl is a demonstration agent/client binary built on pkg/acp.
package main

import "github.com/acplabs/acp-go/cmd/acpctl/cmd"

func main() {
	cmd.Execute()
}
