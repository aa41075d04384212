// Package main is the entry point for the sfctl CLI client.
package main

import (
	"github.com/donaldgifford/tenant-storefront/cmd/sfctl/cmd"
)

func main() {
	cmd.Execute()
}
