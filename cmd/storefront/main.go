// Package main is the entry point for the tenant-storefront server.
package main

import (
	"os"

	"github.com/donaldgifford/tenant-storefront/cmd/storefront/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
