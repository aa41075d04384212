// Package main generates CLI reference documentation for the storefront
// server and the sfctl client.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	sfctl "github.com/donaldgifford/tenant-storefront/cmd/sfctl/cmd"
	storefront "github.com/donaldgifford/tenant-storefront/cmd/storefront/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated markdown")
	flag.Parse()

	for name, root := range map[string]*cobra.Command{
		"storefront": storefront.Root(),
		"sfctl":      sfctl.Root(),
	} {
		if err := generate(root, filepath.Join(*output, name)); err != nil {
			log.Fatalf("generating %s docs: %v", name, err)
		}
	}

	fmt.Printf("CLI docs generated in %s/\n", *output)
}

func generate(root *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	root.DisableAutoGenTag = true
	return doc.GenMarkdownTree(root, dir)
}
