// Command doubri is the near-duplicate detection CLI: minhash production,
// within-group deduplication, and cross-group merge, plus the legacy
// flag-apply filter. It is a single binary wired to a cobra root command
// with one cobra.Command per tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "doubri",
		Short: "Near-duplicate detection over JSONL corpora via MinHash/LSH",
		Long: `doubri performs near-duplicate detection over large collections
of JSON-Lines documents using MinHash with Locality-Sensitive Hashing (LSH)
and banded bucket indices.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a doubri YAML config file")

	root.AddCommand(newMinHashCmd())
	root.AddCommand(newDedupCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newFlagApplyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "doubri:", err)
		os.Exit(1)
	}
}
