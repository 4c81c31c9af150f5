package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corpusdedup/doubri/internal/config"
	"github.com/corpusdedup/doubri/internal/producer"
)

func newMinHashCmd() *cobra.Command {
	var (
		ngram   int
		rows    int
		begin   int
		end     int
		field   string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "minhash <basename>",
		Short: "Stream JSONL documents from stdin into a MinHash bucket file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basename := args[0]

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ngram") {
				ngram = cfg.Producer.NGram
			}
			if !cmd.Flags().Changed("rows") {
				rows = cfg.LSH.NumHashValues
			}
			if !cmd.Flags().Changed("begin") {
				begin = cfg.LSH.Begin
			}
			if !cmd.Flags().Changed("end") {
				end = cfg.LSH.End
			}
			if !cmd.Flags().Changed("text-field") {
				field = cfg.Producer.Field
			}

			p, err := producer.New(basename, producer.Config{
				NGram:         ngram,
				NumHashValues: rows,
				Begin:         begin,
				End:           end,
				Field:         field,
			})
			if err != nil {
				return err
			}

			if err := p.Run(os.Stdin); err != nil {
				p.Close()
				return err
			}
			if err := p.Close(); err != nil {
				return err
			}

			if !quiet {
				fmt.Fprintf(os.Stderr, "doubri minhash: %d items, %d parse errors\n", p.NumItems(), p.NumErrors())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&ngram, "ngram", "n", 5, "n-gram width in Unicode code points")
	cmd.Flags().IntVarP(&rows, "rows", "b", 20, "rows per band (num_hash_values)")
	cmd.Flags().IntVarP(&begin, "begin", "e", 0, "first band number")
	cmd.Flags().IntVarP(&end, "end", "r", 40, "one past the last band number")
	cmd.Flags().StringVarP(&field, "text-field", "t", "text", "JSON field name holding document text")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the item-count summary")

	return cmd
}
