package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corpusdedup/doubri/internal/flagfile"
)

// newFlagApplyCmd implements the legacy flag-apply filter of spec §6: it
// streams stdin to stdout, keeping only the lines whose corresponding flag
// byte marks them as active. The legacy on-disk convention is '1' (keep) /
// '0' (drop); --modern switches to the flag-vector's own ' '/'D' alphabet
// instead of requiring callers to translate first, resolving spec §9's
// third Open Question as an opt-in rather than a breaking default.
func newFlagApplyCmd() *cobra.Command {
	var modern bool

	cmd := &cobra.Command{
		Use:   "flag-apply <flagfile>",
		Short: "Emit stdin lines whose flag byte marks them as active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := flagfile.Load(args[0])
			if err != nil {
				return err
			}

			keep := func(b byte) bool {
				if modern {
					return b == flagfile.Active
				}
				return b == '1'
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()

			i := 0
			for scanner.Scan() {
				if i >= len(flags) {
					return fmt.Errorf("flag-apply: stdin has more lines than the flag file (%d flags)", len(flags))
				}
				if keep(flags[i]) {
					if _, err := out.WriteString(scanner.Text()); err != nil {
						return err
					}
					if err := out.WriteByte('\n'); err != nil {
						return err
					}
				}
				i++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("flag-apply: read stdin: %w", err)
			}
			if i != len(flags) {
				return fmt.Errorf("flag-apply: stdin reached EOF after %d lines, but the flag file has %d", i, len(flags))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&modern, "modern", false, "accept ' '/'D' flag-vector bytes instead of legacy '0'/'1'")
	return cmd
}
