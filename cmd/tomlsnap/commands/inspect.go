package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/tomlsnap/pkg/snapshot"
)

func newInspectCommand() *cobra.Command {
	var (
		format        string
		maxArenaBytes int64
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Convert a TOML file and print its snapshot",
		Long: `Convert a TOML file into a snapshot and print the flattened document.

Output preserves document order and distinguishes every TOML value type,
including local dates, local times, and offset date-times. The arena
statistics of the conversion are logged at debug level.`,
		Example: `  # Print a document as YAML
  tomlsnap inspect config.toml

  # Print as ordered JSON
  tomlsnap inspect --format json config.toml

  # Cap the conversion arena at 1 MiB
  tomlsnap inspect --max-arena-bytes 1048576 big.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if jsonOutput {
				format = "json"
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			conv, err := snapshot.New(snapshot.Options{MaxArenaBytes: maxArenaBytes})
			if err != nil {
				return err
			}

			res := conv.Convert(cmd.Context(), data)
			defer res.Close()

			if !res.OK() {
				return fmt.Errorf("%s:%d:%d: %s", path, res.ErrLine(), res.ErrColumn(), res.ErrMessage())
			}

			stats := res.ArenaStats()
			log.Debug().
				Str("file", path).
				Int("input_bytes", len(data)).
				Int64("arena_bytes", stats.Used).
				Int("arena_chunks", stats.Chunks).
				Int("strings", stats.InternedStrings).
				Msg("Document converted")

			out, err := renderSnapshot(res.Root(), format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml, json)")
	cmd.Flags().Int64Var(&maxArenaBytes, "max-arena-bytes", 0, "arena byte budget per conversion (0 = unlimited)")

	return cmd
}
