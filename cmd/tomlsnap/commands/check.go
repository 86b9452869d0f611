package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/tomlsnap/pkg/snapshot"
)

func newCheckCommand() *cobra.Command {
	var maxArenaBytes int64

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate TOML files",
		Long: `Validate one or more TOML files by converting each into a snapshot.

Every failure is reported with its file, 1-based line and column, and the
parser's message. The command exits non-zero if any file fails.`,
		Example: `  # Check a single file
  tomlsnap check config.toml

  # Check several files at once
  tomlsnap check configs/*.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := snapshot.New(snapshot.Options{MaxArenaBytes: maxArenaBytes})
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				if err := checkFile(cmd, conv, path); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), err.Error())
					failed++
					continue
				}
				log.Debug().Str("file", path).Msg("Document OK")
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}

			log.Info().Int("documents", len(args)).Msg("All documents OK")
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxArenaBytes, "max-arena-bytes", 0, "arena byte budget per conversion (0 = unlimited)")

	return cmd
}

// checkFile converts one file and reports its failure, if any, as an error
// carrying the file path and error position.
func checkFile(cmd *cobra.Command, conv *snapshot.Converter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	res := conv.Convert(cmd.Context(), data)
	defer res.Close()

	if !res.OK() {
		return fmt.Errorf("%s:%d:%d: %s", path, res.ErrLine(), res.ErrColumn(), res.ErrMessage())
	}
	return nil
}
