package reviewctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/reviewdesk/internal/domain/extract"
)

func newParseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Extract one reply and print the normalized record",
		Long: `Parses the reply in FILE ("-" reads stdin), validates it against the
schema and prints the record as JSON. On failure the raw reply and every
field error are printed and the command exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.schema()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0], opts.cfg.MaxReplyBytes)
			if err != nil {
				return err
			}

			rec, err := extract.New(s).Extract(raw)
			if err != nil {
				var f *extract.Failure
				if errors.As(err, &f) {
					printFailure(cmd.ErrOrStderr(), args[0], f.Raw, err)
					return ErrExtractionFailed
				}
				return err
			}
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func readInput(cmd *cobra.Command, path string, limit int64) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open reply: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("reply %s exceeds %d bytes", path, limit)
	}
	return string(data), nil
}
