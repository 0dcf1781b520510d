package reviewctl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/reviewdesk/internal/app"
	"github.com/okian/reviewdesk/pkg/logger"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var e exportOptions
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Turn an envelope reply into a report",
		Long: `Reads a reply whose object lists several records under the schema's
envelope key, for example {"results": [...]}, stores each item as its own
submission and writes a report. Items that fail validation are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.schema()
			if err != nil {
				return err
			}
			if err := e.validate(s); err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0], opts.cfg.MaxReplyBytes)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc := service.New(service.WithSchema(s), service.WithLogger(logger.Named("report")))
			ids, errs, err := svc.IngestEnvelope(ctx, reportPrefix(args[0]), raw)
			if err != nil {
				printFailure(cmd.ErrOrStderr(), args[0], raw, err)
				return ErrExtractionFailed
			}
			for i, itemErr := range errs {
				if itemErr != nil {
					printFailure(cmd.ErrOrStderr(), ids[i], raw, itemErr)
				}
			}
			return e.write(cmd.OutOrStdout(), svc.Rows(ctx), s)
		},
	}
	addExportFlags(cmd, &e, formatText)
	return cmd
}

func reportPrefix(path string) string {
	if path == "-" {
		return "item"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
