package reviewctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/reviewdesk/internal/adapters/replies"
	service "github.com/okian/reviewdesk/internal/app"
	"github.com/okian/reviewdesk/pkg/logger"
)

func addExportFlags(cmd *cobra.Command, e *exportOptions, defaultFormat string) {
	f := cmd.Flags()
	f.StringVarP(&e.format, "format", "f", defaultFormat, "output format: json, csv, text or markdown")
	f.StringVar(&e.sort, "sort", "", "field to sort by")
	f.BoolVar(&e.desc, "desc", false, "sort descending")
	f.StringSliceVar(&e.fields, "fields", nil, "fields to include, in order (default all)")
	f.StringVarP(&e.out, "out", "o", "", "write to file instead of stdout")
	f.BoolVar(&e.render, "render", false, "render markdown output for the terminal")
}

func newBatchCommand(opts *rootOptions) *cobra.Command {
	var (
		e      exportOptions
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Run every reply in DIR through the pipeline and export the records",
		Long: `Registers one submission per *.txt file in DIR, named after the file,
and runs the replies through extraction concurrently. Failed replies are
printed with their raw text; the remaining records are exported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.schema()
			if err != nil {
				return err
			}
			if err := e.validate(s); err != nil {
				return err
			}
			ctx := cmd.Context()

			analyzer := replies.NewDirAnalyzer(args[0], replies.WithMaxBytes(opts.cfg.MaxReplyBytes))
			ids, err := analyzer.IDs()
			if err != nil {
				return err
			}
			svc := service.New(
				service.WithSchema(s),
				service.WithAnalyzer(analyzer),
				service.WithBatchConcurrency(opts.cfg.BatchConcurrency),
				service.WithLogger(logger.Named("batch")),
			)
			for _, id := range ids {
				if _, err := svc.Register(ctx, id, id+replies.Ext); err != nil {
					return err
				}
			}

			results, err := svc.AnalyzeBatch(ctx, ids)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					printFailure(cmd.ErrOrStderr(), r.ID, r.Raw, r.Err)
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d replies extracted\n", len(results)-failed, len(results))

			if err := e.write(cmd.OutOrStdout(), svc.Rows(ctx), s); err != nil {
				return err
			}
			if strict && failed > 0 {
				return fmt.Errorf("%w: %d replies", ErrExtractionFailed, failed)
			}
			return nil
		},
	}
	addExportFlags(cmd, &e, formatJSON)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 1 when any reply fails")
	return cmd
}
