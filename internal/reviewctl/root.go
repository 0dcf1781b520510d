// Package reviewctl implements the offline review command line: extract
// single replies, replay a directory of replies through the pipeline and
// render reports.
package reviewctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/reviewdesk/internal/config"
	"github.com/okian/reviewdesk/internal/domain/schema"
	"github.com/okian/reviewdesk/pkg/logger"
)

// ErrExtractionFailed is returned after failed replies have been reported.
var ErrExtractionFailed = errors.New("extraction failed")

type rootOptions struct {
	schemaName  string
	schemasFile string
	verbose     bool
	logFormat   string

	cfg *config.Config
}

// NewRootCommand builds the reviewctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Extract, reconcile and report AI agent replies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.schemaName, "schema", "", "record schema (default from REVIEWDESK_SCHEMA or evaluation)")
	pf.StringVar(&opts.schemasFile, "schemas-file", "", "YAML file with extra schema definitions")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newParseCommand(opts),
		newBatchCommand(opts),
		newReportCommand(opts),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := logger.Init(logger.WithFormat(o.logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if o.schemaName != "" {
		cfg.Schema = o.schemaName
	}
	if o.schemasFile != "" {
		cfg.SchemasFile = o.schemasFile
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) schema() (*schema.Schema, error) {
	s, err := o.cfg.ResolveSchema()
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return s, nil
}
