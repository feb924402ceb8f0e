package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/search"
)

func newCollateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "collate", Short: "Run search collators once"}
	cmd.AddCommand(NewCollateTypeCmd("techdocs", "Collate TechDocs pages into the search sink"))
	return cmd
}

// NewCollateTypeCmd runs the collator registered for docType once and writes
// its documents to the configured sink.
func NewCollateTypeCmd(docType, short string) *cobra.Command {
	var sinkType string

	cmd := &cobra.Command{
		Use:   docType,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.GetGlobalConfig()
			sinkCfg := cfg.Search.Sink
			if sinkType != "" {
				sinkCfg.Type = sinkType
			}

			b, err := newBackend(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			if err = b.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if stopErr := b.Stop(ctx); stopErr != nil {
					logger.Warn().Err(stopErr).Msg("stopping backend")
				}
			}()

			registry := b.Services().IndexRegistry
			factory, ok := registry.Factory(docType)
			if !ok {
				return fmt.Errorf("no collator registered for %q", docType)
			}

			sink, err := search.NewSinkFromConfig(ctx, sinkCfg)
			if err != nil {
				return err
			}
			defer sink.Close()

			builder := search.NewIndexBuilder(registry, sink, &logger)
			result, err := builder.Collate(ctx, factory)
			if err != nil {
				return err
			}

			name := sinkCfg.Type
			if name == "" {
				name = config.SinkMemory
			}
			return renderCollateResults(cmd.OutOrStdout(), name, []search.CollateResult{result})
		},
	}
	cmd.Flags().StringVar(&sinkType, "sink", "", "document sink: memory, s3, kafka or postgres (default from config)")
	return cmd
}
