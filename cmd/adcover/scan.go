package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/adcover"
)

func newScanCmd(root *rootOptions) *cobra.Command {
	var out, configPath string
	var publicOnly bool
	cmd := &cobra.Command{
		Use:   "scan URL",
		Short: "Fetch a page over HTTP, cover it and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &adcover.Config{}
			if configPath != "" {
				var err error
				if cfg, err = adcover.LoadConfigFile(configPath); err != nil {
					return err
				}
			} else {
				cfg.ApplyDefaults()
			}

			if publicOnly {
				cfg.Scan.PublicOnly = true
			}

			a := adcover.New(cfg, root.logger, adcover.NewStdoutSink(cmd.OutOrStdout()))
			rep, err := a.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, rep.HTML, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
			}
			if rep.Sparse {
				root.logger.Warn("adcover: page looks script-rendered, use watch for full coverage", "url", rep.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the covered HTML to this file")
	cmd.Flags().BoolVar(&publicOnly, "public-only", false, "refuse URLs resolving to private addresses")
	cmd.Flags().StringVar(&configPath, "config", "", "take detection rules and asset from adcover.yaml")
	return cmd
}
