package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/adcover"
	"github.com/hazyhaar/adcover/dbopen"
	"github.com/hazyhaar/adcover/internal/api"
	"github.com/hazyhaar/adcover/internal/config"
	"github.com/hazyhaar/adcover/internal/store"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var configPath, singleURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Cover pages in Chrome and keep watching them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := watchConfig(configPath, singleURL)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runWatch(ctx, root, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to adcover.yaml")
	cmd.Flags().StringVar(&singleURL, "url", "", "cover a single URL (stdout sink)")
	return cmd
}

func watchConfig(configPath, singleURL string) (*adcover.Config, error) {
	switch {
	case configPath != "" && singleURL != "":
		return nil, errors.New("--config and --url are exclusive")
	case configPath != "":
		return adcover.LoadConfigFile(configPath)
	case singleURL != "":
		cfg := &adcover.Config{Pages: []adcover.PageConfig{{URL: singleURL}}}
		cfg.ApplyDefaults()
		return cfg, cfg.Validate()
	default:
		return nil, errors.New("one of --config or --url is required")
	}
}

func runWatch(ctx context.Context, root *rootOptions, cfg *adcover.Config) error {
	logger := root.logger

	var st *store.Store
	if cfg.Store.Path != "" {
		var err error
		st, err = store.Open(cfg.Store.Path, dbopen.WithSchema(config.Schema))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		stored, err := config.LoadPages(ctx, st.DB)
		if err != nil {
			return err
		}
		cfg.Pages = config.MergePages(cfg.Pages, stored)
	}
	filePages := append([]adcover.PageConfig(nil), cfg.Pages...)

	sinks, err := adcover.BuildSinks(cfg.Sinks, st, logger)
	if err != nil {
		return err
	}
	a := adcover.New(cfg, logger, sinks...)
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	if st != nil {
		// data_version is per connection: poll on a dedicated one.
		watchDB, err := dbopen.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open page watch db: %w", err)
		}
		defer watchDB.Close()
		watchDB.SetMaxOpenConns(1)
		go config.WatchPages(ctx, watchDB, time.Second, logger, func(pages []config.PageConfig) {
			a.SetPages(ctx, config.MergePages(filePages, pages))
		})
	}

	if cfg.API.Addr != "" {
		srv := api.New(api.Config{Store: st, Status: a.Status, Logger: logger})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.API.Addr); err != nil {
				logger.Error("adcover: api server", "error", err)
			}
		}()
	}

	logger.Info("adcover: watching", "pages", len(cfg.Pages))
	<-ctx.Done()
	logger.Info("adcover: shutting down")
	return nil
}
