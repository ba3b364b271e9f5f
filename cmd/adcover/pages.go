package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/adcover/dbopen"
	"github.com/hazyhaar/adcover/internal/config"
	"github.com/hazyhaar/adcover/internal/store"
)

func newPagesCmd(_ *rootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage the cover_pages table read by a running watch",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "adcover.db", "SQLite database (store.path)")

	open := func() (*store.Store, error) {
		return store.Open(dbPath, dbopen.WithSchema(config.Schema))
	}

	var id string
	add := &cobra.Command{
		Use:   "add URL",
		Short: "Add or re-activate a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			p := config.PageConfig{ID: id, URL: args[0]}
			if p.ID == "" {
				p.ID = p.URL
			}
			return config.UpsertPage(cmd.Context(), st.DB, p)
		},
	}
	add.Flags().StringVar(&id, "id", "", "page id (default: the URL)")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Disable a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			return config.DisablePage(cmd.Context(), st.DB, args[0])
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List active pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()
			pages, err := config.LoadPages(cmd.Context(), st.DB)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tURL")
			for _, p := range pages {
				fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.URL)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}
