package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/store"
)

var (
	statusLimit  int
	statusRegion string
	statusFilter string
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recent runs, or the tiles of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return eris.Wrap(err, "open manifest store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate manifest store")
		}

		if len(args) == 1 {
			return showRun(cmd, st, args[0])
		}
		return listRuns(cmd, st)
	},
}

func listRuns(cmd *cobra.Command, st store.Store) error {
	runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
		Status:    model.RunStatus(statusFilter),
		RegionKey: statusRegion,
		Limit:     statusLimit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tWHEN\tREGION\tADDRESS\tSTATUS\tTILES")
	for _, run := range runs {
		tiles := "-"
		if run.Summary != nil {
			tiles = fmt.Sprintf("%d ok / %d", run.Summary.Succeeded, run.Summary.Total)
		}
		fmt.Fprintf(w, "%.8s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.RegionKey,
			run.Address.String(),
			run.Status,
			tiles,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, st store.Store, runID string) error {
	run, err := st.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n%s\n\n", run.ID, run.Status, run.Address.String())

	tiles, err := st.ListTiles(cmd.Context(), runID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TILE\tSTATUS\tBYTES\tPATH")
	for _, tr := range tiles {
		status := tr.Status.String()
		if tr.Skipped {
			status += " (cached)"
		}
		path := tr.LocalPath
		if path == "" {
			path = tr.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", tr.TileID, status, tr.Bytes, path)
	}
	return w.Flush()
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum runs to list")
	statusCmd.Flags().StringVar(&statusRegion, "region", "", "filter by region key")
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "filter by run status (running, complete, failed)")
	rootCmd.AddCommand(statusCmd)
}
