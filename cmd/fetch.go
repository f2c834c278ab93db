package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/pipeline"
)

var (
	fetchStreet      string
	fetchHouseNumber string
	fetchCity        string
	fetchZip         string
	fetchRegion      string
	fetchJSON        bool
	fetchSaveReport  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the tiles covering an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		addr := model.Address{
			Street:      fetchStreet,
			HouseNumber: fetchHouseNumber,
			City:        fetchCity,
			ZipCode:     fetchZip,
			RegionKey:   fetchRegion,
		}

		report, err := env.Pipeline.Run(ctx, addr)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		if fetchSaveReport {
			if err := saveReport(report, addr); err != nil {
				zap.L().Warn("failed to save report", zap.Error(err))
			}
		}

		if fetchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Print(report.Render())
		return nil
	},
}

func saveReport(report *pipeline.RunReport, addr model.Address) error {
	path := filepath.Join(cfg.Download.Dir, addr.Slug()+".report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "write report")
	}
	zap.L().Info("report saved", zap.String("path", path))
	return nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStreet, "street", "", "street name (required)")
	fetchCmd.Flags().StringVar(&fetchHouseNumber, "house-number", "", "house number")
	fetchCmd.Flags().StringVar(&fetchCity, "city", "", "city (required)")
	fetchCmd.Flags().StringVar(&fetchZip, "zip", "", "postal code")
	fetchCmd.Flags().StringVar(&fetchRegion, "region", "", "region key, e.g. BY (required)")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the run report as JSON")
	fetchCmd.Flags().BoolVar(&fetchSaveReport, "save-report", false, "write the run report next to the downloaded tiles")
	_ = fetchCmd.MarkFlagRequired("street")
	_ = fetchCmd.MarkFlagRequired("city")
	_ = fetchCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(fetchCmd)
}
