package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geowerk/tilefetch/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the configured regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := region.Load(cfg.Regions.File)
		if err != nil {
			return eris.Wrap(err, "load regions")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tCRS\tCELL\tPATTERN\tSOURCE")
		for _, key := range regions.Keys() {
			r := regions[key]
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f m\t%s\t%s\n",
				r.Key, r.Name, r.EPSG, r.CellSizeM, r.TilePattern, r.SourceExt)
		}
		return w.Flush()
	},
}

var regionsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the regions file",
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := region.Load(cfg.Regions.File)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d region(s) ok\n", cfg.Regions.File, len(regions))
		return nil
	},
}

func init() {
	regionsCmd.AddCommand(regionsValidateCmd)
	rootCmd.AddCommand(regionsCmd)
}
