// Command shpctl inspects, converts, streams and bundles ESRI Shapefile
// datasets built with github.com/gasparesganga/go-shapefile.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shpctl",
	Short: "Inspect and convert ESRI Shapefile datasets",
	Long: `shpctl is a small operator CLI over github.com/gasparesganga/go-shapefile.

It accepts a shapefile dataset either as a directory basename (the path
shared by the .shp/.shx/.dbf/etc. companion files, without extension) or
as a .zip archive bundling them.

Examples:
  shpctl info testdata/ne_110m_admin_0_countries
  shpctl fields testdata/ne_110m_admin_0_countries.zip
  shpctl dump testdata/ne_110m_admin_0_countries --limit 5
  shpctl convert testdata/ne_110m_admin_0_countries --format geojson
  shpctl pack testdata/ne_110m_admin_0_countries -o bundle.tar.zst`,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(packCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
