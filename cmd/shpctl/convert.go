package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	shapefile "github.com/gasparesganga/go-shapefile"
	"github.com/spf13/cobra"
)

var convertFormat string

var convertCmd = &cobra.Command{
	Use:   "convert <dataset>",
	Short: "Convert a dataset to GeoJSON or WKT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := datasetArg(args)
		if err != nil {
			return err
		}
		sf, err := openDataset(path)
		if err != nil {
			return err
		}

		records := make([]*shapefile.Record, sf.NumRecords())
		for i := range records {
			fields, g := sf.Record(i)
			records[i] = &shapefile.Record{Number: i + 1, Fields: fields, Geom: g}
		}

		switch strings.ToLower(convertFormat) {
		case "geojson":
			fc, err := shapefile.RecordsToFeatureCollection(records)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(fc)
		case "wkt":
			for _, record := range records {
				s, err := shapefile.RecordToWKT(record)
				if err != nil {
					return err
				}
				fmt.Println(s)
			}
			return nil
		default:
			return fmt.Errorf("unknown format %q: want geojson or wkt", convertFormat)
		}
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertFormat, "format", "geojson", "output format: geojson or wkt")
}
