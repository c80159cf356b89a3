package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <dataset>",
	Short: "Print a summary of a shapefile dataset",
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

		fmt.Println(headerStyle.Render(path))
		printRow("records", fmt.Sprintf("%d", sf.NumRecords()))
		if sf.SHP != nil {
			printRow("shape type", fmt.Sprintf("%v", sf.SHP.ShapeType))
		}
		if sf.DBF != nil {
			printRow("fields", fmt.Sprintf("%d", len(sf.DBF.FieldDescriptors)))
		}
		if sf.PRJ != nil {
			printRow("projection", sf.PRJ.Projection)
		} else {
			fmt.Println(warnStyle.Render("no .prj found, projection unknown"))
		}
		if sf.CPG != nil {
			printRow("charset", sf.CPG.Charset)
		}
		if sf.DBT != nil {
			printRow("memo file", "present")
		}
		return nil
	},
}

func printRow(label, value string) {
	fmt.Printf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}
