package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <dataset>",
	Short: "List a dataset's DBF field descriptors",
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
		if sf.DBF == nil {
			return fmt.Errorf("%s has no .dbf file", path)
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-24s %-6s %6s %6s", "NAME", "TYPE", "LEN", "DEC")))
		for _, fd := range sf.DBF.FieldDescriptors {
			fmt.Println(valueStyle.Render(fmt.Sprintf("%-24s %-6c %6d %6d", fd.Name, fd.Type, fd.Length, fd.DecimalCount)))
		}
		return nil
	},
}
