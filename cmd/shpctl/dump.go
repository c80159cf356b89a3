package main

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	shapefile "github.com/gasparesganga/go-shapefile"
	"github.com/ettle/strcase"
	"github.com/spf13/cobra"
)

var dumpLimit int

var dumpCmd = &cobra.Command{
	Use:   "dump <dataset>",
	Short: "Stream a dataset's records to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := datasetArg(args)
		if err != nil {
			return err
		}
		source, closeSource, err := openReaderSource(path)
		if err != nil {
			return err
		}
		defer closeSource()

		reader, err := shapefile.NewReader(source, nil)
		if err != nil {
			return err
		}
		defer reader.Close()

		exportType, exporter, err := buildExporter(reader.FieldDescriptors())
		if err != nil {
			return err
		}

		n := 0
		for {
			if dumpLimit > 0 && n >= dumpLimit {
				break
			}
			record, err := reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			printExported(exportType, exporter.Export(record))
			n++
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 0, "maximum number of records to print (0 = all)")
}

// buildExporter assembles a struct type with one `any`-typed field per DBF
// field descriptor (tagged with its snake_case name) plus a string
// "Geometry" field, and an
// Exporter targeting it, so dump exercises the same struct-export path
// callers use from Go code instead of walking Record.Fields by hand.
func buildExporter(fieldDescriptors []*shapefile.DBFFieldDescriptor) (reflect.Type, *shapefile.Exporter, error) {
	anyType := reflect.TypeOf((*any)(nil)).Elem()
	fields := make([]reflect.StructField, 0, len(fieldDescriptors)+1)
	for i, fd := range fieldDescriptors {
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("Field%d", i),
			Type: anyType,
			Tag:  reflect.StructTag(fmt.Sprintf(`shp:"%s"`, strcase.ToSnake(fd.Name))),
		})
	}
	fields = append(fields, reflect.StructField{
		Name: "Geometry",
		Type: reflect.TypeOf(""),
		Tag:  `shp:"geometry"`,
	})
	t := reflect.StructOf(fields)
	exporter, err := shapefile.NewExporter(t, "shp", fieldDescriptors)
	if err != nil {
		return nil, nil, err
	}
	return t, exporter, nil
}

func printExported(t reflect.Type, exported any) {
	val := reflect.ValueOf(exported)
	parts := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		parts = append(parts, fmt.Sprintf("%s=%v", t.Field(i).Name, val.Field(i).Interface()))
	}
	fmt.Println(valueStyle.Render(fmt.Sprintf("%v", parts)))
}
