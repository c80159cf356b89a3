package main

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"
)

var packOutput string

var packCmd = &cobra.Command{
	Use:   "pack <dataset>",
	Short: "Bundle a dataset's companion files into one zstd-compressed tar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := datasetArg(args)
		if err != nil {
			return err
		}
		if packOutput == "" {
			packOutput = datasetBasename(path) + ".tar.zst"
		}

		var buf bytes.Buffer
		tw := tar.NewWriter(&buf)
		exts := []string{".shp", ".shx", ".dbf", ".dbt", ".prj", ".cpg"}
		base := filepath.Base(path)
		if filepath.Ext(base) == ".zip" {
			return fmt.Errorf("pack does not yet support .zip inputs, point it at a directory basename")
		}
		written := 0
		for _, ext := range exts {
			data, err := os.ReadFile(path + ext)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return err
			}
			if err := tw.WriteHeader(&tar.Header{
				Name: base + ext,
				Mode: 0o644,
				Size: int64(len(data)),
			}); err != nil {
				return err
			}
			if _, err := tw.Write(data); err != nil {
				return err
			}
			written++
		}
		if written == 0 {
			return fmt.Errorf("no companion files found for %s", path)
		}
		if err := tw.Close(); err != nil {
			return err
		}

		compressed := zstdCompress(buf.Bytes())
		if err := os.WriteFile(packOutput, compressed, 0o644); err != nil {
			return err
		}

		digest := xxhash.Sum64(compressed)
		fmt.Printf("wrote %s (%d bytes, %d files, xxhash %016x)\n", packOutput, len(compressed), written, digest)
		return nil
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output path (default: <basename>.tar.zst)")
}
