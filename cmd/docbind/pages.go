package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docbind/internal/listing"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file>...",
	Short: "Print the page count of each file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := components()
		ctx := cmd.Context()
		failed := 0
		for i, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			l := listing.Listing{ID: int64(i + 1), Index: i, FileName: filepath.Base(path), Data: data}

			var n int
			switch l.Kind() {
			case listing.KindPDF:
				n, err = c.Raster.PageCount(ctx, data)
			case listing.KindUnsupported:
				err = listing.ErrUnsupported
			default:
				var doc listing.ListingDocument
				doc, err = c.Normalizer.Normalize(ctx, l)
				n = len(doc.Pages)
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s\terror: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", path, n)
		}
		if failed > 0 {
			return fmt.Errorf("%d file(s) could not be counted", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}
