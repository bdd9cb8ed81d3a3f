package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docbind/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>...",
	Short: "Recognize the text of images and PDFs",
	Long: `OCR prints the text of each file. PDF pages that already carry a text
layer are read directly; the rest are rasterized and recognized with Tesseract.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		items := make([]ocr.Item, 0, len(args))
		for i, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			items = append(items, ocr.Item{ListingID: int64(i + 1), FileName: filepath.Base(path), Data: data})
		}

		c := components()
		results, err := c.OCR.Recognize(cmd.Context(), items)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		failed := 0
		for i, r := range results {
			fmt.Fprintf(out, "==> %s <==\n", args[i])
			if r.Error != "" {
				failed++
				fmt.Fprintf(out, "error: %s\n\n", r.Error)
				continue
			}
			fmt.Fprintf(out, "[%s]\n%s\n\n", r.Method, r.Text)
		}
		if failed > 0 {
			return fmt.Errorf("%d file(s) failed", failed)
		}
		return nil
	},
}

func init() {
	ocrCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(ocrCmd)
}
