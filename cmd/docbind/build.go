package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docbind/internal/assemble"
	"github.com/dgallion1/docbind/internal/listing"
)

var buildCmd = &cobra.Command{
	Use:   "build [title=path ...]",
	Short: "Assemble files into a bundle",
	Long: `Build normalizes every listing, lays out the index and writes the bundle.
Listings come from positional "title=path" arguments (a bare path is titled by
its file name) or from a YAML manifest:

  title: Hearing bundle
  format: pdf
  output: bundle.pdf
  listings:
    - title: Witness statement
      path: statement.pdf
    - path: photo.jpg

If any listing fails no bundle is written.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("manifest", "m", "", "YAML manifest describing the bundle")
	buildCmd.Flags().StringP("format", "f", "", "output format: pdf or docx (default pdf)")
	buildCmd.Flags().StringP("title", "t", "", "bundle title printed above the index")
	buildCmd.Flags().StringP("out", "o", "", "output file (default index.pdf / index.docx)")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	m := &Manifest{}
	if path, _ := cmd.Flags().GetString("manifest"); path != "" {
		var err error
		if m, err = LoadManifest(path); err != nil {
			return err
		}
	}
	for _, a := range args {
		m.Listings = append(m.Listings, parseEntry(a))
	}
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		m.Format = f
	}
	if t, _ := cmd.Flags().GetString("title"); t != "" {
		m.Title = t
	}
	if o, _ := cmd.Flags().GetString("out"); o != "" {
		m.Output = o
	}
	if len(m.Listings) == 0 {
		return errors.New("no listings: pass title=path arguments or --manifest")
	}

	listings, err := readListings(m.Listings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := components()
	res, err := c.Pipeline.Run(ctx, assemble.Request{
		Title:    m.Title,
		Format:   m.Format,
		Listings: listings,
	}, &assemble.Observer{
		Phase: func(p string) { log.Debug("phase", "phase", p) },
		ListingDone: func(l listing.Listing, err error) {
			if err == nil {
				log.Debug("listing normalized", "listing", l.Title)
			}
		},
	})
	var failed *assemble.FailedError
	if errors.As(err, &failed) {
		for _, f := range failed.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s\n", f.Error())
		}
		return fmt.Errorf("%d of %d listings failed; no bundle written", len(failed.Failures), len(listings))
	}
	if err != nil {
		return err
	}

	out := m.Output
	if out == "" {
		out = res.FileName
	}
	if err := os.WriteFile(out, res.Document, 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	printIndex(cmd.OutOrStdout(), res)
	log.Info("bundle written", "path", out, "index_pages", res.IndexPages, "content_pages", len(res.PageNumbers))
	return nil
}

func printIndex(w io.Writer, res *assemble.Result) {
	skipped := make(map[int64]bool, len(res.Skipped))
	for _, id := range res.Skipped {
		skipped[id] = true
	}
	for _, row := range res.Index.Rows {
		note := ""
		if skipped[row.ListingID] {
			note = "  (skipped: unsupported)"
		}
		fmt.Fprintf(w, "%3d  %-50s %s%s\n", row.Serial, row.Title, row.PageRange(), note)
	}
	fmt.Fprintf(w, "%d pages\n", res.Index.TotalPages)
}
