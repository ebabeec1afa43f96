// Command catalogcheck validates storefront catalog files before they are
// deployed. It exits non-zero when any file has errors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/adapters/catalogfile"
	"storefront/internal/domain/catalog"
)

var errCheckFailed = errors.New("catalog check failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var strict, quiet bool
	cmd := &cobra.Command{
		Use:   "catalogcheck [file...]",
		Short: "Validate storefront catalog YAML files",
		Long: `Parses each catalog file with the server's loader and reports data-integrity
errors and warnings. With no arguments the embedded catalog is checked.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{""}
			}
			failed := false
			for _, path := range args {
				if !checkFile(cmd.OutOrStdout(), path, strict, quiet) {
					failed = true
				}
			}
			if failed {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only failing files")
	return cmd
}

// checkFile reports one catalog and returns whether it passed.
func checkFile(out io.Writer, path string, strict, quiet bool) bool {
	name := path
	data, err := readCatalog(path)
	if name == "" {
		name = "(embedded)"
	}
	if err != nil {
		fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
		return false
	}

	c, report, err := catalogfile.Parse(data)
	ok := err == nil && (!strict || len(report.Warnings) == 0)
	if ok && quiet {
		return true
	}

	status := "ok  "
	if !ok {
		status = "FAIL"
	}
	fmt.Fprintf(out, "%s %s: %s\n", status, name, report.Summary())
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	if err != nil && len(report.Errors) == 0 {
		// decode failures carry no report
		fmt.Fprintf(out, "  error: %v\n", err)
	}
	if c != nil && !quiet {
		printCounts(out, c)
	}
	return ok
}

func readCatalog(path string) ([]byte, error) {
	if path == "" {
		return catalogfile.Embedded(), nil
	}
	return os.ReadFile(path)
}

func printCounts(out io.Writer, c *catalog.Catalog) {
	fmt.Fprintf(out, "  %d categories, %d products, %d services, %d rentals\n",
		len(c.Categories), len(c.Products), len(c.Services), len(c.Rentals))
}
