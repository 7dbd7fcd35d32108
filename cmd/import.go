package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/interchange"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file.csv|->",
	Short: "Import receipts from CSV",
	Long: `Import receipts from a CSV file in the export format.

Rows with the same date, store, total and note are collapsed into one
receipt without line items. Imported receipts are added in front of the
existing ones and are not matched against them: importing the same file
twice stores its receipts twice. Use 'receiptvault diff' first to check.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}

		if importDryRun {
			printImportResult(interchange.Import(data, interchange.ImportOptions{}), true)
			return nil
		}

		return withSession(cmd.Context(), func(s *session) error {
			res, err := s.mgr.ImportCSV(cmd.Context(), data)
			if err != nil {
				return err
			}
			printImportResult(res, false)
			return nil
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and report without changing the vault")
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printImportResult(res *interchange.ImportResult, dryRun bool) {
	for _, w := range res.Warnings {
		Logger.Warnf("%s", w)
	}
	verb := "imported"
	if dryRun {
		verb = "would import"
	}
	fmt.Printf("%s: %d receipts from %d rows", verb, len(res.Receipts), res.Rows)
	if res.Collapsed > 0 {
		fmt.Printf(" (%d item rows collapsed)", res.Collapsed)
	}
	fmt.Println()
	if len(res.Warnings) > 0 {
		fmt.Println(color.YellowString("%d rows skipped or malformed", len(res.Warnings)))
	}
}
