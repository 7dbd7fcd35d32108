package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/config"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export receipts as CSV",
	Long: `Export receipts as CSV, one row per line item.

Columns: date,store,store_category,item_name,item_category,quantity,
unit_price,subtotal,receipt_total,note. The file starts with a UTF-8 BOM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			if exportOutput == "" || exportOutput == "-" {
				return s.mgr.ExportCSV(os.Stdout)
			}

			f, err := os.OpenFile(exportOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePerm)
			if err != nil {
				return err
			}
			if err := writeAndClose(f, s.mgr.ExportCSV); err != nil {
				return fmt.Errorf("failed to write %s: %w", exportOutput, err)
			}
			fmt.Fprintf(os.Stderr, "exported to %s\n", exportOutput)
			return nil
		})
	},
}

// writeAndClose runs write against wc and closes it, reporting the first
// error from either
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	err := write(wc)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
}
