package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/interchange"
)

var diffCmd = &cobra.Command{
	Use:   "diff <file.csv>",
	Short: "Compare a CSV file with the vault's export",
	Long: `Show the lines that differ between the vault exported as CSV and
another CSV file, for example before importing it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		other, err := readInput(args[0])
		if err != nil {
			return err
		}

		return withSession(cmd.Context(), func(s *session) error {
			var buf bytes.Buffer
			if err := s.mgr.ExportCSV(&buf); err != nil {
				return err
			}

			out := interchange.Diff(filepath.Base(args[0]), buf.String(), string(other))
			if out == "" {
				fmt.Println("no differences")
				return nil
			}
			printDiff(out)
			return nil
		})
	},
}

func printDiff(diff string) {
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			fmt.Println(bold(line))
		case strings.HasPrefix(line, "-"):
			fmt.Println(red(line))
		case strings.HasPrefix(line, "+"):
			fmt.Println(green(line))
		default:
			fmt.Println(line)
		}
	}
}
