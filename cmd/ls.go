package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/ledger"
)

var (
	lsLimit    int
	lsCategory string
	lsMonth    string
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List receipts, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			receipts, err := s.mgr.Receipts()
			if err != nil {
				return err
			}
			printReceipts(filterReceipts(receipts))
			return nil
		})
	},
}

func init() {
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "show at most n receipts")
	lsCmd.Flags().StringVar(&lsCategory, "category", "", "only receipts with this category")
	lsCmd.Flags().StringVar(&lsMonth, "month", "", "only receipts from this month (YYYY-MM)")
}

func filterReceipts(receipts []ledger.Receipt) []ledger.Receipt {
	var out []ledger.Receipt
	for _, r := range receipts {
		if lsCategory != "" && r.Category != lsCategory {
			continue
		}
		if lsMonth != "" && !strings.HasPrefix(r.Date, lsMonth+"-") {
			continue
		}
		out = append(out, r)
		if lsLimit > 0 && len(out) == lsLimit {
			break
		}
	}
	return out
}

func printReceipts(receipts []ledger.Receipt) {
	if len(receipts) == 0 {
		fmt.Println("No receipts")
		return
	}

	dim := color.New(color.Faint).SprintFunc()
	var sum int64
	for _, r := range receipts {
		flags := ""
		if r.HasImage() {
			flags = " [img]"
		}
		fmt.Printf("%s  %s  %-24s %12s  %-14s %2d items%s\n",
			dim(shortID(r.ID)), r.Date, truncate(r.DisplayStore(), 24),
			formatYen(r.Total), r.Category, len(r.Items), flags)
		sum += r.Total
	}
	fmt.Printf("\n%d receipts, total %s\n", len(receipts), formatYen(sum))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
