package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/ledger"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one receipt with its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			id, err := resolveReceiptID(s.mgr, args[0])
			if err != nil {
				return err
			}
			r, err := s.mgr.Receipt(id)
			if err != nil {
				return err
			}
			printReceipt(r)
			return nil
		})
	},
}

// resolveReceiptID expands a unique id prefix to the full id
func resolveReceiptID(mgr *core.Manager, prefix string) (string, error) {
	receipts, err := mgr.Receipts()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, r := range receipts {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", core.ErrReceiptNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d receipts)", prefix, len(matches))
	}
}

func resolveReceiptIDs(mgr *core.Manager, prefixes []string) ([]string, error) {
	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		id, err := resolveReceiptID(mgr, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printReceipt(r ledger.Receipt) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Printf("%s %s\n", bold("Store:"), r.DisplayStore())
	fmt.Printf("%s %s\n", bold("Date:"), r.Date)
	fmt.Printf("%s %s\n", bold("Total:"), formatYen(r.Total))
	if r.Category != "" {
		fmt.Printf("%s %s\n", bold("Category:"), r.Category)
	}
	if r.Note != "" {
		fmt.Printf("%s %s\n", bold("Note:"), r.Note)
	}
	if r.HasImage() {
		fmt.Printf("%s embedded (%s)\n", bold("Image:"), formatSize(int64(len(r.ImageData))))
	}
	fmt.Printf("%s %s\n", bold("ID:"), r.ID)
	fmt.Printf("%s %s, updated %s\n", bold("Created:"),
		r.CreatedAt.Local().Format(time.DateTime), r.UpdatedAt.Local().Format(time.DateTime))

	if len(r.Items) == 0 {
		return
	}
	fmt.Println()
	for _, item := range r.Items {
		fmt.Printf("  %-28s %3d x %9s = %10s  %s\n",
			truncate(item.Name, 28), item.Quantity, formatYen(item.Price),
			formatYen(item.Subtotal()), item.Category)
	}
	if sum := r.ItemsTotal(); sum != r.Total {
		fmt.Printf("  %s\n", color.YellowString("items add up to %s", formatYen(sum)))
	}
}
