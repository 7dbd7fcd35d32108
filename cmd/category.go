package cmd

import (
	"fmt"
	"regexp"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/ledger"
)

var (
	categoryName  string
	categoryColor string
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage spending categories",
}

var categoryLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			v, err := s.mgr.Snapshot()
			if err != nil {
				return err
			}
			used := map[string]int{}
			for _, r := range v.Receipts {
				used[r.Category]++
			}
			for _, c := range v.Categories {
				fmt.Printf("%-16s %-20s %s  %d receipts\n", c.ID, c.Name, swatch(c.Color), used[c.ID])
			}
			return nil
		})
	},
}

var categorySetCmd = &cobra.Command{
	Use:   "set [id]",
	Short: "Add a category or change an existing one",
	Example: `  receiptvault category set --name Pets --color "#795548"
  receiptvault category set dining --name "Eating out"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if categoryColor != "" && !hexColor.MatchString(categoryColor) {
			return fmt.Errorf("invalid color %q, expected #rrggbb", categoryColor)
		}

		return withSession(cmd.Context(), func(s *session) error {
			c := ledger.Category{Name: categoryName, Color: categoryColor}
			if len(args) == 1 {
				c.ID = args[0]
				v, err := s.mgr.Snapshot()
				if err != nil {
					return err
				}
				if existing := v.FindCategory(c.ID); existing != nil {
					if c.Name == "" {
						c.Name = existing.Name
					}
					if c.Color == "" {
						c.Color = existing.Color
					}
				}
			}

			saved, err := s.mgr.SaveCategory(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Printf("saved category %s (%s)\n", saved.ID, saved.Name)
			return nil
		})
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a category definition",
	Long:  "Delete a category definition. Receipts keep their category label.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			if err := s.mgr.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("removed category %s\n", args[0])
			return nil
		})
	},
}

func init() {
	categorySetCmd.Flags().StringVar(&categoryName, "name", "", "display name")
	categorySetCmd.Flags().StringVar(&categoryColor, "color", "", "color as #rrggbb")

	categoryCmd.AddCommand(categoryLsCmd)
	categoryCmd.AddCommand(categorySetCmd)
	categoryCmd.AddCommand(categoryRmCmd)
}

// swatch renders a colored block for a #rrggbb color
func swatch(hex string) string {
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return hex
	}
	return color.RGB(r, g, b).Sprint("██") + " " + hex
}
