package cmd

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/ledger"
	"github.com/illarion/receiptvault/internal/ocr"
)

var (
	recStore    string
	recDate     string
	recTotal    int64
	recCategory string
	recNote     string
	recItems    []string

	addFromJSON  string
	addImage     string
	addSaveImage bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a receipt",
	Long: `Add a receipt from flags, from an OCR result, or both.

--from-json reads the JSON produced by the OCR or AI vision step. Fields it
leaves out keep their defaults (today's date, total 0). Flags given on the
command line override it.

Items use the form name:price[:quantity[:category]].`,
	Example: `  receiptvault add --store SuperMart --total 980 --date 2024-05-01
  receiptvault add --from-json scan.json --image scan.jpg --save-image
  receiptvault add --store Bakery --item "Bread:200" --item "Milk:150:2:groceries"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extraction := &ocr.Extraction{}
		if addFromJSON != "" {
			f, err := os.Open(addFromJSON)
			if err != nil {
				return err
			}
			extraction, err = ocr.Decode(f)
			f.Close()
			if err != nil {
				return err
			}
		}
		if err := applyReceiptFlags(cmd, extraction); err != nil {
			return err
		}

		var imageData string
		if addImage != "" && (addSaveImage || cfg.SaveImages) {
			data, err := readImage(addImage)
			if err != nil {
				return err
			}
			imageData = data
		} else if addImage != "" {
			Logger.Warnf("image not stored; pass --save-image or set save_images in the config")
		}

		return withSession(cmd.Context(), func(s *session) error {
			r, err := s.mgr.AddExtraction(cmd.Context(), extraction, func(r *ledger.Receipt) {
				r.ImageData = imageData
				if cmd.Flags().Changed("note") {
					r.Note = recNote
				}
			})
			if err != nil {
				return err
			}
			fmt.Printf("added %s: %s %s %s\n", shortID(r.ID), r.Date, r.DisplayStore(), formatYen(r.Total))
			return nil
		})
	},
}

func init() {
	addReceiptFlags(addCmd)
	addCmd.Flags().StringVar(&addFromJSON, "from-json", "", "OCR result to start from")
	addCmd.Flags().StringVar(&addImage, "image", "", "receipt image file")
	addCmd.Flags().BoolVar(&addSaveImage, "save-image", false, "embed the image in the vault")
}

func addReceiptFlags(c *cobra.Command) {
	c.Flags().StringVar(&recStore, "store", "", "store name")
	c.Flags().StringVar(&recDate, "date", "", "visit date (YYYY-MM-DD)")
	c.Flags().Int64Var(&recTotal, "total", 0, "receipt total in yen")
	c.Flags().StringVar(&recCategory, "category", "", "category label")
	c.Flags().StringVar(&recNote, "note", "", "free-form note")
	c.Flags().StringArrayVar(&recItems, "item", nil, "line item name:price[:quantity[:category]] (repeatable)")
}

// applyReceiptFlags overlays the flags the user set onto e
func applyReceiptFlags(cmd *cobra.Command, e *ocr.Extraction) error {
	flags := cmd.Flags()
	if flags.Changed("store") {
		e.StoreName = &recStore
	}
	if flags.Changed("date") {
		if !ledger.ValidDate(recDate) {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", recDate)
		}
		e.Date = &recDate
	}
	if flags.Changed("total") {
		if recTotal < 0 {
			return fmt.Errorf("total must not be negative")
		}
		total := ocr.Amount(recTotal)
		e.Total = &total
	}
	if flags.Changed("category") {
		e.Category = &recCategory
	}
	if flags.Changed("item") {
		items, err := parseItems(recItems)
		if err != nil {
			return err
		}
		e.Items = items
	}
	return nil
}

func parseItems(args []string) ([]ocr.ExtractedItem, error) {
	items := make([]ocr.ExtractedItem, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) < 2 || len(parts) > 4 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid item %q, expected name:price[:quantity[:category]]", arg)
		}
		price, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price in item %q", arg)
		}
		item := ocr.ExtractedItem{Name: parts[0], Price: ocr.Amount(price)}
		if len(parts) > 2 {
			qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil || qty < 1 {
				return nil, fmt.Errorf("invalid quantity in item %q", arg)
			}
			q := ocr.Amount(qty)
			item.Quantity = &q
		}
		if len(parts) > 3 {
			category := parts[3]
			item.Category = &category
		}
		items = append(items, item)
	}
	return items, nil
}

// readImage loads an image file as a data URI
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return ocr.DataURI(mimeType, data), nil
}
