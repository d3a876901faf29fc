package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewmetrics/internal/influx"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List supported categories and their backend measurements",
	RunE:  runCategories,
}

func init() {
	RootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	fmt.Printf("%-20s %-28s %s\n", "Category", "Measurement", "Dimension")
	fmt.Println(strings.Repeat("─", 64))
	for _, cat := range influx.Categories {
		fmt.Printf("%-20s %-28s %s\n", cat.Name, cat.Measurement, cat.DimensionKey)
	}
	return nil
}
