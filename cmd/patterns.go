package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the available exercises",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), patternTable(pattern.Patterns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

func patternTable(patterns []pattern.Pattern) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CATEGORY", "LEVEL", "NOTES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, p := range patterns {
		t.Row(p.ID, p.Name, p.Category, strings.Repeat("★", p.Difficulty), strconv.Itoa(len(p.Intervals)))
	}
	return t.String()
}
