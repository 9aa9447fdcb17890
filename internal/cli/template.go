package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/templar/internal/template"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <template.yaml>",
		Short: "Validate a template file",
		Long: `Validate checks a template for structural problems: missing titles,
estimation shares outside 0-100, unknown activities, duplicate task
IDs, unresolved dependencies, and unparsable conditions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := template.Load(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s is valid\n", args[0])
			return nil
		},
	}
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <template.yaml>",
		Short: "Print a template's tasks in dependency order",
		Long: `Order topologically sorts a template's tasks by their depends_on
edges and prints the creation order. Cycles are reported as errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tpl, err := template.Load(args[0])
			if err != nil {
				return err
			}

			ordered, err := tpl.Order()
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(ordered)
			}
			for i, task := range ordered {
				deps := ""
				if len(task.DependsOn) > 0 {
					deps = fmt.Sprintf("  (after %v)", task.DependsOn)
				}
				fmt.Printf("%2d. %s%s\n", i+1, task.Title, deps)
			}
			return nil
		},
	}
}
