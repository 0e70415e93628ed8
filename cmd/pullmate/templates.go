package main

import (
	"fmt"
	"os"

	"github.com/saint0x/pullmate/pkg/templates"
	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates [name]",
		Short: "List PR templates, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTemplates,
	}
	cmd.Flags().String("file", os.Getenv("TEMPLATES_PATH"), "YAML file overriding the built-in templates")
	return cmd
}

func loadTemplates(path string) (*templates.Set, error) {
	if path == "" {
		return templates.Defaults()
	}
	return templates.Load(path)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	set, err := loadTemplates(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		tpl, err := set.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, tpl.Body)
		return nil
	}

	for _, tpl := range set.List() {
		fmt.Fprintf(out, "%-12s %s\n", tpl.Name, tpl.Description)
	}
	return nil
}
