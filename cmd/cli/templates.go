package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanwell/scanwell/internal/templates"
)

var templatesDir string

// templatesCmd groups scan template commands.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage scan templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom scan templates",
	Run:   runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one template as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runTemplatesShow,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom template",
	Args:  cobra.ExactArgs(1),
	Run:   runTemplatesDelete,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)

	templatesCmd.PersistentFlags().StringVar(&templatesDir, "dir", "templates", "Directory holding custom template files")
}

func runTemplatesList(_ *cobra.Command, _ []string) {
	manager := templates.NewManager(templatesDir)
	list, err := manager.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Preset", "Source", "Description")
	for i := range list {
		tpl := &list[i]
		source := "custom"
		if tpl.BuiltIn {
			source = "built-in"
		}
		_ = table.Append([]string{
			tpl.ID,
			tpl.Name,
			string(tpl.Options.Preset),
			source,
			tpl.Description,
		})
	}
	_ = table.Render()
}

func runTemplatesShow(_ *cobra.Command, args []string) {
	manager := templates.NewManager(templatesDir)
	tpl, err := manager.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tpl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTemplatesDelete(_ *cobra.Command, args []string) {
	manager := templates.NewManager(templatesDir)
	if err := manager.Delete(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted template %q\n", args[0])
}
