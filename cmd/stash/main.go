// Command stash is the inspection and editing CLI for the shared
// configuration document.
//
// Stash-enabled programs persist their configurable fields into a single
// JSON document, one block per type. This tool lets users look at and edit
// that document between runs without hand-editing JSON.
//
// Usage:
//
//	stash list                        - Show every persisted class and field
//	stash get <class> [<field>]       - Print a class block or a single value
//	stash set <class> <field> <value> - Set a field value
//	stash unset <class> [<field>]     - Drop a field, or a whole class block
//	stash path                        - Print the document path in use
//
// Values given to "set" are parsed as JSON first ("42", "true", "[1,2]")
// and fall back to plain strings, so quoting is only needed for values that
// would otherwise parse as something else.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lc/stash/internal/buildinfo"
	"github.com/lc/stash/internal/config"
	"github.com/lc/stash/internal/document"
)

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var docPath string

	root := &cobra.Command{
		Use:   "stash",
		Short: "Inspect and edit the shared configuration document",
		Long: `Stash-enabled programs persist their configurable fields into a single
JSON document, one block per type. This tool inspects and edits that
document between runs.`,
	}
	root.PersistentFlags().StringVarP(&docPath, "document", "d", cfg.Document.Path,
		"path to the configuration document")

	store := func() document.Store { return document.Shared(docPath) }

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- path command ----
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the document path in use",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(docPath)
		},
	}

	// ---- list command ----
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List every persisted class and field",
		Example: "stash list",
		RunE: func(_ *cobra.Command, _ []string) error {
			doc := store().Load()
			if len(doc) == 0 {
				color.Yellow("No configuration persisted yet.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Class", "Field", "Value"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			table.SetColumnColor(
				tablewriter.Colors{tablewriter.FgGreenColor},
				tablewriter.Colors{tablewriter.FgHiWhiteColor},
				tablewriter.Colors{tablewriter.FgYellowColor},
			)

			for _, class := range sortedKeys(doc) {
				block := doc.Block(class)
				if len(block) == 0 {
					table.Append([]string{class, "-", renderValue(doc[class])})
					continue
				}
				for _, field := range sortedKeys(block) {
					table.Append([]string{class, field, renderValue(block[field])})
				}
			}

			color.New(color.Bold).Println("PERSISTED CONFIGURATION:")
			table.Render()
			return nil
		},
	}

	// ---- get command ----
	getCmd := &cobra.Command{
		Use:     "get <class> [field]",
		Short:   "Print a class block, or a single field value",
		Example: "stash get Widget size",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			doc := store().Load()
			block, ok := doc[args[0]]
			if !ok {
				return fmt.Errorf("class %q not found in %s", args[0], docPath)
			}
			if len(args) == 1 {
				fmt.Println(renderValue(block))
				return nil
			}
			val, ok := doc.Block(args[0])[args[1]]
			if !ok {
				return fmt.Errorf("field %q not found under %q", args[1], args[0])
			}
			fmt.Println(renderValue(val))
			return nil
		},
	}

	// ---- set command ----
	setCmd := &cobra.Command{
		Use:     "set <class> <field> <value>",
		Short:   "Set one field value in a class block",
		Example: `stash set Widget size 42`,
		Args:    cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			class, field := args[0], args[1]
			value := parseValue(args[2])

			s := store()
			block := s.Load().Block(class)
			block[field] = value
			if err := s.Replace(class, block); err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Printf("✓ Set ")
			color.New(color.FgHiGreen, color.Bold).Printf("%s.%s ", class, field)
			color.New(color.FgGreen, color.Bold).Printf("to ")
			color.New(color.FgHiYellow, color.Bold).Printf("%s\n", renderValue(value))
			return nil
		},
	}

	// ---- unset command ----
	unsetCmd := &cobra.Command{
		Use:     "unset <class> [field]",
		Short:   "Drop one field, or a whole class block",
		Example: "stash unset Widget size",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			class := args[0]
			s := store()

			if len(args) == 1 {
				if err := s.Replace(class, nil); err != nil {
					return err
				}
				color.New(color.FgGreen, color.Bold).Printf("✓ Removed class %s\n", class)
				return nil
			}

			block := s.Load().Block(class)
			if _, ok := block[args[1]]; !ok {
				return fmt.Errorf("field %q not found under %q", args[1], class)
			}
			delete(block, args[1])
			if err := s.Replace(class, block); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ Removed %s.%s\n", class, args[1])
			return nil
		},
	}

	root.AddCommand(listCmd, getCmd, setCmd, unsetCmd, pathCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// parseValue reads a CLI argument as JSON when possible so numbers, bools,
// arrays, and objects land typed; anything else stays a string.
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}
	return arg
}

// renderValue prints a document value in its compact JSON form.
func renderValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
