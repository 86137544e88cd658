package cmd

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage declarative skills",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills",
	RunE:  skillsListRun,
}

var skillsCreateCmd = &cobra.Command{
	Use:   "create <file.yaml>",
	Short: "Create a skill from a YAML definition file",
	Args:  cobra.ExactArgs(1),
	RunE:  skillsCreateRun,
}

var skillsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a skill",
	Args:  cobra.ExactArgs(1),
	RunE:  skillsDeleteRun,
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsCreateCmd)
	skillsCmd.AddCommand(skillsDeleteCmd)
	rootCmd.AddCommand(skillsCmd)
}

func skillsListRun(cmd *cobra.Command, args []string) error {
	var defs []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Disabled    bool   `json:"disabled"`
	}
	if err := doJSON(http.MethodGet, "/skills", nil, &defs); err != nil {
		return err
	}

	if len(defs) == 0 {
		fmt.Println("No skills defined.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "NAME\tTYPE\tENABLED\tDESCRIPTION\n")
	for _, def := range defs {
		desc := def.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", def.Name, def.Type, !def.Disabled, desc)
	}
	return w.Flush()
}

func skillsCreateRun(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	// Parse locally first so the user gets YAML errors before a round-trip.
	var def map[string]any
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	if err := doJSON(http.MethodPost, "/skills", def, nil); err != nil {
		return err
	}
	fmt.Printf("Created skill %v\n", def["name"])
	return nil
}

func skillsDeleteRun(cmd *cobra.Command, args []string) error {
	if err := doJSON(http.MethodDelete, "/skills/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
