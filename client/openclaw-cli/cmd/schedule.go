package cmd

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled tasks",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scheduled tasks",
	RunE:  scheduleListRun,
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a scheduled task",
	Args:  cobra.ExactArgs(1),
	RunE:  scheduleCancelRun,
}

func init() {
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleCancelCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func scheduleListRun(cmd *cobra.Command, args []string) error {
	var jobs []struct {
		ID      string `json:"id"`
		Label   string `json:"label"`
		NextRun string `json:"next_run"`
		Trigger string `json:"trigger"`
	}
	if err := doJSON(http.MethodGet, "/schedules", nil, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No scheduled tasks.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\tLABEL\tTRIGGER\tNEXT RUN\n")
	for _, job := range jobs {
		label := job.Label
		if len(label) > 50 {
			label = label[:47] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", job.ID, label, job.Trigger, job.NextRun)
	}
	return w.Flush()
}

func scheduleCancelRun(cmd *cobra.Command, args []string) error {
	if err := doJSON(http.MethodDelete, "/schedules/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("Cancelled %s\n", args[0])
	return nil
}
