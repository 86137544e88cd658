package cmd

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show agent service health",
	RunE:  healthRun,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func healthRun(cmd *cobra.Command, args []string) error {
	var status struct {
		Status           string `json:"status"`
		Mode             string `json:"mode"`
		Model            string `json:"model"`
		Skills           int    `json:"skills"`
		RemoteTools      int    `json:"remote_tools"`
		SchedulerRunning bool   `json:"scheduler_running"`
		ScheduledJobs    int    `json:"scheduled_jobs"`
		Transcription    bool   `json:"transcription"`
	}
	if err := doJSON(http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "status\t%s\n", status.Status)
	_, _ = fmt.Fprintf(w, "mode\t%s\n", status.Mode)
	_, _ = fmt.Fprintf(w, "model\t%s\n", status.Model)
	_, _ = fmt.Fprintf(w, "skills\t%d\n", status.Skills)
	_, _ = fmt.Fprintf(w, "remote tools\t%d\n", status.RemoteTools)
	_, _ = fmt.Fprintf(w, "scheduler\t%v (%d jobs)\n", status.SchedulerRunning, status.ScheduledJobs)
	_, _ = fmt.Fprintf(w, "transcription\t%v\n", status.Transcription)
	return w.Flush()
}
