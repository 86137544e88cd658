package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task <message>",
	Short: "Run a task and stream its progress",
	Args:  cobra.MinimumNArgs(1),
	RunE:  taskRun,
}

func init() {
	rootCmd.AddCommand(taskCmd)
}

func taskRun(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	payload, err := json.Marshal(map[string]any{"message": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(serverURL, "/")+"/task", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	// The server streams one JSON event per line.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev struct {
			Type    string  `json:"type"`
			Text    string  `json:"text"`
			Elapsed float64 `json:"elapsed"`
			Model   string  `json:"model"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "thinking":
			fmt.Println("⏳ thinking...")
		case "progress":
			fmt.Printf("  • %s\n", ev.Text)
		case "result":
			fmt.Printf("\n%s\n\n(%.1fs, %s)\n", ev.Text, ev.Elapsed, ev.Model)
		}
	}
	return scanner.Err()
}
