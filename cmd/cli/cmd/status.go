package cmd

import (
	"fmt"
	"time"
	"vibeplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of a generation job",
	Long:  `Retrieve detailed status information for a generation job, including its current state (PENDING, RUNNING, COMPLETED, FAILED, CANCELLED), preview URL and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the VIBEPLANE_TOKEN environment variable")
			return
		}

		client := NewJobClient(url, token)

		job, err := client.GetJob(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		printStatus(cmd, *job)
	},
}

func printStatus(cmd *cobra.Command, job api.JobStatusResponse) {
	// Header with status icon
	icon := statusIcon(job.Status)
	cmd.Printf("%s %sJob Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	// ID
	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, job.ID)

	// Status with icon
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(job.Status))

	// Model
	cmd.Printf("%sModel:%s       %s\n", colorDim, colorReset, job.Model)

	// Prompt
	cmd.Printf("%sPrompt:%s      %s\n", colorDim, colorReset, job.Prompt)

	// Preview URL (if present)
	if job.PreviewURL != "" {
		cmd.Printf("%sPreview:%s     %s%s%s\n", colorDim, colorReset, colorCyan, job.PreviewURL, colorReset)
	}

	// Error (if present)
	if job.ErrorDetail != "" {
		cmd.Printf("%sError:%s       %s%s%s\n", colorDim, colorReset, colorRed, job.ErrorDetail, colorReset)
	}

	// Timestamps with relative time
	cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(job.CreatedAt))

	// Duration to last update for finished jobs
	if job.Status == "COMPLETED" || job.Status == "FAILED" || job.Status == "CANCELLED" {
		duration := job.LastUpdated.Sub(job.CreatedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(job.LastUpdated),
			colorCyan, formatDuration(duration), colorReset)
	} else {
		cmd.Printf("%sUpdated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(job.LastUpdated))
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "COMPLETED":
		return colorGreen + "✓" + colorReset
	case "FAILED":
		return colorRed + "✗" + colorReset
	case "RUNNING":
		return colorYellow + "⏳" + colorReset
	case "PENDING":
		return colorCyan + "◯" + colorReset
	case "CANCELLING", "CANCELLED":
		return colorYellow + "⊘" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "COMPLETED":
		return icon + " " + colorGreen + status + colorReset
	case "FAILED":
		return icon + " " + colorRed + status + colorReset
	case "RUNNING", "CANCELLING":
		return icon + " " + colorYellow + status + colorReset
	case "PENDING":
		return icon + " " + colorCyan + status + colorReset
	case "CANCELLED":
		return icon + " " + colorDim + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	relative := relativeTime(t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
