package cmd

import (
	"vibeplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [job_id]",
	Short: "Cancel a running generation job",
	Long: `Request cancellation of a pending or running generation job.

Cancellation is cooperative: the worker stops at the next checkpoint, tears
down the sandbox and marks the job CANCELLED. Jobs that already finished
are left untouched.

Example:
  vibectl cancel 3f1c2a88-9f6e-4b2a-b1de-0c6a55f1d2aa`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		sandboxID, _ := cmd.Flags().GetString("sandbox")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the VIBEPLANE_TOKEN environment variable")
			return
		}

		client := NewJobClient(url, token)

		result, err := client.CancelJob(jobID, api.CancelJobRequest{SandboxID: sandboxID})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Cancel failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Cancel failed: %v\n", err)
			}
			return
		}

		if result.Success {
			cmd.Printf("✓ Cancellation requested for job %s\n", jobID)
		} else {
			cmd.Printf("Job %s could not be cancelled\n", jobID)
		}
	},
}

func init() {
	cancelCmd.Flags().String("sandbox", "", "Sandbox ID to tear down (optional, defaults to the job's sandbox)")

	rootCmd.AddCommand(cancelCmd)
}
