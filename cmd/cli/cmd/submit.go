package cmd

import (
	"vibeplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new generation job",
	Long: `Submit a natural-language prompt for app generation.

The job is admitted immediately if enough credits remain and then runs in
the background. Use 'vibectl status <job-id>' to follow its progress.

Example:
  vibectl submit --prompt "a kanban board with drag and drop"
  vibectl submit --prompt "a markdown editor" --model vibe-l`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		prompt, _ := flags.GetString("prompt")
		model, _ := flags.GetString("model")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the VIBEPLANE_TOKEN environment variable")
			return
		}

		if prompt == "" {
			cmd.Println("Error: --prompt is required")
			return
		}

		client := NewJobClient(url, token)

		result, err := client.SubmitJob(api.SubmitJobRequest{
			Prompt: prompt,
			Model:  model,
		})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Submit failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Submit failed: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Job submitted!\nJob ID: %s\nCredits remaining: %d\n", result.JobID, result.CreditsRemaining)
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("prompt", "p", "", "Prompt describing the app to generate (required)")
	flags.StringP("model", "m", "", "Model identifier, e.g. vibe-s, vibe-m, vibe-l (optional)")

	rootCmd.AddCommand(submitCmd)
}
