package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your generation jobs",
	Long: `List your generation jobs, most recent first.

Example:
  vibectl list`,
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the VIBEPLANE_TOKEN environment variable")
			return
		}

		client := NewJobClient(url, token)

		result, err := client.ListJobs()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		if len(result.Jobs) == 0 {
			cmd.Println("No jobs found.")
			return
		}

		for _, job := range result.Jobs {
			prompt := job.Prompt
			if len(prompt) > 48 {
				prompt = prompt[:45] + "..."
			}
			cmd.Printf("%s  %-36s  %s%s%s\n", colorizeStatus(job.Status), job.ID, colorDim, prompt, colorReset)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
