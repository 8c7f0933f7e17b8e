package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show remaining credits and recent usage",
	Long: `Show the current credit balance, the daily allowance for your tier,
when the balance resets and the most recent charges.

Example:
  vibectl credits`,
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the VIBEPLANE_TOKEN environment variable")
			return
		}

		client := NewJobClient(url, token)

		status, err := client.GetCredits()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		cmd.Printf("%sCredits%s\n", colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sBalance:%s     %d / %d\n", colorDim, colorReset, status.Current, status.Daily)
		cmd.Printf("%sTier:%s        %s\n", colorDim, colorReset, status.Tier)
		cmd.Printf("%sResets:%s      %s\n", colorDim, colorReset, status.ResetAt.Format("Mon, 02 Jan 2006 15:04:05 MST"))

		if len(status.Usage) > 0 {
			cmd.Printf("\n%sRecent usage%s\n", colorBold, colorReset)
			for _, entry := range status.Usage {
				mark := colorGreen + "✓" + colorReset
				if !entry.Success {
					mark = colorRed + "✗" + colorReset
				}
				cmd.Printf("  %s %-18s %2d %s(%s)%s\n", mark, entry.Action, entry.Cost,
					colorDim, relativeTime(entry.CreatedAt)+" ago", colorReset)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(creditsCmd)
}
