package cmd

import "github.com/spf13/cobra"

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the most recent run after a coordinator restart",
	Long: `Reload each lane's last persisted state from the most recent run
directory and continue the tick loop (§9.1 best-effort resume). No child
process is assumed to have survived the restart: any lane that was
mid-flight retries from its last recorded task index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOrResume(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
