package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available subjects and the valid year range",
	Run: func(cmd *cobra.Command, args []string) {
		listSubjects(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
