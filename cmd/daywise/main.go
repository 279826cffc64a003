package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "daywise",
	Short: "Turn a syllabus into a day-by-day learning roadmap",
	Long: `daywise generates day-partitioned learning roadmaps from syllabus text
with a language model and tracks progress on each topic.

Configuration is read from the environment (see GEMINI_API_KEY,
STORAGE_BACKEND, SERVER_PORT, LOG_LEVEL and friends).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
