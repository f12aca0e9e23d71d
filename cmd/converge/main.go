package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "converge",
	Short: "Converge — project team matching backend",
	Long:  "Converge is the backend for a resume-driven collaboration platform: users register with free-text resumes, an extraction service turns them into structured profiles, and project owners assemble teams from the resulting candidate pool.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/converge.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
