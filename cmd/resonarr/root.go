package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFile string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "resonarr",
	Short: "CLI for resonarr music automation",
	Long: `resonarr - music release monitor and downloader

Monitors catalog artists and playlists, records newly published
releases in a local library, and downloads the audio with tags.

Run 'resonarrd' to start the monitoring daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: standard search order)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("resonarr {{.Version}}\n")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
