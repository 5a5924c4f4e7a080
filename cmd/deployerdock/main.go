package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "deployerdock",
	Short: "Minimal deploy-and-serve platform for static frontends",
	Long: `Deployerdock is a minimal platform-as-a-service for static frontends.

Give it a git URL and it clones the repository, runs its build, and serves
the output at a freshly minted subdomain, multiplexing every deployed site
behind a single port using the HTTP Host header.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Register subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
