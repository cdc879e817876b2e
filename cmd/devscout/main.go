package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env if present. Real environment variables win over file values.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "devscout",
		Short: "Developer tool discovery service",
	}
	root.AddCommand(serveCMD(), researchCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
