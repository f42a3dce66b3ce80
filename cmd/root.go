package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "svea-payments",
	Short: "Svea payment gateway microservice",
	Long:  "A payment microservice for the Svea hosted payment flow: redirect forms, return callbacks, and status query reconciliation jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
