package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"receipts/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "receipts",
	Short: "Receipt upload and text detection functions",
	Long: `receipts hosts two functions:

  UploadFile   accepts a multipart "file" field and stores it in the bucket
  ProcessFile  runs text detection on images written to the bucket

Use "serve" to host both with the Functions Framework, or "upload" and
"process" to run a single invocation from the command line.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("receipts executed")

		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
