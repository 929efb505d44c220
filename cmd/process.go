package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"receipts/internal/event"
	"receipts/internal/logger"
	"receipts/internal/processing"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run text detection on a stored object",
	Long: `Handle one storage event locally, as ProcessFile would for an object
written to the bucket. Objects whose content type is not image/* are skipped.`,
	Example: `  # Detect text in an uploaded receipt
  receipts process --name receipt.png --content-type image/png

  # Other bucket, JSON output, one minute limit
  receipts process --bucket scans --name a.jpg --content-type image/jpeg --json --timeout 1m`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

// ProcessOutput is printed with --json.
type ProcessOutput struct {
	Bucket        string `json:"bucket"`
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	Skipped       bool   `json:"skipped"`
	ExtractedText string `json:"extracted_text"`
	Persisted     bool   `json:"persisted"`
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("bucket", "", "Bucket name (default: $BUCKET_NAME)")
	processCmd.Flags().String("name", "", "Object name")
	processCmd.Flags().String("content-type", "", "Object content type")
	processCmd.Flags().Bool("json", false, "Output as JSON")
	processCmd.Flags().Duration("timeout", 0, "Processing timeout (0 for none)")
	processCmd.MarkFlagRequired("name")
	processCmd.MarkFlagRequired("content-type")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	bucket, _ := cmd.Flags().GetString("bucket")
	name, _ := cmd.Flags().GetString("name")
	contentType, _ := cmd.Flags().GetString("content-type")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := newCommandContext(timeout, log)
	defer cancel()

	a, err := buildApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if bucket == "" {
		bucket = a.Config().BucketName
	}

	start := time.Now()
	res, err := a.Processor().Process(ctx, event.StorageEvent{
		Bucket:      bucket,
		Name:        name,
		ContentType: contentType,
	})
	if err != nil {
		return explainError(err, log)
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Processing finished")

	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res *processing.Result) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if !jsonOutput {
		if res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s (%s)\n", res.Event.Name, res.Event.ContentType)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.ExtractedText)
		return nil
	}

	out, err := json.MarshalIndent(ProcessOutput{
		Bucket:        res.Event.Bucket,
		FileName:      res.Event.Name,
		ContentType:   res.Event.ContentType,
		Skipped:       res.Skipped,
		ExtractedText: res.ExtractedText,
		Persisted:     res.Persisted,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
