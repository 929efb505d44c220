package cmd

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"receipts/internal/event"
	"receipts/internal/logger"
	"receipts/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a local file to the bucket",
	Long: `Store a local file in the configured bucket under its base name, exactly
as the UploadFile function does, and print the JSON descriptor.

With --process the stored object is handed to the processor right away, the
way the storage trigger would.`,
	Example: `  # Upload a receipt
  receipts upload receipt.png

  # Upload under a different name and run text detection
  receipts upload scan.jpg --name 2024/lunch.jpg --process`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("name", "", "Object name (default: base name of the file)")
	uploadCmd.Flags().String("content-type", "", "Content type (default: guessed from extension and content)")
	uploadCmd.Flags().Bool("process", false, "Run text detection on the stored object")
	uploadCmd.Flags().Duration("timeout", 5*time.Minute, "Overall timeout (0 for none)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")

	path := args[0]
	name, _ := cmd.Flags().GetString("name")
	contentType, _ := cmd.Flags().GetString("content-type")
	process, _ := cmd.Flags().GetBool("process")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if name == "" {
		name = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to open file")
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if contentType == "" {
		contentType, err = detectContentType(f, log)
		if err != nil {
			return err
		}
	}

	ctx, cancel := newCommandContext(timeout, log)
	defer cancel()

	a, err := buildApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	obj, err := a.Uploads().Upload(ctx, name, contentType, f)
	if err != nil {
		return explainError(err, log)
	}
	log.Info().
		Str("file", obj.Name).
		Str("bucket", obj.Bucket).
		Int64("size", obj.Size).
		Msg("File uploaded")

	out, err := json.MarshalIndent(upload.Response{
		Message:  upload.SuccessMessage,
		FileName: obj.Name,
		Bucket:   obj.Bucket,
		FileURL:  obj.URL,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !process {
		return nil
	}
	res, err := a.Processor().Process(ctx, event.StorageEvent{
		Bucket:      obj.Bucket,
		Name:        obj.Name,
		ContentType: obj.ContentType,
	})
	if err != nil {
		return explainError(err, log)
	}
	return printResult(cmd, res)
}

// detectContentType guesses from the extension, then from the first 512
// bytes, and rewinds f.
func detectContentType(f *os.File, log zerolog.Logger) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(f.Name())); ct != "" {
		return ct, nil
	}

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		log.Warn().Err(err).Str("file", f.Name()).Msg("Could not sniff content type")
		return "application/octet-stream", rewind(f)
	}
	return http.DetectContentType(head[:n]), rewind(f)
}

func rewind(f *os.File) error {
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}
	return nil
}
