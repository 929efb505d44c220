package records

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab records are appended to.
const DefaultSheetName = "Receipts"

var sheetHeaders = []interface{}{"File", "Bucket", "Content Type", "Extracted Text", "Processed At"}

const sheetColumns = "A:E"

var (
	spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	bareSpreadsheetID    = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)
)

// SheetsStore appends records as rows to a Google Sheets tab. Rows are never
// replaced, so processing the same file twice yields two rows.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           zerolog.Logger

	mu    sync.Mutex
	ready bool
	now   func() time.Time
}

// NewSheetsStore creates a Sheets client for the spreadsheet at sheetURL.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS,
// falling back to Application Default Credentials.
func NewSheetsStore(ctx context.Context, sheetURL, sheetName string, log zerolog.Logger) (*SheetsStore, error) {
	const op = "NewSheetsStore"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	clientOpt, err := sheetsCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	service, err := sheets.NewService(ctx, clientOpt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return newSheetsStore(service, spreadsheetID, sheetName, log), nil
}

func newSheetsStore(service *sheets.Service, spreadsheetID, sheetName string, log zerolog.Logger) *SheetsStore {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &SheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log.With().Str("spreadsheet_id", spreadsheetID).Str("sheet", sheetName).Logger(),
		now:           time.Now,
	}
}

func sheetsCredentials(ctx context.Context) (option.ClientOption, error) {
	var creds []byte
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		var err error
		if creds, err = os.ReadFile(credsFile); err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	if creds == nil {
		found, err := google.FindDefaultCredentials(ctx, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("no Google credentials found: %w", err)
		}
		return option.WithCredentials(found), nil
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return option.WithHTTPClient(config.Client(ctx)), nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func extractSpreadsheetID(url string) (string, error) {
	if matches := spreadsheetIDPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if bareSpreadsheetID.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("invalid Google Sheets URL format: %q", url)
}

// Save appends r as one row.
func (s *SheetsStore) Save(ctx context.Context, r Record) error {
	const op = "Save"

	if err := s.ensureSheet(ctx); err != nil {
		return fmt.Errorf("records: %s: %w", op, err)
	}

	row := &sheets.ValueRange{
		Values: [][]interface{}{{
			r.FileName,
			r.Bucket,
			r.ContentType,
			r.ExtractedText,
			s.now().UTC().Format(time.RFC3339),
		}},
	}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!"+sheetColumns, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("records: %s: failed to append row: %w", op, err)
	}

	s.log.Debug().Str("file", r.FileName).Msg("Appended record row")
	return nil
}

// ensureSheet creates the tab and its header row on first use.
func (s *SheetsStore) ensureSheet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	var sheetID int64
	var exists bool
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.sheetName {
			sheetID = sheet.Properties.SheetId
			exists = true
			break
		}
	}

	if !exists {
		s.log.Info().Msg("Creating new sheet")
		resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: s.sheetName}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
	}

	headerRange := s.sheetName + "!A1:E1"
	current, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get headers: %w", err)
	}

	if len(current.Values) == 0 || len(current.Values[0]) == 0 {
		s.log.Info().Msg("Adding headers to sheet")
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, headerRange, &sheets.ValueRange{
			Values: [][]interface{}{sheetHeaders},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to add headers: %w", err)
		}

		if err := s.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	s.ready = true
	return nil
}

// formatHeaders makes the header row bold.
func (s *SheetsStore) formatHeaders(ctx context.Context, sheetID int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(sheetHeaders)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
	}

	_, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to format headers: %w", err)
	}
	return nil
}

// Close is a no-op; the Sheets client holds no connections of its own.
func (s *SheetsStore) Close() error {
	return nil
}
