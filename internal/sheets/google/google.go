package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// lastColumn is the rightmost column written, G for the seven ledger fields.
const lastColumn = "G"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.LedgerMirror = (*Client)(nil)

// Options selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set the standard
// GOOGLE_APPLICATION_CREDENTIALS file is tried.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	credentials, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		applog.FieldComponent, applog.ComponentSheets,
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName)
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReplaceAll clears the ledger columns and writes header plus rows from A1.
// Values are sent RAW so amounts and dates are stored exactly as in the file.
func (c *Client) ReplaceAll(ctx context.Context, header []string, rows []core.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := sheetRange(c.sheetName, "A:"+lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	vr := toValueRange(header, rows)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(c.sheetName, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	slog.InfoContext(ctx, "Sheet mirror replaced",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpMirror,
		"sheet", c.sheetName,
		applog.FieldCount, len(rows))
	return nil
}

// sheetRange builds an A1 reference, quoting the sheet name when needed.
func sheetRange(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!-") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}

func toValueRange(header []string, rows []core.Row) *gsheet.ValueRange {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toCells(header))
	for _, r := range rows {
		values = append(values, toCells(r))
	}
	return &gsheet.ValueRange{MajorDimension: "ROWS", Values: values}
}

func toCells(fields []string) []interface{} {
	cells := make([]interface{}, len(fields))
	for i, f := range fields {
		cells[i] = f
	}
	return cells
}
