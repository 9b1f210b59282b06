package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lorrylog/internal/core"
	"lorrylog/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client pushes monthly logs into a Google spreadsheet. Each month gets
// its own tab named by the "YYYY-MM" key; a push rewrites the whole tab
// so retries are idempotent.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ store.LogPusher = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PushMonthlyLog implements store.LogPusher. The tab is cleared and
// rewritten with the month's paste layout; formulas are written as
// USER_ENTERED so running totals recalculate in the sheet.
func (c *Client) PushMonthlyLog(ctx context.Context, log core.MonthlyLog) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := core.ValidateMonthKey(log.Month); err != nil {
		return err
	}

	if err := c.ensureTab(ctx, log.Month); err != nil {
		return fmt.Errorf("ensure tab %s: %w", log.Month, err)
	}

	clearRange := fmt.Sprintf("%s!A1:Z1000", log.Month)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear tab %s: %w", log.Month, err)
	}

	values := pasteValues(log)
	vr := &gsheet.ValueRange{Values: values}
	writeRange := fmt.Sprintf("%s!A1", log.Month)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write tab %s: %w", log.Month, err)
	}

	slog.InfoContext(ctx, "Pushed monthly log to sheet",
		"month", log.Month,
		"rows", len(values),
		"entries", len(log.Entries))
	return nil
}

// SpreadsheetInfo fetches the spreadsheet title and tab count, used by
// cmd/sheets-init to verify access.
func (c *Client) SpreadsheetInfo(ctx context.Context) (string, int, error) {
	if c.svc == nil {
		return "", 0, errors.New("sheets service not initialized")
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	title := ""
	if meta.Properties != nil {
		title = meta.Properties.Title
	}
	return title, len(meta.Sheets), nil
}

// ensureTab adds the month's sheet when it does not exist yet.
func (c *Client) ensureTab(ctx context.Context, month string) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == month {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: month},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "month", month)
	return nil
}

// pasteValues converts the tab-separated paste layout into the cell
// grid the Sheets API expects.
func pasteValues(log core.MonthlyLog) [][]any {
	lines := strings.Split(core.ExportPaste(log), "\n")
	values := make([][]any, 0, len(lines))
	for _, line := range lines {
		cells := strings.Split(line, "\t")
		row := make([]any, len(cells))
		for i, cell := range cells {
			row[i] = cell
		}
		values = append(values, row)
	}
	return values
}
