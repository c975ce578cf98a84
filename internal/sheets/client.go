package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client talks to one spreadsheet. Every read re-fetches the full table;
// nothing is cached. Calls are bounded by a per-call timeout so a slow
// Sheets API surfaces as a failure instead of a hang.
type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	timeout       time.Duration
	headerRow     bool
}

func New(serviceAccountJSONPath, spreadsheetID string, timeout time.Duration, headerRow bool) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	ctx := context.Background()
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		timeout:       timeout,
		headerRow:     headerRow,
	}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

func (c *Client) readAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// firstDataRow is 1 when the sheet carries a header row, 0 otherwise.
func (c *Client) firstDataRow() int {
	if c.headerRow {
		return 1
	}
	return 0
}
