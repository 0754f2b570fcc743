package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	ports "finboard/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials points at a service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// Configured reports whether enough is set to build a client.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.JSON) != "" || strings.TrimSpace(c.File) != ""
}

// valuesGetter fetches the raw values of a range.
type valuesGetter func(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)

// Client reads spreadsheet ranges through the Sheets API.
type Client struct {
	get valuesGetter
}

var _ ports.RowReader = (*Client)(nil)

// New creates a read-only Sheets client authenticated as a service account.
func New(ctx context.Context, creds Credentials) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{get: serviceGetter(svc)}, nil
}

func serviceGetter(svc *gsheet.Service) valuesGetter {
	return func(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	inline := strings.TrimSpace(creds.JSON)
	file := strings.TrimSpace(creds.File)

	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadRows reads a range such as "Sheet1!A2:D". Rows with no values are dropped.
func (c *Client) ReadRows(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	if c.get == nil {
		return nil, errors.New("sheets service not initialized")
	}

	values, err := c.get(ctx, spreadsheetID, rng)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusBadRequest) {
			return nil, fmt.Errorf("read %s: %w", rng, ports.ErrRangeNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cols := toStrings(row)
		if isBlank(cols) {
			continue
		}
		rows = append(rows, cols)
	}

	slog.DebugContext(ctx, "Read spreadsheet range", "range", rng, "rows", len(rows))
	return rows, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
