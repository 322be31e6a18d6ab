package sheets

import (
	"context"
	"fmt"
	"slices"

	"cadbridge/internal/logger"
	tabular "cadbridge/internal/tabular/iface"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

type sheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	logger        logger.Logger
}

// NewSheetsStore creates a Google Sheets backed store for one spreadsheet. Credentials come from
// a service-account JSON file; extra client options (endpoint overrides) are appended.
func NewSheetsStore(ctx context.Context, spreadsheetID, credentialsFile string, log logger.Logger, opts ...option.ClientOption) (tabular.Store, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &sheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        log.With(logger.String("component", "sheets_store")),
	}, nil
}

func (s *sheetsStore) EnsureHeader(ctx context.Context, sheet string, header []string) error {
	if err := s.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rowRange(sheet, 1)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", sheet, err)
	}

	var current []string
	if len(resp.Values) > 0 {
		current = cellsToStrings(resp.Values[0])
	}
	if slices.Equal(current, header) {
		return nil
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rowRange(sheet, 1), valueRange(header)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	s.logger.Info("sheet header written", logger.String("sheet", sheet), logger.Int("columns", len(header)))
	return nil
}

func (s *sheetsStore) ensureSheet(ctx context.Context, sheet string) error {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheet {
			return nil
		}
	}

	_, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	s.logger.Info("sheet created", logger.String("sheet", sheet))
	return nil
}

func (s *sheetsStore) ReadColumn(ctx context.Context, sheet string, column int) ([]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, columnRange(sheet, column)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s of %s: %w", ColumnLetter(column), sheet, err)
	}

	values := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			values[i] = fmt.Sprint(row[0])
		}
	}
	return values, nil
}

func (s *sheetsStore) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d: %w", row, tabular.ErrRowNotFound)
	}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rowRange(sheet, row), valueRange(values)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (s *sheetsStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, rowRange(sheet, 1), valueRange(values)).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to %s: %w", sheet, err)
	}
	return nil
}

func valueRange(values []string) *sheets.ValueRange {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &sheets.ValueRange{Values: [][]interface{}{row}}
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprint(c)
	}
	return out
}
