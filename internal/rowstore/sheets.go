package rowstore

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets stores a table in one tab of a Google spreadsheet. Row 1 is the
// header; data row i lives on sheet row i+2.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	tab           string
}

// NewSheetsService authorizes with a service-account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	return sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func NewSheets(svc *sheets.Service, spreadsheetID, tab string) *Sheets {
	if tab == "" {
		tab = "Sheet1"
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, tab: tab}
}

func (s *Sheets) EnsureHeader(ctx context.Context, header []string) error {
	current, err := s.Header(ctx)
	if err != nil {
		return err
	}
	if equalHeader(current, header) {
		return nil
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.tab+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *Sheets) Header(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.tab+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return fromCells(resp.Values[0]), nil
}

func (s *Sheets) Append(ctx context.Context, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.tab+"!A1", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *Sheets) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.tab).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}
	out := make([][]string, 0, len(resp.Values)-1)
	for _, r := range resp.Values[1:] {
		out = append(out, fromCells(r))
	}
	return out, nil
}

// UpdateCells writes all cells with one values:batchUpdate request.
func (s *Sheets) UpdateCells(ctx context.Context, row int, values map[string]string) error {
	header, err := s.Header(ctx)
	if err != nil {
		return err
	}
	cols, vals, err := cellIndexes(header, values)
	if err != nil {
		return err
	}
	if row < 0 {
		return ErrRowOutOfRange
	}
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for j, c := range cols {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", s.tab, ColumnName(c), row+2),
			Values: [][]interface{}{{vals[j]}},
		})
	}
	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

// ColumnName converts a zero-based index to A1 letters: 0 -> A, 26 -> AA.
func ColumnName(i int) string {
	var b strings.Builder
	var rev []byte
	for i++; i > 0; i = (i - 1) / 26 {
		rev = append(rev, byte('A'+(i-1)%26))
	}
	for j := len(rev) - 1; j >= 0; j-- {
		b.WriteByte(rev[j])
	}
	return b.String()
}

func toCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func fromCells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
