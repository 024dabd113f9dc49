package adapter

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/remindctl/remind/model"
)

// SheetsPerformer resolves model.FetchGoogleSheetCell against the
// Google Sheets API, authenticating with an OAuth2 access token
// supplied as the effect's resolved credential.
type SheetsPerformer struct{}

func (SheetsPerformer) Perform(ctx context.Context, effect model.Effect) model.Event {
	eff := effect.(model.FetchGoogleSheetCell)

	if eff.Credentials == nil {
		return model.StepFailed{TagID: eff.TagID, Error: "google sheets access requires credentials"}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: *eff.Credentials})
	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("failed to create sheets client: %s", err)}
	}

	cellRange := cellA1(eff.Worksheet, eff.Cell)
	resp, err := svc.Spreadsheets.Values.Get(eff.SheetID, cellRange).Context(ctx).Do()
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("failed to fetch cell %s: %s", cellRange, err)}
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return model.StepCompleted{TagID: eff.TagID, Value: nil}
	}
	value := fmt.Sprintf("%v", resp.Values[0][0])
	return model.StepCompleted{TagID: eff.TagID, Value: &value}
}

// cellA1 renders a zero-based CellRef as an A1-notation range,
// optionally scoped to a worksheet name.
func cellA1(worksheet *string, cell model.CellRef) string {
	addr := columnLetters(cell.Column) + strconv.FormatUint(uint64(cell.Row)+1, 10)
	if worksheet != nil {
		return *worksheet + "!" + addr
	}
	return addr
}

// columnLetters converts a zero-based column index to spreadsheet
// column letters (0 -> A, 25 -> Z, 26 -> AA).
func columnLetters(col uint32) string {
	var letters []byte
	n := col + 1
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}
	return string(letters)
}
