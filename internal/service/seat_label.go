package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// rowLetters addresses rows; a hall has at most 26 addressable rows.
const rowLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxRows is the number of rows a label can address.
const MaxRows = len(rowLetters)

// RowLabel returns the letter of the zero-based row i, or "" when i is out
// of range.
func RowLabel(i int) string {
	if i < 0 || i >= MaxRows {
		return ""
	}
	return rowLetters[i : i+1]
}

// ParseSeatLabel parses "<RowLetter>-<Column>" and checks it against a grid
// of rows x cols.
func ParseSeatLabel(label string, rows, cols int) (model.SeatPosition, error) {
	row, colStr, found := strings.Cut(label, "-")
	if !found || len(row) != 1 || colStr == "" {
		return model.SeatPosition{}, &InvalidSeatLabelError{Label: label, Reason: "expected <Row>-<Column>"}
	}
	rowIndex := strings.Index(rowLetters, row)
	if rowIndex < 0 {
		return model.SeatPosition{}, &InvalidSeatLabelError{Label: label, Reason: "row must be a letter A-Z"}
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || strconv.Itoa(col) != colStr {
		return model.SeatPosition{}, &InvalidSeatLabelError{Label: label, Reason: "column must be a number"}
	}
	if rowIndex >= rows || col < 1 || col > cols {
		return model.SeatPosition{}, &InvalidSeatLabelError{Label: label, Reason: "seat out of bounds"}
	}
	return model.SeatPosition{Row: row, Col: col}, nil
}

// ParseSeatLabels parses a whole request.  The set must be non-empty and
// free of duplicates; the first bad label fails the request.
func ParseSeatLabels(labels []string, rows, cols int) ([]model.SeatPosition, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidInput)
	}
	seen := make(map[model.SeatPosition]bool, len(labels))
	out := make([]model.SeatPosition, 0, len(labels))
	for _, l := range labels {
		p, err := ParseSeatLabel(l, rows, cols)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			return nil, &InvalidSeatLabelError{Label: l, Reason: "duplicate seat"}
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
