package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

func TestParseSeatLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    model.SeatPosition
		wantErr string
	}{
		{label: "A-1", want: model.SeatPosition{Row: "A", Col: 1}},
		{label: "E-10", want: model.SeatPosition{Row: "E", Col: 10}},
		{label: "F-1", wantErr: "seat out of bounds"},
		{label: "A-11", wantErr: "seat out of bounds"},
		{label: "A-0", wantErr: "seat out of bounds"},
		{label: "a-1", wantErr: "row must be a letter A-Z"},
		{label: "1-1", wantErr: "row must be a letter A-Z"},
		{label: "A1", wantErr: "expected <Row>-<Column>"},
		{label: "AB-1", wantErr: "expected <Row>-<Column>"},
		{label: "A-", wantErr: "expected <Row>-<Column>"},
		{label: "", wantErr: "expected <Row>-<Column>"},
		{label: "A-x", wantErr: "column must be a number"},
		{label: "A-05", wantErr: "column must be a number"},
		{label: "A-+5", wantErr: "column must be a number"},
		{label: "A--1", wantErr: "seat out of bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseSeatLabel(tt.label, 5, 10)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var labelErr *InvalidSeatLabelError
			require.ErrorAs(t, err, &labelErr)
			assert.Equal(t, tt.label, labelErr.Label)
			assert.Equal(t, tt.wantErr, labelErr.Reason)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestParseSeatLabels(t *testing.T) {
	got, err := ParseSeatLabels([]string{"B-2", "A-1"}, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.SeatPosition{{Row: "B", Col: 2}, {Row: "A", Col: 1}}, got, "request order is kept")

	_, err = ParseSeatLabels(nil, 5, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseSeatLabels([]string{"A-1", "A-2", "A-1"}, 5, 10)
	var labelErr *InvalidSeatLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, "duplicate seat", labelErr.Reason)

	_, err = ParseSeatLabels([]string{"A-1", "Z-1"}, 5, 10)
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, "Z-1", labelErr.Label)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "", RowLabel(26))
	assert.Equal(t, "", RowLabel(-1))
	assert.Equal(t, 26, MaxRows)
}
