package model

// ShowGeometry is the catalog's view of a show: the hall it plays in, the
// seat grid of that hall and the flat per-seat price.
//
// Fields:
//  ShowID     – shows.id.
//  ScreenName – name of the hall the show is screened in.
//  Rows       – number of seat rows (rows are labelled A, B, C ...).
//  Cols       – seats per row, numbered from 1.
//  Price      – price of one seat in the smallest currency unit.
type ShowGeometry struct {
	ShowID     uint64 // shows.id
	ScreenName string // halls.name
	Rows       int    // halls.seat_rows
	Cols       int    // halls.seat_cols
	Price      int64  // shows.price
}
