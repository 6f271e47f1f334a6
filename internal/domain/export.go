package domain

// ExportRow is a single row in the full-data export: one row per booking, with
// the derived check-out date precomputed so consumers never redo date math.
type ExportRow struct {
	BookingID      string
	GuestName      string
	UnitID         string
	CheckInDate    string // "2006-01-02"
	CheckOutDate   string // "2006-01-02", exclusive
	NumberOfNights int
	CreatedAt      string // RFC 3339
}
