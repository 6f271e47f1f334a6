package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/repo"
)

// ExportService assembles a full flat export of all bookings.
type ExportService struct {
	bookings repo.BookingReader
}

// NewExportService constructs an ExportService backed by the provided reader.
func NewExportService(bookings repo.BookingReader) *ExportService {
	return &ExportService{bookings: bookings}
}

// Export returns one ExportRow per booking, ordered by check-in date.
// Always returns a non-nil slice.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	bookings, err := s.bookings.Find(ctx, repo.BookingFilter{})
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, domain.ExportRow{
			BookingID:      b.ID.String(),
			GuestName:      b.GuestName,
			UnitID:         b.UnitID,
			CheckInDate:    b.CheckInDate.Format(time.DateOnly),
			CheckOutDate:   b.CheckOutDate().Format(time.DateOnly),
			NumberOfNights: b.NumberOfNights,
			CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows, nil
}
