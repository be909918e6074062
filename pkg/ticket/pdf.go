package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// ETicketData holds everything printed on a ticket
type ETicketData struct {
	PNR             string
	PassengerNames  []string
	Seats           []int
	SeatClass       string
	SourceName      string
	DestinationName string
	TravelDate      string
	DepartureTime   string
	VehicleName     string
	OperatorName    string
	AmountPaid      float64
}

// BuildETicketPDF renders the e-ticket as a PDF and returns the bytes with
// a suggested filename.
func BuildETicketPDF(d ETicketData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("PNR            : %s", d.PNR),
		fmt.Sprintf("Passengers     : %s", strings.Join(d.PassengerNames, ", ")),
		fmt.Sprintf("Seats          : %s (%s)", joinSeats(d.Seats), d.SeatClass),
		fmt.Sprintf("Route          : %s -> %s", d.SourceName, d.DestinationName),
		fmt.Sprintf("Travel Date    : %s", d.TravelDate),
		fmt.Sprintf("Departure      : %s", d.DepartureTime),
		fmt.Sprintf("Vehicle        : %s", d.VehicleName),
		fmt.Sprintf("Operator       : %s", d.OperatorName),
		fmt.Sprintf("Amount Paid    : %.2f", d.AmountPaid),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this ticket with a valid photo ID at boarding. The PNR above identifies your reservation.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ETICKET_%s.pdf", d.PNR)
	return buf.Bytes(), filename, nil
}

func joinSeats(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}
