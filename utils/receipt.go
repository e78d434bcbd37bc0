package utils

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/kulaladarsh/tyreworks-app/models"
)

// GenerateReceiptPDF renders a printable receipt for a booking snapshot.
// The caller picks the title ("Booking Confirmed", "Service Completed", ...).
func GenerateReceiptPDF(booking *models.Booking, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Annapoorneshwari Tyre & Painting Works", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "Hebri Santekatte, Karnataka | Contact: 8861446025", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 7, label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, value, "1", 1, "L", false, 0, "")
	}
	section := func(name string) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 7, name, "1", 1, "L", true, 0, "")
	}

	section("Receipt Details")
	row("Booking ID", booking.BookingID)
	row("Date", ToIST(time.Now()).Format("2006-01-02 15:04"))
	status := string(booking.Status)
	row("Status", strings.ToUpper(status[:1])+status[1:])

	section("Customer Details")
	row("Name", booking.Name)
	row("Contact", booking.Contact)
	row("Email", booking.Email)
	row("Area", fmt.Sprintf("%s, %s, %s", booking.Area, booking.District, booking.Taluk))

	section("Service Details")
	row("Preferred Date", booking.PreferredDate)
	row("Preferred Time", booking.PreferredTime)
	row("Vehicle Type", booking.VehicleType)
	row("Vehicle Details", booking.VehicleDetails)

	section("Services")
	for _, item := range booking.Services {
		row(item.Name, fmt.Sprintf("Rs. %.2f", item.Amount))
	}

	section("Payment Details")
	row("Service Charges", fmt.Sprintf("Rs. %.2f", booking.TotalServiceAmount))
	row("Booking Fee", fmt.Sprintf("Rs. %.2f", models.BookingFee))
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(50, 8, "Total Amount", "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Rs. %.2f", booking.TotalAmount), "1", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Thank you for choosing Annapoorneshwari Tyre & Painting Works!\nThis is a computer-generated receipt.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
