package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// DocumentRenderer produces letter-style PDFs (certificates, joining letters,
// salary slips, NOCs, invoices) with a shared letterhead.
type DocumentRenderer struct {
	orgName    string
	orgAddress string
}

// NewDocumentRenderer constructs a renderer with the organisation letterhead.
func NewDocumentRenderer(orgName, orgAddress string) *DocumentRenderer {
	return &DocumentRenderer{orgName: orgName, orgAddress: orgAddress}
}

// CertificateData feeds the completion certificate template.
type CertificateData struct {
	StudentName string
	Course      string
	FromDate    time.Time
	ToDate      time.Time
	IssuedOn    time.Time
}

// JoiningLetterData feeds the joining letter template.
type JoiningLetterData struct {
	EmployeeName string
	Designation  string
	JoiningDate  time.Time
	Salary       float64
	IssuedOn     time.Time
}

// SalarySlipData feeds the monthly salary slip template.
type SalarySlipData struct {
	EmployeeName string
	Designation  string
	Month        string // e.g. "2026-08"
	Basic        float64
	Allowances   float64
	Deductions   float64
	IssuedOn     time.Time
}

// Net returns the payable amount.
func (d SalarySlipData) Net() float64 {
	return d.Basic + d.Allowances - d.Deductions
}

// NOCData feeds the no objection certificate template.
type NOCData struct {
	StudentName string
	Course      string
	Purpose     string
	IssuedOn    time.Time
}

// InvoiceData feeds the invoice PDF template.
type InvoiceData struct {
	Number       string
	CustomerName string
	Items        []InvoiceItemRow
	Subtotal     float64
	SGST         float64
	CGST         float64
	Discount     float64
	Total        float64
	PaidAmount   float64
	DueDate      string
	IssuedOn     time.Time
}

// InvoiceItemRow is one billed line on the invoice PDF.
type InvoiceItemRow struct {
	Description string
	Quantity    int
	Rate        float64
	Amount      float64
}

// Certificate renders a course completion certificate.
func (r *DocumentRenderer) Certificate(data CertificateData) ([]byte, error) {
	if data.StudentName == "" {
		return nil, fmt.Errorf("certificate requires a student name")
	}
	pdf := r.newLetter("CERTIFICATE OF COMPLETION")

	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf(
		"This is to certify that %s has successfully completed the %s program conducted from %s to %s.",
		data.StudentName, data.Course,
		data.FromDate.Format("02 Jan 2006"), data.ToDate.Format("02 Jan 2006"),
	)
	pdf.MultiCell(0, 7, body, "", "L", false)
	pdf.Ln(6)
	pdf.MultiCell(0, 7, "We wish them success in all future endeavours.", "", "L", false)

	r.signatureBlock(pdf, data.IssuedOn)
	return output(pdf)
}

// JoiningLetter renders an employee joining letter.
func (r *DocumentRenderer) JoiningLetter(data JoiningLetterData) ([]byte, error) {
	if data.EmployeeName == "" {
		return nil, fmt.Errorf("joining letter requires an employee name")
	}
	pdf := r.newLetter("JOINING LETTER")

	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf(
		"Dear %s,\n\nWe are pleased to confirm your appointment as %s effective %s. Your annual compensation will be %.2f as discussed.",
		data.EmployeeName, data.Designation, data.JoiningDate.Format("02 Jan 2006"), data.Salary,
	)
	pdf.MultiCell(0, 7, body, "", "L", false)
	pdf.Ln(6)
	pdf.MultiCell(0, 7, "Please report to the administration office on your joining date with your identification documents.", "", "L", false)

	r.signatureBlock(pdf, data.IssuedOn)
	return output(pdf)
}

// SalarySlip renders a monthly salary slip.
func (r *DocumentRenderer) SalarySlip(data SalarySlipData) ([]byte, error) {
	if data.EmployeeName == "" {
		return nil, fmt.Errorf("salary slip requires an employee name")
	}
	pdf := r.newLetter("SALARY SLIP - " + data.Month)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Employee: "+data.EmployeeName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Designation: "+data.Designation, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := []struct {
		label  string
		amount float64
	}{
		{"Basic Pay", data.Basic},
		{"Allowances", data.Allowances},
		{"Deductions", -data.Deductions},
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(120, 8, "Component", "1", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(120, 7, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 7, fmt.Sprintf("%.2f", row.amount), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(120, 8, "Net Payable", "1", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, fmt.Sprintf("%.2f", data.Net()), "1", 1, "R", false, 0, "")

	r.signatureBlock(pdf, data.IssuedOn)
	return output(pdf)
}

// NOC renders a no objection certificate.
func (r *DocumentRenderer) NOC(data NOCData) ([]byte, error) {
	if data.StudentName == "" {
		return nil, fmt.Errorf("noc requires a student name")
	}
	pdf := r.newLetter("NO OBJECTION CERTIFICATE")

	pdf.SetFont("Arial", "", 12)
	body := fmt.Sprintf(
		"This is to state that we have no objection to %s, enrolled in %s, pursuing %s. This certificate is issued at the candidate's request.",
		data.StudentName, data.Course, data.Purpose,
	)
	pdf.MultiCell(0, 7, body, "", "L", false)

	r.signatureBlock(pdf, data.IssuedOn)
	return output(pdf)
}

// Invoice renders a tax invoice with billed line items.
func (r *DocumentRenderer) Invoice(data InvoiceData) ([]byte, error) {
	if data.Number == "" {
		return nil, fmt.Errorf("invoice requires a number")
	}
	pdf := r.newLetter("TAX INVOICE " + data.Number)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Billed To: "+data.CustomerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Due Date: "+data.DueDate, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Rate", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range data.Items {
		pdf.CellFormat(90, 7, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", item.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", item.Amount), "1", 1, "R", false, 0, "")
	}

	totals := []struct {
		label  string
		amount float64
	}{
		{"Subtotal", data.Subtotal},
		{"SGST", data.SGST},
		{"CGST", data.CGST},
		{"Discount", -data.Discount},
		{"Total", data.Total},
		{"Paid", data.PaidAmount},
		{"Balance Due", data.Total - data.PaidAmount},
	}
	for _, t := range totals {
		pdf.CellFormat(150, 7, t.label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", t.amount), "1", 1, "R", false, 0, "")
	}

	r.signatureBlock(pdf, data.IssuedOn)
	return output(pdf)
}

func (r *DocumentRenderer) newLetter(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, r.orgName, "", 1, "C", false, 0, "")
	if r.orgAddress != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, r.orgAddress, "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	return pdf
}

func (r *DocumentRenderer) signatureBlock(pdf *gofpdf.Fpdf, issuedOn time.Time) {
	if issuedOn.IsZero() {
		issuedOn = time.Now()
	}
	pdf.Ln(14)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, "Date: "+issuedOn.Format("02 Jan 2006"), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Authorised Signatory", "", 1, "R", false, 0, "")
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
