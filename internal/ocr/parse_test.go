package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"
)

const sampleInvoice = `
Acme   Supplies  Inc.
123 Industrial Way
Springfield, IL 62701
INVOICE
Invoice No: INV-2026-0042
Invoice Date: 02/10/2026
Due Date: March 12, 2026
Bill To: Initech
Description         Qty   Amount
Paper               10    $120.00
Subtotal                  $120.00
Tax                       $9.60
Total Due: $1,129.60
`

func TestParseFields(t *testing.T) {
	raw := ParseFields(sampleInvoice)
	want := RawInvoice{
		TotalDue:      "$1,129.60",
		InvoiceNumber: "INV-2026-0042",
		DueDate:       "March 12, 2026",
		VendorName:    "Acme   Supplies  Inc.",
	}
	if raw != want {
		t.Fatalf("want %+v, got %+v", want, raw)
	}
	if !raw.IsComplete() {
		t.Fatalf("expected complete parse")
	}
}

func TestParseFieldsValueOnNextLine(t *testing.T) {
	raw := ParseFields("Remit To:\nGlobex Corporation\nInvoice # 7781\nPayment Due\n2026-04-01\nAmount Due\nEUR 310,50")
	if raw.VendorName != "Globex Corporation" {
		t.Errorf("vendor: got %q", raw.VendorName)
	}
	if raw.InvoiceNumber != "7781" {
		t.Errorf("invoice number: got %q", raw.InvoiceNumber)
	}
	if raw.DueDate != "2026-04-01" {
		t.Errorf("due date: got %q", raw.DueDate)
	}
	if raw.TotalDue != "EUR 310,50" {
		t.Errorf("total: got %q", raw.TotalDue)
	}
}

func TestParseFieldsMissing(t *testing.T) {
	raw := ParseFields("thank you for your business")
	if raw.IsComplete() || raw.TotalDue != "" || raw.DueDate != "" || raw.InvoiceNumber != "" {
		t.Fatalf("unexpected fields %+v", raw)
	}
}

func TestRawInvoiceFormatting(t *testing.T) {
	raw := RawInvoice{
		TotalDue:      "$1,129.60",
		InvoiceNumber: " INV-9 ",
		DueDate:       "03/12/2026",
		VendorName:    " Acme \t Supplies ",
	}
	inv := raw.ToInvoice("u1")
	if inv.UserID != "u1" || inv.VendorName != "Acme Supplies" || inv.InvoiceNumber != "INV-9" {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if !inv.AmountDue.Valid || inv.AmountDue.Decimal.String() != "1129.6" || inv.Currency != "USD" {
		t.Fatalf("unexpected amount %+v %q", inv.AmountDue, inv.Currency)
	}
	want := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	if inv.DueDate == nil || !inv.DueDate.Equal(want) {
		t.Fatalf("unexpected due date %v", inv.DueDate)
	}
	if inv.RawAmountDue != raw.TotalDue || inv.RawVendorName != raw.VendorName || inv.RawDueDate != raw.DueDate {
		t.Fatalf("raw fields not kept: %+v", inv)
	}

	empty := RawInvoice{DueDate: "someday", TotalDue: "n/a"}.ToInvoice("u1")
	if empty.AmountDue.Valid || empty.DueDate != nil {
		t.Fatalf("unparseable fields should be null: %+v", empty)
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"image/png":               "png",
		"image/jpeg":              "jpeg",
		"image/jpg":               "jpg",
		"application/pdf":         "pdf",
		"Application/PDF; qs=0.9": "pdf",
	}
	for ct, want := range cases {
		got, err := Extension(ct)
		if err != nil || got != want {
			t.Fatalf("%q: want %q, got %q (%v)", ct, want, got, err)
		}
	}
	for _, ct := range []string{"image/gif", "text/plain", ""} {
		if _, err := Extension(ct); !errors.Is(err, ErrUnsupportedContentType) {
			t.Fatalf("%q: want ErrUnsupportedContentType, got %v", ct, err)
		}
	}
}

func TestWrapOCRError(t *testing.T) {
	err := WrapOCRError("Extract", ErrOCRFailed, "image/png")
	var ocrErr *OCRError
	if !errors.As(err, &ocrErr) || ocrErr.Op != "Extract" {
		t.Fatalf("expected OCRError, got %v", err)
	}
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("expected to unwrap to ErrOCRFailed")
	}
	if again := WrapOCRError("Other", err, ""); again != err {
		t.Fatalf("already wrapped error was wrapped again")
	}
	if WrapOCRError("x", nil, "") != nil {
		t.Fatalf("nil error should stay nil")
	}
	if got := err.Error(); got != "ocr: Extract failed: image/png: OCR processing failed" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAnnotationText(t *testing.T) {
	text, err := annotationText([]*visionpb.AnnotateImageResponse{
		{FullTextAnnotation: &visionpb.TextAnnotation{Text: "page one"}},
		{FullTextAnnotation: &visionpb.TextAnnotation{Text: "page two"}},
	})
	if err != nil || text != "page one\npage two\n" {
		t.Fatalf("unexpected text %q (%v)", text, err)
	}

	_, err = annotationText([]*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad image"}}})
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("want ErrOCRFailed, got %v", err)
	}

	if _, err := annotationText(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("want ErrEmptyDocument, got %v", err)
	}
}

func TestNoneExtractor(t *testing.T) {
	raw, err := None{}.Extract(context.Background(), "image/png", []byte{1})
	if err != nil || raw != (RawInvoice{}) {
		t.Fatalf("unexpected result %+v %v", raw, err)
	}
}
