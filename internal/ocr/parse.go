package ocr

import (
	"regexp"
	"strings"

	"payables/internal/core"
)

var (
	amountDueRe = regexp.MustCompile(`(?i)\b(?:amount\s+due|balance\s+due|total\s+due|amount\s+payable)\b\s*[:\-]?\s*(.*)$`)
	totalRe     = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+amount|total)\b\s*[:\-]?\s*(.*)$`)
	invoiceNoRe = regexp.MustCompile(`(?i)\binvoice\s*(?:no\.?|number|num\.?|#|id)?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]*)`)
	dueLabelRe  = regexp.MustCompile(`(?i)\b(?:due\s+date|payment\s+due|due\s+on|due\s+by|due)\b\s*[:\-]?\s*(.*)$`)
	vendorRe    = regexp.MustCompile(`(?i)^(?:from|vendor|supplier|remit\s+to|payable\s+to|pay\s+to)\s*[:\-]\s*(.*)$`)
	dateRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}-\d{1,2}-\d{4}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4}`)
	digitRe     = regexp.MustCompile(`\d`)
	letterRe    = regexp.MustCompile(`[A-Za-z]`)
)

// words that mark a line as a label rather than a vendor name
var labelWords = []string{
	"invoice", "bill to", "ship to", "date", "total", "due", "page", "amount",
	"balance", "tax", "subtotal", "qty", "description", "phone", "tel", "email",
}

// ParseFields pulls invoice fields out of OCR text with keyword matching.
// Values on the line after a bare label are picked up too.
func ParseFields(text string) RawInvoice {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	return RawInvoice{
		TotalDue:      findTotal(lines),
		InvoiceNumber: findInvoiceNumber(lines),
		DueDate:       findDueDate(lines),
		VendorName:    findVendor(lines),
	}
}

// valueAfter returns the label's inline value, or the next line when the
// label stands alone.
func valueAfter(lines []string, i int, inline string) string {
	if v := strings.TrimSpace(inline); v != "" {
		return v
	}
	if i+1 < len(lines) {
		return lines[i+1]
	}
	return ""
}

func findTotal(lines []string) string {
	for _, re := range []*regexp.Regexp{amountDueRe, totalRe} {
		for i, l := range lines {
			if re == totalRe && strings.Contains(strings.ToLower(l), "subtotal") {
				continue
			}
			m := re.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			if v := valueAfter(lines, i, m[1]); digitRe.MatchString(v) {
				return v
			}
		}
	}
	return ""
}

func findInvoiceNumber(lines []string) string {
	for _, l := range lines {
		for _, m := range invoiceNoRe.FindAllStringSubmatch(l, -1) {
			if digitRe.MatchString(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}

func findDueDate(lines []string) string {
	for i, l := range lines {
		lower := strings.ToLower(l)
		if strings.Contains(lower, "amount") || strings.Contains(lower, "balance") || strings.Contains(lower, "total") {
			continue
		}
		m := dueLabelRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		v := valueAfter(lines, i, m[1])
		if _, err := core.ParseLooseDate(v); err == nil {
			return v
		}
		for _, d := range dateRe.FindAllString(v, -1) {
			if _, err := core.ParseLooseDate(d); err == nil {
				return d
			}
		}
	}
	return ""
}

func findVendor(lines []string) string {
	for i, l := range lines {
		if m := vendorRe.FindStringSubmatch(l); m != nil {
			if v := valueAfter(lines, i, m[1]); v != "" {
				return v
			}
		}
	}
	for _, l := range lines {
		if !letterRe.MatchString(l) || isLabel(l) {
			continue
		}
		return l
	}
	return ""
}

func isLabel(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range labelWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return strings.Contains(lower, "@") || strings.Contains(lower, "www.")
}
