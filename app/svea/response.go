package svea

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Status query return codes. Codes of 20 and above mean the payment is
// settled; a fixed set of codes means the payer cancelled or reclaimed
// regardless of payment age.
const (
	ReturnCodePaidThreshold = 20
)

var payerCancellationCodes = map[int]bool{
	30: true,
	91: true,
	92: true,
	93: true,
	95: true,
	99: true,
}

// IsPayerCancellationCode reports whether a status query return code means
// the payer cancelled or reclaimed the payment.
func IsPayerCancellationCode(code int) bool {
	return payerCancellationCodes[code]
}

// statusQueryResponseTags is the fixed tag set of a status query response, in
// the order the response hash covers them. The document is flat, one tag per
// field, and not guaranteed to be well-formed XML, so it is scanned
// tag-by-tag against this list instead of unmarshalled generically.
var statusQueryResponseTags = []string{
	"pmtq_action",
	"pmtq_version",
	"pmtq_sellerid",
	"pmtq_id",
	"pmtq_orderid",
	"pmtq_paymentmethod",
	"pmtq_escrow",
	"pmtq_amount",
	"pmtq_returncode",
	"pmtq_returntext",
	"pmtq_sellercosts",
}

// StatusResponse is a parsed status query answer.
type StatusResponse struct {
	Action        string
	Version       string
	SellerID      string
	PaymentID     string
	OrderID       string
	PaymentMethod string
	Escrow        string
	Amount        decimal.Decimal
	SellerCosts   decimal.Decimal
	ReturnCode    int
	ReturnText    string
	Hash          string

	// Raw keeps every tag value that was present, for the audit log.
	Raw map[string]string
}

// Paid reports whether the return code means the payment is settled.
func (r *StatusResponse) Paid() bool {
	return r.ReturnCode >= ReturnCodePaidThreshold && !IsPayerCancellationCode(r.ReturnCode)
}

func parseStatusResponse(body string) (*StatusResponse, error) {
	raw := make(map[string]string, len(statusQueryResponseTags)+1)
	for _, tag := range statusQueryResponseTags {
		if value, ok := extractTag(body, tag); ok {
			raw[tag] = value
		}
	}
	if hash, ok := extractTag(body, "pmtq_hash"); ok {
		raw["pmtq_hash"] = hash
	}

	resp := &StatusResponse{
		Action:        raw["pmtq_action"],
		Version:       raw["pmtq_version"],
		SellerID:      raw["pmtq_sellerid"],
		PaymentID:     raw["pmtq_id"],
		OrderID:       raw["pmtq_orderid"],
		PaymentMethod: raw["pmtq_paymentmethod"],
		Escrow:        raw["pmtq_escrow"],
		ReturnText:    raw["pmtq_returntext"],
		Hash:          raw["pmtq_hash"],
		Raw:           raw,
	}

	if code, ok := raw["pmtq_returncode"]; ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return nil, errInvalidResponse("pmtq_returncode", code)
		}
		resp.ReturnCode = parsed
	}
	if amount, ok := raw["pmtq_amount"]; ok && strings.TrimSpace(amount) != "" {
		parsed, err := ParseMoney(amount)
		if err != nil {
			return nil, errInvalidResponse("pmtq_amount", amount)
		}
		resp.Amount = parsed
	}
	if costs, ok := raw["pmtq_sellercosts"]; ok && strings.TrimSpace(costs) != "" {
		parsed, err := ParseMoney(costs)
		if err != nil {
			return nil, errInvalidResponse("pmtq_sellercosts", costs)
		}
		resp.SellerCosts = parsed
	}

	return resp, nil
}

// hashFields returns the present tag values in canonical order for response
// hash verification. Absent optional tags are skipped, not hashed as empty.
func (r *StatusResponse) hashFields() []string {
	values := make([]string, 0, len(statusQueryResponseTags))
	for _, tag := range statusQueryResponseTags {
		if value, ok := r.Raw[tag]; ok {
			values = append(values, value)
		}
	}
	return values
}

// extractTag pulls one flat tag's text out of the response document.
func extractTag(body, tag string) (string, bool) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := strings.Index(body, open)
	if start < 0 {
		return "", false
	}
	start += len(open)
	end := strings.Index(body[start:], close)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[start : start+end]), true
}
