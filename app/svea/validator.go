package svea

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// ReturnAction is the gateway's verdict carried by an inbound return
// callback. Anything unknown is forced to error, never guessed.
type ReturnAction string

const (
	ReturnOK     ReturnAction = "ok"
	ReturnCancel ReturnAction = "cancel"
	ReturnDelay  ReturnAction = "delay"
	ReturnError  ReturnAction = "error"
)

// ParseReturnAction maps the raw action parameter to a known action.
func ParseReturnAction(raw string) ReturnAction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ok":
		return ReturnOK
	case "cancel":
		return ReturnCancel
	case "delay", "delayed":
		return ReturnDelay
	default:
		return ReturnError
	}
}

// returnMandatoryFields is the fixed subset an ok-return must carry.
var returnMandatoryFields = []string{
	"pmt_action",
	"pmt_version",
	"pmt_id",
	"pmt_reference",
	"pmt_amount",
	"pmt_currency",
	"pmt_sellercosts",
	"pmt_paymentmethod",
	"pmt_escrow",
	"pmt_hash",
}

// returnCrossCheckIgnored are the returned fields never compared against the
// outbound snapshot: the gateway legitimately rewrites them.
var returnCrossCheckIgnored = map[string]bool{
	"pmt_hash":          true,
	"pmt_paymentmethod": true,
	"pmt_reference":     true,
	"pmt_sellercosts":   true,
	"pmt_escrow":        true,
}

// ReturnParam is one inbound query parameter with its position preserved.
// The return hash covers the fields in the order the gateway sent them, so
// the flattened url.Values view is not enough.
type ReturnParam struct {
	Name  string
	Value string
}

// ParseReturnParams decodes a raw query string into ordered parameters.
func ParseReturnParams(rawQuery string) ([]ReturnParam, error) {
	params := make([]ReturnParam, 0, 16)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter name %q", name)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter value for %q", decodedName)
		}
		params = append(params, ReturnParam{Name: decodedName, Value: decodedValue})
	}
	return params, nil
}

// ReturnExpectation is the locally held order/payment state an inbound
// callback is validated against.
type ReturnExpectation struct {
	// PaymentID is the full expected id; PaymentIDPrefix is stripped from
	// the inbound value before comparing.
	PaymentID       string
	PaymentIDPrefix string

	// ReferenceBase recomputes the deterministic check-digit reference.
	ReferenceBase int64

	// SentFields is the data_sent snapshot keyed by wire field name.
	SentFields map[string]string

	SellerCosts decimal.Decimal
}

// ReturnResult is one synchronous validation pass over an inbound callback.
// Errors holds every collected problem; an ok action with any error
// degrades to ReturnError and must not trigger a completion.
type ReturnResult struct {
	Action  ReturnAction
	Errors  []string
	Message string

	// Received is the inbound field set, retained as data_received.
	Received map[string]string
}

// Failed reports whether the pass collected any validation error.
func (r *ReturnResult) Failed() bool {
	return len(r.Errors) > 0
}

// ReturnValidator validates inbound return callbacks against the original
// order's expected values and hash.
type ReturnValidator struct {
	cfg Config
}

func NewReturnValidator(cfg Config) *ReturnValidator {
	return &ReturnValidator{cfg: cfg}
}

// Validate classifies one inbound callback. Cancel, delay and error actions
// are taken at face value; an ok action runs the full integrity pass and is
// demoted to error when anything fails. All problems are collected, never
// just the first.
func (v *ReturnValidator) Validate(action ReturnAction, params []ReturnParam, expected ReturnExpectation) *ReturnResult {
	received := make(map[string]string, len(params))
	for _, p := range params {
		if strings.HasPrefix(p.Name, "pmt_") {
			received[p.Name] = p.Value
		}
	}

	result := &ReturnResult{Action: action, Received: received}

	switch action {
	case ReturnCancel:
		result.Message = "payment cancelled by payer"
		return result
	case ReturnDelay:
		result.Message = "payment delayed, awaiting settlement"
		return result
	case ReturnError:
		result.Message = "gateway reported a payment error"
		return result
	}

	for _, name := range returnMandatoryFields {
		if _, ok := received[name]; !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("missing mandatory return field %s", name))
		}
	}

	if id, ok := received["pmt_id"]; ok {
		stripped := strings.TrimPrefix(id, expected.PaymentIDPrefix)
		expectedStripped := strings.TrimPrefix(expected.PaymentID, expected.PaymentIDPrefix)
		if stripped != expectedStripped {
			result.Errors = append(result.Errors, fmt.Sprintf("pmt_id %q does not match expected payment id", id))
		}
	}

	v.verifyHash(params, received, result)
	v.crossCheck(received, expected, result)

	if costs, ok := received["pmt_sellercosts"]; ok {
		// The gateway may charge more than quoted (surcharge) but never
		// less; a decrease is an integrity failure.
		parsed, err := ParseMoney(costs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pmt_sellercosts %q is not a valid amount", costs))
		} else if parsed.LessThan(expected.SellerCosts) {
			result.Errors = append(result.Errors, fmt.Sprintf("pmt_sellercosts %s is lower than sent %s", costs, FormatMoney(expected.SellerCosts)))
		}
	}

	if ref, ok := received["pmt_reference"]; ok {
		recomputed, err := ReferenceNumber(expected.ReferenceBase)
		if err != nil || recomputed != ref {
			result.Errors = append(result.Errors, fmt.Sprintf("pmt_reference %q does not match recomputed reference", ref))
		}
	}

	if result.Failed() {
		result.Action = ReturnError
		result.Message = "return callback validation failed"
	} else {
		result.Message = "payment confirmed"
	}
	return result
}

// verifyHash recomputes the keyed hash over the returned fields in the exact
// order they arrived, excluding the hash field itself, and compares
// case-insensitively against the received value.
func (v *ReturnValidator) verifyHash(params []ReturnParam, received map[string]string, result *ReturnResult) {
	receivedHash, ok := received["pmt_hash"]
	if !ok {
		return
	}

	algorithm, err := SelectAlgorithm(v.cfg.HashAlgorithms)
	if err != nil {
		result.Errors = append(result.Errors, "no supported hash algorithm for return verification")
		return
	}

	values := make([]string, 0, len(params))
	for _, p := range params {
		if !strings.HasPrefix(p.Name, "pmt_") || p.Name == "pmt_hash" {
			continue
		}
		values = append(values, p.Value)
	}

	computed := ComputeHash(values, v.cfg.SecretKey, algorithm)
	if !strings.EqualFold(computed, receivedHash) {
		result.Errors = append(result.Errors, "pmt_hash does not verify against returned fields")
	}
}

// crossCheck compares every returned field against the outbound snapshot,
// except the fields the gateway is allowed to rewrite.
func (v *ReturnValidator) crossCheck(received map[string]string, expected ReturnExpectation, result *ReturnResult) {
	for name, value := range received {
		if returnCrossCheckIgnored[name] {
			continue
		}
		sent, ok := expected.SentFields[name]
		if !ok {
			continue
		}
		if sent != value {
			result.Errors = append(result.Errors, fmt.Sprintf("%s mismatch: sent %q, returned %q", name, sent, value))
		}
	}
}
