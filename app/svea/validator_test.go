package svea

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func testExpectation() ReturnExpectation {
	return ReturnExpectation{
		PaymentID:     "142",
		ReferenceBase: 142,
		SentFields: map[string]string{
			"pmt_action":   "NEW_PAYMENT_EXTENDED",
			"pmt_version":  "0004",
			"pmt_id":       "142",
			"pmt_amount":   "30,00",
			"pmt_currency": "EUR",
		},
		SellerCosts: decimal.RequireFromString("5.00"),
	}
}

// okReturnParams assembles a consistent ok-return callback and signs it the
// way the gateway does: over the pmt_ fields in arrival order.
func okReturnParams(t *testing.T, cfg Config, mutate func(params []ReturnParam) []ReturnParam) []ReturnParam {
	t.Helper()

	params := []ReturnParam{
		{"pmt_action", "NEW_PAYMENT_EXTENDED"},
		{"pmt_version", "0004"},
		{"pmt_id", "142"},
		{"pmt_reference", "1423"},
		{"pmt_amount", "30,00"},
		{"pmt_currency", "EUR"},
		{"pmt_sellercosts", "5,00"},
		{"pmt_paymentmethod", "FI01"},
		{"pmt_escrow", "N"},
	}
	if mutate != nil {
		params = mutate(params)
	}

	algorithm, err := SelectAlgorithm(cfg.HashAlgorithms)
	if err != nil {
		t.Fatalf("SelectAlgorithm: %v", err)
	}
	values := make([]string, 0, len(params))
	for _, p := range params {
		values = append(values, p.Value)
	}
	return append(params, ReturnParam{"pmt_hash", ComputeHash(values, cfg.SecretKey, algorithm)})
}

func TestValidateOKReturn(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	result := v.Validate(ReturnOK, okReturnParams(t, cfg, nil), testExpectation())
	if result.Failed() {
		t.Fatalf("expected clean pass, got %v", result.Errors)
	}
	if result.Action != ReturnOK {
		t.Fatalf("expected action ok, got %s", result.Action)
	}
	if result.Received["pmt_id"] != "142" {
		t.Fatalf("expected received snapshot, got %v", result.Received)
	}
}

func TestValidateOKReturnLowercaseHashAccepted(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	params := okReturnParams(t, cfg, nil)
	params[len(params)-1].Value = strings.ToLower(params[len(params)-1].Value)

	result := v.Validate(ReturnOK, params, testExpectation())
	if result.Failed() {
		t.Fatalf("expected case-insensitive hash match, got %v", result.Errors)
	}
}

func TestValidateOKReturnMissingHashDemotes(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	params := okReturnParams(t, cfg, nil)
	params = params[:len(params)-1]

	result := v.Validate(ReturnOK, params, testExpectation())
	if result.Action != ReturnError {
		t.Fatalf("expected demotion to error, got %s", result.Action)
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "pmt_hash") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing pmt_hash reported, got %v", result.Errors)
	}
}

func TestValidateOKReturnTamperedAmountDemotes(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	// Tamper after signing so the hash no longer covers the value.
	params := okReturnParams(t, cfg, nil)
	for i := range params {
		if params[i].Name == "pmt_amount" {
			params[i].Value = "1,00"
		}
	}

	result := v.Validate(ReturnOK, params, testExpectation())
	if result.Action != ReturnError {
		t.Fatalf("expected demotion to error, got %s", result.Action)
	}
	// Both the hash and the cross-check catch it.
	if len(result.Errors) < 2 {
		t.Fatalf("expected hash and cross-check failures, got %v", result.Errors)
	}
}

func TestValidateOKReturnSellerCostsMayRiseNeverFall(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	raised := okReturnParams(t, cfg, func(params []ReturnParam) []ReturnParam {
		for i := range params {
			if params[i].Name == "pmt_sellercosts" {
				params[i].Value = "6,50"
			}
		}
		return params
	})
	result := v.Validate(ReturnOK, raised, testExpectation())
	if result.Failed() {
		t.Fatalf("expected raised seller costs accepted, got %v", result.Errors)
	}

	lowered := okReturnParams(t, cfg, func(params []ReturnParam) []ReturnParam {
		for i := range params {
			if params[i].Name == "pmt_sellercosts" {
				params[i].Value = "4,00"
			}
		}
		return params
	})
	result = v.Validate(ReturnOK, lowered, testExpectation())
	if result.Action != ReturnError {
		t.Fatalf("expected lowered seller costs rejected, got %s", result.Action)
	}
}

func TestValidateOKReturnPrefixedPaymentID(t *testing.T) {
	cfg := testBuilderConfig()
	cfg.PaymentIDPrefix = "shop1-"
	v := NewReturnValidator(cfg)

	expected := testExpectation()
	expected.PaymentID = "shop1-142"
	expected.PaymentIDPrefix = "shop1-"
	expected.SentFields["pmt_id"] = "shop1-142"

	params := okReturnParams(t, cfg, func(params []ReturnParam) []ReturnParam {
		for i := range params {
			if params[i].Name == "pmt_id" {
				params[i].Value = "shop1-142"
			}
		}
		return params
	})

	result := v.Validate(ReturnOK, params, expected)
	if result.Failed() {
		t.Fatalf("expected prefixed id accepted, got %v", result.Errors)
	}
}

func TestValidateCancelTakenAtFaceValue(t *testing.T) {
	cfg := testBuilderConfig()
	v := NewReturnValidator(cfg)

	// A cancel return carries no hash and skips the integrity pass.
	params := []ReturnParam{{"pmt_id", "142"}}
	result := v.Validate(ReturnCancel, params, testExpectation())
	if result.Failed() {
		t.Fatalf("expected cancel at face value, got %v", result.Errors)
	}
	if result.Action != ReturnCancel {
		t.Fatalf("expected cancel, got %s", result.Action)
	}
}

func TestParseReturnParamsKeepsOrder(t *testing.T) {
	params, err := ParseReturnParams("pmt_b=2&pmt_a=1&other=x&pmt_c=%26")
	if err != nil {
		t.Fatalf("ParseReturnParams: %v", err)
	}
	if len(params) != 4 {
		t.Fatalf("expected 4 params, got %d", len(params))
	}
	if params[0].Name != "pmt_b" || params[1].Name != "pmt_a" {
		t.Fatalf("expected arrival order preserved, got %v", params)
	}
	if params[3].Value != "&" {
		t.Fatalf("expected escaped value decoded, got %q", params[3].Value)
	}
}

func TestParseReturnActionUnknownIsError(t *testing.T) {
	if got := ParseReturnAction("paid"); got != ReturnError {
		t.Fatalf("expected unknown action forced to error, got %s", got)
	}
	if got := ParseReturnAction("Delayed"); got != ReturnDelay {
		t.Fatalf("expected delayed mapped to delay, got %s", got)
	}
}
