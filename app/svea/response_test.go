package svea

import (
	"errors"
	"testing"
)

func TestParseStatusResponseToleratesLooseDocument(t *testing.T) {
	// The response is not guaranteed to be well-formed XML; tags are pulled
	// out individually.
	body := "garbage<pmtq_returncode> 20 </pmtq_returncode>no closing root<pmtq_amount>30,00</pmtq_amount>"
	resp, err := parseStatusResponse(body)
	if err != nil {
		t.Fatalf("parseStatusResponse: %v", err)
	}
	if resp.ReturnCode != 20 {
		t.Fatalf("expected returncode 20, got %d", resp.ReturnCode)
	}
	if resp.Amount.String() != "30" {
		t.Fatalf("expected amount 30, got %s", resp.Amount)
	}
}

func TestParseStatusResponseRejectsBadReturnCode(t *testing.T) {
	_, err := parseStatusResponse("<pmtq_returncode>abc</pmtq_returncode>")
	if !errors.Is(err, ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
}

func TestPaidExcludesPayerCancellationCodes(t *testing.T) {
	for _, code := range []int{30, 91, 92, 93, 95, 99} {
		resp := &StatusResponse{ReturnCode: code}
		if resp.Paid() {
			t.Fatalf("code %d must not count as paid", code)
		}
		if !IsPayerCancellationCode(code) {
			t.Fatalf("code %d must be a payer cancellation", code)
		}
	}
	if IsPayerCancellationCode(20) {
		t.Fatal("code 20 is a settlement, not a cancellation")
	}
	if !(&StatusResponse{ReturnCode: 21}).Paid() {
		t.Fatal("code 21 must count as paid")
	}
}
