package svea

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCommunication  = errors.New("gateway communication failed")
	ErrHashMismatch   = errors.New("gateway response hash mismatch")
	ErrOrderMismatch  = errors.New("gateway response order id mismatch")
	ErrAmountMismatch = errors.New("gateway response amount mismatch")
)

func errInvalidResponse(tag, value string) error {
	return fmt.Errorf("%w: invalid %s value %q", ErrCommunication, tag, value)
}

// ClientConfig carries the transport and reconciliation settings of the
// gateway client. The tolerances absorb rounding and currency-conversion
// noise in reconciliation; they are policy knobs, not protocol constants.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// TLSSkipVerify may only be enabled in sandbox profiles.
	TLSSkipVerify bool

	AmountTolerance      decimal.Decimal
	SellerCostsTolerance decimal.Decimal
}

// RedirectForm is the auto-submitting browser form that starts a payment.
// Sending a new payment is a redirect, not a server-side call.
type RedirectForm struct {
	Action string
	Method string
	Fields []FormField
}

// ExpectedPayment is the locally held truth a status response is reconciled
// against.
type ExpectedPayment struct {
	OrderID     string
	Amount      decimal.Decimal
	SellerCosts decimal.Decimal
}

// GatewayClient performs the outbound HTTP calls to the gateway and verifies
// every answer before handing it to the caller.
type GatewayClient struct {
	cfg     Config
	netCfg  ClientConfig
	httpCli *http.Client
}

func NewGatewayClient(cfg Config, netCfg ClientConfig) *GatewayClient {
	timeout := netCfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	// One fresh connection per request; the gateway closes connections
	// between calls anyway.
	transport := &http.Transport{DisableKeepAlives: true}
	if netCfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &GatewayClient{
		cfg:    cfg,
		netCfg: netCfg,
		httpCli: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// PaymentEndpoint is the absolute URL a new payment form posts to.
func (c *GatewayClient) PaymentEndpoint() string {
	return strings.TrimRight(c.netCfg.BaseURL, "/") + PaymentEndpointPath
}

// NewPaymentForm renders a built request as the redirect form for the
// customer's browser. No network call happens here.
func (c *GatewayClient) NewPaymentForm(req *PaymentRequest) RedirectForm {
	return RedirectForm{
		Action: c.PaymentEndpoint(),
		Method: http.MethodPost,
		Fields: req.FormFields(),
	}
}

// StatusQuery asks the gateway for the settlement state of a payment and
// verifies the answer against the expected order values. Integrity failures
// (hash, order id, amount) reject the response outright.
func (c *GatewayClient) StatusQuery(ctx context.Context, paymentID string, expected ExpectedPayment) (*StatusResponse, error) {
	algorithm, err := SelectAlgorithm(c.cfg.HashAlgorithms)
	if err != nil {
		return nil, err
	}

	hashed := []string{ActionStatusQuery, ProtocolVersion, c.cfg.SellerID, paymentID}
	form := url.Values{}
	form.Set("pmtq_action", ActionStatusQuery)
	form.Set("pmtq_version", ProtocolVersion)
	form.Set("pmtq_sellerid", c.cfg.SellerID)
	form.Set("pmtq_id", paymentID)
	form.Set("pmtq_resptype", "XML")
	form.Set("pmtq_hashversion", string(algorithm))
	form.Set("pmtq_keygeneration", c.cfg.KeyGeneration)
	form.Set("pmtq_hash", ComputeHash(hashed, c.cfg.SecretKey, algorithm))

	body, err := c.post(ctx, StatusQueryEndpointPath, form)
	if err != nil {
		return nil, err
	}

	resp, err := parseStatusResponse(body)
	if err != nil {
		return nil, err
	}

	if resp.Hash == "" {
		return nil, fmt.Errorf("%w: payment %s response carries no hash", ErrHashMismatch, paymentID)
	}
	computed := ComputeHash(resp.hashFields(), c.cfg.SecretKey, algorithm)
	if !strings.EqualFold(computed, resp.Hash) {
		return nil, fmt.Errorf("%w: payment %s", ErrHashMismatch, paymentID)
	}

	if expected.OrderID != "" && resp.OrderID != "" && resp.OrderID != expected.OrderID {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrOrderMismatch, expected.OrderID, resp.OrderID)
	}

	if resp.Paid() {
		if resp.Amount.Sub(expected.Amount).Abs().GreaterThan(c.netCfg.AmountTolerance) {
			return nil, fmt.Errorf("%w: amount expected %s, got %s", ErrAmountMismatch, FormatMoney(expected.Amount), FormatMoney(resp.Amount))
		}
		if resp.SellerCosts.Sub(expected.SellerCosts).Abs().GreaterThan(c.netCfg.SellerCostsTolerance) {
			return nil, fmt.Errorf("%w: seller costs expected %s, got %s", ErrAmountMismatch, FormatMoney(expected.SellerCosts), FormatMoney(resp.SellerCosts))
		}
	}

	return resp, nil
}

// Cancel requests a full or partial cancellation/refund of a settled
// payment.
func (c *GatewayClient) Cancel(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error {
	algorithm, err := SelectAlgorithm(c.cfg.HashAlgorithms)
	if err != nil {
		return err
	}

	cancelAmount := FormatMoney(amount)
	hashed := []string{ActionCancelPayment, ProtocolVersion, c.cfg.SellerID, paymentID, cancelAmount}
	form := url.Values{}
	form.Set("pmtc_action", ActionCancelPayment)
	form.Set("pmtc_version", ProtocolVersion)
	form.Set("pmtc_sellerid", c.cfg.SellerID)
	form.Set("pmtc_id", paymentID)
	form.Set("pmtc_amount", cancelAmount)
	form.Set("pmtc_canceltype", "FULL_REFUND")
	if strings.TrimSpace(reason) != "" {
		form.Set("pmtc_cancelreason", reason)
	}
	form.Set("pmtc_resptype", "XML")
	form.Set("pmtc_hashversion", string(algorithm))
	form.Set("pmtc_keygeneration", c.cfg.KeyGeneration)
	form.Set("pmtc_hash", ComputeHash(hashed, c.cfg.SecretKey, algorithm))

	body, err := c.post(ctx, CancelEndpointPath, form)
	if err != nil {
		return err
	}

	if code, ok := extractTag(body, "pmtc_returncode"); ok && strings.TrimSpace(code) != "00" {
		text, _ := extractTag(body, "pmtc_returntext")
		return fmt.Errorf("%w: cancel rejected with code %s (%s)", ErrCommunication, code, text)
	}
	return nil
}

// ConfirmDelivery reports delivery information for an escrow payment so the
// gateway can release the funds.
func (c *GatewayClient) ConfirmDelivery(ctx context.Context, paymentID, deliveryMethod, trackingCode string) error {
	algorithm, err := SelectAlgorithm(c.cfg.HashAlgorithms)
	if err != nil {
		return err
	}

	hashed := []string{ActionAddDeliveryInfo, ProtocolVersion, c.cfg.SellerID, paymentID, deliveryMethod}
	form := url.Values{}
	form.Set("pkg_action", ActionAddDeliveryInfo)
	form.Set("pkg_version", ProtocolVersion)
	form.Set("pkg_sellerid", c.cfg.SellerID)
	form.Set("pkg_id", paymentID)
	form.Set("pkg_deliverymethodid", deliveryMethod)
	if strings.TrimSpace(trackingCode) != "" {
		form.Set("pkg_adddeliveryinfo", trackingCode)
	}
	form.Set("pkg_allsent", "Y")
	form.Set("pkg_resptype", "XML")
	form.Set("pkg_hashversion", string(algorithm))
	form.Set("pkg_keygeneration", c.cfg.KeyGeneration)
	form.Set("pkg_hash", ComputeHash(hashed, c.cfg.SecretKey, algorithm))

	body, err := c.post(ctx, DeliveryInfoEndpointPath, form)
	if err != nil {
		return err
	}

	if code, ok := extractTag(body, "pkg_returncode"); ok && strings.TrimSpace(code) != "00" {
		text, _ := extractTag(body, "pkg_returntext")
		return fmt.Errorf("%w: delivery info rejected with code %s (%s)", ErrCommunication, code, text)
	}
	return nil
}

func (c *GatewayClient) post(ctx context.Context, path string, form url.Values) (string, error) {
	endpoint := strings.TrimRight(c.netCfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	defer resp.Body.Close()

	// The response is a small fixed tag set; reading it fully buffered is
	// bounded in practice.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: gateway returned status=%d", ErrCommunication, resp.StatusCode)
	}

	return string(body), nil
}
