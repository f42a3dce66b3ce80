package svea

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-svea/app/order"
)

// Config carries the per-merchant gateway settings the message builder and
// client need.
type Config struct {
	SellerID      string
	SecretKey     string
	KeyGeneration string

	// Supported hash algorithm names; the strongest mutually supported one
	// is selected per request.
	HashAlgorithms []string

	Escrow              bool
	EscrowChangeAllowed bool

	// PaymentIDPrefix distinguishes shops sharing one seller account.
	PaymentIDPrefix string
	// OrderIDOffset keeps derived ids above the reference-number floor.
	OrderIDOffset int64

	DueDateDays int

	OKReturnURL     string
	ErrorReturnURL  string
	CancelReturnURL string
	DelayReturnURL  string

	SellerIBAN        string
	InvoiceFromSeller string
	PaymentMethod     string

	// PaymentMethodFee is an optional surcharge added as a handling row and
	// counted into seller costs.
	PaymentMethodFee    decimal.Decimal
	PaymentMethodFeeTax decimal.Decimal
}

// ValidationError aggregates every field problem found during a build or
// return validation pass. The caller always gets the complete picture, never
// just the first violation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payment message validation failed: %s", strings.Join(e.Problems, "; "))
}

const dueDateLayout = "02.01.2006"

// Builder assembles validated, hashed payment requests from order data.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.OrderIDOffset <= 0 {
		cfg.OrderIDOffset = 100
	}
	if cfg.DueDateDays < 0 {
		cfg.DueDateDays = 0
	}
	return &Builder{cfg: cfg}
}

// PaymentID derives the gateway payment id for an order.
func (b *Builder) PaymentID(orderID int64) string {
	return b.cfg.PaymentIDPrefix + strconv.FormatInt(orderID+b.cfg.OrderIDOffset, 10)
}

// Reference derives the check-digit reference number for an order.
func (b *Builder) Reference(orderID int64) (string, error) {
	return ReferenceNumber(orderID + b.cfg.OrderIDOffset)
}

// Build turns an order into a ready-to-send PaymentRequest: header fields
// from config and order, delivery defaulted to buyer where blank, one row
// per item plus conditional shipping/discount/fee/gift-card rows, collected
// validation, field length policy, reference number and final hash.
func (b *Builder) Build(ord order.Order) (*PaymentRequest, error) {
	algorithm, err := SelectAlgorithm(b.cfg.HashAlgorithms)
	if err != nil {
		return nil, err
	}

	reference, err := b.Reference(ord.ID())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sellerCosts := ord.ShippingCost().Add(b.cfg.PaymentMethodFee)

	req := &PaymentRequest{
		Action:       ActionNewPayment,
		Version:      ProtocolVersion,
		SellerID:     b.cfg.SellerID,
		ID:           b.PaymentID(ord.ID()),
		OrderID:      strconv.FormatInt(ord.ID(), 10),
		Reference:    reference,
		DueDate:      now.AddDate(0, 0, b.cfg.DueDateDays).Format(dueDateLayout),
		Amount:       FormatMoney(ord.Total().Sub(sellerCosts)),
		Currency:     ord.Currency(),
		OKReturn:     b.cfg.OKReturnURL,
		ErrorReturn:  b.cfg.ErrorReturnURL,
		CancelReturn: b.cfg.CancelReturnURL,
		DelayReturn:  b.cfg.DelayReturnURL,

		Escrow:              b.cfg.Escrow,
		EscrowChangeAllowed: b.cfg.EscrowChangeAllowed,

		SellerIBAN:        b.cfg.SellerIBAN,
		InvoiceFromSeller: b.cfg.InvoiceFromSeller,
		PaymentMethod:     b.cfg.PaymentMethod,

		Buyer: Address{
			Name:       ord.Billing().Name,
			Street:     ord.Billing().Street,
			PostalCode: ord.Billing().PostalCode,
			City:       ord.Billing().City,
			Country:    strings.ToUpper(ord.Billing().Country),
		},
		BuyerEmail: ord.Billing().Email,
		BuyerPhone: ord.Billing().Phone,

		SellerCosts: FormatMoney(sellerCosts),

		Charset:       "UTF-8",
		CharsetHTTP:   "UTF-8",
		HashVersion:   string(algorithm),
		KeyGeneration: b.cfg.KeyGeneration,
	}

	// Gateways reject requests with empty delivery data, so blank delivery
	// fields always fall back to the buyer address.
	req.Delivery = deliveryOrBuyer(ord.Shipping(), req.Buyer)

	req.Rows = b.buildRows(ord, now)

	problems := b.validate(req)
	b.applyLengthPolicy(req, &problems)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	req.Hash = ComputeHash(req.HashFields(), b.cfg.SecretKey, algorithm)
	return req, nil
}

func deliveryOrBuyer(shipping order.Address, buyer Address) Address {
	delivery := Address{
		Name:       shipping.Name,
		Street:     shipping.Street,
		PostalCode: shipping.PostalCode,
		City:       shipping.City,
		Country:    strings.ToUpper(shipping.Country),
	}
	if strings.TrimSpace(delivery.Name) == "" {
		delivery.Name = buyer.Name
	}
	if strings.TrimSpace(delivery.Street) == "" {
		delivery.Street = buyer.Street
	}
	if strings.TrimSpace(delivery.PostalCode) == "" {
		delivery.PostalCode = buyer.PostalCode
	}
	if strings.TrimSpace(delivery.City) == "" {
		delivery.City = buyer.City
	}
	if strings.TrimSpace(delivery.Country) == "" {
		delivery.Country = buyer.Country
	}
	return delivery
}

func (b *Builder) buildRows(ord order.Order, now time.Time) []PaymentRow {
	deliveryDate := now.Format(dueDateLayout)
	rows := make([]PaymentRow, 0, len(ord.Items())+4)

	for _, item := range ord.Items() {
		rows = append(rows, PaymentRow{
			Name:            item.Name,
			Description:     itemDescription(item),
			Quantity:        item.Quantity.String(),
			ArticleNumber:   FilterAlphanumeric(item.ArticleNumber),
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(item.UnitPriceGross),
			VATPercent:      FormatMoney(item.VATPercent),
			DiscountPercent: FormatMoney(item.DiscountPercent),
			Type:            RowTypeProduct,
		})
	}

	if ord.ShippingCost().IsPositive() {
		rows = append(rows, PaymentRow{
			Name:            "Shipping",
			Description:     "Shipping costs",
			Quantity:        "1",
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(ord.ShippingCost()),
			VATPercent:      FormatMoney(derivedVATPercent(ord.ShippingTax(), ord.ShippingCost())),
			DiscountPercent: FormatMoney(decimal.Zero),
			Type:            RowTypeShipping,
		})
	}

	if ord.DiscountTotal().IsPositive() {
		rows = append(rows, PaymentRow{
			Name:            "Discount",
			Description:     discountDescription(ord.UsedCoupons()),
			Quantity:        "1",
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(ord.DiscountTotal().Neg()),
			VATPercent:      FormatMoney(decimal.Zero),
			DiscountPercent: FormatMoney(decimal.Zero),
			Type:            RowTypeDiscount,
		})
	}

	if b.cfg.PaymentMethodFee.IsPositive() {
		rows = append(rows, PaymentRow{
			Name:            "Payment fee",
			Description:     "Payment method surcharge",
			Quantity:        "1",
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(b.cfg.PaymentMethodFee),
			VATPercent:      FormatMoney(derivedVATPercent(b.cfg.PaymentMethodFeeTax, b.cfg.PaymentMethodFee)),
			DiscountPercent: FormatMoney(decimal.Zero),
			Type:            RowTypeHandling,
		})
	}

	for _, fee := range ord.Fees() {
		rows = append(rows, PaymentRow{
			Name:            fee.Name,
			Description:     fee.Name,
			Quantity:        "1",
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(fee.Amount),
			VATPercent:      FormatMoney(derivedVATPercent(fee.TaxAmount, fee.Amount)),
			DiscountPercent: FormatMoney(decimal.Zero),
			Type:            RowTypeHandling,
		})
	}

	for _, card := range ord.GiftCards() {
		rows = append(rows, PaymentRow{
			Name:            "Gift card",
			Description:     "Gift card " + FilterAlphanumeric(card.Code),
			Quantity:        "1",
			DeliveryDate:    deliveryDate,
			PriceGross:      FormatMoney(card.Amount.Neg()),
			VATPercent:      FormatMoney(decimal.Zero),
			DiscountPercent: FormatMoney(decimal.Zero),
			Type:            RowTypeDiscount,
		})
	}

	return rows
}

// derivedVATPercent computes 100*tax/base rounded to the nearest 0.5, the
// granularity the gateway accepts for derived rates.
func derivedVATPercent(tax, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() || tax.IsZero() {
		return decimal.Zero
	}
	rate := tax.Mul(decimal.NewFromInt(100)).Div(base)
	return rate.Mul(decimal.NewFromInt(2)).Round(0).Div(decimal.NewFromInt(2))
}

func itemDescription(item order.Item) string {
	desc := strings.TrimSpace(item.Description)
	if desc == "" {
		return item.Name
	}
	return desc
}

func discountDescription(coupons []string) string {
	if len(coupons) == 0 {
		return "Order discount"
	}
	return "Coupons: " + strings.Join(coupons, ", ")
}

func (b *Builder) validate(req *PaymentRequest) []string {
	problems := make([]string, 0)

	mandatory := []struct {
		name  string
		value string
	}{
		{"pmt_action", req.Action},
		{"pmt_version", req.Version},
		{"pmt_sellerid", req.SellerID},
		{"pmt_id", req.ID},
		{"pmt_orderid", req.OrderID},
		{"pmt_reference", req.Reference},
		{"pmt_duedate", req.DueDate},
		{"pmt_amount", req.Amount},
		{"pmt_currency", req.Currency},
		{"pmt_okreturn", req.OKReturn},
		{"pmt_errorreturn", req.ErrorReturn},
		{"pmt_cancelreturn", req.CancelReturn},
		{"pmt_delayedpayreturn", req.DelayReturn},
		{"pmt_buyername", req.Buyer.Name},
		{"pmt_buyeraddress", req.Buyer.Street},
		{"pmt_buyerpostalcode", req.Buyer.PostalCode},
		{"pmt_buyercity", req.Buyer.City},
		{"pmt_deliveryname", req.Delivery.Name},
		{"pmt_deliveryaddress", req.Delivery.Street},
		{"pmt_deliverypostalcode", req.Delivery.PostalCode},
		{"pmt_deliverycity", req.Delivery.City},
		{"pmt_sellercosts", req.SellerCosts},
	}
	for _, field := range mandatory {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, fmt.Sprintf("%s is required", field.name))
		}
	}

	if len(FilterAlphanumeric(req.Reference)) < 3 {
		problems = append(problems, "pmt_reference must be at least 3 digits")
	}

	for i, row := range req.Rows {
		problems = append(problems, validateRow(i+1, row)...)
	}

	return problems
}

// validateRow checks one row's mandatory fields and the exactly-one-of
// gross/net price invariant.
func validateRow(index int, row PaymentRow) []string {
	problems := make([]string, 0)

	if strings.TrimSpace(row.Name) == "" {
		problems = append(problems, fmt.Sprintf("row %d: pmt_row_name is required", index))
	}
	if strings.TrimSpace(row.Quantity) == "" {
		problems = append(problems, fmt.Sprintf("row %d: pmt_row_quantity is required", index))
	}
	if strings.TrimSpace(row.DeliveryDate) == "" {
		problems = append(problems, fmt.Sprintf("row %d: pmt_row_deliverydate is required", index))
	}
	if strings.TrimSpace(row.Type) == "" {
		problems = append(problems, fmt.Sprintf("row %d: pmt_row_type is required", index))
	}

	hasGross := strings.TrimSpace(row.PriceGross) != ""
	hasNet := strings.TrimSpace(row.PriceNet) != ""
	if hasGross == hasNet {
		problems = append(problems, fmt.Sprintf("row %d: exactly one of pmt_row_price_gross and pmt_row_price_net must be set", index))
	}

	return problems
}

func (b *Builder) applyLengthPolicy(req *PaymentRequest, problems *[]string) {
	clamp := func(name string, value *string) {
		policy, ok := headerFieldLengths[name]
		if !ok || *value == "" {
			return
		}
		trimmed, err := TrimToLength(*value, policy.min, policy.max)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*value = trimmed
	}

	clamp("pmt_action", &req.Action)
	clamp("pmt_sellerid", &req.SellerID)
	clamp("pmt_id", &req.ID)
	clamp("pmt_orderid", &req.OrderID)
	clamp("pmt_reference", &req.Reference)
	clamp("pmt_duedate", &req.DueDate)
	clamp("pmt_amount", &req.Amount)
	clamp("pmt_currency", &req.Currency)
	clamp("pmt_okreturn", &req.OKReturn)
	clamp("pmt_errorreturn", &req.ErrorReturn)
	clamp("pmt_cancelreturn", &req.CancelReturn)
	clamp("pmt_delayedpayreturn", &req.DelayReturn)
	clamp("pmt_buyername", &req.Buyer.Name)
	clamp("pmt_buyeraddress", &req.Buyer.Street)
	clamp("pmt_buyerpostalcode", &req.Buyer.PostalCode)
	clamp("pmt_buyercity", &req.Buyer.City)
	clamp("pmt_buyercountry", &req.Buyer.Country)
	clamp("pmt_deliveryname", &req.Delivery.Name)
	clamp("pmt_deliveryaddress", &req.Delivery.Street)
	clamp("pmt_deliverypostalcode", &req.Delivery.PostalCode)
	clamp("pmt_deliverycity", &req.Delivery.City)
	clamp("pmt_deliverycountry", &req.Delivery.Country)
	clamp("pmt_sellercosts", &req.SellerCosts)

	clampRow := func(index int, name string, value *string) {
		policy, ok := rowFieldLengths[name]
		if !ok || *value == "" {
			return
		}
		trimmed, err := TrimToLength(*value, policy.min, policy.max)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("row %d: %s: %v", index, name, err))
			return
		}
		*value = trimmed
	}

	for i := range req.Rows {
		row := &req.Rows[i]
		clampRow(i+1, "pmt_row_name", &row.Name)
		clampRow(i+1, "pmt_row_desc", &row.Description)
		clampRow(i+1, "pmt_row_quantity", &row.Quantity)
		clampRow(i+1, "pmt_row_articlenr", &row.ArticleNumber)
		clampRow(i+1, "pmt_row_deliverydate", &row.DeliveryDate)
		clampRow(i+1, "pmt_row_price_gross", &row.PriceGross)
		clampRow(i+1, "pmt_row_price_net", &row.PriceNet)
		clampRow(i+1, "pmt_row_vat", &row.VATPercent)
		clampRow(i+1, "pmt_row_discountpercentage", &row.DiscountPercent)
	}
}
