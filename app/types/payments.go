package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-svea/app/order"
)

type AddressPayload struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type ItemPayload struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	ArticleNumber   string          `json:"article_number,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPriceGross  decimal.Decimal `json:"unit_price_gross"`
	VATPercent      decimal.Decimal `json:"vat_percent"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type FeePayload struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

type GiftCardPayload struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// CreatePaymentRequest carries the order snapshot a redirect form is built
// from. Amounts are final; this service never recomputes cart totals.
type CreatePaymentRequest struct {
	OrderID       int64             `json:"order_id"`
	Currency      string            `json:"currency"`
	Total         decimal.Decimal   `json:"total"`
	Billing       AddressPayload    `json:"billing"`
	Shipping      AddressPayload    `json:"shipping"`
	Items         []ItemPayload     `json:"items"`
	Fees          []FeePayload      `json:"fees,omitempty"`
	GiftCards     []GiftCardPayload `json:"gift_cards,omitempty"`
	Coupons       []string          `json:"coupons,omitempty"`
	ShippingCost  decimal.Decimal   `json:"shipping_cost"`
	ShippingTax   decimal.Decimal   `json:"shipping_tax"`
	DiscountTotal decimal.Decimal   `json:"discount_total"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.OrderID <= 0 {
		return errors.New("order_id must be > 0")
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if !r.Total.IsPositive() {
		return errors.New("total must be > 0")
	}
	if len(r.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return errors.New("items[" + strconv.Itoa(i) + "].name is required")
		}
		if !item.Quantity.IsPositive() {
			return errors.New("items[" + strconv.Itoa(i) + "].quantity must be > 0")
		}
	}
	return nil
}

// ToOrder converts the payload into the order collaborator shape the
// message builder consumes.
func (r *CreatePaymentRequest) ToOrder() *order.Snapshot {
	items := make([]order.Item, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, order.Item{
			Name:            item.Name,
			Description:     item.Description,
			ArticleNumber:   item.ArticleNumber,
			Quantity:        item.Quantity,
			UnitPriceGross:  item.UnitPriceGross,
			VATPercent:      item.VATPercent,
			DiscountPercent: item.DiscountPercent,
		})
	}
	fees := make([]order.Fee, 0, len(r.Fees))
	for _, fee := range r.Fees {
		fees = append(fees, order.Fee{Name: fee.Name, Amount: fee.Amount, TaxAmount: fee.TaxAmount})
	}
	cards := make([]order.GiftCard, 0, len(r.GiftCards))
	for _, card := range r.GiftCards {
		cards = append(cards, order.GiftCard{Code: card.Code, Amount: card.Amount})
	}

	return &order.Snapshot{
		OrderID:         r.OrderID,
		OrderCurrency:   r.Currency,
		OrderTotal:      r.Total,
		BillingAddress:  addressFromPayload(r.Billing),
		ShippingAddress: addressFromPayload(r.Shipping),
		LineItems:       items,
		OrderFees:       fees,
		Cards:           cards,
		Coupons:         r.Coupons,
		ShippingTotal:   r.ShippingCost,
		ShippingVAT:     r.ShippingTax,
		Discount:        r.DiscountTotal,
	}
}

func addressFromPayload(p AddressPayload) order.Address {
	return order.Address{
		Name:       p.Name,
		Street:     p.Street,
		PostalCode: p.PostalCode,
		City:       p.City,
		Country:    p.Country,
		Email:      p.Email,
		Phone:      p.Phone,
	}
}

type GetPaymentsRequest struct {
	OrderID int64
}

func NewGetPaymentsRequestFromContext(ctx echo.Context) (*GetPaymentsRequest, error) {
	orderID, err := strconv.ParseInt(ctx.Param("orderID"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPaymentsRequest{OrderID: orderID}, nil
}

func (r *GetPaymentsRequest) Validate() error {
	if r.OrderID <= 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type ConfirmDeliveryRequest struct {
	OrderID        int64  `json:"-"`
	DeliveryMethod string `json:"delivery_method"`
	TrackingCode   string `json:"tracking_code"`
}

func NewConfirmDeliveryRequestFromContext(ctx echo.Context) (*ConfirmDeliveryRequest, error) {
	orderID, err := strconv.ParseInt(ctx.Param("orderID"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body ConfirmDeliveryRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderID = orderID
	body.DeliveryMethod = strings.TrimSpace(body.DeliveryMethod)
	body.TrackingCode = strings.TrimSpace(body.TrackingCode)

	return &body, nil
}

func (r *ConfirmDeliveryRequest) Validate() error {
	if r.OrderID <= 0 {
		return errors.New("invalid order id")
	}
	if r.DeliveryMethod == "" {
		return errors.New("delivery_method is required")
	}
	return nil
}
