// Package order specifies the e-commerce order system this service
// integrates with. The order store itself lives in another service; this
// package only declares the read surface the payment flow consumes and the
// write-backs it performs.
package order

import (
	"context"

	"github.com/shopspring/decimal"
)

// Address is one billing or shipping address block as the order system
// exposes it. Delivery fields may be blank; the payment message builder
// falls back to billing values in that case.
type Address struct {
	Name       string
	Street     string
	PostalCode string
	City       string
	Country    string
	Email      string
	Phone      string
}

// Item is one purchased line item with the monetary amounts already computed
// by the order system.
type Item struct {
	Name            string
	Description     string
	ArticleNumber   string
	Quantity        decimal.Decimal
	UnitPriceGross  decimal.Decimal
	VATPercent      decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Fee is a custom order fee with its tax amount.
type Fee struct {
	Name      string
	Amount    decimal.Decimal
	TaxAmount decimal.Decimal
}

// GiftCard is an applied gift card, mapped to a negative discount row.
type GiftCard struct {
	Code   string
	Amount decimal.Decimal
}

// Order is the read accessor set over an already-placed order. Amounts are
// final; no cart, coupon, or tax computation happens on this side.
type Order interface {
	ID() int64
	Currency() string
	Total() decimal.Decimal

	Billing() Address
	Shipping() Address

	Items() []Item
	Fees() []Fee
	GiftCards() []GiftCard
	UsedCoupons() []string

	ShippingCost() decimal.Decimal
	ShippingTax() decimal.Decimal
	DiscountTotal() decimal.Decimal
}

// Notifier is the write-back surface: it drives the order through its own
// lifecycle when a payment reaches a terminal state. Implementations must
// tolerate repeated calls for the same order; the payment service guards with
// idempotency checks before invoking them but a crash between update and
// notify can replay one.
type Notifier interface {
	UpdateStatus(ctx context.Context, orderID int64, status, note string) error
	PaymentComplete(ctx context.Context, orderID int64, reference string) error
	CancelOrder(ctx context.Context, orderID int64, reason string) error
}
