package order

import "github.com/shopspring/decimal"

// Snapshot is a plain-value Order implementation, used when the order data
// arrives over the wire instead of from a live order store.
type Snapshot struct {
	OrderID       int64
	OrderCurrency string
	OrderTotal    decimal.Decimal

	BillingAddress  Address
	ShippingAddress Address

	LineItems     []Item
	OrderFees     []Fee
	Cards         []GiftCard
	Coupons       []string
	ShippingTotal decimal.Decimal
	ShippingVAT   decimal.Decimal
	Discount      decimal.Decimal
}

func (s *Snapshot) ID() int64                      { return s.OrderID }
func (s *Snapshot) Currency() string               { return s.OrderCurrency }
func (s *Snapshot) Total() decimal.Decimal         { return s.OrderTotal }
func (s *Snapshot) Billing() Address               { return s.BillingAddress }
func (s *Snapshot) Shipping() Address              { return s.ShippingAddress }
func (s *Snapshot) Items() []Item                  { return s.LineItems }
func (s *Snapshot) Fees() []Fee                    { return s.OrderFees }
func (s *Snapshot) GiftCards() []GiftCard          { return s.Cards }
func (s *Snapshot) UsedCoupons() []string          { return s.Coupons }
func (s *Snapshot) ShippingCost() decimal.Decimal  { return s.ShippingTotal }
func (s *Snapshot) ShippingTax() decimal.Decimal   { return s.ShippingVAT }
func (s *Snapshot) DiscountTotal() decimal.Decimal { return s.Discount }
