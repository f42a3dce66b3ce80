package svea

import "strconv"

const (
	ActionNewPayment      = "NEW_PAYMENT_EXTENDED"
	ActionStatusQuery     = "PAYMENT_STATUS_QUERY"
	ActionCancelPayment   = "PAYMENT_CANCEL"
	ActionAddDeliveryInfo = "ADD_DELIVERY_INFO"

	ProtocolVersion = "0004"

	PaymentEndpointPath      = "/NewPaymentExtended.pmt"
	StatusQueryEndpointPath  = "/PaymentStatusQuery.pmt"
	CancelEndpointPath       = "/PaymentCancel.pmt"
	DeliveryInfoEndpointPath = "/addDeliveryInfo.pmt"
)

// Row type codes defined by the gateway protocol.
const (
	RowTypeProduct  = "1"
	RowTypeShipping = "2"
	RowTypeHandling = "3"
	RowTypeDiscount = "6"
)

// PaymentRow is one line item of the outbound message: a product, shipping,
// a handling fee, a discount, or a gift card. Exactly one of PriceGross and
// PriceNet must be set; both are already comma-decimal formatted strings.
type PaymentRow struct {
	Name            string
	Description     string
	Quantity        string
	ArticleNumber   string
	DeliveryDate    string
	PriceGross      string
	PriceNet        string
	VATPercent      string
	DiscountPercent string
	Type            string
}

// Address is one buyer or delivery address block.
type Address struct {
	Name       string
	Street     string
	PostalCode string
	City       string
	Country    string
}

// PaymentRequest is the complete outbound payment message. It is immutable
// once hashed: Build fills it, computes the hash over the canonical field
// order, and no field may change afterwards.
type PaymentRequest struct {
	Action       string
	Version      string
	SellerID     string
	ID           string
	OrderID      string
	Reference    string
	DueDate      string
	Amount       string
	Currency     string
	OKReturn     string
	ErrorReturn  string
	CancelReturn string
	DelayReturn  string

	Escrow              bool
	EscrowChangeAllowed bool

	// Optional fields, hashed only when set.
	SellerIBAN              string
	InvoiceFromSeller       string
	PaymentMethod           string
	BuyerIdentificationCode string

	Buyer    Address
	Delivery Address

	BuyerEmail string
	BuyerPhone string

	SellerCosts string

	Rows []PaymentRow

	Charset       string
	CharsetHTTP   string
	HashVersion   string
	KeyGeneration string

	Hash string
}

// A FormField is one ordered field of the wire representation.
type FormField struct {
	Name  string
	Value string
}

// HashFields returns the values covered by the keyed hash, in the canonical
// order the gateway verifies: fixed header fields first, then the optional
// fields that are present, then each row's fields in row order. Reordering
// anything here breaks interoperability silently.
func (r *PaymentRequest) HashFields() []string {
	values := []string{
		r.Action,
		r.Version,
		r.SellerID,
		r.ID,
		r.OrderID,
		r.Reference,
		r.DueDate,
		r.Amount,
		r.Currency,
		r.OKReturn,
		r.ErrorReturn,
		r.CancelReturn,
		r.DelayReturn,
		boolFlag(r.Escrow),
		boolFlag(r.EscrowChangeAllowed),
	}
	if r.SellerIBAN != "" {
		values = append(values, r.SellerIBAN)
	}
	if r.InvoiceFromSeller != "" {
		values = append(values, r.InvoiceFromSeller)
	}
	if r.PaymentMethod != "" {
		values = append(values, r.PaymentMethod)
	}
	if r.BuyerIdentificationCode != "" {
		values = append(values, r.BuyerIdentificationCode)
	}
	values = append(values,
		r.Buyer.Name,
		r.Buyer.Street,
		r.Buyer.PostalCode,
		r.Buyer.City,
		r.Delivery.Name,
		r.Delivery.Street,
		r.Delivery.PostalCode,
		r.Delivery.City,
		r.SellerCosts,
	)
	for _, row := range r.Rows {
		values = append(values, row.hashFields()...)
	}
	return values
}

func (row *PaymentRow) hashFields() []string {
	price := row.PriceGross
	if price == "" {
		price = row.PriceNet
	}
	return []string{
		row.Name,
		row.Description,
		row.Quantity,
		row.DeliveryDate,
		price,
		row.VATPercent,
		row.DiscountPercent,
		row.Type,
	}
}

// FormFields returns the full wire field set in order, row fields suffixed
// with their 1-based index (pmt_row_name1, pmt_row_name2, ...). The row count
// field always reflects len(Rows).
func (r *PaymentRequest) FormFields() []FormField {
	fields := []FormField{
		{"pmt_action", r.Action},
		{"pmt_version", r.Version},
		{"pmt_sellerid", r.SellerID},
		{"pmt_id", r.ID},
		{"pmt_orderid", r.OrderID},
		{"pmt_reference", r.Reference},
		{"pmt_duedate", r.DueDate},
		{"pmt_amount", r.Amount},
		{"pmt_currency", r.Currency},
		{"pmt_okreturn", r.OKReturn},
		{"pmt_errorreturn", r.ErrorReturn},
		{"pmt_cancelreturn", r.CancelReturn},
		{"pmt_delayedpayreturn", r.DelayReturn},
		{"pmt_escrow", boolFlag(r.Escrow)},
		{"pmt_escrowchangeallowed", boolFlag(r.EscrowChangeAllowed)},
	}
	if r.SellerIBAN != "" {
		fields = append(fields, FormField{"pmt_selleriban", r.SellerIBAN})
	}
	if r.InvoiceFromSeller != "" {
		fields = append(fields, FormField{"pmt_invoicefromseller", r.InvoiceFromSeller})
	}
	if r.PaymentMethod != "" {
		fields = append(fields, FormField{"pmt_paymentmethod", r.PaymentMethod})
	}
	if r.BuyerIdentificationCode != "" {
		fields = append(fields, FormField{"pmt_buyeridentificationcode", r.BuyerIdentificationCode})
	}
	fields = append(fields,
		FormField{"pmt_buyername", r.Buyer.Name},
		FormField{"pmt_buyeraddress", r.Buyer.Street},
		FormField{"pmt_buyerpostalcode", r.Buyer.PostalCode},
		FormField{"pmt_buyercity", r.Buyer.City},
		FormField{"pmt_buyercountry", r.Buyer.Country},
		FormField{"pmt_buyeremail", r.BuyerEmail},
		FormField{"pmt_buyerphone", r.BuyerPhone},
		FormField{"pmt_deliveryname", r.Delivery.Name},
		FormField{"pmt_deliveryaddress", r.Delivery.Street},
		FormField{"pmt_deliverypostalcode", r.Delivery.PostalCode},
		FormField{"pmt_deliverycity", r.Delivery.City},
		FormField{"pmt_deliverycountry", r.Delivery.Country},
		FormField{"pmt_sellercosts", r.SellerCosts},
		FormField{"pmt_rows", strconv.Itoa(len(r.Rows))},
	)
	for i, row := range r.Rows {
		idx := strconv.Itoa(i + 1)
		fields = append(fields,
			FormField{"pmt_row_name" + idx, row.Name},
			FormField{"pmt_row_desc" + idx, row.Description},
			FormField{"pmt_row_quantity" + idx, row.Quantity},
		)
		if row.ArticleNumber != "" {
			fields = append(fields, FormField{"pmt_row_articlenr" + idx, row.ArticleNumber})
		}
		fields = append(fields, FormField{"pmt_row_deliverydate" + idx, row.DeliveryDate})
		if row.PriceGross != "" {
			fields = append(fields, FormField{"pmt_row_price_gross" + idx, row.PriceGross})
		} else {
			fields = append(fields, FormField{"pmt_row_price_net" + idx, row.PriceNet})
		}
		fields = append(fields,
			FormField{"pmt_row_vat" + idx, row.VATPercent},
			FormField{"pmt_row_discountpercentage" + idx, row.DiscountPercent},
			FormField{"pmt_row_type" + idx, row.Type},
		)
	}
	fields = append(fields,
		FormField{"pmt_charset", r.Charset},
		FormField{"pmt_charsethttp", r.CharsetHTTP},
		FormField{"pmt_hashversion", r.HashVersion},
		FormField{"pmt_keygeneration", r.KeyGeneration},
		FormField{"pmt_hash", r.Hash},
	)
	return fields
}

func boolFlag(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

// fieldLength is the (min, max) policy for one field, measured in code
// points. Overflow is truncated, under-length is an error.
type fieldLength struct {
	min int
	max int
}

var headerFieldLengths = map[string]fieldLength{
	"pmt_action":             {4, 50},
	"pmt_version":            {4, 4},
	"pmt_sellerid":           {1, 15},
	"pmt_id":                 {1, 20},
	"pmt_orderid":            {1, 50},
	"pmt_reference":          {3, 20},
	"pmt_duedate":            {10, 10},
	"pmt_amount":             {4, 17},
	"pmt_currency":           {3, 3},
	"pmt_okreturn":           {1, 200},
	"pmt_errorreturn":        {1, 200},
	"pmt_cancelreturn":       {1, 200},
	"pmt_delayedpayreturn":   {1, 200},
	"pmt_escrow":             {1, 1},
	"pmt_buyername":          {1, 40},
	"pmt_buyeraddress":       {1, 40},
	"pmt_buyerpostalcode":    {1, 5},
	"pmt_buyercity":          {1, 40},
	"pmt_buyercountry":       {1, 2},
	"pmt_deliveryname":       {1, 40},
	"pmt_deliveryaddress":    {1, 40},
	"pmt_deliverypostalcode": {1, 5},
	"pmt_deliverycity":       {1, 40},
	"pmt_deliverycountry":    {1, 2},
	"pmt_sellercosts":        {4, 17},
}

var rowFieldLengths = map[string]fieldLength{
	"pmt_row_name":               {1, 40},
	"pmt_row_desc":               {1, 1000},
	"pmt_row_quantity":           {1, 10},
	"pmt_row_articlenr":          {0, 10},
	"pmt_row_deliverydate":       {10, 10},
	"pmt_row_price_gross":        {4, 17},
	"pmt_row_price_net":          {4, 17},
	"pmt_row_vat":                {4, 5},
	"pmt_row_discountpercentage": {4, 5},
}
