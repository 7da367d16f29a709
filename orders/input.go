package orders

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ItemInput is one line of an order.
type ItemInput struct {
	ProductID        int64   `json:"product_id"`
	ProductVariantID int64   `json:"product_variant_id"`
	Quantity         int64   `json:"quantity"`
	Price            float64 `json:"price"`
}

func (i ItemInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.ProductVariantID, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.Quantity, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.Price, validation.Min(0.0)),
	)
}

// PlaceOrderInput is the checkout payload.
type PlaceOrderInput struct {
	Fullname        string      `json:"fullname"`
	PhoneNumber     string      `json:"phone_number"`
	Email           string      `json:"email"`
	ShippingAddress string      `json:"shipping_address"`
	Note            string      `json:"note,omitempty"`
	Items           []ItemInput `json:"items"`
}

func (in PlaceOrderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Fullname, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.PhoneNumber, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.Email, validation.Required, validation.Length(1, 100), is.Email),
		validation.Field(&in.ShippingAddress, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Items, validation.Required, validation.Length(1, 0)),
	)
}

// StatusInput changes the status of an order.
type StatusInput struct {
	Status string `json:"status"`
}

func (in StatusInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Status, validation.Required, validation.In(statusValues()...)),
	)
}
