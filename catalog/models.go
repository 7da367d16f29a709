package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrderStatus values of Order.Status.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// Money and rating columns use double precision so sqlite stores them with
// REAL affinity and whole values scan back into float64.
type Product struct {
	bun.BaseModel `bun:"table:product,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,notnull" json:"description"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	CategoryID  int64     `bun:"category_id,notnull" json:"category_id"`
	ShopID      int64     `bun:"shop_id,notnull" json:"shop_id"`
	Thumbnail   string    `bun:"thumbnail,nullzero" json:"thumbnail,omitempty"`
	RatingAvg   float64   `bun:"rating_avg,type:double precision,notnull" json:"rating_avg"`
	IsDeleted   bool      `bun:"is_deleted,notnull,default:false" json:"-"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type ProductVariant struct {
	bun.BaseModel `bun:"table:product_variant,alias:pv"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	ProductID int64     `bun:"product_id,notnull" json:"product_id"`
	SKU       string    `bun:"sku,notnull,unique" json:"sku"`
	Price     float64   `bun:"price,type:double precision,notnull" json:"price"`
	Stock     int64     `bun:"stock,notnull,default:0" json:"stock"`
	IsDeleted bool      `bun:"is_deleted,notnull,default:false" json:"-"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Option struct {
	bun.BaseModel `bun:"table:option,alias:o"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	IsDeleted bool      `bun:"is_deleted,notnull,default:false" json:"-"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type OptionValue struct {
	bun.BaseModel `bun:"table:option_value,alias:ov"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	OptionID  int64     `bun:"option_id,notnull" json:"option_id"`
	Value     string    `bun:"value,notnull" json:"value"`
	IsDeleted bool      `bun:"is_deleted,notnull,default:false" json:"-"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ProductVariantOptionValue links a variant to one of its option values.
type ProductVariantOptionValue struct {
	bun.BaseModel `bun:"table:product_variant_option_value,alias:pvov"`

	ProductVariantID int64 `bun:"product_variant_id,pk"`
	OptionValueID    int64 `bun:"option_value_id,pk"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`

	ID              uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	UserID          int64          `bun:"user_id,notnull" json:"user_id"`
	Fullname        string         `bun:"fullname,notnull" json:"fullname"`
	PhoneNumber     string         `bun:"phone_number,notnull" json:"phone_number"`
	Email           string         `bun:"email,notnull" json:"email"`
	ShippingAddress string         `bun:"shipping_address,notnull" json:"shipping_address"`
	Note            string         `bun:"note,nullzero" json:"note,omitempty"`
	TotalAmount     float64        `bun:"total_amount,type:double precision,notnull" json:"total_amount"`
	Status          string         `bun:"status,notnull,default:'PENDING'" json:"status"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Details         []*OrderDetail `bun:"rel:has-many,join:id=order_id" json:"details,omitempty"`
}

type OrderDetail struct {
	bun.BaseModel `bun:"table:order_detail,alias:od"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID          uuid.UUID `bun:"order_id,type:uuid,notnull" json:"order_id"`
	ProductID        int64     `bun:"product_id,notnull" json:"product_id"`
	ProductVariantID int64     `bun:"product_variant_id,notnull" json:"product_variant_id"`
	Quantity         int64     `bun:"quantity,notnull" json:"quantity"`
	Price            float64   `bun:"price,type:double precision,notnull" json:"price"`
	SubTotal         float64   `bun:"sub_total,type:double precision,notnull" json:"sub_total"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Models lists every table of the catalog in creation order.
func Models() []any {
	return []any{
		(*Product)(nil),
		(*ProductVariant)(nil),
		(*Option)(nil),
		(*OptionValue)(nil),
		(*ProductVariantOptionValue)(nil),
		(*Order)(nil),
		(*OrderDetail)(nil),
	}
}
