package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository reads and mutates the product catalog.
type Repository struct {
	db     *bun.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRepository builds a Repository on db.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for slugs and timestamps.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	if now != nil {
		r.now = now
	}
	return r
}

// DB exposes the underlying connection so callers can open transactions.
func (r *Repository) DB() *bun.DB {
	return r.db
}

// FindProductDetailRaw returns the join rows of a live product with its live
// variants and option values, ordered by variant id. An unknown or deleted
// product yields no rows and no error.
func (r *Repository) FindProductDetailRaw(ctx context.Context, productID int64) ([]ProductDetailRow, error) {
	var rows []ProductDetailRow

	err := r.db.NewSelect().
		TableExpr("product AS p").
		ColumnExpr("p.name, p.description, CAST(p.rating_avg AS DOUBLE PRECISION) AS rating_avg").
		ColumnExpr("p.category_id, p.shop_id, p.slug, p.thumbnail").
		ColumnExpr("pv.id AS variant_id, pv.sku, CAST(pv.price AS DOUBLE PRECISION) AS price, pv.stock").
		ColumnExpr("o.name AS option_name, ov.value AS option_value").
		Join("LEFT JOIN product_variant AS pv ON pv.product_id = p.id AND pv.is_deleted = ?", false).
		Join("LEFT JOIN product_variant_option_value AS pvov ON pvov.product_variant_id = pv.id").
		Join("LEFT JOIN option_value AS ov ON ov.id = pvov.option_value_id AND ov.is_deleted = ?", false).
		Join("LEFT JOIN ? AS o ON o.id = ov.option_id AND o.is_deleted = ?", bun.Ident("option"), false).
		Where("p.id = ?", productID).
		Where("p.is_deleted = ?", false).
		OrderExpr("pv.id ASC, o.id ASC, ov.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "product detail query failed").
			WithMetadata(map[string]any{"product_id": productID})
	}

	return rows, nil
}

// GetVariant loads a live variant of productID.
func (r *Repository) GetVariant(ctx context.Context, db bun.IDB, variantID, productID int64) (*ProductVariant, error) {
	variant := new(ProductVariant)
	err := db.NewSelect().
		Model(variant).
		Where("pv.id = ?", variantID).
		Where("pv.product_id = ?", productID).
		Where("pv.is_deleted = ?", false).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, VariantNotFound(variantID, productID)
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "product variant query failed").
			WithMetadata(map[string]any{"product_variant_id": variantID})
	}
	return variant, nil
}

// DecrementStock subtracts qty from the variant stock. The update only
// matches while enough stock is left, so concurrent orders cannot drive it
// below zero; a miss is reported as insufficient stock.
func (r *Repository) DecrementStock(ctx context.Context, db bun.IDB, variantID, productID, qty int64) error {
	if qty <= 0 {
		return goerrors.New("quantity must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"product_variant_id": variantID, "quantity": qty})
	}

	res, err := db.NewUpdate().
		Table("product_variant").
		Set("stock = stock - ?", qty).
		Set("updated_at = ?", r.now()).
		Where("id = ?", variantID).
		Where("product_id = ?", productID).
		Where("is_deleted = ?", false).
		Where("stock >= ?", qty).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "stock update failed").
			WithMetadata(map[string]any{"product_variant_id": variantID})
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "stock update failed").
			WithMetadata(map[string]any{"product_variant_id": variantID})
	}
	if affected == 0 {
		variant, verr := r.GetVariant(ctx, db, variantID, productID)
		if verr != nil {
			return verr
		}
		return InsufficientStock(variantID, qty, variant.Stock)
	}

	r.logger.Debug("stock decremented",
		zap.Int64("product_variant_id", variantID),
		zap.Int64("product_id", productID),
		zap.Int64("quantity", qty),
	)
	return nil
}

// OptionInput is one option of a variant, e.g. Color=Blue.
type OptionInput struct {
	Name  string `json:"option_name"`
	Value string `json:"option_value"`
}

func (o OptionInput) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&o.Value, validation.Required, validation.Length(1, 255)),
	)
}

type VariantInput struct {
	SKU     string        `json:"sku"`
	Price   float64       `json:"price"`
	Stock   int64         `json:"stock_quantity"`
	Options []OptionInput `json:"options"`
}

func (v VariantInput) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.SKU, validation.Required, validation.Length(1, 150)),
		validation.Field(&v.Price, validation.Min(0.0)),
		validation.Field(&v.Stock, validation.Min(int64(0))),
		validation.Field(&v.Options),
	)
}

// CreateProductInput describes a product with its variants.
type CreateProductInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CategoryID  int64          `json:"category_id"`
	ShopID      int64          `json:"shop_id"`
	RatingAvg   float64        `json:"rating_avg"`
	Thumbnail   string         `json:"thumbnail"`
	Variants    []VariantInput `json:"variants"`
}

func (in CreateProductInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.CategoryID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.ShopID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.RatingAvg, validation.Min(0.0), validation.Max(5.0)),
		validation.Field(&in.Variants),
	)
}

// CreateProduct stores a product, its variants and their option values in
// one transaction. Options and option values are reused when they already exist.
func (r *Repository) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	if verr := goerrors.ValidateWithOzzo(in.Validate, "invalid product"); verr != nil {
		return nil, verr
	}

	product := &Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Slug:        productSlug(in.Name, in.ShopID, r.now()),
		CategoryID:  in.CategoryID,
		ShopID:      in.ShopID,
		Thumbnail:   in.Thumbnail,
		RatingAvg:   in.RatingAvg,
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(product).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert product")
		}

		for _, vin := range in.Variants {
			variant := &ProductVariant{
				ProductID: product.ID,
				SKU:       strings.TrimSpace(vin.SKU),
				Price:     vin.Price,
				Stock:     vin.Stock,
			}
			if _, err := tx.NewInsert().Model(variant).Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert product variant").
					WithMetadata(map[string]any{"sku": variant.SKU})
			}

			linked := map[int64]struct{}{}
			for _, oin := range vin.Options {
				value, err := r.findOrCreateOptionValue(ctx, tx, oin)
				if err != nil {
					return err
				}
				if _, dup := linked[value.ID]; dup {
					continue
				}
				linked[value.ID] = struct{}{}

				link := &ProductVariantOptionValue{ProductVariantID: variant.ID, OptionValueID: value.ID}
				if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to link option value")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("slug", product.Slug),
		zap.Int("variants", len(in.Variants)),
	)
	return product, nil
}

func (r *Repository) findOrCreateOptionValue(ctx context.Context, tx bun.Tx, in OptionInput) (*OptionValue, error) {
	name := strings.TrimSpace(in.Name)
	val := strings.TrimSpace(in.Value)

	option := new(Option)
	err := tx.NewSelect().Model(option).Where("o.name = ?", name).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		option = &Option{Name: name}
		_, err = tx.NewInsert().Model(option).Exec(ctx)
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve option").
			WithMetadata(map[string]any{"option_name": name})
	}

	value := new(OptionValue)
	err = tx.NewSelect().Model(value).
		Where("ov.option_id = ?", option.ID).
		Where("ov.value = ?", val).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		value = &OptionValue{OptionID: option.ID, Value: val}
		_, err = tx.NewInsert().Model(value).Exec(ctx)
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve option value").
			WithMetadata(map[string]any{"option_name": name, "option_value": val})
	}
	return value, nil
}
