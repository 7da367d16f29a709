package catalog

import (
	"database/sql"
	"sort"
)

// ProductDetailRow is one row of the product detail join. Variant and option
// columns are NULL for products without variants or variants without options.
type ProductDetailRow struct {
	Name        string          `bun:"name"`
	Description string          `bun:"description"`
	RatingAvg   float64         `bun:"rating_avg"`
	CategoryID  int64           `bun:"category_id"`
	ShopID      int64           `bun:"shop_id"`
	Slug        string          `bun:"slug"`
	Thumbnail   sql.NullString  `bun:"thumbnail"`
	VariantID   sql.NullInt64   `bun:"variant_id"`
	SKU         sql.NullString  `bun:"sku"`
	Price       sql.NullFloat64 `bun:"price"`
	Stock       sql.NullInt64   `bun:"stock"`
	OptionName  sql.NullString  `bun:"option_name"`
	OptionValue sql.NullString  `bun:"option_value"`
}

type OptionView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type VariantView struct {
	SKU     string       `json:"sku"`
	Price   float64      `json:"price"`
	Stock   int64        `json:"stock"`
	Options []OptionView `json:"options"`
}

// ProductDetailView is the denormalized product detail served by the read path.
type ProductDetailView struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Rating      float64       `json:"rating"`
	CategoryID  int64         `json:"category_id"`
	ShopID      int64         `json:"shop_id"`
	Slug        string        `json:"slug"`
	Thumbnail   *string       `json:"thumbnail"`
	Variants    []VariantView `json:"variants"`
}

// BuildProductDetailView folds the join rows into a view. Variants are
// ordered by id, rows without a variant are skipped and duplicate options
// collapse. It returns false when rows is empty.
func BuildProductDetailView(rows []ProductDetailRow) (*ProductDetailView, bool) {
	if len(rows) == 0 {
		return nil, false
	}

	first := rows[0]
	view := &ProductDetailView{
		Name:        first.Name,
		Description: first.Description,
		Rating:      first.RatingAvg,
		CategoryID:  first.CategoryID,
		ShopID:      first.ShopID,
		Slug:        first.Slug,
		Variants:    []VariantView{},
	}
	if first.Thumbnail.Valid {
		thumbnail := first.Thumbnail.String
		view.Thumbnail = &thumbnail
	}

	type group struct {
		id      int64
		variant VariantView
		seen    map[OptionView]struct{}
	}
	groups := map[int64]*group{}
	var order []*group

	for _, row := range rows {
		if !row.VariantID.Valid {
			continue
		}

		g, ok := groups[row.VariantID.Int64]
		if !ok {
			g = &group{
				id: row.VariantID.Int64,
				variant: VariantView{
					SKU:     row.SKU.String,
					Price:   row.Price.Float64,
					Stock:   row.Stock.Int64,
					Options: []OptionView{},
				},
				seen: map[OptionView]struct{}{},
			}
			groups[g.id] = g
			order = append(order, g)
		}

		if !row.OptionName.Valid || !row.OptionValue.Valid {
			continue
		}
		if row.OptionName.String == "" || row.OptionValue.String == "" {
			continue
		}

		opt := OptionView{Name: row.OptionName.String, Value: row.OptionValue.String}
		if _, dup := g.seen[opt]; dup {
			continue
		}
		g.seen[opt] = struct{}{}
		g.variant.Options = append(g.variant.Options, opt)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].id < order[j].id })
	for _, g := range order {
		view.Variants = append(view.Variants, g.variant)
	}

	return view, true
}

// Clone returns a deep copy whose variants, options and thumbnail share no
// memory with v.
func (v ProductDetailView) Clone() ProductDetailView {
	out := v
	if v.Thumbnail != nil {
		thumbnail := *v.Thumbnail
		out.Thumbnail = &thumbnail
	}
	if v.Variants != nil {
		out.Variants = make([]VariantView, len(v.Variants))
		for i, variant := range v.Variants {
			if variant.Options != nil {
				variant.Options = append([]OptionView{}, variant.Options...)
			}
			out.Variants[i] = variant
		}
	}
	return out
}
