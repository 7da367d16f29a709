package catalog

import (
	"database/sql"
	"testing"
)

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func i64(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }
func f64(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }

func baseRow() ProductDetailRow {
	return ProductDetailRow{
		Name:        "Classic Tee",
		Description: "cotton",
		RatingAvg:   4.5,
		CategoryID:  3,
		ShopID:      1,
		Slug:        "classic-tee",
	}
}

func variantRow(id int64, sku string, option, value string) ProductDetailRow {
	row := baseRow()
	row.VariantID = i64(id)
	row.SKU = str(sku)
	row.Price = f64(10)
	row.Stock = i64(3)
	if option != "" {
		row.OptionName = str(option)
	}
	if value != "" {
		row.OptionValue = str(value)
	}
	return row
}

func TestBuildProductDetailView_Empty(t *testing.T) {
	view, ok := BuildProductDetailView(nil)
	if ok || view != nil {
		t.Fatalf("expected no view for empty rows, got %+v", view)
	}
}

func TestBuildProductDetailView_ProductWithoutVariants(t *testing.T) {
	view, ok := BuildProductDetailView([]ProductDetailRow{baseRow()})
	if !ok {
		t.Fatal("expected a view")
	}
	if view.Variants == nil || len(view.Variants) != 0 {
		t.Errorf("expected empty, non-nil variants, got %#v", view.Variants)
	}
	if view.Thumbnail != nil {
		t.Errorf("expected nil thumbnail, got %q", *view.Thumbnail)
	}
	if view.Rating != 4.5 || view.Slug != "classic-tee" {
		t.Errorf("unexpected header fields: %+v", view)
	}
}

func TestBuildProductDetailView_GroupsAndOrdersVariants(t *testing.T) {
	rows := []ProductDetailRow{
		variantRow(9, "B", "Color", "Blue"),
		variantRow(2, "A", "Color", "Red"),
		variantRow(9, "B", "Size", "L"),
		variantRow(2, "A", "Size", "M"),
	}

	view, ok := BuildProductDetailView(rows)
	if !ok {
		t.Fatal("expected a view")
	}
	if len(view.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(view.Variants))
	}
	if view.Variants[0].SKU != "A" || view.Variants[1].SKU != "B" {
		t.Errorf("expected variants ordered by id, got %s then %s", view.Variants[0].SKU, view.Variants[1].SKU)
	}
	if len(view.Variants[1].Options) != 2 {
		t.Fatalf("expected 2 options on B, got %d", len(view.Variants[1].Options))
	}
	if view.Variants[1].Options[0] != (OptionView{Name: "Color", Value: "Blue"}) {
		t.Errorf("unexpected first option %+v", view.Variants[1].Options[0])
	}
}

func TestBuildProductDetailView_SkipsNullVariantAndDuplicateOptions(t *testing.T) {
	rows := []ProductDetailRow{
		baseRow(),
		variantRow(1, "A", "Color", "Red"),
		variantRow(1, "A", "Color", "Red"),
		variantRow(1, "A", "Color", ""),
		variantRow(1, "A", "", "M"),
	}

	view, _ := BuildProductDetailView(rows)
	if len(view.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(view.Variants))
	}
	options := view.Variants[0].Options
	if len(options) != 1 {
		t.Fatalf("expected duplicates and incomplete options to be dropped, got %+v", options)
	}
}

func TestBuildProductDetailView_VariantWithoutOptions(t *testing.T) {
	view, _ := BuildProductDetailView([]ProductDetailRow{variantRow(4, "LAMP", "", "")})
	if len(view.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(view.Variants))
	}
	if view.Variants[0].Options == nil || len(view.Variants[0].Options) != 0 {
		t.Errorf("expected empty, non-nil options, got %#v", view.Variants[0].Options)
	}
}

func TestProductDetailView_CloneSharesNothing(t *testing.T) {
	row := variantRow(1, "A", "Color", "Red")
	row.Thumbnail = str("https://cdn.example.com/a.png")
	view, _ := BuildProductDetailView([]ProductDetailRow{row})

	clone := view.Clone()
	clone.Variants[0].Stock = 0
	clone.Variants[0].Options[0].Value = "Green"
	*clone.Thumbnail = "changed"
	clone.Variants = append(clone.Variants, VariantView{SKU: "B"})

	if view.Variants[0].Stock != 3 {
		t.Errorf("expected original stock 3, got %d", view.Variants[0].Stock)
	}
	if view.Variants[0].Options[0].Value != "Red" {
		t.Errorf("expected original option Red, got %s", view.Variants[0].Options[0].Value)
	}
	if *view.Thumbnail != "https://cdn.example.com/a.png" {
		t.Errorf("expected original thumbnail, got %s", *view.Thumbnail)
	}
	if len(view.Variants) != 1 {
		t.Errorf("expected 1 variant on the original, got %d", len(view.Variants))
	}
}
