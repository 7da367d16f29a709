package catalog_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/catalog"
	"github.com/goliatone/go-product-cache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var fixedNow = time.Unix(1704164645, 0).UTC()

func setupCatalog(t *testing.T) (*bun.DB, *catalog.Repository, []*catalog.Product) {
	t.Helper()
	db := testsupport.NewDB(t)
	repo := catalog.NewRepository(db, nil).WithClock(func() time.Time { return fixedNow })
	products := testsupport.SeedCatalog(t, repo)
	require.Len(t, products, 3)
	return db, repo, products
}

func variantBySKU(t *testing.T, db *bun.DB, sku string) *catalog.ProductVariant {
	t.Helper()
	v := new(catalog.ProductVariant)
	require.NoError(t, db.NewSelect().Model(v).Where("pv.sku = ?", sku).Scan(context.Background()))
	return v
}

func TestFindProductDetailRaw_MatchesGoldenView(t *testing.T) {
	_, repo, products := setupCatalog(t)

	rows, err := repo.FindProductDetailRaw(context.Background(), products[0].ID)
	require.NoError(t, err)
	assert.Len(t, rows, 4, "two variants with two options each")

	view, ok := catalog.BuildProductDetailView(rows)
	require.True(t, ok)
	testsupport.CompareJSONWithGolden(t, testsupport.GoldenPath("classic_tee_view.json"), view)
}

func TestFindProductDetailRaw_UnknownProduct(t *testing.T) {
	_, repo, _ := setupCatalog(t)

	rows, err := repo.FindProductDetailRaw(context.Background(), 9999)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindProductDetailRaw_ProductWithoutVariants(t *testing.T) {
	_, repo, products := setupCatalog(t)

	rows, err := repo.FindProductDetailRaw(context.Background(), products[1].ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].VariantID.Valid)

	view, ok := catalog.BuildProductDetailView(rows)
	require.True(t, ok)
	assert.Equal(t, "Canvas Tote", view.Name)
	assert.Empty(t, view.Variants)
	assert.Nil(t, view.Thumbnail)
}

func TestFindProductDetailRaw_VariantWithoutOptions(t *testing.T) {
	_, repo, products := setupCatalog(t)

	rows, err := repo.FindProductDetailRaw(context.Background(), products[2].ID)
	require.NoError(t, err)

	view, ok := catalog.BuildProductDetailView(rows)
	require.True(t, ok)
	require.Len(t, view.Variants, 1)
	assert.Equal(t, "LAMP-STD", view.Variants[0].SKU)
	assert.Equal(t, int64(2), view.Variants[0].Stock)
	assert.Empty(t, view.Variants[0].Options)
}

func TestFindProductDetailRaw_SkipsDeletedRows(t *testing.T) {
	db, repo, products := setupCatalog(t)
	ctx := context.Background()

	_, err := db.NewUpdate().Table("product_variant").
		Set("is_deleted = ?", true).
		Where("sku = ?", "TEE-BLUE-L").
		Exec(ctx)
	require.NoError(t, err)

	rows, err := repo.FindProductDetailRaw(ctx, products[0].ID)
	require.NoError(t, err)
	view, _ := catalog.BuildProductDetailView(rows)
	require.Len(t, view.Variants, 1)
	assert.Equal(t, "TEE-RED-M", view.Variants[0].SKU)

	_, err = db.NewUpdate().Table("product").
		Set("is_deleted = ?", true).
		Where("id = ?", products[0].ID).
		Exec(ctx)
	require.NoError(t, err)

	rows, err = repo.FindProductDetailRaw(ctx, products[0].ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecrementStock(t *testing.T) {
	db, repo, products := setupCatalog(t)
	ctx := context.Background()
	red := variantBySKU(t, db, "TEE-RED-M")

	require.NoError(t, repo.DecrementStock(ctx, db, red.ID, products[0].ID, 3))
	assert.Equal(t, int64(7), variantBySKU(t, db, "TEE-RED-M").Stock)

	err := repo.DecrementStock(ctx, db, red.ID, products[0].ID, 8)
	require.Error(t, err)
	assert.True(t, catalog.IsInsufficientStock(err))
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))
	assert.Equal(t, int64(7), variantBySKU(t, db, "TEE-RED-M").Stock, "failed decrement must not touch stock")

	require.NoError(t, repo.DecrementStock(ctx, db, red.ID, products[0].ID, 7))
	assert.Equal(t, int64(0), variantBySKU(t, db, "TEE-RED-M").Stock)
}

func TestDecrementStock_UnknownVariant(t *testing.T) {
	db, repo, products := setupCatalog(t)
	ctx := context.Background()
	red := variantBySKU(t, db, "TEE-RED-M")

	err := repo.DecrementStock(ctx, db, 9999, products[0].ID, 1)
	assert.True(t, goerrors.IsNotFound(err))

	err = repo.DecrementStock(ctx, db, red.ID, products[2].ID, 1)
	assert.True(t, goerrors.IsNotFound(err), "variant of another product")

	err = repo.DecrementStock(ctx, db, red.ID, products[0].ID, 0)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}

func TestDecrementStock_RollsBackWithTransaction(t *testing.T) {
	db, repo, products := setupCatalog(t)
	ctx := context.Background()
	red := variantBySKU(t, db, "TEE-RED-M")

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		require.NoError(t, repo.DecrementStock(ctx, tx, red.ID, products[0].ID, 4))
		return repo.DecrementStock(ctx, tx, red.ID, products[0].ID, 50)
	})
	require.Error(t, err)
	assert.Equal(t, int64(10), variantBySKU(t, db, "TEE-RED-M").Stock)
}

func TestGetVariant(t *testing.T) {
	db, repo, products := setupCatalog(t)
	red := variantBySKU(t, db, "TEE-RED-M")

	got, err := repo.GetVariant(context.Background(), db, red.ID, products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "TEE-RED-M", got.SKU)
	assert.Equal(t, 19.99, got.Price)
}

func TestCreateProduct_ReusesOptionValues(t *testing.T) {
	db, repo, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := repo.CreateProduct(ctx, catalog.CreateProductInput{
		Name:        "Classic Hoodie",
		Description: "Fleece hoodie",
		CategoryID:  3,
		ShopID:      1,
		Variants: []catalog.VariantInput{{
			SKU:   "HOOD-RED-M",
			Price: 49,
			Stock: 4,
			Options: []catalog.OptionInput{
				{Name: " Color ", Value: "Red"},
				{Name: "Size", Value: "M"},
				{Name: "Size", Value: "M"},
			},
		}},
	})
	require.NoError(t, err)

	options, err := db.NewSelect().Model((*catalog.Option)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, options, "Color and Size are reused")

	values, err := db.NewSelect().Model((*catalog.OptionValue)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, values, "Red, M, Blue, L")
}

func TestCreateProduct_Validation(t *testing.T) {
	_, repo, _ := setupCatalog(t)

	_, err := repo.CreateProduct(context.Background(), catalog.CreateProductInput{
		Name:       "",
		CategoryID: 1,
		ShopID:     1,
		Variants:   []catalog.VariantInput{{SKU: "", Price: -1}},
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))
}

func TestCreateProduct_WholeNumberRatingsAndPrices(t *testing.T) {
	_, repo, _ := setupCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		sku    string
		rating float64
	}{
		{name: "Wool Scarf", sku: "SCARF-GREY", rating: 0},
		{name: "Linen Apron", sku: "APRON-SAND", rating: 4},
	}

	for _, tc := range tests {
		rating := tc.rating
		product, err := repo.CreateProduct(ctx, catalog.CreateProductInput{
			Name:        tc.name,
			Description: "Merino scarf",
			CategoryID:  5,
			ShopID:      2,
			RatingAvg:   rating,
			Variants: []catalog.VariantInput{{
				SKU:   tc.sku,
				Price: 20,
				Stock: 3,
			}},
		})
		require.NoError(t, err, tc.name)
		assert.Equal(t, rating, product.RatingAvg)

		rows, err := repo.FindProductDetailRaw(ctx, product.ID)
		require.NoError(t, err)
		view, ok := catalog.BuildProductDetailView(rows)
		require.True(t, ok)
		assert.Equal(t, rating, view.Rating)
		require.Len(t, view.Variants, 1)
		assert.Equal(t, 20.0, view.Variants[0].Price)
	}
}

func TestFindProductDetailRaw_IntegerLiteralRating(t *testing.T) {
	db, repo, _ := setupCatalog(t)
	ctx := context.Background()

	res, err := db.ExecContext(ctx,
		"INSERT INTO product (name, description, slug, category_id, shop_id, rating_avg) VALUES (?, ?, ?, ?, ?, 4)",
		"Tin Mug", "Enamel mug", "tin-mug", 2, 1)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	rows, err := repo.FindProductDetailRaw(ctx, id)
	require.NoError(t, err)
	view, ok := catalog.BuildProductDetailView(rows)
	require.True(t, ok)
	assert.Equal(t, 4.0, view.Rating)
}
