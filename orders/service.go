package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/catalog"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Invalidator drops cached product details once stock changes are committed.
type Invalidator interface {
	InvalidateMany(ctx context.Context, productIDs ...int64) (int64, error)
}

// PlacedOrder is a committed order. CacheInvalidated is false when dropping
// the cached product details failed after the commit; readers may then see
// the previous stock until the entries are invalidated again.
type PlacedOrder struct {
	Order            *catalog.Order `json:"order"`
	CacheInvalidated bool           `json:"-"`
}

// Service places orders and keeps the product cache in step with stock.
type Service struct {
	db          *bun.DB
	products    *catalog.Repository
	orders      repository.Repository[*catalog.Order]
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderRepository returns the generic repository for orders.
func NewOrderRepository(db *bun.DB) repository.Repository[*catalog.Order] {
	return repository.NewRepository[*catalog.Order](db, repository.ModelHandlers[*catalog.Order]{
		NewRecord: func() *catalog.Order {
			return &catalog.Order{}
		},
		GetID: func(o *catalog.Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *catalog.Order, id uuid.UUID) {
			o.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
}

// NewService builds an order service. invalidator may be nil when no cache
// sits in front of the catalog.
func NewService(db *bun.DB, products *catalog.Repository, invalidator Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          db,
		products:    products,
		orders:      NewOrderRepository(db),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// PlaceOrder checks every item against current stock, stores the order with
// its details and decrements stock in one transaction. Cached details of the
// affected products are invalidated after the commit.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (*PlacedOrder, error) {
	if verr := goerrors.ValidateWithOzzo(in.Validate, "invalid order"); verr != nil {
		return nil, verr
	}
	if userID <= 0 {
		return nil, goerrors.New("user id must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"user_id": userID})
	}

	now := s.now()
	order := &catalog.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Fullname:        in.Fullname,
		PhoneNumber:     in.PhoneNumber,
		Email:           in.Email,
		ShippingAddress: in.ShippingAddress,
		Note:            in.Note,
		Status:          catalog.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range in.Items {
		subTotal := item.Price * float64(item.Quantity)
		order.TotalAmount += subTotal
		order.Details = append(order.Details, &catalog.OrderDetail{
			OrderID:          order.ID,
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			Quantity:         item.Quantity,
			Price:            item.Price,
			SubTotal:         subTotal,
			CreatedAt:        now,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range in.Items {
			variant, err := s.products.GetVariant(ctx, tx, item.ProductVariantID, item.ProductID)
			if err != nil {
				return err
			}
			if variant.Stock < item.Quantity {
				return catalog.InsufficientStock(variant.ID, item.Quantity, variant.Stock)
			}
		}

		if _, err := s.orders.CreateTx(ctx, tx, order); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert order")
		}
		if _, err := tx.NewInsert().Model(&order.Details).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert order details")
		}

		for _, item := range in.Items {
			if err := s.products.DecrementStock(ctx, tx, item.ProductVariantID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("order rejected", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.Int64("user_id", userID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Details)),
	)

	return &PlacedOrder{Order: order, CacheInvalidated: s.invalidate(ctx, in.Items)}, nil
}

func (s *Service) invalidate(ctx context.Context, items []ItemInput) bool {
	if s.invalidator == nil {
		return true
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	// the order is committed, a cancelled caller must not keep stale details cached
	ctx = context.WithoutCancel(ctx)
	if _, err := s.invalidator.InvalidateMany(ctx, ids...); err != nil {
		s.logger.Error("product cache invalidation failed after commit",
			zap.Int64s("product_ids", ids),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetOrder loads an order with its details.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*catalog.Order, error) {
	order, err := s.orders.GetByID(ctx, id.String(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Details", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("od.id ASC")
		})
	})
	if err != nil {
		return nil, orderLookupError(err, id)
	}
	return order, nil
}

// UpdateStatus moves an order to another status and returns it reloaded.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, in StatusInput) (*catalog.Order, error) {
	if verr := goerrors.ValidateWithOzzo(in.Validate, "invalid order status"); verr != nil {
		return nil, verr
	}

	res, err := s.db.NewUpdate().
		Model((*catalog.Order)(nil)).
		Set("status = ?", in.Status).
		Set("updated_at = ?", s.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "order status update failed").
			WithMetadata(map[string]any{"order_id": id.String()})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, orderNotFound(id)
	}

	s.logger.Info("order status updated", zap.String("order_id", id.String()), zap.String("status", in.Status))
	return s.GetOrder(ctx, id)
}

func statusValues() []any {
	return []any{catalog.OrderStatusPending, catalog.OrderStatusConfirmed, catalog.OrderStatusCancelled}
}

func orderNotFound(id uuid.UUID) error {
	return goerrors.New("order not found", goerrors.CategoryNotFound).
		WithMetadata(map[string]any{"order_id": id.String()})
}

func orderLookupError(err error, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) || goerrors.IsNotFound(err) {
		return orderNotFound(id)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "order query failed").
		WithMetadata(map[string]any{"order_id": id.String()})
}
