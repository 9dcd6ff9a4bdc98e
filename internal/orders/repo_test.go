package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestRepositoryReplaceOrderItemsKeepsPosition(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order, err := repo.CreateOrder(ctx, &models.Order{Slot: "table-01", Status: enums.OrderStatusOpen})
	require.NoError(t, err)

	first := []models.OrderItem{
		{Position: 0, ProductID: uuid.New(), Name: "Burger", Quantity: 1, UnitPrice: decimal.NewFromInt(20)},
	}
	require.NoError(t, repo.ReplaceOrderItems(ctx, order.ID, first))

	second := []models.OrderItem{
		{Position: 0, ProductID: uuid.New(), Name: "Soda", Quantity: 2, UnitPrice: decimal.NewFromInt(6)},
		{
			Position: 1, ProductID: uuid.New(), Name: "Pizza", Quantity: 1, UnitPrice: decimal.NewFromInt(40),
			Complements: []models.OrderItemComplement{
				{ComplementID: uuid.New(), Name: "Olives", UnitPrice: decimal.NewFromInt(3), Quantity: 1},
			},
		},
	}
	require.NoError(t, repo.ReplaceOrderItems(ctx, order.ID, second))

	loaded, err := repo.FindOpenOrderWithItems(ctx, "table-01")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "Soda", loaded.Items[0].Name)
	assert.Equal(t, "Pizza", loaded.Items[1].Name)
	require.Len(t, loaded.Items[1].Complements, 1)

	var complements int64
	require.NoError(t, conn.Model(&models.OrderItemComplement{}).Count(&complements).Error)
	assert.EqualValues(t, 1, complements)
}

func TestRepositoryOpenOrderIsUniquePerSlot(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first, err := repo.CreateOrder(ctx, &models.Order{Slot: "counter-02", Status: enums.OrderStatusOpen})
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, &models.Order{Slot: "counter-02", Status: enums.OrderStatusOpen})
	require.Error(t, err)

	require.NoError(t, repo.UpdateOrder(ctx, first.ID, map[string]any{"status": enums.OrderStatusFinalized}))
	_, err = repo.CreateOrder(ctx, &models.Order{Slot: "counter-02", Status: enums.OrderStatusOpen})
	require.NoError(t, err)
}

func TestRepositoryDeletePaymentsByMethod(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order, err := repo.CreateOrder(ctx, &models.Order{Slot: "tab-03", Status: enums.OrderStatusOpen})
	require.NoError(t, err)
	cash, pix := uuid.New(), uuid.New()
	for _, method := range []uuid.UUID{cash, cash, pix} {
		_, err := repo.CreatePayment(ctx, &models.Payment{
			OrderID: order.ID, PaymentMethodID: method, Amount: decimal.NewFromInt(5), ClientRef: uuid.New(),
		})
		require.NoError(t, err)
	}

	deleted, err := repo.DeletePaymentsByMethod(ctx, order.ID, cash)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	deleted, err = repo.DeletePaymentsByMethod(ctx, order.ID, cash)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	rows, err := repo.ListPayments(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pix, rows[0].PaymentMethodID)
}
