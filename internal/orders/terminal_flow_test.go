package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adoniasgoesw/filazero/internal/catalog"
	"github.com/adoniasgoesw/filazero/internal/lifecycle"
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func TestZeroedTenderStillFinalizes(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	soda := models.Product{Name: "Soda", UnitPrice: dec("6.00"), IsActive: true}
	require.NoError(t, fx.conn.Create(&soda).Error)

	controller, err := lifecycle.NewController(lifecycle.Params{
		Orders:  fx.svc,
		Catalog: catalog.NewRepository(fx.conn),
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	slot, err := types.ParseSlot("table-09")
	require.NoError(t, err)
	session, res := controller.Open(ctx, slot)
	require.True(t, res.OK, "open: %+v", res)

	require.True(t, session.AddProduct(ctx, soda.ID, nil, 1).OK)
	cash, res := session.AddAllocation(ctx, fx.cash)
	require.True(t, res.OK, "allocate: %+v", res)
	require.True(t, session.UpdateAllocation(ctx, cash.LocalID, dec("10.00")).OK)
	require.True(t, session.CommitPayments(ctx).OK)

	// The cash was entered by mistake; it is cleared and the order paid by pix instead.
	require.True(t, session.UpdateAllocation(ctx, cash.LocalID, decimal.Zero).OK)
	pix, res := session.AddAllocation(ctx, fx.pix)
	require.True(t, res.OK, "allocate: %+v", res)
	require.True(t, session.UpdateAllocation(ctx, pix.LocalID, dec("6.00")).OK)

	res = session.Finalize(ctx, lifecycle.FinalizeOptions{})
	require.True(t, res.OK, "finalize: %+v", res)

	var stored models.Order
	require.NoError(t, fx.conn.Where("id = ?", session.OrderID()).First(&stored).Error)
	assert.Equal(t, enums.OrderStatusFinalized, stored.Status)

	rows, err := fx.svc.ListPayments(ctx, session.OrderID())
	require.NoError(t, err)
	paid := decimal.Zero
	for _, row := range rows {
		if row.MethodID == fx.cash {
			assert.True(t, row.Amount.IsZero(), "cash row must be cleared, got %s", row.Amount)
		}
		paid = paid.Add(row.Amount)
	}
	assert.True(t, paid.Equal(dec("6.00")), "paid %s", paid)
}
