package orders

import (
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func toHandle(order *models.Order) *types.OrderHandle {
	return &types.OrderHandle{
		ID:        order.ID,
		Slot:      order.Slot,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
	}
}

func toSnapshot(order *models.Order) *types.OrderSnapshot {
	snapshot := &types.OrderSnapshot{
		ID:              order.ID,
		Slot:            order.Slot,
		Status:          order.Status,
		DisplayName:     order.DisplayName,
		ClientID:        order.ClientID,
		Items:           toItems(order.Items),
		Discount:        order.Discount,
		Surcharge:       order.Surcharge,
		PaidAmount:      order.PaidAmount,
		ChangeAmount:    order.ChangeAmount,
		RemainingAmount: order.RemainingAmount,
		PaymentMethodID: order.PaymentMethodID,
		UpdatedAt:       order.UpdatedAt,
	}
	return snapshot
}

func toItems(rows []models.OrderItem) []types.OrderItem {
	items := make([]types.OrderItem, 0, len(rows))
	for _, row := range rows {
		item := types.OrderItem{
			ProductID: row.ProductID,
			Name:      row.Name,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
		}
		for _, c := range row.Complements {
			item.Complements = append(item.Complements, types.ComplementSelection{
				ComplementID: c.ComplementID,
				CategoryID:   c.CategoryID,
				Name:         c.Name,
				UnitPrice:    c.UnitPrice,
				Quantity:     c.Quantity,
			})
		}
		items = append(items, item)
	}
	return items
}

// toItemModels keeps the request order in Position.
func toItemModels(items []types.OrderItem) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for idx, item := range items {
		row := models.OrderItem{
			Position:  idx,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		for _, c := range item.Complements {
			row.Complements = append(row.Complements, models.OrderItemComplement{
				ComplementID: c.ComplementID,
				CategoryID:   c.CategoryID,
				Name:         c.Name,
				UnitPrice:    c.UnitPrice,
				Quantity:     c.Quantity,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func toPaymentRows(rows []models.Payment) []types.PaymentRow {
	out := make([]types.PaymentRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.PaymentRow{
			ID:        row.ID,
			OrderID:   row.OrderID,
			MethodID:  row.PaymentMethodID,
			Amount:    row.Amount,
			ClientRef: row.ClientRef,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
