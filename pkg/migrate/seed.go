package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/db/models"
)

// SeedReport counts the rows a seed run inserted.
type SeedReport struct {
	Products       int
	Categories     int
	Complements    int
	PaymentMethods int
}

type seedComplement struct {
	name  string
	price string
}

type seedCategory struct {
	name     string
	required bool
	max      int
	items    []seedComplement
}

type seedProduct struct {
	name       string
	price      string
	categories []seedCategory
}

var demoProducts = []seedProduct{
	{
		name:  "X-Burger",
		price: "24.90",
		categories: []seedCategory{
			{name: "Ponto da carne", required: true, max: 1, items: []seedComplement{
				{name: "Mal passado", price: "0"},
				{name: "Ao ponto", price: "0"},
				{name: "Bem passado", price: "0"},
			}},
			{name: "Adicionais", max: 3, items: []seedComplement{
				{name: "Bacon", price: "4.50"},
				{name: "Cheddar", price: "3.00"},
				{name: "Ovo", price: "2.50"},
			}},
		},
	},
	{
		name:  "Batata frita",
		price: "14.00",
		categories: []seedCategory{
			{name: "Molhos", items: []seedComplement{
				{name: "Maionese da casa", price: "1.50"},
				{name: "Barbecue", price: "1.50"},
			}},
		},
	},
	{name: "Refrigerante lata", price: "6.00"},
	{name: "Água sem gás", price: "4.00"},
}

var demoPaymentMethods = []string{"Dinheiro", "Pix", "Cartão de crédito", "Cartão de débito"}

// SeedDemoCatalog fills an empty catalog with a small menu and the usual tenders. It does
// nothing once any product or payment method exists, so it is safe to run on every boot.
func SeedDemoCatalog(ctx context.Context, db *gorm.DB) (SeedReport, error) {
	var report SeedReport
	if db == nil {
		return report, fmt.Errorf("db is required")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products, methods int64
		if err := tx.Model(&models.Product{}).Count(&products).Error; err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if err := tx.Model(&models.PaymentMethod{}).Count(&methods).Error; err != nil {
			return fmt.Errorf("count payment methods: %w", err)
		}

		if products == 0 {
			for _, sp := range demoProducts {
				if err := seedOne(tx, sp, &report); err != nil {
					return err
				}
			}
		}
		if methods == 0 {
			for _, name := range demoPaymentMethods {
				method := models.PaymentMethod{Name: name, IsActive: true}
				if err := tx.Create(&method).Error; err != nil {
					return fmt.Errorf("seed payment method %q: %w", name, err)
				}
				report.PaymentMethods++
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	return report, nil
}

func seedOne(tx *gorm.DB, sp seedProduct, report *SeedReport) error {
	product := models.Product{Name: sp.name, UnitPrice: decimal.RequireFromString(sp.price), IsActive: true}
	if err := tx.Create(&product).Error; err != nil {
		return fmt.Errorf("seed product %q: %w", sp.name, err)
	}
	report.Products++

	for i, sc := range sp.categories {
		category := models.ComplementCategory{
			ProductID:     product.ID,
			Name:          sc.name,
			Required:      sc.required,
			MaxSelectable: sc.max,
			Position:      i + 1,
		}
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("seed category %q: %w", sc.name, err)
		}
		report.Categories++

		for j, item := range sc.items {
			complement := models.ComplementItem{
				CategoryID: category.ID,
				Name:       item.name,
				UnitPrice:  decimal.RequireFromString(item.price),
				IsActive:   true,
				Position:   j + 1,
			}
			if err := tx.Create(&complement).Error; err != nil {
				return fmt.Errorf("seed complement %q: %w", item.name, err)
			}
			report.Complements++
		}
	}
	return nil
}
