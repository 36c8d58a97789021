package catalog

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

type Category string

const (
	CategoryFixed    Category = "fixed"
	CategoryFlexible Category = "flexible"
	CategoryForeign  Category = "foreign"
	CategorySpecial  Category = "special"
	CategorySavings  Category = "savings"

	CategoryMortgage  Category = "mortgage"
	CategoryCredit    Category = "credit"
	CategoryBusiness  Category = "business"
	CategoryJeonse    Category = "jeonse"
	CategoryOverdraft Category = "overdraft"
)

var serviceCategories = map[customer.ServiceType][]Category{
	customer.Deposit: {CategoryFixed, CategoryFlexible, CategoryForeign, CategorySpecial, CategorySavings},
	customer.Loan:    {CategoryMortgage, CategoryCredit, CategoryBusiness, CategoryJeonse, CategoryOverdraft},
}

// BelongsTo reports whether c is a valid category for the service type.
func (c Category) BelongsTo(service customer.ServiceType) bool {
	for _, v := range serviceCategories[service] {
		if v == c {
			return true
		}
	}
	return false
}

// Product is a read-only catalog entry.
type Product struct {
	ID        int      `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Rate      float64  `json:"rate" yaml:"rate"`
	Term      string   `json:"term" yaml:"term"`
	Features  []string `json:"features" yaml:"features"`
	BaseScore int      `json:"baseScore" yaml:"base_score"`
	Category  Category `json:"category" yaml:"category"`
	MinAmount int64    `json:"minAmount,omitempty" yaml:"min_amount"`
	MaxAmount int64    `json:"maxAmount,omitempty" yaml:"max_amount"`
}

// RateLabel renders the annual rate the way the pages show it.
func (p Product) RateLabel() string {
	return fmt.Sprintf("%.1f%% p.a.", p.Rate)
}

func (p Product) clone() Product {
	c := p
	c.Features = append([]string(nil), p.Features...)
	return c
}

// Catalog holds one product list per service type. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	products map[customer.ServiceType][]Product
}

// New validates the product lists and returns a Catalog owning copies of them.
func New(products map[customer.ServiceType][]Product) (*Catalog, error) {
	c := &Catalog{products: make(map[customer.ServiceType][]Product, len(products))}
	for service, list := range products {
		if _, ok := serviceCategories[service]; !ok {
			return nil, fmt.Errorf("catalog: unknown service type %q", service)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("catalog: no %s products", service)
		}
		seen := make(map[int]bool, len(list))
		out := make([]Product, 0, len(list))
		for _, p := range list {
			if seen[p.ID] {
				return nil, fmt.Errorf("catalog: duplicate %s product id %d", service, p.ID)
			}
			seen[p.ID] = true
			if p.Name == "" {
				return nil, fmt.Errorf("catalog: %s product %d has no name", service, p.ID)
			}
			if p.BaseScore < 0 || p.BaseScore > 100 {
				return nil, fmt.Errorf("catalog: %s product %d base score %d out of range", service, p.ID, p.BaseScore)
			}
			if !p.Category.BelongsTo(service) {
				return nil, fmt.Errorf("catalog: %s product %d has category %q", service, p.ID, p.Category)
			}
			out = append(out, p.clone())
		}
		c.products[service] = out
	}
	return c, nil
}

// Check fails unless both services have products to recommend.
func (c *Catalog) Check(context.Context) error {
	for _, service := range []customer.ServiceType{customer.Deposit, customer.Loan} {
		if len(c.products[service]) == 0 {
			return fmt.Errorf("catalog: no %s products loaded", service)
		}
	}
	return nil
}

// Products returns a copy of the catalog for service in catalog order.
func (c *Catalog) Products(service customer.ServiceType) []Product {
	list := c.products[service]
	out := make([]Product, len(list))
	for i, p := range list {
		out[i] = p.clone()
	}
	return out
}

func (c *Catalog) Find(service customer.ServiceType, id int) (Product, bool) {
	for _, p := range c.products[service] {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Product{}, false
}

func (c *Catalog) FindByName(service customer.ServiceType, name string) (Product, bool) {
	for _, p := range c.products[service] {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Product{}, false
}
