package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domain "github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

//go:embed products.yaml
var defaultProducts []byte

type document struct {
	Deposit []domain.Product `yaml:"deposit"`
	Loan    []domain.Product `yaml:"loan"`
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*domain.Catalog, error) {
	data := defaultProducts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*domain.Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return domain.New(map[customer.ServiceType][]domain.Product{
		customer.Deposit: doc.Deposit,
		customer.Loan:    doc.Loan,
	})
}
