package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

type adjustment struct {
	applies func(p customer.Profile, product catalog.Product) bool
	delta   int
}

func occupationIs(o customer.Occupation, cats ...catalog.Category) func(customer.Profile, catalog.Product) bool {
	return func(p customer.Profile, pr catalog.Product) bool {
		return p.Occupation == o && categoryIn(pr.Category, cats)
	}
}

func purposeIs(purpose customer.LoanPurpose, cat catalog.Category) func(customer.Profile, catalog.Product) bool {
	return func(p customer.Profile, pr catalog.Product) bool {
		return p.Purpose == purpose && pr.Category == cat
	}
}

func categoryIn(c catalog.Category, cats []catalog.Category) bool {
	for _, v := range cats {
		if v == c {
			return true
		}
	}
	return false
}

var depositAdjustments = []adjustment{
	{occupationIs(customer.OccupationRetiree, catalog.CategoryFixed), 15},
	{occupationIs(customer.OccupationBusiness, catalog.CategoryFlexible), 12},
	{occupationIs(customer.OccupationStudent, catalog.CategorySavings), 10},
	{func(p customer.Profile, pr catalog.Product) bool {
		return p.Income == customer.IncomeAbove10000 && pr.Rate > 4.0
	}, 8},
	{func(p customer.Profile, pr catalog.Product) bool {
		return p.Income == customer.IncomeBelow3000 && pr.Category == catalog.CategorySavings
	}, 10},
}

var loanAdjustments = []adjustment{
	{purposeIs(customer.PurposeHousePurchase, catalog.CategoryMortgage), 20},
	{purposeIs(customer.PurposeHouseLease, catalog.CategoryJeonse), 18},
	{purposeIs(customer.PurposeBusiness, catalog.CategoryBusiness), 15},
	{purposeIs(customer.PurposeLiving, catalog.CategoryCredit), 12},
	{occupationIs(customer.OccupationPublic, catalog.CategoryMortgage, catalog.CategoryJeonse), 12},
	{occupationIs(customer.OccupationBusiness, catalog.CategoryBusiness), 15},
	{occupationIs(customer.OccupationEmployee, catalog.CategoryCredit), 8},
	{func(p customer.Profile, pr catalog.Product) bool {
		return p.Income == customer.IncomeAbove10000 && pr.BaseScore > 85
	}, 8},
	{func(p customer.Profile, _ catalog.Product) bool {
		return p.Income == customer.IncomeBelow3000
	}, -10},
}

// Score returns the clamped rule-based score of one product for p.
func Score(service customer.ServiceType, p customer.Profile, product catalog.Product) int {
	table := depositAdjustments
	if service == customer.Loan {
		table = loanAdjustments
	}
	score := product.BaseScore
	for _, adj := range table {
		if adj.applies(p, product) {
			score += adj.delta
		}
	}
	return advisory.ClampScore(score)
}

// Recommend ranks products for p and returns at most advisory.TopN of them.
// Ties keep catalog order.
func Recommend(service customer.ServiceType, p customer.Profile, products []catalog.Product) advisory.RecommendationSet {
	items := make([]advisory.Recommendation, 0, len(products))
	for _, product := range products {
		items = append(items, advisory.Recommendation{
			Product: product,
			Score:   Score(service, p, product),
			Reason:  Reason(service, p, product.Category),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > advisory.TopN {
		items = items[:advisory.TopN]
	}
	return advisory.RecommendationSet{
		Items:    items,
		Summary:  summary(service, p, len(items)),
		IsBackup: true,
	}
}

// Reason renders the justification sentence for a product category.
func Reason(service customer.ServiceType, p customer.Profile, c catalog.Category) string {
	if service == customer.Loan {
		return fmt.Sprintf("%s %s, %s",
			lookup(loanOccupationPhrases, p.Occupation, "Based on your profile,"),
			lookup(purposePhrases, p.Purpose, "for your purpose"),
			lookup(loanCategoryPhrases, c, "this product fits your needs."))
	}
	return fmt.Sprintf("%s %s",
		lookup(depositOccupationPhrases, p.Occupation, "Based on your profile,"),
		lookup(depositCategoryPhrases, c, "this product fits your needs."))
}

func summary(service customer.ServiceType, p customer.Profile, n int) string {
	if n == 0 {
		return "No suitable products were found."
	}
	who := strings.ReplaceAll(string(p.Occupation), "_", " ")
	if service == customer.Loan {
		return fmt.Sprintf("Top %d loan products for a %s customer borrowing %s, ranked by rule-based suitability.",
			n, who, lookup(purposePhrases, p.Purpose, "for your purpose"))
	}
	return fmt.Sprintf("Top %d deposit products for a %s customer, ranked by rule-based suitability.", n, who)
}

func lookup[K comparable](table map[K]string, key K, fallback string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

var depositOccupationPhrases = map[customer.Occupation]string{
	customer.OccupationRetiree:    "For stable income after retirement,",
	customer.OccupationBusiness:   "For managing business funds,",
	customer.OccupationStudent:    "For building your first lump sum,",
	customer.OccupationEmployee:   "For regular saving from a steady salary,",
	customer.OccupationHousewife:  "For managing household finances,",
	customer.OccupationFreelancer: "With a variable income,",
}

var depositCategoryPhrases = map[catalog.Category]string{
	catalog.CategoryFixed:    "this product offers stable, predictable returns.",
	catalog.CategoryFlexible: "this product lets you withdraw freely at any time.",
	catalog.CategoryForeign:  "this product adds exchange-rate upside.",
	catalog.CategorySpecial:  "this product offers a limited high-rate benefit.",
	catalog.CategorySavings:  "this product builds a lump sum systematically.",
}

var loanOccupationPhrases = map[customer.Occupation]string{
	customer.OccupationPublic:       "As a public servant with stable income,",
	customer.OccupationEmployee:     "With a steady salary,",
	customer.OccupationProfessional: "As a professional,",
	customer.OccupationBusiness:     "As a business owner,",
	customer.OccupationFreelancer:   "With freelance income,",
	customer.OccupationStudent:      "As a student,",
}

var purposePhrases = map[customer.LoanPurpose]string{
	customer.PurposeHousePurchase: "for buying a home",
	customer.PurposeHouseLease:    "for a lease deposit",
	customer.PurposeBusiness:      "for business funding",
	customer.PurposeLiving:        "for living expenses",
	customer.PurposeInvestment:    "for investment",
}

var loanCategoryPhrases = map[catalog.Category]string{
	catalog.CategoryMortgage:  "the mortgage offers the lowest long-term rate.",
	catalog.CategoryCredit:    "the credit loan is quick and needs no collateral.",
	catalog.CategoryBusiness:  "the business loan carries a preferential rate.",
	catalog.CategoryJeonse:    "the jeonse loan covers the lease deposit at a low rate.",
	catalog.CategoryOverdraft: "the overdraft line lets you borrow only what you use.",
}
