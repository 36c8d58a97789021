package customer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Data is the raw customer payload as submitted by the kiosk pages.
type Data struct {
	CustomerName  string `json:"customerName"`
	BirthDate     string `json:"birthDate"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Occupation    string `json:"occupation"`
	Income        string `json:"income"`
	LoanAmount    string `json:"loanAmount,omitempty"`
	LoanPurpose   string `json:"loanPurpose,omitempty"`
}

// ValidationError reports missing or malformed customer fields.
type ValidationError struct {
	Message       string
	MissingFields []string
	InvalidFields []string
	ValidValues   []string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.MissingFields) > 0:
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.MissingFields, ", "))
	case len(e.InvalidFields) > 0:
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.InvalidFields, ", "))
	}
	return e.Message
}

var birthDateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "20060102", "2006-01", "2006"}

func parseBirthDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type field struct {
	name  string
	value string
}

// Parse validates d for the given service type and builds a Profile.
func Parse(service ServiceType, d Data) (Profile, error) {
	required := []field{
		{"customerName", d.CustomerName},
		{"birthDate", d.BirthDate},
		{"occupation", d.Occupation},
		{"income", d.Income},
	}
	if service == Loan {
		required = append(required,
			field{"loanAmount", d.LoanAmount},
			field{"loanPurpose", d.LoanPurpose},
		)
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Profile{}, &ValidationError{
			Message:       "missing required customer information",
			MissingFields: missing,
		}
	}

	birth, ok := parseBirthDate(d.BirthDate)
	if !ok {
		return Profile{}, &ValidationError{
			Message:       "invalid birth date",
			InvalidFields: []string{"birthDate"},
		}
	}

	p := Profile{
		Name:          strings.TrimSpace(d.CustomerName),
		BirthDate:     birth,
		AccountNumber: strings.TrimSpace(d.AccountNumber),
		Occupation:    ParseOccupation(d.Occupation),
		Income:        ParseIncomeBand(d.Income),
	}

	if service == Loan {
		band, ok := ParseAmountBand(d.LoanAmount)
		if !ok {
			valid := make([]string, len(AmountBands))
			for i, b := range AmountBands {
				valid[i] = string(b)
			}
			return Profile{}, &ValidationError{
				Message:       "invalid loan amount range",
				InvalidFields: []string{"loanAmount"},
				ValidValues:   valid,
			}
		}
		p.Amount = band
		p.Purpose = ParseLoanPurpose(d.LoanPurpose)
	}
	return p, nil
}

// SurveyAnswer is one selected option of the kiosk questionnaire.
type SurveyAnswer struct {
	Question       int     `json:"question"`
	SelectedOption string  `json:"selectedOption"`
	Weight         float64 `json:"weight"`
}

// Survey holds answers ordered by question index. It is descriptive only.
type Survey []SurveyAnswer

// ParseSurvey decodes the question-index keyed object the pages submit,
// e.g. {"0": {"value": "Fixed rate", "weight": 0.2}}.
func ParseSurvey(raw json.RawMessage) (Survey, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || !strings.HasPrefix(trimmed, "{") {
		return nil, &ValidationError{
			Message:       "survey answers are required",
			MissingFields: []string{"surveyAnswers"},
		}
	}

	var entries map[string]struct {
		Value          string   `json:"value"`
		SelectedOption string   `json:"selectedOption"`
		Weight         *float64 `json:"weight"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &ValidationError{
			Message:       "invalid survey answers",
			InvalidFields: []string{"surveyAnswers"},
		}
	}

	survey := make(Survey, 0, len(entries))
	var invalid []string
	for key, e := range entries {
		idx, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(key), "q"))
		if err != nil || idx < 0 {
			invalid = append(invalid, "surveyAnswers."+key)
			continue
		}
		option := e.SelectedOption
		if option == "" {
			option = e.Value
		}
		var w float64
		if e.Weight != nil {
			w = *e.Weight
		}
		if w < 0 || w > 1 {
			invalid = append(invalid, "surveyAnswers."+key+".weight")
			continue
		}
		survey = append(survey, SurveyAnswer{Question: idx, SelectedOption: option, Weight: w})
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &ValidationError{
			Message:       "invalid survey answers",
			InvalidFields: invalid,
		}
	}

	sort.Slice(survey, func(i, j int) bool { return survey[i].Question < survey[j].Question })
	return survey, nil
}
