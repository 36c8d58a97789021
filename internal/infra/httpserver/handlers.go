package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appadvisory "github.com/bryanwahyu/bank-advisor/internal/application/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/domain/finance"
	"github.com/bryanwahyu/bank-advisor/internal/middleware"
)

// number accepts both JSON numbers and numeric strings, as the kiosk
// pages send form values unconverted.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = number(f)
	return nil
}

func serviceParam(req *http.Request) (customer.ServiceType, error) {
	raw := chi.URLParam(req, "service")
	service, ok := customer.ParseServiceType(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", appadvisory.ErrUnknownService, raw)
	}
	return service, nil
}

// requireService limits a route registered under /{service} to one service.
func requireService(req *http.Request, want customer.ServiceType) error {
	service, err := serviceParam(req)
	if err != nil {
		return err
	}
	if service != want {
		return notFound("The requested resource %s was not found on this server.", req.URL.Path)
	}
	return nil
}

func sanitizeCustomer(d *customer.Data) error {
	d.CustomerName = middleware.SanitizeString(d.CustomerName)
	d.AccountNumber = strings.TrimSpace(d.AccountNumber)
	if err := middleware.ValidateAccountNumber(d.AccountNumber); err != nil {
		return &customer.ValidationError{
			Message:       "invalid customer information",
			InvalidFields: []string{"accountNumber"},
		}
	}
	return nil
}

type outcomeResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	*appadvisory.Outcome
}

// POST /api/{service}/analyze
// Body: {"customerData": {...}, "surveyAnswers": {"0": {"value": "...", "weight": 0.2}}}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	service, err := serviceParam(req)
	if err != nil {
		return err
	}
	var body struct {
		CustomerData  customer.Data   `json:"customerData"`
		SurveyAnswers json.RawMessage `json:"surveyAnswers"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if err := sanitizeCustomer(&body.CustomerData); err != nil {
		return err
	}

	requestID := chimw.GetReqID(req.Context())
	out, err := r.advisory.Advise(req.Context(), appadvisory.AdviseCommand{
		ServiceType: string(service),
		Customer:    body.CustomerData,
		Survey:      body.SurveyAnswers,
		RequestID:   requestID,
	})
	if err != nil {
		return err
	}
	r.writeJSON(w, http.StatusOK, outcomeResponse{Success: true, RequestID: requestID, Outcome: out})
	return nil
}

// POST /api/{service}/recommend-products
// Body: {"customerData": {...}, "customerAnalysis": {...}}; the analysis is optional.
func (r *Router) handleRecommend(w http.ResponseWriter, req *http.Request) error {
	service, err := serviceParam(req)
	if err != nil {
		return err
	}
	var body struct {
		CustomerData     customer.Data            `json:"customerData"`
		CustomerAnalysis *advisory.AnalysisResult `json:"customerAnalysis"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if err := sanitizeCustomer(&body.CustomerData); err != nil {
		return err
	}

	requestID := chimw.GetReqID(req.Context())
	out, err := r.advisory.Recommend(req.Context(), appadvisory.RecommendCommand{
		ServiceType: string(service),
		Customer:    body.CustomerData,
		Analysis:    body.CustomerAnalysis,
		RequestID:   requestID,
	})
	if err != nil {
		return err
	}
	r.writeJSON(w, http.StatusOK, outcomeResponse{Success: true, RequestID: requestID, Outcome: out})
	return nil
}

// GET /api/{service}/products
func (r *Router) handleProducts(w http.ResponseWriter, req *http.Request) error {
	service, err := serviceParam(req)
	if err != nil {
		return err
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"serviceType": service,
		"products":    r.catalog.Products(service),
		"timestamp":   r.now(),
	})
	return nil
}

// POST /api/deposit/calculate
// Body: {"amount": 10000000, "rate": 3.5, "term": 2, "compound": 12}
func (r *Router) handleDepositCalculate(w http.ResponseWriter, req *http.Request) error {
	if err := requireService(req, customer.Deposit); err != nil {
		return err
	}
	var body struct {
		Amount   number `json:"amount"`
		Rate     number `json:"rate"`
		Term     number `json:"term"`
		Compound number `json:"compound"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if body.Amount == 0 || body.Rate == 0 || body.Term == 0 {
		return badRequest("Amount, rate, and term are required for calculation")
	}

	res, err := finance.Deposit(finance.DepositInput{
		Principal: float64(body.Amount),
		Rate:      float64(body.Rate),
		Years:     float64(body.Term),
		Compound:  int(body.Compound),
	})
	if err != nil {
		return err
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"calculation": res,
		"timestamp":   r.now(),
	})
	return nil
}

// POST /api/loan/simulate-repayment
// Body: {"amount": 100000000, "rate": 4.5, "term": 30, "type": "equal"}
func (r *Router) handleLoanRepayment(w http.ResponseWriter, req *http.Request) error {
	if err := requireService(req, customer.Loan); err != nil {
		return err
	}
	var body struct {
		Amount number `json:"amount"`
		Rate   number `json:"rate"`
		Term   number `json:"term"`
		Type   string `json:"type"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if body.Amount == 0 || body.Term == 0 {
		return badRequest("Amount, rate, and term are required for simulation")
	}
	years := int(body.Term)
	if float64(years) != float64(body.Term) {
		return badRequest("term must be a whole number of years")
	}

	res, err := finance.Repayment(finance.RepaymentInput{
		Principal: float64(body.Amount),
		Rate:      float64(body.Rate),
		Years:     years,
		Type:      strings.TrimSpace(body.Type),
	})
	if err != nil {
		return err
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"simulation": res,
		"timestamp":  r.now(),
	})
	return nil
}

// POST /api/issue-ticket
// Body: {"serviceType": "deposit"}
func (r *Router) handleIssueTicket(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ServiceType string `json:"serviceType"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	service, ok := customer.ParseServiceType(body.ServiceType)
	if !ok {
		return badRequest("Valid service type is required (deposit or loan)")
	}

	t, err := r.tickets.Issue(req.Context(), service)
	if err != nil {
		return fmt.Errorf("issue ticket: %w", err)
	}
	r.writeJSON(w, http.StatusOK, map[string]any{"success": true, "ticket": t})
	return nil
}

// GET /api/waiting-info
func (r *Router) handleWaitingInfo(w http.ResponseWriter, req *http.Request) error {
	info, err := r.tickets.WaitingInfo(req.Context())
	if err != nil {
		return fmt.Errorf("waiting info: %w", err)
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"waitingInfo": map[string]any{
			"deposit":   info[customer.Deposit],
			"loan":      info[customer.Loan],
			"timestamp": r.now(),
		},
	})
	return nil
}

// POST /api/feedback
// Feedback is logged only.
func (r *Router) handleFeedback(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Rating       number `json:"rating"`
		Comment      string `json:"comment"`
		ServiceType  string `json:"serviceType"`
		TicketNumber string `json:"ticketNumber"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	rating := int(body.Rating)
	if err := middleware.ValidateRating(rating); err != nil {
		return badRequest("Rating must be between 1 and 5")
	}
	serviceType := body.ServiceType
	if _, ok := customer.ParseServiceType(serviceType); !ok {
		serviceType = "general"
	}

	id := "fb_" + uuid.NewString()
	r.logger.Info("feedback received",
		zap.String("feedback_id", id),
		zap.Int("rating", rating),
		zap.String("comment", middleware.SanitizeString(body.Comment)),
		zap.String("service_type", serviceType),
		zap.String("ticket_number", middleware.SanitizeString(body.TicketNumber)),
		zap.String("request_id", chimw.GetReqID(req.Context())))

	r.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Thank you for your feedback.",
		"feedbackId": id,
	})
	return nil
}

// Languages the kiosk pages are translated into.
var Languages = []string{"ko", "en", "ja", "zh", "vi"}

type faq struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type emergencyContact struct {
	Title       string `json:"title"`
	Phone       string `json:"phone"`
	Available24 bool   `json:"available24h"`
}

var supportInfo = struct {
	FAQ              []faq            `json:"faq"`
	EmergencyContact emergencyContact `json:"emergencyContact"`
}{
	FAQ: []faq{
		{1, "How accurate is the AI analysis?", "The analysis is a starting point; please confirm the final decision with a counsellor."},
		{2, "How long does loan approval take?", "The pre-check is immediate. Approval takes 1 to 3 business days after the documents are submitted."},
		{3, "How are deposit products recommended?", "We look at your age, occupation, income, risk appetite and goals together."},
		{4, "Is my personal information protected?", "Data is encrypted in transit and handled under banking security standards."},
	},
	EmergencyContact: emergencyContact{Title: "Emergency enquiries", Phone: "1588-0000", Available24: true},
}

// GET /api/support
func (r *Router) handleSupport(w http.ResponseWriter, _ *http.Request) error {
	r.writeJSON(w, http.StatusOK, map[string]any{"success": true, "support": supportInfo})
	return nil
}

// POST /api/language
// Body: {"language": "en"}. The preference is not stored.
func (r *Router) handleLanguage(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Language string `json:"language"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	lang := strings.ToLower(strings.TrimSpace(body.Language))
	if !slices.Contains(Languages, lang) {
		return badRequest("Supported languages: %s", strings.Join(Languages, ", "))
	}
	r.logger.Info("language preference changed",
		zap.String("language", lang),
		zap.String("request_id", chimw.GetReqID(req.Context())))
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Language preference updated",
		"language":  lang,
		"timestamp": r.now(),
	})
	return nil
}

// GET /api/status
func (r *Router) handleStatus(w http.ResponseWriter, _ *http.Request) error {
	aiStatus := "disabled"
	if r.cfg.AIEnabled() {
		aiStatus = "operational"
	}
	r.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status": map[string]any{
			"server": "operational",
			"ai":     aiStatus,
			"services": map[string]string{
				"deposit": "operational",
				"loan":    "operational",
			},
			"timestamp": r.now(),
			"version":   r.cfg.Server.Version,
			"uptime":    r.metrics.Uptime().Seconds(),
		},
	})
	return nil
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) error {
	return r.serveStatic(w, req, filepath.Join(r.cfg.Server.StaticDir, "index.html"))
}

// GET /pages/{page}
func (r *Router) handlePage(w http.ResponseWriter, req *http.Request) error {
	page := chi.URLParam(req, "page")
	if err := middleware.ValidatePage(page, Pages); err != nil {
		return notFound("Page not found")
	}
	return r.serveStatic(w, req, filepath.Join(r.cfg.Server.StaticDir, "pages", page))
}

func (r *Router) serveStatic(w http.ResponseWriter, req *http.Request, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return notFound("Page not found")
	}
	http.ServeFile(w, req, path)
	return nil
}
