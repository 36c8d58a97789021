package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

// MaxNumber is the highest printable ticket number; sequences wrap to 1.
const MaxNumber = 999

const StatusActive = "active"

type Ticket struct {
	Number               string               `json:"ticketNumber"`
	Current              string               `json:"currentNumber"`
	EstimatedWaitMinutes int                  `json:"estimatedWaitTime"`
	ServiceType          customer.ServiceType `json:"serviceType"`
	IssuedAt             time.Time            `json:"issuedAt"`
	Status               string               `json:"status"`
}

type Waiting struct {
	Current       string `json:"currentNumber"`
	WaitingCount  int    `json:"waitingCount"`
	EstimatedTime int    `json:"estimatedTime"`
}

// Counter hands out per-service sequence numbers in 1..MaxNumber.
type Counter interface {
	Next(ctx context.Context, service customer.ServiceType) (int, error)
	// Current returns the last issued number, 0 if none.
	Current(ctx context.Context, service customer.ServiceType) (int, error)
}

func Prefix(service customer.ServiceType) string {
	if service == customer.Loan {
		return "L"
	}
	return "D"
}

func Format(service customer.ServiceType, n int) string {
	return fmt.Sprintf("%s-%03d", Prefix(service), n)
}

// Wrap folds a raw, ever-increasing counter value into 1..MaxNumber.
func Wrap(raw int64) int {
	if raw <= 0 {
		return 0
	}
	return int((raw-1)%MaxNumber) + 1
}

// MinutesPerCustomer is the average handling time for a service.
func MinutesPerCustomer(service customer.ServiceType) float64 {
	if service == customer.Loan {
		return 3.2
	}
	return 2.3
}
