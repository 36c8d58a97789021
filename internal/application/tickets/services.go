package tickets

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/bryanwahyu/bank-advisor/internal/application"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ticket"
)

// Recorder receives one event per issued ticket.
type Recorder interface {
	ObserveTicket(service string)
}

type Service struct {
	counter  ticket.Counter
	clock    application.Clock
	recorder Recorder

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(counter ticket.Counter, clock application.Clock, rng *rand.Rand, recorder Recorder) *Service {
	return &Service{counter: counter, clock: clock, rng: rng, recorder: recorder}
}

func (s *Service) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func waitMinutes(service customer.ServiceType, waiting int) int {
	return int(math.Floor(float64(waiting) * ticket.MinutesPerCustomer(service)))
}

// Issue draws the next number for the service. The number currently being
// served trails it by 5 to 14 places.
func (s *Service) Issue(ctx context.Context, service customer.ServiceType) (ticket.Ticket, error) {
	n, err := s.counter.Next(ctx, service)
	if err != nil {
		return ticket.Ticket{}, err
	}

	current := max(1, n-s.intn(10)-5)
	wait := max(1, waitMinutes(service, n-current))

	if s.recorder != nil {
		s.recorder.ObserveTicket(string(service))
	}
	return ticket.Ticket{
		Number:               ticket.Format(service, n),
		Current:              ticket.Format(service, current),
		EstimatedWaitMinutes: wait,
		ServiceType:          service,
		IssuedAt:             s.clock.Now(),
		Status:               ticket.StatusActive,
	}, nil
}

// Check reads every service's counter; it fails when the counter store
// cannot be reached.
func (s *Service) Check(ctx context.Context) error {
	for _, service := range []customer.ServiceType{customer.Deposit, customer.Loan} {
		if _, err := s.counter.Current(ctx, service); err != nil {
			return fmt.Errorf("%s counter: %w", service, err)
		}
	}
	return nil
}

// WaitingInfo reports the queue for every service.
func (s *Service) WaitingInfo(ctx context.Context) (map[customer.ServiceType]ticket.Waiting, error) {
	out := make(map[customer.ServiceType]ticket.Waiting, 2)
	for _, service := range []customer.ServiceType{customer.Deposit, customer.Loan} {
		last, err := s.counter.Current(ctx, service)
		if err != nil {
			return nil, err
		}

		// deposit queues run 3..10 deep, loan queues 2..7
		waiting := 3 + s.intn(8)
		if service == customer.Loan {
			waiting = 2 + s.intn(6)
		}
		out[service] = ticket.Waiting{
			Current:       ticket.Format(service, max(1, last-waiting)),
			WaitingCount:  waiting,
			EstimatedTime: waitMinutes(service, waiting),
		}
	}
	return out, nil
}
