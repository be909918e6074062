// Package gateway simulates an external payment provider. Charges and
// refunds fail with a per-method probability so the rest of the system
// exercises its failure paths without a real provider.
package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Processor is the payment provider surface the payment service depends on
type Processor interface {
	Charge(ctx context.Context, method string, amount float64, reference string, details map[string]string) (*ChargeResult, error)
	Refund(ctx context.Context, method string, amount float64, reference string) (*RefundResult, error)
}

// requiredDetails maps a lowercase method name to the detail fields the
// provider needs before it will attempt the charge. CASH has none.
var requiredDetails = map[string][]string{
	"card":          {"card_number", "expiry", "cvv", "card_holder"},
	"bkash":         {"phone_number", "pin"},
	"nagad":         {"phone_number", "pin"},
	"rocket":        {"phone_number", "pin"},
	"upay":          {"phone_number", "pin"},
	"bank_transfer": {"account_number"},
}

// missingDetail returns the first required detail field absent from the
// payload, or "" when the payload is complete for the method.
func missingDetail(method string, details map[string]string) string {
	for _, field := range requiredDetails[strings.ToLower(method)] {
		if details[field] == "" {
			return field
		}
	}
	return ""
}

// ChargeResult is the outcome of a charge attempt
type ChargeResult struct {
	Success       bool
	TransactionID string
	FailureReason string
}

// RefundResult is the outcome of a refund attempt
type RefundResult struct {
	Success       bool
	TransactionID string
	FailureReason string
}

// Simulator implements Processor with configurable failure rates
type Simulator struct {
	failureRates    map[string]float64
	processingDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator. failureRates maps a lowercase method
// name to its failure probability; methods not listed never fail. The
// "refund" key governs refund attempts for every method.
func NewSimulator(failureRates map[string]float64, processingDelay time.Duration) *Simulator {
	rates := make(map[string]float64, len(failureRates))
	for method, rate := range failureRates {
		rates[strings.ToLower(method)] = rate
	}
	return &Simulator{
		failureRates:    rates,
		processingDelay: processingDelay,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Charge simulates charging the given amount through the method's channel.
// Incomplete payment details come back as a failed charge, not an error.
func (s *Simulator) Charge(ctx context.Context, method string, amount float64, reference string, details map[string]string) (*ChargeResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("charge amount must be positive, got %f", amount)
	}
	if field := missingDetail(method, details); field != "" {
		return &ChargeResult{
			Success:       false,
			FailureReason: fmt.Sprintf("missing %s for %s payment", field, strings.ToUpper(method)),
		}, nil
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	if s.roll(strings.ToLower(method)) {
		return &ChargeResult{
			Success:       false,
			FailureReason: fmt.Sprintf("%s gateway declined the transaction", strings.ToUpper(method)),
		}, nil
	}

	return &ChargeResult{
		Success:       true,
		TransactionID: s.transactionID(method, reference),
	}, nil
}

// Refund simulates refunding the given amount back through the method's channel
func (s *Simulator) Refund(ctx context.Context, method string, amount float64, reference string) (*RefundResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %f", amount)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	if s.roll("refund") {
		return &RefundResult{
			Success:       false,
			FailureReason: "refund rejected by provider",
		}, nil
	}

	return &RefundResult{
		Success:       true,
		TransactionID: s.transactionID("REFUND-"+method, reference),
	}, nil
}

// wait sleeps for the simulated processing delay, honoring cancellation
func (s *Simulator) wait(ctx context.Context) error {
	if s.processingDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.processingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// roll returns true when the method's failure rate fires
func (s *Simulator) roll(method string) bool {
	rate, ok := s.failureRates[method]
	if !ok || rate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < rate
}

// transactionID builds a provider-style reference: METHOD-reference-random
func (s *Simulator) transactionID(method, reference string) string {
	s.mu.Lock()
	n := s.rng.Intn(900000) + 100000
	s.mu.Unlock()
	return fmt.Sprintf("%s-%s-%d", strings.ToUpper(method), reference, n)
}
