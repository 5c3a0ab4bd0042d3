package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned without calling the backend while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker defaults
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultBreakerCooldown  = 30 * time.Second
)

// BreakerState represents the circuit breaker state
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// GuardedProvider wraps a Provider with a circuit breaker. After
// failureThreshold consecutive failures calls fail fast with ErrCircuitOpen
// until cooldown has passed; then successThreshold successes close it again.
type GuardedProvider struct {
	Provider

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	logger           *logrus.Logger
	now              func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewGuardedProvider wraps p. Non-positive settings take the defaults.
func NewGuardedProvider(p Provider, failureThreshold int, cooldown time.Duration, logger *logrus.Logger) *GuardedProvider {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &GuardedProvider{
		Provider:         p,
		failureThreshold: failureThreshold,
		successThreshold: DefaultSuccessThreshold,
		cooldown:         cooldown,
		logger:           logging.OrDefault(logger),
		now:              time.Now,
	}
}

// Complete forwards to the wrapped provider unless the breaker is open
func (g *GuardedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !g.allow() {
		return nil, fmt.Errorf("%s: %w", g.Name(), ErrCircuitOpen)
	}

	resp, err := g.Provider.Complete(ctx, req)
	// a caller giving up says nothing about the backend
	if err != nil && ctx.Err() == nil {
		g.recordFailure()
	} else if err == nil {
		g.recordSuccess()
	}
	return resp, err
}

// State returns the current breaker state
func (g *GuardedProvider) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return g.state
}

func (g *GuardedProvider) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return g.state != StateOpen
}

// advance moves an open breaker to half-open once the cooldown has passed. Callers hold mu.
func (g *GuardedProvider) advance() {
	if g.state == StateOpen && g.now().Sub(g.lastFailure) > g.cooldown {
		g.state = StateHalfOpen
		g.failures = 0
		g.successes = 0
	}
}

func (g *GuardedProvider) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	g.lastFailure = g.now()

	switch g.state {
	case StateClosed:
		if g.failures >= g.failureThreshold {
			g.state = StateOpen
			g.logger.WithFields(logrus.Fields{
				"provider": g.Name(),
				"failures": g.failures,
			}).Warn("Opening circuit breaker")
		}
	case StateHalfOpen:
		g.state = StateOpen
		g.logger.WithField("provider", g.Name()).Warn("Re-opening circuit breaker after failure in half-open state")
	}
}

func (g *GuardedProvider) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.successes++

	switch g.state {
	case StateClosed:
		g.failures = 0
	case StateHalfOpen:
		if g.successes >= g.successThreshold {
			g.state = StateClosed
			g.failures = 0
			g.successes = 0
			g.logger.WithField("provider", g.Name()).Info("Closing circuit breaker")
		}
	}
}
