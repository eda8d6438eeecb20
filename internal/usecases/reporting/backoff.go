package reporting

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/buffapp/amazon-ads-api/internal/config"
)

// Policy calcula os atrasos entre tentativas contra a API para uma única
// conta. Os atrasos crescem geometricamente até o teto configurado e nunca
// diminuem entre tentativas consecutivas, mesmo com jitter
type Policy struct {
	cfg     config.Backoff
	limiter *rate.Limiter

	mu sync.Mutex
	// Último atraso devolvido, piso para o próximo cálculo
	lastDelay time.Duration
	// Piso imposto por um Retry-After ainda não consumido. Prevalece sobre
	// o teto configurado
	retryAfterFloor time.Duration
}

func NewPolicy(cfg config.Backoff) *Policy {
	return &Policy{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
	}
}

// NextDelay devolve o atraso antes da tentativa de número attempt (a
// primeira tentativa é a de número 0 e não espera)
func (p *Policy) NextDelay(attempt int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if attempt <= 0 {
		return 0
	}

	delay := float64(p.cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.cfg.Multiplier
		if delay >= float64(p.cfg.MaxDelay) {
			break
		}
	}

	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}

	// Jitter apenas para cima, para não regredir abaixo do atraso anterior
	if p.cfg.JitterRatio > 0 {
		delay += delay * p.cfg.JitterRatio * rand.Float64()
	}

	next := time.Duration(delay)

	// O piso de Retry-After é aplicado depois do teto: a plataforma manda
	if p.retryAfterFloor > 0 {
		if next < p.retryAfterFloor {
			next = p.retryAfterFloor
		}
		p.retryAfterFloor = 0
	}

	if next < p.lastDelay {
		next = p.lastDelay
	}

	p.lastDelay = next
	return next
}

// RegisterRateLimit registra o Retry-After de uma resposta 429. O próximo
// atraso calculado nunca será menor que esse valor
func (p *Policy) RegisterRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if retryAfter > p.retryAfterFloor {
		p.retryAfterFloor = retryAfter
	}
}

// Reset zera o estado acumulado da política após uma chamada bem-sucedida
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastDelay = 0
	p.retryAfterFloor = 0
}

// Wait bloqueia no token bucket compartilhado da conta antes de cada
// chamada de rede. Respeita o cancelamento do contexto
func (p *Policy) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// BackoffManager mantém uma política por conexão: todos os jobs da mesma
// conta compartilham o mesmo token bucket e o mesmo estado de backoff
type BackoffManager struct {
	cfg config.Backoff

	mu       sync.Mutex
	policies map[string]*Policy
}

func NewBackoffManager(cfg config.Backoff) *BackoffManager {
	return &BackoffManager{
		cfg:      cfg,
		policies: make(map[string]*Policy),
	}
}

func (m *BackoffManager) ForConnection(connectionID string) *Policy {
	m.mu.Lock()
	defer m.mu.Unlock()

	policy, ok := m.policies[connectionID]
	if !ok {
		policy = NewPolicy(m.cfg)
		m.policies[connectionID] = policy
	}

	return policy
}
