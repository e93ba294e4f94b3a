package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/aqualyx/geoanalyze/internal/config"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID        string  `json:"id"`
	RuleName  string  `json:"rule_name"`
	BatchID   string  `json:"batch_id"`
	BatchName string  `json:"batch_name"`
	Severity  string  `json:"severity"`
	Condition string  `json:"condition"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	// Batch figures at fire time.
	Samples     int     `json:"samples"`
	UnsafeCount int     `json:"unsafe_count"`
	MaxHPI      float64 `json:"max_hpi"`

	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Engine evaluates alert rules against each new batch and delivers webhook
// notifications when rules fire or resolve. Each rule tracks one alert: it
// fires when a batch meets the condition and resolves when a later batch
// does not.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client

	now      func() time.Time
	dispatch func(*Alert)
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.dispatch = func(a *Alert) { go e.deliver(a) }
	return e
}

// Evaluate tests all configured rules against b.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(b *types.Batch) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name
		fires, value := evalCondition(rule.Condition, b)

		e.mu.Lock()
		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
				e.mu.Unlock()
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:        fmt.Sprintf("%s:%s:%d", rule.Name, b.ID, now.UnixNano()),
				RuleName:  rule.Name,
				BatchID:   b.ID,
				BatchName: b.Name,
				Severity:  sev,
				Condition: rule.Condition,
				Value:     value,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s = %.2f",
					sev, rule.Name, b.Name, rule.Condition, value),
				Samples:     b.Summary.Samples,
				UnsafeCount: b.Summary.Counts.Unsafe,
				MaxHPI:      b.Summary.MaxHPI,
				FiredAt:     now,
				State:       StateFiring,
			}
			e.active[key] = a
			e.lastFire[key] = now
			alertCopy := *a
			e.mu.Unlock()

			slog.Warn("alerts: fired",
				"rule", rule.Name,
				"batch", b.ID,
				"value", value,
				"severity", sev,
			)
			e.dispatch(&alertCopy)
			continue
		}

		a, ok := e.active[key]
		if !ok {
			e.mu.Unlock()
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		alertCopy := *a
		e.mu.Unlock()

		slog.Info("alerts: resolved", "rule", rule.Name, "batch", b.ID)
		e.dispatch(&alertCopy)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return latest(out[i]).After(latest(out[j])) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

func latest(a *Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
