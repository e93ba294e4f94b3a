package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// payloadBuilders render an alert for each supported webhook type.
var payloadBuilders = map[string]func(*Alert) interface{}{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := payloadBuilders[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"batch", a.BatchID,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"batch", a.BatchID,
			"state", a.State,
		)
	}
}

// fact is one labelled batch detail shown in chat notifications.
type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// facts are the batch details shown in chat notifications.
func facts(a *Alert) []fact {
	fs := []fact{
		{"Batch", a.BatchName},
		{"Samples", strconv.Itoa(a.Samples)},
		{"Unsafe wells", fmt.Sprintf("%d (%.0f%%)", a.UnsafeCount, unsafePct(a))},
		{"Max HPI", num(a.MaxHPI)},
		{"Condition", fmt.Sprintf("%s (value %s)", a.Condition, num(a.Value))},
	}
	if a.ResolvedAt != nil {
		fs = append(fs, fact{"Resolved at", a.ResolvedAt.UTC().Format(time.RFC3339)})
	}
	return fs
}

func headline(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("%s on %s has cleared", a.RuleName, a.BatchName)
	}
	return fmt.Sprintf("%s: %d of %d wells Unsafe in %s",
		a.RuleName, a.UnsafeCount, a.Samples, a.BatchName)
}

func slackPayload(a *Alert) interface{} {
	fields := make([]map[string]interface{}, 0, 6)
	for _, f := range facts(a) {
		fields = append(fields, map[string]interface{}{
			"title": f.Name,
			"value": f.Value,
			"short": f.Name != "Condition",
		})
	}
	return map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s", stateLabel(a), headline(a)),
		"attachments": []map[string]interface{}{{
			"color":  "#" + stateColor(a),
			"fields": fields,
		}},
	}
}

func teamsPayload(a *Alert) interface{} {
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": stateColor(a),
		"summary":    headline(a),
		"title":      fmt.Sprintf("Groundwater Alert: %s", a.RuleName),
		"sections": []map[string]interface{}{{
			"activityTitle":    fmt.Sprintf("%s %s", stateLabel(a), headline(a)),
			"activitySubtitle": a.Message,
			"facts":            facts(a),
		}},
	}
}

// httpPayload is the raw alert with an event name generic receivers can
// route on ("alert.firing" or "alert.resolved").
func httpPayload(a *Alert) interface{} {
	return map[string]interface{}{
		"event": "alert." + a.State,
		"alert": a,
	}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func stateLabel(a *Alert) string {
	if a.State == StateResolved {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

// stateColor is green once resolved, otherwise red, amber or blue by severity.
func stateColor(a *Alert) string {
	if a.State == StateResolved {
		return "16A34A"
	}
	switch a.Severity {
	case "critical":
		return "DC2626"
	case "warning":
		return "F59E0B"
	default:
		return "2563EB"
	}
}

func unsafePct(a *Alert) float64 {
	if a.Samples == 0 {
		return 0
	}
	return float64(a.UnsafeCount) / float64(a.Samples) * 100
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
