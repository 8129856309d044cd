package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
)

type pageData struct {
	Title        string
	User         core.Identity
	Error        string
	Username     string
	Rules        []advisor.Rule
	History      []core.HistoryEntry
	HistoryLimit int
}

type adviceView struct {
	services.AdviceResult
	User core.Identity
}

type adviceJSON struct {
	Advice  []adviceItemJSON `json:"advice"`
	Text    string           `json:"text"`
	Healthy bool             `json:"healthy"`
	EntryID int64            `json:"entry_id,omitempty"`
	Saved   bool             `json:"saved"`
}

type adviceItemJSON struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	stats := s.advice.CacheStats()
	checks["history_cache"] = map[string]any{"entries": stats.Size, "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	sec := s.securityDetector.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	tr := s.traceMiddleware.GetMetrics()
	cs := s.advice.CacheStats()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", tr.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tr.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", tr.AverageResponseTime)
	metric("advice_evaluations_total", "counter", "Profiles evaluated", s.appMetrics.evaluations.Load())
	metric("advice_saved_total", "counter", "Evaluations appended to history", s.appMetrics.savedAdvice.Load())
	metric("logins_total", "counter", "Successful logins", s.appMetrics.logins.Load())
	metric("login_failures_total", "counter", "Rejected logins", s.appMetrics.loginFailures.Load())
	metric("registrations_total", "counter", "Registered users", s.appMetrics.registrations.Load())
	metric("cache_hits_total", "counter", "History cache hits", cs.Hits)
	metric("cache_misses_total", "counter", "History cache misses", cs.Misses)
	metric("cache_entries", "gauge", "Current history cache entries", cs.Size)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rl.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", sec.SuspiciousRequests)
	metric("invalid_ip_attempts_total", "counter", "Unparseable forwarded client IPs", sec.InvalidIPAttempts)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id.IsZero() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", pageData{
		Title: "Budget Advisor",
		User:  id,
	})
}

// handleAdvice evaluates a submitted profile. htmx gets the advice partial;
// a JSON body gets a JSON answer.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	id := IdentityFrom(ctx)
	if id.IsZero() {
		UnauthorizedError("Please log in to get advice").Write(w)
		return
	}

	body := NewRequestBodyParser(w, r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	profile, err := ParseProfile(body.Values())
	if err != nil {
		UnprocessableEntityError(describeProfileError(err)).Write(w)
		return
	}

	res, err := s.advice.Advise(ctx, id, profile)
	if errors.Is(err, services.ErrInvalidProfile) {
		UnprocessableEntityError(describeProfileError(err)).Write(w)
		return
	}
	if err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Advice evaluation failed", err,
			log.ComponentAdvisor, log.OpEvaluate, log.NewFields().WithUser(id.UserID, id.Username))
		InternalServerError("Could not evaluate your budget").
			TriggerErrorNotification("Could not evaluate your budget").
			Write(w)
		return
	}

	s.appMetrics.evaluations.Add(1)
	if res.Saved {
		s.appMetrics.savedAdvice.Add(1)
		log.NewStructuredLogger(logger).LogAdviceRecorded(ctx, id.UserID, id.Username, res.EntryID, ruleIDs(res.Advice))
	}

	if body.IsJSON() {
		writeAdviceJSON(w, res)
		return
	}

	html, err := s.renderPartial("advice.html", adviceView{AdviceResult: res, User: id})
	if err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Advice partial rendering failed", err,
			log.ComponentTemplate, log.OpRender, log.NewFields().WithAdvice(res.EntryID, ruleIDs(res.Advice)))
		InternalServerError("Could not render advice").
			TriggerErrorNotification("Could not render advice").
			Write(w)
		return
	}

	b := NewHTMXResponse().TriggerAdviceEvaluated(res.EntryID, len(res.Advice)).BodyHTML(html)
	if res.Saved {
		b.TriggerHistoryRefresh().
			TriggerFormReset().
			TriggerSuccessNotification("Saved to your history")
	} else {
		b.TriggerNotification(NotificationWarning, "Advice could not be saved to your history", 5000)
	}
	b.Write(w)
}

func writeAdviceJSON(w http.ResponseWriter, res services.AdviceResult) {
	out := adviceJSON{
		Advice:  make([]adviceItemJSON, 0, len(res.Advice)),
		Text:    res.Text,
		Healthy: res.Healthy,
		EntryID: res.EntryID,
		Saved:   res.Saved,
	}
	for _, a := range res.Advice {
		out.Advice = append(out.Advice, adviceItemJSON{Rule: string(a.Rule), Message: a.Message})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

func ruleIDs(advice []advisor.Advice) []string {
	ids := make([]string, len(advice))
	for i, a := range advice {
		ids[i] = string(a.Rule)
	}
	return ids
}

// handleHistory shows the user's most recent runs. htmx requests get only
// the table.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFrom(ctx)
	if id.IsZero() {
		if isHTMX(r) {
			UnauthorizedError("Please log in to see your history").Write(w)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	limit := parseLimit(r.URL.Query(), s.historyLimit, 100)
	entries, err := s.advice.History(ctx, id, limit)
	if err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "History lookup failed", err,
			log.ComponentHistory, log.OpList, log.NewFields().WithUser(id.UserID, id.Username))
		InternalServerError("Could not load your history").Write(w)
		return
	}

	data := pageData{Title: "Your advice history", User: id, History: entries, HistoryLimit: limit}
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, "history_table", data)
		return
	}
	s.render(w, r, http.StatusOK, "history.html", data)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "rules.html", pageData{
		Title: "Rules",
		User:  IdentityFrom(r.Context()),
		Rules: s.advice.Rules(),
	})
}
