package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pathtracker/pathtracker/domain/tenant"
)

type settingsView struct {
	TenantID            string    `json:"tenant_id"`
	Name                string    `json:"name"`
	CreatedAt           time.Time `json:"created_at"`
	RetentionDays       int       `json:"retention_days"`
	BodySizeLimitBytes  int       `json:"body_size_limit_bytes"`
	RateLimitPerMinute  int       `json:"rate_limit_per_minute"`
	PIIScrubbingEnabled bool      `json:"pii_scrubbing_enabled"`
	CostBudgetUSD       *float64  `json:"cost_budget_usd"`
}

func newSettingsView(t tenant.Tenant) settingsView {
	return settingsView{
		TenantID:            t.ID,
		Name:                t.Name,
		CreatedAt:           t.CreatedAt,
		RetentionDays:       t.RetentionDays,
		BodySizeLimitBytes:  t.BodySizeLimitBytes,
		RateLimitPerMinute:  t.RateLimitPerMinute,
		PIIScrubbingEnabled: t.PIIScrubbingEnabled,
		CostBudgetUSD:       t.CostBudgetUSD,
	}
}

// SettingsGet returns the tenant's current settings.
func (h *Handler) SettingsGet(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())

	t, err := h.settings.Get(r.Context(), sess.TenantID)
	if err != nil {
		h.handleError(w, r, "settings get", err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(t))
}

// SettingsUpdate applies a partial settings change. Absent fields keep
// their value; an explicit null cost_budget_usd clears the budget.
func (h *Handler) SettingsUpdate(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())

	var req struct {
		RetentionDays       *int             `json:"retention_days"`
		BodySizeLimitBytes  *int             `json:"body_size_limit_bytes"`
		RateLimitPerMinute  *int             `json:"rate_limit_per_minute"`
		PIIScrubbingEnabled *bool            `json:"pii_scrubbing_enabled"`
		CostBudgetUSD       *json.RawMessage `json:"cost_budget_usd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}

	update := tenant.SettingsUpdate{
		RetentionDays:       req.RetentionDays,
		BodySizeLimitBytes:  req.BodySizeLimitBytes,
		RateLimitPerMinute:  req.RateLimitPerMinute,
		PIIScrubbingEnabled: req.PIIScrubbingEnabled,
	}

	// cost_budget_usd distinguishes absent (keep), null (clear) and a
	// number (set).
	if req.CostBudgetUSD != nil {
		if string(*req.CostBudgetUSD) == "null" {
			update.ClearCostBudget = true
		} else {
			var v float64
			if err := json.Unmarshal(*req.CostBudgetUSD, &v); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, "cost_budget_usd must be a number or null")
				return
			}
			update.CostBudgetUSD = &v
		}
	}

	t, err := h.settings.Update(r.Context(), sess.TenantID, update)
	if err != nil {
		h.handleError(w, r, "settings update", err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(t))
}
