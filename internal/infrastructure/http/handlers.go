package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

const (
	defaultSearchK = 3
	maxSearchK     = 50
)

func (s *Server) handleUpsertContext(w http.ResponseWriter, r *http.Request) {
	var fc entities.FinancialContext
	if err := decode(w, r, &fc); err != nil {
		s.fail(w, r, err)
		return
	}
	stored, err := s.deps.Analysis.UpsertContext(r.Context(), fc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"context_id": stored.ID,
		"context":    stored,
	})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	fc, err := s.deps.Analysis.GetContext(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, fc)
}

type scenarioRequest struct {
	CompanyID string         `json:"company_id"`
	Changes   map[string]any `json:"changes"`
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	scenario, err := s.deps.Analysis.CreateScenario(r.Context(), req.CompanyID, req.Changes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"scenario_id": scenario.ScenarioID,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.deps.Analysis.Analyze(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "analysis": analysis})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.deps.Analysis.GetAnalysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Analysis.Summary(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"analysis_id":    summary.AnalysisID,
		"scenario_id":    summary.ScenarioID,
		"company_id":     summary.CompanyID,
		"summary":        summary.Summary,
		"summary_source": summary.SummarySource,
		"created_at":     summary.CreatedAt,
	})
}

// forecastRequest mirrors ForecastInput; an absent horizon defaults to a year.
type forecastRequest struct {
	CurrentCash          float64 `json:"current_cash"`
	MonthlyRevenue       float64 `json:"monthly_revenue"`
	MonthlyExpenses      float64 `json:"monthly_expenses"`
	NewHires             int     `json:"new_hires"`
	SalaryPerHire        float64 `json:"salary_per_hire"`
	MarketingSpend       float64 `json:"marketing_spend"`
	PriceIncreasePercent float64 `json:"price_increase_percent"`
	MonthsToForecast     *int    `json:"months_to_forecast"`
}

func (req forecastRequest) input() entities.ForecastInput {
	months := entities.DefaultForecastMonths
	if req.MonthsToForecast != nil {
		months = *req.MonthsToForecast
	}
	return entities.ForecastInput{
		CurrentCash:          req.CurrentCash,
		MonthlyRevenue:       req.MonthlyRevenue,
		MonthlyExpenses:      req.MonthlyExpenses,
		NewHires:             req.NewHires,
		SalaryPerHire:        req.SalaryPerHire,
		MarketingSpend:       req.MarketingSpend,
		PriceIncreasePercent: req.PriceIncreasePercent,
		MonthsToForecast:     months,
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.deps.Forecasts.Run(r.Context(), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

func (s *Server) handleForecastHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	runs, err := s.deps.Forecasts.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Forecasts.Usage(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}

type searchHit struct {
	Rank     int            `json:"rank"`
	Text     string         `json:"text"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		Error(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	k, err := intParam(r, "k", defaultSearchK)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	k = min(k, maxSearchK)

	results, err := s.deps.Index.Search(r.Context(), query, k)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{
			Rank:     res.Rank,
			Text:     res.Document.Text,
			Distance: res.Distance,
			Metadata: res.Document.Metadata,
		}
	}
	JSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

type knowledgeRequest struct {
	Documents []struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	} `json:"documents"`
}

func (s *Server) handleKnowledgeAdd(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Documents) == 0 {
		Error(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	docs := make([]entities.DocumentInput, len(req.Documents))
	for i, d := range req.Documents {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			s.fail(w, r, entities.Invalid("documents", "text must not be empty"))
			return
		}
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		if _, ok := meta["source"]; !ok {
			meta["source"] = "api"
		}
		docs[i] = entities.DocumentInput{Text: text, Metadata: meta}
	}

	n, err := s.deps.Ingest.AddTexts(r.Context(), docs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"added":  n,
		"total":  s.deps.Index.Len(),
	})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, entities.Invalid(name, "must be an integer")
	}
	return n, nil
}
