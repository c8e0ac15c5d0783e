package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/screening"
	"github.com/wonny/marketlens/pkg/logger"
)

// Screener runs one screening pass
type Screener interface {
	Run(ctx context.Context, f screening.Filter) (market.ScreeningResult, error)
}

// ScreeningHandler serves screening runs, presets and run history
type ScreeningHandler struct {
	screener Screener
	presets  screening.Presets
	recorder screening.Recorder
	logger   *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(s Screener, presets screening.Presets, rec screening.Recorder, log *logger.Logger) *ScreeningHandler {
	if presets == nil {
		presets = screening.BuiltinPresets()
	}
	if rec == nil {
		rec = screening.NewNoopRecorder()
	}
	return &ScreeningHandler{screener: s, presets: presets, recorder: rec, logger: log}
}

// Screen runs a screening pass synchronously.
// A preset supplies the base tuple; individual parameters override it.
// GET /api/screen?preset=value&pe_max=15&max_stocks=100
func (h *ScreeningHandler) Screen(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.screener.Run(r.Context(), f)
	if err != nil {
		h.logger.WithError(err).Warn("Screening request failed")
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    res,
	})
}

// GetPresets lists the named filter tuples
// GET /api/screen/presets
func (h *ScreeningHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.presets,
	})
}

// GetRuns returns recorded runs, newest first
// GET /api/screen/runs?limit=20
func (h *ScreeningHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	runs, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load screening runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve screening runs")
		return
	}
	if runs == nil {
		runs = []screening.RunRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    runs,
	})
}

func (h *ScreeningHandler) filterFrom(r *http.Request) (screening.Filter, error) {
	q := r.URL.Query()

	var f screening.Filter
	if name := q.Get("preset"); name != "" {
		p, err := h.presets.Get(name)
		if err != nil {
			return screening.Filter{}, err
		}
		f = p
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"pe_min", &f.PEMin},
		{"pe_max", &f.PEMax},
		{"pb_min", &f.PBMin},
		{"pb_max", &f.PBMax},
		{"roe_min", &f.ROEMin},
		{"growth_min", &f.GrowthMin},
	}
	for _, p := range floats {
		if s := q.Get(p.name); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return screening.Filter{}, &paramError{name: p.name, value: s}
			}
			*p.dst = v
		}
	}
	if s := q.Get("max_stocks"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return screening.Filter{}, &paramError{name: "max_stocks", value: s}
		}
		f.MaxStocks = v
	}

	return f, f.Validate()
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}
