package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/wonny/marketlens/internal/market"
	"github.com/wonny/marketlens/internal/retrieval"
	"github.com/wonny/marketlens/internal/universe"
	"github.com/wonny/marketlens/pkg/logger"
)

// UniverseSource supplies the stock listing
type UniverseSource interface {
	Universe(ctx context.Context) (retrieval.Result[[]market.StockInfo], error)
}

// UniverseHandler serves stock lookup for the analysis view
type UniverseHandler struct {
	source UniverseSource
	logger *logger.Logger

	// the index is rebuilt only when the listing changes
	mu    sync.Mutex
	index *universe.Index
	built []market.StockInfo
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(src UniverseSource, log *logger.Logger) *UniverseHandler {
	return &UniverseHandler{source: src, logger: log}
}

// Search finds stocks by code, name or pinyin initials
// GET /api/universe/search?q=gzmt&limit=20
func (h *UniverseHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", 20)

	ix, res, err := h.indexFor(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		Success:  true,
		Data:     ix.Search(query, limit),
		Origin:   res.Origin,
		Provider: res.Provider,
	})
}

// GetStock resolves one code
// GET /api/universe/{code}
func (h *UniverseHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	ix, res, err := h.indexFor(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}

	info, ok := ix.Lookup(code)
	if !ok {
		respondError(w, http.StatusNotFound, "stock not found: "+code)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: info, Origin: res.Origin, Provider: res.Provider})
}

func (h *UniverseHandler) indexFor(ctx context.Context) (*universe.Index, retrieval.Result[[]market.StockInfo], error) {
	res, err := h.source.Universe(ctx)
	if err != nil {
		return nil, res, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == nil || !sameListing(h.built, res.Data) {
		h.index = universe.NewIndex(res.Data)
		h.built = res.Data
	}
	return h.index, res, nil
}

func sameListing(a, b []market.StockInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
