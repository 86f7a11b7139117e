package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/synapsedb/mnemosyne/internal/engine"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// CreateMemoryRequest is the POST /memories body.
type CreateMemoryRequest struct {
	Content               string   `json:"content" binding:"required"`
	FilePath              string   `json:"file_path"`
	Title                 string   `json:"title"`
	TriggerPhrases        []string `json:"trigger_phrases"`
	FrontmatterMemoryType string   `json:"memory_type"`
	FrontmatterTier       string   `json:"tier"`
	Importance            float64  `json:"importance"`
}

// MemoryData is the wire shape of a stored record, trimmed of its raw
// embedding vector.
type MemoryData struct {
	ID              string                `json:"id"`
	Content         string                `json:"content"`
	Type            types.MemoryType      `json:"type"`
	CreatedAt       time.Time             `json:"created_at"`
	LastReview      time.Time             `json:"last_review"`
	Stability       float64               `json:"stability"`
	Difficulty      float64               `json:"difficulty"`
	ReviewCount     int                   `json:"review_count"`
	AccessCount     int                   `json:"access_count"`
	Importance      float64               `json:"importance"`
	LifecycleState  types.LifecycleState  `json:"lifecycle_state"`
}

func toMemoryData(m *types.Memory) *MemoryData {
	if m == nil {
		return nil
	}
	return &MemoryData{
		ID:             m.ID,
		Content:        m.Content,
		Type:           m.Type,
		CreatedAt:      m.CreatedAt,
		LastReview:     m.LastReview,
		Stability:      m.Stability,
		Difficulty:     m.Difficulty,
		ReviewCount:    m.ReviewCount,
		AccessCount:    m.AccessCount,
		Importance:     m.Importance,
		LifecycleState: m.LifecycleState,
	}
}

// SaveResponseData is the POST /memories response body: the decision the
// PE gate reached, plus whichever of Record/MatchedID that decision set.
// A duplicate-reject or a detected contradiction is returned structured
// here, never as an HTTP error.
type SaveResponseData struct {
	Decision   types.Decision `json:"decision"`
	Record     *MemoryData    `json:"record,omitempty"`
	MatchedID  string         `json:"matched_id,omitempty"`
	Similarity float64        `json:"similarity,omitempty"`
	Degraded   bool           `json:"degraded,omitempty"`
}

func (s *Server) createMemory(c *gin.Context) {
	var req CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	result, err := s.engine.Save(c.Request.Context(), engine.SaveInput{
		Content:               req.Content,
		FilePath:               req.FilePath,
		Title:                  req.Title,
		TriggerPhrases:         req.TriggerPhrases,
		FrontmatterMemoryType:  req.FrontmatterMemoryType,
		FrontmatterTier:        req.FrontmatterTier,
		Importance:             req.Importance,
	})
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	data := SaveResponseData{
		Decision:   result.Decision,
		Record:     toMemoryData(result.Record),
		MatchedID:  result.MatchedID,
		Similarity: result.Similarity,
		Degraded:   result.Degraded,
	}

	switch result.Decision {
	case types.DecisionCreate, types.DecisionMerge:
		CreatedResponse(c, "memory stored", data)
	default:
		SuccessResponse(c, "memory resolved without a new record", data)
	}
}

// SearchHitData is one ranked search result on the wire.
type SearchHitData struct {
	Record *MemoryData          `json:"record"`
	Score  float64              `json:"score"`
	State  types.LifecycleState `json:"lifecycle_state"`
}

func (s *Server) searchMemories(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		BadRequestError(c, "query parameter 'q' is required")
		return
	}

	limit := queryInt(c, "limit", 10)
	candidateLimit := queryInt(c, "candidates", 50)
	includeArchived := c.Query("include_archived") == "true"

	hits, err := s.engine.Search(c.Request.Context(), engine.SearchInput{
		Query:           query,
		CandidateLimit:  candidateLimit,
		ResultLimit:     limit,
		IncludeArchived: includeArchived,
	})
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	out := make([]SearchHitData, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchHitData{Record: toMemoryData(h.Record), Score: h.Score, State: h.State})
	}
	SuccessResponse(c, "search complete", out)
}

func (s *Server) listConflicts(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	edges, err := s.rel.Unresolved(limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessResponse(c, "unresolved conflicts", edges)
}

func (s *Server) conflictsForMemory(c *gin.Context) {
	id := c.Param("id")
	edges, err := s.rel.ConflictsFor(id)
	if err != nil {
		BadRequestError(c, err.Error())
		return
	}
	SuccessResponse(c, "conflicts", edges)
}

func (s *Server) conflictGraph(c *gin.Context) {
	id := c.Param("id")
	depth := queryInt(c, "depth", 2)
	graph, err := s.rel.MapGraph(id, depth)
	if err != nil {
		BadRequestError(c, err.Error())
		return
	}
	SuccessResponse(c, "conflict graph", graph)
}

// writeEngineError maps an engine.Kind to its matching HTTP status.
func (s *Server) writeEngineError(c *gin.Context, err error) {
	switch {
	case engine.IsKind(err, engine.KindDimensionMismatch):
		ErrorResponse(c, 422, err.Error())
	case engine.IsKind(err, engine.KindEmbeddingUnavailable):
		ErrorResponse(c, 503, err.Error())
	case engine.IsKind(err, engine.KindStoreConflict):
		ErrorResponse(c, 409, err.Error())
	case engine.IsKind(err, engine.KindConfigInvalid):
		BadRequestError(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
