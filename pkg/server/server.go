package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"github.com/bastiangx/symptoserve/internal/utils"
	"github.com/bastiangx/symptoserve/pkg/config"
	"github.com/bastiangx/symptoserve/pkg/predict"
)

// Server handles the IPC for symptom predictions
type Server struct {
	predictor *predict.Predictor
	cfg       config.ServerConfig
	decoder   *msgpack.Decoder
	writer    io.Writer
	limiter   *rate.Limiter
	requests  int
}

// NewServer creates a server reading requests from r and writing responses to w.
// A zero RequestsPerSecond disables rate limiting.
func NewServer(p *predict.Predictor, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Server{
		predictor: p,
		cfg:       cfg,
		decoder:   msgpack.NewDecoder(r),
		writer:    w,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// Start begins listening for IPC requests. It returns nil when the input ends.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")

	// Signal that the server is ready
	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return err
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.requests++
		s.handleRequest(ctx, raw)
	}
}

// handleRequest decodes one message and dispatches on its op.
func (s *Server) handleRequest(ctx context.Context, raw msgpack.RawMessage) {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.sendError("", "Invalid msgpack request", 400)
		log.Errorf("Unmarshaling request: %v", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	switch req.Op {
	case OpPredict:
		s.handlePredict(ctx, req)
	case OpSuggest:
		s.handleSuggest(req)
	case OpHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case OpInfo:
		s.sendResponse(InfoResponse{
			ID:         req.ID,
			Symptoms:   s.predictor.Vocabulary().Len(),
			Diseases:   s.predictor.Codec().Len(),
			Strategies: s.predictor.Strategies(),
			Requests:   s.requests,
		})
	case "":
		s.sendError(req.ID, "Missing 'op' parameter", 400)
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handlePredict(ctx context.Context, req Request) {
	if len(req.Symptoms) == 0 {
		s.sendError(req.ID, "Missing 'symptoms' parameter", 400)
		return
	}
	if len(req.Symptoms) > s.cfg.MaxSymptoms {
		s.sendError(req.ID, fmt.Sprintf("At most %d symptoms per request", s.cfg.MaxSymptoms), 400)
		return
	}
	for _, sym := range req.Symptoms {
		if utf8.RuneCountInString(sym) > s.cfg.MaxInputLen {
			s.sendError(req.ID, fmt.Sprintf("Symptom exceeds maximum length of %d characters", s.cfg.MaxInputLen), 400)
			return
		}
	}

	var opts []predict.Option
	if req.TopN > 0 {
		opts = append(opts, predict.WithTopN(req.TopN))
	}
	if req.Threshold != nil {
		opts = append(opts, predict.WithConfidenceThreshold(*req.Threshold))
	}

	start := time.Now()
	result, err := s.predictor.Predict(ctx, req.Symptoms, opts...)
	if err != nil {
		log.Errorf("Predict %s: %v", req.ID, err)
		s.sendError(req.ID, "Prediction failed", 500)
		return
	}
	elapsed := time.Since(start)

	s.sendResponse(PredictResponse{
		ID:          req.ID,
		Status:      result.Outcome(),
		Predictions: nonNil(result.Predictions),
		Matched:     nonNil(result.Matched),
		Count:       len(result.Predictions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleSuggest(req Request) {
	if req.Partial == "" {
		s.sendError(req.ID, "Missing 'partial' parameter", 400)
		return
	}
	if utf8.RuneCountInString(req.Partial) > s.cfg.MaxInputLen {
		s.sendError(req.ID, fmt.Sprintf("Partial exceeds maximum length of %d characters", s.cfg.MaxInputLen), 400)
		return
	}

	start := time.Now()
	symptoms := s.predictor.Suggest(req.Partial, req.Limit)
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(symptoms))
	suggestions := make([]SymptomSuggestion, len(symptoms))
	for i, sym := range symptoms {
		suggestions[i] = SymptomSuggestion{Symptom: sym, Rank: ranks[i]}
	}
	s.sendResponse(SuggestResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// sendResponse marshals the response and writes it in a single call.
func (s *Server) sendResponse(response any) {
	data, err := msgpack.Marshal(response)
	if err != nil {
		log.Errorf("Marshaling response: %v", err)
		s.sendError("", "Internal server error", 500)
		return
	}
	if _, err := s.writer.Write(data); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	log.Debugf("request %s failed (%d): %s", id, code, message)
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

// nonNil keeps empty lists encoded as arrays rather than nil.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
