package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/prosody-engine/internal/config"
	"github.com/snarg/prosody-engine/internal/extract"
	"github.com/snarg/prosody-engine/internal/metrics"
	"github.com/snarg/prosody-engine/internal/prosody"
)

// AnalyzeHandler serves the analysis endpoints. Each request constructs a
// fresh Processor for the requested provider from server-side credentials.
type AnalyzeHandler struct {
	cfg *config.Config
	reg *prosody.Registry
	log zerolog.Logger
}

func NewAnalyzeHandler(cfg *config.Config, reg *prosody.Registry, log zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{cfg: cfg, reg: reg, log: log.With().Str("handler", "analyze").Logger()}
}

// Routes registers the analysis endpoints.
func (h *AnalyzeHandler) Routes(r chi.Router) {
	r.Post("/api/v1/analyze", h.Analyze)
	r.Post("/api/v1/analyze/upload", h.Upload)
	r.Post("/api/v1/analyze/stream", h.Stream)
	r.Get("/api/v1/providers", h.Providers)
}

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	Text     string          `json:"text"`
	Provider string          `json:"provider"`
	Options  *requestOptions `json:"options"`
}

// requestOptions overrides the server defaults per request. All fields are
// optional; absent means "use the default".
type requestOptions struct {
	WPM         *int     `json:"wpm"`
	Sensitivity *float64 `json:"sensitivity"`
	Model       *string  `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	ChunkSize   *int     `json:"chunk_size"`
}

// analysisOptions merges request overrides onto the defaults.
func (o *requestOptions) analysisOptions() prosody.AnalysisOptions {
	opts := prosody.DefaultOptions()
	if o == nil {
		return opts
	}
	if o.WPM != nil {
		opts.WPM = *o.WPM
	}
	if o.Sensitivity != nil {
		opts.Sensitivity = *o.Sensitivity
	}
	if o.Model != nil {
		opts.Model = *o.Model
	}
	if o.Temperature != nil {
		opts.Temperature = o.Temperature
	}
	if o.MaxTokens != nil {
		opts.MaxTokens = *o.MaxTokens
	}
	return opts
}

func (o *requestOptions) chunkOptions(cfg *config.Config) prosody.ChunkOptions {
	copts := prosody.ChunkOptions{ChunkSize: cfg.ChunkSize, Workers: cfg.ChunkWorkers}
	if o != nil && o.ChunkSize != nil {
		copts.ChunkSize = *o.ChunkSize
	}
	return copts
}

// providerConfig assembles a provider Config from server-side settings.
func (h *AnalyzeHandler) providerConfig(name string) prosody.Config {
	cfg := prosody.Config{MaxTextLength: h.cfg.MaxTextLength, Log: h.log}
	switch name {
	case prosody.ProviderOpenAI:
		cfg.APIKey = h.cfg.OpenAIAPIKey
		cfg.BaseURL = h.cfg.OpenAIBaseURL
		cfg.Model = h.cfg.OpenAIModel
		cfg.Temperature = h.cfg.OpenAITemp
	case prosody.ProviderKokoroTTS:
		cfg.BaseURL = h.cfg.KokoroURL
		cfg.Voice = h.cfg.KokoroVoice
		cfg.Speed = h.cfg.KokoroSpeed
		cfg.Timeout = h.cfg.KokoroTimeout
	}
	return cfg
}

func (h *AnalyzeHandler) processor(name string) (*prosody.Processor, error) {
	if name == "" {
		name = h.cfg.DefaultProvider
	}
	return prosody.NewProcessor(h.reg, name, h.providerConfig(name))
}

// Analyze handles POST /api/v1/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	pr, err := h.processor(req.Provider)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	opts := req.Options.analysisOptions()
	copts := req.Options.chunkOptions(h.cfg)

	start := time.Now()
	res, err := pr.BatchAnalyze(r.Context(), req.Text, opts, copts)
	if err != nil {
		metrics.ObserveAnalysis(pr.ProviderInfo().Name, "error", 0, time.Since(start))
		writeAnalysisError(w, err)
		return
	}
	metrics.ObserveAnalysis(res.Method, "ok", len(res.Words), time.Since(start))
	metrics.ChunksProcessedTotal.Add(float64(prosody.ChunkCount(req.Text, copts.ChunkSize)))

	WriteJSON(w, http.StatusOK, res)
}

// Upload handles POST /api/v1/analyze/upload: a multipart form with a "file"
// field (.txt or .epub) plus optional provider/option fields.
func (h *AnalyzeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	doc, err := extract.FromFile(header.Filename, data)
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "extraction failed", err.Error())
		return
	}

	opts := formOptions(r)
	pr, err := h.processor(r.FormValue("provider"))
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	copts := opts.chunkOptions(h.cfg)

	start := time.Now()
	res, err := pr.BatchAnalyze(r.Context(), doc.Text, opts.analysisOptions(), copts)
	if err != nil {
		metrics.ObserveAnalysis(pr.ProviderInfo().Name, "error", 0, time.Since(start))
		writeAnalysisError(w, err)
		return
	}
	metrics.ObserveAnalysis(res.Method, "ok", len(res.Words), time.Since(start))
	metrics.ChunksProcessedTotal.Add(float64(prosody.ChunkCount(doc.Text, copts.ChunkSize)))

	WriteJSON(w, http.StatusOK, uploadResponse{
		Title:    doc.Title,
		Author:   doc.Author,
		Language: doc.Language,
		Result:   res,
	})
}

type uploadResponse struct {
	Title    string          `json:"title,omitempty"`
	Author   string          `json:"author,omitempty"`
	Language string          `json:"language,omitempty"`
	Result   *prosody.Result `json:"result"`
}

// Stream handles POST /api/v1/analyze/stream as Server-Sent Events: one
// "word" event per analyzed word, then a final "metadata" event.
func (h *AnalyzeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	pr, err := h.processor(req.Provider)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	stream, err := pr.StreamAnalyze(r.Context(), req.Text, req.Options.analysisOptions())
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	var words []prosody.Word
	for {
		word, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeSSE(w, "error", ErrorResponse{Error: err.Error()})
			flusher.Flush()
			metrics.ObserveAnalysis(pr.ProviderInfo().Name, "error", len(words), time.Since(start))
			return
		}
		words = append(words, *word)
		writeSSE(w, "word", word)
		flusher.Flush()
	}

	md := prosody.ComputeMetadata(words, time.Since(start), stream.Model())
	writeSSE(w, "metadata", md)
	flusher.Flush()
	metrics.ObserveAnalysis(pr.ProviderInfo().Name, "ok", len(words), time.Since(start))
}

// Providers handles GET /api/v1/providers: capabilities for every registered
// provider.
func (h *AnalyzeHandler) Providers(w http.ResponseWriter, r *http.Request) {
	names := h.reg.List()
	caps := make([]prosody.Capabilities, 0, len(names))
	for _, name := range names {
		p, err := h.reg.Create(name, h.providerConfig(name))
		if err != nil {
			h.log.Warn().Err(err).Str("provider", name).Msg("capabilities unavailable")
			continue
		}
		caps = append(caps, p.Capabilities())
	}
	WriteJSON(w, http.StatusOK, map[string]any{"providers": caps})
}

// formOptions reads option overrides from multipart form fields.
func formOptions(r *http.Request) *requestOptions {
	o := &requestOptions{}
	if v, ok := formInt(r, "wpm"); ok {
		o.WPM = &v
	}
	if v, ok := formFloat(r, "sensitivity"); ok {
		o.Sensitivity = &v
	}
	if v := r.FormValue("model"); v != "" {
		o.Model = &v
	}
	if v, ok := formInt(r, "chunk_size"); ok {
		o.ChunkSize = &v
	}
	return o
}

// writeAnalysisError maps the error taxonomy onto HTTP statuses: caller
// mistakes are 400, provider runtime failures are 502.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var ie *prosody.InputError
	var upe *prosody.UnknownProviderError
	var ce *prosody.ConfigError
	switch {
	case errors.As(err, &ie):
		WriteErrorDetail(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.As(err, &upe):
		WriteErrorDetail(w, http.StatusBadRequest, "unknown provider", err.Error())
	case errors.As(err, &ce):
		WriteErrorDetail(w, http.StatusBadRequest, "provider not configured", err.Error())
	default:
		WriteErrorDetail(w, http.StatusBadGateway, "analysis failed", err.Error())
	}
}
