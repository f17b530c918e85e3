package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"suriel-rag/rag"
)

type Server struct {
	ingestor *rag.Ingestor
	answerer *rag.Answerer
	logger   *zap.Logger
}

func NewServer(ingestor *rag.Ingestor, answerer *rag.Answerer, logger *zap.Logger) *Server {
	return &Server{ingestor: ingestor, answerer: answerer, logger: logger}
}

type chatRequest struct {
	Mensaje string `json:"mensaje"`
}

type chatResponse struct {
	Respuesta string `json:"respuesta"`
}

type uploadResponse struct {
	Mensaje string `json:"mensaje"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

// POST /upload  (multipart form, field "file", PDF only)
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Max 10MB for safety
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "no se pudo leer el formulario")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "falta el campo 'file'")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Solo se permiten archivos PDF.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "no se pudo leer el archivo")
		return
	}

	result, err := s.ingestor.IngestPDF(r.Context(), data, header.Filename)
	if err != nil {
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}

	msg := fmt.Sprintf("PDF '%s' cargado y agregado al índice correctamente.", result.Filename)
	if result.Duplicate {
		msg = fmt.Sprintf("PDF '%s' ya estaba en el índice.", result.Filename)
	}
	writeJSON(w, http.StatusOK, uploadResponse{Mensaje: msg})
}

// POST /chat  { "mensaje": "your question" }
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	if strings.TrimSpace(req.Mensaje) == "" {
		writeError(w, http.StatusBadRequest, "el campo 'mensaje' es obligatorio")
		return
	}

	answer, err := s.answerer.Answer(r.Context(), req.Mensaje)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Respuesta: answer.Text})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyDocument), errors.Is(err, rag.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrModelUnavailable), errors.Is(err, rag.ErrEmbeddingUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// withCORS mirrors the permissive development CORS policy of the
// original backend so the static UI can call from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func buildEmbedder(cfg Config) rag.Embedder {
	if cfg.EmbeddingsProvider == "openai" {
		return rag.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
	}
	return rag.NewHashEmbedder()
}

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.VectorDBPath), 0o755); err != nil {
		logger.Fatal("creating vector store directory", zap.Error(err))
	}

	embedder := buildEmbedder(cfg)

	index, err := rag.Open(cfg.VectorDBPath, embedder.Dimension())
	if err != nil {
		logger.Fatal("opening vector index", zap.Error(err))
	}
	defer index.Close()

	chunker, err := rag.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Fatal("invalid chunker configuration", zap.Error(err))
	}

	ingestor := rag.NewIngestor(chunker, embedder, index, logger)
	ingestor.DedupeByHash = cfg.DedupeUploads

	model := rag.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, logger)
	answerer := rag.NewAnswerer(embedder, index, model, logger)
	answerer.TopK = cfg.TopK
	answerer.MinScore = cfg.MinScore
	answerer.Timeout = cfg.ModelTimeout

	srv := NewServer(ingestor, answerer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.healthHandler)
	mux.HandleFunc("/upload", srv.uploadHandler)
	mux.HandleFunc("/chat", srv.chatHandler)
	mux.Handle("/", http.FileServer(http.Dir("./frontend")))

	logger.Info("server running",
		zap.String("addr", ":"+cfg.Port),
		zap.Int("index_entries", index.Len()),
		zap.String("embeddings", cfg.EmbeddingsProvider))
	if err := http.ListenAndServe(":"+cfg.Port, withCORS(mux)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
