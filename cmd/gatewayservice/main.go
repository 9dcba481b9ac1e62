package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"gemini-gateway/internal/llm" // The internal package for this service

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// main is the entry point for the gateway.
func main() {
	// Values already in the environment win over the file.
	loadDotEnv()

	apiKey := os.Getenv("API_KEY")
	model := getEnv("GEMINI_MODEL", "gemini-2.5-flash")
	transport := getEnv("GEMINI_TRANSPORT", "sdk")
	staticDir := getEnv("STATIC_DIR", "public")

	maxUploadMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "32"), 10, 64)
	if err != nil {
		log.WithError(err).Fatal("MAX_UPLOAD_MB must be a number")
	}

	geminiClient, err := newGeminiClient(transport, apiKey, model)
	if err != nil {
		log.WithError(err).Fatal("Could not create Gemini client")
	}

	// Inject client into the service
	gatewayService := llm.NewService(geminiClient)

	// Inject service into the handler
	gatewayHandler := llm.NewHandler(gatewayService, maxUploadMB<<20)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)    // Log incoming requests.
	r.Use(middleware.Recoverer) // Prevent panics from crashing the server.
	r.Use(cors.AllowAll().Handler)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("GatewayService OK"))
	})

	// Register all the API routes from the handler
	gatewayHandler.RegisterRoutes(r)

	// The chat page, its script and styles.
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	port := getEnv("PORT", "3000")

	log.WithFields(log.Fields{
		"port":      port,
		"model":     model,
		"transport": transport,
	}).Info("Gemini gateway starting")
	if err := http.ListenAndServe(fmt.Sprintf(":%s", port), r); err != nil {
		log.WithError(err).Fatal("Could not start server")
	}
}

// loadDotEnv reads .env (or the given files) into the process environment.
// A missing file is normal outside local development.
func loadDotEnv(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		log.WithError(err).Debug("No .env file loaded, using system environment variables")
	}
}

// newGeminiClient picks the upstream transport.
func newGeminiClient(transport, apiKey, model string) (llm.GeminiClient, error) {
	if transport == "stub" {
		return llm.NewStubGeminiClient(), nil
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set")
	}

	switch transport {
	case "sdk":
		return llm.NewSDKGeminiClient(context.Background(), apiKey, model)
	case "rest":
		return llm.NewRESTGeminiClient(apiKey, model, getEnv("GEMINI_BASE_URL", llm.DefaultBaseURL)), nil
	default:
		return nil, fmt.Errorf("unknown GEMINI_TRANSPORT %q", transport)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
