// narravid/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"narravid/api"
	"narravid/config"
	"narravid/media"
	"narravid/pipeline"
	"narravid/store"
	"narravid/tts"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Working directories: a temp dir for narration artifacts and a
	// durable dir for uploads and merged outputs.
	tempDir, err := os.MkdirTemp("", "narravid_")
	if err != nil {
		log.Fatalf("Could not create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)
	cfg.TempDir = tempDir
	log.Printf("Using temporary directory: %s", tempDir)

	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("Could not create output directory %s: %v", cfg.OutputDir, err)
	}

	// 3. Job store
	jobStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer jobStore.Close()

	// 4. Media components
	inspector, err := media.NewInspector(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media inspector: %v", err)
	}
	muxer, err := media.NewMuxer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media muxer: %v", err)
	}
	reconciler, err := media.NewReconciler(cfg, inspector)
	if err != nil {
		log.Fatalf("Failed to initialize reconciler: %v", err)
	}

	// 5. Speech synthesis: providers join the active set only when their
	// credentials are configured.
	var providers []tts.Provider
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "openai":
			p, err := tts.NewOpenAIProvider(cfg)
			if err != nil {
				log.Printf("Skipping provider openai: %v", err)
				continue
			}
			providers = append(providers, p)
		case "google":
			p, err := tts.NewGoogleProvider(cfg)
			if err != nil {
				log.Printf("Skipping provider google: %v", err)
				continue
			}
			providers = append(providers, p)
		default:
			log.Printf("Unknown TTS provider %q in TTS_PROVIDER_ORDER, skipping", name)
		}
	}
	if len(providers) == 0 {
		log.Println("Warning: no TTS providers configured; every job will fail at synthesis")
	}

	var translator tts.Translator
	if tr, err := tts.NewGeminiTranslator(cfg); err != nil {
		log.Printf("Translation disabled: %v", err)
	} else {
		translator = tr
	}

	synthManager := tts.NewManager(cfg, providers, translator)
	log.Printf("Speech synthesis ready. Providers: %v", synthManager.Providers())

	// 6. Pipeline and its worker pool
	pl, err := pipeline.New(cfg, jobStore, synthManager, inspector, reconciler, muxer)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	runner := pipeline.NewRunner(cfg, jobStore, jobStore, pl)

	// 7. Set up router and server
	router := api.SetupRouter(api.NewHandler(jobStore, runner, cfg), cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 8. Start background services and HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 9. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
