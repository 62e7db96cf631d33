package main

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nehalabs/neha/pkg/logger"
	"github.com/nehalabs/neha/pkg/memory"
)

//go:embed static
var staticFiles embed.FS

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Serve the web chat page and HTTP chat API",
		Example: "  neha gateway --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			return runGateway(cmd.Context(), rt)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	AudioB64  string `json:"audio_b64,omitempty"`
}

func runGateway(ctx context.Context, rt *app) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/api/chat", handleChat(rt))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	addr := fmt.Sprintf("%s:%d", rt.cfg.Gateway.Host, rt.cfg.Gateway.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("gateway", "Listening", map[string]interface{}{"addr": addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.InfoC("gateway", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func handleChat(rt *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		// The session id is client-supplied; only the exact shape the
		// store mints is accepted. Anything else (a fresh browser, or
		// a hostile id aimed at the filesystem) gets a new identity
		// the client echoes back on subsequent turns.
		sessionID := strings.TrimSpace(req.SessionID)
		if !memory.ValidSessionID(sessionID) {
			sessionID = rt.store.ResolveSessionID(memory.SessionIdentity{
				Channel: "web",
				ChatID:  uuid.NewString(),
				ActorID: "web-user",
			})
		}

		reply, err := rt.engine.HandleTurn(r.Context(), sessionID, req.Message)
		if err != nil {
			logger.ErrorCF("gateway", "Turn failed to persist",
				map[string]interface{}{"session": sessionID, "error": err.Error()})
			http.Error(w, "failed to persist conversation", http.StatusInternalServerError)
			return
		}

		resp := chatResponse{SessionID: sessionID, Reply: reply}
		if rt.speech != nil {
			if audio := rt.speech.Synthesize(r.Context(), reply); audio != nil {
				resp.AudioB64 = base64.StdEncoding.EncodeToString(audio)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.WarnCF("gateway", "Failed to write response",
				map[string]interface{}{"error": err.Error()})
		}
	}
}
