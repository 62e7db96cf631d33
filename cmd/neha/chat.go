package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nehalabs/neha/pkg/config"
	"github.com/nehalabs/neha/pkg/engine"
	"github.com/nehalabs/neha/pkg/logger"
	"github.com/nehalabs/neha/pkg/memory"
	"github.com/nehalabs/neha/pkg/providers"
	"github.com/nehalabs/neha/pkg/search"
	"github.com/nehalabs/neha/pkg/speech"
)

// app bundles the wired collaborators behind one turn pipeline.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *memory.FileStore
	speech *speech.Service
}

func buildRuntime(cfg *config.Config) (*app, error) {
	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return nil, err
	}

	workspace := cfg.WorkspacePath()
	store := memory.NewFileStore(filepath.Join(workspace, "sessions"))

	var lookup search.Lookup
	if cfg.Search.Enabled {
		timeout := time.Duration(cfg.SearchTimeout()) * time.Second
		lookup = search.NewClient(search.NewDuckDuckGoProvider(timeout), timeout, cfg.Search.MaxResults)
	}

	var speechSvc *speech.Service
	if cfg.Speech.Enabled {
		cache, err := speech.NewSQLiteCache(filepath.Join(workspace, "state", "audio.db"))
		if err != nil {
			logger.WarnCF("speech", "Audio cache unavailable, synthesizing without cache",
				map[string]interface{}{"error": err.Error()})
			cache = nil
		}

		var primary speech.Synthesizer
		if key := strings.TrimSpace(cfg.Speech.ElevenLabs.APIKey); key != "" {
			primary = speech.NewElevenLabsSynthesizer(key, cfg.Speech.ElevenLabs.Voice, cfg.Speech.ElevenLabs.Model)
		} else {
			logger.WarnC("speech", "ElevenLabs API key not configured, using translate TTS only")
		}
		fallback := speech.NewGTTSSynthesizer(cfg.Speech.GTTS.Lang, cfg.Speech.GTTS.TLD)
		speechSvc = speech.NewService(primary, fallback, cache, cfg.Speech.ElevenLabs.Voice)
	}

	return &app{
		cfg:    cfg,
		engine: engine.New(cfg, store, provider, lookup),
		store:  store,
		speech: speechSvc,
	}, nil
}

func newChatCommand() *cobra.Command {
	var (
		message string
		session string
		voice   bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Neha in the terminal",
		Long:  "Run an interactive REPL session or send a one-shot message.",
		Example: strings.Join([]string{
			"  neha chat",
			"  neha chat --session friends:rahul",
			"  neha chat --message \"mausam kaisa hai aaj?\" --voice",
		}, "\n"),
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

			sessionID := resolveChatSession(rt.store, session)
			ctx := cmd.Context()

			if strings.TrimSpace(message) != "" {
				return runOneShot(ctx, rt, sessionID, message, voice)
			}
			return runREPL(ctx, rt, sessionID, voice)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session identity as channel:chat (default: per-install session)")
	cmd.Flags().BoolVar(&voice, "voice", false, "Also synthesize replies and save them as MP3")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func resolveChatSession(store *memory.FileStore, session string) string {
	identity := memory.SessionIdentity{Channel: "cli", ActorID: "local-user"}
	if parts := strings.SplitN(session, ":", 2); len(parts) == 2 {
		identity.Channel = parts[0]
		identity.ChatID = parts[1]
	} else if strings.TrimSpace(session) != "" {
		identity.ChatID = session
	}
	return store.ResolveSessionID(identity)
}

func runOneShot(ctx context.Context, rt *app, sessionID, message string, voice bool) error {
	reply, err := rt.engine.HandleTurn(ctx, sessionID, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	if voice {
		speakToFile(ctx, rt, reply)
	}
	return nil
}

func runREPL(ctx context.Context, rt *app, sessionID string, voice bool) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s %s - chat with %s (Ctrl+D to exit)\n", appName, formatVersion(), rt.cfg.Persona.Name)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			fmt.Println("bye!")
			return nil
		}
		if err != nil {
			return err
		}

		reply, err := rt.engine.HandleTurn(ctx, sessionID, line)
		if err != nil {
			// The reply is still valid; the session just didn't persist.
			logger.ErrorCF("chat", "Turn completed but failed to persist",
				map[string]interface{}{"error": err.Error()})
		}
		fmt.Printf("%s> %s\n", strings.ToLower(rt.cfg.Persona.Name), reply)

		if voice {
			speakToFile(ctx, rt, reply)
		}
	}
}

func speakToFile(ctx context.Context, rt *app, reply string) {
	if rt.speech == nil {
		return
	}
	audio := rt.speech.Synthesize(ctx, reply)
	if audio == nil {
		logger.WarnC("chat", "No audio generated for reply")
		return
	}

	path := filepath.Join(rt.cfg.WorkspacePath(), "last-reply.mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		logger.WarnCF("chat", "Failed to write reply audio",
			map[string]interface{}{"error": err.Error()})
		return
	}
	fmt.Printf("(voice saved to %s)\n", path)
}
