package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/studyhallhq/studyhall/internal/lru"
	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/plugin/ai"
	"github.com/studyhallhq/studyhall/server/chat"
	"github.com/studyhallhq/studyhall/server/integration"
	"github.com/studyhallhq/studyhall/server/prompt"
	apiv1 "github.com/studyhallhq/studyhall/server/router/api/v1"
	"github.com/studyhallhq/studyhall/store"
)

// clientCacheTTL bounds how long an idle integration client is kept.
const clientCacheTTL = 30 * time.Minute

// Server is the StudyHall HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer wires the chat pipeline and registers the API routes.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	if !profile.IsChatEnabled() {
		return nil, fmt.Errorf("no model provider configured, set STUDYHALL_OPENAI_API_KEY")
	}
	if profile.JWTSecret == "" {
		return nil, fmt.Errorf("no token secret configured, set STUDYHALL_JWT_SECRET")
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())

	provider := ai.NewProvider(&ai.Config{
		BaseURL:         profile.OpenAIBaseURL,
		APIKey:          profile.OpenAIAPIKey,
		ChatModel:       profile.ChatModel,
		TitleModel:      profile.TitleModel,
		ClientCacheSize: profile.ClientCacheSize,
	})

	registry := integration.NewRegistry(
		store,
		&integration.DefaultClientFactory{Profile: profile},
		lru.New[any](profile.ClientCacheSize, clientCacheTTL),
	)

	loop := agent.NewLoop(provider, agent.WithMaxSteps(profile.MaxAgentSteps))
	composer := prompt.NewComposer(prompt.DefaultTemplates())
	titles := chat.NewTitleGenerator(provider, profile.TitleModel, store)

	chatService := chat.NewService(profile, store, registry, composer, provider, loop, titles, slog.Default())

	apiService := apiv1.NewAPIV1Service(profile.JWTSecret, profile, store, chatService)
	apiService.RegisterRoutes(echoServer)

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	return &Server{
		Profile:    profile,
		Store:      store,
		echoServer: echoServer,
	}, nil
}

// Start begins serving. It returns once the listener fails or shuts
// down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	return s.echoServer.Start(address)
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}
	slog.Info("studyhall stopped properly")
}
