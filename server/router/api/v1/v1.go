package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/studyhallhq/studyhall/internal/profile"
	"github.com/studyhallhq/studyhall/server/auth"
	"github.com/studyhallhq/studyhall/server/chat"
	"github.com/studyhallhq/studyhall/server/middleware"
	"github.com/studyhallhq/studyhall/store"
)

// APIV1Service owns the /api/v1 HTTP surface.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store
	Chat    *chat.Service

	chatLimiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, chatService *chat.Service) *APIV1Service {
	return &APIV1Service{
		Secret:      secret,
		Profile:     profile,
		Store:       store,
		Chat:        chatService,
		chatLimiter: middleware.NewRateLimiter(float64(profile.ChatRatePerMin), profile.ChatRateBurst),
	}
}

// RegisterRoutes attaches the v1 API to the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(echomw.CORS())
	apiGroup.Use(s.authMiddleware)

	chatGroup := apiGroup.Group("/chat")
	chatGroup.POST("/messages/stream", s.StreamChatMessage, s.rateLimitMiddleware)
	chatGroup.POST("/messages", s.PostChatMessage, s.rateLimitMiddleware)
	chatGroup.GET("/conversations", s.ListConversations)
	chatGroup.GET("/conversations/:uid/turns", s.ListConversationTurns)
	chatGroup.DELETE("/conversations/:uid", s.DeleteConversation)

	apiGroup.GET("/system/metrics", s.GetMetricsOverview)

	integrationGroup := apiGroup.Group("/integrations")
	integrationGroup.GET("", s.ListIntegrations)
	integrationGroup.PUT("/:kind", s.ConnectIntegration)
	integrationGroup.DELETE("/:kind", s.DisconnectIntegration)
}

// authMiddleware verifies the bearer token and stashes the user ID in
// both the echo context and the request context.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.Authenticate(c.Request().Header.Get("Authorization"), s.Secret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		userID, err := claims.UserID()
		if err != nil {
			slog.Warn("rejecting token with malformed subject", "subject", claims.Subject)
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		c.Set(userIDContextKey, userID)
		c.SetRequest(c.Request().WithContext(auth.SetUserIDInContext(c.Request().Context(), userID)))
		return next(c)
	}
}

func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.chatLimiter.AllowUser(currentUserID(c)) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many chat requests, slow down")
		}
		return next(c)
	}
}

const userIDContextKey = "studyhall.user-id"

func currentUserID(c echo.Context) int32 {
	id, _ := c.Get(userIDContextKey).(int32)
	return id
}
