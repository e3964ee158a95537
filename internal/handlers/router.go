package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/handlers/middleware"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/auth"
	"github.com/nkiryanov/seatpass/internal/service/seat"
	"github.com/nkiryanov/seatpass/internal/service/subscription"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth         authService
	Reset        resetService
	Subscription subscriptionService
	Seat         seatService
	Metrics      metricsService
	DB           pinger
}

func NewRouter(s Services, l logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth, s.Metrics, l)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	subscribed := middleware.RequireActiveSubscription(s.Subscription, l)

	api := http.NewServeMux()

	api.Handle("POST /auth/register", handleRegister(s.Auth, l))
	api.Handle("POST /auth/login", handleLogin(s.Auth, l))
	api.Handle("POST /auth/refresh", handleRefresh(s.Auth, l))
	api.Handle("POST /auth/logout", handleLogout(s.Auth))
	api.Handle("POST /auth/logout-all", chain(handleLogoutAll(s.Auth, l), withAuth))
	api.Handle("GET /auth/me", chain(handleMe(), withAuth))
	api.Handle("POST /auth/forgot-password", handleForgotPassword(s.Reset, l))
	api.Handle("POST /auth/reset-password", handleResetPassword(s.Reset, s.Auth, l))

	api.Handle("GET /subscription/current", chain(handleCurrentSubscription(s.Subscription, l), withAuth))
	api.Handle("PATCH /subscription/{id}/status", chain(handleUpdateSubscriptionStatus(s.Subscription, l), withAuth, adminOnly))
	api.Handle("POST /admin/subscriptions", chain(handleCreateSubscription(s.Subscription, l), withAuth, adminOnly))

	api.Handle("GET /seats", chain(handleListSeats(s.Seat, l), withAuth, subscribed))
	api.Handle("GET /admin/seats", chain(handleListSeats(s.Seat, l), withAuth, adminOnly))
	api.Handle("POST /admin/seats", chain(handleCreateSeat(s.Seat, l), withAuth, adminOnly))
	api.Handle("PATCH /admin/seats/{id}", chain(handleUpdateSeat(s.Seat, l), withAuth, adminOnly))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /healthz", handleHealth(s.DB, l))
	root.Handle("GET /metrics", s.Metrics.Handler())

	handler := chain(root,
		middleware.LoggerMiddleware(l),
		s.Metrics.Middleware,
	)

	return handler
}

type authService interface {
	// Register user and get login TokenPair
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	// Has to return apperrors.ErrRoleNotAllowed if role can't be self assigned
	Register(ctx context.Context, p auth.RegisterParams) (models.User, models.TokenPair, error)

	// Has to return apperrors.ErrInvalidCredentials on unknown email or wrong password
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Rotate tokens using refresh token
	// Has to return *auth.SessionError if refresh token is not acceptable
	RefreshPair(ctx context.Context, refresh string) (auth.Session, error)

	// Invalidate every token issued to user
	LogoutAll(ctx context.Context, user models.User) error

	CredentialsFromRequest(r *http.Request) auth.Credentials
	Authenticate(ctx context.Context, c auth.Credentials) (auth.Session, error)
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)
}

type resetService interface {
	// Has to return nil for unknown emails as well
	RequestReset(ctx context.Context, email string) error

	// Has to return apperrors.ErrInvalidOrExpiredToken if token is not usable
	ResetPassword(ctx context.Context, raw string, newPassword string) (models.User, error)
}

type subscriptionService interface {
	// Has to return apperrors.ErrUserNotFound if subscriber does not exist
	Create(ctx context.Context, p subscription.CreateParams) (models.Subscription, error)

	// Has to return apperrors.ErrSubscriptionNotFound if user never subscribed
	GetCurrent(ctx context.Context, userID uuid.UUID) (subscription.Current, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (models.Subscription, error)
	CheckAccess(ctx context.Context, user models.User) error
}

type seatService interface {
	List(ctx context.Context) ([]models.Seat, error)

	// Has to return apperrors.ErrSeatAlreadyExists if number is taken
	Create(ctx context.Context, number int, seatType string) (models.Seat, error)
	UpdateOccupancy(ctx context.Context, id uuid.UUID, upd seat.OccupancyUpdate) (models.Seat, error)
}

type metricsService interface {
	AuthFailed(reason string)
	SessionRefreshed()
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type pinger interface {
	Ping(ctx context.Context) error
}
