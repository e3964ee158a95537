package handlers

import (
	"net/http"

	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/handlers/userctx"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/service/auth"
)

type userResponse struct {
	Message string `json:"message"`
	User    user   `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(s authService, l logger.Logger) http.Handler {
	type request struct {
		Name     string `json:"name" validate:"required,min=2,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone" validate:"required,phone"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role" validate:"omitempty,oneof=student admin"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, pair, err := s.Register(r.Context(), auth.RegisterParams{
			Name:     data.Name,
			Email:    data.Email,
			Phone:    data.Phone,
			Password: data.Password,
			Role:     data.Role,
		})
		if err != nil {
			writeError(w, l, err)
			return
		}

		s.SetTokenPairToResponse(w, pair)
		render.JSONWithStatus(w, userResponse{Message: "User registered successfully", User: newUser(u)}, http.StatusCreated)
	})
}

func handleLogin(s authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, pair, err := s.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			writeError(w, l, err)
			return
		}

		s.SetTokenPairToResponse(w, pair)
		render.JSON(w, userResponse{Message: "Login successful", User: newUser(u)})
	})
}

func handleRefresh(s authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := s.CredentialsFromRequest(r)

		session, err := s.RefreshPair(r.Context(), creds.Refresh)
		if err != nil {
			writeError(w, l, err)
			return
		}

		s.SetTokenPairToResponse(w, *session.Rotated)
		render.JSON(w, userResponse{Message: "Tokens refreshed successfully", User: newUser(session.User)})
	})
}

func handleLogout(s authService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.ClearTokens(w)
		render.JSON(w, messageResponse{Message: "Logged out successfully"})
	})
}

func handleLogoutAll(s authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		if err := s.LogoutAll(r.Context(), u); err != nil {
			writeError(w, l, err)
			return
		}

		s.ClearTokens(w)
		render.JSON(w, messageResponse{Message: "Logged out from all devices"})
	})
}

func handleMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())
		render.JSON(w, userResponse{Message: "Current user retrieved successfully", User: newUser(u)})
	})
}

func handleForgotPassword(s resetService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := s.RequestReset(r.Context(), data.Email); err != nil {
			writeError(w, l, err)
			return
		}

		render.JSON(w, messageResponse{Message: "If an account exists, we've emailed a reset link."})
	})
}

func handleResetPassword(s resetService, a authService, l logger.Logger) http.Handler {
	type request struct {
		Token           string `json:"token"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		// Link from email carries token in query, so it may be posted as is
		token := data.Token
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			render.ServiceError(w, "Reset token is required", http.StatusBadRequest)
			return
		}

		if _, err := s.ResetPassword(r.Context(), token, data.Password); err != nil {
			writeError(w, l, err)
			return
		}

		a.ClearTokens(w)
		render.JSON(w, messageResponse{Message: "Password updated successfully. Please log in again."})
	})
}
