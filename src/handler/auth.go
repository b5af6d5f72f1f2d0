package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/model"
	"portfoliotracker/src/response"
	"portfoliotracker/src/security"
)

const minPasswordLength = 8

// AuthHandlers serves the public signup and login routes.
type AuthHandlers struct {
	Users      userStore
	Sessions   sessionCreator
	Tokens     tokenIssuer
	IDs        idGenerator
	BcryptCost int
}

func (h *AuthHandlers) SignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.SignUpPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid signup payload")
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		email := strings.ToLower(strings.TrimSpace(payload.Email))
		if !strings.Contains(email, "@") {
			response.Error(w, http.StatusBadRequest, "Invalid email")
			return
		}
		if len(payload.Password) < minPasswordLength {
			response.Error(w, http.StatusBadRequest, "Password is too short")
			return
		}

		hashed, err := security.HashPassword(payload.Password, h.BcryptCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash password")
			response.Error(w, http.StatusInternalServerError, "Unable to create user")
			return
		}

		id, err := h.IDs.Generate()
		if err != nil {
			writeError(w, err, logger.Fields{"op": "SignUp"})
			return
		}

		user := &model.User{
			ID:             id,
			Email:          email,
			HashedPassword: hashed,
			Status:         model.UserStatusActive,
		}
		if name := strings.TrimSpace(payload.Name); name != "" {
			user.Name = &name
		}

		if err := h.Users.Create(r.Context(), user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				response.Error(w, http.StatusBadRequest, "Email already exists")
				return
			}
			writeError(w, err, logger.Fields{"op": "SignUp"})
			return
		}

		h.startSession(w, r, user)
	}
}

func (h *AuthHandlers) LoginWithPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.LoginPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid login payload")
			response.Error(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		user, err := h.Users.FindByEmail(r.Context(), payload.Email)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "LoginWithPassword"})
			return
		}
		if user == nil || security.CheckPassword(user.HashedPassword, payload.Password) != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if user.Status != model.UserStatusActive {
			logger.WithField("user_id", user.ID).Warn("login attempt on inactive user")
			response.Error(w, http.StatusForbidden, "User is not active")
			return
		}

		h.startSession(w, r, user)
	}
}

func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessionID, err := h.IDs.Generate()
	if err != nil {
		writeError(w, err, logger.Fields{"op": "startSession", "user_id": user.ID})
		return
	}

	now := time.Now()
	session := model.UserSession{
		SessionID: sessionID,
		UserID:    user.ID,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(h.Tokens.TTL()),
	}
	if err := h.Sessions.Create(r.Context(), &session); err != nil {
		writeError(w, err, logger.Fields{"op": "startSession", "user_id": user.ID})
		return
	}

	token, err := h.Tokens.Issue(session)
	if err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Error("failed to sign token")
		response.Error(w, http.StatusInternalServerError, "Unable to create session")
		return
	}

	response.OK(w, model.AuthResponse{UserID: user.ID, Token: token})
}
