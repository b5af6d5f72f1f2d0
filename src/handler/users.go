package handler

import (
	"net/http"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/auth"
	"portfoliotracker/src/response"
)

func MeHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := users.FindByID(r.Context(), userID)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "Me", "user_id": userID})
			return
		}
		if user == nil {
			response.Error(w, http.StatusNotFound, "User not found")
			return
		}
		response.OK(w, user.ToMeResponse())
	}
}

func GetUserHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid user id")
			return
		}

		user, err := users.FindByID(r.Context(), id)
		if err != nil {
			writeError(w, err, logger.Fields{"op": "GetUser", "user_id": id})
			return
		}
		if user == nil {
			response.Error(w, http.StatusNotFound, "User not found")
			return
		}
		response.OK(w, user.ToResponse())
	}
}
