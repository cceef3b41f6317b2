package controllers

import (
	"net/http"

	"github.com/angelmondragon/datavend-backend/api/middleware"
	"github.com/angelmondragon/datavend-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return scopedPing("private")
}

func AdminPing() http.HandlerFunc {
	return scopedPing("admin")
}

func scopedPing(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": scope, "status": "ok"}
		if caller, err := middleware.CallerFromContext(r.Context()); err == nil {
			payload["user_id"] = caller.UserID.String()
			payload["role"] = string(caller.Role)
		}
		responses.WriteSuccess(w, payload)
	}
}
