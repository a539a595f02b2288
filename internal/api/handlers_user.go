package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harshverma7/payment-web/internal/auth"
	"github.com/harshverma7/payment-web/internal/directory"
	"github.com/harshverma7/payment-web/internal/security"
)

type signupRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type signupResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
}

func handleSignup(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
			return
		}

		user, token, err := deps.Directory.Signup(r.Context(), directory.SignupRequest{
			Username:  req.Username,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			if errors.Is(err, directory.ErrUsernameTaken) {
				security.WriteJSONError(w, r, http.StatusConflict, "username_taken", "Email already registered")
				return
			}
			deps.Logger.Error("signup failed", "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred during signup")
			return
		}

		writeJSON(w, r, http.StatusCreated, signupResponse{
			Message: "Signup successful",
			Token:   token,
			UserID:  user.ID,
		})
	}
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signinResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func handleSignin(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
			return
		}

		_, token, err := deps.Directory.Signin(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, directory.ErrInvalidCredentials) {
				security.WriteJSONError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
				return
			}
			deps.Logger.Error("signin failed", "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred during signin")
			return
		}

		writeJSON(w, r, http.StatusOK, signinResponse{
			Message: "Signin successful",
			Token:   token,
		})
	}
}

type updateUserRequest struct {
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

func handleUpdateUser(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			security.WriteJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
			return
		}

		err := deps.Directory.UpdateProfile(r.Context(), userID, directory.UpdateRequest{
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				security.WriteJSONError(w, r, http.StatusNotFound, "user_not_found", "User not found")
				return
			}
			deps.Logger.Error("profile update failed", "user_id", userID, "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred during update")
			return
		}

		// Display names may have changed.
		if deps.Resolver != nil {
			deps.Resolver.Invalidate(r.Context(), userID)
		}

		writeJSON(w, r, http.StatusOK, map[string]string{"message": "User updated successfully"})
	}
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type searchUsersResponse struct {
	Users []userView `json:"users"`
}

func handleSearchUsers(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")

		users, err := deps.Directory.Search(r.Context(), filter)
		if err != nil {
			deps.Logger.Error("user search failed", "error", err)
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred during search")
			return
		}

		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, userView{
				ID:        u.ID,
				Username:  u.Username,
				FirstName: u.FirstName,
				LastName:  u.LastName,
			})
		}
		writeJSON(w, r, http.StatusOK, searchUsersResponse{Users: views})
	}
}
