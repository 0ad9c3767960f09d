package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fiffu/betterave/lib"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailBody struct {
	Email string `json:"email" validate:"required,email"`
}

type resetTokenBody struct {
	Email      string `json:"email" validate:"required,email"`
	ResetToken string `json:"resetToken" validate:"required"`
}

type resetConfirmBody struct {
	Email       string `json:"email" validate:"required,email"`
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (ctrl *controller) login(w http.ResponseWriter, r *http.Request) {
	if a := actorFrom(r.Context()); a != nil && !a.APIKey {
		ctrl.resolve(w, http.StatusOK, map[string]any{"message": "User already logged in"})
		return
	}

	var body loginBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	user, err := ctrl.svc.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	if err := ctrl.sess.issue(w, user); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	message := "Login successful"
	if role := string(user.Role); role != "" {
		message = strings.ToUpper(role[:1]) + role[1:] + " login successful"
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": message, "user_id": user.ID})
}

func (ctrl *controller) logout(w http.ResponseWriter, r *http.Request) {
	ctrl.sess.clear(w)
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Logged out successfully", "status": "success"})
}

func (ctrl *controller) checkAuth(w http.ResponseWriter, r *http.Request) {
	a := actorFrom(r.Context())
	if a == nil {
		ctrl.reject(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"status":  "authenticated",
		"role":    a.Role,
		"user_id": a.UserID,
	})
}

func (ctrl *controller) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	err := ctrl.svc.RequestPasswordReset(r.Context(), body.Email)
	if errors.Is(err, lib.ErrNotFound) {
		ctrl.reject(w, http.StatusNotFound, errors.New("User with provided email not found"))
		return
	} else if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Password reset instructions sent to your email"})
}

func (ctrl *controller) validateToken(w http.ResponseWriter, r *http.Request) {
	var body resetTokenBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if !ctrl.svc.ValidateResetToken(r.Context(), body.Email, body.ResetToken) {
		ctrl.resolve(w, http.StatusBadRequest, map[string]any{"isValid": false})
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"isValid": true})
}

func (ctrl *controller) resetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	var body resetConfirmBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	err := ctrl.svc.ConfirmPasswordReset(r.Context(), body.Email, body.ResetToken, body.NewPassword)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Password reset successful"})
}
