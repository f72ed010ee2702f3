package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/storage"
)

type updateUserRequest struct {
	Name string `json:"name" binding:"required,min=1"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	user, err := s.users.FindByID(id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "User not found")
			return
		}
		debuglog.Errorf("loading user %s: %v", id.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// updateUser changes the profile name and returns a session token
// carrying the new name.
func (s *Server) updateUser(c *gin.Context) {
	session, ok := auth.SessionFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		abortField(c, "Invalid input", "name", "is required")
		return
	}

	user, err := s.users.UpdateProfile(session.Identity.UserID, storage.ProfileUpdate{Name: &name})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "User not found")
			return
		}
		debuglog.Errorf("updating user %s: %v", session.Identity.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to update profile")
		return
	}

	patched, err := s.sessions.Sign(s.sessions.Patch(session, auth.IdentityPatch{Name: &user.Name}))
	if err != nil {
		debuglog.Errorf("re-signing session for %s: %v", user.ID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to update profile")
		return
	}
	s.cookies.Set(c, patched.Token)
	c.Header(auth.RefreshHeader, patched.Token)

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user.Profile(),
		"token":   patched.Token,
	})
}

func (s *Server) changePassword(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing session context")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, err)
		return
	}

	err := s.users.VerifyAndChangePassword(id.UserID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
	case errors.Is(err, storage.ErrNotFound):
		AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "User not found")
	case errors.Is(err, storage.ErrIncorrectPassword):
		abortField(c, "Incorrect current password", "currentPassword", "is incorrect")
	case errors.Is(err, storage.ErrPasswordTooLong):
		abortField(c, "Invalid input", "newPassword", passwordTooLong)
	default:
		debuglog.Errorf("changing password for %s: %v", id.UserID, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to update password")
	}
}
