package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/services"
)

// ProfileController handles user profile operations.
type ProfileController struct {
	accounts *services.AccountService
}

// NewProfileController creates a new ProfileController.
func NewProfileController(accountService *services.AccountService) *ProfileController {
	return &ProfileController{accounts: accountService}
}

// Show returns the caller's account.
// GET /api/profile
func (pc *ProfileController) Show(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update saves the caller's names and phone number.
// POST /api/profile
func (pc *ProfileController) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var in services.ProfileInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid profile payload")
		return
	}

	updated, err := pc.accounts.UpdateProfile(user.ID, in)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, updated)
}

type passwordChange struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// ChangePassword handles password change requests.
// POST /api/profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var in passwordChange
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid password payload")
		return
	}
	if in.NewPassword != in.ConfirmPassword {
		respondBadRequest(c, "new passwords do not match")
		return
	}

	if err := pc.accounts.ChangePassword(user.ID, in.CurrentPassword, in.NewPassword); err != nil {
		respondServiceError(c, err, "user")
		return
	}
	respondSuccess(c, "password changed")
}
