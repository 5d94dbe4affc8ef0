package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// AdminUserInput is the back-office form creating an account.
type AdminUserInput struct {
	Email     string            `json:"email" schema:"email"`
	Password  string            `json:"password" schema:"password"`
	FirstName string            `json:"first_name" schema:"first_name"`
	LastName  string            `json:"last_name" schema:"last_name"`
	Phone     string            `json:"phone" schema:"phone"`
	Role      entities.UserRole `json:"role" schema:"role"`
}

type temporaryPasswordRequest struct {
	Notify bool `json:"notify" schema:"notify"`
}

// ListUsers lists accounts, optionally filtered by name or email.
// GET /admin/users?q=&limit=&offset=
func (ac *AdminController) ListUsers(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := ac.accounts.List(c.Query("q"), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// GetUser returns one account.
// GET /admin/users/:id
func (ac *AdminController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := ac.accounts.Get(id)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser creates an account with a chosen password.
// POST /admin/users
func (ac *AdminController) CreateUser(c *gin.Context) {
	var in AdminUserInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid user form: "+err.Error())
		return
	}
	if in.Role == "" {
		in.Role = entities.UserRoleUser
	}

	user, err := ac.accounts.Create(auth.NewUser{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      in.Role,
	})
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Utilisateur créé.", nil, "", user)
}

// UpdateUser edits an account. An administrator cannot demote themselves.
// PUT /admin/users/:id
func (ac *AdminController) UpdateUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.UserPatch
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid user form: "+err.Error())
		return
	}

	user, err := ac.accounts.Update(actor, id, in)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Utilisateur mis à jour.", nil, "", user)
}

// DeleteUser removes an account. Administrators cannot delete themselves.
// DELETE /admin/users/:id
func (ac *AdminController) DeleteUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := ac.accounts.Delete(actor, id)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	ac.logDelete(c, "user", user.ID, user.Email)
	respondFlash(c, ac.sessions, http.StatusOK, "Utilisateur supprimé.", nil, "", nil)
}

// ToggleUser flips the verified flag that allows an account to sign in.
// POST /admin/users/:id/toggle
func (ac *AdminController) ToggleUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := ac.accounts.Toggle(actor, id)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogUserToggle(actor.ID, user.ID, user.IsVerified, c.ClientIP())
	}

	text := "Compte désactivé."
	if user.IsVerified {
		text = "Compte activé."
	}
	respondFlash(c, ac.sessions, http.StatusOK, text, nil, "", user)
}

// SendResetPassword emails the user a single-use reset link.
// POST /admin/users/:id/send-reset
func (ac *AdminController) SendResetPassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, warn, err := ac.accounts.SendResetPassword(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogPasswordReset(ac.actorID(c), user.ID, "email_link", c.ClientIP(), warn)
	}
	respondFlash(c, ac.sessions, http.StatusOK,
		"Lien de réinitialisation envoyé à "+user.Email+".",
		warn, "Le lien a été créé mais l'email n'a pas pu être envoyé.", nil)
}

// TemporaryPassword replaces the password with a generated one, returned once.
// With notify set the password is also emailed to the user.
// POST /admin/users/:id/temp-password
func (ac *AdminController) TemporaryPassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req temporaryPasswordRequest
	if err := bindPayload(c, &req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	tmp, warn, err := ac.accounts.SetTemporaryPassword(c.Request.Context(), id, req.Notify)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogPasswordReset(ac.actorID(c), tmp.User.ID, "temporary_password", c.ClientIP(), warn)
	}
	respondFlash(c, ac.sessions, http.StatusOK,
		"Mot de passe temporaire généré.",
		warn, "Mot de passe temporaire généré, mais l'email n'a pas pu être envoyé.", tmp)
}
