package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

// @Summary Create a user account
// @Description Create a staff or resident account. The allowed roles depend on the caller's role.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User creation request"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Role not creatable by caller"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /users [post]
func (h *Handler) createUser(c *gin.Context) {
	log := h.log(c, "createUser")
	var input CreateUserRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), mustActor(c), DTOToCreateUserInput(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToUserResponse(user))
}

// @Summary List users
// @Description Administrative user listing, scoped to the caller's territory
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param municipality_id query string false "Municipality filter"
// @Param barangay_id query string false "Barangay filter"
// @Param is_active query bool false "Active filter"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Number of items per page" default(20)
// @Success 200 {object} PagedUsers
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /users [get]
func (h *Handler) listUsers(c *gin.Context) {
	log := h.log(c, "listUsers")
	var q UserListQuery
	if !h.bindQuery(c, log, &q) {
		return
	}
	filter, err := DTOToUserFilter(q)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	users, total, err := h.users.ListUsers(c.Request.Context(), mustActor(c), filter, q.Page, q.PerPage)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PagedUsers{
		Data: ModelsToUserResponses(users),
		Meta: pageMeta(q.Page, q.PerPage, service.DefaultUsersPerPage, total),
	})
}

// @Summary Verify a resident
// @Description Approve or reject a pending resident account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body VerifyResidentRequest true "Verification decision"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid user ID or request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /users/{id}/verification [post]
func (h *Handler) verifyResident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "verifyResident").WithField("user_id", id)

	var input VerifyResidentRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, err := h.users.VerifyResident(c.Request.Context(), mustActor(c), id, models.VerificationStatus(input.Status), input.Notes)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}
