// Package server exposes the identity state and invitation operations over
// HTTP for the dashboard frontend.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	accessdomain "opsdesk/backend/internal/access/domain"
	"opsdesk/backend/internal/identitystate"
	invitationdomain "opsdesk/backend/internal/invitation/domain"
	invitationservice "opsdesk/backend/internal/invitation/service"
	profiledomain "opsdesk/backend/internal/profile/domain"
)

// IdentityState is the identity container surface the handlers consume.
type IdentityState interface {
	Snapshot() identitystate.Snapshot
	SignOut(ctx context.Context) error
	RefreshProfile(ctx context.Context)
	SetRoleOverride(role accessdomain.Role)
}

// Invitations is the invitation service surface the handlers consume.
type Invitations interface {
	Send(ctx context.Context, email string, role accessdomain.Role) (*invitationdomain.Invitation, error)
	Accept(ctx context.Context, id string) (*invitationdomain.Invitation, error)
}

// Server is the HTTP server for the identity pipeline.
type Server struct {
	echo        *echo.Echo
	state       IdentityState
	invitations Invitations
}

// New returns a Server with all routes registered.
func New(state IdentityState, invitations Invitations) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("opsdesk-identity"))

	s := &Server{echo: e, state: state, invitations: invitations}

	e.GET("/healthz", s.health)
	e.GET("/v1/identity", s.getIdentity)
	e.POST("/v1/identity/refresh", s.refreshProfile)
	e.PUT("/v1/identity/role", s.setRoleOverride)
	e.POST("/v1/auth/signout", s.signOut)
	e.POST("/v1/invitations", s.createInvitation)
	e.POST("/v1/invitations/:id/accept", s.acceptInvitation)

	return s
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type identityResponse struct {
	Identity *identityPayload `json:"identity"`
	Profile  *profilePayload  `json:"profile"`
	Role     string           `json:"role"`
	Loading  bool             `json:"loading"`
	Ready    bool             `json:"ready"`
}

type identityPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type profilePayload struct {
	ID          string `json:"id"`
	AuthID      string `json:"auth_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	FullName    string `json:"full_name"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	Synthesized bool   `json:"synthesized"`
}

type invitationPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getIdentity(c echo.Context) error {
	snap := s.state.Snapshot()
	resp := identityResponse{
		Role:    string(snap.Role),
		Loading: snap.Loading,
		Ready:   snap.Ready,
	}
	if snap.Identity != nil {
		resp.Identity = &identityPayload{ID: snap.Identity.ID, Email: snap.Identity.Email}
	}
	if snap.Profile != nil {
		resp.Profile = toProfilePayload(snap.Profile)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) refreshProfile(c echo.Context) error {
	s.state.RefreshProfile(c.Request().Context())
	return s.getIdentity(c)
}

type roleOverrideRequest struct {
	Role string `json:"role"`
}

func (s *Server) setRoleOverride(c echo.Context) error {
	var req roleOverrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "role is required")
	}
	s.state.SetRoleOverride(accessdomain.Role(req.Role))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) signOut(c echo.Context) error {
	if err := s.state.SignOut(c.Request().Context()); err != nil {
		// Surfaced so the frontend can show a retry affordance; a silently
		// failed sign-out would leave privileged UI visible.
		return echo.NewHTTPError(http.StatusBadGateway, "sign-out failed: "+err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) createInvitation(c echo.Context) error {
	var req createInvitationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	inv, err := s.invitations.Send(c.Request().Context(), req.Email, accessdomain.Role(req.Role))
	if err != nil {
		if errors.Is(err, invitationservice.ErrInvalidEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toInvitationPayload(inv))
}

func (s *Server) acceptInvitation(c echo.Context) error {
	inv, err := s.invitations.Accept(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, invitationservice.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, invitationservice.ErrAlreadyAccepted):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, toInvitationPayload(inv))
}

func toProfilePayload(p *profiledomain.Profile) *profilePayload {
	return &profilePayload{
		ID:          p.ID,
		AuthID:      p.AuthID,
		Email:       p.Email,
		Role:        string(p.Role),
		Status:      string(p.Status),
		FullName:    p.FullName,
		Department:  p.Department,
		Position:    p.Position,
		Synthesized: p.Synthesized,
	}
}

func toInvitationPayload(i *invitationdomain.Invitation) *invitationPayload {
	return &invitationPayload{
		ID:          i.ID,
		Email:       i.Email,
		Role:        string(i.Role),
		Status:      string(i.Status),
		RequestedAt: i.RequestedAt.UTC().Format(time.RFC3339),
	}
}
