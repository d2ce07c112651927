package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/messaging"
	appmw "github.com/sudo-init-do/lanceo/internal/middleware"
	"github.com/sudo-init-do/lanceo/internal/session"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

func (s *Server) routes() {
	e := s.e
	signedIn := appmw.RequireSession(s.sessions)

	// Health
	e.GET("/health", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"status": "ok"}) })
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	e.GET("/ws", s.stream)
	e.GET("/state", func(c echo.Context) error { return c.JSON(http.StatusOK, s.state()) })

	// Session
	e.GET("/session", s.getSession)
	auth := e.Group("/auth")
	auth.POST("/signin", s.signIn)
	auth.POST("/signup", s.signUp)
	auth.POST("/demo", s.enterDemo)
	auth.POST("/signout", s.signOut)
	auth.POST("/password/request", s.requestPasswordReset)
	auth.POST("/password/reset", s.resetPassword)
	e.PATCH("/profile", s.updateProfile, signedIn)

	// Listings
	e.GET("/projects", s.listProjects)
	e.GET("/projects/mine", s.followedProjects, signedIn)
	e.GET("/projects/filter", s.getFilter)
	e.PUT("/projects/filter", s.saveFilter)
	e.GET("/projects/:id", s.getProject)
	e.POST("/projects", s.createProject, signedIn)
	e.POST("/projects/:id/apply", s.applyToProject, signedIn, appmw.RequireRoles(user.RoleProvider))
	e.POST("/projects/:id/follow", s.toggleFollow, signedIn)

	// Providers
	e.GET("/freelancers", s.listProviders)
	e.GET("/freelancers/:id", s.getProvider)

	// Conversations
	msgs := e.Group("/messages", signedIn)
	msgs.GET("", s.listConversations)
	msgs.GET("/:id", s.getConversation)
	msgs.POST("/:id", s.sendMessage)
	msgs.POST("/:id/read", s.markConversationRead)

	// Alerts
	notes := e.Group("/notifications", signedIn)
	notes.GET("", s.listAlerts)
	notes.POST("/read-all", s.markAllAlertsRead)
	notes.POST("/:id/read", s.markAlertRead)

	e.GET("/money", s.formatMoney)
}

// ===== Session =====

func (s *Server) getSession(c echo.Context) error {
	return c.JSON(http.StatusOK, viewSession(s.sessions.Current(), s.sessions.Loading()))
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) signIn(c echo.Context) error {
	req := new(signInRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c)
	}
	ss, err := s.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewSession(ss, false))
}

func (s *Server) signUp(c echo.Context) error {
	req := new(session.SignUpInput)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	ss, err := s.sessions.SignUp(c.Request().Context(), *req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewSession(ss, false))
}

func (s *Server) enterDemo(c echo.Context) error {
	ss, err := s.sessions.EnterDemoMode()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewSession(ss, false))
}

func (s *Server) signOut(c echo.Context) error {
	s.sessions.SignOut(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

const resetSentMessage = "If the email exists, a reset link has been sent."

// requestPasswordReset answers the same way whether or not the email is known.
func (s *Server) requestPasswordReset(c echo.Context) error {
	req := new(passwordResetRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	if err := s.sessions.ResetPassword(c.Request().Context(), req.Email); err != nil {
		if statusFor(err) == http.StatusBadRequest {
			return fail(c, err)
		}
		s.log.Warn(c.Request().Context(), "password reset request failed", logger.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": resetSentMessage})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (s *Server) resetPassword(c echo.Context) error {
	if s.resetter == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "password reset unavailable"})
	}
	req := new(resetPasswordRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(c)
	}
	if err := s.resetter.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}

func (s *Server) updateProfile(c echo.Context) error {
	p := new(user.Patch)
	if err := c.Bind(p); err != nil {
		return badRequest(c)
	}
	id, err := s.cache.UpdateIdentity(c.Request().Context(), *p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, id)
}

// ===== Listings =====

// listingFilter reads the filter from the query string, falling back to the
// saved filter when no criterion is given.
func (s *Server) listingFilter(c echo.Context) marketplace.ListingFilter {
	q := c.QueryParams()
	if !q.Has("search") && !q.Has("category") && !q.Has("minBudget") && !q.Has("maxBudget") {
		return s.cache.ListingFilter()
	}
	f := marketplace.DefaultListingFilter()
	f.Search = q.Get("search")
	f.Category = q.Get("category")
	if v, err := strconv.ParseFloat(q.Get("minBudget"), 64); err == nil {
		f.MinBudget = v
	}
	if v, err := strconv.ParseFloat(q.Get("maxBudget"), 64); err == nil {
		f.MaxBudget = v
	}
	return f
}

func (s *Server) listProjects(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.FilterListings(s.listingFilter(c)))
}

func (s *Server) followedProjects(c echo.Context) error {
	list := s.cache.FollowedListings()
	if list == nil {
		list = []marketplace.Listing{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getFilter(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.ListingFilter())
}

func (s *Server) saveFilter(c echo.Context) error {
	f := marketplace.DefaultListingFilter()
	if err := c.Bind(&f); err != nil {
		return badRequest(c)
	}
	if err := s.cache.SaveListingFilter(f); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save filter"})
	}
	return c.JSON(http.StatusOK, f)
}

func (s *Server) getProject(c echo.Context) error {
	l, ok := s.cache.Listing(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) createProject(c echo.Context) error {
	d := new(marketplace.Draft)
	if err := c.Bind(d); err != nil {
		return badRequest(c)
	}
	l, err := s.cache.CreateListing(c.Request().Context(), *d)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

type applyRequest struct {
	Proposal string `json:"proposal"`
}

func (s *Server) applyToProject(c echo.Context) error {
	req := new(applyRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	conv, err := s.cache.ApplyToListing(c.Request().Context(), c.Param("id"), req.Proposal)
	if err != nil && conv.ID == "" {
		return fail(c, err)
	}
	if err != nil {
		// The conversation exists locally even though the proposal was not stored.
		return c.JSON(statusFor(err), echo.Map{"error": message(err), "conversation": conv})
	}
	return c.JSON(http.StatusCreated, conv)
}

func (s *Server) toggleFollow(c echo.Context) error {
	followed, err := s.cache.ToggleFollow(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"followed": followed})
}

// ===== Providers =====

func (s *Server) listProviders(c echo.Context) error {
	f := marketplace.ProviderFilter{Search: c.QueryParam("search"), Category: c.QueryParam("category")}
	return c.JSON(http.StatusOK, s.cache.FilterProviders(f))
}

func (s *Server) getProvider(c echo.Context) error {
	p, ok := s.cache.Provider(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "freelancer not found"})
	}
	return c.JSON(http.StatusOK, p)
}

// ===== Conversations =====

// conversationView adds the thread preview to a conversation.
type conversationView struct {
	messaging.Conversation
	LastMessage *messaging.Message `json:"last_message,omitempty"`
}

func (s *Server) listConversations(c echo.Context) error {
	convs := s.cache.Conversations()
	views := make([]conversationView, 0, len(convs))
	for _, conv := range convs {
		v := conversationView{Conversation: conv}
		if m, ok := conv.Last(); ok {
			v.LastMessage = &m
		}
		views = append(views, v)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"conversations": views,
		"unread":        s.cache.UnreadConversations(),
	})
}

func (s *Server) getConversation(c echo.Context) error {
	conv, ok := s.cache.Conversation(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	return c.JSON(http.StatusOK, conv)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) sendMessage(c echo.Context) error {
	req := new(sendMessageRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c)
	}
	m, err := s.cache.SendMessage(c.Param("id"), req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) markConversationRead(c echo.Context) error {
	if err := s.cache.MarkConversationRead(c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ===== Alerts =====

func (s *Server) listAlerts(c echo.Context) error {
	limit := 0
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return badRequest(c)
		}
		limit = n
	}
	list, total := s.cache.RecentAlerts(limit)
	return c.JSON(http.StatusOK, echo.Map{
		"notifications": list,
		"total":         total,
		"unread":        s.cache.UnreadAlerts(),
	})
}

func (s *Server) markAlertRead(c echo.Context) error {
	if err := s.cache.MarkAlertRead(c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) markAllAlertsRead(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"updated": s.cache.MarkAllAlertsRead()})
}

func (s *Server) formatMoney(c echo.Context) error {
	amount, err := strconv.ParseFloat(c.QueryParam("amount"), 64)
	if err != nil {
		return badRequest(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"formatted": s.cache.FormatMoney(amount)})
}
