package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opencommune/commune/internal/announcement"
	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	"github.com/opencommune/commune/internal/auth"
	authdomain "github.com/opencommune/commune/internal/auth/domain"
	"github.com/opencommune/commune/internal/auth/session"
	"github.com/opencommune/commune/internal/authorization"
	"github.com/opencommune/commune/internal/config"
	"github.com/opencommune/commune/internal/event"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	"github.com/opencommune/commune/internal/group"
	groupdomain "github.com/opencommune/commune/internal/group/domain"
	"github.com/opencommune/commune/internal/notification"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/feed"
	"github.com/opencommune/commune/internal/notification/live"
	"github.com/opencommune/commune/internal/observability"
	obsmiddleware "github.com/opencommune/commune/internal/observability/logger"
	obsmetrics "github.com/opencommune/commune/internal/observability/metrics"
	"github.com/opencommune/commune/internal/onboarding"
	"github.com/opencommune/commune/internal/organization"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"github.com/opencommune/commune/internal/providers"
	"github.com/opencommune/commune/internal/ratelimit"
	"github.com/opencommune/commune/internal/search"
	"github.com/opencommune/commune/internal/signup"
	signupdomain "github.com/opencommune/commune/internal/signup/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	session.Module,
	providers.Module,
	organization.Module,
	event.Module,
	announcement.Module,
	group.Module,
	notification.Module,
	search.Module,
	onboarding.Module,
	ratelimit.Module,
	signup.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", httpMetrics.Handler())

	return r
}

func registerGin(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, _ *Server) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	eventSvc        eventdomain.Service
	announcementSvc announcementdomain.Service
	groupSvc        groupdomain.Service
	notificationSvc notificationdomain.Service
	feeds           *feed.Registry
	hub             *live.Hub
	searcher        *search.Searcher
	searchSessions  *searchSessions
	searchLimiter   *ratelimit.SearchLimiter
	tuning          *config.TuningHolder
	wizards         *onboarding.Registry
	signupsvc       signupdomain.Service
	metrics         *obsmetrics.HTTPMetrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	EventSvc        eventdomain.Service
	AnnouncementSvc announcementdomain.Service
	GroupSvc        groupdomain.Service
	NotificationSvc notificationdomain.Service
	Feeds           *feed.Registry
	Hub             *live.Hub
	Searcher        *search.Searcher
	SearchLimiter   *ratelimit.SearchLimiter
	Tuning          *config.TuningHolder
	Wizards         *onboarding.Registry
	Signupsvc       signupdomain.Service
	Metrics         *obsmetrics.HTTPMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		eventSvc:        p.EventSvc,
		announcementSvc: p.AnnouncementSvc,
		groupSvc:        p.GroupSvc,
		notificationSvc: p.NotificationSvc,
		feeds:           p.Feeds,
		hub:             p.Hub,
		searcher:        p.Searcher,
		searchSessions:  newSearchSessions(p.Metrics.RecordStaleDiscard),
		searchLimiter:   p.SearchLimiter,
		tuning:          p.Tuning,
		wizards:         p.Wizards,
		signupsvc:       p.Signupsvc,
		metrics:         p.Metrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerUIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)
	auth.GET("/me", s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.WebAuthRequired())

	// -------- Organizations --------
	api.GET("/orgs", s.ListOrganizations)
	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs/:id", s.GetOrganization)
	api.GET("/orgs/:id/members", s.ListOrganizationMembers)
	api.POST("/orgs/:id/visibility", s.UpdateOrganizationVisibility)
	api.POST("/orgs/:id/invites", s.InviteOrganizationMembers)
	api.POST("/invites/:code/accept", s.AcceptInvite)

	// -------- Onboarding --------
	api.GET("/onboarding", s.GetOnboardingState)
	api.POST("/onboarding/next", s.OnboardingNext)
	api.POST("/onboarding/skip", s.OnboardingSkip)
	api.POST("/onboarding/back", s.OnboardingBack)
	api.DELETE("/onboarding", s.OnboardingReset)

	// -------- Notifications --------
	api.GET("/notifications", s.ListNotifications)
	api.POST("/notifications/read-all", s.MarkAllNotificationsRead)
	api.POST("/notifications/:id/read", s.MarkNotificationRead)
	api.POST("/notifications/:id/click", s.ClickNotification)
	api.GET("/notifications/stream", s.StreamNotificationChanges)

	// -------- Search --------
	api.GET("/search", s.SearchRateLimit(), s.SearchDirectory)
	api.POST("/search/query", s.SetSearchQuery)
	api.GET("/search/stream", s.StreamSearchResults)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.WebAuthRequired())
	admin.Use(s.OrgContext())

	anyRole := s.RequireRole(organizationdomain.RoleOwner, organizationdomain.RoleAdmin, organizationdomain.RoleMember)
	adminRole := s.RequireRole(organizationdomain.RoleOwner, organizationdomain.RoleAdmin)

	admin.GET("/home", anyRole, s.GetHomeDashboard)

	// -------- Events --------
	admin.GET("/events", anyRole, s.ListEvents)
	admin.POST("/events", adminRole, s.authorizeOrgAction(authorization.ObjectEvent, authorization.ActionEventCreate), s.CreateEvent)
	admin.GET("/events/:id", anyRole, s.GetEvent)
	admin.PATCH("/events/:id", adminRole, s.authorizeOrgAction(authorization.ObjectEvent, authorization.ActionEventUpdate), s.UpdateEvent)
	admin.DELETE("/events/:id", adminRole, s.authorizeOrgAction(authorization.ObjectEvent, authorization.ActionEventDelete), s.DeleteEvent)

	// -------- Announcements --------
	admin.GET("/announcements", anyRole, s.ListAnnouncements)
	admin.POST("/announcements", adminRole, s.authorizeOrgAction(authorization.ObjectAnnouncement, authorization.ActionAnnouncementCreate), s.CreateAnnouncement)
	admin.POST("/announcements/draft", adminRole, s.authorizeOrgAction(authorization.ObjectAnnouncement, authorization.ActionAnnouncementDraft), s.DraftAnnouncement)
	admin.GET("/announcements/:id", anyRole, s.GetAnnouncement)
	admin.DELETE("/announcements/:id", adminRole, s.authorizeOrgAction(authorization.ObjectAnnouncement, authorization.ActionAnnouncementDelete), s.DeleteAnnouncement)

	// -------- Groups --------
	admin.GET("/groups", anyRole, s.ListGroups)
	admin.POST("/groups", adminRole, s.authorizeOrgAction(authorization.ObjectGroup, authorization.ActionGroupCreate), s.CreateGroup)
	admin.GET("/groups/:id", anyRole, s.GetGroup)
	admin.GET("/groups/:id/members", anyRole, s.ListGroupMembers)
	admin.POST("/groups/:id/join", anyRole, s.authorizeOrgAction(authorization.ObjectGroup, authorization.ActionGroupJoin), s.JoinGroup)
	admin.POST("/groups/:id/leave", anyRole, s.LeaveGroup)
}

func (s *Server) registerUIRoutes() {
	r := s.engine.Group("/")

	// ---- SPA entry points ----
	r.GET("/", serveIndex)
	r.GET("/login", serveIndex)
	r.GET("/signup", serveIndex)
	r.GET("/invite/:code", serveIndex)
	r.GET("/onboarding", s.WebAuthRequired(), serveIndex)
	r.GET("/change-password", s.WebAuthRequired(), serveIndex)

	orgs := r.Group("/orgs", s.WebAuthRequired())
	{
		orgs.GET("", serveIndex)
		org := orgs.Group("/:id")
		{
			org.GET("/home", serveIndex)
			org.GET("/events", serveIndex)
			org.GET("/announcements", serveIndex)
			org.GET("/groups", serveIndex)
			org.GET("/members", serveIndex)
			org.GET("/settings", serveIndex)
		}
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		// static assets (vite)
		if fileExists("./public", c.Request.URL.Path) {
			c.File("./public" + c.Request.URL.Path)
			return
		}

		// SPA fallback
		c.File("./public/index.html")
	})
}

func serveIndex(c *gin.Context) {
	c.File("./public/index.html")
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
