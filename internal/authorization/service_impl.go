package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectGroup        = "group"
	ObjectEvent        = "event"
	ObjectAnnouncement = "announcement"
	ObjectNotification = "notification"
	ObjectInvite       = "invite"
)

const (
	ActionOrganizationView    = "organization.view"
	ActionOrganizationUpdate  = "organization.update"
	ActionOrganizationPublish = "organization.publish"
	ActionOrganizationDelete  = "organization.delete"

	ActionGroupView   = "group.view"
	ActionGroupCreate = "group.create"
	ActionGroupUpdate = "group.update"
	ActionGroupDelete = "group.delete"
	ActionGroupJoin   = "group.join"

	ActionEventView   = "event.view"
	ActionEventCreate = "event.create"
	ActionEventUpdate = "event.update"
	ActionEventDelete = "event.delete"

	ActionAnnouncementView   = "announcement.view"
	ActionAnnouncementCreate = "announcement.create"
	ActionAnnouncementDelete = "announcement.delete"
	ActionAnnouncementDraft  = "announcement.draft"

	ActionNotificationSend = "notification.send"

	ActionInviteSend   = "invite.send"
	ActionInviteRevoke = "invite.revoke"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps the casbin grouping in step with the membership
// table, replacing a stale role link when the member's role changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members can see everything in their org and join groups.
		{"role:member", ObjectOrganization, ActionOrganizationView},
		{"role:member", ObjectGroup, ActionGroupView},
		{"role:member", ObjectGroup, ActionGroupJoin},
		{"role:member", ObjectEvent, ActionEventView},
		{"role:member", ObjectAnnouncement, ActionAnnouncementView},

		// Admins additionally run the org day to day.
		{"role:admin", ObjectOrganization, ActionOrganizationView},
		{"role:admin", ObjectOrganization, ActionOrganizationUpdate},
		{"role:admin", ObjectOrganization, ActionOrganizationPublish},
		{"role:admin", ObjectGroup, ActionGroupView},
		{"role:admin", ObjectGroup, ActionGroupJoin},
		{"role:admin", ObjectGroup, ActionGroupCreate},
		{"role:admin", ObjectGroup, ActionGroupUpdate},
		{"role:admin", ObjectGroup, ActionGroupDelete},
		{"role:admin", ObjectEvent, ActionEventView},
		{"role:admin", ObjectEvent, ActionEventCreate},
		{"role:admin", ObjectEvent, ActionEventUpdate},
		{"role:admin", ObjectEvent, ActionEventDelete},
		{"role:admin", ObjectAnnouncement, ActionAnnouncementView},
		{"role:admin", ObjectAnnouncement, ActionAnnouncementCreate},
		{"role:admin", ObjectAnnouncement, ActionAnnouncementDelete},
		{"role:admin", ObjectAnnouncement, ActionAnnouncementDraft},
		{"role:admin", ObjectInvite, ActionInviteSend},
		{"role:admin", ObjectInvite, ActionInviteRevoke},

		// Owners hold every admin grant plus deletion of the org itself.
		{"role:owner", ObjectOrganization, ActionOrganizationView},
		{"role:owner", ObjectOrganization, ActionOrganizationUpdate},
		{"role:owner", ObjectOrganization, ActionOrganizationPublish},
		{"role:owner", ObjectOrganization, ActionOrganizationDelete},
		{"role:owner", ObjectGroup, ActionGroupView},
		{"role:owner", ObjectGroup, ActionGroupJoin},
		{"role:owner", ObjectGroup, ActionGroupCreate},
		{"role:owner", ObjectGroup, ActionGroupUpdate},
		{"role:owner", ObjectGroup, ActionGroupDelete},
		{"role:owner", ObjectEvent, ActionEventView},
		{"role:owner", ObjectEvent, ActionEventCreate},
		{"role:owner", ObjectEvent, ActionEventUpdate},
		{"role:owner", ObjectEvent, ActionEventDelete},
		{"role:owner", ObjectAnnouncement, ActionAnnouncementView},
		{"role:owner", ObjectAnnouncement, ActionAnnouncementCreate},
		{"role:owner", ObjectAnnouncement, ActionAnnouncementDelete},
		{"role:owner", ObjectAnnouncement, ActionAnnouncementDraft},
		{"role:owner", ObjectInvite, ActionInviteSend},
		{"role:owner", ObjectInvite, ActionInviteRevoke},

		// Automated processes.
		{"role:system", ObjectNotification, ActionNotificationSend},
		{"role:system", ObjectEvent, ActionEventView},
		{"role:system", ObjectAnnouncement, ActionAnnouncementView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
