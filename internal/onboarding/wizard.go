package onboarding

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"go.uber.org/zap"
)

// Wizard steps, in order. Every step commits on Next and may be skipped
// except Done.
const (
	StepOrganization = 0
	StepEvent        = 1
	StepInvites      = 2
	StepPublish      = 3
	StepDone         = 4
)

var (
	ErrSaveInProgress       = errors.New("save_in_progress")
	ErrOrganizationRequired = errors.New("organization_required")
	ErrMissingInput         = errors.New("missing_input")
	ErrAlreadyDone          = errors.New("already_done")
)

type OrganizationInput struct {
	Name        string
	Type        string
	Description string
}

type EventInput struct {
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
}

type InvitesInput struct {
	Emails []string
	Role   string
}

// StepInput carries the payload for whichever step is being committed.
// Only the section matching the current step is consulted.
type StepInput struct {
	Organization *OrganizationInput
	Event        *EventInput
	Invites      *InvitesInput
}

type State struct {
	Step        int    `json:"step"`
	Saving      bool   `json:"saving"`
	OrgID       string `json:"org_id,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	InvitesSent int    `json:"invites_sent"`
	Published   bool   `json:"published"`
	Done        bool   `json:"done"`
	// Route is where the client lands once the flow is done: the new
	// organization's dashboard, or the organization list if setup was
	// skipped all the way through.
	Route string `json:"route,omitempty"`
}

// Wizard walks one user through first-run setup: create an organization,
// schedule a first event, invite members, publish. Each Next commits the
// current step before advancing; Skip advances without committing; Back
// rewinds without undoing. Revisiting a committed step runs its commit
// again; any dedup is the backing service's concern, not the wizard's.
//
// Commits are single-flight: a second Next while one is saving fails
// fast instead of queueing. A commit hung on a slow backend releases the
// flag when the request context is cancelled.
type Wizard struct {
	mu     sync.Mutex
	saving bool

	userID snowflake.ID
	orgs   organizationdomain.Service
	events eventdomain.Service

	step        int
	orgID       snowflake.ID
	eventID     snowflake.ID
	invitesSent int
	published   bool
}

func NewWizard(userID snowflake.ID, orgs organizationdomain.Service, events eventdomain.Service) *Wizard {
	return &Wizard{
		userID: userID,
		orgs:   orgs,
		events: events,
	}
}

// Next commits the current step and advances on success.
func (w *Wizard) Next(ctx context.Context, input StepInput) (State, error) {
	w.mu.Lock()
	if w.saving {
		state := w.stateLocked()
		w.mu.Unlock()
		return state, ErrSaveInProgress
	}
	if w.step >= StepDone {
		state := w.stateLocked()
		w.mu.Unlock()
		return state, ErrAlreadyDone
	}
	w.saving = true
	step := w.step
	w.mu.Unlock()

	err := w.commit(ctx, step, input)

	w.mu.Lock()
	w.saving = false
	if err == nil {
		w.step = clampStep(w.step + 1)
	}
	state := w.stateLocked()
	w.mu.Unlock()
	return state, err
}

// Skip advances without committing anything.
func (w *Wizard) Skip() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.saving {
		return w.stateLocked(), ErrSaveInProgress
	}
	if w.step >= StepDone {
		return w.stateLocked(), ErrAlreadyDone
	}
	w.step = clampStep(w.step + 1)
	return w.stateLocked(), nil
}

// Back rewinds one step. Nothing is undone; committed work stays. The
// terminal step is final, so Back is rejected there like Next and Skip.
func (w *Wizard) Back() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.saving {
		return w.stateLocked(), ErrSaveInProgress
	}
	if w.step >= StepDone {
		return w.stateLocked(), ErrAlreadyDone
	}
	w.step = clampStep(w.step - 1)
	return w.stateLocked(), nil
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wizard) commit(ctx context.Context, step int, input StepInput) error {
	switch step {
	case StepOrganization:
		return w.commitOrganization(ctx, input.Organization)
	case StepEvent:
		return w.commitEvent(ctx, input.Event)
	case StepInvites:
		return w.commitInvites(ctx, input.Invites)
	case StepPublish:
		return w.commitPublish(ctx)
	default:
		return nil
	}
}

func (w *Wizard) commitOrganization(ctx context.Context, input *OrganizationInput) error {
	if input == nil {
		return ErrMissingInput
	}

	org, err := w.orgs.Create(ctx, w.userID, organizationdomain.CreateOrganizationRequest{
		Name:        input.Name,
		Type:        input.Type,
		Description: input.Description,
	})
	if err != nil {
		return err
	}

	orgID, err := snowflake.ParseString(org.ID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.orgID = orgID
	w.mu.Unlock()
	return nil
}

func (w *Wizard) commitEvent(ctx context.Context, input *EventInput) error {
	w.mu.Lock()
	orgID := w.orgID
	w.mu.Unlock()
	if orgID == 0 {
		// The organization step was skipped; there is nothing to attach
		// the event to. Fail fast so the client can send the user back.
		return ErrOrganizationRequired
	}
	if input == nil {
		return ErrMissingInput
	}

	event, err := w.events.Create(ctx, w.userID, eventdomain.CreateEventRequest{
		OrgID:       orgID,
		Title:       input.Title,
		Date:        input.Date,
		Time:        input.Time,
		Location:    input.Location,
		Description: input.Description,
	})
	if err != nil {
		return err
	}

	eventID, err := snowflake.ParseString(event.ID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.eventID = eventID
	w.mu.Unlock()
	return nil
}

func (w *Wizard) commitInvites(ctx context.Context, input *InvitesInput) error {
	w.mu.Lock()
	orgID := w.orgID
	w.mu.Unlock()
	if orgID == 0 {
		return ErrOrganizationRequired
	}
	if input == nil {
		return ErrMissingInput
	}

	result, err := w.orgs.InviteMembers(ctx, w.userID, orgID.String(), organizationdomain.InviteMembersRequest{
		Emails: input.Emails,
		Role:   input.Role,
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.invitesSent += result.Created
	w.mu.Unlock()
	return nil
}

// commitPublish is best-effort: a failed visibility write never blocks
// finishing setup, and with no organization there is nothing to publish.
func (w *Wizard) commitPublish(ctx context.Context) error {
	w.mu.Lock()
	orgID := w.orgID
	w.mu.Unlock()
	if orgID == 0 {
		return nil
	}

	err := w.orgs.UpdateVisibility(ctx, w.userID, orgID.String(), organizationdomain.VisibilityPublic)
	if err != nil {
		zap.L().Warn("onboarding publish failed",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return nil
	}

	w.mu.Lock()
	w.published = true
	w.mu.Unlock()
	return nil
}

func (w *Wizard) stateLocked() State {
	state := State{
		Step:        w.step,
		Saving:      w.saving,
		InvitesSent: w.invitesSent,
		Published:   w.published,
		Done:        w.step == StepDone,
	}
	if w.orgID != 0 {
		state.OrgID = w.orgID.String()
	}
	if w.eventID != 0 {
		state.EventID = w.eventID.String()
	}
	if state.Done {
		if w.orgID != 0 {
			state.Route = "/orgs/" + w.orgID.String() + "/home"
		} else {
			state.Route = "/orgs"
		}
	}
	return state
}

func clampStep(step int) int {
	if step < StepOrganization {
		return StepOrganization
	}
	if step > StepDone {
		return StepDone
	}
	return step
}
