// Package engine is the public surface of the notekeeper core: it accepts
// named intents from the transport layer, gates them on session and owner
// checks, and drives the conversation, credential, session and section
// components. The engine never initiates outbound messages; every call
// returns a Response (or error) for the transport to render.
package engine

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/backup"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/conversation"
	"github.com/dmitrijs2005/notekeeper/internal/credstore"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/models"
	"github.com/dmitrijs2005/notekeeper/internal/repositories/sections"
	"github.com/dmitrijs2005/notekeeper/internal/session"

	ownerauth "github.com/dmitrijs2005/notekeeper/internal/auth"
)

// Recognized intents (the transport contract).
const (
	IntentRegisterStart  = "register_start"
	IntentRegisterAnswer = "register_answer"
	IntentRegisterCancel = "register_cancel"

	IntentLoginStart  = "login_start"
	IntentLoginAnswer = "login_answer"
	IntentLogout      = "logout"

	IntentListSections     = "list_sections"
	IntentShowSection      = "show_section"
	IntentAddSectionStart  = "add_section_start"
	IntentAddSectionAnswer = "add_section_answer"

	IntentEditSectionStart  = "edit_section_start"
	IntentEditSectionAnswer = "edit_section_answer"

	IntentDeleteSectionStart   = "delete_section_start"
	IntentDeleteSectionConfirm = "delete_section_confirm"

	IntentToggleFavorite = "toggle_favorite"

	// Privileged intents; require an owner marker.
	IntentListUsers = "list_users"
	IntentBackup    = "backup"

	// Cancels whatever flow is in flight.
	IntentCancel = "cancel"
)

// Request is one inbound intent.
type Request struct {
	Intent string
	UserID int64

	// Text carries the answer payload for *_answer/confirm intents.
	Text string

	// SectionID selects the target for edit/delete/favorite intents.
	SectionID int64

	// IncludeDeleted switches list_sections to the trash view.
	IncludeDeleted bool

	// OwnerToken is the marker proving the acting identity for privileged
	// intents.
	OwnerToken string
}

// Response is the engine's answer for the transport to render. Exactly the
// fields relevant to the intent are set.
type Response struct {
	Message string

	// Prompt is the next question of an in-flight flow.
	Prompt *conversation.Prompt

	// Done reports that a flow committed on this request.
	Done bool

	Section  *models.Section
	Sections []models.Section
	Users    []string
}

// Engine wires the stores together. All state is owned by the injected
// components; the engine itself is stateless and safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	creds    *credstore.Store
	sessions *session.Manager
	conv     *conversation.Engine
	sections sections.Repository
	backup   *backup.Service
	logger   logging.Logger
}

func New(
	cfg *config.Config,
	creds *credstore.Store,
	sessions *session.Manager,
	repo sections.Repository,
	backupSvc *backup.Service,
	logger logging.Logger,
) *Engine {
	e := &Engine{
		cfg:      cfg,
		creds:    creds,
		sessions: sessions,
		sections: repo,
		backup:   backupSvc,
		logger:   logger,
	}

	e.conv = conversation.NewEngine(sessions.IsActive, cfg.FlowIdleTimeout, logger)
	e.conv.RegisterFlow(e.registerFlow())
	e.conv.RegisterFlow(e.loginFlow())
	e.conv.RegisterFlow(e.addSectionFlow())
	e.conv.RegisterFlow(e.editSectionFlow())
	e.conv.RegisterFlow(e.deleteSectionFlow())

	return e
}

// Handle dispatches one intent. Errors follow the shared taxonomy: callers
// match them with errors.Is against the common package sentinels.
func (e *Engine) Handle(ctx context.Context, req Request) (*Response, error) {
	switch req.Intent {

	case IntentRegisterStart:
		return e.startFlow(ctx, req, conversation.KindRegister, nil)
	case IntentRegisterAnswer:
		return e.answerFlow(ctx, req, conversation.KindRegister)
	case IntentRegisterCancel, IntentCancel:
		if e.conv.Cancel(req.UserID) {
			return &Response{Message: "conversation cancelled"}, nil
		}
		return nil, common.ErrNoActiveFlow

	case IntentLoginStart:
		return e.startFlow(ctx, req, conversation.KindLogin, nil)
	case IntentLoginAnswer:
		return e.answerFlow(ctx, req, conversation.KindLogin)

	case IntentLogout:
		// idempotent, like the session manager underneath
		e.conv.Cancel(req.UserID)
		if username, ok := e.sessions.Username(req.UserID); ok {
			e.logger.Info(ctx, "user logged out", "user_id", req.UserID, "username", username)
		}
		e.sessions.MarkInactive(req.UserID)
		return &Response{Message: "logged out"}, nil

	case IntentAddSectionStart:
		return e.startFlow(ctx, req, conversation.KindAddSection, nil)
	case IntentAddSectionAnswer:
		return e.answerFlow(ctx, req, conversation.KindAddSection)

	case IntentEditSectionStart:
		return e.startSectionFlow(ctx, req, conversation.KindEditSection)
	case IntentEditSectionAnswer:
		return e.answerFlow(ctx, req, conversation.KindEditSection)

	case IntentDeleteSectionStart:
		return e.startSectionFlow(ctx, req, conversation.KindDeleteSection)
	case IntentDeleteSectionConfirm:
		return e.answerFlow(ctx, req, conversation.KindDeleteSection)

	case IntentListSections:
		if err := e.requireLogin(req.UserID); err != nil {
			return nil, err
		}
		list, err := e.sections.List(ctx, req.UserID, req.IncludeDeleted)
		if err != nil {
			return nil, err
		}
		return &Response{Sections: list}, nil

	case IntentShowSection:
		if err := e.requireLogin(req.UserID); err != nil {
			return nil, err
		}
		sec, err := e.sections.Get(ctx, req.UserID, req.SectionID)
		if err != nil {
			return nil, err
		}
		return &Response{Section: sec}, nil

	case IntentToggleFavorite:
		if err := e.requireLogin(req.UserID); err != nil {
			return nil, err
		}
		sec, err := e.sections.ToggleFavorite(ctx, req.UserID, req.SectionID)
		if err != nil {
			return nil, err
		}
		return &Response{Section: sec, Message: "favorite toggled"}, nil

	case IntentListUsers:
		if err := e.requireOwner(req); err != nil {
			return nil, err
		}
		users, err := e.creds.List(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{Users: users}, nil

	case IntentBackup:
		if err := e.requireOwner(req); err != nil {
			return nil, err
		}
		if !e.backup.Configured() {
			return &Response{Message: "backup is not configured"}, nil
		}
		snapshot, err := e.creds.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		key, err := e.backup.Run(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		return &Response{Message: fmt.Sprintf("backup uploaded: %s", key)}, nil

	default:
		return nil, fmt.Errorf("unknown intent %q", req.Intent)
	}
}

// ActiveFlow exposes the user's in-flight conversation, for transports that
// route free text to the right *_answer intent.
func (e *Engine) ActiveFlow(userID int64) (conversation.Kind, bool) {
	kind, _, ok := e.conv.Active(userID)
	return kind, ok
}

func (e *Engine) startFlow(ctx context.Context, req Request, kind conversation.Kind, params map[string]string) (*Response, error) {
	prompt, err := e.conv.Start(ctx, req.UserID, kind, params)
	if err != nil {
		return nil, err
	}
	return &Response{Prompt: prompt}, nil
}

// startSectionFlow enters an edit/delete flow parameterized by the
// pre-selected section id. The section must exist and belong to the caller;
// a miss surfaces NotFound and produces no conversation state.
func (e *Engine) startSectionFlow(ctx context.Context, req Request, kind conversation.Kind) (*Response, error) {
	if err := e.requireLogin(req.UserID); err != nil {
		return nil, err
	}

	if _, err := e.sections.Get(ctx, req.UserID, req.SectionID); err != nil {
		return nil, err
	}

	params := map[string]string{scratchSectionID: fmt.Sprintf("%d", req.SectionID)}
	return e.startFlow(ctx, req, kind, params)
}

func (e *Engine) answerFlow(ctx context.Context, req Request, kind conversation.Kind) (*Response, error) {
	if active, _, ok := e.conv.Active(req.UserID); !ok || active != kind {
		return nil, common.ErrNoActiveFlow
	}

	reply, err := e.conv.Answer(ctx, req.UserID, req.Text)
	if err != nil {
		return nil, err
	}

	resp := &Response{Prompt: reply.Prompt, Done: reply.Done}
	if reply.Outcome != nil {
		resp.Message = reply.Outcome.Message
		if sec, ok := reply.Outcome.Payload.(*models.Section); ok {
			resp.Section = sec
		}
	}
	return resp, nil
}

// requireLogin gates intents that need an authenticated session.
func (e *Engine) requireLogin(userID int64) error {
	if !e.sessions.IsActive(userID) {
		return common.ErrUnauthenticated
	}
	return nil
}

// requireOwner gates privileged intents. The marker must verify against the
// configured secret and assert exactly the configured owner identity.
func (e *Engine) requireOwner(req Request) error {
	if e.cfg.OwnerID == 0 {
		return common.ErrUnauthorized
	}

	id, err := ownerauth.UserIDFromToken(req.OwnerToken, []byte(e.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	if id != e.cfg.OwnerID {
		return common.ErrUnauthorized
	}

	return nil
}
