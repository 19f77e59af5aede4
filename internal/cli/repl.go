package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/conversation"
	"github.com/dmitrijs2005/notekeeper/internal/engine"
	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// answerIntents maps an in-flight flow to the intent its answers travel on.
var answerIntents = map[conversation.Kind]string{
	conversation.KindRegister:      engine.IntentRegisterAnswer,
	conversation.KindLogin:         engine.IntentLoginAnswer,
	conversation.KindAddSection:    engine.IntentAddSectionAnswer,
	conversation.KindEditSection:   engine.IntentEditSectionAnswer,
	conversation.KindDeleteSection: engine.IntentDeleteSectionConfirm,
}

const helpText = `Available commands:
  help          - show this message
  register      - create a new account
  login         - login to your account
  logout        - logout your session
  add           - add a section (requires login)
  list          - show your sections (requires login)
  trash         - show trashed sections (requires login)
  show N        - show section N (requires login)
  edit N        - edit section N (requires login)
  delete N      - move section N to trash (requires login)
  fav N         - toggle favorite on section N (requires login)
  users         - list registered users (owner only)
  backup        - backup credential data (owner only)
  cancel        - cancel the current dialog
  exit | quit   - leave the program`

// runREPL reads commands, converts them to intents and renders the engine's
// replies. While a flow is in flight, whole lines are routed to that flow's
// answer intent; the engine decides everything else.
func (a *App) runREPL(ctx context.Context) {
	printlnFn("notekeeper ready, type 'help' for commands")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := a.step(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			a.renderError(err)
			continue
		}
		if resp == nil { // exit requested
			return
		}
		a.render(resp)
	}
}

// step reads one line (or one flow answer) and performs it.
func (a *App) step(ctx context.Context) (*engine.Response, error) {
	if kind, ok := a.engine.ActiveFlow(a.userID); ok {
		return a.answerActiveFlow(ctx, kind)
	}

	line, err := getSimpleText(a.reader, "", os.Stdout)
	if err != nil {
		return nil, err
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return &engine.Response{}, nil
	}
	cmd := parts[0]

	switch cmd {
	case "help":
		return &engine.Response{Message: helpText}, nil
	case "exit", "quit":
		return nil, nil

	case "register":
		return a.handle(ctx, engine.Request{Intent: engine.IntentRegisterStart})
	case "login":
		return a.handle(ctx, engine.Request{Intent: engine.IntentLoginStart})
	case "logout":
		return a.handle(ctx, engine.Request{Intent: engine.IntentLogout})
	case "add":
		return a.handle(ctx, engine.Request{Intent: engine.IntentAddSectionStart})
	case "list":
		return a.handle(ctx, engine.Request{Intent: engine.IntentListSections})
	case "trash":
		return a.handle(ctx, engine.Request{Intent: engine.IntentListSections, IncludeDeleted: true})
	case "show", "edit", "delete", "fav":
		if len(parts) < 2 {
			return &engine.Response{Message: fmt.Sprintf("usage: %s N", cmd)}, nil
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return &engine.Response{Message: fmt.Sprintf("bad section id %q", parts[1])}, nil
		}
		intent := map[string]string{
			"show":   engine.IntentShowSection,
			"edit":   engine.IntentEditSectionStart,
			"delete": engine.IntentDeleteSectionStart,
			"fav":    engine.IntentToggleFavorite,
		}[cmd]
		return a.handle(ctx, engine.Request{Intent: intent, SectionID: id})
	case "users":
		return a.handle(ctx, engine.Request{Intent: engine.IntentListUsers, OwnerToken: a.ownerToken})
	case "backup":
		return a.handle(ctx, engine.Request{Intent: engine.IntentBackup, OwnerToken: a.ownerToken})
	case "cancel":
		return a.handle(ctx, engine.Request{Intent: engine.IntentCancel})

	default:
		return &engine.Response{Message: fmt.Sprintf("unknown command %q, type 'help'", cmd)}, nil
	}
}

func (a *App) answerActiveFlow(ctx context.Context, kind conversation.Kind) (*engine.Response, error) {
	// Typing a command while a dialog waits for an answer would be fed to
	// the dialog; "/cancel" is the escape hatch.
	prompt := a.pendingPrompt()

	var answer string
	var err error
	if prompt.Secret {
		answer, err = getSecretText(a.reader, prompt.Text, os.Stdout)
	} else {
		answer, err = getSimpleText(a.reader, prompt.Text, os.Stdout)
	}
	if err != nil {
		return nil, err
	}

	if answer == "/cancel" {
		return a.handle(ctx, engine.Request{Intent: engine.IntentCancel})
	}

	return a.handle(ctx, engine.Request{Intent: answerIntents[kind], Text: answer})
}

func (a *App) pendingPrompt() conversation.Prompt {
	if a.lastPrompt != nil {
		return *a.lastPrompt
	}
	return conversation.Prompt{Text: "?"}
}

func (a *App) handle(ctx context.Context, req engine.Request) (*engine.Response, error) {
	req.UserID = a.userID
	resp, err := a.engine.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	a.lastPrompt = resp.Prompt
	return resp, nil
}

func (a *App) render(resp *engine.Response) {
	if resp.Message != "" {
		printlnFn(resp.Message)
	}
	if resp.Section != nil && resp.Message == "" {
		printlnFn(formatSection(*resp.Section))
	}
	if resp.Sections != nil {
		if len(resp.Sections) == 0 {
			printlnFn("no sections")
		}
		for _, sec := range resp.Sections {
			printlnFn(formatSection(sec))
		}
	}
	if resp.Users != nil {
		if len(resp.Users) == 0 {
			printlnFn("no users found")
		}
		for _, u := range resp.Users {
			printlnFn(u)
		}
	}
}

func (a *App) renderError(err error) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		printlnFn("you must be logged in to use this command; use 'login' or 'register'")
	case errors.Is(err, common.ErrUnauthorized):
		printlnFn("you are not authorized to use this command")
	case errors.Is(err, common.ErrValidation):
		printlnFn(err.Error())
	case errors.Is(err, common.ErrBadCredential):
		printlnFn("incorrect password")
	case errors.Is(err, common.ErrNotFound):
		printlnFn("not found")
	case errors.Is(err, common.ErrNoActiveFlow):
		printlnFn("no conversation in progress")
	case errors.Is(err, common.ErrStorage):
		printlnFn("storage trouble, please try again later")
	default:
		printlnFn("error: " + err.Error())
	}
}

func formatSection(sec models.Section) string {
	marks := ""
	if sec.Favorite {
		marks += " *"
	}
	if sec.Deleted {
		marks += " [trash]"
	}
	return fmt.Sprintf("#%d %s%s\n    %s", sec.ID, sec.Title, marks, sec.Content)
}
