package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/conversation"
)

// Scratch field names shared between steps and commits.
const (
	scratchUsername  = "username"
	scratchPassword  = "password"
	scratchTitle     = "title"
	scratchContent   = "content"
	scratchSectionID = "section_id"
	scratchConfirm   = "confirm"
)

// keepAnswer is the edit-flow sentinel for "leave this field unchanged".
const keepAnswer = "-"

func nonEmpty(reason string) func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error) {
	return func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error) {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return "", fmt.Errorf("%w: %s", common.ErrValidation, reason)
		}
		return answer, nil
	}
}

func (e *Engine) registerFlow() *conversation.Flow {
	return &conversation.Flow{
		Kind: conversation.KindRegister,
		Steps: []conversation.Step{
			{
				Field:  scratchUsername,
				Prompt: "Choose a username:",
				Validate: func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error) {
					answer = strings.TrimSpace(answer)
					if answer == "" {
						return "", fmt.Errorf("%w: username must not be empty", common.ErrValidation)
					}
					if e.creds.Exists(ctx, answer) {
						return "", fmt.Errorf("%w: username already taken", common.ErrValidation)
					}
					return answer, nil
				},
			},
			{
				Field:    scratchPassword,
				Prompt:   "Choose a password:",
				Secret:   true,
				Validate: nonEmpty("password must not be empty"),
			},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*conversation.Outcome, error) {
			username := scratch[scratchUsername]
			if err := e.creds.Register(ctx, username, scratch[scratchPassword]); err != nil {
				return nil, err
			}
			e.logger.Info(ctx, "user registered", "username", username)
			return &conversation.Outcome{
				Message: fmt.Sprintf("account %q created, you can now log in", username),
			}, nil
		},
	}
}

func (e *Engine) loginFlow() *conversation.Flow {
	return &conversation.Flow{
		Kind: conversation.KindLogin,
		Steps: []conversation.Step{
			{
				Field:    scratchUsername,
				Prompt:   "Please enter your username:",
				Validate: nonEmpty("username must not be empty"),
			},
			{
				Field:  scratchPassword,
				Prompt: "Please enter your password:",
				Secret: true,
			},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*conversation.Outcome, error) {
			username := scratch[scratchUsername]
			if err := e.creds.Authenticate(ctx, username, scratch[scratchPassword]); err != nil {
				return nil, err
			}
			e.sessions.MarkActive(userID, username)
			e.logger.Info(ctx, "user logged in", "user_id", userID, "username", username)
			return &conversation.Outcome{
				Message: fmt.Sprintf("logged in as %s", username),
			}, nil
		},
	}
}

func (e *Engine) addSectionFlow() *conversation.Flow {
	return &conversation.Flow{
		Kind:          conversation.KindAddSection,
		RequiresLogin: true,
		Steps: []conversation.Step{
			{
				Field:    scratchTitle,
				Prompt:   "Section title:",
				Validate: nonEmpty("title must not be empty"),
			},
			{
				// text or an opaque reference to an uploaded document
				Field:  scratchContent,
				Prompt: "Section content:",
			},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*conversation.Outcome, error) {
			sec, err := e.sections.Create(ctx, userID, scratch[scratchTitle], scratch[scratchContent])
			if err != nil {
				return nil, err
			}
			return &conversation.Outcome{
				Message: fmt.Sprintf("section #%d created", sec.ID),
				Payload: sec,
			}, nil
		},
	}
}

func (e *Engine) editSectionFlow() *conversation.Flow {
	return &conversation.Flow{
		Kind:          conversation.KindEditSection,
		RequiresLogin: true,
		Steps: []conversation.Step{
			{
				Field:    scratchTitle,
				Prompt:   fmt.Sprintf("New title (%q keeps the current one):", keepAnswer),
				Validate: nonEmpty("title must not be empty"),
			},
			{
				Field:  scratchContent,
				Prompt: fmt.Sprintf("New content (%q keeps the current one):", keepAnswer),
			},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*conversation.Outcome, error) {
			id, err := strconv.ParseInt(scratch[scratchSectionID], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad section id %q: %w", scratch[scratchSectionID], err)
			}

			var newTitle, newContent *string
			if v := scratch[scratchTitle]; v != keepAnswer {
				newTitle = &v
			}
			if v := scratch[scratchContent]; v != keepAnswer {
				newContent = &v
			}

			sec, err := e.sections.Update(ctx, userID, id, newTitle, newContent)
			if err != nil {
				return nil, err
			}
			return &conversation.Outcome{
				Message: fmt.Sprintf("section #%d updated", sec.ID),
				Payload: sec,
			}, nil
		},
	}
}

func (e *Engine) deleteSectionFlow() *conversation.Flow {
	return &conversation.Flow{
		Kind:          conversation.KindDeleteSection,
		RequiresLogin: true,
		Steps: []conversation.Step{
			{
				Field:  scratchConfirm,
				Prompt: "Move this section to trash? (yes/no)",
				Validate: func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error) {
					switch strings.ToLower(strings.TrimSpace(answer)) {
					case "yes", "y":
						return "yes", nil
					case "no", "n":
						return "no", nil
					}
					return "", fmt.Errorf("%w: please answer yes or no", common.ErrValidation)
				},
			},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*conversation.Outcome, error) {
			id, err := strconv.ParseInt(scratch[scratchSectionID], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad section id %q: %w", scratch[scratchSectionID], err)
			}

			if scratch[scratchConfirm] != "yes" {
				return &conversation.Outcome{Message: "deletion cancelled"}, nil
			}

			if err := e.sections.SoftDelete(ctx, userID, id); err != nil {
				return nil, err
			}
			return &conversation.Outcome{
				Message: fmt.Sprintf("section #%d moved to trash", id),
			}, nil
		},
	}
}
