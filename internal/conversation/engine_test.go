package conversation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// twoStepFlow collects "name" and "color" and records committed scratch maps.
func twoStepFlow(kind Kind, requiresLogin bool, committed *[]map[string]string) *Flow {
	return &Flow{
		Kind:          kind,
		RequiresLogin: requiresLogin,
		Steps: []Step{
			{
				Field:  "name",
				Prompt: "name?",
				Validate: func(ctx context.Context, userID int64, scratch map[string]string, answer string) (string, error) {
					if strings.TrimSpace(answer) == "" {
						return "", fmt.Errorf("%w: name must not be empty", common.ErrValidation)
					}
					return strings.TrimSpace(answer), nil
				},
			},
			{Field: "color", Prompt: "color?"},
		},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*Outcome, error) {
			copied := map[string]string{}
			for k, v := range scratch {
				copied[k] = v
			}
			*committed = append(*committed, copied)
			return &Outcome{Message: "done"}, nil
		},
	}
}

func alwaysActive(int64) bool { return true }
func neverActive(int64) bool  { return false }

func TestInvalidAnswerDoesNotAdvance(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)

	_, err = e.Answer(ctx, 1, "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, step, ok := e.Active(1)
	require.True(t, ok)
	assert.Equal(t, 0, step, "invalid answer must not advance the step")
}

func TestValidAnswerAdvancesExactlyOneStep(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)

	reply, err := e.Answer(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, reply.Done)
	assert.Equal(t, "color?", reply.Prompt.Text)

	_, step, ok := e.Active(1)
	require.True(t, ok)
	assert.Equal(t, 1, step)
}

func TestCompletionCommitsAndClearsState(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)

	_, err = e.Answer(ctx, 1, "alice")
	require.NoError(t, err)

	reply, err := e.Answer(ctx, 1, "green")
	require.NoError(t, err)
	require.True(t, reply.Done)
	assert.Equal(t, "done", reply.Outcome.Message)

	require.Len(t, committed, 1)
	assert.Equal(t, map[string]string{"name": "alice", "color": "green"}, committed[0])

	_, _, ok := e.Active(1)
	assert.False(t, ok, "state must be cleared after commit")

	_, err = e.Answer(ctx, 1, "again")
	assert.ErrorIs(t, err, common.ErrNoActiveFlow)
}

func TestStartSeedsParams(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", map[string]string{"section_id": "3"})
	require.NoError(t, err)

	_, err = e.Answer(ctx, 1, "alice")
	require.NoError(t, err)
	_, err = e.Answer(ctx, 1, "green")
	require.NoError(t, err)

	require.Len(t, committed, 1)
	assert.Equal(t, "3", committed[0]["section_id"])
}

func TestImplicitAbandon(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	e.RegisterFlow(twoStepFlow("other", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)
	_, err = e.Answer(ctx, 1, "alice")
	require.NoError(t, err)

	// new entry intent discards the in-flight quiz
	_, err = e.Start(ctx, 1, "other", nil)
	require.NoError(t, err)

	kind, step, ok := e.Active(1)
	require.True(t, ok)
	assert.Equal(t, Kind("other"), kind)
	assert.Equal(t, 0, step)
}

func TestCancel(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	assert.False(t, e.Cancel(1), "nothing to cancel")

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)

	assert.True(t, e.Cancel(1))
	_, _, ok := e.Active(1)
	assert.False(t, ok)
	assert.Empty(t, committed)
}

func TestGatedFlowRejectedWhileLoggedOut(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(neverActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("gated", true, &committed))

	_, err := e.Start(context.Background(), 1, "gated", nil)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, _, ok := e.Active(1)
	assert.False(t, ok, "failed entry must produce no state")
}

func TestGateRecheckedMidFlow(t *testing.T) {
	active := true
	var committed []map[string]string
	e := NewEngine(func(int64) bool { return active }, 0, testLogger())
	e.RegisterFlow(twoStepFlow("gated", true, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "gated", nil)
	require.NoError(t, err)

	active = false // user logged out mid-dialog

	_, err = e.Answer(ctx, 1, "alice")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, _, ok := e.Active(1)
	assert.False(t, ok)
	assert.Empty(t, committed)
}

func TestIdleTimeoutExpiresStalledFlow(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 10*time.Millisecond, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = e.Answer(ctx, 1, "alice")
	assert.ErrorIs(t, err, common.ErrNoActiveFlow)
	_, _, ok := e.Active(1)
	assert.False(t, ok)
}

func TestConversationsAreIndependentAcrossUsers(t *testing.T) {
	var committed []map[string]string
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(twoStepFlow("quiz", false, &committed))
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "quiz", nil)
	require.NoError(t, err)
	_, err = e.Start(ctx, 2, "quiz", nil)
	require.NoError(t, err)

	_, err = e.Answer(ctx, 1, "alice")
	require.NoError(t, err)

	_, step1, _ := e.Active(1)
	_, step2, _ := e.Active(2)
	assert.Equal(t, 1, step1)
	assert.Equal(t, 0, step2)
}

func TestCommitErrorTerminatesFlow(t *testing.T) {
	e := NewEngine(alwaysActive, 0, testLogger())
	e.RegisterFlow(&Flow{
		Kind:  "failing",
		Steps: []Step{{Field: "x", Prompt: "x?"}},
		Commit: func(ctx context.Context, userID int64, scratch map[string]string) (*Outcome, error) {
			return nil, common.ErrBadCredential
		},
	})
	ctx := context.Background()

	_, err := e.Start(ctx, 1, "failing", nil)
	require.NoError(t, err)

	_, err = e.Answer(ctx, 1, "v")
	assert.ErrorIs(t, err, common.ErrBadCredential)

	_, _, ok := e.Active(1)
	assert.False(t, ok, "flow terminates on commit error")
}
