package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/session"
	"github.com/lumen-foundation/lumen/jobs"
)

type stubGranter struct {
	err     error
	granted map[string]capability.Role
}

func (s *stubGranter) GrantRole(_ context.Context, email string, role capability.Role) (session.Profile, error) {
	if s.err != nil {
		return session.Profile{}, s.err
	}
	if s.granted == nil {
		s.granted = map[string]capability.Role{}
	}
	s.granted[email] = role
	return session.Profile{ActorID: "actor-1", Role: role}, nil
}

func TestGrantCommandJSON(t *testing.T) {
	granter := &stubGranter{}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := GrantCommand(context.Background(), granter, GrantOptions{
		Email: "lead@example.org", Role: "Project-Lead", JSONOutput: true, Stdout: stdout, Stderr: stderr,
	})

	require.Zero(t, code, stderr.String())
	var res GrantResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, "project_lead", res.Role)
	assert.Equal(t, "Project Lead", res.Label)
	assert.Equal(t, capability.RoleProjectLead, granter.granted["lead@example.org"])
}

func TestGrantCommandExitCodes(t *testing.T) {
	ctx := context.Background()
	stderr := new(bytes.Buffer)

	assert.Equal(t, 1, GrantCommand(ctx, &stubGranter{}, GrantOptions{Role: "member", Stderr: stderr}))
	assert.Equal(t, 1, GrantCommand(ctx, &stubGranter{}, GrantOptions{Email: "a@b.org", Role: "owner", Stderr: stderr}))
	assert.Equal(t, 2, GrantCommand(ctx, &stubGranter{err: session.ErrProfileNotFound}, GrantOptions{Email: "a@b.org", Role: "member", Stderr: stderr}))
	assert.Equal(t, 3, GrantCommand(ctx, &stubGranter{err: errors.New("down")}, GrantOptions{Email: "a@b.org", Role: "member", Stderr: stderr}))
}

func TestCapabilitiesCommandBuiltIn(t *testing.T) {
	stdout := new(bytes.Buffer)

	code := CapabilitiesCommand(CapabilitiesOptions{Role: "partner", JSONOutput: true, Stdout: stdout})

	require.Zero(t, code)
	var table map[string][]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &table))
	assert.Equal(t, []string{"testimonials.create"}, table["partner"])
}

func TestCapabilitiesCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("news:\n  member: [create]\n"), 0o600))
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := CapabilitiesCommand(CapabilitiesOptions{Path: path, Role: "member", Stdout: stdout, Stderr: stderr})

	require.Zero(t, code, stderr.String())
	assert.Equal(t, "Member: news.create\n", stdout.String())

	code = CapabilitiesCommand(CapabilitiesOptions{Path: filepath.Join(t.TempDir(), "missing.yaml"), Stderr: stderr})
	assert.Equal(t, 1, code)
}

type stubQueue struct {
	enqueued []*asynq.Task
}

func (s *stubQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.enqueued = append(s.enqueued, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func (s *stubQueue) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 3, Retry: 1}, nil
}

func (s *stubQueue) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "s-1", Type: jobs.TaskContentCensus, NextProcessAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}, nil
}

func TestJobsCommand(t *testing.T) {
	q := &stubQueue{}
	c := &JobsCLI{client: q, inspector: q}
	ctx := context.Background()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	require.Zero(t, c.JobsCommand(ctx, JobsOptions{Action: "trigger", Job: jobs.TaskAttachmentsMigrate, Stdout: stdout, Stderr: stderr}))
	require.Len(t, q.enqueued, 1)
	assert.Equal(t, jobs.TaskAttachmentsMigrate, q.enqueued[0].Type())

	require.Zero(t, c.JobsCommand(ctx, JobsOptions{Action: "stats", Stdout: stdout}))
	assert.Contains(t, stdout.String(), "pending=3")

	require.Zero(t, c.JobsCommand(ctx, JobsOptions{Action: "scheduled", Stdout: stdout}))
	assert.Contains(t, stdout.String(), "s-1 content:census at 2026-01-02T03:04:05Z")

	assert.Equal(t, 1, c.JobsCommand(ctx, JobsOptions{Action: "trigger", Job: "mail:send", Stderr: stderr}))
	assert.Equal(t, 1, c.JobsCommand(ctx, JobsOptions{Action: "purge", Stderr: stderr}))
	assert.NoError(t, c.Close())
}
