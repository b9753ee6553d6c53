package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dori/buebu/internal/config"
	"github.com/dori/buebu/internal/generation"
	"github.com/dori/buebu/internal/storage"
	"github.com/dori/buebu/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptProvider streams fixed chunks and answers Complete with a fixed text.
type scriptProvider struct {
	chunks    []string
	streamErr error
	improved  string
}

func (p *scriptProvider) Name() string { return "script" }

func (p *scriptProvider) Stream(ctx context.Context, _ generation.Request) (generation.Stream, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	return &sliceStream{ctx: ctx, chunks: p.chunks}, nil
}

func (p *scriptProvider) Complete(context.Context, generation.Request) (string, error) {
	if p.streamErr != nil {
		return "", p.streamErr
	}
	return p.improved, nil
}

type sliceStream struct {
	ctx    context.Context
	chunks []string
	i      int
	chunk  string
}

func (s *sliceStream) Next() bool {
	if s.ctx.Err() != nil || s.i >= len(s.chunks) {
		return false
	}
	s.chunk = s.chunks[s.i]
	s.i++
	return true
}
func (s *sliceStream) Chunk() string { return s.chunk }
func (s *sliceStream) Err() error    { return s.ctx.Err() }
func (s *sliceStream) Close() error  { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.SaveDebounce = time.Hour
	cfg.Notify.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, p generation.Provider) *App {
	t.Helper()
	a, err := New(cfg, WithProvider(p))
	require.NoError(t, err)
	return a
}

func TestGenerateCreatesActiveProject(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# TodoApp", "\n\n## Overview..."}})
	defer a.Close()
	a.newID = func() string { return "id1" }

	var chunks []string
	project, err := a.Generate(context.Background(), "Build a todo app", func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)

	assert.Equal(t, []string{"# TodoApp", "\n\n## Overview..."}, chunks)
	assert.Equal(t, "id1", project.ID)
	assert.Equal(t, "TodoApp", project.Title)
	assert.Equal(t, "Build a todo app", project.Prompt)
	assert.Equal(t, "# TodoApp\n\n## Overview...", project.Blueprint)

	active, ok := a.Projects.ActiveID()
	assert.True(t, ok)
	assert.Equal(t, "id1", active)
	assert.False(t, a.Status.IsLoading())
}

func TestGenerateRejectsInvalidPrompt(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{})
	defer a.Close()

	_, err := a.Generate(context.Background(), "short", nil)

	var ve *validate.ValidationError
	require.ErrorAs(t, err, &ve)
	msg, ok := a.Status.Error()
	assert.True(t, ok)
	assert.Equal(t, ve.Message, msg)
	assert.Zero(t, a.Projects.Len())
	assert.False(t, a.Status.IsLoading())
}

func TestGenerateFailureSetsUserMessage(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{streamErr: errors.New("upstream 502: internal stack trace")})
	defer a.Close()

	_, err := a.Generate(context.Background(), "Build a todo app", nil)

	var pe *generation.ProviderError
	require.ErrorAs(t, err, &pe)
	msg, _ := a.Status.Error()
	assert.Equal(t, generation.MessageCommunication, msg)
	assert.NotContains(t, msg, "stack trace")
	assert.Zero(t, a.Projects.Len())
	assert.False(t, a.Status.IsLoading())
}

func TestGenerateCanceled(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"a", "b"}})
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Generate(ctx, "Build a todo app", nil)

	assert.ErrorIs(t, err, ErrCanceled)
	_, hasErr := a.Status.Error()
	assert.False(t, hasErr)
	assert.Zero(t, a.Projects.Len())
}

func TestProjectsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	p := &scriptProvider{chunks: []string{"# TaskSync\n\nbody"}}

	a := newTestApp(t, cfg, p)
	first, err := a.Generate(context.Background(), "A collaborative task app", nil)
	require.NoError(t, err)
	_, err = a.RenameProject(first.ID, "  Task Sync  ")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, cfg, p)
	defer b.Close()

	all := b.Projects.Projects()
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, "Task Sync", all[0].Title)
	assert.True(t, first.CreatedAt.Equal(all[0].CreatedAt))

	// A restart does not restore the selection.
	_, ok := b.Projects.ActiveID()
	assert.False(t, ok)
}

func TestFileFallbackWhenPrimaryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Primary = config.PrimaryNone
	p := &scriptProvider{chunks: []string{"Fallback App\n"}}

	a := newTestApp(t, cfg, p)
	_, err := a.Generate(context.Background(), "An app kept in flat files", nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, cfg, p)
	defer b.Close()
	require.Equal(t, 1, b.Projects.Len())
	assert.Equal(t, "Fallback App", b.Projects.Projects()[0].Title)
}

func TestSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, &scriptProvider{})
	defer a.Close()

	_, err := New(cfg, WithProvider(&scriptProvider{}))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	reader, err := New(cfg, WithProvider(&scriptProvider{}), WithoutLock())
	require.NoError(t, err)
	reader.Close()
}

func TestDeleteActiveResetsWorkspace(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# One"}})
	defer a.Close()

	one, err := a.Generate(context.Background(), "The first application", nil)
	require.NoError(t, err)
	a.Status.SetError("stale")

	require.NoError(t, a.DeleteProject(one.ID))

	_, ok := a.Projects.ActiveID()
	assert.False(t, ok)
	_, hasErr := a.Status.Error()
	assert.False(t, hasErr)
	assert.ErrorIs(t, a.DeleteProject(one.ID), ErrProjectNotFound)
}

func TestDeleteOtherKeepsActive(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# App"}})
	defer a.Close()

	one, err := a.Generate(context.Background(), "The first application", nil)
	require.NoError(t, err)
	two, err := a.Generate(context.Background(), "The second application", nil)
	require.NoError(t, err)

	require.NoError(t, a.DeleteProject(one.ID))

	active, ok := a.Projects.ActiveID()
	assert.True(t, ok)
	assert.Equal(t, two.ID, active)
}

func TestSelectAndNewProject(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# App"}})
	defer a.Close()

	one, err := a.Generate(context.Background(), "The first application", nil)
	require.NoError(t, err)
	a.NewProject()

	_, ok := a.SelectProject("missing")
	assert.False(t, ok)

	got, ok := a.SelectProject(one.ID)
	require.True(t, ok)
	assert.Equal(t, one.Blueprint, got.Blueprint)
	active, _ := a.Projects.ActiveID()
	assert.Equal(t, one.ID, active)
}

func TestRenameValidation(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# App"}})
	defer a.Close()
	p, err := a.Generate(context.Background(), "The first application", nil)
	require.NoError(t, err)

	_, err = a.RenameProject(p.ID, "a/b")
	var ve *validate.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = a.RenameProject("missing", "Valid name")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	title, err := a.RenameProject(p.ID, "Valid name")
	require.NoError(t, err)
	assert.Equal(t, "Valid name", title)
}

func TestImprovePromptIsCapped(t *testing.T) {
	long := strings.Repeat("x", 2500)
	a := newTestApp(t, testConfig(t), &scriptProvider{improved: long})
	defer a.Close()

	got, err := a.ImprovePrompt(context.Background(), "A workout app")
	require.NoError(t, err)
	assert.Len(t, got, generation.MaxImprovedLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestImprovePromptError(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{streamErr: generation.ErrCredentials})
	defer a.Close()

	_, err := a.ImprovePrompt(context.Background(), "A workout app")
	require.Error(t, err)
	msg, _ := a.Status.Error()
	assert.Equal(t, generation.MessageCredentials, msg)

	a.PromptChanged()
	_, ok := a.Status.Error()
	assert.False(t, ok)
}

func TestFindProject(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{chunks: []string{"# Same"}})
	defer a.Close()

	ids := []string{"abc-1", "abd-2"}
	i := 0
	a.newID = func() string { i++; return ids[i-1] }
	_, err := a.Generate(context.Background(), "The first application", nil)
	require.NoError(t, err)
	_, err = a.Generate(context.Background(), "The second application", nil)
	require.NoError(t, err)

	p, err := a.FindProject("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", p.ID)

	_, err = a.FindProject("ab")
	assert.ErrorIs(t, err, ErrAmbiguousProject)

	_, err = a.FindProject("Same")
	assert.ErrorIs(t, err, ErrAmbiguousProject)

	_, err = a.FindProject("zzz")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

// closeFailBackend is an empty tier whose Close fails.
type closeFailBackend struct {
	err error
}

func (b closeFailBackend) Name() string { return "close-fail" }
func (b closeFailBackend) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrNotFound
}
func (b closeFailBackend) Put(context.Context, string, []byte) error { return nil }
func (b closeFailBackend) Delete(context.Context, string) error      { return nil }
func (b closeFailBackend) Close() error                             { return b.err }

func TestNewReportsCloseErrorWhenProviderFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Name = "bogus"
	closeErr := errors.New("disk gone")

	_, err := New(cfg, WithTiers(closeFailBackend{err: closeErr}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
	assert.ErrorIs(t, err, closeErr)

	// The lock was released on the way out.
	a, err := New(cfg, WithProvider(&scriptProvider{}))
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

func TestOnlyLatestRunLowersLoading(t *testing.T) {
	a := newTestApp(t, testConfig(t), &scriptProvider{})
	defer a.Close()

	first := a.beginLoading()
	second := a.beginLoading()

	// The earlier run ends on its own after the newer one started.
	a.endLoading(first)
	assert.True(t, a.Status.IsLoading())

	a.endLoading(second)
	assert.False(t, a.Status.IsLoading())
}
