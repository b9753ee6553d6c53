package app

import (
	"context"
	"errors"
	"strings"

	"github.com/dori/buebu/internal/generation"
	"github.com/dori/buebu/internal/model"
	"github.com/dori/buebu/internal/validate"
	"go.uber.org/zap"
)

var (
	// ErrCanceled is returned when a generation was canceled or superseded.
	ErrCanceled = errors.New("generation canceled")

	// ErrProjectNotFound is returned for an unknown project reference.
	ErrProjectNotFound = errors.New("project not found")

	// ErrAmbiguousProject is returned when a reference matches several projects.
	ErrAmbiguousProject = errors.New("project reference is ambiguous")
)

// Generate validates prompt, streams a blueprint for it and stores the result
// as the new active project. onChunk, if set, receives every chunk. The
// loading flag is raised for the duration of the run.
func (a *App) Generate(ctx context.Context, prompt string, onChunk func(string)) (model.Project, error) {
	if err := validate.Prompt(prompt); err != nil {
		a.showError(err)
		return model.Project{}, err
	}
	prompt = validate.SanitizeInput(strings.TrimSpace(prompt))

	a.Status.ClearError()
	run := a.beginLoading()
	defer a.endLoading(run)

	var (
		project model.Project
		failure string
	)
	outcome := a.Generator.Generate(ctx, prompt, generation.Callbacks{
		OnChunk: onChunk,
		OnDone: func(blueprint string) {
			title := model.TitleFor(prompt, blueprint)
			project = a.Projects.CreateFromGenerated(title, prompt, blueprint, a.newID())
		},
		OnError: func(message string) {
			failure = message
			a.Status.SetError(message)
		},
	})

	switch outcome {
	case generation.OutcomeDone:
		a.logger.Info("project created", zap.String("id", project.ID), zap.String("title", project.Title))
		if err := a.Notifier.SendBlueprintReady(project.Title); err != nil {
			a.logger.Debug("notification not sent", zap.Error(err))
		}
		return project, nil
	case generation.OutcomeFailed:
		if err := a.Notifier.SendGenerationFailed(failure); err != nil {
			a.logger.Debug("notification not sent", zap.Error(err))
		}
		return model.Project{}, &generation.ProviderError{Message: failure}
	default:
		return model.Project{}, ErrCanceled
	}
}

// beginLoading raises the loading flag and returns a token for this run.
func (a *App) beginLoading() uint64 {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	a.loadSeq++
	a.Status.StartLoading()
	return a.loadSeq
}

// endLoading lowers the flag unless a newer run has started since.
func (a *App) endLoading(run uint64) {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	if run == a.loadSeq {
		a.Status.StopLoading()
	}
}

// CancelGeneration stops the generation in flight, if any.
func (a *App) CancelGeneration() {
	a.Generator.Cancel()
}

// ImprovePrompt asks the provider for a better version of prompt, capped to
// the prompt length limit.
func (a *App) ImprovePrompt(ctx context.Context, prompt string) (string, error) {
	a.Status.ClearError()

	improved, err := a.Generator.Improve(ctx, prompt)
	if err != nil {
		a.showError(err)
		return "", err
	}
	return generation.CapImproved(improved), nil
}

// PromptChanged clears a stale error when the user edits the prompt.
func (a *App) PromptChanged() {
	a.Status.ClearError()
}

// NewProject starts a fresh, unsaved prompt.
func (a *App) NewProject() {
	a.Projects.Reset()
	a.Status.ClearError()
}

// SelectProject makes id active and returns it for display.
func (a *App) SelectProject(id string) (model.Project, bool) {
	project, ok := a.Projects.Get(id)
	if !ok {
		return model.Project{}, false
	}
	a.Projects.Select(project.ID)
	a.Status.ClearError()
	return project, true
}

// RenameProject validates and sanitizes title before applying it.
func (a *App) RenameProject(id, title string) (string, error) {
	if err := validate.ProjectTitle(title); err != nil {
		return "", err
	}
	clean := validate.SanitizeProjectTitle(title)
	if !a.Projects.Rename(id, clean) {
		return "", ErrProjectNotFound
	}
	return clean, nil
}

// DeleteProject removes a project. Deleting the active project also resets
// the workspace.
func (a *App) DeleteProject(id string) error {
	if _, ok := a.Projects.Get(id); !ok {
		return ErrProjectNotFound
	}
	if active, ok := a.Projects.ActiveID(); ok && active == id {
		a.NewProject()
	}
	a.Projects.Remove(id)
	return nil
}

// FindProject resolves ref as an exact id, a unique id prefix or an exact
// title, in that order.
func (a *App) FindProject(ref string) (model.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Project{}, ErrProjectNotFound
	}
	if p, ok := a.Projects.Get(ref); ok {
		return p, nil
	}

	var byPrefix, byTitle []model.Project
	for _, p := range a.Projects.Projects() {
		if strings.HasPrefix(p.ID, ref) {
			byPrefix = append(byPrefix, p)
		}
		if p.Title == ref {
			byTitle = append(byTitle, p)
		}
	}

	for _, matches := range [][]model.Project{byPrefix, byTitle} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return model.Project{}, ErrAmbiguousProject
		}
	}
	return model.Project{}, ErrProjectNotFound
}

func (a *App) showError(err error) {
	var ve *validate.ValidationError
	var pe *generation.ProviderError
	switch {
	case errors.As(err, &ve):
		a.Status.SetError(ve.Message)
	case errors.As(err, &pe):
		a.Status.SetError(pe.Message)
	}
}
