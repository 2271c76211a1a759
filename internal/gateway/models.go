package gateway

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"privgate/internal/integrity"
	"privgate/internal/reasoning"
	"privgate/internal/registry"
	"privgate/internal/validate"
	"privgate/pkg/types"
)

const maxModelKeyChars = 256

// ListModels returns the catalog of the configured truth source merged with
// what is on disk.
func (g *Gateway) ListModels(ctx context.Context) (types.ModelsResponse, error) {
	entries, version, err := g.engine.Source().Catalog(ctx)
	if err != nil {
		return types.ModelsResponse{}, err
	}
	present := map[string]bool{}
	files, err := registry.ScanDir(g.modelsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		g.log.Warn().Err(err).Msg("scan models dir")
	}
	for _, f := range files {
		present[f.Name] = true
	}
	activeFile := ""
	if path, ok, err := g.active.Get(ctx); err == nil && ok {
		activeFile = filepath.Base(path)
	}
	resp := types.ModelsResponse{Models: make([]types.Model, 0, len(entries))}
	if version != "inline" {
		resp.RegistryCID = version
	}
	for _, e := range entries {
		file := e.File()
		resp.Models = append(resp.Models, types.Model{
			ID:       e.ID,
			Name:     e.DisplayName,
			Filename: file,
			Digest:   e.Digest,
			Trusted:  e.Trusted,
			Present:  present[file],
			Active:   file == activeFile,
		})
	}
	return resp, nil
}

// ActiveModel describes the current selection by file name only.
func (g *Gateway) ActiveModel(ctx context.Context) (types.ActiveModelResponse, error) {
	path, ok, err := g.active.Get(ctx)
	if err != nil {
		return types.ActiveModelResponse{}, err
	}
	if !ok {
		return types.ActiveModelResponse{Set: false}, nil
	}
	return types.ActiveModelResponse{
		Set:      true,
		Model:    filepath.Base(path),
		Verified: g.engine.IsVerified(path),
	}, nil
}

// SetActiveModel selects a listed, trusted artifact in the models directory.
// It does not verify; the router refuses the artifact until a verification
// succeeds.
func (g *Gateway) SetActiveModel(ctx context.Context, model string) (types.ActiveModelResponse, error) {
	model, err := modelKey(model, true)
	if err != nil {
		return types.ActiveModelResponse{}, err
	}
	entry, err := g.engine.Source().Resolve(ctx, model)
	if err != nil {
		return types.ActiveModelResponse{}, err
	}
	path := filepath.Join(g.modelsDir, entry.File())
	if err := g.active.Set(ctx, path); err != nil {
		return types.ActiveModelResponse{}, err
	}
	g.log.Info().Str("model", entry.ID).Str("file", entry.File()).Msg("active model set")
	g.record("model.activated", map[string]any{"model": entry.ID, "artifact": entry.File()})
	return types.ActiveModelResponse{
		Set:      true,
		Model:    entry.File(),
		Verified: g.engine.IsVerified(path),
	}, nil
}

// VerifyModel runs verify-or-repair for model, or for the active model when
// model is empty. Trust failures are returned as errors; integrity failures
// are a failed outcome.
func (g *Gateway) VerifyModel(ctx context.Context, model string) (types.VerificationResponse, error) {
	model, err := modelKey(model, false)
	if err != nil {
		return types.VerificationResponse{}, err
	}
	if model == "" {
		path, ok, err := g.active.Get(ctx)
		if err != nil {
			return types.VerificationResponse{}, err
		}
		if !ok {
			return types.VerificationResponse{}, reasoning.ErrNoActiveModel
		}
		out, err := g.engine.VerifyArtifact(ctx, path)
		if err != nil {
			return types.VerificationResponse{}, err
		}
		return fromOutcome(filepath.Base(path), out), nil
	}
	out, entry, err := g.engine.VerifyModel(ctx, g.modelsDir, model)
	if err != nil {
		return types.VerificationResponse{}, err
	}
	return fromOutcome(entry.File(), out), nil
}

func fromOutcome(file string, o integrity.Outcome) types.VerificationResponse {
	return types.VerificationResponse{
		Outcome:   string(o.Status),
		Model:     file,
		Digest:    o.Digest,
		OldDigest: o.OldDigest,
		Reason:    o.Reason,
	}
}

// modelKey validates a model id or artifact file name from a client.
func modelKey(s string, required bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return "", &validate.ValidationError{Field: "model", Message: "must not be empty"}
		}
		return "", nil
	}
	if len([]rune(s)) > maxModelKeyChars {
		return "", &validate.ValidationError{Field: "model", Message: "too long"}
	}
	if err := validate.ValidateFilePath(s); err != nil {
		return "", &validate.ValidationError{Field: "model", Message: err.Error()}
	}
	if strings.ContainsAny(s, "\r\n\t") {
		return "", &validate.ValidationError{Field: "model", Message: "contains control characters"}
	}
	return s, nil
}
