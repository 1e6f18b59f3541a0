package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/snacksmith/backend/internal/domain"
)

// SnackStatus describes where the current analysis stands relative to the ingredient list
type SnackStatus string

const (
	StatusIdle    SnackStatus = "idle"
	StatusLoading SnackStatus = "loading"
	StatusReady   SnackStatus = "ready"
	StatusError   SnackStatus = "error"
)

// SnackStateConfig holds configuration for a SnackState
type SnackStateConfig struct {
	ServingSizeG float64
	// OnNotify receives confirmation messages such as "Added 30g almonds"
	OnNotify func(message string)
}

// SnackSnapshot is a deep copy of the state handed to presentation code
type SnackSnapshot struct {
	Snack      domain.Snack `json:"snack"`
	Status     SnackStatus  `json:"status"`
	Error      string       `json:"error,omitempty"`
	Notice     string       `json:"notice,omitempty"`
	Generation uint64       `json:"generation"`
}

// SnackState holds the snack being built and mediates every mutation.
//
// Each mutation bumps a generation counter and starts a recompute through the
// nutrition engine. A result is applied only when its generation is still the
// latest one, so a slow response for an older composition is dropped.
type SnackState struct {
	mu sync.Mutex

	catalog      domain.IngredientCatalog
	engine       domain.NutritionEngine
	log          *slog.Logger
	servingSizeG float64
	onNotify     func(string)

	snack      domain.Snack
	status     SnackStatus
	lastErr    string
	notice     string
	generation uint64

	pending int
	idle    chan struct{}
}

// NewSnackState creates an empty snack on the default base
func NewSnackState(
	catalog domain.IngredientCatalog,
	engine domain.NutritionEngine,
	config SnackStateConfig,
	logger *slog.Logger,
) *SnackState {
	return &SnackState{
		catalog:      catalog,
		engine:       engine,
		log:          logger,
		servingSizeG: config.ServingSizeG,
		onNotify:     config.OnNotify,
		snack: domain.Snack{
			Name:        "My Snack",
			Base:        domain.DefaultBase,
			Ingredients: []domain.IngredientEntry{},
		},
		status: StatusIdle,
	}
}

// SetBase switches the base. A base with default ingredients replaces the
// ingredient list with those defaults; a base without keeps the list.
func (s *SnackState) SetBase(ctx context.Context, base domain.BaseType) error {
	b, err := domain.LookupBase(base)
	if err != nil {
		return err
	}

	var entries []domain.IngredientEntry
	if len(b.DefaultIngredients) > 0 {
		entries, err = CanonicalizeEntries(s.catalog, b.DefaultIngredients)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.snack.Base = b.Type
	if entries != nil {
		s.snack.Ingredients = entries
	}
	s.scheduleLocked(ctx)
	s.mu.Unlock()
	return nil
}

// AddIngredient adds grams of a catalog ingredient, summing into an existing entry of the same name
func (s *SnackState) AddIngredient(ctx context.Context, name string, amountG float64) error {
	if err := ValidateAmount(name, amountG); err != nil {
		return err
	}
	ing, ok := s.catalog.Lookup(name)
	if !ok {
		return &domain.UnknownIngredientError{Name: name}
	}

	s.mu.Lock()
	if idx := indexOfEntry(s.snack.Ingredients, ing.Name); idx >= 0 {
		if err := ValidateAmount(ing.Name, s.snack.Ingredients[idx].AmountG+amountG); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.snack.Ingredients = mergeEntry(s.snack.Ingredients, ing.Name, amountG)
	s.scheduleLocked(ctx)
	msg := fmt.Sprintf("Added %gg %s", amountG, ing.Name)
	s.notice = msg
	notify := s.onNotify
	s.mu.Unlock()

	if notify != nil {
		notify(msg)
	}
	return nil
}

// RemoveIngredient drops the named entry. Removing an absent ingredient is a no-op.
func (s *SnackState) RemoveIngredient(ctx context.Context, name string) {
	canonical := s.canonicalName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOfEntry(s.snack.Ingredients, canonical)
	if idx < 0 {
		return
	}
	s.snack.Ingredients = append(s.snack.Ingredients[:idx:idx], s.snack.Ingredients[idx+1:]...)
	s.scheduleLocked(ctx)
}

// UpdateAmount replaces the grams of an entry. A non-positive amount removes it;
// a catalog ingredient not yet in the snack is appended. Names outside the
// catalog are rejected either way.
func (s *SnackState) UpdateAmount(ctx context.Context, name string, amountG float64) error {
	if math.IsNaN(amountG) || math.IsInf(amountG, 0) {
		return ValidateAmount(name, amountG)
	}
	ing, ok := s.catalog.Lookup(name)
	if !ok {
		return &domain.UnknownIngredientError{Name: name}
	}
	if amountG <= 0 {
		s.RemoveIngredient(ctx, ing.Name)
		return nil
	}
	if err := ValidateAmount(ing.Name, amountG); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := indexOfEntry(s.snack.Ingredients, ing.Name); idx >= 0 {
		s.snack.Ingredients[idx].AmountG = amountG
	} else {
		s.snack.Ingredients = append(s.snack.Ingredients, domain.IngredientEntry{Name: ing.Name, AmountG: amountG})
	}
	s.scheduleLocked(ctx)
	return nil
}

// Clear empties the ingredient list and drops the analysis. The base is kept.
func (s *SnackState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snack.Ingredients = []domain.IngredientEntry{}
	s.snack.Analysis = nil
	s.generation++
	s.status = StatusIdle
	s.lastErr = ""
}

// Rename sets the snack's display name and description
func (s *SnackState) Rename(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: snack name is required", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snack.Name = name
	s.snack.Description = strings.TrimSpace(description)
	return nil
}

// ApplySuggestion replaces name, base and ingredients with a validated suggestion.
// Nothing changes if any suggested ingredient fails to resolve.
func (s *SnackState) ApplySuggestion(ctx context.Context, suggestion Suggestion) error {
	if _, err := domain.LookupBase(suggestion.Base); err != nil {
		return err
	}
	entries, err := CanonicalizeEntries(s.catalog, suggestion.Ingredients)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if suggestion.Name != "" {
		s.snack.Name = suggestion.Name
	}
	s.snack.Description = suggestion.Description
	s.snack.Base = suggestion.Base
	s.snack.Ingredients = entries
	s.notice = fmt.Sprintf("Applied suggestion %q", s.snack.Name)
	s.scheduleLocked(ctx)
	return nil
}

// LoadSnack replaces the current snack with a saved one and recomputes its analysis
func (s *SnackState) LoadSnack(ctx context.Context, snack domain.Snack) error {
	if _, err := domain.LookupBase(snack.Base); err != nil {
		return err
	}
	entries, err := CanonicalizeEntries(s.catalog, snack.Ingredients)
	if err != nil {
		return err
	}

	loaded := snack.Clone()
	loaded.Ingredients = entries

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded.Analysis = s.snack.Analysis
	s.snack = loaded
	s.notice = fmt.Sprintf("Loaded %q", loaded.Name)
	s.scheduleLocked(ctx)
	return nil
}

// Recompute recalculates the analysis synchronously and returns the
// engine's error, if the result was still current when it arrived.
func (s *SnackState) Recompute(ctx context.Context) error {
	s.mu.Lock()
	gen, entries := s.beginLocked()
	s.mu.Unlock()

	if entries == nil {
		return nil
	}
	return s.run(ctx, gen, entries)
}

// WaitIdle blocks until no recompute is in flight
func (s *SnackState) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the current state
func (s *SnackState) Snapshot() SnackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SnackSnapshot{
		Snack:      s.snack.Clone(),
		Status:     s.status,
		Error:      s.lastErr,
		Notice:     s.notice,
		Generation: s.generation,
	}
}

// Entries returns a copy of the current ingredient list
func (s *SnackState) Entries() []domain.IngredientEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.IngredientEntry(nil), s.snack.Ingredients...)
}

// scheduleLocked starts an asynchronous recompute for the current list.
// Callers must hold s.mu.
func (s *SnackState) scheduleLocked(ctx context.Context) {
	gen, entries := s.beginLocked()
	if entries == nil {
		return
	}

	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++

	// The request that caused the mutation may finish before the engine answers
	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.done()
		if err := s.run(bg, gen, entries); err != nil {
			s.log.Warn("Snack recompute failed", "generation", gen, "error", err)
		}
	}()
}

// beginLocked bumps the generation and returns the entries to compute.
// An empty list resolves immediately to no analysis and returns nil entries.
func (s *SnackState) beginLocked() (uint64, []domain.IngredientEntry) {
	s.generation++
	if len(s.snack.Ingredients) == 0 {
		s.snack.Analysis = nil
		s.status = StatusIdle
		s.lastErr = ""
		return s.generation, nil
	}
	s.status = StatusLoading
	return s.generation, append([]domain.IngredientEntry(nil), s.snack.Ingredients...)
}

func (s *SnackState) run(ctx context.Context, gen uint64, entries []domain.IngredientEntry) error {
	analysis, err := s.engine.Calculate(ctx, entries, s.servingSizeG)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Debug("Discarding stale analysis", "generation", gen, "current", s.generation)
		return nil
	}

	if err == nil && analysis == nil {
		err = errors.New("engine returned no analysis for a non-empty snack")
	}
	if err != nil {
		if !errors.Is(err, domain.ErrAggregationUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrAggregationUnavailable, err)
		}
		// Keep the previous analysis on failure
		s.status = StatusError
		s.lastErr = err.Error()
		return err
	}

	s.snack.Analysis = analysis
	s.status = StatusReady
	s.lastErr = ""
	return nil
}

func (s *SnackState) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

func (s *SnackState) canonicalName(name string) string {
	if ing, ok := s.catalog.Lookup(name); ok {
		return ing.Name
	}
	return strings.TrimSpace(name)
}
