package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snacksmith/backend/internal/domain"
)

const (
	defaultListLimit     = 50
	defaultDuplicateName = " (Copy)"
)

// SnackLibrary saves, searches and rates composed snacks
type SnackLibrary struct {
	repo    domain.SnackRepository
	catalog domain.IngredientCatalog
	engine  domain.NutritionEngine
	log     *slog.Logger
	now     func() time.Time
}

// NewSnackLibrary creates a snack library backed by repo
func NewSnackLibrary(
	repo domain.SnackRepository,
	catalog domain.IngredientCatalog,
	engine domain.NutritionEngine,
	logger *slog.Logger,
) *SnackLibrary {
	return &SnackLibrary{
		repo:    repo,
		catalog: catalog,
		engine:  engine,
		log:     logger,
		now:     time.Now,
	}
}

// Save validates and stores a snack. A snack without an ID gets a new one;
// saving an existing ID updates it and keeps its creation time and rating.
func (l *SnackLibrary) Save(ctx context.Context, snack domain.Snack) (*domain.Snack, error) {
	out := snack.Clone()

	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return nil, fmt.Errorf("%w: snack name is required", domain.ErrInvalidRequest)
	}
	if out.Base == "" {
		out.Base = domain.DefaultBase
	}
	if _, err := domain.LookupBase(out.Base); err != nil {
		return nil, err
	}
	if len(out.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: a saved snack needs at least one ingredient", domain.ErrInvalidRequest)
	}

	entries, err := CanonicalizeEntries(l.catalog, out.Ingredients)
	if err != nil {
		return nil, err
	}
	out.Ingredients = entries
	out.Tags = normalizeTags(out.Tags)

	analysis, err := l.engine.Calculate(ctx, out.Ingredients, 0)
	if err != nil {
		return nil, err
	}
	out.Analysis = analysis

	now := l.now().UTC()
	out.UpdatedAt = now

	if out.ID == "" {
		out.ID = uuid.NewString()
		out.CreatedAt = now
		out.Rating, out.RatingCount = 0, 0
	} else {
		existing, err := l.repo.Get(ctx, out.ID)
		switch {
		case err == nil:
			out.CreatedAt = existing.CreatedAt
			out.Rating, out.RatingCount = existing.Rating, existing.RatingCount
		case errors.Is(err, domain.ErrSnackNotFound):
			out.CreatedAt = now
		default:
			return nil, err
		}
	}

	if err := l.repo.Save(ctx, &out); err != nil {
		return nil, err
	}

	l.log.Info("Saved snack", "id", out.ID, "name", out.Name, "ingredients", len(out.Ingredients))
	return &out, nil
}

// Get returns a saved snack as stored
func (l *SnackLibrary) Get(ctx context.Context, id string) (*domain.Snack, error) {
	return l.repo.Get(ctx, id)
}

// Load returns a saved snack with its analysis recomputed from the current catalog
func (l *SnackLibrary) Load(ctx context.Context, id string) (*domain.Snack, error) {
	snack, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	analysis, err := l.engine.Calculate(ctx, snack.Ingredients, 0)
	if err != nil {
		return nil, err
	}
	snack.Analysis = analysis
	return snack, nil
}

// List returns saved snacks matching filter, most recently updated first
func (l *SnackLibrary) List(ctx context.Context, filter domain.SnackFilter) ([]*domain.Snack, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Ingredient != "" {
		if ing, ok := l.catalog.Lookup(filter.Ingredient); ok {
			filter.Ingredient = ing.Name
		}
	}
	return l.repo.List(ctx, filter)
}

// Delete removes a saved snack
func (l *SnackLibrary) Delete(ctx context.Context, id string) error {
	if err := l.repo.Delete(ctx, id); err != nil {
		return err
	}
	l.log.Info("Deleted snack", "id", id)
	return nil
}

// Rate folds a 1-5 star rating into the snack's running average
func (l *SnackLibrary) Rate(ctx context.Context, id string, stars int) (*domain.Snack, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidRequest)
	}

	snack, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	total := snack.Rating*float64(snack.RatingCount) + float64(stars)
	snack.RatingCount++
	snack.Rating = total / float64(snack.RatingCount)
	snack.UpdatedAt = l.now().UTC()

	if err := l.repo.Save(ctx, snack); err != nil {
		return nil, err
	}
	return snack, nil
}

// Duplicate stores a copy of a saved snack under a new ID. The copy's name
// gets suffix appended (" (Copy)" when empty) and starts unrated.
func (l *SnackLibrary) Duplicate(ctx context.Context, id, suffix string) (*domain.Snack, error) {
	original, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if suffix == "" {
		suffix = defaultDuplicateName
	}

	dup := original.Clone()
	dup.ID = uuid.NewString()
	dup.Name = original.Name + suffix
	now := l.now().UTC()
	dup.CreatedAt, dup.UpdatedAt = now, now
	dup.Rating, dup.RatingCount = 0, 0

	if err := l.repo.Save(ctx, &dup); err != nil {
		return nil, err
	}
	l.log.Info("Duplicated snack", "id", id, "copy_id", dup.ID)
	return &dup, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
