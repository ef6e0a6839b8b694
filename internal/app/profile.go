package app

import (
	"fmt"
	"strings"

	"github.com/bryan-buckman/pantry/internal/model"
)

// Profile returns the saved dietary profile.
func (s *Service) Profile() (model.DietaryProfile, error) {
	if s.store == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.profile, nil
	}
	p, err := s.store.GetDietaryProfile()
	if err != nil {
		return model.DietaryProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// SaveProfile normalizes and stores p, returning what was stored.
func (s *Service) SaveProfile(p model.DietaryProfile) (model.DietaryProfile, error) {
	p = NormalizeProfile(p)
	if s.store == nil {
		s.mu.Lock()
		s.profile = p
		s.mu.Unlock()
		return p, nil
	}
	if err := s.store.SaveDietaryProfile(p); err != nil {
		return p, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// NormalizeProfile lowercases and dedupes every list and drops flags that
// are not part of the fixed vocabularies.
func NormalizeProfile(p model.DietaryProfile) model.DietaryProfile {
	return model.DietaryProfile{
		Allergies:           clean(p.Allergies, model.Allergies),
		Diets:               clean(p.Diets, model.Diets),
		HealthGoals:         clean(p.HealthGoals, model.HealthGoals),
		DislikedIngredients: clean(p.DislikedIngredients, nil),
	}
}

func clean(values []string, vocab []model.Option) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if vocab != nil {
			v = strings.ReplaceAll(v, " ", "_")
		}
		if v == "" || seen[v] {
			continue
		}
		if vocab != nil && !model.ValidOption(vocab, v) {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
