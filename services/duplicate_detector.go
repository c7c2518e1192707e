package services

import (
	"fmt"
	"strings"

	"github.com/anu100405/REUNITE/repository"
)

// RelativeInput is one relative entry from an incoming submission.
type RelativeInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
}

// MatchResult identifies the existing report a submission duplicates.
type MatchResult struct {
	ExistingID uint
}

// DuplicateDetector decides whether an incoming submission is a re-report of
// an existing case. It is a pure read-and-compare: candidates are fetched by
// exact (full_name, age) identity and corroborated through the relative
// cross-reference. Two near-simultaneous submissions of the same case can
// both pass; the check is a heuristic gate, not an exclusive lock.
type DuplicateDetector struct {
	Cases repository.CaseRepository
}

func NewDuplicateDetector(cases repository.CaseRepository) *DuplicateDetector {
	return &DuplicateDetector{Cases: cases}
}

// Check returns a non-nil MatchResult when a stored relative of a candidate
// case agrees with an incoming relative on both normalized name and
// normalized relationship. A submission without relative data cannot be
// corroborated and is treated as a new case, not rejected.
func (d *DuplicateDetector) Check(fullName string, age *int, relatives []RelativeInput) (*MatchResult, error) {
	candidates, err := d.Cases.FindByIdentity(fullName, age)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if len(candidates) == 0 || len(relatives) == 0 {
		return nil, nil
	}

	for _, candidate := range candidates {
		for _, incoming := range relatives {
			inName := normalizeKey(incoming.Name)
			inRelation := normalizeKey(incoming.Relationship)
			for _, stored := range candidate.Relatives {
				if inName == normalizeKey(stored.Name) && inRelation == normalizeKey(stored.Relationship) {
					return &MatchResult{ExistingID: candidate.ID}, nil
				}
			}
		}
	}
	return nil, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
