package services

import (
	"slices"

	"eduhacktech-backend/internal/models"
)

// Score weights
const (
	scoreInterests    = 40
	scoreRoles        = 30
	scoreAvailability = 20
	scoreLevel        = 10
)

// CompatibilityScore rates how well two cards fit together, from 0 to 100.
// Each rule contributes its full weight or nothing.
func CompatibilityScore(viewer, candidate *models.Card) int {
	score := 0

	if intersects(viewer.Interests, candidate.Interests) {
		score += scoreInterests
	}

	if rolesComplement(viewer, candidate) {
		score += scoreRoles
	}

	if intersects(viewer.Availability, candidate.Availability) {
		score += scoreAvailability
	}

	if sameLevel(viewer.Level, candidate.Level) {
		score += scoreLevel
	}

	return score
}

func cardRoles(c *models.Card) []string {
	roles := []string{c.Role}
	if c.SecondaryRole != "" && c.SecondaryRole != c.Role {
		roles = append(roles, c.SecondaryRole)
	}
	return roles
}

func rolesComplement(a, b *models.Card) bool {
	for _, ra := range cardRoles(a) {
		for _, rb := range cardRoles(b) {
			if IsComplementary(ra, rb) {
				return true
			}
		}
	}
	return false
}

func sameLevel(a, b string) bool {
	la, okA := Levels[a]
	lb, okB := Levels[b]
	return okA && okB && la == lb
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
