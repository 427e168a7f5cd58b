package services

import (
	"slices"

	"eduhacktech-backend/internal/models"
)

// Team finder vocabularies. Scoring and validation read these tables only.

const (
	RoleFrontend  = "Frontend"
	RoleBackend   = "Backend"
	RoleFullStack = "Full Stack"
	RoleUIUX      = "UI/UX"
	RoleMLAI      = "ML/AI"
	RolePitch     = "Pitch/Business"
)

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// Roles lists the primary/secondary roles a card may carry
var Roles = []string{RoleFrontend, RoleBackend, RoleFullStack, RoleUIUX, RoleMLAI, RolePitch}

// Levels maps an experience level to its ordinal
var Levels = map[string]int{
	LevelBeginner:     0,
	LevelIntermediate: 1,
	LevelAdvanced:     2,
}

// AvailabilityTags lists the accepted availability tags
var AvailabilityTags = []string{"Weekdays", "Weekends", "Evenings", "Full-time"}

// InterestTags lists the accepted interest tags
var InterestTags = []string{"Web", "AI", "Blockchain", "Mobile", "IoT"}

// ActivityStatuses lists the card activity states
var ActivityStatuses = []string{models.ActivityActivelyLooking, models.ActivityBusy, models.ActivityNotLooking}

type rolePair struct{ a, b string }

// complementaryRoles is symmetric: both orders of every pair are present
var complementaryRoles = buildComplementary([]rolePair{
	{RoleFrontend, RoleBackend},
	{RoleFrontend, RoleUIUX},
	{RoleBackend, RoleMLAI},
	{RoleFullStack, RoleUIUX},
	{RoleFullStack, RolePitch},
	{RoleFrontend, RolePitch},
	{RoleBackend, RolePitch},
	{RoleMLAI, RoleUIUX},
})

func buildComplementary(pairs []rolePair) map[rolePair]bool {
	table := make(map[rolePair]bool, len(pairs)*2)
	for _, p := range pairs {
		if p.a == p.b {
			continue
		}
		table[p] = true
		table[rolePair{p.b, p.a}] = true
	}
	return table
}

// IsComplementary reports whether two roles complement each other
func IsComplementary(a, b string) bool {
	return complementaryRoles[rolePair{a, b}]
}

func subsetOf(values, set []string) bool {
	for _, v := range values {
		if !slices.Contains(set, v) {
			return false
		}
	}
	return true
}
