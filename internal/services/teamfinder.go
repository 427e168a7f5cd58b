package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/cache"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxBioLength        = 140
	maxLookingForLength = 60
	activeCountKey      = "teamfinder:active_count"
)

// TeamFinderService manages cards and ranks teammate matches
type TeamFinderService struct {
	cards          CardStore
	conns          ConnectionStore
	users          UserStore
	events         EventStore
	regs           RegistrationStore
	cache          cache.Cache
	activeCountTTL time.Duration
}

// NewTeamFinderService creates a new team finder service
func NewTeamFinderService(
	cards CardStore,
	conns ConnectionStore,
	users UserStore,
	events EventStore,
	regs RegistrationStore,
	c cache.Cache,
	activeCountTTL time.Duration,
) *TeamFinderService {
	if c == nil {
		c = cache.Noop{}
	}
	return &TeamFinderService{
		cards:          cards,
		conns:          conns,
		users:          users,
		events:         events,
		regs:           regs,
		cache:          c,
		activeCountTTL: activeCountTTL,
	}
}

// CardInput holds the editable card fields
type CardInput struct {
	Role          string
	SecondaryRole string
	Level         string
	Availability  []string
	Interests     []string
	LookingFor    string
	Bio           string
}

func (in *CardInput) validate() error {
	if !slices.Contains(Roles, in.Role) {
		return apperr.Invalid("role must be one of: %s", strings.Join(Roles, ", "))
	}
	if in.SecondaryRole != "" && !slices.Contains(Roles, in.SecondaryRole) {
		return apperr.Invalid("secondaryRole must be one of: %s", strings.Join(Roles, ", "))
	}
	if _, ok := Levels[in.Level]; !ok {
		return apperr.Invalid("level must be one of: %s, %s, %s", LevelBeginner, LevelIntermediate, LevelAdvanced)
	}
	if !subsetOf(in.Availability, AvailabilityTags) {
		return apperr.Invalid("availability must only contain: %s", strings.Join(AvailabilityTags, ", "))
	}
	if !subsetOf(in.Interests, InterestTags) {
		return apperr.Invalid("interests must only contain: %s", strings.Join(InterestTags, ", "))
	}
	if utf8.RuneCountInString(in.Bio) > maxBioLength {
		return apperr.Invalid("bio cannot exceed %d characters", maxBioLength)
	}
	if utf8.RuneCountInString(in.LookingFor) > maxLookingForLength {
		return apperr.Invalid("lookingFor cannot exceed %d characters", maxLookingForLength)
	}
	return nil
}

// SaveCard creates the user's card or updates it. The activity status of an existing card is kept.
func (s *TeamFinderService) SaveCard(ctx context.Context, userID string, in CardInput) (*models.Card, error) {
	in.Bio = strings.TrimSpace(in.Bio)
	in.LookingFor = strings.TrimSpace(in.LookingFor)
	if err := in.validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found", "failed to load user")
	}

	active := models.ActivityActivelyLooking
	existing, err := s.cards.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		active = existing.Active
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Internal("failed to load card", err)
	}

	now := time.Now()
	secondary := in.SecondaryRole
	if secondary == in.Role {
		secondary = ""
	}
	card := &models.Card{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          user.Name,
		Role:          in.Role,
		SecondaryRole: secondary,
		Level:         in.Level,
		Availability:  dedupe(in.Availability),
		Interests:     dedupe(in.Interests),
		LookingFor:    in.LookingFor,
		Bio:           in.Bio,
		Active:        active,
		LastActive:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	saved, err := s.cards.Upsert(ctx, card)
	if err != nil {
		return nil, apperr.Internal("failed to save card", err)
	}

	s.invalidateActiveCount(ctx)
	return saved, nil
}

// GetCard returns the user's card
func (s *TeamFinderService) GetCard(ctx context.Context, userID string) (*models.Card, error) {
	card, err := s.cards.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Card not found", "failed to get card")
	}
	return card, nil
}

// UpdateActivity changes the card's activity status
func (s *TeamFinderService) UpdateActivity(ctx context.Context, userID, active string) (*models.Card, error) {
	if !slices.Contains(ActivityStatuses, active) {
		return nil, apperr.Invalid("active must be one of: %s", strings.Join(ActivityStatuses, ", "))
	}

	card, err := s.cards.UpdateActive(ctx, userID, active, time.Now())
	if err != nil {
		return nil, storeErr(err, "Card not found", "failed to update activity")
	}

	s.invalidateActiveCount(ctx)
	return card, nil
}

// MatchFilter narrows the candidate set. Empty fields do not filter.
type MatchFilter struct {
	EventID      string
	Query        string
	Role         string
	Interests    []string
	Availability []string
}

// ConnectStatus describes an existing request between the viewer and a candidate
type ConnectStatus struct {
	Status    string `json:"status"`
	FromMe    bool   `json:"fromMe"`
	RequestID string `json:"requestId"`
}

// Match is a ranked candidate card
type Match struct {
	*models.Card
	Score         int            `json:"score"`
	ConnectStatus *ConnectStatus `json:"connectStatus"`
}

// FindMatches ranks actively looking candidates for the viewer.
// Results are ordered by score, then most recently active, then user id.
func (s *TeamFinderService) FindMatches(ctx context.Context, userID string, f MatchFilter) ([]Match, error) {
	viewer, err := s.cards.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "Create your team finder card first", "failed to load card")
	}

	if viewer.Active == models.ActivityNotLooking {
		return []Match{}, nil
	}

	excluded := map[string]bool{}
	if f.EventID != "" {
		if _, err := s.events.GetByID(ctx, f.EventID); err != nil {
			return nil, storeErr(err, "Event not found", "failed to load event")
		}
		regs, err := s.regs.ListByEvent(ctx, f.EventID)
		if err != nil {
			return nil, apperr.Internal("failed to load registrations", err)
		}
		for _, reg := range regs {
			excluded[reg.UserID] = true
		}
	}

	candidates, err := s.cards.ListActive(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list candidates", err)
	}

	statuses, err := s.connectStatuses(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	matches := []Match{}
	for _, c := range candidates {
		if c.UserID == userID || excluded[c.UserID] || !f.accepts(c, query) {
			continue
		}
		score := CompatibilityScore(viewer, c)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Card: c, Score: score, ConnectStatus: statuses[c.UserID]})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}
		return a.UserID < b.UserID
	})

	return matches, nil
}

func (f *MatchFilter) accepts(c *models.Card, query string) bool {
	if query != "" &&
		!strings.Contains(strings.ToLower(c.Name), query) &&
		!strings.Contains(strings.ToLower(c.Bio), query) {
		return false
	}
	if f.Role != "" && c.Role != f.Role && c.SecondaryRole != f.Role {
		return false
	}
	if len(f.Interests) > 0 && !intersects(c.Interests, f.Interests) {
		return false
	}
	if len(f.Availability) > 0 && !intersects(c.Availability, f.Availability) {
		return false
	}
	return true
}

// connectStatuses maps every counterpart of the viewer to the newest request between them
func (s *TeamFinderService) connectStatuses(ctx context.Context, userID string) (map[string]*ConnectStatus, error) {
	reqs, err := s.conns.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load connection requests", err)
	}

	statuses := make(map[string]*ConnectStatus, len(reqs))
	for _, r := range reqs {
		fromMe := r.FromUserID == userID
		other := r.ToUserID
		if !fromMe {
			other = r.FromUserID
		}
		if _, seen := statuses[other]; seen {
			continue
		}
		statuses[other] = &ConnectStatus{Status: r.Status, FromMe: fromMe, RequestID: r.ID}
	}
	return statuses, nil
}

// ActiveCount returns how many cards are actively looking, served from cache when possible
func (s *TeamFinderService) ActiveCount(ctx context.Context) (int64, error) {
	cached, err := s.cache.Get(ctx, activeCountKey)
	if err == nil {
		if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return n, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Msg("Active count cache read failed")
	}

	total, err := s.cards.CountActive(ctx)
	if err != nil {
		return 0, apperr.Internal("failed to count active cards", err)
	}

	if err := s.cache.Set(ctx, activeCountKey, strconv.FormatInt(total, 10), s.activeCountTTL); err != nil {
		log.Warn().Err(err).Msg("Active count cache write failed")
	}

	return total, nil
}

func (s *TeamFinderService) invalidateActiveCount(ctx context.Context) {
	if _, err := s.cache.Del(ctx, activeCountKey); err != nil {
		log.Warn().Err(err).Msg("Active count cache invalidation failed")
	}
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
