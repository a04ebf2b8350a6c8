package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/courtside/bracket-engine/models"
	"github.com/courtside/bracket-engine/repositories"
)

var errUnknownGroupTeam = errors.New("unknown group team")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is the shared in-memory backing for the repository fakes. It
// mimics the conditional-write behavior of the Postgres layer (status CAS,
// null-guarded slots, write-once ranks) so the services exercise the same
// code paths they do against a real database.
type fakeStore struct {
	mu     sync.Mutex
	nextID int

	configs     map[int]*models.BracketConfig
	groups      map[int]*models.PreliminaryGroup
	groupTeams  map[int]*models.GroupTeam
	matches     map[int]*models.BracketMatch
	entries     map[int][]*models.Entry // by division
	userEntries map[int][]int           // by user
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:     make(map[int]*models.BracketConfig),
		groups:      make(map[int]*models.PreliminaryGroup),
		groupTeams:  make(map[int]*models.GroupTeam),
		matches:     make(map[int]*models.BracketMatch),
		entries:     make(map[int][]*models.Entry),
		userEntries: make(map[int][]int),
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) seedConfig(config *models.BracketConfig) *models.BracketConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config.ID == 0 {
		config.ID = s.id()
	}
	c := *config
	s.configs[c.ID] = &c
	return config
}

func (s *fakeStore) seedEntries(divisionID, count int) []*models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*models.Entry, count)
	for i := range entries {
		entries[i] = &models.Entry{
			EntryID:    s.id(),
			DivisionID: divisionID,
		}
	}
	s.entries[divisionID] = append(s.entries[divisionID], entries...)
	return entries
}

// fakeTransactor runs the function directly; the fakes apply writes
// immediately, which is good enough for single-path service tests.
type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeConfigRepo struct{ store *fakeStore }

func (r *fakeConfigRepo) Create(ctx context.Context, exec repositories.SQLExecutor, config *models.BracketConfig) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.configs {
		if existing.DivisionID == config.DivisionID {
			return repositories.ErrBracketConfigExists
		}
	}
	config.ID = r.store.id()
	c := *config
	r.store.configs[c.ID] = &c
	return nil
}

func (r *fakeConfigRepo) GetByID(ctx context.Context, id int) (*models.BracketConfig, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	config, ok := r.store.configs[id]
	if !ok {
		return nil, repositories.ErrBracketConfigNotFound
	}
	c := *config
	return &c, nil
}

func (r *fakeConfigRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BracketConfig, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeConfigRepo) GetByDivision(ctx context.Context, divisionID int) (*models.BracketConfig, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, config := range r.store.configs {
		if config.DivisionID == divisionID {
			c := *config
			return &c, nil
		}
	}
	return nil, repositories.ErrBracketConfigNotFound
}

func (r *fakeConfigRepo) UpdateSettings(ctx context.Context, exec repositories.SQLExecutor, id int, hasPreliminaries, thirdPlaceMatch bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	config, ok := r.store.configs[id]
	if !ok {
		return repositories.ErrBracketConfigNotFound
	}
	config.HasPreliminaries = hasPreliminaries
	config.ThirdPlaceMatch = thirdPlaceMatch
	return nil
}

func (r *fakeConfigRepo) SetBracketSize(ctx context.Context, exec repositories.SQLExecutor, id, size int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	config, ok := r.store.configs[id]
	if !ok {
		return repositories.ErrBracketConfigNotFound
	}
	config.BracketSize = &size
	return nil
}

func (r *fakeConfigRepo) AdvanceStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.BracketStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	config, ok := r.store.configs[id]
	if !ok {
		return repositories.ErrBracketConfigNotFound
	}
	if config.Status != from {
		return repositories.ErrBracketConfigStatusConflict
	}
	config.Status = to
	return nil
}

type fakeGroupRepo struct{ store *fakeStore }

func (r *fakeGroupRepo) CreateGroup(ctx context.Context, exec repositories.SQLExecutor, group *models.PreliminaryGroup) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	group.ID = r.store.id()
	g := *group
	g.Teams = nil
	r.store.groups[g.ID] = &g
	return nil
}

func (r *fakeGroupRepo) CreateGroupTeam(ctx context.Context, exec repositories.SQLExecutor, team *models.GroupTeam) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team.ID = r.store.id()
	t := *team
	r.store.groupTeams[t.ID] = &t
	return nil
}

func (r *fakeGroupRepo) ListByConfig(ctx context.Context, configID int) ([]*models.PreliminaryGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var groups []*models.PreliminaryGroup
	for _, group := range r.store.groups {
		if group.BracketConfigID != configID {
			continue
		}
		g := *group
		g.Teams = r.teamsLocked(group.ID)
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].DisplayOrder < groups[j].DisplayOrder })
	return groups, nil
}

func (r *fakeGroupRepo) ListTeamsByGroup(ctx context.Context, groupID int) ([]models.GroupTeam, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.teamsLocked(groupID), nil
}

func (r *fakeGroupRepo) teamsLocked(groupID int) []models.GroupTeam {
	var teams []models.GroupTeam
	for _, team := range r.store.groupTeams {
		if team.GroupID == groupID {
			teams = append(teams, *team)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams
}

func (r *fakeGroupRepo) CountByConfig(ctx context.Context, configID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, group := range r.store.groups {
		if group.BracketConfigID == configID {
			count++
		}
	}
	return count, nil
}

func (r *fakeGroupRepo) DeleteByConfig(ctx context.Context, exec repositories.SQLExecutor, configID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, group := range r.store.groups {
		if group.BracketConfigID != configID {
			continue
		}
		for teamID, team := range r.store.groupTeams {
			if team.GroupID == id {
				delete(r.store.groupTeams, teamID)
			}
		}
		for matchID, match := range r.store.matches {
			if match.GroupID != nil && *match.GroupID == id {
				delete(r.store.matches, matchID)
			}
		}
		delete(r.store.groups, id)
	}
	return nil
}

func (r *fakeGroupRepo) UpdateTeamTally(ctx context.Context, exec repositories.SQLExecutor, teamID, wins, losses, pointsFor, pointsAgainst int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.groupTeams[teamID]
	if !ok {
		return errUnknownGroupTeam
	}
	team.Wins, team.Losses = wins, losses
	team.PointsFor, team.PointsAgainst = pointsFor, pointsAgainst
	return nil
}

func (r *fakeGroupRepo) SetFinalRank(ctx context.Context, exec repositories.SQLExecutor, teamID, rank int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.groupTeams[teamID]
	if !ok {
		return errUnknownGroupTeam
	}
	if team.FinalRank != nil {
		return nil // write-once
	}
	team.FinalRank = &rank
	return nil
}

type fakeMatchRepo struct{ store *fakeStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.BracketMatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match.ID = r.store.id()
	m := *match
	r.store.matches[m.ID] = &m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.BracketMatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	m := *match
	return &m, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BracketMatch, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) ListByConfig(ctx context.Context, configID int, phase *models.MatchPhase) ([]*models.BracketMatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var matches []*models.BracketMatch
	for _, match := range r.store.matches {
		if match.BracketConfigID != configID {
			continue
		}
		if phase != nil && match.Phase != *phase {
			continue
		}
		m := *match
		matches = append(matches, &m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].MatchNumber < matches[j].MatchNumber })
	return matches, nil
}

func (r *fakeMatchRepo) ListEliminationByConfig(ctx context.Context, configID int) ([]*models.BracketMatch, error) {
	all, _ := r.ListByConfig(ctx, configID, nil)
	var matches []*models.BracketMatch
	for _, match := range all {
		if match.Phase != models.PhasePreliminary {
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (r *fakeMatchRepo) ListByGroup(ctx context.Context, groupID int) ([]*models.BracketMatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var matches []*models.BracketMatch
	for _, match := range r.store.matches {
		if match.GroupID != nil && *match.GroupID == groupID {
			m := *match
			matches = append(matches, &m)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].MatchNumber < matches[j].MatchNumber })
	return matches, nil
}

func (r *fakeMatchRepo) ExistsPreliminary(ctx context.Context, configID int) (bool, error) {
	matches, _ := r.ListByConfig(ctx, configID, nil)
	for _, match := range matches {
		if match.Phase == models.PhasePreliminary {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMatchRepo) ExistsElimination(ctx context.Context, configID int) (bool, error) {
	matches, err := r.ListEliminationByConfig(ctx, configID)
	return len(matches) > 0, err
}

func (r *fakeMatchRepo) DeleteEliminationByConfig(ctx context.Context, exec repositories.SQLExecutor, configID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, match := range r.store.matches {
		if match.BracketConfigID == configID && match.Phase != models.PhasePreliminary {
			delete(r.store.matches, id)
		}
	}
	return nil
}

func (r *fakeMatchRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.NextMatchID = nextID
	match.NextMatchSlot = nextSlot
	match.LoserNextMatchID = loserNextID
	match.LoserNextMatchSlot = loserNextSlot
	return nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id, team1Score, team2Score, winnerEntryID int, setsDetail json.RawMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Status == models.MatchStatusCompleted {
		return repositories.ErrMatchAlreadyCompleted
	}
	match.Team1Score = &team1Score
	match.Team2Score = &team2Score
	match.WinnerEntryID = &winnerEntryID
	match.SetsDetail = setsDetail
	match.Status = models.MatchStatusCompleted
	return nil
}

func (r *fakeMatchRepo) AssignSlot(ctx context.Context, exec repositories.SQLExecutor, matchID, slot, entryID int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[matchID]
	if !ok {
		return false, repositories.ErrMatchNotFound
	}
	target := &match.Team1EntryID
	if slot == 2 {
		target = &match.Team2EntryID
	}
	if *target != nil {
		return false, nil
	}
	id := entryID
	*target = &id
	return true, nil
}

func (r *fakeMatchRepo) SetCourtLabel(ctx context.Context, id int, label string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	match, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.CourtLabel = &label
	return nil
}

type fakeEntryRepo struct{ store *fakeStore }

func (r *fakeEntryRepo) ListConfirmedByDivision(ctx context.Context, divisionID int) ([]*models.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entries := make([]*models.Entry, len(r.store.entries[divisionID]))
	copy(entries, r.store.entries[divisionID])
	return entries, nil
}

func (r *fakeEntryRepo) ListEntryIDsByUser(ctx context.Context, userID int) ([]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.userEntries[userID], nil
}

// recordingPublisher captures live events for assertions.
type recordingPublisher struct {
	mu      sync.Mutex
	created []*models.BracketMatch
	updated []*models.BracketMatch
}

func (p *recordingPublisher) PublishMatchCreated(match *models.BracketMatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, match)
}

func (p *recordingPublisher) PublishMatchUpdated(match *models.BracketMatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, match)
}

func (p *recordingPublisher) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created)
}

func (p *recordingPublisher) updatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updated)
}

// fixture bundles one wired set of fakes and services under test.
type fixture struct {
	store     *fakeStore
	configs   *fakeConfigRepo
	groups    *fakeGroupRepo
	matches   *fakeMatchRepo
	entries   *fakeEntryRepo
	publisher *recordingPublisher

	configService BracketConfigService
	preliminary   PreliminaryService
	mainBracket   MainBracketService
	results       MatchResultService
}

func newFixture() *fixture {
	store := newFakeStore()
	f := &fixture{
		store:     store,
		configs:   &fakeConfigRepo{store: store},
		groups:    &fakeGroupRepo{store: store},
		matches:   &fakeMatchRepo{store: store},
		entries:   &fakeEntryRepo{store: store},
		publisher: &recordingPublisher{},
	}
	logger := testLogger()
	tx := fakeTransactor{}

	f.configService = NewBracketConfigService(nil, f.configs, f.groups)
	f.preliminary = NewPreliminaryService(tx, f.configs, f.groups, f.matches, f.entries, f.publisher, logger)
	f.mainBracket = NewMainBracketService(tx, f.configs, f.groups, f.matches, f.entries, f.publisher, logger)
	f.results = NewMatchResultService(tx, f.configs, f.matches, f.entries, f.preliminary, f.publisher, nil, logger)
	return f
}
