package services

import (
	"context"
	"sort"
	"sync"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/names"
	"github.com/kswiatek/tile-league/repositories"
)

// Программируемые заглушки репозиториев: каждый метод делегирует в
// одноимённое поле-функцию, nil-поле означает «метод не ожидался».

type FakePlayerRepository struct {
	CreateFn           func(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error
	GetByIDFn          func(ctx context.Context, id int) (*models.Player, error)
	GetByNormKeyFn     func(ctx context.Context, key string) (*models.Player, error)
	ListByNormKeysFn   func(ctx context.Context, keys []string) ([]*models.Player, error)
	ListAllFn          func(ctx context.Context) ([]*models.Player, error)
	ListByTournamentFn func(ctx context.Context, tournamentID int) ([]*models.Player, error)
	UpdateRatingsFn    func(ctx context.Context, ratings map[int]float64) error
}

func (f *FakePlayerRepository) Create(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	return f.CreateFn(ctx, exec, player)
}

func (f *FakePlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *FakePlayerRepository) GetByNormKey(ctx context.Context, key string) (*models.Player, error) {
	return f.GetByNormKeyFn(ctx, key)
}

func (f *FakePlayerRepository) ListByNormKeys(ctx context.Context, keys []string) ([]*models.Player, error) {
	return f.ListByNormKeysFn(ctx, keys)
}

func (f *FakePlayerRepository) ListAll(ctx context.Context) ([]*models.Player, error) {
	return f.ListAllFn(ctx)
}

func (f *FakePlayerRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	return f.ListByTournamentFn(ctx, tournamentID)
}

func (f *FakePlayerRepository) UpdateRatings(ctx context.Context, ratings map[int]float64) error {
	return f.UpdateRatingsFn(ctx, ratings)
}

type FakeTournamentRepository struct {
	CreateFn       func(ctx context.Context, tournament *models.Tournament) error
	GetByIDFn      func(ctx context.Context, id int) (*models.Tournament, error)
	ListFn         func(ctx context.Context) ([]*models.Tournament, error)
	UpdateStatusFn func(ctx context.Context, id int, status models.TournamentStatus) error
}

func (f *FakeTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	return f.CreateFn(ctx, tournament)
}

func (f *FakeTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *FakeTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	return f.ListFn(ctx)
}

func (f *FakeTournamentRepository) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	return f.UpdateStatusFn(ctx, id, status)
}

type FakeTableRepository struct {
	CreateWithParticipantsFn func(ctx context.Context, table *models.GameTable, playerIDs []int) error
	GetByIDFn                func(ctx context.Context, id int) (*models.GameTable, error)
	ListByTournamentFn       func(ctx context.Context, tournamentID int) ([]*models.GameTable, error)
	ListParticipantsFn       func(ctx context.Context, tableID int) ([]models.TableParticipant, error)
	DeleteFn                 func(ctx context.Context, id int) error
}

func (f *FakeTableRepository) CreateWithParticipants(ctx context.Context, table *models.GameTable, playerIDs []int) error {
	return f.CreateWithParticipantsFn(ctx, table, playerIDs)
}

func (f *FakeTableRepository) GetByID(ctx context.Context, id int) (*models.GameTable, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *FakeTableRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error) {
	return f.ListByTournamentFn(ctx, tournamentID)
}

func (f *FakeTableRepository) ListParticipants(ctx context.Context, tableID int) ([]models.TableParticipant, error) {
	return f.ListParticipantsFn(ctx, tableID)
}

func (f *FakeTableRepository) Delete(ctx context.Context, id int) error {
	return f.DeleteFn(ctx, id)
}

type FakeRoundRepository struct {
	UpsertWinnerFn       func(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error
	ReplaceLossesFn      func(ctx context.Context, exec repositories.SQLExecutor, roundID int, losses []models.LossRecord) error
	SaveRoundFn          func(ctx context.Context, round *models.Round, losses []models.LossRecord) error
	GetByTableAndNrFn    func(ctx context.Context, tableID, roundNr int) (*models.Round, error)
	ListByTableFn        func(ctx context.Context, tableID int) ([]*models.Round, error)
	ListLossesByRoundFn  func(ctx context.Context, roundID int) ([]models.LossRecord, error)
	ListAllOrderedFn     func(ctx context.Context) ([]*models.Round, error)
	DeleteByTableAndNrFn func(ctx context.Context, tableID, roundNr int) error
}

func (f *FakeRoundRepository) UpsertWinner(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	return f.UpsertWinnerFn(ctx, exec, round)
}

func (f *FakeRoundRepository) ReplaceLosses(ctx context.Context, exec repositories.SQLExecutor, roundID int, losses []models.LossRecord) error {
	return f.ReplaceLossesFn(ctx, exec, roundID, losses)
}

func (f *FakeRoundRepository) SaveRound(ctx context.Context, round *models.Round, losses []models.LossRecord) error {
	return f.SaveRoundFn(ctx, round, losses)
}

func (f *FakeRoundRepository) GetByTableAndNr(ctx context.Context, tableID, roundNr int) (*models.Round, error) {
	return f.GetByTableAndNrFn(ctx, tableID, roundNr)
}

func (f *FakeRoundRepository) ListByTable(ctx context.Context, tableID int) ([]*models.Round, error) {
	return f.ListByTableFn(ctx, tableID)
}

func (f *FakeRoundRepository) ListLossesByRound(ctx context.Context, roundID int) ([]models.LossRecord, error) {
	return f.ListLossesByRoundFn(ctx, roundID)
}

func (f *FakeRoundRepository) ListAllOrdered(ctx context.Context) ([]*models.Round, error) {
	return f.ListAllOrderedFn(ctx)
}

func (f *FakeRoundRepository) DeleteByTableAndNr(ctx context.Context, tableID, roundNr int) error {
	return f.DeleteByTableAndNrFn(ctx, tableID, roundNr)
}

type FakeDraftRepository struct {
	SaveFn   func(ctx context.Context, draft *models.EntryDraft) error
	GetFn    func(ctx context.Context, userID, tableID int) (*models.EntryDraft, error)
	DeleteFn func(ctx context.Context, userID, tableID int) error
}

func (f *FakeDraftRepository) Save(ctx context.Context, draft *models.EntryDraft) error {
	return f.SaveFn(ctx, draft)
}

func (f *FakeDraftRepository) Get(ctx context.Context, userID, tableID int) (*models.EntryDraft, error) {
	return f.GetFn(ctx, userID, tableID)
}

func (f *FakeDraftRepository) Delete(ctx context.Context, userID, tableID int) error {
	return f.DeleteFn(ctx, userID, tableID)
}

// memoryPlayerStore имитирует хранилище с уникальным norm_key под мьютексом:
// на нём проверяется протокол insert-then-retry-on-conflict, включая
// конкурентные вызовы.
type memoryPlayerStore struct {
	mu      sync.Mutex
	nextID  int
	byKey   map[string]*models.Player
	inserts int
}

func newMemoryPlayerStore() *memoryPlayerStore {
	return &memoryPlayerStore{nextID: 1, byKey: make(map[string]*models.Player)}
}

func (m *memoryPlayerStore) create(player *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := names.Normalize(player.FullName())
	if key == "" {
		return repositories.ErrPlayerKeyEmpty
	}
	if _, exists := m.byKey[key]; exists {
		return repositories.ErrPlayerKeyConflict
	}
	player.ID = m.nextID
	player.NormKey = key
	m.nextID++
	m.inserts++
	stored := *player
	m.byKey[key] = &stored
	return nil
}

func (m *memoryPlayerStore) getByKey(key string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.byKey[key]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (m *memoryPlayerStore) listByKeys(keys []string) ([]*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := make([]*models.Player, 0, len(keys))
	for _, key := range keys {
		if player, ok := m.byKey[key]; ok {
			copied := *player
			found = append(found, &copied)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

func (m *memoryPlayerStore) repo() *FakePlayerRepository {
	return &FakePlayerRepository{
		CreateFn: func(_ context.Context, _ repositories.SQLExecutor, player *models.Player) error {
			return m.create(player)
		},
		GetByNormKeyFn: func(_ context.Context, key string) (*models.Player, error) {
			return m.getByKey(key)
		},
		ListByNormKeysFn: func(_ context.Context, keys []string) ([]*models.Player, error) {
			return m.listByKeys(keys)
		},
	}
}
