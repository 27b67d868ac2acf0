package services

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
	"github.com/kswiatek/tile-league/storage"
)

type fakeUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.key = key
	f.contentType = contentType
	f.body = body
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func TestExportRatings(t *testing.T) {
	players := &FakePlayerRepository{
		ListByTournamentFn: func(_ context.Context, tournamentID int) ([]*models.Player, error) {
			return []*models.Player{
				{ID: 1, FirstName: "Jan", LastName: "Kowalski", Rating: 1248.5},
				{ID: 2, FirstName: "Anna", LastName: "Nowak", Rating: 1151.5},
			}, nil
		},
	}
	uploader := &fakeUploader{}
	service := NewExportService(players, knownTournament(), uploader, discardLogger())

	result, err := service.ExportRatings(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ratings/7/latest.csv", result.Key)
	assert.Equal(t, "text/csv", uploader.contentType)
	assert.Equal(t,
		"player_id,name,rating\n1,Jan Kowalski,1248.5\n2,Anna Nowak,1151.5\n",
		string(uploader.body))
}

func TestExportRatingsUnknownTournament(t *testing.T) {
	tournaments := &FakeTournamentRepository{
		GetByIDFn: func(_ context.Context, id int) (*models.Tournament, error) {
			return nil, repositories.ErrTournamentNotFound
		},
	}
	service := NewExportService(&FakePlayerRepository{}, tournaments, &fakeUploader{}, discardLogger())

	_, err := service.ExportRatings(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
