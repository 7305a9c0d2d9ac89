package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeProfileStore struct {
	existing map[string]bool
	byURL    map[string]*models.Profile
	created  []models.ImportProfileRequest
	marked   []int64
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		existing: map[string]bool{},
		byURL:    map[string]*models.Profile{},
	}
}

func (f *fakeProfileStore) Exists(_ context.Context, profileURL, username string) (bool, error) {
	return f.existing[profileURL+"|"+username], nil
}

func (f *fakeProfileStore) GetByProfileURL(_ context.Context, profileURL string) (*models.Profile, error) {
	return f.byURL[profileURL], nil
}

func (f *fakeProfileStore) Create(_ context.Context, req models.ImportProfileRequest) (*models.Profile, error) {
	f.created = append(f.created, req)
	return &models.Profile{ID: int64(len(f.created)), ProfileURL: req.ProfileURL}, nil
}

func (f *fakeProfileStore) MarkCurrentConnection(_ context.Context, id int64) error {
	f.marked = append(f.marked, id)
	return nil
}

func testImportLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "plain profile URL",
			url:      "https://www.linkedin.com/in/janedoe",
			expected: "janedoe",
		},
		{
			name:     "trailing slash",
			url:      "https://www.linkedin.com/in/janedoe/",
			expected: "janedoe",
		},
		{
			name:     "query string",
			url:      "https://www.linkedin.com/in/janedoe?miniProfileUrn=abc",
			expected: "janedoe",
		},
		{
			name:     "fragment",
			url:      "https://www.linkedin.com/in/janedoe#about",
			expected: "janedoe",
		},
		{
			name:     "no profile segment",
			url:      "https://www.linkedin.com/company/acme",
			expected: "",
		},
		{
			name:     "empty",
			url:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractUsername(tt.url))
		})
	}
}

func TestScoreJobTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected int
	}{
		{"Chief Product Officer", 10},
		{"VP of Product", 10},
		{"Head of Product", 10},
		{"Product Recruiter", 10},
		{"Senior Product Manager", 8},
		{"Principal Product Manager", 8},
		{"Product Manager", 6},
		{"PM at Acme Corp", 6},
		{"Product Owner", 4},
		{"Product Marketing Manager", 4},
		{"CTO", 2},
		{"Technical Recruiter", 2},
		{"Account Executive, Sales", 1},
		{"Staff Software Engineer", 1},
		{"", 1},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScoreJobTitle(tt.title))
		})
	}
}

func TestImport(t *testing.T) {
	store := newFakeProfileStore()
	store.existing["https://www.linkedin.com/in/already-tracked|already-tracked"] = true

	csvText := strings.Join([]string{
		"first_name,last_name,profile_url,job_title",
		"Jane,Doe,https://www.linkedin.com/in/janedoe,Senior Product Manager",
		"Jane,Doe,https://www.linkedin.com/in/janedoe,Senior Product Manager",
		"Sam,Lee,https://www.linkedin.com/in/already-tracked,CTO",
		",Nolastname,https://www.linkedin.com/in/missing-first,PM",
		"Ada,Byron,https://www.linkedin.com/in/adabyron/,Head of Product",
	}, "\n")

	im := New(store, testImportLogger())
	result, err := im.Import(context.Background(), strings.NewReader(csvText), models.ConnectionStatusProspect)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 2, result.NewProfiles)
	assert.Equal(t, 2, result.DuplicatesSkipped)
	assert.Equal(t, 1, result.Errors)

	require.Len(t, store.created, 2)
	first := store.created[0]
	assert.Equal(t, "janedoe", first.Username)
	assert.Equal(t, "Jane", first.FirstName)
	assert.Equal(t, 8, first.JobTitleScore)
	assert.Equal(t, string(models.ConnectionStatusProspect), first.Connection)

	second := store.created[1]
	assert.Equal(t, "adabyron", second.Username)
	assert.Equal(t, 10, second.JobTitleScore)
}

func TestImportMissingRequiredColumn(t *testing.T) {
	csvText := "first_name,last_name\nJane,Doe"

	im := New(newFakeProfileStore(), testImportLogger())
	_, err := im.Import(context.Background(), strings.NewReader(csvText), models.ConnectionStatusProspect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile_url")
}

func TestImportConnections(t *testing.T) {
	store := newFakeProfileStore()
	store.byURL["https://www.linkedin.com/in/known-prospect"] = &models.Profile{
		ID:               7,
		ProfileURL:       "https://www.linkedin.com/in/known-prospect",
		Status:           models.FunnelStatusWeek2Commenting,
		ConnectionStatus: models.ConnectionStatusProspect,
	}
	store.byURL["https://www.linkedin.com/in/old-friend"] = &models.Profile{
		ID:               9,
		ProfileURL:       "https://www.linkedin.com/in/old-friend",
		Status:           models.FunnelStatusMaintenance,
		ConnectionStatus: models.ConnectionStatusCurrent,
	}

	csvText := strings.Join([]string{
		"first_name,last_name,profile_url,job_title",
		"Kim,Park,https://www.linkedin.com/in/known-prospect,Product Manager",
		"Lee,Chan,https://www.linkedin.com/in/old-friend,CTO",
		"New,Person,https://www.linkedin.com/in/brand-new,Head of Product",
	}, "\n")

	im := New(store, testImportLogger())
	result, err := im.ImportConnections(context.Background(), strings.NewReader(csvText))
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.NewConnections)
	assert.Equal(t, 1, result.ReconciledProspects)
	assert.Equal(t, 1, result.DuplicatesSkipped)
	assert.Equal(t, 0, result.Errors)

	assert.Equal(t, []int64{7}, store.marked)
	require.Len(t, store.created, 1)
	assert.Equal(t, "brand-new", store.created[0].Username)
	assert.Equal(t, string(models.ConnectionStatusCurrent), store.created[0].Connection)
}
