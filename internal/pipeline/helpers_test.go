package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/internal/drafts"
	"github.com/erandesamadhan2003/autopost-backend/internal/generation"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Draft{}, &models.PipelineJob{}, &models.PipelineJobSlot{}))
	return conn
}

// fakeGenerators answers with canned outputs unless a per-generator hook is set.
type fakeGenerators struct {
	mu    sync.Mutex
	calls map[enums.GeneratorType]*atomic.Int32
	hooks map[enums.GeneratorType]func(ctx context.Context, attempt int) error

	captionReq generation.CaptionRequest
	musicReq   generation.MusicRequest
}

func newFakeGenerators() *fakeGenerators {
	calls := map[enums.GeneratorType]*atomic.Int32{}
	for _, g := range enums.GeneratorTypes {
		calls[g] = &atomic.Int32{}
	}
	return &fakeGenerators{calls: calls, hooks: map[enums.GeneratorType]func(context.Context, int) error{}}
}

func (f *fakeGenerators) on(g enums.GeneratorType, hook func(ctx context.Context, attempt int) error) {
	f.hooks[g] = hook
}

func (f *fakeGenerators) count(g enums.GeneratorType) int {
	return int(f.calls[g].Load())
}

func (f *fakeGenerators) invoke(ctx context.Context, g enums.GeneratorType) error {
	attempt := int(f.calls[g].Add(1))
	if hook := f.hooks[g]; hook != nil {
		return hook(ctx, attempt)
	}
	return nil
}

func (f *fakeGenerators) GenerateCaptions(ctx context.Context, req generation.CaptionRequest) (*generation.CaptionResult, error) {
	f.mu.Lock()
	f.captionReq = req
	f.mu.Unlock()
	if err := f.invoke(ctx, enums.GeneratorCaption); err != nil {
		return nil, err
	}
	return &generation.CaptionResult{
		Captions: []types.Caption{
			{Text: "Golden hour at the bay", Hashtags: []string{"#sunset", "#bay"}},
			{Text: "Evening light"},
		},
		Hashtags: []string{"#travel", "#sunset"},
	}, nil
}

func (f *fakeGenerators) ProcessImages(ctx context.Context, _ generation.ImageRequest) (*generation.ImageResult, error) {
	if err := f.invoke(ctx, enums.GeneratorImage); err != nil {
		return nil, err
	}
	return &generation.ImageResult{Images: []types.ProcessedImage{
		{URL: "https://cdn/p1.jpg"},
		{URL: "https://cdn/p2.jpg"},
	}}, nil
}

func (f *fakeGenerators) GenerateVideo(ctx context.Context, _ generation.VideoRequest) (*generation.VideoResult, error) {
	if err := f.invoke(ctx, enums.GeneratorVideo); err != nil {
		return nil, err
	}
	return &generation.VideoResult{Video: &types.GeneratedVideo{URL: "https://cdn/v.mp4", Format: "mp4"}}, nil
}

func (f *fakeGenerators) SuggestMusic(ctx context.Context, req generation.MusicRequest) (*generation.MusicResult, error) {
	f.mu.Lock()
	f.musicReq = req
	f.mu.Unlock()
	if err := f.invoke(ctx, enums.GeneratorMusic); err != nil {
		return nil, err
	}
	return &generation.MusicResult{Suggestions: []types.MusicSuggestion{{Title: "Waves", Artist: "Tide"}}}, nil
}

type fixture struct {
	db           *gorm.DB
	tracker      Tracker
	drafts       drafts.Repository
	generators   *fakeGenerators
	orchestrator *Orchestrator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)
	tracker := NewTracker(db, DefaultMaxRetries)
	repo := drafts.NewRepository(db)
	gens := newFakeGenerators()
	orch, err := NewOrchestrator(Params{
		Tracker:    tracker,
		Drafts:     repo,
		Generators: gens,
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	return fixture{db: db, tracker: tracker, drafts: repo, generators: gens, orchestrator: orch}
}

func (f fixture) seedDraft(t *testing.T, status enums.DraftStatus) *models.Draft {
	t.Helper()
	draft := &models.Draft{
		UserID:         uuid.New(),
		Platform:       enums.PlatformInstagram,
		Platforms:      datatypes.JSONSlice[string]{"instagram"},
		Description:    "sunset over the bay",
		BrandTone:      "playful",
		UploadedImages: datatypes.JSONSlice[types.ImageRef]{{URL: "https://cdn/raw.jpg"}},
		Hashtags:       datatypes.JSONSlice[string]{"#sunset"},
		Status:         status,
	}
	require.NoError(t, f.drafts.Create(context.Background(), draft))
	return draft
}
