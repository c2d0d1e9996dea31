package factory

import (
	"time"

	"github.com/pegboard/mastermind/internal/dependencies/mocks"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/reliable"
	"github.com/pegboard/mastermind/internal/services/game"
	"github.com/pegboard/mastermind/internal/storage/memory"
	"github.com/pegboard/mastermind/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing. The clock is mocked for
// deterministic timestamps; randomness stays real so token minting works
// without queueing values. Delivery retries are tightened so timeout paths
// resolve quickly.
func NewTestApp(gameCfg game.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	reliableCfg := reliable.Config{RetryInterval: 5 * time.Millisecond, MaxAttempts: 4}

	app := newWithDependencies(store, mockClock, random.New(), reliableCfg, gameCfg, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}
