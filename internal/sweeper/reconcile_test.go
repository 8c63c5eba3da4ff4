package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/messaging"
	"github.com/feral-file/ff-reconciler/internal/mocks"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
	"github.com/feral-file/ff-reconciler/internal/sweeper"
)

const testContract = "0x1111111111111111111111111111111111111111"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testSweeperMocks contains all the mocks needed for testing the sweeper
type testSweeperMocks struct {
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	chain   *mocks.MockChainReader
	clock   *mocks.MockClock
	sweeper sweeper.Sweeper
}

// setupTestSweeper creates all the mocks and sweeper for testing. The
// sweeper drives a real reconciler, so chain expectations are set on the
// chain reader mock.
func setupTestSweeper(t *testing.T) *testSweeperMocks {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctrl := gomock.NewController(t)

	tm := &testSweeperMocks{
		ctrl:  ctrl,
		store: mocks.NewMockStore(ctrl),
		chain: mocks.NewMockChainReader(ctrl),
		clock: mocks.NewMockClock(ctrl),
	}

	tm.clock.EXPECT().Now().Return(testNow).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()
	// The cycle sleep never elapses in tests; Stop interrupts it instead
	tm.clock.EXPECT().After(gomock.Any()).Return(make(chan time.Time)).AnyTimes()

	r := reconciler.New(tm.store, tm.chain, messaging.NewNopPublisher(), tm.clock, reconciler.Config{})

	config := &sweeper.ReconcileSweeperConfig{
		CycleInterval:  10 * time.Minute,
		WorkerPoolSize: 2,
	}
	tm.sweeper = sweeper.NewReconcileSweeper(config, tm.store, r, tm.clock)

	return tm
}

// tearDownTestSweeper cleans up the test mocks
func tearDownTestSweeper(mocks *testSweeperMocks) {
	mocks.ctrl.Finish()
}

func TestReconcileSweeper_Name(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tearDownTestSweeper(tm)

	assert.Equal(t, "reconcile-sweeper", tm.sweeper.Name())
}

func TestReconcileSweeper_StartAndStop(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tearDownTestSweeper(tm)

	cycleRan := make(chan struct{})
	tm.store.EXPECT().
		ListCollections(gomock.Any(), true).
		DoAndReturn(func(context.Context, bool) ([]*schema.Collection, error) {
			close(cycleRan)
			return nil, nil
		})

	errCh := make(chan error, 1)
	go func() {
		errCh <- tm.sweeper.Start(context.Background())
	}()

	select {
	case <-cycleRan:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep cycle did not run")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tm.sweeper.Stop(stopCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestReconcileSweeper_CycleReconcilesEnabledCollections(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tearDownTestSweeper(tm)

	cycleDone := make(chan struct{})
	tm.store.EXPECT().
		ListCollections(gomock.Any(), true).
		Return([]*schema.Collection{
			{ContractAddress: testContract, Name: "Test Collection", Enabled: true},
		}, nil)

	// The collection has nothing mirrored and no listings, so the sweep
	// job finishes with nothing to check
	tm.store.EXPECT().
		CreateJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *schema.ReconciliationJob) error {
			assert.Equal(t, testContract, job.ContractAddress)
			assert.Equal(t, domain.ReasonSweep, job.Reason)
			return nil
		})
	tm.chain.EXPECT().
		FetchListings(gomock.Any(), testContract, uint64(0)).
		Return(nil, nil)
	tm.store.EXPECT().
		QueryByCollection(gomock.Any(), testContract, gomock.Any(), gomock.Any(), 0).
		Return(nil, nil)
	tm.store.EXPECT().
		FinishJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *schema.ReconciliationJob) error {
			assert.Equal(t, domain.OutcomeSuccess, job.Outcome)
			close(cycleDone)
			return nil
		})

	errCh := make(chan error, 1)
	go func() {
		errCh <- tm.sweeper.Start(context.Background())
	}()

	select {
	case <-cycleDone:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep cycle did not reconcile the collection")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tm.sweeper.Stop(stopCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestReconcileSweeper_StopWithoutStart(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tearDownTestSweeper(tm)

	assert.NoError(t, tm.sweeper.Stop(context.Background()))
}

func TestReconcileSweeper_DoubleStart(t *testing.T) {
	tm := setupTestSweeper(t)
	defer tearDownTestSweeper(tm)

	cycleRan := make(chan struct{})
	tm.store.EXPECT().
		ListCollections(gomock.Any(), true).
		DoAndReturn(func(context.Context, bool) ([]*schema.Collection, error) {
			close(cycleRan)
			return nil, nil
		})

	errCh := make(chan error, 1)
	go func() {
		errCh <- tm.sweeper.Start(context.Background())
	}()

	select {
	case <-cycleRan:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep cycle did not run")
	}

	assert.Error(t, tm.sweeper.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tm.sweeper.Stop(stopCtx))
	<-errCh
}
