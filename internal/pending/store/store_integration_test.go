//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/intent"
	"github.com/MrJamesThe3rd/khata/internal/pending"
	"github.com/MrJamesThe3rd/khata/internal/pending/store"
	"github.com/MrJamesThe3rd/khata/internal/testutil"
)

func TestPostgres_ClaimAndSupersede(t *testing.T) {
	svc := pending.NewService(store.New(testutil.NewPostgres(t), config.DriverPostgres))
	ctx := context.Background()

	// Concurrent stores for one user leave exactly one pending action.
	var wg sync.WaitGroup

	for range 6 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Store(ctx, "user-1", pending.AwaitingPaymentMethod{Intent: intent.Sale})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	action, err := svc.Store(ctx, "user-1", confirmation(120))
	require.NoError(t, err)

	current, err := svc.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, action.ID, current.ID)

	var (
		mu        sync.Mutex
		succeeded int
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := svc.Claim(ctx, action.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, pending.ErrAlreadyProcessed)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)

	got, err := svc.Get(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.StatusConfirmed, got.Status)
}
