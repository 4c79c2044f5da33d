package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/customer/store"
	"github.com/MrJamesThe3rd/khata/internal/testutil"
)

func TestStore_Customers(t *testing.T) {
	s := store.New(testutil.NewSQLite(t), config.DriverSQLite)
	ctx := context.Background()

	phone := "+919876543210"
	asha := &customer.Customer{Name: "Asha", Phone: &phone}
	require.NoError(t, s.CreateCustomer(ctx, asha))
	require.NoError(t, s.CreateCustomer(ctx, &customer.Customer{Name: "Ashok Kumar"}))
	require.NoError(t, s.CreateCustomer(ctx, &customer.Customer{Name: "Meena"}))

	got, err := s.GetCustomer(ctx, asha.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)

	byName, err := s.FindByName(ctx, "ASHA")
	require.NoError(t, err)
	assert.Equal(t, asha.ID, byName.ID)

	matches, err := s.SearchCustomers(ctx, "ash")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Asha", matches[0].Name)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.GetCustomer(ctx, uuid.New())
	assert.ErrorIs(t, err, customer.ErrNotFound)

	dup := &customer.Customer{Name: "Other", Phone: &phone}
	assert.Error(t, s.CreateCustomer(ctx, dup))
}

func TestStore_FindOrCreateCustomer(t *testing.T) {
	s := store.New(testutil.NewSQLite(t), config.DriverSQLite)
	ctx := context.Background()

	existing := &customer.Customer{Name: "Asha"}
	require.NoError(t, s.CreateCustomer(ctx, existing))

	found := &customer.Customer{Name: "ASHA"}
	created, err := s.FindOrCreateCustomer(ctx, found)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, found.ID)
	assert.Equal(t, "Asha", found.Name)

	const callers = 8

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[uuid.UUID]int)
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			c := &customer.Customer{Name: "Meena"}
			_, err := s.FindOrCreateCustomer(ctx, c)
			assert.NoError(t, err)

			mu.Lock()
			ids[c.ID]++
			mu.Unlock()
		}()
	}

	wg.Wait()

	require.Len(t, ids, 1)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
