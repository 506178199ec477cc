package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCoinType = "0xabc::stable_coin1::StableCoin1"

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func TestRecordEvent_RoundTrip(t *testing.T) {
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()

	event, err := store.RecordEvent(ctx, RecordEventParams{
		CoinType:  testCoinType,
		Kind:      KindMint,
		TxnHash:   strPtr("0xmint1"),
		Amount:    int64Ptr(1_000_000),
		Recipient: strPtr("0xabc"),
		VMStatus:  strPtr("Executed successfully"),
		Success:   true,
	})
	require.NoError(t, err)

	assert.NotZero(t, event.ID)
	assert.Equal(t, testCoinType, event.CoinType)
	assert.Equal(t, KindMint, event.Kind)
	require.NotNil(t, event.TxnHash)
	assert.Equal(t, "0xmint1", *event.TxnHash)
	require.NotNil(t, event.Amount)
	assert.Equal(t, int64(1_000_000), *event.Amount)
	assert.True(t, event.Success)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRecordEvent_NullableFields(t *testing.T) {
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()

	// Faucet funding has no transaction hash or VM status.
	event, err := store.RecordEvent(ctx, RecordEventParams{
		CoinType:  testCoinType,
		Kind:      KindFund,
		Amount:    int64Ptr(20_000_000),
		Recipient: strPtr("0xdef"),
		Success:   true,
	})
	require.NoError(t, err)

	assert.Nil(t, event.TxnHash)
	assert.Nil(t, event.VMStatus)
	require.NotNil(t, event.Recipient)
	assert.Equal(t, "0xdef", *event.Recipient)
}

func TestGetEventByHash(t *testing.T) {
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()

	_, err := store.RecordEvent(ctx, RecordEventParams{
		CoinType: testCoinType,
		Kind:     KindPublish,
		TxnHash:  strPtr("0xpub1"),
		Success:  true,
	})
	require.NoError(t, err)

	event, err := store.GetEventByHash(ctx, "0xpub1")
	require.NoError(t, err)
	assert.Equal(t, KindPublish, event.Kind)

	_, err = store.GetEventByHash(ctx, "0xmissing")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents_NewestFirstAndPaginated(t *testing.T) {
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()

	kinds := []string{KindFund, KindPublish, KindRegister, KindMint, KindTransfer}
	for i, kind := range kinds {
		_, err := store.RecordEvent(ctx, RecordEventParams{
			CoinType: testCoinType,
			Kind:     kind,
			TxnHash:  strPtr("0xhash" + kind),
			Amount:   int64Ptr(int64(i)),
			Success:  true,
		})
		require.NoError(t, err)
	}

	events, err := store.ListEvents(ctx, ListEventsParams{CoinType: testCoinType, Limit: 3})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, KindTransfer, events[0].Kind)
	assert.Equal(t, KindMint, events[1].Kind)
	assert.Equal(t, KindRegister, events[2].Kind)

	rest, err := store.ListEvents(ctx, ListEventsParams{CoinType: testCoinType, Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, KindPublish, rest[0].Kind)
	assert.Equal(t, KindFund, rest[1].Kind)
}

func TestListEvents_FiltersByCoinType(t *testing.T) {
	store := NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	ctx := context.Background()

	_, err := store.RecordEvent(ctx, RecordEventParams{
		CoinType: testCoinType,
		Kind:     KindMint,
		Success:  true,
	})
	require.NoError(t, err)
	_, err = store.RecordEvent(ctx, RecordEventParams{
		CoinType: "0xother::other_coin::OtherCoin",
		Kind:     KindMint,
		Success:  true,
	})
	require.NoError(t, err)

	events, err := store.ListEvents(ctx, ListEventsParams{CoinType: testCoinType})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, testCoinType, events[0].CoinType)

	all, err := store.ListEvents(ctx, ListEventsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
