package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zwiggato/internal/failure"
	"github.com/roach88/zwiggato/internal/order"
	"github.com/roach88/zwiggato/internal/store"
	"github.com/roach88/zwiggato/internal/testutil"
)

var spaghetti = order.Line{ID: 1, Name: "Classic Spaghetti", Price: 12.5, Quantity: 2}

func newLedger(t *testing.T, policy TotalPolicy) (*Ledger, *Reader, *store.Store, *testutil.DeterministicClock) {
	t.Helper()
	st := testutil.OpenStore(t)
	clock := testutil.NewDeterministicClock()
	l := New(st, Options{
		Policy: policy,
		Clock:  clock,
		Logger: testutil.DiscardLogger(),
	})
	return l, NewReader(st, testutil.DiscardLogger()), st, clock
}

func TestParseTotalPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    TotalPolicy
		wantErr bool
	}{
		{"", PolicyVerify, false},
		{"verify", PolicyVerify, false},
		{"trust", PolicyTrust, false},
		{"TRUST", "", true},
		{"lenient", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTotalPolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmit_VerifyAcceptsRecomputedTotal(t *testing.T) {
	l, _, _, clock := newLedger(t, PolicyVerify)

	o, err := l.Submit(context.Background(), order.Submission{
		Items: []order.Line{spaghetti},
		Total: 28.5,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, []order.Line{spaghetti}, o.Items)
	assert.Equal(t, 28.5, o.Total)
	assert.Equal(t, testutil.DefaultEpoch, o.CreatedAt)
	assert.Equal(t, int64(1), clock.Calls())
}

func TestSubmit_VerifyWithinTolerance(t *testing.T) {
	l, _, _, _ := newLedger(t, PolicyVerify)

	o, err := l.Submit(context.Background(), order.Submission{
		Items: []order.Line{spaghetti},
		Total: 28.49,
	})
	require.NoError(t, err)
	assert.Equal(t, 28.49, o.Total)
}

func TestSubmit_VerifyRejectsMismatchedTotal(t *testing.T) {
	l, r, _, _ := newLedger(t, PolicyVerify)
	ctx := context.Background()

	_, err := l.Submit(ctx, order.Submission{
		Items: []order.Line{spaghetti},
		Total: 28.0,
	})
	require.Error(t, err)
	assert.True(t, failure.IsValidation(err))

	var fe *failure.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "total", fe.Field)
	assert.Contains(t, fe.Message, "28.50")

	orders, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected submission must not be written")
}

func TestSubmit_TrustAcceptsClaimedTotal(t *testing.T) {
	l, r, _, _ := newLedger(t, PolicyTrust)
	ctx := context.Background()

	o, err := l.Submit(ctx, order.Submission{
		Items: []order.Line{spaghetti},
		Total: 28.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 28.0, o.Total)

	orders, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
	assert.Equal(t, []order.Line{spaghetti}, orders[0].Items)
}

func TestSubmit_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		sub   order.Submission
		field string
	}{
		{"empty items", order.Submission{Items: []order.Line{}, Total: 10}, "items"},
		{"nil items", order.Submission{Total: 10}, "items"},
		{"zero total", order.Submission{Items: []order.Line{spaghetti}, Total: 0}, "total"},
		{"negative total", order.Submission{Items: []order.Line{spaghetti}, Total: -1}, "total"},
		{"zero quantity", order.Submission{Items: []order.Line{{ID: 1, Name: "x", Price: 1, Quantity: 0}}, Total: 4.5}, "items[0].quantity"},
		{"blank name", order.Submission{Items: []order.Line{{ID: 1, Name: "  ", Price: 1, Quantity: 1}}, Total: 4.5}, "items[0].name"},
	}

	for _, policy := range []TotalPolicy{PolicyVerify, PolicyTrust} {
		for _, tt := range tests {
			t.Run(string(policy)+"/"+tt.name, func(t *testing.T) {
				l, r, _, _ := newLedger(t, policy)
				ctx := context.Background()

				_, err := l.Submit(ctx, tt.sub)
				require.Error(t, err)

				var fe *failure.Error
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, failure.CodeValidation, fe.Code)
				assert.Equal(t, tt.field, fe.Field)

				orders, err := r.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, orders)
			})
		}
	}
}

func TestSubmit_RoundsStoredTotal(t *testing.T) {
	l, r, _, _ := newLedger(t, PolicyTrust)
	ctx := context.Background()

	o, err := l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 28.4999})
	require.NoError(t, err)
	assert.Equal(t, 28.5, o.Total)

	got, err := r.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 28.5, got.Total)
}

func TestSubmit_ZeroToleranceDemandsExactTotal(t *testing.T) {
	st := testutil.OpenStore(t)
	zero := decimal.Zero
	l := New(st, Options{
		Tolerance: &zero,
		Clock:     testutil.NewDeterministicClock(),
		Logger:    testutil.DiscardLogger(),
	})
	ctx := context.Background()
	line := order.Line{ID: 7, Name: "Margherita", Price: 10, Quantity: 1}

	_, err := l.Submit(ctx, order.Submission{Items: []order.Line{line}, Total: 13.51})
	require.Error(t, err)
	var fe *failure.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "total", fe.Field)
	assert.Contains(t, fe.Message, "13.50")

	o, err := l.Submit(ctx, order.Submission{Items: []order.Line{line}, Total: 13.5})
	require.NoError(t, err)
	assert.Equal(t, 13.5, o.Total)
}

func TestSubmit_NilToleranceUsesDefault(t *testing.T) {
	l, _, _, _ := newLedger(t, PolicyVerify)
	ctx := context.Background()

	_, err := l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 28.51})
	require.NoError(t, err)

	_, err = l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 28.52})
	require.Error(t, err)
	assert.True(t, failure.IsValidation(err))
}

func TestSubmit_ConfiguredDeliveryFee(t *testing.T) {
	st := testutil.OpenStore(t)
	l := New(st, Options{
		DeliveryFee: decimal.RequireFromString("5.00"),
		Clock:       testutil.NewDeterministicClock(),
		Logger:      testutil.DiscardLogger(),
	})
	ctx := context.Background()

	_, err := l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 28.5})
	require.Error(t, err)
	assert.True(t, failure.IsValidation(err))

	_, err = l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 30})
	require.NoError(t, err)
}

func TestSubmit_SnapshotIndependentOfCaller(t *testing.T) {
	l, r, _, _ := newLedger(t, PolicyVerify)
	ctx := context.Background()

	items := []order.Line{spaghetti}
	o, err := l.Submit(ctx, order.Submission{Items: items, Total: 28.5})
	require.NoError(t, err)

	items[0].Name = "Changed Later"
	items[0].Price = 99

	assert.Equal(t, "Classic Spaghetti", o.Items[0].Name)
	got, err := r.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []order.Line{spaghetti}, got.Items)
}

func TestSubmit_EchoMatchesStoredRecord(t *testing.T) {
	clock := testutil.NewDeterministicClockAt(time.Date(2026, 10, 17, 9, 30, 0, 123456789, time.UTC), time.Second)
	st := testutil.OpenStore(t)
	l := New(st, Options{Clock: clock, Logger: testutil.DiscardLogger()})
	r := NewReader(st, testutil.DiscardLogger())
	ctx := context.Background()

	o, err := l.Submit(ctx, order.Submission{Items: []order.Line{spaghetti}, Total: 28.5})
	require.NoError(t, err)

	got, err := r.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, o.Total, got.Total)
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt), "echo %v, stored %v", o.CreatedAt, got.CreatedAt)
}

type failingWriter struct{}

func (failingWriter) InsertOrder(context.Context, []order.Line, float64, time.Time) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func TestSubmit_StorageFailure(t *testing.T) {
	l := New(failingWriter{}, Options{Logger: testutil.DiscardLogger()})

	_, err := l.Submit(context.Background(), order.Submission{Items: []order.Line{spaghetti}, Total: 28.5})
	require.Error(t, err)
	assert.True(t, failure.IsStorage(err))

	var fe *failure.Error
	require.True(t, errors.As(err, &fe))
	assert.NotContains(t, fe.Message, "disk")
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestSubmit_ClosedStoreIsStorageFailure(t *testing.T) {
	l, _, st, _ := newLedger(t, PolicyVerify)
	require.NoError(t, st.Close())

	_, err := l.Submit(context.Background(), order.Submission{Items: []order.Line{spaghetti}, Total: 28.5})
	require.Error(t, err)
	assert.True(t, failure.IsStorage(err))
}
