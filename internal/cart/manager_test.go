package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/api"
	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

// orderBackend fakes the order endpoint; answer controls the result flag.
type orderBackend struct {
	answer   bool
	received int
}

func newTestManager(t *testing.T, backend *orderBackend) (*Manager, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.received++
		w.Header().Set("Content-Type", "application/json")
		if backend.answer {
			_, _ = w.Write([]byte(`{"result": true}`))
		} else {
			_, _ = w.Write([]byte(`{"result": false}`))
		}
	}))
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.InitSchema(context.Background()))

	log := zap.NewNop()
	return NewManager(st, api.NewClient(srv.URL, 5*time.Second, log), log), st
}

func TestCreate_SingleActive(t *testing.T) {
	m, _ := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	first, err := m.Create(ctx, 10, 1)
	require.NoError(t, err)
	second, err := m.Create(ctx, 20, 1)
	require.NoError(t, err)

	active, err := m.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.NotEqual(t, first.ID, second.ID)

	// Exactly one active row regardless of how many carts exist.
	var n int
	require.NoError(t, m.store.QueryRow(ctx,
		"SELECT COUNT(*) FROM carts WHERE active = 1").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestUpdateProduct_CreatesCartAndLines(t *testing.T) {
	m, _ := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)
	require.Len(t, c.Products, 1)
	assert.Equal(t, 101, c.Products[0].Product)
	assert.Equal(t, 5, c.Products[0].Amount)

	// Same product again updates in place.
	c, _, err = m.UpdateProduct(ctx, 101, 8, 10, 1)
	require.NoError(t, err)
	require.Len(t, c.Products, 1)
	assert.Equal(t, 8, c.Products[0].Amount)

	// -1 removes the line.
	c, _, err = m.UpdateProduct(ctx, 101, -1, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, c.Products)
}

func TestUpdateProduct_SwitchesCustomer(t *testing.T) {
	m, _ := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	a, _, err := m.UpdateProduct(ctx, 101, 2, 10, 1)
	require.NoError(t, err)
	b, _, err := m.UpdateProduct(ctx, 102, 3, 20, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID, "different customers get different carts")

	// Coming back to the first customer reuses the first cart.
	c, _, err := m.UpdateProduct(ctx, 103, 1, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.ID)
	assert.Len(t, c.Products, 2)
}

func TestUpdateProduct_NormalizesAgainstCatalog(t *testing.T) {
	m, st := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	_, err := st.Exec(ctx,
		"CREATE TABLE products (id INTEGER PRIMARY KEY, minOrder INTEGER, stackSize INTEGER)")
	require.NoError(t, err)
	_, err = st.Exec(ctx,
		"INSERT INTO products (id, minOrder, stackSize) VALUES (101, 12, 6)")
	require.NoError(t, err)

	c, adj, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)
	assert.True(t, adj.MinOrderApplied)
	assert.Equal(t, 5, adj.Requested)
	assert.Equal(t, 12, adj.Amount)
	require.Len(t, c.Products, 1)
	assert.Equal(t, 12, c.Products[0].Amount)

	// Products missing from the catalog carry no constraints.
	_, adj, err = m.UpdateProduct(ctx, 999, 5, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, adj.Amount)
	assert.False(t, adj.MinOrderApplied)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name                string
		amount, min, stack  int
		want                int
		minApplied, rounded bool
	}{
		{"no constraints", 7, 1, 1, 7, false, false},
		{"below min order", 3, 5, 1, 5, true, false},
		{"off stack", 7, 1, 3, 9, false, true},
		{"min then stack", 2, 5, 3, 6, true, true},
		{"above min, off stack", 7, 5, 3, 9, false, true},
		{"exact stack", 6, 1, 3, 6, false, false},
		{"zero passes", 0, 5, 3, 0, false, false},
		{"removal marker passes", -1, 5, 3, -1, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adj := Normalize(tc.amount, tc.min, tc.stack)
			assert.Equal(t, tc.want, adj.Amount)
			assert.Equal(t, tc.amount, adj.Requested)
			assert.Equal(t, tc.minApplied, adj.MinOrderApplied)
			assert.Equal(t, tc.rounded, adj.StackRounded)
		})
	}
}

func TestSend_Confirmed(t *testing.T) {
	backend := &orderBackend{answer: true}
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)

	ok, err := m.Send(ctx, model.Credential{Username: "agent"}, *c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, backend.received)

	got, err := m.load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartConfirmed, got.State())

	pending, err := m.PendingRetry(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSend_RejectedStaysQueued(t *testing.T) {
	backend := &orderBackend{answer: false}
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)

	ok, err := m.Send(ctx, model.Credential{}, *c)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := m.load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartRetryPending, got.State())

	// A later resend with a healthy server confirms it.
	backend.answer = true
	confirmed, err := m.Resend(ctx, model.Credential{})
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	got, err = m.load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartConfirmed, got.State())
}

func TestSend_ConfirmedCartRefused(t *testing.T) {
	backend := &orderBackend{answer: true}
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)
	_, err = m.Send(ctx, model.Credential{}, *c)
	require.NoError(t, err)

	got, err := m.load(ctx, c.ID)
	require.NoError(t, err)
	_, err = m.Send(ctx, model.Credential{}, *got)
	assert.Error(t, err, "a confirmed cart must not be resendable")
}

func TestCancelSend(t *testing.T) {
	backend := &orderBackend{answer: false}
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)

	// Cancelling a draft is invalid.
	require.Error(t, m.CancelSend(ctx, c.ID))

	_, err = m.Send(ctx, model.Credential{}, *c)
	require.NoError(t, err)
	require.NoError(t, m.CancelSend(ctx, c.ID))

	got, err := m.load(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CartDraft, got.State())
}

func TestDelete_RemovesLinesAndSettings(t *testing.T) {
	m, st := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	c, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)
	require.NoError(t, m.SaveSettings(ctx, model.CartSettings{
		Cart: c.ID, Reference: "PO-1", Comment: "back entrance",
	}))

	require.NoError(t, m.Delete(ctx, c.ID))

	for _, table := range []string{"carts", "cartProducts", "cartSettings"} {
		n, err := st.CountRows(ctx, table)
		require.NoError(t, err)
		assert.Zero(t, n, table)
	}
}

func TestDeleteOld_RetentionWindow(t *testing.T) {
	backend := &orderBackend{answer: true}
	m, st := newTestManager(t, backend)
	ctx := context.Background()

	old, _, err := m.UpdateProduct(ctx, 101, 5, 10, 1)
	require.NoError(t, err)
	_, err = m.Send(ctx, model.Credential{}, *old)
	require.NoError(t, err)

	recent, _, err := m.UpdateProduct(ctx, 102, 5, 20, 1)
	require.NoError(t, err)
	_, err = m.Send(ctx, model.Credential{}, *recent)
	require.NoError(t, err)

	// Age the first cart past the retention window.
	_, err = st.Exec(ctx, "UPDATE carts SET sendDate = ? WHERE id = ?",
		time.Now().UTC().AddDate(0, 0, -91), old.ID)
	require.NoError(t, err)

	purged, err := m.DeleteOld(ctx, 90)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, recent.ID, history[0].ID)

	// A cart only 10 days old survives the same purge.
	purged, err = m.DeleteOld(ctx, 90)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestUpdateActive_Cases(t *testing.T) {
	m, _ := newTestManager(t, &orderBackend{})
	ctx := context.Background()

	// No carts at all: nothing happens.
	require.NoError(t, m.UpdateActive(ctx, 10, 1))
	active, err := m.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	a, err := m.Create(ctx, 10, 1)
	require.NoError(t, err)
	b, err := m.Create(ctx, 20, 1)
	require.NoError(t, err)

	// Matching open cart becomes active again.
	require.NoError(t, m.UpdateActive(ctx, 10, 1))
	active, err = m.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, a.ID, active.ID)

	// Already matching: no change.
	require.NoError(t, m.UpdateActive(ctx, 10, 1))
	active, err = m.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	// No cart for this pair: everything deactivated.
	require.NoError(t, m.UpdateActive(ctx, 99, 9))
	active, err = m.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
	_ = b
}
