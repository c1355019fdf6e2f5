package visibility

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

// fixture builds a store with a small catalog and the given exception rows.
// Products A..E get ids 1..5.
func fixture(t *testing.T, rules []model.ExceptionRule) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.InitSchema(ctx))

	stmts := []store.Statement{
		{SQL: "CREATE TABLE products (id INTEGER PRIMARY KEY, itemnum TEXT)"},
		{SQL: "CREATE TABLE productExceptions (customer INTEGER, address INTEGER, addressGroup INTEGER, deny BOOLEAN, list TEXT)"},
	}
	for i, item := range []string{"A", "B", "C", "D", "E"} {
		stmts = append(stmts, store.Statement{
			SQL:  "INSERT INTO products VALUES (?, ?)",
			Args: []any{i + 1, item},
		})
	}
	for _, r := range rules {
		stmts = append(stmts, store.Statement{
			SQL:  "INSERT INTO productExceptions VALUES (?, ?, ?, ?, ?)",
			Args: []any{r.Customer, r.Address, r.AddressGroup, r.Deny, r.List},
		})
	}
	require.NoError(t, st.RunBatch(ctx, stmts))
	return st
}

func visibleSet(t *testing.T, st *store.Store) []int {
	t.Helper()
	rows, err := st.Query(context.Background(),
		"SELECT productId FROM currentExceptions ORDER BY productId")
	require.NoError(t, err)
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		out = append(out, id)
	}
	require.NoError(t, rows.Err())
	return out
}

func prepare(t *testing.T, st *store.Store, customer model.Customer) {
	t.Helper()
	r := NewResolver(st, zap.NewNop())
	require.NoError(t, r.Prepare(context.Background(), customer))
}

// The default rule is a denylist: listed item numbers are hidden.
func TestPrepare_DefaultDenylist(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "A,B"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 1})

	require.Equal(t, []int{3, 4, 5}, visibleSet(t, st))
}

// A denying customer rule is an allowlist that replaces the default.
func TestPrepare_CustomerDenyIsAllowlist(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "A,B"},
		{Customer: 7, Deny: true, List: "A,C"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 1})

	// Exactly the listed products, even A which the default hides.
	require.Equal(t, []int{1, 3}, visibleSet(t, st))
}

// Empty items in a rule list, from trailing commas or an empty list, must
// not match products whose item number is blank.
func TestPrepare_IgnoresEmptyListItems(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "B"},
		{Customer: 7, Deny: true, List: "A,"},
	})
	ctx := context.Background()
	_, err := st.Exec(ctx, "INSERT INTO products VALUES (6, '')")
	require.NoError(t, err)
	prepare(t, st, model.Customer{ID: 7, AddressID: 1})

	require.Equal(t, []int{1}, visibleSet(t, st))
}

// A denying address rule wins over a denying customer rule.
func TestPrepare_AddressDenyWins(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: ""},
		{Customer: 7, Deny: true, List: "A,B"},
		{Customer: 7, Address: 2, Deny: true, List: "D"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 2})

	require.Equal(t, []int{4}, visibleSet(t, st))
}

// A denying customer rule is widened by a permissive address rule's list.
func TestPrepare_CustomerDenyUnionsAddressList(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: ""},
		{Customer: 7, Deny: true, List: "A"},
		{Customer: 7, Address: 2, Deny: false, List: "E"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 2})

	require.Equal(t, []int{1, 5}, visibleSet(t, st))
}

// A denying address-group rule collects the customer and address lists too.
func TestPrepare_AddressGroupDeny(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "A,B,C,D,E"},
		{AddressGroup: 9, Deny: true, List: "B"},
		{Customer: 7, Deny: false, List: "C"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 1, AddressGroupID: 9})

	require.Equal(t, []int{2, 3}, visibleSet(t, st))
}

// Permissive rules extend the default set and never produce duplicates.
func TestPrepare_PermissiveRulesExtendDefault(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "A,B"},
		{Customer: 7, Deny: false, List: "A,C"},
	})
	prepare(t, st, model.Customer{ID: 7, AddressID: 1})

	// Default leaves C,D,E; the customer list adds A back; C stays unique.
	require.Equal(t, []int{1, 3, 4, 5}, visibleSet(t, st))
}

// With no customer-specific rules the default applies unchanged.
func TestPrepare_NoRulesFallsBackToDefault(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "E"},
	})
	prepare(t, st, model.Customer{ID: 42, AddressID: 3})

	require.Equal(t, []int{1, 2, 3, 4}, visibleSet(t, st))
}

// Prepare replaces the previous materialized set completely.
func TestPrepare_ReplacesPreviousSet(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{
		{List: "A,B"},
		{Customer: 7, Deny: true, List: "A"},
	})
	prepare(t, st, model.Customer{ID: 1, AddressID: 1}) // default: C,D,E
	prepare(t, st, model.Customer{ID: 7, AddressID: 1}) // allowlist: A

	require.Equal(t, []int{1}, visibleSet(t, st))
}

func TestPrepare_NoDefaultRule(t *testing.T) {
	st := fixture(t, nil)
	r := NewResolver(st, zap.NewNop())

	err := r.Prepare(context.Background(), model.Customer{ID: 7})
	require.ErrorIs(t, err, ErrNoDefaultRule)
}

func TestPrepare_NoProducts(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{{List: ""}})
	_, err := st.Exec(context.Background(), "DELETE FROM products")
	require.NoError(t, err)

	r := NewResolver(st, zap.NewNop())
	err = r.Prepare(context.Background(), model.Customer{ID: 7})
	require.ErrorIs(t, err, ErrNoProducts)
}

func TestIsVisible(t *testing.T) {
	st := fixture(t, []model.ExceptionRule{{List: "A"}})
	prepare(t, st, model.Customer{ID: 7, AddressID: 1})

	r := NewResolver(st, zap.NewNop())
	ctx := context.Background()

	ok, err := r.IsVisible(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok, "product A is on the default denylist")

	ok, err = r.IsVisible(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
}
