// Package visibility materializes the set of products an agent may see for
// the selected customer into the currentExceptions table, so catalog queries
// can join against one table instead of re-evaluating rule precedence.
package visibility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

var (
	// ErrNoDefaultRule means the synced exception data has no baseline
	// rule, so no visibility set can be derived at all.
	ErrNoDefaultRule = errors.New("visibility: no default exception rule")

	// ErrNoProducts means the products table is empty; a sync has to land
	// before visibility can be resolved.
	ErrNoProducts = errors.New("visibility: no products synced")
)

// Resolver rebuilds currentExceptions from the synced exception rules.
type Resolver struct {
	store *store.Store
	log   *zap.Logger
}

func NewResolver(st *store.Store, log *zap.Logger) *Resolver {
	return &Resolver{store: st, log: log}
}

// catalogRow is the slice of the products table precedence works on.
// Exception lists reference item numbers; currentExceptions stores ids.
type catalogRow struct {
	id      int
	itemNum string
}

// Prepare resolves the visible product set for the customer and swaps it
// into currentExceptions in one transaction. Rule precedence, most specific
// first: a denying address rule wins outright; then a denying customer rule
// (widened by any address rule); then a denying address-group rule (widened
// by address and customer rules); then permissive rules subtract from the
// default and add their own lists back; with no rules at all, or nothing
// matching, the default denylist applies.
func (r *Resolver) Prepare(ctx context.Context, customer model.Customer) error {
	ok, err := r.store.TableExists(ctx, "currentExceptions")
	if err != nil {
		return err
	}
	if !ok {
		r.log.Warn("creating missing currentExceptions table")
		if _, err := r.store.Exec(ctx,
			"CREATE TABLE currentExceptions (productId INTEGER PRIMARY KEY)"); err != nil {
			return fmt.Errorf("create currentExceptions: %w", err)
		}
	}
	for _, table := range []string{"productExceptions", "products"} {
		ok, err := r.store.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrMissingTable, table)
		}
	}

	defaultRule, err := r.rule(ctx,
		"SELECT customer, address, addressGroup, deny, list FROM productExceptions WHERE customer = 0 AND address = 0 AND addressGroup = 0 LIMIT 1")
	if err != nil {
		return err
	}
	customerRule, err := r.rule(ctx,
		"SELECT customer, address, addressGroup, deny, list FROM productExceptions WHERE customer = ? AND address = 0 AND addressGroup = 0 LIMIT 1",
		customer.ID)
	if err != nil {
		return err
	}
	addressRule, err := r.rule(ctx,
		"SELECT customer, address, addressGroup, deny, list FROM productExceptions WHERE customer = ? AND address = ? AND addressGroup = 0 LIMIT 1",
		customer.ID, customer.AddressID)
	if err != nil {
		return err
	}
	groupRule, err := r.rule(ctx,
		"SELECT customer, address, addressGroup, deny, list FROM productExceptions WHERE customer = 0 AND address = 0 AND addressGroup = ? AND addressGroup != 0 LIMIT 1",
		customer.AddressGroupID)
	if err != nil {
		return err
	}

	products, err := r.catalog(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return ErrNoProducts
	}
	if defaultRule == nil {
		return ErrNoDefaultRule
	}

	allowed := resolve(products, defaultRule, customerRule, addressRule, groupRule, r.log)
	r.log.Info("resolved visibility",
		zap.Int("customer", customer.ID),
		zap.Int("address", customer.AddressID),
		zap.Int("products", len(products)),
		zap.Int("visible", len(allowed)))

	stmts := make([]store.Statement, 0, len(allowed)+1)
	stmts = append(stmts, store.Statement{SQL: "DELETE FROM currentExceptions"})
	for _, id := range allowed {
		stmts = append(stmts, store.Statement{
			SQL:  "INSERT OR REPLACE INTO currentExceptions VALUES (?)",
			Args: []any{id},
		})
	}
	return r.store.RunBatch(ctx, stmts)
}

// VisibleCount returns the size of the materialized set.
func (r *Resolver) VisibleCount(ctx context.Context) (int, error) {
	return r.store.CountRows(ctx, "currentExceptions")
}

// IsVisible reports whether one product is in the materialized set.
func (r *Resolver) IsVisible(ctx context.Context, productID int) (bool, error) {
	var n int
	err := r.store.QueryRow(ctx,
		"SELECT COUNT(*) FROM currentExceptions WHERE productId = ?", productID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Resolver) rule(ctx context.Context, query string, args ...any) (*model.ExceptionRule, error) {
	var rule model.ExceptionRule
	err := r.store.QueryRow(ctx, query, args...).Scan(
		&rule.Customer, &rule.Address, &rule.AddressGroup, &rule.Deny, &rule.List)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load exception rule: %w", err)
	}
	return &rule, nil
}

func (r *Resolver) catalog(ctx context.Context) ([]catalogRow, error) {
	rows, err := r.store.Query(ctx, "SELECT id, itemnum FROM products")
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	var out []catalogRow
	for rows.Next() {
		var p catalogRow
		if err := rows.Scan(&p.id, &p.itemNum); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// resolve applies rule precedence and returns the visible product ids in
// catalog order, deduplicated.
func resolve(products []catalogRow, def, cust, addr, group *model.ExceptionRule, log *zap.Logger) []int {
	switch {
	case cust == nil && addr == nil && group == nil:
		log.Debug("no customer-specific rules, default denylist applies")
		return excluding(products, listSet(def.List))

	case addr != nil && addr.Deny:
		log.Debug("denying address rule wins")
		return matching(products, listSet(addr.List))

	case cust != nil && cust.Deny:
		log.Debug("denying customer rule wins")
		set := listSet(cust.List)
		if addr != nil {
			addSet(set, addr.List)
		}
		return matching(products, set)

	case group != nil && group.Deny:
		log.Debug("denying address-group rule wins")
		set := listSet(group.List)
		if addr != nil {
			addSet(set, addr.List)
		}
		if cust != nil {
			addSet(set, cust.List)
		}
		return matching(products, set)

	default:
		log.Debug("permissive rules extend the default set")
		allowed := excluding(products, listSet(def.List))
		extra := make(map[string]struct{})
		if addr != nil {
			addSet(extra, addr.List)
		}
		if cust != nil {
			addSet(extra, cust.List)
		}
		if group != nil {
			addSet(extra, group.List)
		}
		return dedup(append(allowed, matching(products, extra)...))
	}
}

// listSet splits a comma-separated item number list into a membership set.
func listSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	addSet(set, list)
	return set
}

func addSet(set map[string]struct{}, list string) {
	for _, item := range strings.Split(list, ",") {
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
}

func excluding(products []catalogRow, set map[string]struct{}) []int {
	var out []int
	for _, p := range products {
		if _, hit := set[p.itemNum]; !hit {
			out = append(out, p.id)
		}
	}
	return out
}

func matching(products []catalogRow, set map[string]struct{}) []int {
	var out []int
	for _, p := range products {
		if _, hit := set[p.itemNum]; hit {
			out = append(out, p.id)
		}
	}
	return out
}

func dedup(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
