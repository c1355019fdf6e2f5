// Package cart manages the order outbox: building carts offline, queueing
// them for submission and retrying until the server confirms.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/api"
	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

const (
	eventSend    = "send"
	eventConfirm = "confirm"
	eventFail    = "fail"
	eventCancel  = "cancel"

	// createAttempts bounds the id collision retries when creating a cart.
	createAttempts = 3
)

// ErrNoActiveCart is returned by operations that need a selected cart when
// none is active.
var ErrNoActiveCart = errors.New("cart: no active cart")

// transitions builds the lifecycle machine positioned at the cart's current
// state. Every state change funnels through an event here, so an impossible
// move (resending a confirmed cart, cancelling a draft) fails before any row
// is touched.
func transitions(state model.CartState) *fsm.FSM {
	return fsm.NewFSM(string(state), fsm.Events{
		{Name: eventSend, Src: []string{string(model.CartDraft), string(model.CartRetryPending)}, Dst: string(model.CartSending)},
		{Name: eventConfirm, Src: []string{string(model.CartSending)}, Dst: string(model.CartConfirmed)},
		{Name: eventFail, Src: []string{string(model.CartSending)}, Dst: string(model.CartRetryPending)},
		{Name: eventCancel, Src: []string{string(model.CartRetryPending)}, Dst: string(model.CartDraft)},
	}, fsm.Callbacks{})
}

// Manager owns the carts, cartProducts and cartSettings tables.
type Manager struct {
	store  *store.Store
	client *api.Client
	log    *zap.Logger
}

func NewManager(st *store.Store, client *api.Client, log *zap.Logger) *Manager {
	return &Manager{store: st, client: client, log: log}
}

// newID draws a random 31-bit cart id. Ids are client-generated so carts can
// be created offline; collisions are handled at insert time.
func newID() int {
	return rand.IntN(math.MaxInt32)
}

// Create opens a new cart for the customer/address pair and makes it the
// active cart. Retries a fresh id a few times when the draw collides with an
// existing cart.
func (m *Manager) Create(ctx context.Context, customer, address int) (*model.Cart, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		c := model.Cart{
			ID:             newID(),
			Name:           fmt.Sprintf("cart-%d", time.Now().UnixMilli()),
			Customer:       customer,
			Address:        address,
			LastChangeDate: time.Now().UTC(),
			Active:         true,
		}

		var collided bool
		err := m.store.WithTx(ctx, func(tx *sql.Tx) error {
			var n int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM carts WHERE id = ?", c.ID).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				collided = true
				return nil
			}
			if _, err := tx.ExecContext(ctx, "UPDATE carts SET active = 0"); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO carts (id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active) VALUES (?, ?, ?, ?, ?, NULL, 0, 0, 1)",
				c.ID, c.Name, c.Customer, c.Address, c.LastChangeDate)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		if collided {
			m.log.Warn("cart id collision, redrawing", zap.Int("id", c.ID))
			continue
		}
		m.log.Info("cart created",
			zap.Int("id", c.ID), zap.Int("customer", customer), zap.Int("address", address))
		return &c, nil
	}
	return nil, fmt.Errorf("create cart: %d id collisions in a row", createAttempts)
}

// UpdateProduct sets the quantity of an order line in the cart for the
// customer/address pair, creating or activating a cart as needed. An amount
// of -1 removes the line. Positive quantities are normalized against the
// product's packaging constraints; the returned Adjustment tells the caller
// what changed so it can warn the user.
func (m *Manager) UpdateProduct(ctx context.Context, productID, amount, customer, address int) (*model.Cart, Adjustment, error) {
	adj := Adjustment{Requested: amount, Amount: amount}
	if amount > 0 {
		minOrder, stackSize := m.constraints(ctx, productID)
		adj = Normalize(amount, minOrder, stackSize)
		amount = adj.Amount
	}

	active, err := m.Active(ctx)
	if err != nil {
		return nil, adj, err
	}

	if active == nil || active.Customer != customer || active.Address != address || active.Send {
		// Reuse an existing open cart for this pair before creating one.
		existing, err := m.findOpen(ctx, customer, address)
		if err != nil {
			return nil, adj, err
		}
		if existing != nil {
			if err := m.activate(ctx, existing.ID); err != nil {
				return nil, adj, err
			}
			active = existing
		} else {
			active, err = m.Create(ctx, customer, address)
			if err != nil {
				return nil, adj, err
			}
		}
	}

	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		if amount == -1 {
			_, err := tx.ExecContext(ctx,
				"DELETE FROM cartProducts WHERE cart = ? AND product = ?", active.ID, productID)
			if err != nil {
				return err
			}
		} else {
			var n int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM cartProducts WHERE cart = ? AND product = ?",
				active.ID, productID).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				if _, err := tx.ExecContext(ctx,
					"UPDATE cartProducts SET amount = ? WHERE cart = ? AND product = ?",
					amount, active.ID, productID); err != nil {
					return err
				}
			} else if _, err := tx.ExecContext(ctx,
				"INSERT INTO cartProducts (cart, product, amount) VALUES (?, ?, ?)",
				active.ID, productID, amount); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE carts SET lastChangeDate = ? WHERE id = ?", time.Now().UTC(), active.ID)
		return err
	})
	if err != nil {
		return nil, adj, fmt.Errorf("update cart product: %w", err)
	}
	c, err := m.load(ctx, active.ID)
	return c, adj, err
}

// constraints reads a product's packaging constraints from the synced
// catalog. Unknown products, or a catalog that has not synced yet, carry no
// constraints.
func (m *Manager) constraints(ctx context.Context, productID int) (minOrder, stackSize int) {
	var mo, ss int
	err := m.store.QueryRow(ctx,
		"SELECT minOrder, stackSize FROM products WHERE id = ?", productID).Scan(&mo, &ss)
	if err != nil {
		return 1, 1
	}
	return mo, ss
}

// UpdateActive aligns the active cart with the selected customer/address:
// keep the active cart when it already matches and is still open, switch to
// an existing open cart for the pair when there is one, and otherwise leave
// no cart active.
func (m *Manager) UpdateActive(ctx context.Context, customer, address int) error {
	active, err := m.Active(ctx)
	if err != nil {
		return err
	}
	if active != nil && active.Customer == customer && active.Address == address && !active.Send {
		return nil
	}

	open, err := m.findOpen(ctx, customer, address)
	if err != nil {
		return err
	}
	if open != nil {
		return m.activate(ctx, open.ID)
	}

	if active == nil {
		n, err := m.store.CountRows(ctx, "carts")
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	_, err = m.store.Exec(ctx, "UPDATE carts SET active = 0")
	return err
}

// Send queues the cart and submits it. A false result without error means
// the submission did not get a confirmation this time; the cart stays
// retry-pending and a later Send attempt picks it up again.
func (m *Manager) Send(ctx context.Context, cred model.Credential, c model.Cart) (bool, error) {
	machine := transitions(c.State())
	if err := machine.Event(ctx, eventSend); err != nil {
		return false, fmt.Errorf("cart %d cannot be sent: %w", c.ID, err)
	}

	now := time.Now().UTC()
	if _, err := m.store.Exec(ctx,
		"UPDATE carts SET send = 1, sendDate = ?, active = 0 WHERE id = ?", now, c.ID); err != nil {
		return false, fmt.Errorf("queue cart %d: %w", c.ID, err)
	}
	c.Send = true
	c.SendDate = now

	confirmed, err := m.client.CompleteCart(ctx, cred, c)
	if err != nil || !confirmed {
		// The cart stays queued; transport failures are retried later.
		if err != nil {
			m.log.Warn("cart submission failed", zap.Int("id", c.ID), zap.Error(err))
		}
		if ferr := machine.Event(ctx, eventFail); ferr != nil {
			return false, ferr
		}
		return false, nil
	}

	if err := machine.Event(ctx, eventConfirm); err != nil {
		return false, err
	}
	if _, err := m.store.Exec(ctx,
		"UPDATE carts SET sendOk = 1 WHERE id = ?", c.ID); err != nil {
		return false, fmt.Errorf("confirm cart %d: %w", c.ID, err)
	}
	m.log.Info("cart confirmed", zap.Int("id", c.ID))
	return true, nil
}

// Resend retries every retry-pending cart. Returns the number of carts the
// server confirmed this round.
func (m *Manager) Resend(ctx context.Context, cred model.Credential) (int, error) {
	pending, err := m.PendingRetry(ctx)
	if err != nil {
		return 0, err
	}
	confirmed := 0
	for _, c := range pending {
		ok, err := m.Send(ctx, cred, c)
		if err != nil {
			return confirmed, err
		}
		if ok {
			confirmed++
		}
	}
	return confirmed, nil
}

// CancelSend takes a retry-pending cart back to an editable draft.
func (m *Manager) CancelSend(ctx context.Context, cartID int) error {
	c, err := m.load(ctx, cartID)
	if err != nil {
		return err
	}
	machine := transitions(c.State())
	if err := machine.Event(ctx, eventCancel); err != nil {
		return fmt.Errorf("cart %d cannot be reopened: %w", cartID, err)
	}
	_, err = m.store.Exec(ctx,
		"UPDATE carts SET send = 0, sendDate = NULL WHERE id = ?", cartID)
	return err
}

// Delete removes the cart with its lines and settings.
func (m *Manager) Delete(ctx context.Context, cartID int) error {
	return m.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM cartProducts WHERE cart = ?",
			"DELETE FROM cartSettings WHERE cart = ?",
			"DELETE FROM carts WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, cartID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOld purges confirmed carts whose send date is older than the given
// number of days, along with their lines and settings. Returns how many
// carts were removed.
func (m *Manager) DeleteOld(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var purged int64
	err := m.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM carts WHERE sendDate < ? AND sendOk = ?", cutoff, true)
		if err != nil {
			return err
		}
		purged, err = res.RowsAffected()
		if err != nil {
			return err
		}
		for _, q := range []string{
			"DELETE FROM cartProducts WHERE cart NOT IN (SELECT id FROM carts)",
			"DELETE FROM cartSettings WHERE cart NOT IN (SELECT id FROM carts)",
		} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge carts: %w", err)
	}
	if purged > 0 {
		m.log.Info("purged confirmed carts",
			zap.Int64("count", purged), zap.Int("olderThanDays", days))
	}
	return purged, nil
}

// SaveSettings stores the delivery preferences for a cart, replacing any
// previous ones.
func (m *Manager) SaveSettings(ctx context.Context, s model.CartSettings) error {
	_, err := m.store.Exec(ctx,
		"INSERT OR REPLACE INTO cartSettings (cart, deliveryDate, reference, comment) VALUES (?, ?, ?, ?)",
		s.Cart, s.DeliveryDate, s.Reference, s.Comment)
	return err
}

// Active returns the active cart, or nil when none is selected.
func (m *Manager) Active(ctx context.Context) (*model.Cart, error) {
	carts, err := m.query(ctx, "SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE active = 1 LIMIT 1")
	if err != nil || len(carts) == 0 {
		return nil, err
	}
	return m.hydrate(ctx, &carts[0])
}

// Unsent returns every cart the server has not confirmed, newest first.
func (m *Manager) Unsent(ctx context.Context) ([]model.Cart, error) {
	return m.queryFull(ctx,
		"SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE sendOk = 0 ORDER BY lastChangeDate DESC")
}

// PendingRetry returns the queued carts still waiting for a confirmation.
func (m *Manager) PendingRetry(ctx context.Context) ([]model.Cart, error) {
	return m.queryFull(ctx,
		"SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE send = 1 AND sendOk = 0 ORDER BY sendDate")
}

// History returns confirmed carts, most recently sent first.
func (m *Manager) History(ctx context.Context) ([]model.Cart, error) {
	return m.queryFull(ctx,
		"SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE sendOk = 1 ORDER BY sendDate DESC")
}

func (m *Manager) load(ctx context.Context, id int) (*model.Cart, error) {
	carts, err := m.query(ctx,
		"SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, fmt.Errorf("cart %d not found", id)
	}
	return m.hydrate(ctx, &carts[0])
}

func (m *Manager) findOpen(ctx context.Context, customer, address int) (*model.Cart, error) {
	carts, err := m.query(ctx,
		"SELECT id, name, customer, address, lastChangeDate, sendDate, send, sendOk, active FROM carts WHERE customer = ? AND address = ? AND send = 0 LIMIT 1",
		customer, address)
	if err != nil || len(carts) == 0 {
		return nil, err
	}
	return m.hydrate(ctx, &carts[0])
}

func (m *Manager) activate(ctx context.Context, id int) error {
	return m.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE carts SET active = 0"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE carts SET active = 1 WHERE id = ?", id)
		return err
	})
}

func (m *Manager) query(ctx context.Context, q string, args ...any) ([]model.Cart, error) {
	rows, err := m.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	defer rows.Close()

	var out []model.Cart
	for rows.Next() {
		var c model.Cart
		var lastChange, sendDate sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Customer, &c.Address,
			&lastChange, &sendDate, &c.Send, &c.SendOk, &c.Active); err != nil {
			return nil, err
		}
		c.LastChangeDate = lastChange.Time
		c.SendDate = sendDate.Time
		out = append(out, c)
	}
	return out, rows.Err()
}

func (m *Manager) queryFull(ctx context.Context, q string, args ...any) ([]model.Cart, error) {
	carts, err := m.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	for i := range carts {
		if _, err := m.hydrate(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}
	return carts, nil
}

// hydrate attaches the cart's lines and settings.
func (m *Manager) hydrate(ctx context.Context, c *model.Cart) (*model.Cart, error) {
	rows, err := m.store.Query(ctx,
		"SELECT cart, product, amount FROM cartProducts WHERE cart = ?", c.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	c.Products = nil
	for rows.Next() {
		var p model.CartProduct
		if err := rows.Scan(&p.Cart, &p.Product, &p.Amount); err != nil {
			return nil, err
		}
		c.Products = append(c.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var s model.CartSettings
	err = m.store.QueryRow(ctx,
		"SELECT cart, deliveryDate, reference, comment FROM cartSettings WHERE cart = ?", c.ID).
		Scan(&s.Cart, &s.DeliveryDate, &s.Reference, &s.Comment)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.Settings = nil
	case err != nil:
		return nil, fmt.Errorf("load cart settings: %w", err)
	default:
		c.Settings = &s
	}
	return c, nil
}
