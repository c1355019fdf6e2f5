package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/api"
	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

const (
	// DefaultTimeout bounds a full refresh end to end. A sync that cannot
	// finish inside this window is aborted and the next run starts over
	// from the persisted checksums.
	DefaultTimeout = 240 * time.Second

	// maxChunk caps the statements executed per batch when a domain is
	// rebuilt. All chunks of a rebuild commit together.
	maxChunk = 40000

	// lastSyncKey is the dataIntegrityChecksums row that records when the
	// last full refresh finished, rather than a table checksum.
	lastSyncKey = "lastSync"
)

// Result tallies one full refresh.
type Result struct {
	Synced    []string
	Unchanged []string
	Failed    []string
	Duration  time.Duration
}

// Reporter receives per-domain progress during a refresh. The dashboard
// implements this; a nil reporter is fine.
type Reporter interface {
	DomainSynced(name string, rows int)
	SyncComplete(res Result)
}

// Orchestrator drives the checksum-gated replication of the server catalog
// into the local store.
type Orchestrator struct {
	store   *store.Store
	client  *api.Client
	log     *zap.Logger
	report  Reporter
	timeout time.Duration

	mu        sync.Mutex
	checksums map[string]string
}

func NewOrchestrator(st *store.Store, client *api.Client, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:     st,
		client:    client,
		log:       log,
		timeout:   DefaultTimeout,
		checksums: make(map[string]string),
	}
}

// SetReporter wires a progress listener; call before FullSync.
func (o *Orchestrator) SetReporter(r Reporter) { o.report = r }

// SetTimeout overrides the full-refresh deadline; used by tests.
func (o *Orchestrator) SetTimeout(d time.Duration) { o.timeout = d }

// Initialize prepares the store for syncing: the application schema plus the
// persisted checksum state. Must run once before FullSync.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return o.LoadIntegrity(ctx)
}

// LoadIntegrity reloads the in-memory checksum map from the store.
func (o *Orchestrator) LoadIntegrity(ctx context.Context) error {
	rows, err := o.store.Checksums(ctx)
	if err != nil {
		return fmt.Errorf("load checksums: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checksums = make(map[string]string, len(rows))
	for _, c := range rows {
		o.checksums[c.DataTable] = c.Checksum
	}
	return nil
}

// CheckDB reports whether the local store looks usable: the checksum table
// exists and the products table holds at least one row. A false result means
// the caller should force a full refresh before serving anything.
func (o *Orchestrator) CheckDB(ctx context.Context) (bool, error) {
	for _, table := range []string{"dataIntegrityChecksums", "products"} {
		ok, err := o.store.TableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	n, err := o.store.CountRows(ctx, "products")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LastSyncAge returns how long ago the last full refresh finished. Returns
// false when no refresh ever completed.
func (o *Orchestrator) LastSyncAge(ctx context.Context) (time.Duration, bool, error) {
	var raw string
	err := o.store.QueryRow(ctx,
		"SELECT checksum FROM dataIntegrityChecksums WHERE dataTable = ?", lastSyncKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read lastSync: %w", err)
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse lastSync %q: %w", raw, err)
	}
	return time.Since(at), true, nil
}

// FullSync refreshes every domain whose server checksum moved. Domains are
// fetched concurrently within a wave but writes are serialized by the store;
// a wave must fully land before the next one starts so cross-table reads
// never see half of a refresh. Transport and payload errors are logged and
// tallied, never fatal: the domain simply stays on its previous snapshot.
//
// force discards the stored checksums so every domain is re-fetched in full.
func (o *Orchestrator) FullSync(ctx context.Context, cred model.Credential, culture string, force bool) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var res Result
	var resMu sync.Mutex

	domains := Domains()
	for wave := 1; wave <= 5; wave++ {
		var wg sync.WaitGroup
		for _, d := range domains {
			if d.Wave != wave {
				continue
			}
			wg.Add(1)
			go func(d Domain) {
				defer wg.Done()
				rows, err := o.syncDomain(ctx, d, cred, culture, force)
				resMu.Lock()
				defer resMu.Unlock()
				switch {
				case errors.Is(err, api.ErrNoChanges):
					res.Unchanged = append(res.Unchanged, d.Name)
				case err != nil:
					o.log.Warn("domain sync failed",
						zap.String("domain", d.Name), zap.Error(err))
					res.Failed = append(res.Failed, d.Name)
				default:
					res.Synced = append(res.Synced, d.Name)
					if o.report != nil {
						o.report.DomainSynced(d.Name, rows)
					}
				}
			}(d)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("sync aborted after wave %d: %w", wave, err)
		}
	}

	if err := o.bootstrapEmptyTables(ctx); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	if err := o.store.RunBatch(ctx, []store.Statement{
		store.ChecksumUpsert(lastSyncKey, time.Now().UTC().Format(time.RFC3339), time.Now()),
	}); err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("record lastSync: %w", err)
	}

	res.Duration = time.Since(start)
	o.log.Info("full sync finished",
		zap.Int("synced", len(res.Synced)),
		zap.Int("unchanged", len(res.Unchanged)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("took", res.Duration))
	if o.report != nil {
		o.report.SyncComplete(res)
	}
	return res, nil
}

// syncDomain fetches one domain and, when the server sent a new snapshot,
// replaces its tables. Returns the row count on a refresh; api.ErrNoChanges
// when the checksum matched.
func (o *Orchestrator) syncDomain(ctx context.Context, d Domain, cred model.Credential, culture string, force bool) (int, error) {
	var known string
	if !force {
		o.mu.Lock()
		known = o.checksums[d.Name]
		o.mu.Unlock()
	}

	raw, err := o.client.FetchDomain(ctx, d.Path, cred, culture, known)
	if err != nil {
		return 0, err
	}
	batch, err := d.decode(raw)
	if err != nil {
		return 0, err
	}

	if err := o.applyBatch(ctx, d.Name, batch); err != nil {
		return 0, err
	}

	o.mu.Lock()
	o.checksums[d.Name] = batch.checksum
	o.mu.Unlock()
	return batch.rows, nil
}

// applyBatch rebuilds the domain tables inside one transaction: drop,
// recreate, inserts, then the checksum upsert last. Statements execute in
// chunks of maxChunk, but a single commit covers them all, so a replace
// that dies midway rolls back whole, keeps the old checksum and the next
// run replays the domain. Readers only ever see the old or the new
// snapshot.
func (o *Orchestrator) applyBatch(ctx context.Context, name string, b *payloadBatch) error {
	stmts := make([]store.Statement, 0, len(b.ddl)+len(b.inserts)+1)
	for _, ddl := range b.ddl {
		stmts = append(stmts, store.Statement{SQL: ddl})
	}
	stmts = append(stmts, b.inserts...)
	stmts = append(stmts, store.ChecksumUpsert(name, b.checksum, time.Now()))

	err := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		for len(stmts) > 0 {
			chunk := stmts
			if len(chunk) > maxChunk {
				chunk = chunk[:maxChunk]
			}
			for _, st := range chunk {
				if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
					return fmt.Errorf("statement failed (%.60s): %w", st.SQL, err)
				}
			}
			stmts = stmts[len(chunk):]
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	return nil
}

// bootstrapEmptyTables makes sure the tables an offline session reads from
// exist even when their domains never delivered, so first-run queries fail
// soft with empty results instead of missing-table errors.
func (o *Orchestrator) bootstrapEmptyTables(ctx context.Context) error {
	stmts := []store.Statement{
		{SQL: customersDDL},
		{SQL: "CREATE TABLE IF NOT EXISTS productDescriptionCustomers (id INTEGER PRIMARY KEY, description TEXT)"},
	}
	if err := o.store.RunBatch(ctx, stmts); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	return nil
}
