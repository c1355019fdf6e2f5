package main

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
)

// A fresh install must be able to queue carts and visit notes before the
// first sync ever runs.
func TestSetup_FreshInstallHasLocalTables(t *testing.T) {
	t.Setenv("MOBIORDER_DATA_DIR", t.TempDir())

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	if err := setup(cmd, nil); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	t.Cleanup(func() { _ = teardown() })

	ctx := context.Background()
	for _, table := range []string{"carts", "cartProducts", "cartSettings", "unsentNotes", "dataIntegrityChecksums"} {
		ok, err := a.store.TableExists(ctx, table)
		if err != nil {
			t.Fatalf("TableExists(%s) failed: %v", table, err)
		}
		if !ok {
			t.Errorf("table %s missing on a fresh install", table)
		}
	}
}
