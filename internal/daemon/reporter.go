package daemon

import (
	"github.com/mobiorder/mobiorder/internal/dashboard"
	syncer "github.com/mobiorder/mobiorder/internal/sync"
)

// DashboardReporter forwards sync progress to the WebSocket dashboard.
type DashboardReporter struct {
	srv *dashboard.Server
}

func NewDashboardReporter(srv *dashboard.Server) *DashboardReporter {
	return &DashboardReporter{srv: srv}
}

func (r *DashboardReporter) DomainSynced(name string, rows int) {
	r.srv.Emit(dashboard.MessageTypeSyncDomain, dashboard.SyncDomainData{
		Domain: name,
		Rows:   rows,
	})
}

func (r *DashboardReporter) SyncComplete(res syncer.Result) {
	r.srv.Emit(dashboard.MessageTypeSyncComplete, dashboard.SyncCompleteData{
		Synced:    len(res.Synced),
		Unchanged: len(res.Unchanged),
		Failed:    len(res.Failed),
		Duration:  res.Duration,
	})
}

func (r *DashboardReporter) OutboxFlushed(carts, notes int) {
	r.srv.Emit(dashboard.MessageTypeOutboxFlushed, dashboard.OutboxFlushData{
		Carts: carts,
		Notes: notes,
	})
}

func (r *DashboardReporter) VisibilityRebuilt(customer, visible int) {
	r.srv.Emit(dashboard.MessageTypeVisibility, dashboard.VisibilityData{
		Customer: customer,
		Visible:  visible,
	})
}
