// Package audit records privileged actions. Writes are fire-and-forget: a
// failed audit insert is logged but never blocks or fails the audited
// operation. A stricter compliance posture would invert this; the choice is
// deliberate and documented in DESIGN.md.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

// Action tags for privileged operations.
const (
	ActionUserRegistered   = "user_registered"
	ActionUserLoggedIn     = "user_logged_in"
	ActionPatientCreated   = "patient_created"
	ActionPatientUpdated   = "patient_updated"
	ActionPatientDeleted   = "patient_deleted"
	ActionDocumentUploaded = "document_uploaded"
	ActionBackupCreated    = "backup_created"
	ActionMaintenanceRun   = "maintenance_run"
)

// Entry describes one privileged action.
type Entry struct {
	Action    string
	ActorID   string
	IP        string
	UserAgent string
	Detail    map[string]any
}

// Recorder appends audit entries through a storage sink.
type Recorder struct {
	store   storage.AuditStore
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewRecorder creates a recorder writing to the given sink.
func NewRecorder(store storage.AuditStore, log zerolog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		log:     log,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Record appends one entry asynchronously. The insert runs detached from the
// request with its own timeout; failures are logged with context.
func (r *Recorder) Record(e Entry) {
	entry := models.AuditLog{
		Action:    e.Action,
		UserID:    e.ActorID,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Detail:    e.Detail,
		CreatedAt: r.now().UTC(),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.store.Insert(ctx, entry); err != nil {
			r.log.Error().Err(err).
				Str("action", entry.Action).
				Str("actor_id", entry.UserID).
				Msg("audit write failed")
		}
	}()
}

// Wait blocks until all in-flight writes finish. Called on shutdown so
// pending entries are not lost.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
