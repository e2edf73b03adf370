package sync

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
	"github.com/marcus/checkin/internal/testserver"
	_ "github.com/mattn/go-sqlite3"
)

// fixture is a store seeded with server -> event 42 -> regform 73 and a
// fake API holding the same event plus one participant.
type fixture struct {
	store   *db.DB
	api     *testserver.Server
	reports []string

	server  *models.Server
	event   *models.Event
	regform *models.Regform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	store, err := db.OpenConn(conn)
	if err != nil {
		t.Fatalf("OpenConn: %v", err)
	}

	api := testserver.New("tok")
	t.Cleanup(api.Close)
	api.AddEvent(syncclient.Event{ID: 42, Title: "Conf", StartDt: "2024-05-01T09:00:00+00:00"})
	api.AddRegform(42, syncclient.Regform{ID: 73, Title: "Main", IsOpen: true, RegistrationCount: 1, CheckedInCount: 5})
	api.AddParticipant(73, syncclient.Participant{
		ID:            101,
		FullName:      "Guinea Pig",
		CheckinSecret: "1234",
		OccupiedSlots: 2,
		Price:         10,
		Currency:      "EUR",
	})

	f := &fixture{store: store, api: api}
	err = store.Update(ctx, func(tx *db.Tx) error {
		serverID, err := tx.AddServer(ctx, &models.Server{BaseURL: api.URL, AuthToken: "tok"})
		if err != nil {
			return err
		}
		eventID, err := tx.AddEvent(ctx, &models.Event{RemoteID: 42, ServerID: serverID, BaseURL: api.URL, Title: "Conf", Date: "2024-05-01T09:00:00+00:00"})
		if err != nil {
			return err
		}
		_, err = tx.AddRegform(ctx, &models.Regform{RemoteID: 73, EventID: eventID, Title: "Main", IsOpen: true, RegistrationCount: 1, CheckedInCount: 5})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.server, _ = store.GetServerByURL(ctx, api.URL)
	f.event, _ = store.GetEventByRemote(ctx, f.server.ID, 42)
	f.regform, _ = store.GetRegformByRemote(ctx, f.event.ID, 73)
	if f.server == nil || f.event == nil || f.regform == nil {
		t.Fatal("seed rows missing")
	}
	return f
}

func (f *fixture) reporter() Reporter {
	return ReporterFunc(func(title, detail string) {
		f.reports = append(f.reports, title)
	})
}

func (f *fixture) reconciler() *Reconciler {
	return NewReconciler(f.store, HTTPDialer(5*time.Second), f.reporter())
}

func (f *fixture) gateway() *Gateway {
	return NewGateway(f.store, HTTPDialer(5*time.Second), f.reporter())
}

func (f *fixture) participants(t *testing.T) []models.Participant {
	t.Helper()
	ps, err := f.store.ListParticipants(context.Background(), f.regform.ID, true)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	return ps
}

func (f *fixture) freshRegform(t *testing.T) *models.Regform {
	t.Helper()
	rf, err := f.store.GetRegform(context.Background(), f.regform.ID)
	if err != nil || rf == nil {
		t.Fatalf("GetRegform: %v", err)
	}
	return rf
}

func TestSplitPartition(t *testing.T) {
	id := func(n int64) int64 { return n }

	tests := []struct {
		name   string
		local  []int64
		remote []int64
		want   Diff[int64, int64]
	}{
		{
			name:   "disjoint",
			local:  []int64{1, 2},
			remote: []int64{3},
			want:   Diff[int64, int64]{OnlyLocal: []int64{1, 2}, OnlyRemote: []int64{3}},
		},
		{
			name:   "overlap keeps order",
			local:  []int64{3, 1, 2},
			remote: []int64{2, 4, 3},
			want: Diff[int64, int64]{
				OnlyLocal:  []int64{1},
				OnlyRemote: []int64{4},
				Paired:     []Pair[int64, int64]{{3, 3}, {2, 2}},
			},
		},
		{
			name:   "duplicate remote ids collapse",
			local:  []int64{1},
			remote: []int64{5, 5, 1, 1},
			want: Diff[int64, int64]{
				OnlyRemote: []int64{5},
				Paired:     []Pair[int64, int64]{{1, 1}},
			},
		},
		{
			name: "both empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.local, tt.remote, id, id)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
			if len(got.OnlyLocal)+len(got.Paired) != len(tt.local) {
				t.Errorf("local side not partitioned: %+v", got)
			}
		})
	}
}

func TestSplitLastDuplicateWins(t *testing.T) {
	type remote struct {
		ID    int64
		Title string
	}
	got := Split([]int64{7}, []remote{{7, "old"}, {7, "new"}},
		func(l int64) int64 { return l },
		func(r remote) int64 { return r.ID })

	if len(got.Paired) != 1 || got.Paired[0].Remote.Title != "new" {
		t.Errorf("paired = %+v, want the last occurrence", got.Paired)
	}
}

func TestSyncParticipantsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	res, err := r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Outcome != OK || res.Inserted != 1 {
		t.Fatalf("first sync = %+v, want 1 insert", res)
	}
	first := f.participants(t)

	res, err = r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("second SyncParticipants: %v", err)
	}
	if res != (Result{Outcome: OK}) {
		t.Errorf("second sync = %+v, want no changes", res)
	}
	if diff := cmp.Diff(first, f.participants(t)); diff != "" {
		t.Errorf("second sync changed the store (-first +second):\n%s", diff)
	}

	p := first[0]
	if p.RemoteID != 101 || p.RegformID != f.regform.ID || p.OccupiedSlots != 2 || p.Notes != "" {
		t.Errorf("inserted participant = %+v", p)
	}
}

func TestSyncParticipantsSoftDeletesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	if _, err := r.SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	f.api.RemoveParticipant(73, 101)

	res, err := r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", res.Deleted)
	}

	res, err = r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Deleted != 0 || res.Inserted != 0 {
		t.Errorf("repeat sync = %+v, want no changes", res)
	}

	ps := f.participants(t)
	if len(ps) != 1 || !ps[0].Deleted {
		t.Errorf("participants = %+v, want one soft-deleted row", ps)
	}
}

func TestSyncParticipantKeepsNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()
	g := f.gateway()

	if _, err := r.SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	if err := g.SetNotes(ctx, p.ID, "VIP"); err != nil {
		t.Fatalf("SetNotes: %v", err)
	}

	remote := f.api.Participant(73, 101)
	remote.FullName = "Guinea Pig Jr."
	f.api.AddParticipant(73, remote)

	res, err := r.SyncParticipant(ctx, f.event, f.regform, &p)
	if err != nil {
		t.Fatalf("SyncParticipant: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("updated = %d, want 1", res.Updated)
	}

	got, _ := f.store.GetParticipant(ctx, p.ID)
	if got.Notes != "VIP" {
		t.Errorf("notes = %q, want VIP", got.Notes)
	}
	if got.FullName != "Guinea Pig Jr." {
		t.Errorf("full name = %q, want remote value", got.FullName)
	}
}

func TestLoadingFlagsClearedOnStartup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	err := f.store.Update(ctx, func(tx *db.Tx) error {
		return tx.BulkUpdate(ctx, models.KindParticipant, []db.Update{
			{ID: p.ID, Changes: db.Changes{"checked_in_loading": true, "is_paid_loading": true}},
		})
	})
	if err != nil {
		t.Fatalf("set loading: %v", err)
	}

	reopened, err := db.OpenConn(f.store.Conn())
	if err != nil {
		t.Fatalf("OpenConn: %v", err)
	}
	got, _ := reopened.GetParticipant(ctx, p.ID)
	if got.CheckedInLoading || got.IsPaidLoading {
		t.Errorf("loading flags survived startup: %+v", got)
	}
}

func TestSetCheckedInAdjustsCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]

	sounds := 0
	outcome, err := f.gateway().SetCheckedIn(ctx, f.event, f.regform, &p, true, func() { sounds++ })
	if err != nil {
		t.Fatalf("SetCheckedIn: %v", err)
	}
	if outcome != OK {
		t.Fatalf("outcome = %v, want ok", outcome)
	}
	if got := f.freshRegform(t).CheckedInCount; got != 7 {
		t.Errorf("checked_in_count = %d, want 7", got)
	}
	if sounds != 1 {
		t.Errorf("sound played %d times, want 1", sounds)
	}

	got, _ := f.store.GetParticipant(ctx, p.ID)
	if !got.CheckedIn || got.CheckedInDt == nil || got.CheckedInLoading {
		t.Errorf("participant after check-in = %+v", got)
	}

	// Repeating the call does not count the participant twice
	if _, err := f.gateway().SetCheckedIn(ctx, f.event, f.regform, got, true, func() { sounds++ }); err != nil {
		t.Fatalf("SetCheckedIn: %v", err)
	}
	if got := f.freshRegform(t).CheckedInCount; got != 7 {
		t.Errorf("checked_in_count after repeat = %d, want 7", got)
	}
	if sounds != 1 {
		t.Errorf("sound played %d times after repeat, want 1", sounds)
	}

	if _, err := f.gateway().SetCheckedIn(ctx, f.event, f.regform, got, false, nil); err != nil {
		t.Fatalf("undo SetCheckedIn: %v", err)
	}
	if got := f.freshRegform(t).CheckedInCount; got != 5 {
		t.Errorf("checked_in_count after undo = %d, want 5", got)
	}
}

func TestSetCheckedInFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	f.api.Fail("PATCH", "event/42/registration/73/101", http.StatusInternalServerError)

	outcome, err := f.gateway().SetCheckedIn(ctx, f.event, f.regform, &p, true, func() {
		t.Error("sound played for a failed check-in")
	})
	if err != nil {
		t.Fatalf("SetCheckedIn: %v", err)
	}
	if outcome != OtherFailure {
		t.Errorf("outcome = %v, want failure", outcome)
	}
	if got := f.freshRegform(t).CheckedInCount; got != 5 {
		t.Errorf("checked_in_count = %d, want 5", got)
	}

	got, _ := f.store.GetParticipant(ctx, p.ID)
	if got.CheckedIn || got.CheckedInLoading {
		t.Errorf("participant after failed check-in = %+v", got)
	}
	if len(f.reports) != 1 || f.reports[0] != "Could not update check-in status" {
		t.Errorf("reports = %v", f.reports)
	}
}

func TestSetPaidTakesServerState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]

	outcome, err := f.gateway().SetPaid(ctx, f.event, f.regform, &p, false)
	if err != nil || outcome != OK {
		t.Fatalf("SetPaid = %v, %v", outcome, err)
	}

	got, _ := f.store.GetParticipant(ctx, p.ID)
	if got.IsPaid || got.State != models.StateUnpaid || got.FormattedPrice == "" || got.IsPaidLoading {
		t.Errorf("participant after unpay = %+v", got)
	}
}

func TestMutationNotFoundSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	f.api.RemoveParticipant(73, 101)

	outcome, err := f.gateway().SetPaid(ctx, f.event, f.regform, &p, true)
	if err != nil {
		t.Fatalf("SetPaid: %v", err)
	}
	if outcome != NotFound {
		t.Errorf("outcome = %v, want not found", outcome)
	}
	got, _ := f.store.GetParticipant(ctx, p.ID)
	if !got.Deleted || got.IsPaidLoading {
		t.Errorf("participant = %+v, want deleted without loading flag", got)
	}
	if len(f.reports) != 0 {
		t.Errorf("not found was reported: %v", f.reports)
	}
}

func TestSyncEventNotFoundOnlySetsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	if _, err := r.SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	before, _ := f.store.GetEvent(ctx, f.event.ID)
	f.api.RemoveEvent(42)

	res, err := r.SyncEvent(ctx, f.event)
	if err != nil {
		t.Fatalf("SyncEvent: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want not found", res.Outcome)
	}

	after, _ := f.store.GetEvent(ctx, f.event.ID)
	want := *before
	want.Deleted = true
	if diff := cmp.Diff(&want, after); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	if !f.freshRegform(t).Deleted || !f.participants(t)[0].Deleted {
		t.Error("soft-delete did not cascade to the form and participants")
	}
	if len(f.reports) != 0 {
		t.Errorf("not found was reported: %v", f.reports)
	}

	// Deleted stays set across later syncs
	if _, err := r.SyncEvent(ctx, f.event); err != nil {
		t.Fatalf("SyncEvent: %v", err)
	}
	if after, _ := f.store.GetEvent(ctx, f.event.ID); !after.Deleted {
		t.Error("event was undeleted by a sync")
	}
}

func TestSyncRegformsUpdatesButNeverInserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.AddRegform(42, syncclient.Regform{ID: 73, Title: "Main (renamed)", IsOpen: false, RegistrationCount: 3, CheckedInCount: 6})
	f.api.AddRegform(42, syncclient.Regform{ID: 74, Title: "Workshop"})

	res, err := f.reconciler().SyncRegforms(ctx, f.event)
	if err != nil {
		t.Fatalf("SyncRegforms: %v", err)
	}
	if res.Updated != 1 || res.Inserted != 0 {
		t.Errorf("result = %+v", res)
	}

	rfs, _ := f.store.ListRegforms(ctx, f.event.ID, true)
	if len(rfs) != 1 {
		t.Fatalf("regforms = %+v, want only the scanned form", rfs)
	}
	if rfs[0].Title != "Main (renamed)" || rfs[0].IsOpen || rfs[0].CheckedInCount != 6 {
		t.Errorf("regform = %+v", rfs[0])
	}

	f.api.RemoveRegform(42, 73)
	res, err = f.reconciler().SyncRegforms(ctx, f.event)
	if err != nil {
		t.Fatalf("SyncRegforms: %v", err)
	}
	if res.Deleted != 1 || !f.freshRegform(t).Deleted {
		t.Errorf("result = %+v, want the form soft-deleted", res)
	}
}

func TestSyncFailuresLeaveStoreAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	// Cancelled before the fetch: nothing happens and nothing is reported
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	res, err := r.SyncParticipants(cancelled, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Outcome != Aborted || len(f.participants(t)) != 0 {
		t.Errorf("aborted sync = %+v", res)
	}

	// Server error: reported, nothing applied
	f.api.Fail("GET", "event/42/registration/73/registrations", http.StatusInternalServerError)
	res, err = r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Outcome != OtherFailure || len(f.participants(t)) != 0 {
		t.Errorf("failed sync = %+v", res)
	}
	if len(f.reports) != 1 {
		t.Errorf("reports = %v, want one", f.reports)
	}

	// Unreachable server: silent
	f.api.ClearFailures()
	f.reports = nil
	f.api.Close()
	res, err = r.SyncParticipants(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	if res.Outcome != NetworkFailure || len(f.reports) != 0 {
		t.Errorf("offline sync = %+v, reports %v", res, f.reports)
	}
}

func TestSyncTree(t *testing.T) {
	f := newFixture(t)

	res, err := f.reconciler().SyncTree(context.Background(), f.event)
	if err != nil {
		t.Fatalf("SyncTree: %v", err)
	}
	if res.Outcome != OK || res.Inserted != 1 {
		t.Errorf("result = %+v", res)
	}
	want := []string{
		"GET event/42",
		"GET event/42/registrations",
		"GET event/42/registration/73/registrations",
	}
	if diff := cmp.Diff(want, f.api.Requests()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	history, err := f.store.GetSyncHistoryTail(context.Background(), f.event.ID, 10)
	if err != nil {
		t.Fatalf("GetSyncHistoryTail: %v", err)
	}
	if len(history) != 1 || history[0].Outcome != "ok" || history[0].Inserted != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestSyncTreeOfflineIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.api.Close()

	res, err := f.reconciler().SyncTree(context.Background(), f.event)
	if err != nil {
		t.Fatalf("SyncTree: %v", err)
	}
	if res.Outcome != NetworkFailure {
		t.Errorf("outcome = %v, want network failure", res.Outcome)
	}
	history, _ := f.store.GetSyncHistoryTail(context.Background(), 0, 10)
	if len(history) != 1 || history[0].Outcome != "network failure" {
		t.Errorf("history = %+v", history)
	}
}

func TestSyncRegform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	if _, err := r.SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	f.api.AddRegform(42, syncclient.Regform{ID: 73, Title: "Main hall", IsOpen: false, RegistrationCount: 4, CheckedInCount: 2})

	res, err := r.SyncRegform(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncRegform: %v", err)
	}
	if res != (Result{Outcome: OK, Updated: 1}) {
		t.Errorf("result = %+v, want one update", res)
	}
	rf := f.freshRegform(t)
	if rf.Title != "Main hall" || rf.IsOpen || rf.RegistrationCount != 4 || rf.CheckedInCount != 2 {
		t.Errorf("regform = %+v", rf)
	}

	res, err = r.SyncRegform(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncRegform: %v", err)
	}
	if res != (Result{Outcome: OK}) {
		t.Errorf("repeat sync = %+v, want no changes", res)
	}

	f.api.RemoveRegform(42, 73)
	res, err = r.SyncRegform(ctx, f.event, f.regform)
	if err != nil {
		t.Fatalf("SyncRegform: %v", err)
	}
	if res.Outcome != NotFound {
		t.Errorf("outcome = %v, want not found", res.Outcome)
	}
	if !f.freshRegform(t).Deleted || !f.participants(t)[0].Deleted {
		t.Error("soft-delete did not cascade to the participants")
	}
	if ev, _ := f.store.GetEvent(ctx, f.event.ID); ev.Deleted {
		t.Error("removing a form deleted its event")
	}
	if len(f.reports) != 0 {
		t.Errorf("not found was reported: %v", f.reports)
	}
}

func TestSyncParticipantNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reconciler()

	if _, err := r.SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	f.api.RemoveParticipant(73, 101)

	tests := []struct {
		name        string
		wantDeleted int
	}{
		{"first sync deletes", 1},
		{"repeat is a no-op", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.SyncParticipant(ctx, f.event, f.regform, &p)
			if err != nil {
				t.Fatalf("SyncParticipant: %v", err)
			}
			if res.Outcome != NotFound || res.Deleted != tt.wantDeleted || res.Updated != 0 {
				t.Errorf("result = %+v, want not found with %d deleted", res, tt.wantDeleted)
			}
			got, _ := f.store.GetParticipant(ctx, p.ID)
			if !got.Deleted || got.FullName != p.FullName {
				t.Errorf("participant = %+v, want only deleted set", got)
			}
		})
	}
	if len(f.reports) != 0 {
		t.Errorf("not found was reported: %v", f.reports)
	}
}

func TestSyncEmptyResponseIsAFailure(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		sync func(f *fixture) (Result, error)
	}{
		{
			name: "null participant list",
			path: "event/42/registration/73/registrations",
			body: "null",
			sync: func(f *fixture) (Result, error) {
				return f.reconciler().SyncParticipants(context.Background(), f.event, f.regform)
			},
		},
		{
			name: "empty participant list body",
			path: "event/42/registration/73/registrations",
			sync: func(f *fixture) (Result, error) {
				return f.reconciler().SyncParticipants(context.Background(), f.event, f.regform)
			},
		},
		{
			name: "null regform list",
			path: "event/42/registrations",
			body: "null",
			sync: func(f *fixture) (Result, error) {
				return f.reconciler().SyncRegforms(context.Background(), f.event)
			},
		},
		{
			name: "empty event body",
			path: "event/42",
			sync: func(f *fixture) (Result, error) {
				return f.reconciler().SyncEvent(context.Background(), f.event)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
				t.Fatalf("SyncParticipants: %v", err)
			}
			beforeEvent, _ := f.store.GetEvent(ctx, f.event.ID)
			beforeRegform := f.freshRegform(t)
			beforeParticipants := f.participants(t)

			f.api.Respond("GET", tt.path, tt.body)
			res, err := tt.sync(f)
			if err != nil {
				t.Fatalf("sync: %v", err)
			}
			if res != (Result{Outcome: OtherFailure}) {
				t.Errorf("result = %+v, want a failure with no changes", res)
			}
			if len(f.reports) != 1 {
				t.Errorf("reports = %v, want one", f.reports)
			}

			afterEvent, _ := f.store.GetEvent(ctx, f.event.ID)
			if diff := cmp.Diff(beforeEvent, afterEvent); diff != "" {
				t.Errorf("event changed (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(beforeRegform, f.freshRegform(t)); diff != "" {
				t.Errorf("regform changed (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(beforeParticipants, f.participants(t)); diff != "" {
				t.Errorf("participants changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestMutationCancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.reconciler().SyncParticipants(ctx, f.event, f.regform); err != nil {
		t.Fatalf("SyncParticipants: %v", err)
	}
	p := f.participants(t)[0]
	sent := len(f.api.Requests())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name   string
		mutate func() (Outcome, error)
	}{
		{"check-in", func() (Outcome, error) {
			return f.gateway().SetCheckedIn(cancelled, f.event, f.regform, &p, true, nil)
		}},
		{"payment", func() (Outcome, error) {
			return f.gateway().SetPaid(cancelled, f.event, f.regform, &p, true)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := tt.mutate()
			if err != nil {
				t.Fatalf("err = %v, want none", err)
			}
			if outcome != Aborted {
				t.Errorf("outcome = %v, want aborted", outcome)
			}
		})
	}

	if diff := cmp.Diff([]models.Participant{p}, f.participants(t)); diff != "" {
		t.Errorf("cancelled mutation changed the store (-want +got):\n%s", diff)
	}
	if got := len(f.api.Requests()); got != sent {
		t.Errorf("%d requests sent after cancel", got-sent)
	}
	if len(f.reports) != 0 {
		t.Errorf("reports = %v, want none", f.reports)
	}
}
