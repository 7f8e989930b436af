package trigger

import (
	"testing"
	"time"

	"github.com/quillnotes/quill/pkg/testutil"
)

// testutil.T is 2024-05-20 10:00 UTC.

func TestDaily(t *testing.T) {
	d := Daily{Hour: 11, Minute: 50}
	if !d.FiresAt(time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC)) {
		t.Error("does not fire at its time of day")
	}
	if d.FiresAt(testutil.T) {
		t.Error("fires at the wrong time")
	}

	next, ok := d.NextAfter(testutil.T)
	if !ok || !next.Equal(time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC)) {
		t.Errorf("NextAfter before the firing: %v, %v", next, ok)
	}
	// After today's firing, the next one is tomorrow.
	next, ok = d.NextAfter(time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC))
	if !ok || !next.Equal(time.Date(2024, 5, 21, 11, 50, 0, 0, time.UTC)) {
		t.Errorf("NextAfter at the firing: %v, %v", next, ok)
	}
	if d.String() != "daily 11:50" {
		t.Errorf("String: %q", d.String())
	}
}

func TestOnDate(t *testing.T) {
	o := OnDate{Year: 2024, Month: time.June, Day: 1}
	next, ok := o.NextAfter(testutil.T)
	if !ok || !next.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("NextAfter: %v, %v", next, ok)
	}
	// Once past, it never fires again.
	if _, ok := o.NextAfter(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("fires after its date")
	}
	if !o.FiresAt(time.Date(2024, 6, 1, 0, 0, 30, 0, time.UTC)) {
		t.Error("does not fire within its minute")
	}
}

func TestAtInstant(t *testing.T) {
	when := time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC)
	a := AtInstant{When: when}
	if next, ok := a.NextAfter(testutil.T); !ok || !next.Equal(when) {
		t.Errorf("NextAfter: %v, %v", next, ok)
	}
	if _, ok := a.NextAfter(when); ok {
		t.Error("fires after its instant")
	}
	if !a.FiresAt(when.Add(20 * time.Second)) {
		t.Error("does not fire within its minute")
	}
	if got := a.String(); got != "at 2024-05-20 11:50" {
		t.Errorf("String: %q", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(Registration{Key: "k1", NoteID: "n1",
		Triggers: []Trigger{Daily{Hour: 12, Minute: 0}}})
	r.Register(Registration{Key: "k2", NoteID: "n2",
		Triggers: []Trigger{Daily{Hour: 11, Minute: 50}}})

	next, reg, ok := r.NextAfter(testutil.T)
	if !ok || reg.Key != "k2" ||
		!next.Equal(time.Date(2024, 5, 20, 11, 50, 0, 0, time.UTC)) {
		t.Errorf("NextAfter: %v, %+v, %v", next, reg, ok)
	}

	firing := r.FiringAt(time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC))
	if len(firing) != 1 || firing[0].Key != "k1" {
		t.Errorf("FiringAt: %+v", firing)
	}

	// Re-registering the same slot replaces, not accumulates.
	r.Register(Registration{Key: "k2", NoteID: "n2",
		Triggers: []Trigger{Daily{Hour: 14, Minute: 0}}})
	if len(r.All()) != 2 {
		t.Errorf("registrations: %+v", r.All())
	}

	r.Unregister("k1", "n1")
	if len(r.All()) != 1 {
		t.Errorf("after unregister: %+v", r.All())
	}
}
