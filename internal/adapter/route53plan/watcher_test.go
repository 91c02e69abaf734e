package route53plan

import (
	"testing"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/logger"
)

type fakeEngine struct {
	nextHandle domain.ContactHandle
	added      []domain.Contact
	ranges     []domain.Range
	removed    []domain.ContactHandle
}

func (f *fakeEngine) AddContact(c domain.Contact) (domain.ContactHandle, contactplan.AddResult, error) {
	f.nextHandle++
	f.added = append(f.added, c)
	return f.nextHandle, contactplan.Added, nil
}

func (f *fakeEngine) AddRange(r domain.Range) (domain.RangeHandle, contactplan.AddResult, error) {
	f.ranges = append(f.ranges, r)
	return 1, contactplan.Added, nil
}

func (f *fakeEngine) RemoveContact(h domain.ContactHandle) error {
	f.removed = append(f.removed, h)
	return nil
}

func TestParseRecordDecodesNameAndValue(t *testing.T) {
	key, pr, ok := parseRecord("contacts.example.com", "1-2-100.contacts.example.com", "200,1000,0.9,5")
	if !ok {
		t.Fatal("expected a successful parse")
	}
	if key != "1-2-100.contacts.example.com" {
		t.Fatalf("key = %q", key)
	}
	if pr.contact.From != 1 || pr.contact.To != 2 || pr.contact.FromTime != 100 || pr.contact.ToTime != 200 {
		t.Fatalf("contact = %+v", pr.contact)
	}
	if pr.contact.XmitRate != 1000 || pr.contact.Confidence != 0.9 {
		t.Fatalf("contact rate/confidence = %+v", pr.contact)
	}
	if pr.rng.OWLT != 5 {
		t.Fatalf("range OWLT = %v, want 5", pr.rng.OWLT)
	}
}

func TestParseRecordRejectsMalformedName(t *testing.T) {
	if _, _, ok := parseRecord("contacts.example.com", "not-a-valid-name-at-all.contacts.example.com", "200,1000,0.9,5"); ok {
		t.Fatal("expected parse failure for a name with too many/few fields")
	}
}

func TestReconcileAddsNewAndRemovesVanished(t *testing.T) {
	fe := &fakeEngine{}
	w := &Watcher{eng: fe, lgr: &logger.NopLogger{}, seen: make(map[string]domain.ContactHandle)}

	current := map[string]parsedRecord{
		"a": {contact: domain.Contact{From: 1, To: 2}, rng: domain.Range{From: 1, To: 2}},
	}
	w.reconcile(current)
	if len(fe.added) != 1 {
		t.Fatalf("added = %d, want 1", len(fe.added))
	}
	if _, ok := w.seen["a"]; !ok {
		t.Fatal("expected \"a\" to be recorded as seen")
	}

	w.reconcile(map[string]parsedRecord{})
	if len(fe.removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(fe.removed))
	}
	if len(w.seen) != 0 {
		t.Fatalf("seen = %v, want empty after removal", w.seen)
	}
}
