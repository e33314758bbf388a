package pipeline

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
)

type thing struct {
	ID   string
	Name string
}

// ----- recording collaborators -----

// recStore records the call order and arguments it receives.
type recStore struct {
	calls     []string
	saveExtra map[string]any
	saveErr   error
	deleteErr error
}

func (s *recStore) Save(_ context.Context, e *thing, extra map[string]any) (*thing, error) {
	s.calls = append(s.calls, "save")
	s.saveExtra = extra
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	out := *e
	out.ID = "saved"
	return &out, nil
}

func (s *recStore) Delete(_ context.Context, _ *thing) error {
	s.calls = append(s.calls, "delete")
	return s.deleteErr
}

// recCreateHooks records hook invocations into a shared trace.
type recCreateHooks struct {
	trace     *[]string
	beforeErr error
	fieldsErr error
	afterErr  error
	afterGot  *thing
}

func (h *recCreateHooks) BeforeCreate(_ context.Context, _ *thing) error {
	*h.trace = append(*h.trace, "before")
	return h.beforeErr
}

func (h *recCreateHooks) CreateFields(_ context.Context, _ *thing) (map[string]any, error) {
	*h.trace = append(*h.trace, "fields")
	if h.fieldsErr != nil {
		return nil, h.fieldsErr
	}
	return map[string]any{"owner": "alice"}, nil
}

func (h *recCreateHooks) AfterCreate(_ context.Context, e *thing) error {
	*h.trace = append(*h.trace, "after")
	h.afterGot = e
	return h.afterErr
}

type recDestroyHooks struct {
	trace     *[]string
	beforeErr error
}

func (h *recDestroyHooks) BeforeDestroy(_ context.Context, _ *thing) error {
	*h.trace = append(*h.trace, "before")
	return h.beforeErr
}

func (h *recDestroyHooks) AfterDestroy(_ context.Context, _ *thing) error {
	*h.trace = append(*h.trace, "after")
	return nil
}

func traceEquals(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace = %v, want %v", got, want)
		}
	}
}

// ----- create -----

func TestCreate_HookAndPerformOrder(t *testing.T) {
	var trace []string
	hooks := &recCreateHooks{trace: &trace}
	store := &recStore{}

	out, err := Create[thing](context.Background(), hooks, store, &thing{Name: "n"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	traceEquals(t, trace, "before", "fields", "after")
	traceEquals(t, store.calls, "save")
	if store.saveExtra["owner"] != "alice" {
		t.Fatalf("hook fields not passed to save: %v", store.saveExtra)
	}
	if hooks.afterGot != out || out.ID != "saved" {
		t.Fatalf("after hook must see the persisted entity")
	}
}

func TestCreate_BeforeVetoSkipsPerform(t *testing.T) {
	var trace []string
	veto := apperr.Validation(map[string][]string{"name": {"taken"}})
	hooks := &recCreateHooks{trace: &trace, beforeErr: veto}
	store := &recStore{}

	_, err := Create[thing](context.Background(), hooks, store, &thing{})
	if !errors.Is(err, veto) {
		t.Fatalf("veto not propagated: %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("perform ran after veto: %v", store.calls)
	}
	traceEquals(t, trace, "before")
}

func TestCreate_PerformFailureSkipsAfter(t *testing.T) {
	var trace []string
	boom := apperr.Storage(errors.New("disk full"))
	hooks := &recCreateHooks{trace: &trace}
	store := &recStore{saveErr: boom}

	_, err := Create[thing](context.Background(), hooks, store, &thing{})
	if !errors.Is(err, boom) {
		t.Fatalf("perform error not propagated: %v", err)
	}
	traceEquals(t, trace, "before", "fields") // no "after"
}

func TestCreate_FieldsFailureSkipsPerform(t *testing.T) {
	var trace []string
	hooks := &recCreateHooks{trace: &trace, fieldsErr: errors.New("no fields")}
	store := &recStore{}

	if _, err := Create[thing](context.Background(), hooks, store, &thing{}); err == nil {
		t.Fatal("expected error")
	}
	if len(store.calls) != 0 {
		t.Fatalf("perform ran after fields failure")
	}
}

// ----- update (same machine, existing identity) -----

type slugGuard struct {
	NopUpdateHooks[thing]
}

func (slugGuard) BeforeUpdate(_ context.Context, e *thing) error {
	if e.Name == "forbidden" {
		return apperr.Validation(map[string][]string{"name": {"immutable"}})
	}
	return nil
}

func TestUpdate_EmbeddedNopDefaults(t *testing.T) {
	store := &recStore{}

	// only BeforeUpdate overridden; fields/after fall back to no-ops
	out, err := Update[thing](context.Background(), slugGuard{}, store, &thing{ID: "t1", Name: "ok"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out == nil || store.saveExtra != nil {
		t.Fatalf("nop fields should pass nil extra, got %v", store.saveExtra)
	}

	_, err = Update[thing](context.Background(), slugGuard{}, store, &thing{ID: "t1", Name: "forbidden"})
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindValidation {
		t.Fatalf("veto lost: %v", err)
	}
}

// ----- destroy -----

func TestDestroy_Order(t *testing.T) {
	var trace []string
	store := &recStore{}

	if err := Destroy[thing](context.Background(), &recDestroyHooks{trace: &trace}, store, &thing{ID: "t1"}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	traceEquals(t, trace, "before", "after")
	traceEquals(t, store.calls, "delete")
}

func TestDestroy_BeforeVeto(t *testing.T) {
	var trace []string
	veto := apperr.PermissionDenied("cannot delete")
	store := &recStore{}

	err := Destroy[thing](context.Background(), &recDestroyHooks{trace: &trace, beforeErr: veto}, store, &thing{})
	if !errors.Is(err, veto) {
		t.Fatalf("veto lost: %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("delete ran after veto")
	}
}

func TestDestroy_DeleteFailureSkipsAfter(t *testing.T) {
	var trace []string
	store := &recStore{deleteErr: apperr.ReferentialBlock([]string{"c1"})}

	err := Destroy[thing](context.Background(), &recDestroyHooks{trace: &trace}, store, &thing{})
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindReferentialBlock {
		t.Fatalf("delete error lost: %v", err)
	}
	traceEquals(t, trace, "before")
}

// ----- list -----

type listQuery struct {
	steps []string
}

type recListHooks struct{}

func (recListHooks) BeforeList(_ context.Context, q *listQuery) (*listQuery, error) {
	q.steps = append(q.steps, "before")
	return q, nil
}

func (recListHooks) AfterList(_ context.Context, q *listQuery) (*listQuery, error) {
	q.steps = append(q.steps, "after")
	return q, nil
}

func TestList_HooksWrapFilter(t *testing.T) {
	filter := func(_ context.Context, q *listQuery) (*listQuery, error) {
		q.steps = append(q.steps, "filter")
		return q, nil
	}

	q, err := List[*listQuery](context.Background(), recListHooks{}, filter, &listQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	traceEquals(t, q.steps, "before", "filter", "after")
}

func TestList_FilterRecordMissingBecomesNotFound(t *testing.T) {
	filter := func(context.Context, *listQuery) (*listQuery, error) {
		return nil, gorm.ErrRecordNotFound
	}

	_, err := List[*listQuery](context.Background(), NopListHooks[*listQuery]{}, filter, &listQuery{})
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindNotFound {
		t.Fatalf("want not_found failure, got %v", err)
	}
}

func TestList_FilterErrorPassesThrough(t *testing.T) {
	boom := apperr.StorageUnavailable(errors.New("locked"))
	filter := func(context.Context, *listQuery) (*listQuery, error) { return nil, boom }

	_, err := List[*listQuery](context.Background(), NopListHooks[*listQuery]{}, filter, &listQuery{})
	if !errors.Is(err, boom) {
		t.Fatalf("filter error mutated: %v", err)
	}
}

// ----- retrieve / safe lookup -----

func TestRetrieve_RunsHooksAfterLookup(t *testing.T) {
	var trace []string
	lookup := func(context.Context) (*thing, error) {
		trace = append(trace, "lookup")
		return &thing{ID: "t1"}, nil
	}

	hooks := retrieveRecorder{trace: &trace}
	got, err := Retrieve[thing](context.Background(), hooks, lookup)
	if err != nil || got.ID != "t1" {
		t.Fatalf("retrieve: %v %v", got, err)
	}
	traceEquals(t, trace, "lookup", "before", "after")
}

type retrieveRecorder struct{ trace *[]string }

func (h retrieveRecorder) BeforeRetrieve(_ context.Context, _ *thing) error {
	*h.trace = append(*h.trace, "before")
	return nil
}

func (h retrieveRecorder) AfterRetrieve(_ context.Context, _ *thing) error {
	*h.trace = append(*h.trace, "after")
	return nil
}

func TestSafeLookup_TranslatesRecordMissing(t *testing.T) {
	lookup := SafeLookup(func(context.Context) (*thing, error) {
		return nil, gorm.ErrRecordNotFound
	})

	_, err := lookup(context.Background())
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindObjectMissing {
		t.Fatalf("want object_missing, got %v", err)
	}
	if f.Message != "Object not found." {
		t.Fatalf("message = %q", f.Message)
	}
}

func TestSafeLookup_OtherErrorsUntouched(t *testing.T) {
	boom := errors.New("connection reset")
	lookup := SafeLookup(func(context.Context) (*thing, error) { return nil, boom })

	_, err := lookup(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error mutated: %v", err)
	}
	var f *apperr.Failure
	if errors.As(err, &f) {
		t.Fatalf("unexpected translation to failure: %v", f)
	}
}

func TestSafeLookup_WrappedRecordMissing(t *testing.T) {
	lookup := SafeLookup(func(context.Context) (*thing, error) {
		return nil, errors.Join(errors.New("get post"), gorm.ErrRecordNotFound)
	})

	_, err := lookup(context.Background())
	var f *apperr.Failure
	if !errors.As(err, &f) || f.Kind != apperr.KindObjectMissing {
		t.Fatalf("wrapped sentinel not translated: %v", err)
	}
}
