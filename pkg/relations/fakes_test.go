package relations

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fakeStore is an in-memory Store keyed by string. Relation fakes treat the
// whole store as the relation's scope.
type fakeStore struct {
	keyName string
	seq     int
	records map[string]map[string]any

	failOp  string
	failErr error

	creates int
	updates int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keyName: "id",
		records: map[string]map[string]any{},
	}
}

func (s *fakeStore) seed(key string, attrs map[string]any) {
	s.records[key] = copyAttrs(attrs)
}

func (s *fakeStore) failOn(op string, err error) {
	s.failOp = op
	s.failErr = err
}

func (s *fakeStore) rec(key string) *models.Record {
	attrs, ok := s.records[key]
	if !ok {
		return nil
	}
	return &models.Record{
		KeyName:   s.keyName,
		Key:       key,
		Attrs:     copyAttrs(attrs),
		Persisted: true,
	}
}

func (s *fakeStore) keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *fakeStore) snapshot() map[string]map[string]any {
	snap := make(map[string]map[string]any, len(s.records))
	for k, v := range s.records {
		snap[k] = copyAttrs(v)
	}
	return snap
}

func (s *fakeStore) restore(snap map[string]map[string]any) {
	s.records = make(map[string]map[string]any, len(snap))
	for k, v := range snap {
		s.records[k] = copyAttrs(v)
	}
}

func (s *fakeStore) Create(ctx context.Context, attrs map[string]any) (*models.Record, error) {
	if s.failOp == "create" {
		return nil, s.failErr
	}
	key, _ := attrs[s.keyName].(string)
	if key == "" {
		s.seq++
		key = fmt.Sprintf("gen-%d", s.seq)
	}
	stored := copyAttrs(attrs)
	delete(stored, s.keyName)
	s.records[key] = stored
	s.creates++
	return s.rec(key), nil
}

func (s *fakeStore) Update(ctx context.Context, rec *models.Record, attrs map[string]any) error {
	if s.failOp == "update" {
		return s.failErr
	}
	key := keyString(rec.Key)
	stored, ok := s.records[key]
	if !ok {
		return fmt.Errorf("record %s not found", key)
	}
	for k, v := range attrs {
		stored[k] = v
		rec.Set(k, v)
	}
	s.updates++
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, rec *models.Record) error {
	if s.failOp == "delete" {
		return s.failErr
	}
	key := keyString(rec.Key)
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("record %s not found", key)
	}
	delete(s.records, key)
	s.deletes++
	return nil
}

func (s *fakeStore) FindByKeyOrFail(ctx context.Context, key any) (*models.Record, error) {
	rec := s.rec(keyString(key))
	if rec == nil {
		return nil, fmt.Errorf("record %v not found", key)
	}
	return rec, nil
}

func (s *fakeStore) UpdateOrCreate(ctx context.Context, match map[string]any, attrs map[string]any) (*models.Record, error) {
	if s.failOp == "upsert" {
		return nil, s.failErr
	}
	if key, ok := match[s.keyName]; ok {
		if rec := s.rec(keyString(key)); rec != nil {
			if err := s.Update(ctx, rec, attrs); err != nil {
				return nil, err
			}
			return rec, nil
		}
		merged := copyAttrs(attrs)
		merged[s.keyName] = keyString(key)
		return s.Create(ctx, merged)
	}

	for key, stored := range s.records {
		if containsAll(stored, match) {
			rec := s.rec(key)
			if err := s.Update(ctx, rec, attrs); err != nil {
				return nil, err
			}
			return rec, nil
		}
	}
	return s.Create(ctx, attrs)
}

func containsAll(attrs, match map[string]any) bool {
	for k, v := range match {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

func copyAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// fakeBelongsTo owns the foreign key on the root record.
type fakeBelongsTo struct {
	store      *fakeStore
	root       *models.Record
	foreignKey string
}

func (r *fakeBelongsTo) TargetKeyName() string { return r.store.keyName }
func (r *fakeBelongsTo) Target() Store         { return r.store }
func (r *fakeBelongsTo) Associate(child *models.Record) {
	r.root.Set(r.foreignKey, child.Key)
}

func (r *fakeBelongsTo) Current(ctx context.Context) (*models.Record, error) {
	fk := r.root.Get(r.foreignKey)
	if fk == nil {
		return nil, nil
	}
	return r.store.rec(keyString(fk)), nil
}

// fakeHasOne keeps the foreign key on the related side.
type fakeHasOne struct {
	store   *fakeStore
	current string
}

func (r *fakeHasOne) TargetKeyName() string { return r.store.keyName }
func (r *fakeHasOne) Target() Store         { return r.store }

func (r *fakeHasOne) Current(ctx context.Context) (*models.Record, error) {
	if r.current == "" {
		return nil, nil
	}
	return r.store.rec(r.current), nil
}

type fakeHasMany struct {
	store *fakeStore
}

func (r *fakeHasMany) TargetKeyName() string { return r.store.keyName }
func (r *fakeHasMany) Target() Store         { return r.store }

func (r *fakeHasMany) Current(ctx context.Context) ([]*models.Record, error) {
	records := make([]*models.Record, 0, len(r.store.records))
	for _, key := range r.store.keys() {
		records = append(records, r.store.rec(key))
	}
	return records, nil
}

type fakeBelongsToMany struct {
	store         *fakeStore
	pivotAccessor string
	targetNested  []string

	pivotRows map[string]map[string]any
	syncs     int
	syncErr   error
}

func newFakeBelongsToMany(store *fakeStore) *fakeBelongsToMany {
	return &fakeBelongsToMany{
		store:         store,
		pivotAccessor: "pivot",
		pivotRows:     map[string]map[string]any{},
	}
}

func (r *fakeBelongsToMany) TargetKeyName() string { return r.store.keyName }
func (r *fakeBelongsToMany) Target() Store         { return r.store }
func (r *fakeBelongsToMany) PivotAccessor() string { return r.pivotAccessor }
func (r *fakeBelongsToMany) TargetNestedKeys() []string { return r.targetNested }

func (r *fakeBelongsToMany) Sync(ctx context.Context, set map[any]map[string]any) error {
	r.syncs++
	if r.syncErr != nil {
		return r.syncErr
	}
	rows := make(map[string]map[string]any, len(set))
	for key, attrs := range set {
		rows[keyString(key)] = copyAttrs(attrs)
	}
	r.pivotRows = rows
	return nil
}

// unclassifiableRelation satisfies Relation but none of the capability
// interfaces.
type unclassifiableRelation struct {
	store *fakeStore
}

func (r *unclassifiableRelation) TargetKeyName() string { return r.store.keyName }
func (r *unclassifiableRelation) Target() Store         { return r.store }

// fakeRootStore persists root records in memory.
type fakeRootStore struct {
	seq     int
	saves   int
	saved   map[string]map[string]any
	failErr error
}

func newFakeRootStore() *fakeRootStore {
	return &fakeRootStore{saved: map[string]map[string]any{}}
}

func (s *fakeRootStore) Save(ctx context.Context, rec *models.Record) error {
	if s.failErr != nil {
		return s.failErr
	}
	if !rec.Persisted {
		s.seq++
		rec.Key = fmt.Sprintf("root-%d", s.seq)
		rec.Persisted = true
	}
	s.saved[keyString(rec.Key)] = copyAttrs(rec.Attrs)
	s.saves++
	return nil
}

func (s *fakeRootStore) snapshot() map[string]map[string]any {
	snap := make(map[string]map[string]any, len(s.saved))
	for k, v := range s.saved {
		snap[k] = copyAttrs(v)
	}
	return snap
}

// fakeTransactor snapshots every registered store on Begin and restores the
// snapshots on Rollback, so tests can assert that a failed save leaves no
// observable changes.
type fakeTransactor struct {
	stores []*fakeStore
	roots  *fakeRootStore

	begins    int
	commits   int
	rollbacks int
	beginErr  error

	storeSnaps []map[string]map[string]any
	rootSnap   map[string]map[string]any
}

func newFakeTransactor(roots *fakeRootStore, stores ...*fakeStore) *fakeTransactor {
	return &fakeTransactor{stores: stores, roots: roots}
}

func (t *fakeTransactor) Begin(ctx context.Context) (context.Context, Txn, error) {
	if t.beginErr != nil {
		return ctx, nil, t.beginErr
	}
	t.begins++
	t.storeSnaps = nil
	for _, s := range t.stores {
		t.storeSnaps = append(t.storeSnaps, s.snapshot())
	}
	if t.roots != nil {
		t.rootSnap = t.roots.snapshot()
	}
	return ctx, &fakeTxn{t: t}, nil
}

type fakeTxn struct {
	t *fakeTransactor
}

func (x *fakeTxn) Commit(ctx context.Context) error {
	x.t.commits++
	return nil
}

func (x *fakeTxn) Rollback(ctx context.Context) error {
	x.t.rollbacks++
	for i, s := range x.t.stores {
		s.restore(x.t.storeSnaps[i])
	}
	if x.t.roots != nil {
		x.t.roots.saved = x.t.rootSnap
	}
	return nil
}
