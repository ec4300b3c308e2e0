// Package form turns raw form input into stored records.
//
// An Engine resolves the domain from a navigation path, hands out add-form
// Sessions that follow an explicit Idle/Submitting/Success/Error lifecycle, and
// applies edits and deletes uniformly across every domain.
package form

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/store"
)

// Timings are the presentation delays after a successful add. They do not
// affect correctness; the engine only reports them.
type Timings struct {
	Processing time.Duration
	Display    time.Duration
}

// DefaultTimings matches the add form: half a second of "saving", then one
// second of the success message.
func DefaultTimings() Timings {
	return Timings{Processing: 500 * time.Millisecond, Display: time.Second}
}

// CloseAfter is how long after submission the form should close itself.
func (t Timings) CloseAfter() time.Duration {
	return t.Processing + t.Display
}

// Engine creates, edits, and deletes records through a Store.
type Engine struct {
	store   store.Store
	clock   Clock
	ids     *IDGenerator
	timings Timings
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTimings replaces the default presentation delays.
func WithTimings(t Timings) Option {
	return func(e *Engine) { e.timings = t }
}

// WithIDGenerator shares an id generator between engines.
func WithIDGenerator(g *IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// New creates an Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		clock:   SystemClock{},
		ids:     &IDGenerator{},
		timings: DefaultTimings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timings returns the engine's presentation delays.
func (e *Engine) Timings() Timings {
	return e.timings
}

// Store returns the underlying record store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Open starts an add-form session for the domain named by path.
func (e *Engine) Open(path string) *Session {
	return e.OpenTag(household.ResolveTag(path))
}

// OpenTag starts an add-form session for tag.
func (e *Engine) OpenTag(tag household.Tag) *Session {
	if !tag.Valid() {
		tag = household.TagGeneral
	}
	return &Session{
		ID:     newSessionID(e.clock.Now()),
		Tag:    tag,
		Schema: household.SchemaFor(tag),
		engine: e,
		phase:  PhaseIdle,
	}
}

// create stamps and appends a normalized entity. It returns the stored record
// and the new collection length.
func (e *Engine) create(ctx context.Context, tag household.Tag, entity household.Entity) (store.Record, int, error) {
	rec, err := household.ToRecord(entity)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	now := e.clock.Now()
	rec["createdAt"] = Timestamp(now)

	coll, err := e.store.Mutate(ctx, tag.StorageKey(), func(coll store.Collection) (store.Collection, error) {
		// Ids written by other processes or imports may be ahead of the clock.
		e.ids.Observe(coll.MaxID())
		rec["id"] = e.ids.Next(now)
		return append(coll, rec), nil
	})
	if err != nil {
		return nil, 0, err
	}
	return rec, len(coll), nil
}

// Edit replaces a stored record with freshly normalized input. The original
// id and createdAt are kept, as are a vehicle's maintenance records. A Wi-Fi
// record that only exists under the legacy key moves into wifiNetworks.
func (e *Engine) Edit(ctx context.Context, tag household.Tag, id int64, raw household.RawInput) (store.Record, error) {
	entity, err := household.Normalize(tag, raw)
	if err != nil {
		return nil, err
	}
	rec, err := household.ToRecord(entity)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	key := tag.StorageKey()
	_, err = e.store.Mutate(ctx, key, func(coll store.Collection) (store.Collection, error) {
		idx := coll.Index(id)
		if idx < 0 {
			return nil, errors.NewNotFound(key, id)
		}
		existing := coll[idx]
		keepIdentity(rec, existing)
		if tag == household.TagVehicle {
			if mr, ok := existing["maintenanceRecords"]; ok {
				rec["maintenanceRecords"] = mr
			}
		}
		out := coll.Clone()
		out[idx] = rec
		return out, nil
	})
	if errors.Is(err, errors.ErrNotFound) && tag == household.TagWifi {
		return e.migrateLegacyWifi(ctx, id, rec, err)
	}
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("record updated", "key", key, "id", id)
	return rec, nil
}

// migrateLegacyWifi stores rec in wifiNetworks under the identity of legacy
// record id, then drops that record from the legacy key. notFound is returned
// when the legacy key does not hold id either.
func (e *Engine) migrateLegacyWifi(ctx context.Context, id int64, rec store.Record, notFound error) (store.Record, error) {
	legacy, err := e.legacyWifi(ctx)
	if err != nil {
		return nil, err
	}
	existing, ok := legacy.Find(id)
	if !ok {
		return nil, notFound
	}
	keepIdentity(rec, existing)

	key := household.TagWifi.StorageKey()
	_, err = e.store.Mutate(ctx, key, func(coll store.Collection) (store.Collection, error) {
		if coll.Index(id) >= 0 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("record %d already exists in %s", id, key))
		}
		return append(coll, rec), nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.store.Remove(ctx, household.LegacyWifiKey, id); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	logging.From(ctx).Info("legacy record migrated", "from", household.LegacyWifiKey, "key", key, "id", id)
	return rec, nil
}

// Delete removes a record from tag's collection. Wi-Fi ids missing from
// wifiNetworks are removed from the legacy key instead.
func (e *Engine) Delete(ctx context.Context, tag household.Tag, id int64) error {
	key := tag.StorageKey()
	_, err := e.store.Remove(ctx, key, id)
	if errors.Is(err, errors.ErrNotFound) && tag == household.TagWifi {
		legacy, lerr := e.legacyWifi(ctx)
		if lerr != nil {
			return lerr
		}
		if legacy.Index(id) >= 0 {
			key = household.LegacyWifiKey
			_, err = e.store.Remove(ctx, key, id)
		}
	}
	if err != nil {
		return err
	}
	logging.From(ctx).Info("record deleted", "key", key, "id", id)
	return nil
}

// legacyWifi loads the legacy Wi-Fi key without creating it.
func (e *Engine) legacyWifi(ctx context.Context) (store.Collection, error) {
	keys, err := e.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(keys, household.LegacyWifiKey) {
		return store.Collection{}, nil
	}
	return e.store.Load(ctx, household.LegacyWifiKey)
}

// keepIdentity copies id and createdAt from existing onto rec.
func keepIdentity(rec, existing store.Record) {
	rec["id"] = existing["id"]
	if created, ok := existing["createdAt"]; ok {
		rec["createdAt"] = created
	} else {
		delete(rec, "createdAt")
	}
}

// AddMaintenance appends a maintenance entry to a stored vehicle and returns
// the updated vehicle record.
func (e *Engine) AddMaintenance(ctx context.Context, vehicleID int64, raw household.RawInput) (store.Record, error) {
	m, err := household.NormalizeMaintenance(raw)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	key := household.TagVehicle.StorageKey()
	var updated store.Record
	_, err = e.store.Mutate(ctx, key, func(coll store.Collection) (store.Collection, error) {
		idx := coll.Index(vehicleID)
		if idx < 0 {
			return nil, errors.NewNotFound(key, vehicleID)
		}
		m.ID = e.ids.Next(now)
		entry, err := store.FromValue(m)
		if err != nil {
			return nil, errors.NewInternal(err)
		}

		rec := coll[idx].Clone()
		records, _ := rec["maintenanceRecords"].([]any)
		rec["maintenanceRecords"] = append(append([]any{}, records...), map[string]any(entry))

		out := coll.Clone()
		out[idx] = rec
		updated = rec
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("maintenance recorded", "key", key, "id", vehicleID, "entry", m.ID)
	return updated, nil
}
