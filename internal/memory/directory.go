package memory

import (
	"fmt"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/geom"
)

type entry struct {
	name   string
	static bool
	key    BatchKey
	object *RenderObject
}

// ObjectDirectory maps object names to their render objects and keeps each
// object in the batch its current attributes call for.
type ObjectDirectory struct {
	entries map[string]*entry
	stores  [2]*BufferStore // indexed by BufferClass
}

// NewObjectDirectory returns an empty directory placing objects in the
// given stores.
func NewObjectDirectory(static, dynamic *BufferStore) *ObjectDirectory {
	d := &ObjectDirectory{entries: make(map[string]*entry)}
	d.stores[Static] = static
	d.stores[Dynamic] = dynamic
	return d
}

func (d *ObjectDirectory) store(static bool) *BufferStore {
	return d.stores[ClassOf(static)]
}

func (d *ObjectDirectory) lookup(name string) (*entry, error) {
	e, ok := d.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	return e, nil
}

// Update creates or updates the named object. When the derived batch key
// changes the object migrates: it is inserted into its new batch before it
// leaves the old one, so a failure leaves it where it was. Either way the
// call has no effect when it returns an error.
func (d *ObjectDirectory) Update(name string, shape geom.Source, transform mgl32.Mat4, attrs Attributes, static bool) error {
	vertices, indices := shape.Vertices(), shape.Indices()
	if err := validateGeometry(attrs.Primitive, vertices, indices); err != nil {
		return fmt.Errorf("update %q: %w", name, err)
	}
	key := DeriveKey(static, attrs.Primitive, attrs)

	e, exists := d.entries[name]
	if exists && e.key == key && e.object.attrs.Primitive == attrs.Primitive {
		o := e.object
		if !o.sameGeometry(vertices, indices) {
			if err := o.SetShape(vertices, indices); err != nil {
				return fmt.Errorf("update %q: %w", name, err)
			}
		}
		o.update(transform, attrs)
		return nil
	}

	o, err := NewRenderObject(vertices, indices, transform, attrs)
	if err != nil {
		return fmt.Errorf("update %q: %w", name, err)
	}
	if exists {
		o.selected = e.object.selected && attrs.Selectable
	}
	if err := d.store(static).Upsert(key, name, o); err != nil {
		return fmt.Errorf("update %q: %w", name, err)
	}
	if exists && e.key != key {
		d.store(e.static).Remove(e.key, name)
		memoryLogger.Printf("migrated %q: %s -> %s", name, e.key, key)
	}
	d.entries[name] = &entry{name: name, static: static, key: key, object: o}
	return nil
}

// Delete removes the named object. Deleting an absent name does nothing.
func (d *ObjectDirectory) Delete(name string) {
	e, ok := d.entries[name]
	if !ok {
		return
	}
	d.store(e.static).Remove(e.key, name)
	delete(d.entries, name)
}

// Lookup returns the named object.
func (d *ObjectDirectory) Lookup(name string) (*RenderObject, bool) {
	e, ok := d.entries[name]
	if !ok {
		return nil, false
	}
	return e.object, true
}

// Key returns the batch key the named object is stored under.
func (d *ObjectDirectory) Key(name string) (BatchKey, error) {
	e, err := d.lookup(name)
	if err != nil {
		return BatchKey{}, err
	}
	return e.key, nil
}

func (d *ObjectDirectory) Transform(name string) (mgl32.Mat4, error) {
	e, err := d.lookup(name)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return e.object.Transform(), nil
}

func (d *ObjectDirectory) SetTransform(name string, m mgl32.Mat4) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	e.object.SetTransform(m)
	return nil
}

// Translate moves the named object by delta in world space.
func (d *ObjectDirectory) Translate(name string, delta mgl32.Vec3) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	e.object.SetTranslation(e.object.Translation().Add(delta))
	return nil
}

func (d *ObjectDirectory) Bounds(name string) (geom.Box, error) {
	e, err := d.lookup(name)
	if err != nil {
		return geom.Box{}, err
	}
	return e.object.Bounds(), nil
}

func (d *ObjectDirectory) Midpoint(name string) (mgl32.Vec3, error) {
	e, err := d.lookup(name)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return e.object.Midpoint(), nil
}

// SetAttributes replaces the named object's attributes, migrating it when
// its batch key changes.
func (d *ObjectDirectory) SetAttributes(name string, attrs Attributes) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	o := e.object
	return d.Update(name, o, o.transform, attrs, e.static)
}

// SetStatic moves the named object to the static or dynamic store.
func (d *ObjectDirectory) SetStatic(name string, static bool) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	if e.static == static {
		return nil
	}
	o := e.object
	return d.Update(name, o, o.transform, o.attrs, static)
}

// Select highlights the named object. Objects that are not selectable are
// left alone.
func (d *ObjectDirectory) Select(name string) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	if e.object.attrs.Selectable {
		e.object.SetSelected(true)
	}
	return nil
}

func (d *ObjectDirectory) Deselect(name string) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	e.object.SetSelected(false)
	return nil
}

// Toggle flips the named object's selection and returns the new state.
func (d *ObjectDirectory) Toggle(name string) (bool, error) {
	e, err := d.lookup(name)
	if err != nil {
		return false, err
	}
	if e.object.attrs.Selectable {
		e.object.SetSelected(!e.object.selected)
	}
	return e.object.selected, nil
}

// IsSelected reports whether the named object is selected.
func (d *ObjectDirectory) IsSelected(name string) (bool, error) {
	e, err := d.lookup(name)
	if err != nil {
		return false, err
	}
	return e.object.selected, nil
}

// Selected returns the names of all selected objects, sorted.
func (d *ObjectDirectory) Selected() []string {
	var names []string
	for name, e := range d.entries {
		if e.object.selected {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns all object names, sorted.
func (d *ObjectDirectory) Names() []string {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *ObjectDirectory) Len() int { return len(d.entries) }

// Each calls fn for every object in name order.
func (d *ObjectDirectory) Each(fn func(name string, o *RenderObject)) {
	for _, name := range d.Names() {
		fn(name, d.entries[name].object)
	}
}

// Clear forgets every object. The stores are cleared separately.
func (d *ObjectDirectory) Clear() {
	d.entries = make(map[string]*entry)
}

// Validate checks that every object sits in exactly the batch its entry
// names, that the entry's key is still the one its attributes derive, and
// that no batch holds objects the directory does not know about.
func (d *ObjectDirectory) Validate() error {
	var errors []string

	for name, e := range d.entries {
		attrs := e.object.attrs
		if key := DeriveKey(e.static, attrs.Primitive, attrs); key != e.key {
			errors = append(errors, fmt.Sprintf("object %q is filed under %s but its attributes give %s", name, e.key, key))
		}
		b, ok := d.store(e.static).Batch(e.key)
		if !ok {
			errors = append(errors, fmt.Sprintf("object %q references missing batch %s", name, e.key))
			continue
		}
		if e.object.owner != b {
			errors = append(errors, fmt.Sprintf("object %q is not owned by batch#%03d %s", name, b.id, e.key))
			continue
		}
		if obj, ok := b.Object(name); !ok || obj != e.object {
			errors = append(errors, fmt.Sprintf("batch#%03d %s does not hold object %q", b.id, e.key, name))
		}
	}

	members := 0
	for _, s := range d.stores {
		for _, b := range s.order {
			members += b.Len()
			for _, name := range b.Names() {
				if e, ok := d.entries[name]; !ok || e.key != b.key {
					errors = append(errors, fmt.Sprintf("batch#%03d %s holds stray object %q", b.id, b.key, name))
				}
			}
		}
	}
	if members != len(d.entries) {
		errors = append(errors, fmt.Sprintf("%d objects in batches, %d in directory", members, len(d.entries)))
	}

	if len(errors) > 0 {
		log.Printf("object integrity check failed with %d errors:", len(errors))
		for _, err := range errors {
			log.Printf("  - %s", err)
		}
		return fmt.Errorf("object integrity check failed with %d errors", len(errors))
	}
	return nil
}
