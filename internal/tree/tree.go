package tree

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
	"github.com/nerrad567/gray-logic-dictionary/internal/weakref"
)

// Logger defines the logging interface used by the Tree.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Tree is the object dictionary. All public methods are thread-safe.
type Tree struct {
	mu     sync.RWMutex
	root   *Container
	logger Logger
}

// New creates a tree holding only the root container.
func New() *Tree {
	return &Tree{
		root:   newContainer("", ""),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the tree.
func (t *Tree) SetLogger(logger Logger) {
	t.logger = logger
}

// resolve walks segments from the root. Caller holds t.mu.
func (t *Tree) resolve(uri string) (Node, error) {
	segments, err := SplitURI(uri)
	if err != nil {
		return nil, err
	}

	var node Node = t.root
	for i, seg := range segments {
		c, ok := node.(*Container)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotAContainer, node.URI())
		}
		child, found := c.children.Get(seg)
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinURI(c.URI(), segments[i]))
		}
		node = child
	}
	return node, nil
}

// Resolve returns the node at uri.
//
// Returns:
//   - Node: a *Container, *Parameter or *Event
//   - error: ErrNotFound, ErrNotAContainer, or ErrInvalidURI
func (t *Tree) Resolve(uri string) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolve(uri)
}

// Describe returns a snapshot of the node at uri.
func (t *Tree) Describe(uri string) (Info, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, err := t.resolve(uri)
	if err != nil {
		return Info{}, err
	}
	return snapshot(node), nil
}

// Read returns the current value of the parameter at uri.
//
// Returns:
//   - value.Value: the stored value
//   - error: ErrNotFound, ErrWrongKind (not a parameter), ErrAccessDenied
func (t *Tree) Read(uri string, level access.Userlevel) (value.Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, err := t.resolve(uri)
	if err != nil {
		return value.Value{}, err
	}
	p, ok := node.(*Parameter)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %s is a %s", ErrWrongKind, node.URI(), node.NodeKind())
	}
	if !access.Permits(level, p.spec.ReadLevel) {
		return value.Value{}, fmt.Errorf("%w: reading %s requires %s", ErrAccessDenied, p.uri, p.spec.ReadLevel)
	}
	return p.value, nil
}

// Write stores v into the parameter at uri on behalf of a session at level.
// Checks run in this order: existence, node kind, value type, userlevel,
// read-only flag, change hook. Only when all pass is the value stored and
// every live subscriber notified, before Write returns.
func (t *Tree) Write(uri string, v value.Value, level access.Userlevel) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.parameter(uri)
	if err != nil {
		return err
	}
	if err := checkValue(p, v); err != nil {
		return err
	}
	if !access.Permits(level, p.spec.WriteLevel) {
		return fmt.Errorf("%w: writing %s requires %s", ErrAccessDenied, p.uri, p.spec.WriteLevel)
	}
	if p.spec.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, p.uri)
	}
	return t.store(p, v)
}

// Update stores v into the parameter at uri without applying session
// policy (userlevel and read-only flag). It is the path by which device
// code publishes measured state. The type check and hook still apply.
func (t *Tree) Update(uri string, v value.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.parameter(uri)
	if err != nil {
		return err
	}
	if err := checkValue(p, v); err != nil {
		return err
	}
	return t.store(p, v)
}

// parameter resolves uri to a parameter. Caller holds t.mu.
func (t *Tree) parameter(uri string) (*Parameter, error) {
	node, err := t.resolve(uri)
	if err != nil {
		return nil, err
	}
	p, ok := node.(*Parameter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrWrongKind, node.URI(), node.NodeKind())
	}
	return p, nil
}

// checkValue verifies that v can be stored in p.
func checkValue(p *Parameter, v value.Value) error {
	if v.Kind() != p.spec.Type {
		return fmt.Errorf("%w: %s holds %s, got %s", ErrWrongType, p.uri, p.spec.Type, v.Kind())
	}
	if !v.IsFinite() {
		return fmt.Errorf("%w: %s: non-finite float", value.ErrRangeOrPrecisionLoss, p.uri)
	}
	return nil
}

// store runs the hook, commits v and notifies. Caller holds t.mu for writing.
func (t *Tree) store(p *Parameter, v value.Value) error {
	if p.spec.OnChange != nil {
		if err := p.spec.OnChange(p.uri, p.value, v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrHookRejected, p.uri, err)
		}
	}
	p.value = v
	t.notify(p.uri, p.subs, v)
	return nil
}

// Signal fires the event at uri.
func (t *Tree) Signal(uri string, level access.Userlevel) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.resolve(uri)
	if err != nil {
		return err
	}
	e, ok := node.(*Event)
	if !ok {
		return fmt.Errorf("%w: %s is a %s", ErrWrongKind, node.URI(), node.NodeKind())
	}
	if !access.Permits(level, e.spec.Level) {
		return fmt.Errorf("%w: signalling %s requires %s", ErrAccessDenied, e.uri, e.spec.Level)
	}
	t.notify(e.uri, e.subs, value.Value{})
	return nil
}

// notify delivers to every live subscriber and prunes dead references.
// Caller holds t.mu for writing.
func (t *Tree) notify(uri string, subs *subscribers, v value.Value) {
	var dead []uint64
	for pair := subs.Oldest(); pair != nil; pair = pair.Next() {
		delivered := pair.Value.Do(func(s Subscriber) {
			s.Notify(uri, v)
		})
		if !delivered {
			dead = append(dead, pair.Key)
		}
	}
	for _, id := range dead {
		subs.Delete(id)
	}
	if len(dead) > 0 {
		t.logger.Debug("pruned stale subscribers", "uri", uri, "count", len(dead))
	}
}

// leafSubscribers returns the subscriber set of the leaf at uri. Caller
// holds t.mu.
func (t *Tree) leafSubscribers(uri string) (string, *subscribers, error) {
	node, err := t.resolve(uri)
	if err != nil {
		return "", nil, err
	}
	switch leaf := node.(type) {
	case *Parameter:
		return leaf.uri, leaf.subs, nil
	case *Event:
		return leaf.uri, leaf.subs, nil
	default:
		return "", nil, fmt.Errorf("%w: %s is a %s", ErrWrongKind, node.URI(), node.NodeKind())
	}
}

// Subscribe registers ref for notifications from the leaf at uri.
// Subscribing the same referent twice has no further effect. It returns
// the canonical URI of the leaf.
func (t *Tree) Subscribe(uri string, ref weakref.Ref[Subscriber]) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	canonical, subs, err := t.leafSubscribers(uri)
	if err != nil {
		return "", err
	}
	if ref.IsValid() {
		subs.Set(ref.ID(), ref)
	}
	return canonical, nil
}

// Unsubscribe removes the referent identified by id from the leaf at uri.
// Removing a referent that is not subscribed is a no-op.
func (t *Tree) Unsubscribe(uri string, id uint64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	canonical, subs, err := t.leafSubscribers(uri)
	if err != nil {
		return "", err
	}
	subs.Delete(id)
	return canonical, nil
}

// Browse visits the subtree at root depth-first, a container before its
// children and siblings in insertion order. The visitor receives snapshots
// taken under one read lock and may call back into the tree. A visitor
// error stops the traversal and is returned.
func (t *Tree) Browse(root string, visit func(Info) error) error {
	t.mu.RLock()
	start, err := t.resolve(root)
	if err != nil {
		t.mu.RUnlock()
		return err
	}
	var infos []Info
	walk(start, func(n Node) {
		infos = append(infos, snapshot(n))
	})
	t.mu.RUnlock()

	for _, info := range infos {
		if err := visit(info); err != nil {
			return err
		}
	}
	return nil
}

func walk(n Node, fn func(Node)) {
	fn(n)
	c, ok := n.(*Container)
	if !ok {
		return
	}
	for pair := c.children.Oldest(); pair != nil; pair = pair.Next() {
		walk(pair.Value, fn)
	}
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	walk(t.root, func(Node) { n++ })
	return n
}

// add attaches child under the container at parentURI. Caller holds t.mu
// for writing.
func (t *Tree) add(parentURI, name string, build func(uri string) Node) (Node, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	node, err := t.resolve(parentURI)
	if err != nil {
		return nil, err
	}
	parent, ok := node.(*Container)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAContainer, node.URI())
	}
	uri := JoinURI(parent.uri, name)
	if _, exists := parent.children.Get(name); exists {
		return nil, fmt.Errorf("%w: %s", ErrExists, uri)
	}
	child := build(uri)
	parent.children.Set(name, child)
	return child, nil
}

// AddContainer creates an empty container named name under parentURI.
func (t *Tree) AddContainer(parentURI, name string) (*Container, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.add(parentURI, name, func(uri string) Node {
		return newContainer(name, uri)
	})
	if err != nil {
		return nil, err
	}
	return node.(*Container), nil
}

// AddParameter creates a parameter named name under parentURI.
func (t *Tree) AddParameter(parentURI, name string, spec ParameterSpec) (*Parameter, error) {
	initial, err := initialValue(spec)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", JoinURI(parentURI, name), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.add(parentURI, name, func(uri string) Node {
		return &Parameter{
			header: header{name: name, uri: uri},
			spec:   spec,
			value:  initial,
			subs:   orderedmap.New[uint64, weakref.Ref[Subscriber]](),
		}
	})
	if err != nil {
		return nil, err
	}
	return node.(*Parameter), nil
}

// AddEvent creates an event named name under parentURI.
func (t *Tree) AddEvent(parentURI, name string, spec EventSpec) (*Event, error) {
	if !spec.Level.IsValid() {
		return nil, fmt.Errorf("event %s: %w", JoinURI(parentURI, name), access.ErrInvalidUserlevel)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node, err := t.add(parentURI, name, func(uri string) Node {
		return &Event{
			header: header{name: name, uri: uri},
			spec:   spec,
			subs:   orderedmap.New[uint64, weakref.Ref[Subscriber]](),
		}
	})
	if err != nil {
		return nil, err
	}
	return node.(*Event), nil
}

func initialValue(spec ParameterSpec) (value.Value, error) {
	if spec.Type == value.KindInvalid {
		return value.Value{}, fmt.Errorf("%w: no type", value.ErrInvalidKind)
	}
	if !spec.ReadLevel.IsValid() || !spec.WriteLevel.IsValid() {
		return value.Value{}, access.ErrInvalidUserlevel
	}
	if !spec.Initial.IsValid() {
		return value.Zero(spec.Type), nil
	}
	if spec.Initial.Kind() != spec.Type {
		return value.Value{}, fmt.Errorf("%w: initial value is %s, want %s", ErrWrongType, spec.Initial.Kind(), spec.Type)
	}
	if !spec.Initial.IsFinite() {
		return value.Value{}, fmt.Errorf("%w: initial value is not finite", value.ErrRangeOrPrecisionLoss)
	}
	return spec.Initial, nil
}

// MakeContainers creates every missing container along uri and returns the
// canonical URI. Existing containers are reused.
func (t *Tree) MakeContainers(uri string) (string, error) {
	segments, err := SplitURI(uri)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.root
	for _, seg := range segments {
		child, ok := parent.children.Get(seg)
		if !ok {
			c := newContainer(seg, JoinURI(parent.uri, seg))
			parent.children.Set(seg, c)
			parent = c
			continue
		}
		c, isContainer := child.(*Container)
		if !isContainer {
			return "", fmt.Errorf("%w: %s", ErrNotAContainer, child.URI())
		}
		parent = c
	}
	return parent.uri, nil
}

// DefineParameter creates a parameter at uri, making intermediate
// containers as needed.
func (t *Tree) DefineParameter(uri string, spec ParameterSpec) (*Parameter, error) {
	parent, name, err := splitLast(uri)
	if err != nil {
		return nil, err
	}
	if parent, err = t.MakeContainers(parent); err != nil {
		return nil, err
	}
	return t.AddParameter(parent, name, spec)
}

// DefineEvent creates an event at uri, making intermediate containers as
// needed.
func (t *Tree) DefineEvent(uri string, spec EventSpec) (*Event, error) {
	parent, name, err := splitLast(uri)
	if err != nil {
		return nil, err
	}
	if parent, err = t.MakeContainers(parent); err != nil {
		return nil, err
	}
	return t.AddEvent(parent, name, spec)
}

func splitLast(uri string) (parent, name string, err error) {
	segments, err := SplitURI(uri)
	if err != nil {
		return "", "", err
	}
	if len(segments) == 0 {
		return "", "", fmt.Errorf("%w: the root cannot be redefined", ErrInvalidURI)
	}
	last := len(segments) - 1
	parentURI := ""
	for _, s := range segments[:last] {
		parentURI = JoinURI(parentURI, s)
	}
	return parentURI, segments[last], nil
}
