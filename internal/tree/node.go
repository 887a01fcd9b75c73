package tree

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
	"github.com/nerrad567/gray-logic-dictionary/internal/weakref"
)

// NodeKind distinguishes the three node variants.
type NodeKind int

// Node kinds.
const (
	KindContainer NodeKind = iota
	KindParameter
	KindEvent
)

// String returns the lowercase kind name.
func (k NodeKind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindParameter:
		return "parameter"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is a position in the tree. The set of implementations is closed:
// *Container, *Parameter and *Event.
type Node interface {
	Name() string
	URI() string
	NodeKind() NodeKind
	sealed()
}

// Subscriber receives change notifications for leaves it subscribed to.
// Notify is called with the tree locked and must not block or call back
// into the tree. Event notifications carry the zero Value.
type Subscriber interface {
	Notify(uri string, v value.Value)
}

// Hook is invoked when a new value for a parameter has passed every policy
// check. Returning an error rejects the write and leaves the old value in
// place. Hooks run with the tree locked and must not call back into it.
type Hook func(uri string, old, next value.Value) error

// ParameterSpec declares a parameter.
type ParameterSpec struct {
	// Type fixes the value kind the parameter accepts.
	Type value.Kind

	// Initial is the starting value; the zero value of Type when unset.
	Initial value.Value

	// ReadOnly rejects every write from sessions.
	ReadOnly bool

	// ReadLevel and WriteLevel are the minimum effective userlevels for
	// reading and writing. Readonly (the zero value) places no restriction.
	ReadLevel  access.Userlevel
	WriteLevel access.Userlevel

	// OnChange, when set, can veto writes.
	OnChange Hook

	Description string
}

// EventSpec declares an event.
type EventSpec struct {
	// Level is the minimum effective userlevel for signalling.
	Level access.Userlevel

	Description string
}

type header struct {
	name string
	uri  string
}

func (h *header) Name() string { return h.name }
func (h *header) URI() string  { return h.uri }

// Container is an interior node holding named children in insertion order.
type Container struct {
	header
	children *orderedmap.OrderedMap[string, Node]
}

func newContainer(name, uri string) *Container {
	return &Container{
		header:   header{name: name, uri: uri},
		children: orderedmap.New[string, Node](),
	}
}

// NodeKind implements Node.
func (c *Container) NodeKind() NodeKind { return KindContainer }
func (c *Container) sealed()            {}

// subscribers is the set of sessions observing one leaf, keyed by anchor ID.
type subscribers = orderedmap.OrderedMap[uint64, weakref.Ref[Subscriber]]

// Parameter is a leaf holding one current value.
type Parameter struct {
	header
	spec  ParameterSpec
	value value.Value
	subs  *subscribers
}

// NodeKind implements Node.
func (p *Parameter) NodeKind() NodeKind { return KindParameter }
func (p *Parameter) sealed()            {}

// Type returns the declared value kind.
func (p *Parameter) Type() value.Kind { return p.spec.Type }

// ReadOnly reports whether sessions may write the parameter.
func (p *Parameter) ReadOnly() bool { return p.spec.ReadOnly }

// WriteLevel returns the minimum effective userlevel for writes.
func (p *Parameter) WriteLevel() access.Userlevel { return p.spec.WriteLevel }

// Event is a stateless leaf; signalling it only notifies subscribers.
type Event struct {
	header
	spec EventSpec
	subs *subscribers
}

// NodeKind implements Node.
func (e *Event) NodeKind() NodeKind { return KindEvent }
func (e *Event) sealed()            {}

// Level returns the minimum effective userlevel for signals.
func (e *Event) Level() access.Userlevel { return e.spec.Level }

// Info is a point-in-time snapshot of a node, safe to use after the tree
// lock is released.
type Info struct {
	URI         string           `json:"uri"`
	Name        string           `json:"name"`
	Kind        NodeKind         `json:"kind"`
	Type        value.Kind       `json:"type,omitempty"`
	Value       value.Value      `json:"value"`
	ReadOnly    bool             `json:"read_only,omitempty"`
	ReadLevel   access.Userlevel `json:"read_level"`
	WriteLevel  access.Userlevel `json:"write_level"`
	Description string           `json:"description,omitempty"`
	Children    int              `json:"children,omitempty"`
	Subscribers int              `json:"subscribers,omitempty"`
}

func snapshot(n Node) Info {
	info := Info{URI: n.URI(), Name: n.Name(), Kind: n.NodeKind()}
	switch node := n.(type) {
	case *Container:
		info.Children = node.children.Len()
	case *Parameter:
		info.Type = node.spec.Type
		info.Value = node.value
		info.ReadOnly = node.spec.ReadOnly
		info.ReadLevel = node.spec.ReadLevel
		info.WriteLevel = node.spec.WriteLevel
		info.Description = node.spec.Description
		info.Subscribers = node.subs.Len()
	case *Event:
		info.WriteLevel = node.spec.Level
		info.Description = node.spec.Description
		info.Subscribers = node.subs.Len()
	}
	return info
}
