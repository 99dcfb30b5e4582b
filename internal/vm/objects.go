package vm

import (
	"fmt"
	"strings"
)

// ObjectType is a short tag used in error messages and dispatch.
type ObjectType string

const (
	STRING_OBJ       ObjectType = "string"
	ARRAY_OBJ        ObjectType = "array"
	OBJECT_OBJ       ObjectType = "object"
	FUNCTION_OBJ     ObjectType = "function"
	CLOSURE_OBJ      ObjectType = "function"
	CLASS_OBJ        ObjectType = "class"
	INSTANCE_OBJ     ObjectType = "instance"
	BOUND_METHOD_OBJ ObjectType = "function"
	NATIVE_OBJ       ObjectType = "native function"
)

// Object is the interface of heap-allocated runtime values.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// ObjString is an immutable string value.
type ObjString struct {
	Value string
}

func (s *ObjString) Type() ObjectType { return STRING_OBJ }
func (s *ObjString) Inspect() string  { return s.Value }

// ObjArray is a mutable ordered sequence of values.
type ObjArray struct {
	Elements []Value
}

func (a *ObjArray) Type() ObjectType { return ARRAY_OBJ }
func (a *ObjArray) Inspect() string {
	return "[" + joinInspect(a.Elements, ", ") + "]"
}

// ObjMap is a mutable string-keyed mapping that iterates keys in first
// insertion order, even after overwrites.
type ObjMap struct {
	keys    []string
	entries map[string]Value
}

func NewObjMap() *ObjMap {
	return &ObjMap{entries: make(map[string]Value)}
}

func (m *ObjMap) Type() ObjectType { return OBJECT_OBJ }

func (m *ObjMap) Inspect() string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = k + ": " + m.entries[k].Inspect()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (m *ObjMap) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set inserts or overwrites a key. An overwrite keeps the key's original
// position in iteration order.
func (m *ObjMap) Set(key string, value Value) {
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = value
}

func (m *ObjMap) Len() int {
	return len(m.keys)
}

// Keys returns the keys in first-insertion order.
func (m *ObjMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// CompiledFunction is the immutable prototype produced by compilation.
type CompiledFunction struct {
	Arity        int
	Chunk        *Chunk
	Name         string
	UpvalueCount int
}

func (f *CompiledFunction) Type() ObjectType { return FUNCTION_OBJ }
func (f *CompiledFunction) Inspect() string  { return fmt.Sprintf("<fn %s>", f.Name) }

// ObjClosure pairs a CompiledFunction with its captured upvalues; it is the
// value user code actually holds and invokes.
type ObjClosure struct {
	Function *CompiledFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() ObjectType { return CLOSURE_OBJ }
func (c *ObjClosure) Inspect() string  { return fmt.Sprintf("<fn %s>", c.Function.Name) }

// ObjUpvalue is a captured variable. While open, Location indexes the VM
// value stack; once closed, Location is -1 and Closed owns the value.
type ObjUpvalue struct {
	Location int
	Closed   Value

	// Next links the VM's open-upvalue list (sorted by location, highest
	// first) so closures capturing the same slot share one handle.
	Next *ObjUpvalue
}

// ObjClass holds a method table; methods are added by OP_METHOD after
// OP_CLASS creates the class.
type ObjClass struct {
	Name    string
	Methods map[string]*ObjClosure
	Super   *ObjClass
}

func (c *ObjClass) Type() ObjectType { return CLASS_OBJ }
func (c *ObjClass) Inspect() string  { return fmt.Sprintf("<klum %s>", c.Name) }

// findMethod resolves a method through the superclass chain.
func (c *ObjClass) findMethod(name string) (*ObjClosure, bool) {
	for k := c; k != nil; k = k.Super {
		if m, ok := k.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// ObjInstance is created by invoking a class; fields appear on first
// assignment.
type ObjInstance struct {
	Class  *ObjClass
	Fields *ObjMap
}

func (i *ObjInstance) Type() ObjectType { return INSTANCE_OBJ }
func (i *ObjInstance) Inspect() string  { return fmt.Sprintf("<%s instance>", i.Class.Name) }

// ObjBoundMethod pairs a receiver with a class method, produced by property
// access when the name resolves to a method rather than a field.
type ObjBoundMethod struct {
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Type() ObjectType { return BOUND_METHOD_OBJ }
func (b *ObjBoundMethod) Inspect() string  { return fmt.Sprintf("<fn %s>", b.Method.Function.Name) }

// NativeFunction is a host-supplied callable. Arity is advisory: the VM
// passes through whatever argument count the call site provides.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

func (n *NativeFunction) Type() ObjectType { return NATIVE_OBJ }
func (n *NativeFunction) Inspect() string  { return fmt.Sprintf("<native fn %s>", n.Name) }
