package scene

import (
	"errors"
	"slices"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// Node is an element of the scene hierarchy. A node owns its children;
// the parent link is a non-owning back reference maintained by AddChild
// and RemoveChild.
type Node struct {
	Name string
	// Transform is relative to the parent node.
	Transform   math.Mat4
	MeshIndices []int
	Metadata    Metadata

	parent   *Node
	children []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: math.Identity()}
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) HasChildren() bool { return len(n.children) > 0 }

func (n *Node) HasMeshes() bool { return len(n.MeshIndices) > 0 }

// AddChild appends c. A node can have only one parent and the hierarchy
// must stay acyclic.
func (n *Node) AddChild(c *Node) error {
	if c == nil {
		return errors.New("scene: nil child node")
	}
	if c.parent != nil {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "node %q already has parent %q", c.Name, c.parent.Name)
	}
	for p := n; p != nil; p = p.parent {
		if p == c {
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "adding %q under %q creates a cycle", c.Name, n.Name)
		}
	}
	c.parent = n
	n.children = append(n.children, c)
	return nil
}

// RemoveChild detaches c and reports whether it was a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	i := slices.Index(n.children, c)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	c.parent = nil
	return true
}

// Walk visits the subtree rooted at n in pre-order. Returning false from fn
// skips the children of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	type item struct {
		node  *Node
		depth int
	}
	stack := []item{{n, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.node, it.depth) {
			continue
		}
		for i := len(it.node.children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.node.children[i], it.depth + 1})
		}
	}
}

// FindNode returns the first node named name in pre-order, or nil.
func (n *Node) FindNode(name string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}

// GlobalTransform composes the transforms from the root down to n.
func (n *Node) GlobalTransform() math.Mat4 {
	m := n.Transform
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Mul(m)
	}
	return m
}

// Depth returns the number of ancestors of n.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (n *Node) nativeLayout() *native.Layout { return nodeL.layout }

// toNative encodes the subtree iteratively. Each child struct is linked
// into its parent's array before its own fields are written.
func (n *Node) toNative(tc *Transcoder, at native.Ptr, b []byte) error {
	f := nodeL
	type item struct {
		node *Node
		at   native.Ptr
		b    []byte
	}
	stack := []item{{n, at, b}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := it.node.writeFields(tc, it.b); err != nil {
			return native.AtPath(err, it.node.Name)
		}
		count := uint32(len(it.node.children))
		if count == 0 {
			continue
		}
		arr, err := native.AllocArray(tc.heap, count, native.PtrSize, native.PtrSize)
		if err != nil {
			return err
		}
		putPtr(it.b, f.children, arr)
		putU32(it.b, f.numChildren, count)
		slots, err := tc.heap.Span(arr, count*native.PtrSize)
		if err != nil {
			return err
		}
		for i, c := range it.node.children {
			cp, err := tc.heap.Alloc(f.layout.Size(), f.layout.Align())
			if err != nil {
				return err
			}
			putPtr(slots, uint32(i)*native.PtrSize, cp)
			cb, err := tc.heap.Span(cp, f.layout.Size())
			if err != nil {
				return err
			}
			putPtr(cb, f.parent, it.at)
			stack = append(stack, item{c, cp, cb})
		}
	}
	return nil
}

func (n *Node) writeFields(tc *Transcoder, b []byte) error {
	f := nodeL
	if err := tc.putString(b, f.name, n.Name); err != nil {
		return native.AtPath(err, "name")
	}
	native.Mat4.Put(b[f.transformation:], n.Transform)
	meshes := make([]uint32, len(n.MeshIndices))
	for i, m := range n.MeshIndices {
		if m < 0 {
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "negative mesh index %d", m)
		}
		meshes[i] = uint32(m)
	}
	if err := writeValues(tc, b, f.meshes, native.U32, meshes); err != nil {
		return err
	}
	putU32(b, f.numMeshes, uint32(len(meshes)))
	if n.Metadata.Len() > 0 {
		md, err := ToNative(tc, &n.Metadata)
		if err != nil {
			return native.AtPath(err, "metadata")
		}
		putPtr(b, f.metadata, md)
	}
	return nil
}

func (n *Node) fromNative(tc *Transcoder, b []byte) error {
	f := nodeL
	type item struct {
		node  *Node
		b     []byte
		depth int
	}
	*n = Node{}
	visited := make(map[native.Ptr]struct{})
	stack := []item{{n, b, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.depth > tc.maxDepth {
			return native.Corrupt("node hierarchy deeper than %d", tc.maxDepth)
		}
		if err := it.node.readFields(tc, it.b); err != nil {
			return native.AtPath(err, it.node.Name)
		}
		arr, count, err := pair(it.b, f.numChildren, f.children)
		if err != nil {
			return native.AtPath(native.AtPath(err, "children"), it.node.Name)
		}
		ptrs, err := native.ReadArray(tc.heap, native.Pointer, arr, count)
		if err != nil {
			return native.AtPath(native.AtPath(err, "children"), it.node.Name)
		}
		if count > 0 {
			it.node.children = make([]*Node, count)
		}
		for i, cp := range ptrs {
			if _, seen := visited[cp]; seen || cp == native.Null {
				return native.AtPath(native.Corrupt("child %d at 0x%x is null or shared", i, uint32(cp)), it.node.Name)
			}
			visited[cp] = struct{}{}
			cb, err := tc.span(cp, f.layout)
			if err != nil {
				return native.AtPath(err, it.node.Name)
			}
			c := &Node{parent: it.node}
			it.node.children[i] = c
			stack = append(stack, item{c, cb, it.depth + 1})
		}
	}
	return nil
}

func (n *Node) readFields(tc *Transcoder, b []byte) error {
	f := nodeL
	name, err := tc.getString(b, f.name)
	if err != nil {
		return native.AtPath(err, "name")
	}
	n.Name = name
	n.Transform = native.Mat4.Decode(b[f.transformation:])
	meshes, err := readValues(tc, b, f.meshes, native.U32, u32At(b, f.numMeshes), "meshes")
	if err != nil {
		return err
	}
	for _, m := range meshes {
		n.MeshIndices = append(n.MeshIndices, int(m))
	}
	if p := ptrAt(b, f.metadata); p != native.Null {
		if err := DecodeInto(tc, p, &n.Metadata); err != nil {
			return native.AtPath(err, "metadata")
		}
	}
	return nil
}

// freeNative releases the subtree below b. Child structs are freed here;
// the struct b itself belongs to the caller.
func (n *Node) freeNative(tc *Transcoder, b []byte) error {
	f := nodeL
	type item struct {
		at native.Ptr
		b  []byte
	}
	var errs []error
	visited := make(map[native.Ptr]struct{})
	stack := []item{{native.Null, b}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		arr, count := ptrAt(it.b, f.children), u32At(it.b, f.numChildren)
		if arr != native.Null {
			ptrs, err := native.ReadArray(tc.heap, native.Pointer, arr, count)
			errs = append(errs, err)
			for _, cp := range ptrs {
				if _, seen := visited[cp]; seen || cp == native.Null {
					continue
				}
				visited[cp] = struct{}{}
				cb, err := tc.span(cp, f.layout)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				stack = append(stack, item{cp, cb})
			}
		}
		errs = append(errs,
			freeAt(tc, it.b, f.children),
			freeAt(tc, it.b, f.meshes),
			FreeNative[Metadata](tc, ptrAt(it.b, f.metadata), true),
		)
		if it.at != native.Null {
			errs = append(errs, tc.heap.Free(it.at))
		}
	}
	return errors.Join(errs...)
}
