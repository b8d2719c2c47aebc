package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/mirror/classify"
)

// ConstructKind is the kind of an enclosing construct on the scope stack.
type ConstructKind string

const (
	KindModule        ConstructKind = "module"
	KindClass         ConstructKind = "class"
	KindFunction      ConstructKind = "function"
	KindAsyncFunction ConstructKind = "async_function"
)

// Frame is one entry on the scope stack.
type Frame struct {
	Kind ConstructKind
	Name string
}

// ScopeContext is the ordered stack of enclosing construct kinds plus the
// file's role. The walker pushes and pops frames as it enters and exits
// definitions; rule checks get read-only access.
type ScopeContext struct {
	role   classify.Role
	frames []Frame
}

// Role returns the role of the file being walked.
func (s *ScopeContext) Role() classify.Role {
	return s.role
}

// Depth returns the number of frames on the stack, including the module frame.
func (s *ScopeContext) Depth() int {
	return len(s.frames)
}

// Enclosing returns the innermost frame.
func (s *ScopeContext) Enclosing() Frame {
	return s.frames[len(s.frames)-1]
}

// InsideClass reports whether the innermost non-module frame is a class body.
// A method body pushes a function frame on top, so statements directly in a
// class body are distinguishable from statements inside its methods.
func (s *ScopeContext) InsideClass() bool {
	return s.Enclosing().Kind == KindClass
}

// InsideFunction reports whether any enclosing frame is a function.
func (s *ScopeContext) InsideFunction() bool {
	for _, f := range s.frames {
		if f.Kind == KindFunction || f.Kind == KindAsyncFunction {
			return true
		}
	}
	return false
}

func (s *ScopeContext) push(f Frame) {
	s.frames = append(s.frames, f)
}

func (s *ScopeContext) pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// VisitFunc is invoked for every node with the current scope.
type VisitFunc func(n *sitter.Node, scope *ScopeContext)

// Walk traverses the tree depth-first, invoking visit on every named node
// exactly once. Entering a class or function definition pushes a scope frame
// before descending into its body and pops it on exit. The walk never
// short-circuits: all nodes are visited regardless of what visit reports.
func Walk(tree *Tree, role classify.Role, visit VisitFunc) {
	scope := &ScopeContext{
		role:   role,
		frames: []Frame{{Kind: KindModule}},
	}
	walkNode(tree, tree.Root(), scope, visit)
}

func walkNode(tree *Tree, n *sitter.Node, scope *ScopeContext, visit VisitFunc) {
	visit(n, scope)

	frame, pushed := definitionFrame(tree, n)
	if pushed {
		scope.push(frame)
		defer scope.pop()
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkNode(tree, n.NamedChild(i), scope, visit)
	}
}

// definitionFrame returns the scope frame a node introduces, if any.
func definitionFrame(tree *Tree, n *sitter.Node) (Frame, bool) {
	switch n.Type() {
	case "class_definition":
		return Frame{Kind: KindClass, Name: definitionName(tree, n)}, true
	case "function_definition":
		kind := KindFunction
		if IsAsync(n) {
			kind = KindAsyncFunction
		}
		return Frame{Kind: kind, Name: definitionName(tree, n)}, true
	}
	return Frame{}, false
}

func definitionName(tree *Tree, n *sitter.Node) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return tree.Text(name)
}

// IsAsync reports whether a function_definition carries the async keyword.
func IsAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}
