package analysis

import (
	"log/slog"

	"github.com/mabhi256/hotscope/internal/classfile"
	"github.com/mabhi256/hotscope/internal/logging"
)

type scopeNode struct {
	typ      ScopeType
	group    GroupKey
	hasher   *Hasher
	children []int
	deps     []MethodId
}

// methodContext is the mutable state of one streaming pass over a method.
// Nodes live in an arena and reference their children by index; only the
// frozen ScopeInfo tree leaves the package.
type methodContext struct {
	id     MethodId
	nodes  []scopeNode
	stack  []int
	logger *slog.Logger
}

func newMethodContext(id MethodId, group GroupKey, logger *slog.Logger) *methodContext {
	ctx := &methodContext{id: id, logger: logger}
	ctx.stack = append(ctx.stack, ctx.newNode(ScopeMethod, group))
	return ctx
}

func (ctx *methodContext) newNode(typ ScopeType, group GroupKey) int {
	ctx.nodes = append(ctx.nodes, scopeNode{typ: typ, group: group, hasher: NewHasher()})
	return len(ctx.nodes) - 1
}

func (ctx *methodContext) current() *scopeNode {
	return &ctx.nodes[ctx.stack[len(ctx.stack)-1]]
}

func (ctx *methodContext) push(typ ScopeType, group GroupKey) {
	ctx.stack = append(ctx.stack, ctx.newNode(typ, group))
}

// pop closes the innermost scope and attaches it to its parent. The method
// root is never popped.
func (ctx *methodContext) pop(expected ScopeType) {
	if len(ctx.stack) <= 1 {
		ctx.logger.Warn("group end without open group",
			"method", ctx.id.String(), "expected", expected.String())
		return
	}

	top := ctx.stack[len(ctx.stack)-1]
	if actual := ctx.nodes[top].typ; actual != expected {
		ctx.logger.Warn("mismatched group end",
			"method", ctx.id.String(),
			"expected", expected.String(),
			"actual", actual.String(),
			"group", ctx.nodes[top].group.String())
	}
	ctx.closeTop()
}

func (ctx *methodContext) closeTop() {
	top := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	parent := ctx.current()
	parent.children = append(parent.children, top)
}

func (ctx *methodContext) addDependency(id MethodId) {
	n := ctx.current()
	n.deps = append(n.deps, id)
}

// finish force-closes open scopes and freezes the tree
func (ctx *methodContext) finish() *ScopeInfo {
	if open := len(ctx.stack) - 1; open > 0 {
		ctx.logger.Debug("closing unterminated groups", "method", ctx.id.String(), "open", open)
	}
	for len(ctx.stack) > 1 {
		ctx.closeTop()
	}
	return ctx.freeze(ctx.stack[0], NoGroup)
}

func (ctx *methodContext) freeze(i int, parent GroupKey) *ScopeInfo {
	n := &ctx.nodes[i]
	info := &ScopeInfo{
		MethodId:    ctx.id,
		Type:        n.typ,
		Group:       n.group,
		ParentGroup: parent,
		Hash:        n.hasher.Sum64(),
	}
	if len(n.deps) > 0 {
		info.Dependencies = append([]MethodId(nil), n.deps...)
	}
	if len(n.children) > 0 {
		info.Children = make([]*ScopeInfo, len(n.children))
		for k, c := range n.children {
			info.Children[k] = ctx.freeze(c, n.group)
		}
	}
	return info
}

// Analyzer builds scope trees from decoded classes. It holds no mutable
// state and may be shared between goroutines.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer; a nil logger discards diagnostics
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

func (a *Analyzer) Config() Config {
	return a.cfg
}

// AnalyzeBytes decodes a class file and analyzes it
func (a *Analyzer) AnalyzeBytes(data []byte) (*RuntimeInfo, error) {
	class, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeClass(class), nil
}

// AnalyzeClass builds one scope tree per method. Ignored classes and
// methods without code yield an empty result.
func (a *Analyzer) AnalyzeClass(class *classfile.Class) *RuntimeInfo {
	if a.cfg.Ignored(class.Name) {
		return NewRuntimeInfo(nil)
	}
	scopes := make([]*ScopeInfo, 0, len(class.Methods))
	for _, m := range class.Methods {
		if s := a.AnalyzeMethod(class.Name, m); s != nil {
			scopes = append(scopes, s)
		}
	}
	return NewRuntimeInfo(scopes)
}

// AnalyzeMethod runs a single pass over a method body. Every instruction
// is hashed into the innermost open scope before group markers and
// dependencies are tracked.
func (a *Analyzer) AnalyzeMethod(classId string, m *classfile.Method) *ScopeInfo {
	if !m.HasCode || a.cfg.Ignored(classId) {
		return nil
	}

	id := MethodId{ClassId: classId, Name: m.Name, Descriptor: m.Descriptor}
	root := NoGroup
	if key, ok := m.IntAnnotationValue(a.cfg.FunctionKeyAnnotation, "key"); ok {
		root = Group(key)
	}
	ctx := newMethodContext(id, root, a.logger)

	for i, insn := range m.Instructions {
		if insn.Opcode() < 0 {
			continue
		}
		ctx.current().hasher.Instruction(insn)
		a.trackGroup(ctx, m.Instructions, i)
		a.trackDependency(ctx, insn)
	}
	return ctx.finish()
}
