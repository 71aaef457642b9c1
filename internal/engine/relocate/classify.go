package relocate

import (
	"fmt"
	"log/slog"
	"strings"

	"pyshape/internal/engine/cst"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type HintKind int

const (
	RuntimeCall HintKind = iota
	CastOperand
	AnnotationParam
	AnnotationReturn
	AnnotationVar
	ClassBaseRef
	ClassLevelAssignRHS
	DecoratorRef
	ParamDefaultRef
	ModuleLevelRef
)

var hintNames = map[HintKind]string{
	RuntimeCall:         "RuntimeCall",
	CastOperand:         "CastOperand",
	AnnotationParam:     "AnnotationParam",
	AnnotationReturn:    "AnnotationReturn",
	AnnotationVar:       "AnnotationVar",
	ClassBaseRef:        "ClassBaseRef",
	ClassLevelAssignRHS: "ClassLevelAssignRHS",
	DecoratorRef:        "DecoratorRef",
	ParamDefaultRef:     "ParamDefaultRef",
	ModuleLevelRef:      "ModuleLevelRef",
}

func (k HintKind) String() string {
	if name, ok := hintNames[k]; ok {
		return name
	}
	return fmt.Sprintf("HintKind(%d)", int(k))
}

// DefinitionTime reports whether the hinted expression runs when the
// enclosing definition is executed rather than when a function is called.
func (k HintKind) DefinitionTime() bool {
	switch k {
	case ClassBaseRef, ClassLevelAssignRHS, DecoratorRef, ParamDefaultRef, ModuleLevelRef:
		return true
	}
	return false
}

func (k HintKind) Annotation() bool {
	return k == AnnotationParam || k == AnnotationReturn || k == AnnotationVar
}

type FrameKind int

const (
	ClassFrame FrameKind = iota
	FunctionFrame
)

type Frame struct {
	Kind FrameKind
	Name string
	// Key is the dotted qualifier of this frame, unique within the module.
	Key string
}

// ScopePath lists the enclosing frames from the module root.
type ScopePath []Frame

// Function returns the key of the innermost enclosing function.
func (p ScopePath) Function() (string, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Kind == FunctionFrame {
			return p[i].Key, true
		}
	}
	return "", false
}

// Functions returns the keys of every enclosing function, innermost first.
func (p ScopePath) Functions() []string {
	var out []string
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Kind == FunctionFrame {
			out = append(out, p[i].Key)
		}
	}
	return out
}

func (p ScopePath) InClassBody() bool {
	return len(p) > 0 && p[len(p)-1].Kind == ClassFrame
}

func (p ScopePath) Key() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].Key
}

// UsageSite is one reference to an imported name.
type UsageSite struct {
	Name  string
	Scope ScopePath
	Kind  HintKind
	// Owner is the typed parameter or the function definition whose
	// annotation holds the reference; nil for other kinds.
	Owner *sitter.Node
	// Annotated is the key of the function whose signature or body carries
	// the annotation.
	Annotated string
}

// Usage is the result of one classifier traversal.
type Usage struct {
	Sites        []UsageSite
	CastAnywhere map[string]bool
	Functions    map[string]*sitter.Node
	Injectable   map[string]bool
	LocalImports map[string]map[pair]bool
	// Globals holds names read inside a function that declares them global.
	Globals map[string]bool
}

func (u *Usage) sitesByName() map[string][]UsageSite {
	out := make(map[string][]UsageSite)
	for _, s := range u.Sites {
		out[s.Name] = append(out[s.Name], s)
	}
	return out
}

type classifier struct {
	doc   *cst.Document
	idx   *Index
	usage *Usage

	frames ScopePath
	seen   map[string]int
	// bound holds the names each enclosing function, lambda or
	// comprehension binds itself; false marks a global declaration.
	bound []map[string]bool

	inAnnotation   bool
	inDecorator    bool
	inParamDefault bool
	inBases        bool
	inCast         bool

	owner     *sitter.Node
	annotated string
}

// Classify walks the module once and records a UsageSite for every
// reference to an indexed name.
func Classify(doc *cst.Document, idx *Index) *Usage {
	c := &classifier{
		doc: doc,
		idx: idx,
		usage: &Usage{
			CastAnywhere: make(map[string]bool),
			Functions:    make(map[string]*sitter.Node),
			Injectable:   make(map[string]bool),
			LocalImports: make(map[string]map[pair]bool),
			Globals:      make(map[string]bool),
		},
		seen: make(map[string]int),
	}
	c.visitSuite(doc.Root)
	return c.usage
}

func (c *classifier) visitSuite(container *sitter.Node) {
	for _, stmt := range cst.Code(container) {
		c.visitStatement(stmt)
	}
}

func (c *classifier) visitStatement(n *sitter.Node) {
	switch n.Kind() {
	case "future_import_statement", "import_statement":
		return
	case "import_from_statement":
		c.recordLocalImport(n)
	case "decorated_definition":
		c.inDecorator = true
		for _, dec := range cst.Decorators(n) {
			for _, expr := range cst.Code(dec) {
				c.walkExpr(expr)
			}
		}
		c.inDecorator = false
		c.visitStatement(cst.Definition(n))
	case "function_definition":
		c.visitFunction(n)
	case "class_definition":
		c.visitClass(n)
	case "if_statement":
		if len(c.frames) == 0 && c.doc.IsTypeCheckingGuard(n) {
			return
		}
		c.visitCompound(n)
	case "expression_statement":
		c.visitExpressionStatement(n)
	case "global_statement", "nonlocal_statement", "pass_statement", "break_statement", "continue_statement":
		return
	default:
		c.visitCompound(n)
	}
}

// visitCompound handles statements with nested blocks and plain simple
// statements alike.
func (c *classifier) visitCompound(n *sitter.Node) {
	var loopTarget *sitter.Node
	if n.Kind() == "for_statement" {
		loopTarget = n.ChildByFieldName("left")
	}
	for _, child := range cst.Code(n) {
		if loopTarget != nil && cst.Same(child, loopTarget) {
			continue
		}
		switch {
		case child.Kind() == "block":
			c.visitSuite(child)
		case strings.HasSuffix(child.Kind(), "_clause"):
			c.visitCompound(child)
		default:
			c.walkExpr(child)
		}
	}
}

func (c *classifier) visitExpressionStatement(n *sitter.Node) {
	for _, child := range cst.Code(n) {
		switch child.Kind() {
		case "assignment":
			c.visitAssignment(child)
		case "augmented_assignment":
			c.walkTarget(child.ChildByFieldName("left"))
			c.walkExpr(child.ChildByFieldName("right"))
		default:
			c.walkExpr(child)
		}
	}
}

func (c *classifier) visitAssignment(asg *sitter.Node) {
	c.walkTarget(asg.ChildByFieldName("left"))
	if typ := asg.ChildByFieldName("type"); typ != nil {
		fnKey, _ := c.frames.Function()
		c.walkAnnotation(typ, nil, fnKey)
	}
	right := asg.ChildByFieldName("right")
	if right == nil {
		return
	}
	if right.Kind() == "assignment" {
		c.visitAssignment(right)
		return
	}
	c.walkExpr(right)
}

// walkTarget records reads inside an assignment target. Bare names are
// bindings, not reads.
func (c *classifier) walkTarget(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier":
		return
	case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern":
		for _, child := range cst.Code(n) {
			c.walkTarget(child)
		}
	default:
		c.walkExpr(n)
	}
}

func (c *classifier) visitFunction(fn *sitter.Node) {
	name := c.doc.Text(fn.ChildByFieldName("name"))
	key := c.frameKey(name)

	if params := fn.ChildByFieldName("parameters"); params != nil {
		for _, param := range cst.Code(params) {
			c.visitParameter(param, key)
		}
	}
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		c.walkAnnotation(ret, fn, key)
	}

	c.usage.Functions[key] = fn
	body := c.doc.BodySuite(fn)
	c.usage.Injectable[key] = body != nil && !body.Inline && len(body.Items) > 0

	c.frames = append(c.frames, Frame{Kind: FunctionFrame, Name: name, Key: key})
	c.bound = append(c.bound, c.functionLocals(fn))
	c.visitSuite(cst.Body(fn))
	c.bound = c.bound[:len(c.bound)-1]
	c.frames = c.frames[:len(c.frames)-1]
}

// shadowed reports whether name resolves to a binding of an enclosing
// function rather than to the module-level import.
func (c *classifier) shadowed(name string) bool {
	local, _ := c.lookup(name)
	return local
}

// lookup returns the innermost entry for name and whether one exists.
func (c *classifier) lookup(name string) (local, found bool) {
	for i := len(c.bound) - 1; i >= 0; i-- {
		if local, ok := c.bound[i][name]; ok {
			return local, true
		}
	}
	return false, false
}

// functionLocals collects the names fn binds: parameters, assignment and
// loop targets, with/except aliases, nested definitions and local imports
// of a different origin. Names declared global are marked false; nonlocal
// names resolve in the enclosing function.
func (c *classifier) functionLocals(fn *sitter.Node) map[string]bool {
	bound := make(map[string]bool)
	if params := fn.ChildByFieldName("parameters"); params != nil {
		c.bindParameters(params, bound)
	}
	var declared, nonlocal []string
	cst.Walk(cst.Body(fn), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition", "class_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				bound[c.doc.Text(name)] = true
			}
			return false
		case "lambda", "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
			return false
		case "global_statement":
			for _, id := range cst.Code(n) {
				declared = append(declared, c.doc.Text(id))
			}
			return false
		case "nonlocal_statement":
			for _, id := range cst.Code(n) {
				nonlocal = append(nonlocal, c.doc.Text(id))
			}
			return false
		case "assignment", "augmented_assignment", "for_statement":
			c.bindTarget(n.ChildByFieldName("left"), bound)
		case "named_expression":
			c.bindTarget(n.ChildByFieldName("name"), bound)
		case "as_pattern", "except_clause":
			c.bindTarget(n.ChildByFieldName("alias"), bound)
		case "as_pattern_target":
			c.bindTarget(n, bound)
		case "import_statement":
			for _, name := range cst.Code(n) {
				switch name.Kind() {
				case "dotted_name":
					bound[strings.SplitN(compact(c.doc.Text(name)), ".", 2)[0]] = true
				case "aliased_import":
					bound[c.doc.Text(name.ChildByFieldName("alias"))] = true
				}
			}
			return false
		case "import_from_statement":
			if stmt := parseFromImport(c.doc, n); stmt != nil {
				for _, name := range stmt.Names {
					if b := c.idx.Bindings[name.Local()]; b == nil || b.pair() != (pair{stmt.Module, name.String()}) {
						bound[name.Local()] = true
					}
				}
			}
			return false
		}
		return true
	})
	for _, name := range nonlocal {
		delete(bound, name)
	}
	for _, name := range declared {
		bound[name] = false
	}
	return bound
}

func (c *classifier) bindParameters(params *sitter.Node, bound map[string]bool) {
	for _, p := range cst.Code(params) {
		switch p.Kind() {
		case "identifier":
			bound[c.doc.Text(p)] = true
		case "default_parameter", "typed_default_parameter":
			c.bindTarget(p.ChildByFieldName("name"), bound)
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			for _, child := range cst.Code(p) {
				if cst.Same(child, p.ChildByFieldName("type")) {
					continue
				}
				c.bindTarget(child, bound)
			}
		}
	}
}

// bindTarget adds the bare names of an assignment target.
func (c *classifier) bindTarget(n *sitter.Node, bound map[string]bool) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier":
		bound[c.doc.Text(n)] = true
	case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern", "dictionary_splat_pattern",
		"as_pattern_target", "parenthesized_expression", "tuple", "list", "expression_list":
		for _, child := range cst.Code(n) {
			c.bindTarget(child, bound)
		}
	}
}

func (c *classifier) visitParameter(param *sitter.Node, fnKey string) {
	switch param.Kind() {
	case "typed_parameter":
		c.walkAnnotation(param.ChildByFieldName("type"), param, fnKey)
	case "default_parameter":
		c.walkDefault(param.ChildByFieldName("value"))
	case "typed_default_parameter":
		c.walkAnnotation(param.ChildByFieldName("type"), param, fnKey)
		c.walkDefault(param.ChildByFieldName("value"))
	}
}

func (c *classifier) walkDefault(value *sitter.Node) {
	if value == nil {
		return
	}
	c.inParamDefault = true
	c.walkExpr(value)
	c.inParamDefault = false
}

func (c *classifier) visitClass(cls *sitter.Node) {
	name := c.doc.Text(cls.ChildByFieldName("name"))
	key := c.frameKey(name)
	if bases := cls.ChildByFieldName("superclasses"); bases != nil {
		c.inBases = true
		c.walkExpr(bases)
		c.inBases = false
	}
	c.frames = append(c.frames, Frame{Kind: ClassFrame, Name: name, Key: key})
	c.visitSuite(cst.Body(cls))
	c.frames = c.frames[:len(c.frames)-1]
}

// frameKey qualifies name under the current scope. Repeated definitions of
// one name, such as property accessors, get an ordinal suffix.
func (c *classifier) frameKey(name string) string {
	key := name
	if parent := c.frames.Key(); parent != "" {
		key = parent + "." + name
	}
	c.seen[key]++
	if n := c.seen[key]; n > 1 {
		key = fmt.Sprintf("%s@%d", key, n)
	}
	return key
}

func (c *classifier) recordLocalImport(n *sitter.Node) {
	fnKey, ok := c.frames.Function()
	if !ok {
		return
	}
	stmt := parseFromImport(c.doc, n)
	if stmt == nil {
		return
	}
	pairs := c.usage.LocalImports[fnKey]
	if pairs == nil {
		pairs = make(map[pair]bool)
		c.usage.LocalImports[fnKey] = pairs
	}
	for _, name := range stmt.Names {
		pairs[pair{stmt.Module, name.String()}] = true
	}
}

// walkAnnotation records annotation references. owner is the typed
// parameter or function whose annotation this is, nil for variables;
// annotated is the key of the function carrying the annotation.
func (c *classifier) walkAnnotation(typ, owner *sitter.Node, annotated string) {
	if typ == nil {
		return
	}
	c.owner, c.annotated = owner, annotated
	c.inAnnotation = true
	c.walkExpr(typ)
	c.inAnnotation = false
	c.owner, c.annotated = nil, ""
}

// currentKind derives the hint for a bare reference from the context flags
// and the frame stack.
func (c *classifier) currentKind() HintKind {
	switch {
	case c.inCast:
		return CastOperand
	case c.inAnnotation:
		if c.owner == nil {
			return AnnotationVar
		}
		if c.owner.Kind() == "function_definition" {
			return AnnotationReturn
		}
		return AnnotationParam
	case c.inDecorator:
		return DecoratorRef
	case c.inParamDefault:
		return ParamDefaultRef
	case c.inBases:
		return ClassBaseRef
	}
	if len(c.frames) == 0 {
		return ModuleLevelRef
	}
	if c.frames.InClassBody() {
		return ClassLevelAssignRHS
	}
	return RuntimeCall
}

func (c *classifier) walkExpr(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier":
		name := c.doc.Text(n)
		local, found := c.lookup(name)
		if local {
			return
		}
		if found {
			c.usage.Globals[name] = true
		}
		c.record(name, c.currentKind())
	case "attribute":
		c.walkExpr(n.ChildByFieldName("object"))
	case "keyword_argument":
		c.walkExpr(n.ChildByFieldName("value"))
	case "member_type":
		if parts := cst.Code(n); len(parts) > 0 {
			c.walkExpr(parts[0])
		}
	case "lambda":
		scope := make(map[string]bool)
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range cst.Code(params) {
				if v := p.ChildByFieldName("value"); v != nil {
					c.walkExpr(v)
				}
			}
			c.bindParameters(params, scope)
		}
		c.bound = append(c.bound, scope)
		c.walkExpr(n.ChildByFieldName("body"))
		c.bound = c.bound[:len(c.bound)-1]
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		scope := make(map[string]bool)
		for _, child := range cst.Code(n) {
			if child.Kind() == "for_in_clause" {
				c.bindTarget(child.ChildByFieldName("left"), scope)
			}
		}
		c.bound = append(c.bound, scope)
		for _, child := range cst.Code(n) {
			c.walkExpr(child)
		}
		c.bound = c.bound[:len(c.bound)-1]
	case "call":
		if c.isCast(n) {
			c.visitCast(n)
			return
		}
		for _, child := range cst.Code(n) {
			c.walkExpr(child)
		}
	case "string":
		if c.inAnnotation || c.inCast {
			c.walkForwardRef(n)
			return
		}
		for _, child := range cst.Code(n) {
			if child.Kind() == "interpolation" {
				c.walkExpr(child)
			}
		}
	case "keyword_identifier", "comment", "string_content", "escape_sequence", "as_pattern_target":
		return
	default:
		for _, child := range cst.Code(n) {
			c.walkExpr(child)
		}
	}
}

func (c *classifier) isCast(call *sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	switch fn.Kind() {
	case "identifier":
		return c.doc.Text(fn) == "cast"
	case "attribute":
		return c.doc.Text(fn.ChildByFieldName("attribute")) == "cast"
	}
	return false
}

// visitCast scans the type operand of cast(T, value) as CastOperand and the
// rest of the call normally.
func (c *classifier) visitCast(call *sitter.Node) {
	c.walkExpr(call.ChildByFieldName("function"))
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "argument_list" {
		c.walkExpr(args)
		return
	}
	operandSeen := false
	for _, arg := range cst.Code(args) {
		isOperand := false
		switch {
		case arg.Kind() == "keyword_argument":
			isOperand = c.doc.Text(arg.ChildByFieldName("name")) == "typ"
		case !operandSeen:
			isOperand = true
		}
		if !isOperand {
			c.walkExpr(arg)
			continue
		}
		operandSeen = true
		prev := c.inCast
		c.inCast = true
		c.walkExpr(arg)
		c.inCast = prev
	}
}

// walkForwardRef re-parses a string forward reference as an expression. A
// string that does not parse is skipped.
func (c *classifier) walkForwardRef(str *sitter.Node) {
	text, ok := c.doc.StringLiteral(str)
	if !ok {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	sub, expr, err := cst.ParseExpression(text)
	if err != nil {
		slog.Debug("skipping forward reference", "text", text, "error", err)
		return
	}
	defer sub.Close()

	outer := c.doc
	c.doc = sub
	c.walkExpr(expr)
	c.doc = outer
}

func (c *classifier) record(name string, kind HintKind) {
	if _, ok := c.idx.Bindings[name]; !ok {
		return
	}
	scope := make(ScopePath, len(c.frames))
	copy(scope, c.frames)
	site := UsageSite{Name: name, Scope: scope, Kind: kind}
	if kind.Annotation() {
		site.Owner = c.owner
		site.Annotated = c.annotated
	}
	c.usage.Sites = append(c.usage.Sites, site)
	if kind == CastOperand {
		c.usage.CastAnywhere[name] = true
	}
}
