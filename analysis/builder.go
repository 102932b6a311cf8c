package analysis

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// job is one unit of work on the builder's explicit stack: visit node in
// scope sc. optional marks whether node sits inside an if/while/for/try/
// except body, which suppresses any del found under it. isTarget marks that
// node is an assignment/for/comprehension target — an identifier found there
// is a set, not a read.
type job struct {
	node     sitter.Node
	sc       *scope
	optional bool
	isTarget bool
}

// builder walks a parsed tree-sitter Python tree and produces its scope
// tree. The walk is iterative (an explicit stack, not recursion) so a
// pathologically deep source file cannot blow the Go call stack.
type builder struct {
	src    []byte
	stack  []job
	scopes []*scope
}

func (b *builder) text(n sitter.Node) string {
	return string(b.src[n.StartByte():n.EndByte()])
}

func (b *builder) push(j job) {
	b.stack = append(b.stack, j)
}

func (b *builder) pushChildren(n sitter.Node, sc *scope, optional bool) {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		b.push(job{node: n.NamedChild(i), sc: sc, optional: optional})
	}
}

// run builds and returns the module-level (root) scope for root.
func (b *builder) run(root sitter.Node) *scope {
	rootScope := newScope(nil)
	b.scopes = append(b.scopes, rootScope)
	b.push(job{node: root, sc: rootScope})

	for len(b.stack) > 0 {
		j := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.step(j)
	}
	return rootScope
}

func (b *builder) step(j job) {
	if j.isTarget {
		b.bindTarget(j.node, j.sc, j.optional)
		return
	}

	switch j.node.Type() {
	case "function_definition":
		b.visitFunctionDefinition(j)
	case "class_definition":
		b.visitClassDefinition(j)
	case "lambda":
		b.visitLambda(j)
	case "assignment":
		b.visitAssignment(j)
	case "augmented_assignment":
		b.visitAugmentedAssignment(j)
	case "for_statement":
		b.visitForStatement(j)
	case "for_in_clause":
		b.visitForInClause(j)
	case "while_statement":
		b.visitWhileStatement(j)
	case "if_statement", "elif_clause":
		b.visitIfLike(j)
	case "else_clause":
		b.visitElseClause(j)
	case "try_statement":
		b.visitTryStatement(j)
	case "except_clause", "except_group_clause":
		b.visitExceptClause(j)
	case "finally_clause":
		b.visitFinallyClause(j)
	case "with_statement":
		b.visitWithStatement(j)
	case "del_statement":
		b.visitDelStatement(j)
	case "global_statement", "nonlocal_statement":
		// The original analyzer never descends into these either: a plain
		// ast.Global/ast.Nonlocal node exposes its names as strings, not
		// ast.Name children, so it is structurally invisible to the walk.
	case "attribute":
		b.visitAttribute(j)
	case "identifier":
		j.sc.record(b.text(j.node), read)
	default:
		b.pushChildren(j.node, j.sc, j.optional)
	}
}

func (b *builder) visitFunctionDefinition(j job) {
	if name := j.node.ChildByFieldName("name"); !name.IsNull() {
		j.sc.record(b.text(name), set)
	}
	child := newScope(j.sc)
	b.scopes = append(b.scopes, child)

	if params := j.node.ChildByFieldName("parameters"); !params.IsNull() {
		b.bindParameters(params, child, j.sc, j.optional)
	}
	if rt := j.node.ChildByFieldName("return_type"); !rt.IsNull() {
		b.push(job{node: rt, sc: j.sc, optional: j.optional})
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: child})
	}
}

func (b *builder) visitClassDefinition(j job) {
	if name := j.node.ChildByFieldName("name"); !name.IsNull() {
		j.sc.record(b.text(name), set)
	}
	child := newScope(j.sc)
	child.isClass = true
	b.scopes = append(b.scopes, child)

	if supers := j.node.ChildByFieldName("superclasses"); !supers.IsNull() {
		b.push(job{node: supers, sc: j.sc, optional: j.optional})
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: child})
	}
}

// visitLambda binds lambda parameters into the enclosing scope: unlike def,
// a lambda does not introduce a new scope here (only function and class
// definitions do, per the scope-tree rule), so its parameters shadow within
// the same scope they're declared in.
func (b *builder) visitLambda(j job) {
	if params := j.node.ChildByFieldName("parameters"); !params.IsNull() {
		b.bindParameters(params, j.sc, j.sc, j.optional)
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: j.optional})
	}
}

// visitAssignment pushes the target first so that, the stack being LIFO,
// the right-hand side is walked (and its reads recorded) before the target
// is bound — `x = x + 1` reads x before it sets it.
func (b *builder) visitAssignment(j job) {
	if left := j.node.ChildByFieldName("left"); !left.IsNull() {
		b.push(job{node: left, sc: j.sc, optional: j.optional, isTarget: true})
	}
	if typ := j.node.ChildByFieldName("type"); !typ.IsNull() {
		b.push(job{node: typ, sc: j.sc, optional: j.optional})
	}
	if right := j.node.ChildByFieldName("right"); !right.IsNull() {
		b.push(job{node: right, sc: j.sc, optional: j.optional})
	}
}

// visitAugmentedAssignment handles `x += 1`-shaped statements: a simple
// identifier target is both read (the old value) and set (the new one); an
// attribute or subscript target only reads whatever it addresses.
func (b *builder) visitAugmentedAssignment(j job) {
	if right := j.node.ChildByFieldName("right"); !right.IsNull() {
		b.push(job{node: right, sc: j.sc, optional: j.optional})
	}
	left := j.node.ChildByFieldName("left")
	if left.IsNull() {
		return
	}
	if left.Type() == "identifier" {
		name := b.text(left)
		j.sc.record(name, read)
		j.sc.record(name, set)
		return
	}
	b.push(job{node: left, sc: j.sc, optional: j.optional})
}

func (b *builder) visitForStatement(j job) {
	if alt := j.node.ChildByFieldName("alternative"); !alt.IsNull() {
		b.push(job{node: alt, sc: j.sc, optional: true})
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: true})
	}
	if left := j.node.ChildByFieldName("left"); !left.IsNull() {
		b.push(job{node: left, sc: j.sc, optional: j.optional, isTarget: true})
	}
	if right := j.node.ChildByFieldName("right"); !right.IsNull() {
		b.push(job{node: right, sc: j.sc, optional: j.optional})
	}
}

// visitForInClause handles the `for x in xs` clause of a comprehension or
// generator expression, which (per the same no-new-scope rule) binds x into
// the scope the comprehension itself sits in.
func (b *builder) visitForInClause(j job) {
	if right := j.node.ChildByFieldName("right"); !right.IsNull() {
		b.push(job{node: right, sc: j.sc, optional: j.optional})
	}
	if left := j.node.ChildByFieldName("left"); !left.IsNull() {
		b.push(job{node: left, sc: j.sc, optional: j.optional, isTarget: true})
	}
}

func (b *builder) visitWhileStatement(j job) {
	if alt := j.node.ChildByFieldName("alternative"); !alt.IsNull() {
		b.push(job{node: alt, sc: j.sc, optional: true})
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: true})
	}
	if cond := j.node.ChildByFieldName("condition"); !cond.IsNull() {
		b.push(job{node: cond, sc: j.sc, optional: j.optional})
	}
}

func (b *builder) visitIfLike(j job) {
	if alt := j.node.ChildByFieldName("alternative"); !alt.IsNull() {
		b.push(job{node: alt, sc: j.sc, optional: true})
	}
	if cons := j.node.ChildByFieldName("consequence"); !cons.IsNull() {
		b.push(job{node: cons, sc: j.sc, optional: true})
	}
	if cond := j.node.ChildByFieldName("condition"); !cond.IsNull() {
		b.push(job{node: cond, sc: j.sc, optional: j.optional})
	}
}

func (b *builder) visitElseClause(j job) {
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: true})
		return
	}
	b.pushChildren(j.node, j.sc, true)
}

func (b *builder) visitTryStatement(j job) {
	for i := int(j.node.NamedChildCount()) - 1; i >= 0; i-- {
		c := j.node.NamedChild(i)
		switch c.Type() {
		case "except_clause", "except_group_clause", "else_clause":
			b.push(job{node: c, sc: j.sc, optional: true})
		case "finally_clause":
			// finally is never optional, even though its enclosing try is.
			b.push(job{node: c, sc: j.sc, optional: false})
		}
	}
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: true})
	}
}

// visitExceptClause handles both `except E:` and `except E as name:` shapes.
// tree-sitter-python represents the latter either as two plain children
// (the type expression, then an identifier) or as a single as_pattern child
// wrapping both; the block is always the last named child.
func (b *builder) visitExceptClause(j job) {
	n := int(j.node.NamedChildCount())
	if n == 0 {
		return
	}
	body := j.node.NamedChild(n - 1)
	b.push(job{node: body, sc: j.sc, optional: true})
	if n == 1 {
		return
	}

	first := j.node.NamedChild(0)
	if first.Type() == "as_pattern" {
		if val := first.NamedChild(0); !val.IsNull() {
			b.push(job{node: val, sc: j.sc, optional: j.optional})
		}
		if alias := first.ChildByFieldName("alias"); !alias.IsNull() {
			b.bindAsTarget(alias, j.sc)
		} else if first.NamedChildCount() > 1 {
			b.bindAsTarget(first.NamedChild(1), j.sc)
		}
		return
	}

	b.push(job{node: first, sc: j.sc, optional: j.optional})
	if n >= 3 {
		b.bindAsTarget(j.node.NamedChild(1), j.sc)
	}
}

func (b *builder) visitFinallyClause(j job) {
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: j.optional})
		return
	}
	b.pushChildren(j.node, j.sc, j.optional)
}

func (b *builder) visitWithStatement(j job) {
	if body := j.node.ChildByFieldName("body"); !body.IsNull() {
		b.push(job{node: body, sc: j.sc, optional: j.optional})
	}
	for _, item := range collectWithItems(j.node) {
		b.bindWithItem(item, j.sc, j.optional)
	}
}

func collectWithItems(n sitter.Node) []sitter.Node {
	var items []sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "with_item":
			items = append(items, c)
		case "with_clause":
			items = append(items, collectWithItems(c)...)
		}
	}
	return items
}

// bindWithItem handles a single `expr` or `expr as target` item: the target
// leaks into the enclosing scope, same as a for-loop target.
func (b *builder) bindWithItem(item sitter.Node, sc *scope, optional bool) {
	if item.NamedChildCount() == 0 {
		return
	}
	inner := item.NamedChild(0)
	if inner.Type() != "as_pattern" {
		b.push(job{node: inner, sc: sc, optional: optional})
		return
	}
	if val := inner.NamedChild(0); !val.IsNull() {
		b.push(job{node: val, sc: sc, optional: optional})
	}
	if alias := inner.ChildByFieldName("alias"); !alias.IsNull() {
		b.bindAsTarget(alias, sc)
	} else if inner.NamedChildCount() > 1 {
		b.bindAsTarget(inner.NamedChild(1), sc)
	}
}

// bindAsTarget records the name(s) bound by a with/except "as" clause.
func (b *builder) bindAsTarget(n sitter.Node, sc *scope) {
	switch n.Type() {
	case "identifier":
		sc.record(b.text(n), set)
	case "as_pattern_target":
		if n.NamedChildCount() > 0 {
			b.bindAsTarget(n.NamedChild(0), sc)
		}
	case "pattern_list", "tuple_pattern", "list_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.bindAsTarget(n.NamedChild(i), sc)
		}
	}
}

func (b *builder) visitDelStatement(j job) {
	for i := 0; i < int(j.node.NamedChildCount()); i++ {
		c := j.node.NamedChild(i)
		if c.Type() == "identifier" {
			if !j.optional {
				j.sc.record(b.text(c), del)
			}
			continue
		}
		b.push(job{node: c, sc: j.sc, optional: j.optional})
	}
}

// visitAttribute descends into an attribute access's base object only: the
// `.name` half is not itself a variable reference.
func (b *builder) visitAttribute(j job) {
	if obj := j.node.ChildByFieldName("object"); !obj.IsNull() {
		b.push(job{node: obj, sc: j.sc, optional: j.optional})
	}
}

// bindTarget records what an assignment/for/comprehension target actually does:
// a plain name (or a destructured one) is a set; anything else (an
// attribute or subscript target) only reads whatever it addresses.
func (b *builder) bindTarget(n sitter.Node, sc *scope, optional bool) {
	switch n.Type() {
	case "identifier":
		sc.record(b.text(n), set)
	case "pattern_list", "tuple_pattern", "list_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.push(job{node: n.NamedChild(i), sc: sc, optional: optional, isTarget: true})
		}
	case "list_splat_pattern":
		if n.NamedChildCount() > 0 {
			b.push(job{node: n.NamedChild(0), sc: sc, optional: optional, isTarget: true})
		}
	default:
		b.push(job{node: n, sc: sc, optional: optional})
	}
}

// bindParameters binds one parameter list. Parameter names land in
// childScope; default values and type annotations are expressions evaluated
// in enclosingScope (the scope the def statement itself lives in), matching
// the runtime semantics: a default value is computed once, where the def
// is executed, not inside the function body.
func (b *builder) bindParameters(params sitter.Node, childScope, enclosingScope *scope, optional bool) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			childScope.record(b.text(p), set)
		case "default_parameter":
			if name := p.ChildByFieldName("name"); !name.IsNull() {
				childScope.record(b.text(name), set)
			}
			if value := p.ChildByFieldName("value"); !value.IsNull() {
				b.push(job{node: value, sc: enclosingScope, optional: optional})
			}
		case "typed_parameter":
			if p.NamedChildCount() > 0 {
				b.bindParamName(p.NamedChild(0), childScope)
			}
			if typ := p.ChildByFieldName("type"); !typ.IsNull() {
				b.push(job{node: typ, sc: enclosingScope, optional: optional})
			}
		case "typed_default_parameter":
			if name := p.ChildByFieldName("name"); !name.IsNull() {
				childScope.record(b.text(name), set)
			}
			if typ := p.ChildByFieldName("type"); !typ.IsNull() {
				b.push(job{node: typ, sc: enclosingScope, optional: optional})
			}
			if value := p.ChildByFieldName("value"); !value.IsNull() {
				b.push(job{node: value, sc: enclosingScope, optional: optional})
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			b.bindParamName(p, childScope)
		default:
			// positional_separator ("/") and keyword_separator ("*") bind nothing.
		}
	}
}

func (b *builder) bindParamName(n sitter.Node, sc *scope) {
	if n.Type() == "identifier" {
		sc.record(b.text(n), set)
		return
	}
	if n.NamedChildCount() > 0 {
		b.bindParamName(n.NamedChild(0), sc)
	}
}
