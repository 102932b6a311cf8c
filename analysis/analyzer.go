package analysis

import (
	"context"
	"errors"

	python "github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	dataflock "github.com/luciotorre/dataflock"
)

var (
	errNoRootNode = errors.New("analysis: parser returned no root node")
	errSyntax     = errors.New("analysis: source has a syntax error")
)

// builtins mirrors set(dir(builtins)) in the original analyzer: names that
// are never reported as a cell's free variables even when read and never
// locally assigned.
var builtins = func() map[string]struct{} {
	names := []string{
		"True", "False", "None", "NotImplemented", "Ellipsis", "__debug__",
		"print", "len", "range", "sum", "min", "max", "sorted", "reversed",
		"enumerate", "zip", "map", "filter", "open", "input",
		"int", "float", "str", "bool", "bytes", "bytearray", "complex",
		"list", "dict", "set", "frozenset", "tuple", "object", "slice",
		"type", "isinstance", "issubclass", "super", "repr", "format",
		"abs", "round", "divmod", "pow", "all", "any", "iter", "next",
		"hasattr", "getattr", "setattr", "delattr", "vars", "dir", "id",
		"hash", "callable", "staticmethod", "classmethod", "property",
		"globals", "locals", "eval", "exec", "compile", "__import__",
		"chr", "ord", "hex", "oct", "bin", "ascii",
		"Exception", "BaseException", "ValueError", "TypeError", "KeyError",
		"NameError", "StopIteration", "StopAsyncIteration", "RuntimeError",
		"IndexError", "AttributeError", "ArithmeticError", "ZeroDivisionError",
		"OverflowError", "FloatingPointError", "AssertionError", "ImportError",
		"ModuleNotFoundError", "LookupError", "MemoryError", "NotImplementedError",
		"OSError", "IOError", "FileNotFoundError", "PermissionError",
		"UnicodeError", "UnicodeDecodeError", "UnicodeEncodeError",
		"GeneratorExit", "KeyboardInterrupt", "SystemExit", "Warning",
		"DeprecationWarning", "UserWarning",
		"BaseExceptionGroup", "ExceptionGroup", "BlockingIOError", "BrokenPipeError",
		"BufferError", "ChildProcessError", "ConnectionError", "ConnectionAbortedError",
		"ConnectionRefusedError", "ConnectionResetError", "EOFError", "EnvironmentError",
		"FileExistsError", "IndentationError", "InterruptedError", "IsADirectoryError",
		"NotADirectoryError", "ProcessLookupError", "RecursionError", "ReferenceError",
		"SyntaxError", "SystemError", "TabError", "TimeoutError", "UnboundLocalError",
		"UnicodeTranslateError", "BytesWarning", "EncodingWarning", "FutureWarning",
		"ImportWarning", "PendingDeprecationWarning", "ResourceWarning", "RuntimeWarning",
		"SyntaxWarning", "UnicodeWarning",
		"__build_class__", "__doc__", "__loader__", "__name__", "__package__", "__spec__",
		"aiter", "anext", "breakpoint", "memoryview", "help",
		"copyright", "credits", "license", "exit", "quit",
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}()

func isBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Analyze parses code as a single Python cell body and determines the
// variable names it reads from and writes to.
//
// Only function and class definitions introduce a new scope; every other
// compound statement (if, while, for, try, with) extends the scope it
// appears in, and a for-loop or with-as target leaks its bound name into
// that enclosing scope. A name deleted inside an optional block (the body of
// an if, while, for, try, except or else — but not finally or with) is not
// treated as a deletion at all, matching CPython's own conditional-binding
// behavior.
func Analyze(code string) (dataflock.Cell, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseString(context.Background(), nil, []byte(code))
	if err != nil {
		return dataflock.Cell{}, &dataflock.AnalyzeError{Code: code, Cause: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return dataflock.Cell{}, &dataflock.AnalyzeError{Code: code, Cause: errNoRootNode}
	}
	if containsError(root) {
		return dataflock.Cell{}, &dataflock.AnalyzeError{Code: code, Cause: errSyntax}
	}

	b := &builder{src: []byte(code)}
	root2 := b.run(root)

	reads := make(map[string]struct{})
	for _, sc := range b.scopes {
		for name := range sc.missingVars() {
			if !isBuiltin(name) {
				reads[name] = struct{}{}
			}
		}
	}

	return dataflock.Cell{
		Code:   code,
		Reads:  reads,
		Writes: root2.topLevelWrites(),
	}, nil
}

// containsError walks the tree iteratively looking for a tree-sitter ERROR
// node, which marks source tree-sitter could not make sense of.
func containsError(root sitter.Node) bool {
	stack := []sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" {
			return true
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
	return false
}
