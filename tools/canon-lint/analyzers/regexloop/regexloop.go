// Package regexloop detects regex compilation inside loops.
package regexloop

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects regexp.Compile/MustCompile calls inside loops.
// Rule conditions match per element, so a compile in the evaluation
// loop dominates validation time.
var Analyzer = &analysis.Analyzer{
	Name:     "regexloop",
	Doc:      "detects regexp.Compile/MustCompile calls inside loops",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var compileFuncs = map[string]bool{
	"Compile":          true,
	"MustCompile":      true,
	"CompilePOSIX":     true,
	"MustCompilePOSIX": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		body := loopBody(n)
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			if name := compileCallName(call); name != "" {
				pass.Reportf(call.Pos(),
					"regexp.%s called inside loop - compile once outside loop", name)
			}

			return true
		})
	})

	return nil, nil
}

func loopBody(n ast.Node) *ast.BlockStmt {
	switch stmt := n.(type) {
	case *ast.RangeStmt:
		return stmt.Body
	case *ast.ForStmt:
		return stmt.Body
	}
	return nil
}

// compileCallName returns the regexp compile function being called, or
// empty if the call is not a regexp compilation.
func compileCallName(call *ast.CallExpr) string {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return ""
	}

	ident, ok := sel.X.(*ast.Ident)
	if !ok || ident.Name != "regexp" {
		return ""
	}

	if !compileFuncs[sel.Sel.Name] {
		return ""
	}
	return sel.Sel.Name
}
