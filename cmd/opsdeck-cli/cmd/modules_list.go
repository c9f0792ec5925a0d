package cmd

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// modulesCmd lists the modules wired into the application by statically
// reading the registration file, so it works without a running server or a
// database connection.
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the feature modules registered with the application",
	Run: func(cmd *cobra.Command, args []string) {
		names, err := registeredModules("internal/app/modules.go")
		if err != nil {
			log.Fatalf("Failed to read module registrations: %v", err)
		}

		caser := cases.Title(language.English)
		fmt.Printf("Registered modules (%d):\n", len(names))
		for _, name := range names {
			fmt.Printf("  %-12s internal/modules/%s\n", caser.String(name), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

// registeredModules parses RegisterAll and collects the package names of
// every reg.Register(pkg.New(...)) call.
func registeredModules(path string) ([]string, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var names []string
	ast.Inspect(node, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "RegisterAll" {
			return true
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "Register" {
				return true
			}
			for _, arg := range call.Args {
				if pkg := newCallPackage(arg); pkg != "" {
					names = append(names, pkg)
				}
			}
			return true
		})
		return false
	})
	return names, nil
}

// newCallPackage extracts "servers" from an expression like
// servers.New(servers.Dependencies{...}).
func newCallPackage(expr ast.Expr) string {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return ""
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "New" {
		return ""
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return ""
	}
	return strings.ToLower(ident.Name)
}
