package cmd

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/go/ast/astutil"
)

var moduleName string

// newModuleCmd represents the new-module command
var newModuleCmd = &cobra.Command{
	Use:   "new-module",
	Short: "Scaffold a new feature module",
	Long: `Creates a new module with a boilerplate definition and page handler,
and automatically registers it with the application.`,
	Run: func(cmd *cobra.Command, args []string) {
		if moduleName == "" {
			log.Fatal("Module name is required: --name=<module-name>")
		}

		if err := generateModule(moduleName); err != nil {
			log.Fatalf("Failed to generate module: %v", err)
		}

		if err := updateModulesFile(moduleName); err != nil {
			log.Printf("Automatic registration failed: %v", err)
			printNextSteps(moduleName)
			return
		}
		printSuccessMessage(moduleName)
	},
}

func init() {
	rootCmd.AddCommand(newModuleCmd)
	newModuleCmd.Flags().StringVarP(&moduleName, "name", "n", "", "The name of the new module (e.g., 'inventory')")
}

type TemplateData struct {
	Name       string
	PascalName string
	Subject    string
}

func generateModule(name string) error {
	caser := cases.Title(language.English)
	data := TemplateData{
		Name:       name,
		PascalName: caser.String(name),
	}
	data.Subject = data.PascalName

	moduleDir := filepath.Join("internal", "modules", name)
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		return fmt.Errorf("failed to create module directory: %w", err)
	}

	return generateFile(filepath.Join(moduleDir, "module.go"), moduleTemplate, data)
}

func generateFile(path string, tmpl string, data TemplateData) error {
	t, err := template.New("").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// updateModulesFile appends a reg.Register call for the new module to
// RegisterAll and adds the import.
func updateModulesFile(name string) error {
	modulesPath := "internal/app/modules.go"
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, modulesPath, nil, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", modulesPath, err)
	}

	newImportPath := fmt.Sprintf("github.com/opsdeck/opsdeck/internal/modules/%s", name)
	astutil.AddImport(fset, node, newImportPath)

	found := false
	ast.Inspect(node, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "RegisterAll" {
			return true
		}
		found = true

		registerCall := &ast.ExprStmt{
			X: &ast.CallExpr{
				Fun: &ast.SelectorExpr{X: ast.NewIdent("reg"), Sel: ast.NewIdent("Register")},
				Args: []ast.Expr{
					&ast.CallExpr{
						Fun: &ast.SelectorExpr{X: ast.NewIdent(name), Sel: ast.NewIdent("New")},
						Args: []ast.Expr{
							&ast.CompositeLit{
								Type: &ast.SelectorExpr{X: ast.NewIdent(name), Sel: ast.NewIdent("Dependencies")},
								Elts: []ast.Expr{
									&ast.KeyValueExpr{
										Key:   ast.NewIdent("RenderPage"),
										Value: &ast.SelectorExpr{X: ast.NewIdent("deps"), Sel: ast.NewIdent("RenderPage")},
									},
								},
							},
						},
					},
				},
			},
		}
		fn.Body.List = append(fn.Body.List, registerCall)
		return false
	})
	if !found {
		return fmt.Errorf("RegisterAll not found in %s", modulesPath)
	}

	return writeASTToFile(fset, node, modulesPath)
}

func printSuccessMessage(name string) {
	fmt.Printf("Created module %q in internal/modules/%s/\n", name, name)
	fmt.Println("Registered it in internal/app/modules.go.")
	fmt.Println("Ready to start building your new module!")
}

func printNextSteps(name string) {
	fmt.Printf("Created module %q in internal/modules/%s/\n\n", name, name)
	fmt.Println("Register it manually in internal/app/modules.go:")
	fmt.Printf(`
import "github.com/opsdeck/opsdeck/internal/modules/%s"

reg.Register(%s.New(%s.Dependencies{RenderPage: deps.RenderPage}))
`, name, name, name)
}

func writeASTToFile(fset *token.FileSet, node *ast.File, filename string) error {
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, node); err != nil {
		return fmt.Errorf("failed to format AST: %w", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", filename, err)
	}
	return nil
}

const moduleTemplate = `package {{.Name}}

import (
	"context"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/view"
)

const ModuleID = "{{.Name}}"

type Dependencies struct {
	RenderPage view.PageRenderer
}

func New(deps Dependencies) module.Definition {
	m := &{{.Name}}{renderPage: deps.RenderPage}

	read := []ability.Rule{{"{{"}}Action: ability.ActionRead, Subject: ability.Subject("{{.Subject}}"){{"}}"}}

	return module.Definition{
		ID:      ModuleID,
		Name:    "{{.PascalName}}",
		Version: "1.0.0",
		Routes: []module.Route{{"{{"}}
			Path:    "/{{.Name}}",
			Handler: m.indexGet,
			Require: read,
		{{"}}"}},
		Navigation: []module.NavItem{{"{{"}}
			ID:      ModuleID,
			Label:   "{{.PascalName}}",
			Path:    "/app/{{.Name}}",
			Require: read,
		{{"}}"}},
		OnInit: m.init,
	}
}

type {{.Name}} struct {
	renderPage view.PageRenderer
}

func (m *{{.Name}}) init(ctx context.Context, mc *module.Context) error {
	return nil
}

func (m *{{.Name}}) indexGet(c echo.Context) error {
	content := h.Section(
		h.H1(g.Text("{{.PascalName}}")),
		h.P(g.Text("Hello from the {{.Name}} module.")),
	)
	return m.renderPage(c, "{{.PascalName}}", content)
}
`
