// Package compiler orchestrates the full pipeline: lex (inside the
// parser), parse, collect parameters, generate the core module, generate
// the enclosing component.
package compiler

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lhaig/tmplc/internal/backend"
	"github.com/lhaig/tmplc/internal/diagnostic"
	"github.com/lhaig/tmplc/internal/params"
	"github.com/lhaig/tmplc/internal/parser"
	"github.com/lhaig/tmplc/internal/wasmgen"
)

// Config holds the compilation unit's identifiers (spec §3): the names
// the component's function and memory are exported under, and a
// provenance identifier stamped into the artifact's custom sections.
type Config struct {
	ExportFuncName string
	ExportMemName  string
	BuildID        string
	Logger         *zap.Logger
}

// DefaultConfig returns the Config a bare CLI invocation without a
// config file or explicit build ID would produce.
func DefaultConfig() Config {
	return Config{
		ExportFuncName: "apply",
		ExportMemName:  "memory",
		BuildID:        wasmgen.NewBuildID(),
		Logger:         zap.NewNop(),
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Result holds the output of a compilation.
type Result struct {
	Diagnostics    *diagnostic.Diagnostics
	ComponentBytes []byte
	TextParamCount int
	CondParamCount int
}

// logDiagnostics mirrors every collected diagnostic to the logger as a
// single structured Error line, so diagnostics are observable in log
// aggregation even when the caller never renders res.Diagnostics.Format.
func logDiagnostics(logger *zap.Logger, diags *diagnostic.Diagnostics) {
	for _, d := range diags.All() {
		logger.Error("diagnostic",
			zap.String("file", "input"),
			zap.Int("line", d.Line),
			zap.Int("column", d.Column),
			zap.String("message", d.Message),
		)
	}
}

// Compile runs the full pipeline over source and returns a Result. On
// any diagnostic (lexical, syntactic, or a duplicate parameter name),
// ComponentBytes is nil — per spec §7, there is no partial output. Each
// call owns its own Parser and Diagnostics, so Compile is safe to call
// from multiple goroutines concurrently.
func Compile(source string, cfg Config) *Result {
	logger := cfg.logger()

	parseDone := stageTimer(logger, "parse")
	p := parser.New(source)
	file := p.Parse()
	parseDone()
	if p.Diagnostics().HasErrors() {
		logDiagnostics(logger, p.Diagnostics())
		return &Result{Diagnostics: p.Diagnostics()}
	}

	collectDone := stageTimer(logger, "collect")
	collected, err := params.Collect(file.Nodes)
	collectDone()
	if err != nil {
		diags := diagnostic.New()
		diags.Errorf(0, 0, "%s", err)
		logDiagnostics(logger, diags)
		return &Result{Diagnostics: diags}
	}

	generateDone := stageTimer(logger, "generate")
	be := &backend.WasmBackend{}
	componentBytes := be.Generate(file, collected, backend.Config{
		ExportFuncName: cfg.ExportFuncName,
		ExportMemName:  cfg.ExportMemName,
		BuildID:        cfg.BuildID,
	})
	generateDone()

	logger.Info("compiled template",
		zap.Int("text_params", len(collected.Text)),
		zap.Int("cond_params", len(collected.Cond)),
		zap.Int("component_bytes", len(componentBytes)),
		zap.String("build_id", cfg.BuildID),
	)

	return &Result{
		Diagnostics:    p.Diagnostics(),
		ComponentBytes: componentBytes,
		TextParamCount: len(collected.Text),
		CondParamCount: len(collected.Cond),
	}
}

// BuildToFile runs Compile and writes the resulting component to
// outPath, wrapping any I/O failure the way the rest of this codebase
// wraps errors.
func BuildToFile(source, outPath string, cfg Config) error {
	res := Compile(source, cfg)
	if res.Diagnostics != nil && res.Diagnostics.HasErrors() {
		return fmt.Errorf("compilation errors:\n%s", res.Diagnostics.Format("input"))
	}

	writeDone := stageTimer(cfg.logger(), "write")
	defer writeDone()
	if err := os.WriteFile(outPath, res.ComponentBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
