// Package backend wraps the wasmgen component assembler behind the
// narrow interface the compiler driver calls through.
package backend

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/params"
)

// Config carries the identifiers the generated component embeds: the
// name the apply function is exported under, the name its memory is
// exported under, and the build's provenance identifier (spec §3, §4.5).
type Config struct {
	ExportFuncName string
	ExportMemName  string
	BuildID        string
}

// Backend is the interface the compiler driver generates binary output
// through. There is exactly one implementation in this system, but the
// interface keeps the driver decoupled from wasmgen's concrete API.
type Backend interface {
	Name() string
	Generate(file *ast.File, p *params.Params, cfg Config) []byte
}
