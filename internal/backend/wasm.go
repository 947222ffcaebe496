package backend

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/params"
	"github.com/lhaig/tmplc/internal/wasmgen"
)

// WasmBackend wraps wasmgen's core-module and component assembly as a
// Backend implementation.
type WasmBackend struct{}

// Name returns the backend name.
func (b *WasmBackend) Name() string {
	return "wasm"
}

// Generate assembles the inner core module and the enclosing component,
// returning the component's bytes (spec §4.2-§4.5).
func (b *WasmBackend) Generate(file *ast.File, p *params.Params, cfg Config) []byte {
	core := wasmgen.BuildCoreModule(file, p, cfg.ExportFuncName, cfg.ExportMemName, cfg.BuildID)
	return wasmgen.BuildComponent(file, p, core, cfg.ExportFuncName, cfg.ExportMemName, cfg.BuildID)
}
