package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lhaig/tmplc/internal/compiler"
	"github.com/lhaig/tmplc/internal/config"
	"github.com/lhaig/tmplc/internal/wasmgen"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const usage = `tmplc - template-to-WebAssembly-component compiler

Usage:
  tmplc -i <input> -o <output> [-e <export-name>] [-config <path>] [-v]

Options:
  -i, --input <path>          Template source file (required)
  -o, --output <path>         Output component path (required)
  -e, --export-name <name>    Name the apply function is exported under (default "apply")
  -config <path>              YAML file defaulting the flags above
  -v                          Verbose (debug-level) logging

Examples:
  tmplc -i greeting.tmpl -o greeting.wasm
  tmplc -i greeting.tmpl -o greeting.wasm -e render
  tmplc -config build.yaml
`

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("tmplc %s\n", version)
		return
	}

	fs := flag.NewFlagSet("tmplc", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var input, output, exportName, configPath string
	var verbose bool
	fs.StringVar(&input, "i", "", "input template path")
	fs.StringVar(&input, "input", "", "input template path")
	fs.StringVar(&output, "o", "", "output component path")
	fs.StringVar(&output, "output", "", "output component path")
	fs.StringVar(&exportName, "e", "", "exported function name")
	fs.StringVar(&exportName, "export-name", "", "exported function name")
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.BoolVar(&verbose, "v", false, "verbose logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if configPath != "" {
		cfgFile, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if input == "" {
			input = cfgFile.Input
		}
		if output == "" {
			output = cfgFile.Output
		}
		if exportName == "" {
			exportName = cfgFile.ExportName
		}
		if !verbose {
			verbose = cfgFile.Verbose
		}
	}

	if exportName == "" {
		exportName = "apply"
	}

	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "Error: -i/--input and -o/--output are required")
		fs.Usage()
		os.Exit(1)
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}

	logger := compiler.NewLogger(verbose)
	defer logger.Sync()

	cfg := compiler.Config{
		ExportFuncName: exportName,
		ExportMemName:  "memory",
		BuildID:        wasmgen.NewBuildID(),
		Logger:         logger,
	}

	if err := compiler.BuildToFile(string(source), output, cfg); err != nil {
		logger.Error("build failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", output)
}
