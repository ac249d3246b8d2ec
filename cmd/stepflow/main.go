// Command stepflow runs a YAML-declared machine against a JSON document,
// printing the resulting document to stdout. It mirrors the entry-point
// shape of `original_source/core/lambda_handler.py`: read an event, run it
// through the machine, return what comes out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/anggasct/stepflow"
	"github.com/anggasct/stepflow/choice"
	"github.com/anggasct/stepflow/declare"
)

func main() {
	declarationPath := flag.String("declaration", "", "path to a YAML machine declaration")
	docPath := flag.String("doc", "-", "path to a JSON document to run, or - for stdin")
	cacheDir := flag.String("cache-dir", "", "directory for compiled choice program caching (disabled if empty)")
	verbose := flag.Bool("verbose", false, "log state-level lifecycle events to stderr")
	flag.Parse()

	if *declarationPath == "" {
		fmt.Fprintln(os.Stderr, "stepflow: -declaration is required")
		os.Exit(2)
	}

	if err := run(*declarationPath, *docPath, *cacheDir, *verbose); err != nil {
		log.Fatalf("stepflow: %v", err)
	}
}

func run(declarationPath, docPath, cacheDir string, verbose bool) error {
	doc, err := declare.LoadFile(declarationPath)
	if err != nil {
		return err
	}

	var cache *choice.Cache
	if cacheDir != "" {
		cache, err = choice.NewCache(cacheDir)
		if err != nil {
			return fmt.Errorf("initializing choice cache: %w", err)
		}
	}

	registry := stepflow.NewHandlerRegistry()
	registerBuiltinHandlers(registry)

	machine, err := declare.Build(doc, registry, cache)
	if err != nil {
		return fmt.Errorf("building machine: %w", err)
	}
	if verbose {
		machine.AddObserver(stepflow.NewLogObserver())
	}

	input, err := readDocument(docPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), machine.Timeout()+5*time.Second)
	defer cancel()

	result, err := machine.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("running machine %q: %w", machine.Name(), err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func readDocument(path string) (any, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening document %s: %w", path, err)
		}
		defer f.Close()
		reader = f
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document as JSON: %w", err)
	}
	return doc, nil
}

// registerBuiltinHandlers wires the handful of generic task handlers that
// make a declaration runnable out of the box without a custom Go program:
// "passthrough" forwards the document unchanged, "identity" is an alias for
// it kept for readability in declarations.
func registerBuiltinHandlers(registry *stepflow.HandlerRegistry) {
	passthrough := func(ctx *stepflow.ExecutionContext, doc any) (any, error) { return doc, nil }
	registry.Register("passthrough", passthrough)
	registry.Register("identity", passthrough)
}
