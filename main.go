// abidump extracts a machine-readable ABI description from C and C++
// headers: record layouts, function signatures, and compile-time constants,
// as one JSON document on stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/lmittmann/tint"

	"github.com/karhunen/abidump/internal/abi"
	"github.com/karhunen/abidump/internal/discover"
	"github.com/karhunen/abidump/internal/extract"
	"github.com/karhunen/abidump/internal/graph"
	"github.com/karhunen/abidump/internal/parse"
	"github.com/karhunen/abidump/internal/query"
)

var version = "dev"

const defaultMaxFileSize = 1_000_000 // 1 MB

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("abidump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		includes    stringList
		outPath     string
		dialect     string
		check       bool
		maxFileSize int
		verbose     bool
		showVersion bool
	)

	fs.Var(&includes, "I", "directory to add to the include search path (repeatable)")
	fs.StringVar(&outPath, "o", "", "also write the JSON document to this file")
	fs.StringVar(&dialect, "x", "", "force the input language: c or c++")
	fs.BoolVar(&check, "check", false, "fail when record references do not resolve")
	fs.IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes when scanning")
	fs.BoolVar(&verbose, "v", false, "print note diagnostics and debug logging")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "abidump %s\n", version)
		return nil
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: abidump [flags] <header file or directory>")
	}
	target := fs.Arg(0)

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("input path: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{Level: level, NoColor: true}))

	var doc *abi.Document
	if info.IsDir() {
		doc, err = runScan(target, includes, dialect, maxFileSize, verbose, logger, stderr)
	} else {
		doc, err = runSingle(target, includes, dialect, verbose, stderr)
	}
	if err != nil {
		return err
	}

	if check {
		if refs := graph.Dangling(doc); len(refs) > 0 {
			for _, r := range refs {
				_, _ = fmt.Fprintf(stderr, "dangling reference: %s (referenced from %s)\n",
					r.Name, strings.Join(r.From, ", "))
			}
			return fmt.Errorf("%d dangling record reference(s)", len(refs))
		}
	}

	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	}
	_, _ = fmt.Fprintln(stdout, string(data))
	return nil
}

func runSingle(path string, includes []string, dialect string, verbose bool, stderr io.Writer) (*abi.Document, error) {
	tu, err := parse.Unit(path, parse.Options{IncludePaths: includes, Dialect: dialect})
	if err != nil {
		return nil, err
	}
	printDiagnostics(tu.Diagnostics(), verbose, stderr)
	return extract.Document(tu), nil
}

// runScan extracts every header under root and merges the per-file documents
// in path order, so later files win name collisions deterministically. A
// file that fails to parse is skipped; the scan only fails when nothing
// parses at all.
func runScan(root string, includes []string, dialect string, maxFileSize int, verbose bool, logger *slog.Logger, stderr io.Writer) (*abi.Document, error) {
	files, err := discover.Headers(root)
	if err != nil {
		return nil, fmt.Errorf("discovering headers: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no header files found under %s", root)
	}

	var kept []discover.FileEntry
	for _, f := range files {
		if f.Size > int64(maxFileSize) {
			logger.Warn("skipping large file", "path", f.Path, "size", f.Size)
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no header files found (all exceeded size limit)")
	}
	logger.Debug("scanning headers", "root", root, "files", len(kept))

	type result struct {
		index int
		doc   *abi.Document
		diags []query.Diagnostic
		err   error
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(kept) {
		numWorkers = len(kept)
	}

	work := make(chan int, len(kept))
	results := make(chan result, len(kept))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				f := kept[idx]
				d := dialect
				if d == "" {
					d = f.Dialect
				}
				tu, err := parse.Unit(f.Path, parse.Options{IncludePaths: includes, Dialect: d})
				if err != nil {
					results <- result{index: idx, err: err}
					continue
				}
				results <- result{index: idx, doc: extract.Document(tu), diags: tu.Diagnostics()}
			}
		}()
	}

	for i := range kept {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order.
	indexed := make([]*abi.Document, len(kept))
	diagsByIndex := make([][]query.Diagnostic, len(kept))
	var merr *multierror.Error
	failures := 0
	for r := range results {
		if r.err != nil {
			logger.Warn("skipping file", "path", kept[r.index].Path, "err", r.err)
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", kept[r.index].Path, r.err))
			failures++
			continue
		}
		indexed[r.index] = r.doc
		diagsByIndex[r.index] = r.diags
	}
	if failures == len(kept) {
		return nil, fmt.Errorf("no files could be parsed: %w", merr)
	}

	doc := abi.NewDocument()
	for i := range kept {
		if indexed[i] == nil {
			continue
		}
		printDiagnostics(diagsByIndex[i], verbose, stderr)
		doc.Merge(indexed[i])
	}
	return doc, nil
}

// printDiagnostics writes diagnostics in source order. Notes are chatty on
// real-world headers (absent system includes, mostly), so they only appear
// with -v.
func printDiagnostics(diags []query.Diagnostic, verbose bool, stderr io.Writer) {
	for _, d := range diags {
		if d.Severity == query.SeverityNote && !verbose {
			continue
		}
		_, _ = fmt.Fprintln(stderr, d.String())
	}
}

// stringList collects the values of a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-I": true, "--I": true,
	"-o": true, "--o": true,
	"-x": true, "--x": true,
	"-max-file-size": true, "--max-file-size": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
