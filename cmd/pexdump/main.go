// pexdump decodes compiled Papyrus script containers and prints their
// disassembly.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/chazu/pexkit/catalog"
	"github.com/chazu/pexkit/config"
	"github.com/chazu/pexkit/disasm"
	"github.com/chazu/pexkit/pex"
	"github.com/chazu/pexkit/summary"
)

var log = commonlog.GetLogger("pexdump")

type options struct {
	level   disasm.Level
	outDir  string
	rename  map[string]string
	catalog string
	workers int
	tabs    int // expand tabs to this many spaces when > 0
}

// input is one file to decode. rel is its path below the argument it was
// found under, used to lay out re-encoded output.
type input struct {
	path string
	rel  string
}

func main() {
	configPath := flag.String("config", "", "Configuration file (default: nearest pexkit.toml)")
	levelName := flag.String("level", "", "Disassembly level: stripped, raw or structured")
	outDir := flag.String("o", "", "Re-encode decoded containers into this directory")
	rename := flag.Bool("rename", false, "Apply the configured rename table before re-encoding")
	catalogPath := flag.String("catalog", "", "Index summaries into this SQLite catalog")
	workers := flag.Int("j", 0, "Number of files decoded in parallel")
	verbose := flag.Int("v", 0, "Log verbosity (0 notices, 1 info, 2 debug)")
	logFile := flag.String("log", "", "Write log output to this file instead of stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pexdump [options] <file.pex|dir>...\n\n")
		fmt.Fprintf(os.Stderr, "Decodes compiled Papyrus scripts and prints their disassembly.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pexdump Quest.pex                       # Structured listing\n")
		fmt.Fprintf(os.Stderr, "  pexdump -level raw Data/Scripts         # Raw listing of every .pex file\n")
		fmt.Fprintf(os.Stderr, "  pexdump -rename -o out Data/Scripts     # Rename identifiers and re-encode\n")
		fmt.Fprintf(os.Stderr, "  pexdump -catalog scripts.db -level stripped Data/Scripts\n")
	}
	flag.Parse()

	if *logFile != "" {
		commonlog.Configure(*verbose, logFile)
	} else {
		commonlog.Configure(*verbose, nil)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		level:   cfg.Level(),
		outDir:  *outDir,
		catalog: cfg.CatalogPath(),
		workers: cfg.Decode.Workers,
	}
	if *levelName != "" {
		if opts.level, err = disasm.ParseLevel(*levelName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}
	if *rename {
		opts.rename = cfg.Rename
	}
	if *catalogPath != "" {
		opts.catalog = *catalogPath
	}
	if *workers > 0 {
		opts.workers = *workers
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts.tabs = 4
	}

	files, err := collect(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed, err := run(context.Background(), os.Stdout, files, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	return config.FindAndLoad(wd)
}

// collect expands directories into the .pex files beneath them.
func collect(args []string) ([]input, error) {
	var files []input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, input{path: arg, rel: filepath.Base(arg)})
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pex") {
				return nil
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			files = append(files, input{path: path, rel: rel})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// result is what one worker produced for one file.
type result struct {
	path    string
	size    int
	lines   []string
	summary *summary.Summary
	err     error
	warn    error
}

// run decodes files in parallel and writes results to out in input order.
// It returns the number of files that could not be decoded.
func run(ctx context.Context, out io.Writer, files []input, opts options) (int, error) {
	results := make([]result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))
	for i, in := range files {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := process(in, opts)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var cat *catalog.Catalog
	if opts.catalog != "" {
		var err error
		if cat, err = catalog.Open(opts.catalog); err != nil {
			return 0, err
		}
		defer cat.Close()
	}

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			log.Errorf("%s: %s", res.path, res.err)
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.path, res.err)
			continue
		}
		if res.warn != nil {
			log.Warningf("%s: %s", res.path, res.warn)
		}

		fmt.Fprintf(out, "; %s (%s)\n", res.path, humanize.Bytes(uint64(res.size)))
		for _, line := range res.lines {
			if opts.tabs > 0 {
				line = strings.ReplaceAll(line, "\t", strings.Repeat(" ", opts.tabs))
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)

		if cat != nil {
			if _, err := cat.Import(ctx, res.path, res.summary); err != nil {
				return failed, err
			}
		}
	}
	return failed, nil
}

// process decodes one file. Decode failures are reported in the result;
// only output failures abort the run.
func process(in input, opts options) (result, error) {
	path := in.path
	res := result{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.err = err
		return res, nil
	}
	res.size = len(data)

	c, err := pex.Decode(data)
	if err != nil {
		res.err = err
		return res, nil
	}
	log.Debugf("decoded %s: %s", path, c.Describe())

	if len(opts.rename) > 0 {
		n := c.RemapIdentifiers(opts.rename)
		log.Infof("%s: renamed %d references", path, n)
	}

	res.lines, res.warn = disasm.Listing(c, opts.level)
	if opts.catalog != "" {
		res.summary = summary.Of(path, c)
	}

	if opts.outDir != "" {
		if err := write(c, filepath.Join(opts.outDir, in.rel)); err != nil {
			return res, err
		}
	}
	return res, nil
}

func write(c *pex.Container, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	log.Infof("wrote %s", path)
	return f.Close()
}
