// Command decaf compiles decaf source files to three-address code or
// SPIM-flavored MIPS assembly.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"decaf/cache"
	"decaf/compiler"
	"decaf/project"
)

var version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:           "decaf",
	Short:         "Decaf compiler",
	Long:          "Decaf is a compiler for the decaf language targeting SPIM MIPS.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build [flags] [file...]",
	Short: "Compile decaf source files",
	Long: "Compile the given files, or the sources of the enclosing decaf.toml " +
		"when no files are named.",
	RunE: runBuild,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the compiler version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("decaf %s\n", version)
	},
}

func main() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().String("color", "auto", "colorize diagnostics (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-errors", compiler.DefaultMaxErrors, "stop reporting after this many errors")

	buildCmd.Flags().String("emit", "", "output format (tac|asm)")
	buildCmd.Flags().StringSlice("debug", nil, "dump intermediate state (ast|st|tac)")
	buildCmd.Flags().StringP("out", "o", "", "output path (single input only)")
	buildCmd.Flags().Bool("no-cache", false, "recompile even when a cached result exists")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "decaf: %v\n", err)
		os.Exit(1)
	}
}

type buildOptions struct {
	emit      string
	debug     map[string]bool
	out       string
	colorize  bool
	maxErrors int
	noCache   bool
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := readBuildOptions(cmd)
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		manifest, err := findManifest()
		if err != nil {
			return err
		}
		files = manifest.SourcePaths()
		if opts.emit == "" {
			opts.emit = manifest.Build.Emit
		}
		if opts.out == "" {
			opts.out = manifest.Build.Out
		}
	}
	if opts.emit == "" {
		opts.emit = "asm"
	}
	if opts.out != "" && len(files) > 1 {
		return fmt.Errorf("-o requires a single input file, got %d", len(files))
	}

	var store *cache.Cache
	if !opts.noCache {
		// a broken cache dir only costs recompilation
		store, _ = cache.Open("decaf")
	}

	var mu sync.Mutex
	failed := false
	compileOne := func(path string) error {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, ok := fromCache(store, string(src), opts)
		if !ok {
			result := compiler.Compile(string(src), compiler.CompileOptions{
				MaxErrors: opts.maxErrors,
				EmitAsm:   opts.emit == "asm",
			})
			mu.Lock()
			dumpDebug(path, result, opts.debug)
			if result.Reporter.HasErrors() {
				result.Reporter.Render(os.Stderr, opts.colorize)
				failed = true
				mu.Unlock()
				return nil
			}
			mu.Unlock()
			toCache(store, string(src), opts, result)
			out = result.Asm
			if opts.emit == "tac" {
				out = result.Tac
			}
		}
		return os.WriteFile(outputPath(path, opts), []byte(out), 0o644)
	}

	// debug dumps interleave badly, so only clean builds fan out
	if len(opts.debug) > 0 || len(files) == 1 {
		for _, path := range files {
			if err := compileOne(path); err != nil {
				return err
			}
		}
	} else {
		var group errgroup.Group
		for _, path := range files {
			path := path
			group.Go(func() error { return compileOne(path) })
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func readBuildOptions(cmd *cobra.Command) (*buildOptions, error) {
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return nil, err
	}
	switch colorMode {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("invalid --color %q: want auto, on or off", colorMode)
	}
	maxErrors, err := cmd.Root().PersistentFlags().GetInt("max-errors")
	if err != nil {
		return nil, err
	}
	emit, err := cmd.Flags().GetString("emit")
	if err != nil {
		return nil, err
	}
	switch emit {
	case "", "tac", "asm":
	default:
		return nil, fmt.Errorf("invalid --emit %q: want tac or asm", emit)
	}
	debugModes, err := cmd.Flags().GetStringSlice("debug")
	if err != nil {
		return nil, err
	}
	debug := make(map[string]bool, len(debugModes))
	for _, mode := range debugModes {
		switch mode {
		case "ast", "st", "tac":
			debug[mode] = true
		default:
			return nil, fmt.Errorf("invalid --debug %q: want ast, st or tac", mode)
		}
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return nil, err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	return &buildOptions{
		emit:      emit,
		debug:     debug,
		out:       out,
		colorize:  colorMode == "on" || (colorMode == "auto" && term.IsTerminal(int(os.Stderr.Fd()))),
		maxErrors: maxErrors,
		noCache:   noCache,
	}, nil
}

func findManifest() (*project.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, found, err := project.Find(cwd)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no input files and no %s found in %s or any parent", project.ManifestName, cwd)
	}
	return project.Load(path)
}

func cacheTag(opts *buildOptions) string {
	return "v1 emit=" + opts.emit
}

func fromCache(store *cache.Cache, src string, opts *buildOptions) (string, bool) {
	if store == nil || len(opts.debug) > 0 {
		return "", false
	}
	entry, ok, err := store.Get(cache.KeyFor(src, cacheTag(opts)))
	if err != nil || !ok {
		return "", false
	}
	if opts.emit == "tac" {
		return entry.Tac, true
	}
	return entry.Asm, true
}

func toCache(store *cache.Cache, src string, opts *buildOptions, result *compiler.CompileResult) {
	if store == nil {
		return
	}
	_ = store.Put(cache.KeyFor(src, cacheTag(opts)), &cache.Entry{Tac: result.Tac, Asm: result.Asm})
}

func outputPath(input string, opts *buildOptions) string {
	if opts.out != "" {
		return opts.out
	}
	ext := ".s"
	if opts.emit == "tac" {
		ext = ".tac"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ext
}

func dumpDebug(path string, result *compiler.CompileResult, debug map[string]bool) {
	if len(debug) == 0 {
		return
	}
	if debug["ast"] && result.Program != nil {
		fmt.Printf("--- ast %s ---\n", path)
		result.Program.Dump(os.Stdout)
	}
	if debug["st"] && result.Table != nil {
		fmt.Printf("--- symbols %s ---\n", path)
		result.Table.Dump(os.Stdout)
	}
	if debug["tac"] && result.Tac != "" {
		fmt.Printf("--- tac %s ---\n", path)
		fmt.Print(result.Tac)
	}
}
