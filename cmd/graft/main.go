// Graft CLI - runs scripts that extend native classes
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/graft/bridge"
	"github.com/chazu/graft/manifest"
	"github.com/chazu/graft/script"
	"github.com/chazu/graft/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	projectDir := flag.String("m", ".", "Directory to search for graft.toml / graft.yaml")
	noManifest := flag.Bool("no-manifest", false, "Skip manifest loading")
	dumpTypes := flag.String("dump-types", "", "Write synthesized types to this file as CBOR on exit")
	logVerbosity := flag.Int("log-verbosity", -1, "Log verbosity (overrides the manifest)")
	logFile := flag.String("log-file", "", "Log file (overrides the manifest)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: graft [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the project's scripts, then the given scripts, then instantiates\n")
		fmt.Fprintf(os.Stderr, "the components the manifest declares.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  graft                       # Run the project in the current directory\n")
		fmt.Fprintf(os.Stderr, "  graft -i                    # Run the project, then start a REPL\n")
		fmt.Fprintf(os.Stderr, "  graft -no-manifest app.js   # Run a single script\n")
		fmt.Fprintf(os.Stderr, "  graft -dump-types types.cbor\n")
	}
	flag.Parse()

	var m *manifest.Manifest
	if !*noManifest {
		var err error
		m, err = manifest.FindAndLoad(*projectDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	configureLogging(m, *logVerbosity, *logFile)

	cfg := script.Config{}
	if m != nil {
		cfg.QueueSize = m.Runtime.QueueSize
		cfg.ReapInterval = m.ReapInterval()
	}

	vmInst := vm.NewVM()
	engine, err := script.NewEngine(vmInst, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	engine.Bridge().Start()

	status := run(engine, m, flag.Args(), *interactive, *verbose)

	if *dumpTypes != "" {
		if err := writeTypes(engine.Bridge(), *dumpTypes); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
		} else if *verbose {
			fmt.Printf("Wrote synthesized types to %s\n", *dumpTypes)
		}
	}

	engine.Close()
	os.Exit(status)
}

func configureLogging(m *manifest.Manifest, verbosity int, file string) {
	if verbosity < 0 {
		verbosity = 0
		if m != nil {
			verbosity = m.Runtime.LogVerbosity
		}
	}
	if file == "" && m != nil {
		file = m.LogFilePath()
	}
	var path *string
	if file != "" {
		path = &file
	}
	commonlog.Configure(verbosity, path)
}

func run(engine *script.Engine, m *manifest.Manifest, extra []string, interactive, verbose bool) int {
	var paths []string
	if m != nil {
		all, err := m.AllScriptPaths()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		paths = all
		if verbose {
			fmt.Printf("Loaded manifest %s (%d scripts, %d components)\n", m.Path, len(paths), len(m.Components))
		}
	}
	paths = append(paths, extra...)

	for _, p := range paths {
		if verbose {
			fmt.Printf("Running %s\n", p)
		}
		if _, err := engine.RunFile(p); err != nil {
			fmt.Fprintf(os.Stderr, "Error in %s: %v\n", p, err)
			return 1
		}
	}

	if m != nil {
		for _, c := range m.Components {
			if err := runComponent(engine.VM(), c, verbose); err != nil {
				fmt.Fprintf(os.Stderr, "Error: component %s: %v\n", c.Name, err)
				return 1
			}
		}
	}

	if interactive || (len(paths) == 0 && (m == nil || len(m.Components) == 0)) {
		runREPL(engine)
	}
	return 0
}

// runComponent instantiates a manifest component by name and sends it its
// invoke message, if any.
func runComponent(v *vm.VM, c manifest.Component, verbose bool) error {
	obj, err := v.NewByName(c.Name, c.Args...)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Created %s\n", obj)
	}
	if c.Invoke == "" {
		return nil
	}
	result, err := v.Send(obj, c.Invoke)
	if err != nil {
		return err
	}
	if verbose && result != nil {
		fmt.Printf("%s.%s => %v\n", c.Name, c.Invoke, result)
	}
	return nil
}

func writeTypes(b *bridge.Bridge, path string) error {
	data, err := bridge.MarshalSnapshot(b.Snapshot())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ---------------------------------------------------------------------------
// REPL
// ---------------------------------------------------------------------------

func runREPL(engine *script.Engine) {
	prompt := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if prompt {
		fmt.Println("Graft REPL (type 'exit' to quit, ':help' for commands)")
		fmt.Println()
	}

	scanner := bufio.NewScanner(os.Stdin)
	lineBuffer := strings.Builder{}

	for {
		if prompt {
			if lineBuffer.Len() == 0 {
				fmt.Print(">> ")
			} else {
				fmt.Print(".. ")
			}
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if lineBuffer.Len() == 0 && (line == "exit" || line == "quit") {
			break
		}
		if lineBuffer.Len() == 0 && strings.HasPrefix(line, ":") {
			handleREPLCommand(engine, line)
			continue
		}

		// Empty line executes accumulated input
		if line == "" {
			if input := strings.TrimSpace(lineBuffer.String()); input != "" {
				evalAndPrint(engine, input)
			}
			lineBuffer.Reset()
			continue
		}

		if lineBuffer.Len() > 0 {
			lineBuffer.WriteString("\n")
		}
		lineBuffer.WriteString(line)

		// A line ending in ';' or '}' at depth zero executes immediately
		input := lineBuffer.String()
		if balanced(input) && (strings.HasSuffix(line, ";") || strings.HasSuffix(line, "}")) {
			evalAndPrint(engine, input)
			lineBuffer.Reset()
		}
	}
}

// balanced reports whether every bracket opened in src has been closed.
func balanced(src string) bool {
	depth := 0
	for _, r := range src {
		switch r {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	return depth <= 0
}

func evalAndPrint(engine *script.Engine, input string) {
	result, err := engine.RunString(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if result != nil {
		fmt.Printf("=> %v\n", result)
	}
}

func handleREPLCommand(engine *script.Engine, line string) {
	switch strings.TrimSpace(line) {
	case ":help":
		fmt.Println("Commands:")
		fmt.Println("  :types   list synthesized types")
		fmt.Println("  :stats   show bridge counters")
		fmt.Println("  :help    show this help")
	case ":types":
		for _, rec := range engine.Bridge().Snapshot() {
			fmt.Printf("%s extends %s %v\n", rec.Class, rec.Base, rec.Interfaces)
			for _, slot := range rec.Slots {
				fmt.Printf("  %s\n", strings.Join(slot.Signatures, ", "))
			}
		}
	case ":stats":
		s := engine.Bridge().Stats()
		fmt.Printf("types: %d  instances: %d  dispatches: %d\n", s.Types, s.Instances, s.Dispatches)
	default:
		fmt.Printf("Unknown command %s (try :help)\n", line)
	}
}
