// demo is an interactive REPL over a running engine: an illustrative,
// non-core consumer of the library, in the same spirit as the
// teacher's own demo entry points. It is not part of the engine's
// public surface.
//
// Usage:
//
//	demo --dir <data-dir>            Open (or create) a store at dir
//	demo --config <options-file>     Open using a JSONC options file
//
// Commands (in REPL):
//
//	set <key> <value>     Insert or update a key
//	get <key>              Retrieve a key
//	del <key>              Delete a key
//	prefix <prefix>        List live values whose key starts with prefix
//	flush                  Flush the memtable to a new sealed table
//	compact                Merge every sealed table into one
//	stats                  Show table count and on-disk size
//	help                   Show this help
//	exit / quit / q        Exit
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/ninelore/emberkv/internal/config"
	"github.com/ninelore/emberkv/internal/engine"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", "", "data directory to open or create")
	configPath := flag.String("config", "", "JSONC options file (overrides --dir)")
	flag.Parse()

	opts, err := resolveOptions(*dir, *configPath)
	if err != nil {
		return err
	}
	opts.Logger = log.New(os.Stderr, "demo: ", log.LstdFlags)

	eng, err := engine.Open(opts)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer eng.Close()

	repl := &REPL{eng: eng, dir: opts.Dir}
	return repl.Run()
}

func resolveOptions(dir, configPath string) (engine.Options, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if dir == "" {
		return engine.Options{}, fmt.Errorf("either --dir or --config is required")
	}
	opts := engine.DefaultOptions()
	opts.Dir = dir
	return opts, nil
}

// REPL is the interactive command loop.
type REPL struct {
	eng   *engine.Engine
	dir   string
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".emberkv_demo_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("emberkv demo (dir=%s)\n", r.dir)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("emberkv> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "set", "put":
			r.cmdSet(args)
		case "get":
			r.cmdGet(args)
		case "del", "delete":
			r.cmdDelete(args)
		case "prefix":
			r.cmdPrefix(args)
		case "flush":
			r.cmdFlush()
		case "compact":
			r.cmdCompact()
		case "stats":
			r.cmdStats()
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"set", "put", "get", "del", "delete", "prefix",
		"flush", "compact", "stats", "help", "exit", "quit", "q",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  set <key> <value>   Insert or update a key")
	fmt.Println("  get <key>           Retrieve a key")
	fmt.Println("  del <key>           Delete a key")
	fmt.Println("  prefix <prefix>     List live values whose key starts with prefix")
	fmt.Println("  flush               Flush the memtable to a new sealed table")
	fmt.Println("  compact             Merge every sealed table into one")
	fmt.Println("  stats               Show table count and on-disk size")
	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (r *REPL) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")
		return
	}
	if err := r.eng.Set([]byte(args[0]), []byte(strings.Join(args[1:], " "))); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}
	v, ok, err := r.eng.Get([]byte(args[0]))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Println(string(v))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")
		return
	}
	if err := r.eng.Delete([]byte(args[0])); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdPrefix(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: prefix <prefix>")
		return
	}
	vals, err := r.eng.GetByPrefix([]byte(args[0]))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(vals) == 0 {
		fmt.Println("(no matches)")
		return
	}
	for i, v := range vals {
		fmt.Printf("%3d. %s\n", i+1, string(v))
	}
}

func (r *REPL) cmdFlush() {
	if err := r.eng.Flush(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdCompact() {
	if err := r.eng.Compact(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *REPL) cmdStats() {
	size, err := r.eng.SizeOnDisk()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Sealed tables: %d\n", r.eng.Len())
	fmt.Printf("On-disk size:  %d bytes\n", size)
}
