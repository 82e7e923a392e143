package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const versionString = "0.4.0"
const defaultConfigPath = "./xplore.toml"

type cliOptions struct {
	configPath string
	workspace  string
	tagsFile   string
	path       string
	line       int
	scope      string
	limit      int
	jsonOut    bool
	ui         bool
	verbose    bool
	version    bool
	args       []string
}

const usageText = `usage: xplore [flags] <command> [args]

commands:
  def SYMBOL        jump to the definition of SYMBOL
  decl SYMBOL       jump to the declaration of SYMBOL
  typedef SYMBOL    jump to the type of SYMBOL
  impl SYMBOL       list implementations of SYMBOL
  source SYMBOL     list every tag of SYMBOL, implementation files first
  refs SYMBOL       find references (-scope file|workspace)
  includes          list includes of -path and where they resolve
  follow N          open the Nth include of -path
  symbols [QUERY]   fuzzy symbol search (-scope, -limit)
  outline [PATH]    group the symbols of a file
  grep QUERY        literal text search
  tree [QUERY]      print the file tree, optionally filtered
  open PATH[:LINE]  open a location
  back, forward     replay navigation history
  history           print the history stacks
  serve             run the HTTP API
`

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("xplore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText+"\nflags:\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.workspace, "workspace", "", "Local workspace directory (overrides workspace.dir)")
	fs.StringVar(&opts.tagsFile, "tags", "", "Tag feed NDJSON file (overrides tags.file)")
	fs.StringVar(&opts.path, "path", "", "Active file the command runs from")
	fs.IntVar(&opts.line, "line", 0, "Active line within -path")
	fs.StringVar(&opts.scope, "scope", "workspace", "Scope for refs and symbols: file or workspace")
	fs.IntVar(&opts.limit, "limit", 50, "Maximum number of symbols to print")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	fs.BoolVar(&opts.ui, "ui", false, "Pick among ambiguous results in a terminal UI")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.args = fs.Args()

	if err := validateOptions(opts); err != nil {
		fmt.Fprintln(stderr, err.Error())
		if len(opts.args) == 0 {
			fs.Usage()
		}
		return cliOptions{}, err
	}
	return opts, nil
}

func validateOptions(opts cliOptions) error {
	if opts.scope != "file" && opts.scope != "workspace" {
		return fmt.Errorf("-scope must be file or workspace, got %q", opts.scope)
	}
	if opts.line < 0 {
		return fmt.Errorf("-line must be non-negative")
	}
	if opts.line > 0 && opts.path == "" {
		return fmt.Errorf("-line requires -path")
	}
	if !opts.version && len(opts.args) == 0 {
		return fmt.Errorf("a command is required")
	}
	return nil
}

// command returns the normalized command name and its operands.
func (o cliOptions) command() (string, []string) {
	if len(o.args) == 0 {
		return "", nil
	}
	name := strings.ToLower(o.args[0])
	switch name {
	case "definition":
		name = "def"
	case "declaration":
		name = "decl"
	case "implementations":
		name = "impl"
	case "references":
		name = "refs"
	}
	return name, o.args[1:]
}
