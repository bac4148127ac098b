package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/ardnew/cflat/cli/cmd"
	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/host"
	"github.com/ardnew/cflat/log"
	"github.com/ardnew/cflat/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config.yaml"

// CLI is the top-level command-line interface for cflat.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	IncludePath []string         `help:"Directory searched for included files"             name:"include-path" short:"I" type:"path"`
	EnvFile     []string         `help:"Load environment variables from file before running" name:"env-file"   short:"e" type:"existingfile"`
	Version     kong.VersionFlag `help:"Print version and exit"                             short:"V"`

	Init   cmd.Init   `cmd:"" help:"Initialize configuration file"`
	Build  cmd.Build  `cmd:"" help:"Translate a source file to Go"`
	Tokens cmd.Tokens `cmd:"" help:"Print the tokens of a source file"`
	AST    cmd.AST    `cmd:"" help:"Print the syntax tree of a source file" name:"ast"`
	Watch  cmd.Watch  `cmd:"" help:"Rerun a source file whenever it changes"`
	Repl   cmd.Repl   `cmd:"" help:"Start an interactive session"`

	Run cmd.Run `cmd:"" default:"withargs" help:"Compile and run a source file"`
}

// Run executes the cflat CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := pkg.MkdirAll(); err != nil {
		return err
	}

	configFilePath := filepath.Join(pkg.ConfigDir(), baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"version":            pkg.Name + " " + pkg.Version(),
		"goCommand":          host.DefaultGoCommand,
		"buildPackage":       codegen.DefaultPackage,
		"buildRuntime":       codegen.DefaultRuntimeImport,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, filepath.Join(pkg.ConfigDir(), "config.json")),
		kong.Configuration(resolve(cmd.ConfigSection), configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if len(cli.EnvFile) > 0 {
		if err := godotenv.Load(cli.EnvFile...); err != nil {
			return err
		}

		log.Default().DebugContext(ctx, "environment loaded",
			slog.Any("files", cli.EnvFile),
		)
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithIncludePath(ctx, cli.IncludePath)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
