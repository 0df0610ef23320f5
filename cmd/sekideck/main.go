package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/waabox/sekideck/internal/config"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

type repoArg struct {
	Repo string `arg:"" help:"Repository as org/name."`
}

type tuiCmd struct {
	Repo string `arg:"" optional:"" help:"Repository as org/name. Defaults to the origin remote of the current directory."`
}

type serveCmd struct {
	Addr string `help:"Listen address. Overrides [server] addr."`
}

type viewCmd struct {
	Repo   string `arg:"" help:"Repository as org/name."`
	Stage  string `short:"s" enum:"staging,production,both" default:"both" help:"Stage to show (${enum})."`
	Latest bool   `help:"Show the newest pipeline of the stage instead of the resolved version."`
	Output string `short:"o" enum:"text,json,yaml" default:"text" help:"Output format (${enum})."`
}

type tagsCmd struct {
	Repo  string `arg:"" help:"Repository as org/name."`
	Order string `enum:"date,semver" default:"date" help:"Tag order (${enum})."`
}

type historyCmd struct {
	Repo  string `arg:"" help:"Repository as org/name."`
	Limit int    `short:"n" default:"20" help:"Number of pipelines to list."`
}

type favoritesCmd struct {
	List   struct{} `cmd:"" default:"1" help:"List favorites."`
	Add    repoArg  `cmd:"" help:"Pin a repository."`
	Remove repoArg  `cmd:"" help:"Unpin a repository."`
	Toggle repoArg  `cmd:"" help:"Pin or unpin a repository."`
}

type initCmd struct {
	SekiURL string `name:"seki-url" required:"" help:"Base URL of the pipeline status API."`
	Host    string `enum:"github,gitlab,local" default:"github" help:"Default code host (${enum})."`
	Org     string `help:"Default organization for repository listing."`
	Force   bool   `help:"Overwrite an existing config file."`
}

// CLI is the sekideck command line.
type CLI struct {
	Config string `type:"path" help:"Path to the config file." placeholder:"PATH"`
	Env    string `type:"path" default:".env" help:"Path to a .env file loaded before the config."`

	Tui       tuiCmd       `cmd:"" default:"withargs" help:"Open the terminal dashboard."`
	Serve     serveCmd     `cmd:"" help:"Serve the JSON API."`
	View      viewCmd      `cmd:"" help:"Print the pipeline of a repository."`
	Tags      tagsCmd      `cmd:"" help:"List the tags of a repository."`
	History   historyCmd   `cmd:"" help:"List recent pipelines of a repository."`
	Favorites favoritesCmd `cmd:"" help:"Manage pinned repositories."`
	Init      initCmd      `cmd:"" help:"Write a config file."`
	Version   struct{}     `cmd:"" help:"Print version information."`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sekideck: %v\n", err)
		os.Exit(1)
	}
}

// commandName strips positional placeholders from a kong command path,
// so "favorites add <repo>" becomes "favorites add".
func commandName(path string) string {
	var words []string
	for _, w := range strings.Fields(path) {
		if strings.HasPrefix(w, "<") {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func run(args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("sekideck"),
		kong.Description("Deployment dashboard for staging and production pipelines."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.Writers(stdout, os.Stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	name := commandName(kctx.Command())
	if name == "version" {
		fmt.Fprintln(stdout, "sekideck", version)
		return nil
	}

	if err := config.LoadDotEnv(cli.Env); err != nil {
		return err
	}
	configPath := cli.Config
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if name == "init" {
		return runInit(cli.Init, configPath, stdout)
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, stdout, name == "tui")
	if err != nil {
		return err
	}
	defer a.close()

	switch name {
	case "tui":
		return a.runTUI(cli.Tui)
	case "serve":
		return a.runServe(cli.Serve)
	case "view":
		return a.runView(cli.View)
	case "tags":
		return a.runTags(cli.Tags)
	case "history":
		return a.runHistory(cli.History)
	case "favorites list":
		return a.runFavoritesList()
	case "favorites add":
		return a.runFavoritesAdd(cli.Favorites.Add.Repo)
	case "favorites remove":
		return a.runFavoritesRemove(cli.Favorites.Remove.Repo)
	case "favorites toggle":
		return a.runFavoritesToggle(cli.Favorites.Toggle.Repo)
	default:
		return kctx.PrintUsage(true)
	}
}

func runInit(cmd initCmd, path string, stdout io.Writer) error {
	if _, err := os.Stat(path); err == nil && !cmd.Force {
		return fmt.Errorf("%s already exists: use --force to overwrite", path)
	}
	cfg := config.Config{
		Seki: config.SekiConfig{URL: cmd.SekiURL},
		Host: cmd.Host,
		Org:  cmd.Org,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Config written to %s\n", path)
	return nil
}
