package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/schemafile"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/schema/openapi"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	command   string
	args      []string
	schema    string
	values    string
	overrides string
	sets      []string
	project   bool
	format    schemafile.Format
	logLevel  slog.Level
	engine    string
	actor     string

	// openapi
	groupComponents bool
	rootComponent   string
	title           string

	// effective
	store     string
	domain    string
	projectID string
}

var commands = map[string]func(context.Context, options, *slog.Logger, io.Writer) error{
	"values":    valuesCmd,
	"overrides": overridesCmd,
	"describe":  describeCmd,
	"openapi":   openapiCmd,
	"trace":     traceCmd,
	"effective": effectiveCmd,
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr, nil)
		return fmt.Errorf("command is required")
	}
	command := args[0]
	if command == "-h" || command == "--help" || command == "help" {
		printUsage(stderr, nil)
		return pflag.ErrHelp
	}
	handler, ok := commands[command]
	if !ok {
		printUsage(stderr, nil)
		return fmt.Errorf("unknown command: %s", command)
	}

	opts, err := parseOptions(command, args[1:], stderr)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.logLevel}))
	return handler(context.Background(), opts, logger, stdout)
}

func parseOptions(command string, args []string, stderr io.Writer) (options, error) {
	opts := options{command: command}
	var format, logLevel string

	flagSet := pflag.NewFlagSet("settingsctl "+command, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.schema, "schema", "", "schema file (.json, .jsonc, .yaml)")
	flagSet.StringVar(&opts.values, "values", "", "stored values document")
	flagSet.StringVar(&opts.overrides, "overrides", "", "project override document, implies --project")
	flagSet.StringArrayVar(&opts.sets, "set", nil, "edit a setting as path=value, repeatable")
	flagSet.BoolVar(&opts.project, "project", false, "edit in an overridable project session")
	flagSet.StringVar(&format, "format", "json", "output format: json or yaml")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flagSet.StringVar(&opts.engine, "engine", "expr", "validation rule engine: expr, cel or js")
	flagSet.StringVar(&opts.actor, "actor", "", "actor recorded on activity events")
	flagSet.BoolVar(&opts.groupComponents, "group-components", false, "openapi: publish every group under components")
	flagSet.StringVar(&opts.rootComponent, "root-component", "", "openapi: publish the values document under this component name")
	flagSet.StringVar(&opts.title, "title", "", "openapi: document title")
	flagSet.StringVar(&opts.store, "store", "", "effective: directory of the file store")
	flagSet.StringVar(&opts.domain, "domain", "", "effective: settings domain")
	flagSet.StringVar(&opts.projectID, "project-id", "", "effective: project whose overrides are layered on top")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	opts.args = flagSet.Args()

	if opts.schema == "" {
		return options{}, fmt.Errorf("--schema is required")
	}
	parsedFormat, err := schemafile.ParseFormat(format)
	if err != nil {
		return options{}, err
	}
	opts.format = parsedFormat
	if err := opts.logLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return options{}, fmt.Errorf("--log-level: %w", err)
	}
	if opts.overrides != "" {
		opts.project = true
	}
	return opts, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `settingsctl inspects and edits settings documents.

Usage:
  settingsctl <command> --schema FILE [flags]

Commands:
  values     print the full values document
  overrides  print the sparse override document
  describe   list every field with its group boundary
  openapi    print an OpenAPI document of the values document
  trace      report the provenance of one path
  effective  resolve defaults, studio values and project overrides from a store
`)
	if flagSet != nil {
		fmt.Fprintf(w, "\nFlags:\n")
		flagSet.PrintDefaults()
	}
}

// buildTree loads the schema, the stored values and the overrides, then
// applies the --set edits in order.
func buildTree(opts options, logger *slog.Logger) (*settings.Tree, error) {
	schema, err := schemafile.LoadSchema(opts.schema)
	if err != nil {
		return nil, err
	}
	var values settings.Document
	if opts.values != "" {
		if values, err = schemafile.LoadDocument(opts.values); err != nil {
			return nil, err
		}
	}
	evaluator, err := settings.EvaluatorByName(opts.engine, settings.NewMemoryProgramCache(), nil)
	if err != nil {
		return nil, err
	}

	tree, err := settings.Build(schema, values,
		settings.WithOverridable(opts.project),
		settings.WithEvaluator(evaluator),
		settings.WithLogger(logger),
		settings.WithActor(opts.actor),
		settings.WithActivityHooks(activity.Hooks{logHook(logger)}),
	)
	if err != nil {
		return nil, err
	}

	if opts.overrides != "" {
		overrides, err := schemafile.LoadDocument(opts.overrides)
		if err != nil {
			return nil, err
		}
		if err := tree.ApplyOverrides(overrides); err != nil {
			return nil, err
		}
	}

	assignments, err := parseAssignments(opts.sets)
	if err != nil {
		return nil, err
	}
	for _, assignment := range assignments {
		if err := tree.Set(assignment.path, assignment.value); err != nil {
			return nil, err
		}
	}
	if tree.Invalid() {
		logger.Warn("settings hold invalid values")
	}
	return tree, nil
}

func logHook(logger *slog.Logger) activity.HookFunc {
	return func(_ context.Context, event activity.Event) error {
		logger.Debug("settings activity", "verb", event.Verb, "object", event.ObjectID, "actor", event.ActorID)
		return nil
	}
}

type assignment struct {
	path  settings.Path
	value any
}

// parseAssignments splits path=value pairs. Values are read as YAML scalars
// or flow collections, so 24, true, [exr, png] and {a: 1} keep their types.
func parseAssignments(sets []string) ([]assignment, error) {
	out := make([]assignment, 0, len(sets))
	for _, set := range sets {
		path, raw, ok := strings.Cut(set, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("--set %q: expected path=value", set)
		}
		var value any
		if strings.TrimSpace(raw) != "" {
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return nil, fmt.Errorf("--set %q: %w", set, err)
			}
		}
		if value == nil {
			value = raw
		}
		out = append(out, assignment{path: settings.ParsePath(path), value: normalizeValue(value)})
	}
	return out, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, item := range typed {
			typed[key] = normalizeValue(item)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range typed {
			typed[i] = normalizeValue(item)
		}
		return typed
	default:
		return value
	}
}

func valuesCmd(_ context.Context, opts options, logger *slog.Logger, stdout io.Writer) error {
	tree, err := buildTree(opts, logger)
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, tree.Values(), opts.format)
}

func overridesCmd(_ context.Context, opts options, logger *slog.Logger, stdout io.Writer) error {
	if !opts.project {
		return fmt.Errorf("overrides requires --project or --overrides")
	}
	tree, err := buildTree(opts, logger)
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, tree.Overrides(), opts.format)
}

func describeCmd(_ context.Context, opts options, logger *slog.Logger, stdout io.Writer) error {
	tree, err := buildTree(opts, logger)
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, tree.Describe(), opts.format)
}

func openapiCmd(_ context.Context, opts options, _ *slog.Logger, stdout io.Writer) error {
	schema, err := schemafile.LoadSchema(opts.schema)
	if err != nil {
		return err
	}
	generatorOptions := []openapi.GeneratorOption{openapi.WithInfo(opts.title, "", "")}
	if opts.groupComponents {
		generatorOptions = append(generatorOptions, openapi.WithGroupComponents())
	}
	if opts.rootComponent != "" {
		generatorOptions = append(generatorOptions, openapi.WithRootComponent(opts.rootComponent))
	}
	doc, err := openapi.NewGenerator(generatorOptions...).Generate(schema)
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, doc.Document, opts.format)
}

func traceCmd(_ context.Context, opts options, logger *slog.Logger, stdout io.Writer) error {
	if len(opts.args) != 1 {
		return fmt.Errorf("trace expects exactly one path")
	}
	tree, err := buildTree(opts, logger)
	if err != nil {
		return err
	}
	trace, err := tree.Trace(settings.ParsePath(opts.args[0]))
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, trace, opts.format)
}

func effectiveCmd(ctx context.Context, opts options, logger *slog.Logger, stdout io.Writer) error {
	if opts.store == "" || opts.domain == "" {
		return fmt.Errorf("effective requires --store and --domain")
	}
	schema, err := schemafile.LoadSchema(opts.schema)
	if err != nil {
		return err
	}
	resolver := state.Resolver{
		Store:   state.NewFileStore(opts.store),
		Options: []settings.Option{settings.WithLogger(logger)},
	}
	doc, err := resolver.Effective(ctx, state.Ref{Domain: opts.domain, Project: opts.projectID}, schema)
	if err != nil {
		return err
	}
	return schemafile.WriteDocument(stdout, doc, opts.format)
}
