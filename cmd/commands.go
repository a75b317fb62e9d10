package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pacta-app/tableview/internal/cel"
	"github.com/pacta-app/tableview/internal/config"
	"github.com/pacta-app/tableview/internal/server"
	"github.com/pacta-app/tableview/pkg/logger"
	"github.com/pacta-app/tableview/pkg/settings"
)

func versionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)",
		settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tableview version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the tableview configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	get := &cobra.Command{
		Use:   "get",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeConfig(cmd, o.cfg, format)
		},
	}
	get.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml|json|toml")
	_ = get.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"yaml", "json", "toml"}, cobra.ShellCompDirectiveNoFileComp))

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := config.ResolvePath(o.configFile)
			if p == "" {
				p = "(built-in defaults)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	cfgCmd.AddCommand(get, path)
	return cfgCmd
}

func writeConfig(cmd *cobra.Command, cfg config.Config, format string) error {
	raw, err := cfg.YAML()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if format == "yaml" {
		_, err := out.Write(raw)
		return err
	}

	var obj map[string]any
	if err := yaml.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(obj, "", "  ")
		data = append(data, '\n')
	case "toml":
		data, err = toml.Marshal(obj)
	default:
		return fmt.Errorf("invalid output for config: %s (use yaml|json|toml)", format)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the table as a page that works without scripts",
		Long: `serve renders the table on every request. Sorting, search, filters,
pagination, refresh and export are plain links and form submissions, so the
page state lives entirely in the URL.`,
		Example: "  tableview serve clientes.csv --addr 127.0.0.1:8080",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := o.resolveSource(cmd, args)
			if errors.Is(err, errShowHelp) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			pred, err := compileWhere(o.where)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = o.cfg.Server.Addr
			}

			ctx := cmd.Context()
			srv := server.New(server.Options{
				Source:    src,
				Page:      o.pageOptions(),
				Table:     o.cfg.TableOptions(),
				Predicate: pred,
				Now:       o.now,
				Logger:    *logger.FromContext(ctx),
			})
			out := cmd.OutOrStdout()
			return srv.ListenAndServe(ctx, addr, func(a net.Addr) {
				fmt.Fprintf(out, "serving %s on http://%s/\n", o.pageOptions().TableID, a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions available to --where",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := cel.NewEvaluator()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, fn := range ev.Functions() {
				if _, err := fmt.Fprintln(out, fn); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
