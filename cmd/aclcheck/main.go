package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webstead/aclengine/internal/acl"
	"github.com/webstead/aclengine/internal/aclspec"
	"github.com/webstead/aclengine/internal/las"
	"github.com/webstead/aclengine/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "aclcheck"
)

var (
	red    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
)

// exit code 2 distinguishes "evaluated and denied" from hard failures.
var errDenied = errors.New("denied")

var rootCmd = &cobra.Command{
	Use:     "aclcheck",
	Short:   "Evaluate access-control policies from the command line",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval [rights...]",
	Short: "Evaluate rights against the loaded policies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := aclspec.LoadDir(viper.GetString("policies"))
		if err != nil {
			return err
		}
		defer list.Release()
		cmd.SilenceUsage = true

		engine := acl.NewEngine()
		las.RegisterAll(engine.Registry())

		subject := acl.NewPList()
		if u, _ := cmd.Flags().GetString("user"); u != "" {
			subject.Set(las.FactUser, u)
		}
		if g, _ := cmd.Flags().GetStringSlice("groups"); len(g) > 0 {
			subject.Set(las.FactGroups, g)
		}
		facts, _ := cmd.Flags().GetStringToString("fact")
		for k, v := range facts {
			subject.Set(k, v)
		}

		resource := acl.NewPList()
		if ip, _ := cmd.Flags().GetString("ip"); ip != "" {
			resource.Set(las.FactIP, ip)
		}
		if host, _ := cmd.Flags().GetString("dns"); host != "" {
			resource.Set(las.FactDNS, host)
		}

		defaultResult := acl.DecisionDeny
		if d, _ := cmd.Flags().GetString("default"); d == "allow" {
			defaultResult = acl.DecisionAllow
		}

		verdict, err := engine.Authorize(list, subject, resource, args, defaultResult)
		if err != nil {
			return err
		}
		printVerdict(cmd, args, verdict)
		if verdict.Decision != acl.DecisionAllow {
			cmd.SilenceErrors = true
			return errDenied
		}
		return nil
	},
}

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List the ACL names defined by the loaded policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := aclspec.LoadDir(viper.GetString("policies"))
		if err != nil {
			return err
		}
		defer list.Release()
		cmd.SilenceUsage = true

		for _, name := range list.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func printVerdict(cmd *cobra.Command, rights []string, v *acl.Verdict) {
	out := cmd.OutOrStdout()

	decision := red(strings.ToUpper(v.Decision.String()))
	switch v.Decision {
	case acl.DecisionAllow:
		decision = green("ALLOW")
	case acl.DecisionFail, acl.DecisionInvalid:
		decision = yellow(strings.ToUpper(v.Decision.String()))
	}

	fmt.Fprintf(out, "%s  %s\n", decision, cyan(strings.Join(rights, " ")))
	if v.ACLTag != "" {
		fmt.Fprintf(out, "  acl: %s, clause: %d\n", v.ACLTag, v.ACESeq)
	}
	if v.Decision != acl.DecisionAllow && v.DenyResponse != "" {
		fmt.Fprintf(out, "  response (%s): %s\n", v.DenyType, v.DenyResponse)
	}
	fmt.Fprintf(out, "  cacheable: %s\n", v.Cacheability)
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("policies", "p", ".", "Directory containing *.acl.yaml policy files")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	evalCmd.Flags().SortFlags = false
	evalCmd.Flags().StringP("user", "u", "", "Authenticated user name")
	evalCmd.Flags().StringSliceP("groups", "g", nil, "Group memberships of the user")
	evalCmd.Flags().String("ip", "", "Client IP address")
	evalCmd.Flags().String("dns", "", "Client DNS name")
	evalCmd.Flags().StringToString("fact", nil, "Extra subject facts as key=value")
	evalCmd.Flags().String("default", "deny", "Result for rights no clause mentions (allow|deny)")

	rootCmd.AddCommand(evalCmd, namesCmd)
}

func main() {
	verbose := false
	for _, a := range os.Args[1:] {
		if a == "-v" || a == "--verbose" {
			verbose = true
		}
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errDenied) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(home, ".config/aclcheck"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("policies", cmd.Flags().Lookup("policies"))

	viper.SetEnvPrefix("ACLCHECK")
	viper.AutomaticEnv()

	return nil
}
