// Package cli wires the whisperctl command tree: resolve deployment
// parameters for a Whisper model size, fetch the auxiliary assets, fill
// the Triton config templates and launch the inference server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"whisperctl/internal/assets"
	"whisperctl/internal/common/fsutil"
	"whisperctl/internal/config"
	"whisperctl/internal/deploy"
	"whisperctl/internal/httpapi"
	"whisperctl/internal/launcher"
	"whisperctl/internal/params"
	"whisperctl/internal/pbtxt"
	"whisperctl/internal/preflight"
	"whisperctl/pkg/types"
)

// state carries the effective settings for one invocation: persistent
// flag values plus the loaded config file. Flags win over the file, the
// file wins over built-in defaults.
type state struct {
	configPath string
	logLevel   string
	cfg        config.Config
	log        zerolog.Logger
}

// exitCodeError carries a specific process exit status to Main, used to
// propagate the inference server's own exit code.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// resolveParams applies the config file's path overrides on top of the
// fixed defaults. Unknown sizes resolve permissively to 80 mel channels;
// the warning is the only trace.
func (st *state) resolveParams(modelSize string) types.DeploymentParams {
	if !params.IsKnown(modelSize) {
		st.log.Warn().Str("model_size", modelSize).Msg("unknown model size, assuming 80 mel channels")
	}
	return params.ResolveWith(modelSize, params.Overrides{
		ModelRepo:  st.cfg.ModelRepo,
		EngineRoot: st.cfg.EngineRoot,
	})
}

func (st *state) assetsFor(modelRepo string) []assets.Asset {
	return assets.DefaultsWith(modelRepo, assets.Overrides{
		TokenizerURL:  st.cfg.TokenizerURL,
		MelFiltersURL: st.cfg.MelFiltersURL,
	})
}

// buildRootCmdWith constructs the Cobra command tree bound to st.
func buildRootCmdWith(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:           "whisperctl",
		Short:         "Prepare and launch Whisper deployments on Triton",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", envStr("WHISPERCTL_CONFIG", ""), "Path to a YAML, JSON or TOML config file")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", envStr("WHISPERCTL_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if st.configPath != "" {
			path, err := fsutil.ExpandHome(st.configPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			st.cfg = cfg
		}
		if !root.PersistentFlags().Changed("log-level") && st.cfg.LogLevel != "" {
			st.logLevel = st.cfg.LogLevel
		}
		st.log = newLogger(st.logLevel)
		httpapi.SetLogger(st.log)
		httpapi.SetCORSOptions(st.cfg.CORSEnabled, st.cfg.CORSOrigins, nil, nil)
		return nil
	}

	// launch
	var (
		launchVerbose      int
		launchAwait        bool
		launchStatusAddr   string
		launchReadyTimeout time.Duration
		launchSkipFill     bool
	)
	launchCmd := &cobra.Command{
		Use:   "launch <model-size>",
		Short: "Fetch assets, fill the config templates and run the inference server",
		Example: "  whisperctl launch large-v3 --await-ready --status-addr :9090\n" +
			"  whisperctl launch base -- --log-format=ISO8601",
		Args: func(cmd *cobra.Command, args []string) error {
			n := len(args)
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				n = at
			}
			if n != 1 {
				return fmt.Errorf("launch requires exactly one model size, e.g. large-v3")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				extra = args[at:]
				args = args[:at]
			}
			p := st.resolveParams(args[0])
			d := deploy.New(p, deploy.Options{
				TritonBin:         st.cfg.TritonBin,
				LogVerbose:        launchVerbose,
				ExtraArgs:         extra,
				FillerPython:      st.cfg.FillerPython,
				FillerScript:      st.cfg.FillerScript,
				Assets:            st.assetsFor(p.ModelRepo),
				AwaitReady:        launchAwait,
				HealthURL:         st.cfg.HealthURL,
				ReadyTimeout:      launchReadyTimeout,
				SkipFillOnMissing: launchSkipFill,
				OnAssets:          recordFetchedAssets,
			}, st.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := launchStatusAddr
			if addr == "" {
				addr = st.cfg.StatusAddr
			}
			if addr != "" {
				srv := httpapi.NewServer(addr, d)
				go func() {
					if err := srv.Run(ctx); err != nil {
						st.log.Error().Err(err).Str("addr", addr).Msg("status api stopped")
					}
				}()
			}

			err := d.Run(ctx)
			recordFailure(err)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if code, ok := launcher.ExitCode(err); ok {
				st.log.Error().Int("exit_code", code).Msg("inference server failed")
				return exitCodeError{code: code}
			}
			return err
		},
	}
	launchCmd.Flags().IntVar(&launchVerbose, "log-verbose", envInt("WHISPERCTL_LOG_VERBOSE", launcher.DefaultLogVerbose), "Triton --log-verbose level")
	launchCmd.Flags().BoolVar(&launchAwait, "await-ready", envBool("WHISPERCTL_AWAIT_READY", false), "Poll the health endpoint and log when the server reports ready")
	launchCmd.Flags().StringVar(&launchStatusAddr, "status-addr", envStr("WHISPERCTL_STATUS_ADDR", ""), "Serve the status API on this address while the server runs")
	launchCmd.Flags().DurationVar(&launchReadyTimeout, "ready-timeout", 10*time.Minute, "Give up on --await-ready after this long")
	launchCmd.Flags().BoolVar(&launchSkipFill, "skip-fill-on-missing", false, "Skip config templates that do not exist instead of failing")
	root.AddCommand(launchCmd)

	// fetch
	var fetchVerify bool
	fetchCmd := &cobra.Command{
		Use:     "fetch",
		Short:   "Download the tokenizer vocabulary and mel filter bank if missing",
		Example: "  whisperctl fetch --verify",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := st.cfg.ModelRepo
			if repo == "" {
				repo = params.DefaultModelRepo
			}
			as := st.assetsFor(repo)
			sts, err := assets.NewFetcher(nil, st.log).EnsureAll(cmd.Context(), as)
			recordFetchedAssets(sts)
			if err != nil {
				httpapi.RecordStepFailure("fetch")
				return err
			}
			if fetchVerify {
				return verifyAssets(st, as)
			}
			return nil
		},
	}
	fetchCmd.Flags().BoolVar(&fetchVerify, "verify", false, "Validate the fetched files structurally")
	root.AddCommand(fetchCmd)

	// fill
	var fillPrintOnly bool
	fillCmd := &cobra.Command{
		Use:     "fill <model-size>",
		Short:   "Substitute deployment parameters into the Triton config templates",
		Example: "  whisperctl fill large-v3\n  whisperctl fill base --print-only",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := st.resolveParams(args[0])
			filler := pbtxt.NewFiller(st.cfg.FillerPython, st.cfg.FillerScript, st.log)
			if fillPrintOnly {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, strings.Join(filler.Command(pbtxt.WhisperTemplate(p.ModelRepo), pbtxt.WhisperPairs(p)), " "))
				fmt.Fprintln(out, strings.Join(filler.Command(pbtxt.BLSTemplate(p.ModelRepo), pbtxt.BLSPairs(p)), " "))
				return nil
			}
			if err := filler.FillAll(cmd.Context(), p.ModelRepo, p); err != nil {
				httpapi.RecordStepFailure("fill")
				return err
			}
			return nil
		},
	}
	fillCmd.Flags().BoolVar(&fillPrintOnly, "print-only", false, "Print the filler command lines without running them")
	root.AddCommand(fillCmd)

	// resolve
	var resolveOutput string
	resolveCmd := &cobra.Command{
		Use:     "resolve <model-size>",
		Short:   "Print the deployment parameters for a model size",
		Example: "  whisperctl resolve large-v3\n  whisperctl resolve base -o toml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := st.resolveParams(args[0])
			out, err := encodeParams(p, resolveOutput)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "json", "Output format: json|yaml|toml")
	root.AddCommand(resolveCmd)

	// check
	var checkJSON bool
	checkCmd := &cobra.Command{
		Use:     "check <model-size>",
		Short:   "Run the preflight checks for a deployment",
		Example: "  whisperctl check large-v3 --json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := st.resolveParams(args[0])
			rep := preflight.Run(preflight.Input{
				Params:       p,
				TritonBin:    st.cfg.TritonBin,
				FillerPython: st.cfg.FillerPython,
				FillerScript: st.cfg.FillerScript,
				Assets:       st.assetsFor(p.ModelRepo),
			})
			if checkJSON {
				b, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			} else {
				printReport(cmd.OutOrStdout(), rep)
			}
			if !rep.OK {
				return fmt.Errorf("preflight failed for %s", args[0])
			}
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the report as JSON")
	root.AddCommand(checkCmd)

	// completion
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// verifyAssets validates the on-disk assets structurally: the vocabulary
// must parse as a tiktoken rank file, the filter bank must carry both
// the 80 and 128 channel banks the upstream file ships.
func verifyAssets(st *state, as []assets.Asset) error {
	for _, a := range as {
		switch a.Name {
		case assets.TokenizerName:
			n, err := assets.VerifyVocab(a.Path())
			if err != nil {
				return err
			}
			st.log.Info().Int("ranks", n).Str("path", a.Path()).Msg("vocabulary verified")
		case assets.MelFiltersName:
			for _, mels := range []int{80, 128} {
				if err := assets.VerifyMelFilters(a.Path(), mels); err != nil {
					return err
				}
			}
			st.log.Info().Str("path", a.Path()).Msg("mel filter bank verified")
		}
	}
	return nil
}

func encodeParams(p types.DeploymentParams, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(p)
	case "toml":
		return toml.Marshal(p)
	default:
		return nil, fmt.Errorf("unsupported output format: %s (want json, yaml or toml)", format)
	}
}

func printReport(w io.Writer, rep preflight.Report) {
	for _, c := range rep.Checks {
		mark := "ok  "
		switch {
		case !c.OK && c.Warn:
			mark = "warn"
		case !c.OK:
			mark = "FAIL"
		}
		if c.Detail != "" {
			fmt.Fprintf(w, "%s %s (%s)\n", mark, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.Name)
		}
	}
}

func recordFetchedAssets(sts []types.AssetStatus) {
	for _, s := range sts {
		if s.Fetched {
			httpapi.RecordAssetFetched(s.Name)
		}
	}
}

// recordFailure classifies a pipeline error onto the step counter.
func recordFailure(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	switch {
	case assets.IsFetchError(err):
		httpapi.RecordStepFailure("fetch")
	case pbtxt.IsFillError(err):
		httpapi.RecordStepFailure("fill")
	default:
		httpapi.RecordStepFailure("launch")
	}
}

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s := strings.ToLower(v)
	return s == "1" || s == "true" || s == "yes"
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

// MainWithArgs is a testable variant of Main that accepts args
// explicitly. It returns an exit code (0 for success, non-zero on
// error); a server launched by the launch command contributes its own
// exit status.
func MainWithArgs(args []string) int {
	st := &state{}
	root := buildRootCmdWith(st)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			return ec.code
		}
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/whisperctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
