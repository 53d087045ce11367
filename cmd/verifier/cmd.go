package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func CreateRootCommand() *cobra.Command {
	var logLevel string

	// rootCmd represents the base command when called without any subcommands
	rootCmd := &cobra.Command{
		Use:   "scrypt-verifier",
		Short: "Submit and look up verified sCrypt contract sources",
		Long: `scrypt-verifier is a CLI for a service that matches sCrypt smart contract source code against
on-chain locking scripts.

	scrypt-verifier lets you:
	- submit contract code (and ABI encoded constructor arguments) for a script hash or a transaction output
	- query the entries stored for a script hash or a transaction output
	- replay the bundled sample submissions
	- run the verification server itself
	`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return SetLogLevel(logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", SCRYPT_VERIFIER_LOG_LEVEL, "Log level (debug, info, warn, error)")

	versionCmd := CreateVersionCommand()
	submitCmd := CreateSubmitCommand()
	queryCmd := CreateQueryCommand()
	scenariosCmd := CreateScenariosCommand()
	serverCmd := CreateServerCommand()
	rootCmd.AddCommand(versionCmd, submitCmd, queryCmd, scenariosCmd, serverCmd)

	completionCmd := CreateCompletionCommand(rootCmd)
	rootCmd.AddCommand(completionCmd)

	return rootCmd
}

func CreateCompletionCommand(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts for scrypt-verifier",
		Long: `Generate shell completion scripts for scrypt-verifier.

The command for each shell will print a completion script to stdout. You can source this script to get
completions in your current shell session. You can add this script to the completion directory for your
shell to get completions for all future sessions.

For example, to activate bash completions in your current shell:
		$ . <(scrypt-verifier completion bash)

To add scrypt-verifier completions for all bash sessions:
		$ scrypt-verifier completion bash > /etc/bash_completion.d/scrypt-verifier_completions`,
	}

	bashCompletionCmd := &cobra.Command{
		Use:   "bash",
		Short: "bash completions for scrypt-verifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	}

	zshCompletionCmd := &cobra.Command{
		Use:   "zsh",
		Short: "zsh completions for scrypt-verifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	}

	fishCompletionCmd := &cobra.Command{
		Use:   "fish",
		Short: "fish completions for scrypt-verifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	}

	powershellCompletionCmd := &cobra.Command{
		Use:   "powershell",
		Short: "powershell completions for scrypt-verifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		},
	}

	completionCmd.AddCommand(bashCompletionCmd, zshCompletionCmd, fishCompletionCmd, powershellCompletionCmd)

	return completionCmd
}

func CreateVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of scrypt-verifier",
		Long:  `All software has versions. This is scrypt-verifier's`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(SCRYPT_VERIFIER_VERSION)
		},
	}
	return versionCmd
}

// addLocatorFlags registers the flags that make up a Locator on cmd.
func addLocatorFlags(cmd *cobra.Command, locator *Locator) {
	cmd.Flags().StringVar(&locator.Host, "host", DEFAULT_HOST, "Host of the verification server")
	cmd.Flags().IntVar(&locator.Port, "port", DEFAULT_PORT, "Port of the verification server")
	cmd.Flags().StringVar(&locator.Network, "network", DEFAULT_NETWORK, "Network (main or test)")
	cmd.Flags().StringVar(&locator.ScriptHash, "script-hash", "", "Script hash of the locking script")
	cmd.Flags().StringVar(&locator.TxID, "txid", "", "Transaction ID of the output (use together with --vout instead of --script-hash)")
	cmd.Flags().Uint32Var(&locator.Vout, "vout", 0, "Output index within --txid")
	cmd.Flags().StringVar(&locator.Version, "ver", "", "scrypt-ts version. If not specified, the server picks the latest one.")
}

func checkIdentifier(locator Locator) error {
	if locator.ScriptHash == "" && locator.TxID == "" {
		return errors.New("please specify either --script-hash or --txid/--vout")
	}
	return nil
}

// ReadCode reads contract code from codeFile or, when it is empty, from a
// piped stdin.
func ReadCode(codeFile string, stdin *os.File) (string, error) {
	if codeFile != "" {
		code, readErr := os.ReadFile(codeFile)
		if readErr != nil {
			return "", readErr
		}
		return string(code), nil
	}
	if term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("please specify contract code, either by passing --code-file or by piping it to stdin")
	}
	code, readErr := io.ReadAll(stdin)
	if readErr != nil {
		return "", readErr
	}
	return string(code), nil
}

func CreateSubmitCommand() *cobra.Command {
	var locator Locator
	var codeFile string
	var abiParams []string
	var delay time.Duration
	var noQuery bool

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit contract code for verification",
		Long: `Submit contract code for a script hash or transaction output, then query the same URL and print
both responses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkIdentifier(locator); err != nil {
				return err
			}

			code, codeErr := ReadCode(codeFile, os.Stdin)
			if codeErr != nil {
				return codeErr
			}

			submission := Submission{Code: code}
			if cmd.Flags().Changed("abi-param") {
				submission.AbiConstructorParams = append([]string{}, abiParams...)
			}

			driver, driverErr := DriverFromEnv(cmd.OutOrStdout())
			if driverErr != nil {
				return driverErr
			}

			return driver.Run(cmd.Context(), locator, submission, delay, !noQuery)
		},
	}
	addLocatorFlags(submitCmd, &locator)
	submitCmd.Flags().StringVar(&codeFile, "code-file", "", "File with the contract source. If not specified, code will be expected from stdin.")
	submitCmd.Flags().StringSliceVar(&abiParams, "abi-param", nil, "Hex encoded constructor argument (repeat for each argument, in order)")
	submitCmd.Flags().DurationVar(&delay, "delay", 0, "Time to wait between the POST and the GET request")
	submitCmd.Flags().BoolVar(&noQuery, "no-query", false, "Set this flag to skip the GET request after submitting")

	return submitCmd
}

func CreateQueryCommand() *cobra.Command {
	var locator Locator

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored entries for a script hash or transaction output",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkIdentifier(locator); err != nil {
				return err
			}

			driver, driverErr := DriverFromEnv(cmd.OutOrStdout())
			if driverErr != nil {
				return driverErr
			}

			response, queryErr := driver.Query(cmd.Context(), locator)
			if queryErr != nil {
				return queryErr
			}
			driver.print("GET", response)
			return nil
		},
	}
	addLocatorFlags(queryCmd, &locator)

	return queryCmd
}

func CreateScenariosCommand() *cobra.Command {
	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Sample submissions bundled with scrypt-verifier",
	}

	listSubcommand := &cobra.Command{
		Use:   "list",
		Short: "List bundled scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCRIPT HASH\tVERSION\tDESCRIPTION")
			for _, s := range Scenarios() {
				version := s.Version
				if version == "" {
					version = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.ScriptHash, version, s.Description)
			}
			return w.Flush()
		},
	}

	var host, network string
	var port int
	runSubcommand := &cobra.Command{
		Use:   "run <name>",
		Short: "Submit a bundled scenario and query the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, scenarioErr := LookupScenario(args[0])
			if scenarioErr != nil {
				return scenarioErr
			}
			submission, submissionErr := scenario.Submission()
			if submissionErr != nil {
				return submissionErr
			}

			driver, driverErr := DriverFromEnv(cmd.OutOrStdout())
			if driverErr != nil {
				return driverErr
			}

			return driver.Run(cmd.Context(), scenario.Locator(host, port, network), submission, scenario.Delay, true)
		},
	}
	runSubcommand.Flags().StringVar(&host, "host", DEFAULT_HOST, "Host of the verification server")
	runSubcommand.Flags().IntVar(&port, "port", DEFAULT_PORT, "Port of the verification server")
	runSubcommand.Flags().StringVar(&network, "network", DEFAULT_NETWORK, "Network (main or test)")

	scenariosCmd.AddCommand(listSubcommand, runSubcommand)

	return scenariosCmd
}

// InitServer wires the store, verifier, registry and journal described by
// serverConfig into a Server.
func InitServer(serverConfig *ServerConfig, store Store, host string, port int) (*Server, error) {
	versions, versionsErr := RegistryClientFromEnv()
	if versionsErr != nil {
		return nil, versionsErr
	}

	verifierTimeout := time.Duration(serverConfig.Verifier.TimeoutSeconds) * time.Second
	server := &Server{
		Host:          host,
		Port:          port,
		CORSWhitelist: CORSWhitelist(SCRYPT_VERIFIER_CORS_ALLOWED_ORIGINS),
		WriteTimeout:  verifierTimeout + 40*time.Second,
		Store:         store,
		Versions:      versions,
	}

	if len(serverConfig.Verifier.Command) > 0 {
		server.Verifier = &CommandVerifier{
			Command: serverConfig.Verifier.Command,
			Timeout: verifierTimeout,
		}
		RootLogger.Info().Strs("command", serverConfig.Verifier.Command).Msg("Loaded verifier")
	} else {
		RootLogger.Warn().Msg("No verifier command configured, entries will be stored unverified")
	}

	if serverConfig.JournalID != "" {
		reporter, reporterErr := InitJournalReporter(serverConfig.JournalID)
		if reporterErr != nil {
			return nil, reporterErr
		}
		server.Reporter = reporter
		RootLogger.Info().Str("journal", serverConfig.JournalID).Msg("Reporting entries to Bugout journal")
	}

	return server, nil
}

func openMigratedStore(ctx context.Context, config string) (*ServerConfig, *GormStore, error) {
	serverConfig, configErr := ReadConfig(ctx, config)
	if configErr != nil {
		return nil, nil, configErr
	}
	store, storeErr := OpenStore(serverConfig.Database)
	if storeErr != nil {
		return nil, nil, storeErr
	}
	if migrateErr := store.Migrate(); migrateErr != nil {
		store.Close()
		return nil, nil, fmt.Errorf("could not migrate database: %v", migrateErr)
	}
	return serverConfig, store, nil
}

func CreateServerCommand() *cobra.Command {
	serverCommand := &cobra.Command{
		Use:   "server",
		Short: "Contract verification API server",
	}

	var host, config string
	var port int
	runSubcommand := &cobra.Command{
		Use:   "run",
		Short: "Run API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverConfig, store, storeErr := openMigratedStore(ctx, config)
			if storeErr != nil {
				return storeErr
			}
			defer store.Close()

			server, serverErr := InitServer(serverConfig, store, host, port)
			if serverErr != nil {
				return serverErr
			}

			return server.Serve(ctx)
		},
	}
	runSubcommand.Flags().StringVar(&host, "host", "127.0.0.1", "Server listening address")
	runSubcommand.Flags().IntVar(&port, "port", DEFAULT_PORT, "Server listening port")
	runSubcommand.Flags().StringVar(&config, "config", "./config.json", "Path to server configuration file")

	seedSubcommand := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo entry into the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, storeErr := openMigratedStore(cmd.Context(), config)
			if storeErr != nil {
				return storeErr
			}
			defer store.Close()

			entry, seedErr := Seed(cmd.Context(), store)
			if seedErr != nil {
				return seedErr
			}
			cmd.Printf("Seeded entry with id: %d\n", entry.ID)
			return nil
		},
	}
	seedSubcommand.Flags().StringVar(&config, "config", "./config.json", "Path to server configuration file")

	serverCommand.AddCommand(runSubcommand, seedSubcommand)

	return serverCommand
}
