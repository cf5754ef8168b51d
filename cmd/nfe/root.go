package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nfe/internal/config"
	"nfe/internal/logging"
	"nfe/internal/service"
	"nfe/internal/tui"
)

type app struct {
	cfgPath string
	logFile string
	cfg     *config.AppConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nfe",
		Short: "Consulta de notas fiscais eletrônicas (NF-e)",
		Long: `nfe extracts NF-e export bundles, builds a searchable knowledge base from
them and answers queries by invoice number, access key, issuer, items or
free text. Without a subcommand it opens the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMenu(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file path (default ./config.yaml or ~/.config/nfe/config.yaml)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(
		&cobra.Command{
			Use:   "ingest <bundle.zip>",
			Short: "Extract an NF-e bundle into the extraction directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withService(false, func(svc *service.NFeService) error {
					if _, err := svc.Ingest(cmd.Context(), args[0]); err != nil {
						return fmt.Errorf("erro ao descompactar: %w", err)
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Arquivo descompactado com sucesso!")
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "rebuild",
			Short: "Create or recreate the knowledge base",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withService(false, func(svc *service.NFeService) error {
					n, err := svc.Rebuild(cmd.Context())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "Base de conhecimento criada com %d notas fiscais.\n", n)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "query <text...>",
			Short: "Answer a query, e.g. nfe query nota 369180",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withService(false, func(svc *service.NFeService) error {
					return svc.Answer(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
				})
			},
		},
	)
	return root
}

func (a *app) loadConfig() error {
	var (
		cfg *config.AppConfig
		err error
	)
	if a.cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logFile != "" {
		cfg.Logging.File = a.logFile
	}
	a.cfg = cfg
	return nil
}

// withService builds the logger and service, runs fn and tears both down.
func (a *app) withService(interactive bool, fn func(*service.NFeService) error) error {
	newLogger := logging.New
	if interactive {
		newLogger = logging.ForTerminalUI
	}
	logger, closeLog, err := newLogger(a.cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logging.Sync(logger)
		closeLog()
	}()

	svc, err := service.New(a.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing service", zap.Error(err))
		}
	}()
	return fn(svc)
}

func (a *app) runMenu(cmd *cobra.Command) error {
	return a.withService(true, func(svc *service.NFeService) error {
		p := tea.NewProgram(tui.New(cmd.Context(), svc), tea.WithContext(cmd.Context()))
		_, err := p.Run()
		return err
	})
}
