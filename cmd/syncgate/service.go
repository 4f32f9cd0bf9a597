package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// gatewayService adapts the run loop to the service manager interface.
// Stop needs no work of its own: the manager delivers SIGTERM and the
// run loop shuts down on it.
type gatewayService struct {
	run func() error
}

func (s *gatewayService) Start(_ service.Service) error {
	if s.run == nil {
		return fmt.Errorf("service has no run target")
	}
	go func() {
		if err := s.run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}()
	return nil
}

func (s *gatewayService) Stop(_ service.Service) error { return nil }

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "syncgate",
		DisplayName: "syncgate",
		Description: "Offline-first gateway for the duewell invoicing app.",
	}
}

var svc service.Service

// addServiceCommands wires the `syncgate service` management group:
// install, uninstall, start, stop, restart, status.
func addServiceCommands(root *cobra.Command) {
	var cfgPath string

	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage syncgate as a system service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			scfg := serviceConfig()
			scfg.Arguments = []string{"--as-service"}
			if cfgPath != "" {
				abs, err := filepath.Abs(cfgPath)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				scfg.Arguments = append(scfg.Arguments, "--config", abs)
			}
			s, err := service.New(&gatewayService{}, scfg)
			if err != nil {
				return fmt.Errorf("init service: %w", err)
			}
			svc = s
			return nil
		},
	}
	serviceCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file the installed service loads")

	serviceCmd.AddCommand(
		newSvcInstallCmd(),
		newSvcUninstallCmd(),
		newSvcStartCmd(),
		newSvcStopCmd(),
		newSvcRestartCmd(),
		newSvcStatusCmd(),
	)
	root.AddCommand(serviceCmd)
}

func newSvcInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [-c config_file]",
		Short: "Install syncgate as a system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.Install(); err != nil {
				return fmt.Errorf("install service: %w", err)
			}
			cmd.Println("service installed")
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}

func newSvcUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the syncgate service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("uninstall service: %w", err)
			}
			cmd.Println("service uninstalled")
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}

func newSvcStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the syncgate service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.Start(); err != nil {
				return fmt.Errorf("start service: %w", err)
			}
			cmd.Println("service started")
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}

func newSvcStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the syncgate service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.Stop(); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			cmd.Println("service stopped")
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}

func newSvcRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the syncgate service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.Restart(); err != nil {
				return fmt.Errorf("restart service: %w", err)
			}
			cmd.Println("service restarted")
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}

func newSvcStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the syncgate service status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := svc.Status()
			if err != nil {
				return fmt.Errorf("query service status: %w", err)
			}
			switch status {
			case service.StatusRunning:
				cmd.Println("running")
			case service.StatusStopped:
				cmd.Println("stopped")
			default:
				cmd.Println("unknown")
			}
			return nil
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
}
