package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"difal-service/internal/config"
)

type rootOpts struct {
	envFile string
}

func root() *rootOpts {
	return &rootOpts{}
}

func (o *rootOpts) cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "difal",
		Short:         "Cálculo do DIFAL de ICMS a partir da EFD ICMS/IPI (SPED Fiscal)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&o.envFile, "env-file", ".env", "Arquivo .env carregado antes das variáveis DIFAL_*")

	cmd.AddCommand(serve(o).cmd())
	cmd.AddCommand(calc(o).cmd())

	return cmd
}

func (o *rootOpts) loadConfig() (*config.Config, error) {
	return config.Load(o.envFile)
}

func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir %s: %w", args[0], err)
	}
	return f, nil
}

func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
