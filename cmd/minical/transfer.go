package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minical/internal/config"
	"minical/internal/ics"
	appLog "minical/internal/log"
	"minical/internal/storage"
	"minical/internal/store"
)

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored calendar as an iCalendar document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			payload := ics.Export(st.All())
			if out == "" || out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), payload)
				return err
			}
			return os.WriteFile(out, []byte(payload), 0o600)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output path ('-' for stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Import events from an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := ics.Import(f)
			if err != nil {
				return err
			}

			imported, rejected := 0, 0
			for _, draft := range res.Drafts {
				if _, err := st.Add(cmd.Context(), draft); err != nil {
					appLog.Error("import: event rejected", err, "name", draft.Name)
					rejected++
					continue
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, rejected %d\n",
				imported, res.Skipped, rejected)
			return nil
		},
	}
	return cmd
}

// openStore loads the config and opens the persistence backend plus the
// event store for one-shot subcommands.
func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, err
	}
	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cmd.Context(), backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return st, func() { backend.Close() }, nil
}
