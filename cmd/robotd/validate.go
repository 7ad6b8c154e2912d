package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/robotd/internal/app"
	"github.com/dokzlo13/robotd/internal/resource"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the config and script and check the registration table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, baseDir, err := loadConfig()
			if err != nil {
				return err
			}

			asm, err := app.Assemble(cfg, baseDir)
			if err != nil {
				return err
			}
			defer asm.Close()

			out := cmd.OutOrStdout()
			rb := asm.Robot
			for _, r := range rb.Resources() {
				def := "-"
				if a := asm.Scheduler.Default(r); a != nil {
					def = a.Name()
				}
				fmt.Fprintf(out, "resource %-12s default %s\n", r.Name(), def)
			}
			for _, b := range rb.Bindings() {
				fmt.Fprintf(out, "binding  %-12s %-10s %s %v\n", b.Source(), b.Mode(), b.Action().Name(),
					resource.Names(b.Action().Requirements()))
			}
			if a := rb.Autonomous(); a != nil {
				fmt.Fprintf(out, "autonomous %s\n", a.Name())
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
