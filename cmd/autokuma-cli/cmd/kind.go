package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/autokuma/autokuma/internal/kuma"
)

// entityKinds lists every kind the CLI exposes a subcommand for, in
// kuma.DependencyOrder (§4.6.1).
var entityKinds = kuma.DependencyOrder

// pausable kinds support pause/resume in addition to the common verbs.
func pausable(k kuma.Kind) bool {
	return k == kuma.KindMonitor
}

func newKindCmd(kind kuma.Kind) *cobra.Command {
	c := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Manage %s entities", kind),
	}

	c.AddCommand(
		newListCmd(kind),
		newGetCmd(kind),
		newAddCmd(kind),
		newEditCmd(kind),
		newDeleteCmd(kind),
	)
	if pausable(kind) {
		c.AddCommand(newPauseCmd(kind), newResumeCmd(kind))
	}
	return c
}

func newListCmd(kind kuma.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List all %s entities", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			items, err := sess.List(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printOutput(items)
		},
	}
}

func newGetCmd(kind kuma.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Fetch one %s by server id", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			item, err := sess.Get(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			return printOutput(item)
		},
	}
}

func newAddCmd(kind kuma.Kind) *cobra.Command {
	var fieldsJSON string
	c := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Create a new %s from a JSON field object", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldsJSON)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			created, err := sess.Add(cmd.Context(), kind, fields)
			if err != nil {
				return err
			}
			return printOutput(created)
		},
	}
	c.Flags().StringVar(&fieldsJSON, "fields", "{}", "JSON object of fields to set")
	return c
}

func newEditCmd(kind kuma.Kind) *cobra.Command {
	var fieldsJSON string
	c := &cobra.Command{
		Use:   "edit <id>",
		Short: fmt.Sprintf("Update fields on an existing %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldsJSON)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.Edit(cmd.Context(), kind, args[0], fields)
		},
	}
	c.Flags().StringVar(&fieldsJSON, "fields", "{}", "JSON object of fields to change")
	return c
}

func newDeleteCmd(kind kuma.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s by server id", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.Delete(cmd.Context(), kind, args[0])
		},
	}
}

func newPauseCmd(kind kuma.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.Pause(cmd.Context(), kind, args[0])
		},
	}
}

func newResumeCmd(kind kuma.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.Resume(cmd.Context(), kind, args[0])
		},
	}
}

func parseFields(raw string) (kuma.Fields, error) {
	var fields kuma.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("parse --fields: %w", err)
	}
	return fields, nil
}

func printOutput(v any) error {
	switch viper.GetString("output") {
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}
