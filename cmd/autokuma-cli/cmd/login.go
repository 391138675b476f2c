package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newLoginCmd() *cobra.Command {
	var storeToken bool

	c := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the Uptime Kuma server and cache the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			defer sess.Close()

			// Credential logins cache their token automatically; a
			// pre-supplied --token only gets persisted when asked to.
			if storeToken {
				if token := viper.GetString("token"); token != "" {
					if err := sess.StoreToken(token); err != nil {
						return fmt.Errorf("store token: %w", err)
					}
				}
			}

			fmt.Println("login succeeded")
			return nil
		},
	}
	c.Flags().BoolVar(&storeToken, "store-token", false, "Persist the session token to --data-dir for reuse by future commands")
	return c
}
