package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/trustgate/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate the organization policy",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a policy file, reporting every problem at once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("policy")
		if path == "" {
			path = cfg.Policy.Path
		}
		if path == "" {
			return eris.New("policy: --policy path is required for validation")
		}

		_, err := policy.Load(path)
		if err == nil {
			fmt.Printf("%s: valid\n", path)
			return nil
		}

		var verr *policy.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("%s: %d validation error(s)\n", path, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  %-40s %s\n", fe.Field, fe.Message)
			}
		}
		return err
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective policy after merging with defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("policy")
		if path == "" {
			path = cfg.Policy.Path
		}
		pol, err := policy.Load(path)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return eris.Wrap(enc.Encode(pol), "policy: encode effective policy")
	},
}

func init() {
	policyCmd.PersistentFlags().String("policy", "", "policy file path (default from config)")
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}
