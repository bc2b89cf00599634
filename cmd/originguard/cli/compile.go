package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/manifest"
	"github.com/tkingovr/originguard/internal/whitelist"
)

var compileManifest string

var compileCmd = &cobra.Command{
	Use:   "compile [<base-url> <permissions-json>]",
	Short: "Compile permission patterns into whitelist entries",
	Long: `Compile a JSON array of match patterns into origin access whitelist
entries without installing them. The patterns are taken from the arguments
or from a manifest file.`,
	Example: `  originguard compile app://myapp/index.html '["http://*.example.com/*"]'
  originguard compile --manifest manifest.json`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileManifest, "manifest", "m", "", "manifest file to read permissions from")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	var base, perms string
	switch {
	case compileManifest != "":
		m, err := manifest.NewLoader(cfg.AssetsDir, cfg.AssetsBaseURL).Load(compileManifest)
		if err != nil {
			return err
		}
		base, perms = m.LocalPath, m.Permissions
	case len(args) == 2:
		base, perms = args[0], args[1]
	default:
		return fmt.Errorf("expected <base-url> <permissions-json> or --manifest")
	}

	entries := whitelist.Compile(base, perms)
	if entries == nil {
		entries = []api.WhitelistEntry{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
