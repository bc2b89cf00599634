package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tkingovr/originguard/api"
	"github.com/tkingovr/originguard/internal/jsonrpc"
	"github.com/tkingovr/originguard/internal/manifest"
)

var controlID string

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Print control messages for the serve command",
	Long: `Print a JSON-RPC control line that "originguard serve" accepts on its
control channel. Without --id the line is a notification and gets no reply.`,
	Example: `  originguard control online false | originguard serve --no-dashboard
  originguard control permissions --id 1 app://myapp/ '["https://*.example.com/*"]'
  originguard control permissions -c originguard.yaml --manifest manifest.json`,
}

var controlOnlineCmd = &cobra.Command{
	Use:   "online <true|false>",
	Short: "Set the script-visible online state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		up, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("invalid online state %q: %w", args[0], err)
		}
		return writeControl(os.Stdout, &api.ControlMessage{
			Kind:           api.KindSetOnlineState,
			SetOnlineState: &api.SetOnlineState{Up: up},
		})
	},
}

var controlManifest string

var controlPermissionsCmd = &cobra.Command{
	Use:   "permissions [<base-url> <permissions-json>]",
	Short: "Deliver a permission declaration",
	RunE: func(cmd *cobra.Command, args []string) error {
		var p api.SetPermissions
		switch {
		case controlManifest != "":
			m, err := manifest.NewLoader(cfg.AssetsDir, cfg.AssetsBaseURL).Load(controlManifest)
			if err != nil {
				return err
			}
			p = api.SetPermissions{BaseURL: m.LocalPath, Permissions: m.Permissions}
		case len(args) == 2:
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("permissions are not valid JSON: %s", args[1])
			}
			p = api.SetPermissions{BaseURL: args[0], Permissions: args[1]}
		default:
			return fmt.Errorf("expected <base-url> <permissions-json> or --manifest")
		}
		return writeControl(os.Stdout, &api.ControlMessage{Kind: api.KindSetPermissions, SetPermissions: &p})
	},
}

func init() {
	controlCmd.PersistentFlags().StringVar(&controlID, "id", "", "request id; the line is a notification when empty")
	controlPermissionsCmd.Flags().StringVarP(&controlManifest, "manifest", "m", "", "manifest file to read permissions from")
	controlCmd.AddCommand(controlOnlineCmd, controlPermissionsCmd)
	rootCmd.AddCommand(controlCmd)
}

// writeControl encodes cm as one JSON-RPC line.
func writeControl(w io.Writer, cm *api.ControlMessage) error {
	var id json.RawMessage
	if controlID != "" {
		if _, err := strconv.ParseInt(controlID, 10, 64); err == nil {
			id = json.RawMessage(controlID)
		} else {
			quoted, _ := json.Marshal(controlID)
			id = quoted
		}
	}
	msg, err := jsonrpc.NewControlRequest(id, cm)
	if err != nil {
		return err
	}
	data, err := jsonrpc.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding control message: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
