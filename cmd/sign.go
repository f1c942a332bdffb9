package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/opbot/internal/interactions"
)

var (
	signKey       string
	signTimestamp string
	signURL       string
)

var signCmd = &cobra.Command{
	Use:   "sign <payload-file|->",
	Short: "Sign an interaction payload for local testing",
	Long: `Signs the exact bytes of a payload file with an Ed25519 private key and
prints the signature headers. With --url the signed payload is POSTed and the
response is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if signKey == "" {
			signKey = os.Getenv("OPBOT_PRIVATE_KEY")
		}
		priv, err := interactions.ParsePrivateKey(signKey)
		if err != nil {
			return err
		}

		var body []byte
		if args[0] == "-" {
			body, err = io.ReadAll(cmd.InOrStdin())
		} else {
			body, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		ts := signTimestamp
		if ts == "" {
			ts = strconv.FormatInt(time.Now().Unix(), 10)
		}
		sig := interactions.Sign(priv, ts, body)

		out := cmd.OutOrStdout()
		if signURL == "" {
			fmt.Fprintf(out, "%s: %s\n", interactions.HeaderSignature, sig)
			fmt.Fprintf(out, "%s: %s\n", interactions.HeaderTimestamp, ts)
			return nil
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, signURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(interactions.HeaderSignature, sig)
		req.Header.Set(interactions.HeaderTimestamp, ts)

		client := &http.Client{Timeout: 15 * time.Minute}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("posting payload: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		fmt.Fprintln(out, resp.Status)
		if len(respBody) > 0 {
			fmt.Fprintln(out, string(respBody))
		}
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signKey, "key", "", "hex Ed25519 private key (default $OPBOT_PRIVATE_KEY)")
	signCmd.Flags().StringVar(&signTimestamp, "timestamp", "", "timestamp to sign (default now, unix seconds)")
	signCmd.Flags().StringVar(&signURL, "url", "", "POST the signed payload to this URL")
	rootCmd.AddCommand(signCmd)
}
