package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/assetship/internal/fetch"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <url> [local-file]",
		Short: "Check that a deployed artifact matches the local build",
		Long: `Verify downloads a deployed artifact and compares it with a local file.

The response is decoded by its Content-Encoding header, or by the URL suffix
(.gz, .br, .zst) when the server sent the compressed bytes as they are. A local
file with a compressed suffix is decoded too, so App.wasm.gz on disk can be
compared with App.wasm on a server that negotiates brotli.

Without a local file the artifact of the same name in destDir is used.

Examples:
  # Compare the deployed artifact with destDir/App.wasm.gz
  assetship verify https://example.github.io/app/assets/wasm/App.wasm.gz

  # Compare with an explicit file
  assetship verify http://127.0.0.1:8000/assets/wasm/App.wasm .build/release/App.wasm`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runVerifyCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .assetship.yaml in current or config directory)")
	cmd.Flags().DurationP("timeout", "t", fetch.DefaultTimeout,
		"Timeout for the download")
	cmd.Flags().String("socks5", "",
		"Route the download through a SOCKS5 proxy (host:port)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the result in JSON format")

	return cmd
}

// runVerifyCmd executes the verify command.
func runVerifyCmd(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL: %s", rawURL)
	}

	localPath := ""
	if len(args) == 2 {
		localPath = args[1]
	} else {
		file, err := loadProject(cmd, false)
		if err != nil {
			return err
		}
		localPath = filepath.Join(file.Resolve(file.DestDir), path.Base(u.Path))
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	socks, err := cmd.Flags().GetString("socks5")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(logger)
	defer cancel()

	opts := []fetch.ClientOption{
		fetch.WithLogger(logger),
		fetch.WithUserAgent("assetship/" + getVersion()),
		fetch.WithTimeout(timeout),
	}
	if socks != "" {
		opts = append(opts, fetch.WithSOCKS5(socks))
	}

	result, verifyErr := fetch.NewClient(opts...).Verify(ctx, rawURL, localPath)
	if result == nil {
		return verifyErr
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(struct {
			*fetch.VerifyResult
			Match bool `json:"match"`
		}{result, result.Match()}); err != nil {
			return err
		}
		return verifyErr
	}

	encoding := "none"
	if result.Encoding != "" {
		encoding = result.Encoding.String()
		if result.BySuffix {
			encoding += " (by suffix)"
		}
	}
	fmt.Fprintf(out, "URL:          %s\n", result.URL)
	fmt.Fprintf(out, "Local file:   %s\n", result.LocalPath)
	fmt.Fprintf(out, "Content-Type: %s\n", result.ContentType)
	fmt.Fprintf(out, "Encoding:     %s\n", encoding)
	fmt.Fprintf(out, "Transferred:  %s\n", humanize.Bytes(uint64(max(result.TransferSize, 0))))
	fmt.Fprintf(out, "Decoded:      %s\n", humanize.Bytes(uint64(max(result.DecodedSize, 0))))
	fmt.Fprintf(out, "Digest:       %s\n", result.RemoteDigest)
	if verifyErr != nil {
		fmt.Fprintf(out, "Result:       ✗ %v\n", verifyErr)
		return verifyErr
	}
	fmt.Fprintln(out, "Result:       ✓ deployed artifact matches the local build")
	return nil
}
