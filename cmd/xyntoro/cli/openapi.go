package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xyntoro/xyntoro/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		serverURL  string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI document",
		Long: `Generate the OpenAPI 3.1 document describing the site API. It is the same
document the server publishes at /openapi.json.`,
		Example: `  xyntoro openapi                        # print to stdout
  xyntoro openapi -o openapi.json        # write to file
  xyntoro openapi --server-url https://api.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runOpenAPI(cmd.OutOrStdout(), serverURL, cfg.Auth.CookieName, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVar(&serverURL, "server-url", "/", "Server URL recorded in the document")

	return cmd
}

func runOpenAPI(out io.Writer, serverURL, cookieName, outputFile string) error {
	doc := openapi.Generate(serverURL, versionString(), cookieName)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode openapi document: %w", err)
	}
	data = append(data, '\n')

	if outputFile == "" {
		_, err = out.Write(data)
		return err
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", outputFile)
	return nil
}
