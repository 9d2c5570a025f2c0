package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check if the Xyntoro server is running",
		Long:  "Query /api/health of a running server and report its database state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = healthURL(viper.GetString("server.host"), viper.GetInt("server.port"))
			}
			return runStatus(cmd.OutOrStdout(), url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Health endpoint to query (default from server.host and server.port)")

	return cmd
}

func healthURL(host string, port int) string {
	if port == 0 {
		port = 5000
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/api/health"
}

type healthReport struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string `json:"database"`
}

func runStatus(out io.Writer, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(out, "Server is not responding at %s\n", url)
		return nil
	}
	defer resp.Body.Close()

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		fmt.Fprintf(out, "Server answered %d but the health response was not understood\n", resp.StatusCode)
		return nil
	}

	fmt.Fprintf(out, "Server is running\n")
	fmt.Fprintf(out, "  Health:   %s (%d)\n", url, resp.StatusCode)
	fmt.Fprintf(out, "  Status:   %s\n", report.Status)
	fmt.Fprintf(out, "  Database: %s\n", report.Database)
	return nil
}
