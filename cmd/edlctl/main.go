// Command edlctl is the reference client for the EDL rendering engine.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "edlctl",
	Short: "Client for the offline audio editing engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:50051", "engine base URL")
	rootCmd.AddCommand(pingCmd, loadCmd, renderCmd, edlUpdateCmd, edlRenderCmd, subscribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func httpURL(path string) string {
	base := strings.TrimSuffix(serverAddr, "/")
	return base + path
}

func wsURL(path string, query url.Values) string {
	base := strings.TrimSuffix(serverAddr, "/")
	base = strings.Replace(base, "http://", "ws://", 1)
	base = strings.Replace(base, "https://", "wss://", 1)
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func postJSON(path string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(httpURL(path), "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check server liveness",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(httpURL("/v1/ping"))
		if err != nil {
			fail(err)
		}
		defer resp.Body.Close()
		io.Copy(os.Stdout, resp.Body)
		fmt.Println()
	},
}

var loadPath string

var loadCmd = &cobra.Command{
	Use:   "load [path]",
	Short: "Probe an audio file",
	Run: func(cmd *cobra.Command, args []string) {
		path := loadPath
		if path == "" && len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			fail(fmt.Errorf("path is required"))
		}
		var out map[string]interface{}
		if err := postJSON("/v1/load", map[string]string{"file_path": path}, &out); err != nil {
			fail(err)
		}
		printJSON(out)
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadPath, "path", "", "file path")
}

var renderPath, renderOut string
var renderStart, renderDur float64

var renderCmd = &cobra.Command{
	Use:   "render [path] [out]",
	Short: "Print a one-shot render request (legacy, non-EDL path); nothing is rendered",
	Run: func(cmd *cobra.Command, args []string) {
		path, out := renderPath, renderOut
		if path == "" && len(args) > 0 {
			path = args[0]
		}
		if out == "" && len(args) > 1 {
			out = args[1]
		}
		if path == "" || out == "" {
			fail(fmt.Errorf("path and out are required"))
		}
		fmt.Printf("render: %s -> %s [start=%v dur=%v]\n", path, out, renderStart, renderDur)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderPath, "path", "", "input file path")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file path")
	renderCmd.Flags().Float64Var(&renderStart, "start", 0, "start time in seconds")
	renderCmd.Flags().Float64Var(&renderDur, "dur", 0, "duration in seconds")
}

var edlUpdatePath string
var edlUpdateReplace bool

var edlUpdateCmd = &cobra.Command{
	Use:   "edl-update",
	Short: "Apply a new EDL",
	Run: func(cmd *cobra.Command, args []string) {
		if edlUpdatePath == "" {
			fail(fmt.Errorf("--edl is required"))
		}
		raw, err := os.ReadFile(edlUpdatePath)
		if err != nil {
			fail(err)
		}
		var edlBody json.RawMessage = raw
		body := map[string]interface{}{"edl": edlBody, "replace": edlUpdateReplace}
		var out map[string]interface{}
		if err := postJSON("/v1/edl", body, &out); err != nil {
			fail(err)
		}
		printJSON(out)
	},
}

func init() {
	edlUpdateCmd.Flags().StringVar(&edlUpdatePath, "edl", "", "path to EDL JSON file")
	edlUpdateCmd.Flags().BoolVar(&edlUpdateReplace, "replace", false, "reserved; accepted for compatibility")
}

var (
	edlRenderID       string
	edlRenderStart    int64
	edlRenderDur      int64
	edlRenderOut      string
	edlRenderBitDepth int
)

// edlRenderCmd assumes the EDL's own sample rate when the server already
// holds it; §6's open question about --start/--dur unit conversion when
// the EDL rate is unknown to the client is left unresolved here exactly as
// the distilled specification leaves it: these flags are sample counts,
// not seconds, for this client.
var edlRenderCmd = &cobra.Command{
	Use:   "edl-render",
	Short: "Render a window of the currently-applied EDL",
	Run: func(cmd *cobra.Command, args []string) {
		if edlRenderID == "" {
			fail(fmt.Errorf("--edl-id is required"))
		}
		req := map[string]interface{}{
			"edl_id": edlRenderID,
			"range": map[string]int64{
				"start_samples":    edlRenderStart,
				"duration_samples": edlRenderDur,
			},
			"out_path":  edlRenderOut,
			"bit_depth": edlRenderBitDepth,
		}
		reqBytes, _ := json.Marshal(req)
		query := url.Values{"request": {string(reqBytes)}}
		streamEvents(wsURL("/v1/edl/"+edlRenderID+"/render", query))
	},
}

func init() {
	edlRenderCmd.Flags().StringVar(&edlRenderID, "edl-id", "", "edl id")
	edlRenderCmd.Flags().Int64Var(&edlRenderStart, "start", 0, "start sample")
	edlRenderCmd.Flags().Int64Var(&edlRenderDur, "dur", 0, "duration in samples")
	edlRenderCmd.Flags().StringVar(&edlRenderOut, "out", "", "output wav path")
	edlRenderCmd.Flags().IntVar(&edlRenderBitDepth, "bit-depth", 32, "16, 24, or 32")
}

var subscribeEdlID string

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Stream engine events",
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		if subscribeEdlID != "" {
			query.Set("session", subscribeEdlID)
		}
		streamEvents(wsURL("/v1/subscribe", query))
	},
}

func init() {
	subscribeCmd.Flags().StringVar(&subscribeEdlID, "edl-id", "", "session id (optional)")
}

func streamEvents(url string) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fail(err)
	}
	defer conn.Close()

	for {
		var ev map[string]interface{}
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		printJSON(ev)
	}
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
