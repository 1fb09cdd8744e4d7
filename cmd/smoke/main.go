// Command smoke runs an import, search and query round trip against a
// running weaver server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type step struct {
	name   string
	method string
	path   string
	body   any
	expect string
}

func main() {
	var baseURL string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:           "smoke",
		Short:         "Exercise every tool route of a running weaver server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 60 * time.Second}
			if err := waitHealthy(client, baseURL, wait); err != nil {
				return err
			}
			for _, s := range steps(uuid.NewString()) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s... ", s.name)
				result, err := call(client, baseURL, s)
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "FAILED")
					return fmt.Errorf("%s: %w", s.name, err)
				}
				if !strings.Contains(result, s.expect) {
					fmt.Fprintln(cmd.OutOrStdout(), "FAILED")
					return fmt.Errorf("%s: expected %q in result:\n%s", s.name, s.expect, result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PASSED")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "weaver server base URL")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for /healthz")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func steps(run string) []step {
	scene := "smoke-" + run
	return []step{
		{
			name:   "import_graph",
			method: http.MethodPost,
			path:   "/tools/import_graph",
			body: map[string]any{"graph_data": map[string]any{
				"nodes": map[string]any{
					"ExperientialScene": []map[string]any{{"scene_name": scene, "description": "Evening rain over the old harbor"}},
					"City":              []map[string]any{{"city_name": "smoke-city-" + run}},
				},
				"relationships": map[string]any{
					"LOCATED_IN_CITY": []map[string]any{{
						"id":          "rel-" + run,
						"source_node": map[string]any{"label": "ExperientialScene", "key": scene},
						"target_node": map[string]any{"label": "City", "key": "smoke-city-" + run},
					}},
				},
			}},
			expect: "Graph data imported successfully!",
		},
		{
			name:   "find_similar_nodes",
			method: http.MethodPost,
			path:   "/tools/find_similar_nodes",
			body:   map[string]any{"text_content": "rain at the harbor", "top_k": 3, "similarity_threshold": 0.0},
			expect: "",
		},
		{
			name:   "execute_cypher_query",
			method: http.MethodPost,
			path:   "/tools/execute_cypher_query",
			body:   map[string]any{"cypher_query": fmt.Sprintf("MATCH (s:ExperientialScene {scene_name: '%s'})-[:LOCATED_IN_CITY]->(c) RETURN c.city_name AS city", scene)},
			expect: "smoke-city-" + run,
		},
		{
			name:   "read_graph_schema",
			method: http.MethodGet,
			path:   "/tools/read_graph_schema",
			expect: `"relationships"`,
		},
		{
			name:   "cleanup",
			method: http.MethodPost,
			path:   "/tools/execute_cypher_query",
			body:   map[string]any{"cypher_query": fmt.Sprintf("MATCH (n) WHERE n.scene_name = '%s' OR n.city_name = 'smoke-city-%s' DETACH DELETE n", scene, run)},
			expect: "No data returned",
		},
	}
}

func waitHealthy(client *http.Client, baseURL string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s not healthy after %s", baseURL, wait)
		}
		time.Sleep(time.Second)
	}
}

func call(client *http.Client, baseURL string, s step) (string, error) {
	var body io.Reader
	if s.body != nil {
		data, err := json.Marshal(s.body)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(s.method, baseURL+s.path, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}
