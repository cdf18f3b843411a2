package datapeekctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// renderFunc turns a successful response body into human output. Returning
// false falls back to pretty-printed JSON.
type renderFunc func(w io.Writer, raw []byte) bool

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("datapeekctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "DataPeek API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	limit := fs.Int("limit", 0, "page size for preview, search and query (0 uses the server default)")
	offset := fs.Int("offset", 0, "row offset for preview, search and query")
	raw := fs.Bool("raw", false, "count the file as stored, ignoring session deletes")
	asJSON := fs.Bool("json", false, "print raw JSON instead of rendering tables")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := http.MethodGet
	path := ""
	var payload []byte
	var render renderFunc

	requireFile := func() (string, bool) {
		name := strings.TrimSpace(fs.Arg(1))
		if name == "" {
			_, _ = fmt.Fprintf(stderr, "%s requires a file argument\n\n", command)
			writeUsage(stderr)
			return "", false
		}
		return name, true
	}

	switch command {
	case "health":
		path = "/v1/health"
	case "ready":
		path = "/v1/ready"
	case "config":
		path = "/v1/config"
	case "files":
		path = "/v1/files"
		render = renderFileList
	case "schema":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		path = "/v1/schema?file=" + url.QueryEscape(file)
		render = renderSchema
	case "preview":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		path = fmt.Sprintf("/v1/preview?file=%s%s", url.QueryEscape(file), pageQuery(*limit, *offset))
		render = renderRows
	case "count":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		path = "/v1/count?file=" + url.QueryEscape(file)
		if *raw {
			path += "&raw=true"
		}
	case "search":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		term := strings.TrimSpace(fs.Arg(2))
		if term == "" {
			_, _ = fmt.Fprintln(stderr, "search requires a file and a term")
			return 2
		}
		path = fmt.Sprintf("/v1/search?file=%s&query=%s%s", url.QueryEscape(file), url.QueryEscape(term), pageQuery(*limit, *offset))
		render = renderRows
	case "query":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		sqlText := strings.TrimSpace(strings.Join(fs.Args()[2:], " "))
		if sqlText == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a file and a SQL statement")
			return 2
		}
		body := map[string]any{"file": file, "sql": sqlText}
		if *limit > 0 {
			body["limit"] = *limit
		}
		if *offset > 0 {
			body["offset"] = *offset
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
			return 1
		}
		method, path, payload = http.MethodPost, "/v1/query", encoded
		render = renderRows
	case "profile":
		file, ok := requireFile()
		if !ok {
			return 2
		}
		encoded, err := json.Marshal(map[string]any{"file": file})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
			return 1
		}
		method, path, payload = http.MethodPost, "/v1/profile", encoded
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if !*asJSON && render != nil && render(stdout, responseBody) {
		return 0
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	table.SetColWidth(48)
	return table
}

func renderRows(w io.Writer, raw []byte) bool {
	var page struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
		RowIDs  []int64  `json:"row_ids"`
	}
	if err := json.Unmarshal(raw, &page); err != nil || len(page.Columns) == 0 {
		return false
	}

	withIDs := len(page.RowIDs) == len(page.Rows) && len(page.RowIDs) > 0
	header := page.Columns
	if withIDs {
		header = append([]string{"#"}, header...)
	}
	table := newTable(w)
	table.SetHeader(header)
	for i, row := range page.Rows {
		cells := make([]string, 0, len(row)+1)
		if withIDs {
			cells = append(cells, strconv.FormatInt(page.RowIDs[i], 10))
		}
		for _, value := range row {
			cells = append(cells, formatCell(value))
		}
		table.Append(cells)
	}
	table.Render()
	_, _ = fmt.Fprintf(w, "%d row(s)\n", len(page.Rows))
	return true
}

func renderFileList(w io.Writer, raw []byte) bool {
	var body struct {
		Files []struct {
			Name      string    `json:"name"`
			SizeBytes int64     `json:"size_bytes"`
			Modified  time.Time `json:"modified"`
		} `json:"files"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	table := newTable(w)
	table.SetHeader([]string{"name", "size", "modified"})
	for _, file := range body.Files {
		table.Append([]string{
			file.Name,
			strconv.FormatInt(file.SizeBytes, 10),
			file.Modified.Local().Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return true
}

func renderSchema(w io.Writer, raw []byte) bool {
	var body struct {
		File    string `json:"file"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Columns) == 0 {
		return false
	}
	table := newTable(w)
	table.SetHeader([]string{"column", "type"})
	for _, column := range body.Columns {
		table.Append([]string{column.Name, column.Type})
	}
	table.Render()
	return true
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case []any, map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}

func pageQuery(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, "&limit=%d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, "&offset=%d", offset)
	}
	return b.String()
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: datapeekctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                 GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  config                GET /v1/config")
	_, _ = fmt.Fprintln(w, "  files                 GET /v1/files")
	_, _ = fmt.Fprintln(w, "  schema <file>         GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  preview <file>        GET /v1/preview")
	_, _ = fmt.Fprintln(w, "  count <file>          GET /v1/count")
	_, _ = fmt.Fprintln(w, "  search <file> <term>  GET /v1/search")
	_, _ = fmt.Fprintln(w, "  query <file> <sql>    POST /v1/query")
	_, _ = fmt.Fprintln(w, "  profile <file>        POST /v1/profile")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
