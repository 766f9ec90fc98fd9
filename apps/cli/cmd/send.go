package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
	"github.com/abdul-hamid-achik/hitpad/packages/import/curl"
	"github.com/abdul-hamid-achik/hitpad/packages/output"
)

var sendCmd = &cobra.Command{
	Use:   "send [url]",
	Short: "Send one request and print the response",
	Long: `Compose a request from flags or a YAML request file, send it and print
the response.

{{name}} tokens in the URL, header values and body are replaced with the
variables of the environment selected with --env.

Examples:
  hitpad send https://httpbin.org/get -q page=2
  hitpad send {{base}}/items -X POST -d '{"name":"x"}' --env dev
  hitpad send -f requests/login.yaml --capture token=body.token --env dev
  hitpad send {{base}}/health --query status --fail
  hitpad send {{base}}/items --bearer {{token}} --save requests/items
  hitpad send --curl "curl -X POST https://httpbin.org/post -d a=1"
  hitpad send -f requests/login.yaml --env dev --as-curl`,
	Args: cobra.MaximumNArgs(1),
	RunE: sendCommand,
}

// requestFlags describes one request on the command line. It is shared by
// send and bench.
type requestFlags struct {
	file        string
	curl        string
	method      string
	headers     []string
	params      []string
	data        string
	contentType string
	bearer      string
	basic       string
}

var (
	sendRequest    requestFlags
	sendOutputFlag string
	sendQueryFlag  string
	sendSchemaFlag string
	sendCaptures   []string
	sendSaveFlag   string
	sendFailFlag   bool
	sendAsCurlFlag bool
)

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML request file to start from")
	cmd.Flags().StringVar(&f.curl, "curl", "", "curl command line to start from")
	cmd.Flags().StringVarP(&f.method, "method", "X", "", "HTTP method (default GET)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	cmd.Flags().StringArrayVarP(&f.params, "param", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body, or @path to read it from a file")
	cmd.Flags().StringVar(&f.contentType, "content-type", "", "Body format: json, text, html, xml")
	cmd.Flags().StringVar(&f.bearer, "bearer", "", "Bearer token")
	cmd.Flags().StringVar(&f.basic, "basic", "", "Basic credentials as user:pass")
}

func init() {
	sendRequest.register(sendCmd)
	sendCmd.Flags().StringVarP(&sendOutputFlag, "output", "o", getEnvString("HITPAD_OUTPUT", "console"), "Output format: console, json (env: HITPAD_OUTPUT)")
	sendCmd.Flags().StringVar(&sendQueryFlag, "query", "", "Print only the value at this JSON path (e.g. data.items.0.id)")
	sendCmd.Flags().StringVar(&sendSchemaFlag, "schema", "", "Validate the response body against a JSON schema file")
	sendCmd.Flags().StringArrayVar(&sendCaptures, "capture", nil, "Store NAME=EXPR from the response in the active environment (repeatable)")
	sendCmd.Flags().StringVar(&sendSaveFlag, "save", "", "Save the composed request as a YAML file")
	sendCmd.Flags().BoolVar(&sendFailFlag, "fail", false, "Exit with an error on 4xx and 5xx responses")
	sendCmd.Flags().BoolVar(&sendAsCurlFlag, "as-curl", false, "Print the composed request as a curl command instead of sending it")
}

// draft builds the request draft. A request file is the starting point and
// flags are layered on top: scalar flags replace, repeatable ones append.
func (f *requestFlags) draft(args []string) (*http.Draft, error) {
	d := http.NewDraft()
	switch {
	case f.file != "" && f.curl != "":
		return nil, errors.New("--file and --curl are mutually exclusive")
	case f.file != "":
		loaded, err := http.LoadDraft(f.file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.file, err)
		}
		d = loaded
	case f.curl != "":
		parsed, err := curl.Parse(f.curl)
		if err != nil {
			return nil, fmt.Errorf("--curl: %w", err)
		}
		d = parsed.Draft
	}

	if len(args) > 0 {
		d.URL = args[0]
	}
	if d.URL == "" {
		return nil, errors.New("a URL is required (argument, --file or --curl)")
	}

	if f.method != "" {
		m, err := http.ParseMethod(f.method)
		if err != nil {
			return nil, err
		}
		d.Method = m
	}

	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		d.Headers.Append(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	for _, p := range f.params {
		key, value, _ := strings.Cut(p, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		d.Params.Append(key, value)
	}

	if f.data != "" {
		body, err := readData(f.data)
		if err != nil {
			return nil, err
		}
		d.Body = body
	}

	if f.contentType != "" {
		ct, err := http.ParseContentType(f.contentType)
		if err != nil {
			return nil, err
		}
		d.ContentType = ct
	}

	switch {
	case f.bearer != "" && f.basic != "":
		return nil, errors.New("--bearer and --basic are mutually exclusive")
	case f.bearer != "":
		d.Auth = auth.BearerToken(f.bearer)
	case f.basic != "":
		user, pass, _ := strings.Cut(f.basic, ":")
		d.Auth = auth.BasicAuth(user, pass)
	}

	return d, nil
}

func readData(data string) (string, error) {
	path, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(content), nil
}

func sendCommand(cmd *cobra.Command, args []string) error {
	draft, err := sendRequest.draft(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	captures := make([]output.Capture, 0, len(sendCaptures))
	for _, c := range sendCaptures {
		capture, err := output.ParseCapture(c)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		captures = append(captures, capture)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(captures) > 0 && cfg.DefaultEnvironment == "" {
		return withExitCode(ExitUsageError, errors.New("--capture needs an environment (--env)"))
	}

	s, err := openSession(cfg, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
	)

	if sendSaveFlag != "" {
		path, err := http.SaveDraft(draft, sendSaveFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved: %s\n", path)
	}

	if sendAsCurlFlag {
		fmt.Fprintln(cmd.OutOrStdout(), curl.Format(http.Compose(draft, s.ws.Active())))
		return nil
	}

	slot, err := s.ws.Slot(0)
	if err != nil {
		return err
	}
	slot.Draft = draft

	task, err := s.ws.Submit(0)
	if err != nil {
		return err
	}
	outcome := task.Run(cmd.Context())
	s.ws.Deliver(outcome)
	rec := outcome.Response

	switch strings.ToLower(sendOutputFlag) {
	case "json":
		if err := output.NewJSONFormatter(output.WithJSONWriter(cmd.OutOrStdout())).Format(task.Request, rec, outcome.Err); err != nil {
			return err
		}
	default:
		if outcome.Err != nil {
			break
		}
		if sendQueryFlag != "" {
			value, ok := output.Query(rec, sendQueryFlag)
			if !ok {
				return withExitCode(ExitCheckFailure, fmt.Errorf("no value at %q", sendQueryFlag))
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
		} else {
			console.FormatResponse(rec)
		}
	}

	if outcome.Err != nil {
		return withExitCode(ExitNetworkError, outcome.Err)
	}

	if len(captures) > 0 {
		if err := storeCaptures(s, console, captures, rec); err != nil {
			return err
		}
	}

	if sendSchemaFlag != "" {
		if err := output.ValidateSchema(rec, sendSchemaFlag); err != nil {
			return withExitCode(ExitCheckFailure, err)
		}
	}

	if sendFailFlag && rec.StatusCode >= 400 {
		return withExitCode(ExitResponseError, fmt.Errorf("server responded %d", rec.StatusCode))
	}
	return nil
}

// storeCaptures saves the captured values into the active environment so
// later requests can reference them as {{name}}.
func storeCaptures(s *session, console *output.ConsoleFormatter, captures []output.Capture, rec *http.Response) error {
	pairs := output.ExtractAll(rec, captures)
	if len(pairs) < len(captures) {
		found := make(map[string]bool, len(pairs))
		for _, p := range pairs {
			found[p.Key] = true
		}
		for _, c := range captures {
			if !found[c.Name] {
				console.FormatWarning("capture %s: no value at %q", c.Name, c.Expr)
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	active := s.ws.Active()
	if _, err := s.ws.SetVariables(active.ID, pairs); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	console.FormatCaptures(active.Name, pairKeys(pairs))
	return nil
}

func pairKeys(pairs []kv.Pair) []string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return keys
}
